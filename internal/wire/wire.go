// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wire implements the dispatch library's length-prefixed codec:
// fixed-width integers, an RFC 4880-style variable-length prefix, strings,
// buffers, and ancillary file descriptors. It knows nothing about sockets or
// connection lifecycle beyond the small Peer interface below, the same way
// the teacher's internal/buffer package knows nothing about fuse.Connection.
package wire

import (
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/sys/unix"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
)

// Peer is the minimal surface the codec needs from a connection: a reader
// and writer that always return the number of bytes actually transferred,
// plus the raw file descriptor for ancillary-data syscalls that fd passing
// requires.
type Peer interface {
	io.Reader
	io.Writer
	Fd() int
}

// specialAbsentString is the special-marker value representing the
// distinguished "absent string" on the wire.
const specialAbsentString = 1

// classifyErr reclassifies an io.EOF observed by a typed primitive as a
// Protocol-kind error. Every function in this file is only ever called
// after the 4-byte message header has already been read with a raw,
// unwrapped Peer.Read, so any EOF seen here necessarily falls mid-frame:
// the only legitimate message-boundary EOF is the header read itself,
// which callers perform directly rather than through this package.
func classifyErr(err error, op string) error {
	if err == nil {
		return nil
	}
	// io.ReadFull reports a zero-byte read as io.EOF and a partial read as
	// io.ErrUnexpectedEOF; both mean the same thing here, since a typed
	// primitive is by construction only ever called mid-frame.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return dispatcherr.New(dispatcherr.Protocol, op, io.ErrUnexpectedEOF)
	}
	return dispatcherr.New(dispatcherr.System, op, err)
}

func readFull(p Peer, buf []byte, op string) error {
	_, err := io.ReadFull(p, buf)
	if err != nil {
		return classifyErr(err, op)
	}
	return nil
}

func writeFull(p Peer, buf []byte, op string) error {
	n, err := p.Write(buf)
	if err != nil {
		return dispatcherr.New(dispatcherr.System, op, err)
	}
	if n != len(buf) {
		return dispatcherr.New(dispatcherr.Protocol, op, io.ErrShortWrite)
	}
	return nil
}

// ReadUint8 reads a single byte.
func ReadUint8(p Peer) (uint8, error) {
	var buf [1]byte
	if err := readFull(p, buf[:], "read_uint8"); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteUint8 writes a single byte.
func WriteUint8(p Peer, v uint8) error {
	return writeFull(p, []byte{v}, "write_uint8")
}

// ReadUint16 reads a big-endian uint16. This is the message-type alias.
func ReadUint16(p Peer) (uint16, error) {
	var buf [2]byte
	if err := readFull(p, buf[:], "read_uint16"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// WriteUint16 writes a big-endian uint16.
func WriteUint16(p Peer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return writeFull(p, buf[:], "write_uint16")
}

// ReadUint32 reads a big-endian uint32.
func ReadUint32(p Peer) (uint32, error) {
	var buf [4]byte
	if err := readFull(p, buf[:], "read_uint32"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteUint32 writes a big-endian uint32.
func WriteUint32(p Peer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return writeFull(p, buf[:], "write_uint32")
}

// ReadInt32 reads a big-endian int32.
func ReadInt32(p Peer) (int32, error) {
	v, err := ReadUint32(p)
	return int32(v), err
}

// WriteInt32 writes a big-endian int32.
func WriteInt32(p Peer, v int32) error {
	return WriteUint32(p, uint32(v))
}

// ReadUint64 reads a big-endian uint64.
func ReadUint64(p Peer) (uint64, error) {
	var buf [8]byte
	if err := readFull(p, buf[:], "read_uint64"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteUint64 writes a big-endian uint64.
func WriteUint64(p Peer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return writeFull(p, buf[:], "write_uint64")
}

// ReadInt64 reads a big-endian int64.
func ReadInt64(p Peer) (int64, error) {
	v, err := ReadUint64(p)
	return int64(v), err
}

// WriteInt64 writes a big-endian int64.
func WriteInt64(p Peer, v int64) error {
	return WriteUint64(p, uint64(v))
}

// ReadLength reads an RFC 4880-style variable-length prefix. If the first
// byte is a special marker (224..254), ok is false and special holds the
// 5-bit marker value; otherwise ok is true and length holds the decoded
// value.
func ReadLength(p Peer) (length uint32, special uint8, ok bool, err error) {
	a, err := ReadUint8(p)
	if err != nil {
		return 0, 0, false, err
	}

	switch {
	case a < 192:
		return uint32(a), 0, true, nil

	case a < 224:
		b, err := ReadUint8(p)
		if err != nil {
			return 0, 0, false, err
		}
		return (uint32(a)-192)*256 + uint32(b) + 192, 0, true, nil

	case a < 255:
		return 0, a & 0x1F, false, nil

	default:
		v, err := ReadUint32(p)
		if err != nil {
			return 0, 0, false, err
		}
		return v, 0, true, nil
	}
}

// WriteLength writes length using the shortest valid encoding. Callers pass
// hasSpecial=true to instead emit the one-byte special marker encoding of
// special (only the low 5 bits are significant); length is ignored in that
// case.
func WriteLength(p Peer, length uint32, special uint8, hasSpecial bool) error {
	if hasSpecial {
		return WriteUint8(p, 0xE0|(special&0x1F))
	}

	switch {
	case length < 192:
		return WriteUint8(p, uint8(length))

	case length < 8384:
		a := uint8((length-192)>>8) + 192
		b := uint8(length - 192)
		return writeFull(p, []byte{a, b}, "write_length")

	default:
		if err := WriteUint8(p, 255); err != nil {
			return err
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], length)
		return writeFull(p, buf[:], "write_length")
	}
}

// ReadString reads a length-prefixed string, returning (s, false, nil) for
// an ordinary string, ("", true, nil) for the distinguished absent value,
// and a zero value plus a non-nil error otherwise.
func ReadString(p Peer) (s string, absent bool, err error) {
	length, special, ok, err := ReadLength(p)
	if err != nil {
		return "", false, err
	}
	if !ok {
		if special == specialAbsentString {
			return "", true, nil
		}
		return "", false, dispatcherr.New(dispatcherr.Protocol, "read_string", errUnknownSpecial)
	}

	buf := make([]byte, length)
	if err := readFull(p, buf, "read_string"); err != nil {
		return "", false, err
	}
	return string(buf), false, nil
}

var errUnknownSpecial = errors.New("unrecognized special-marker value for this field")

// WriteString writes s as a length-prefixed string, or the absent marker if
// absent is true (s is ignored in that case).
func WriteString(p Peer, s string, absent bool) error {
	if absent {
		return WriteLength(p, 0, specialAbsentString, true)
	}
	if err := WriteLength(p, uint32(len(s)), 0, false); err != nil {
		return err
	}
	return writeFull(p, []byte(s), "write_string")
}

// ReadBufferLength reads the length prefix of a buffer, to be followed by a
// ReadBuffer call of the same length into caller-supplied storage.
func ReadBufferLength(p Peer) (uint32, error) {
	length, _, ok, err := ReadLength(p)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, dispatcherr.New(dispatcherr.Protocol, "read_buffer_length", errUnknownSpecial)
	}
	return length, nil
}

// ReadBuffer reads exactly len(buf) bytes of buffer payload.
func ReadBuffer(p Peer, buf []byte) error {
	return readFull(p, buf, "read_buffer")
}

// WriteBufferLength writes a buffer's length prefix.
func WriteBufferLength(p Peer, length uint32) error {
	return WriteLength(p, length, 0, false)
}

// WriteBuffer writes a buffer's payload.
func WriteBuffer(p Peer, buf []byte) error {
	return writeFull(p, buf, "write_buffer")
}

// ReadFD receives a file descriptor sent as SCM_RIGHTS ancillary data
// alongside exactly one payload byte, requesting MSG_CMSG_CLOEXEC so the
// received descriptor comes back already close-on-exec.
func ReadFD(p Peer) (int, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := unix.Recvmsg(p.Fd(), buf, oob, unix.MSG_CMSG_CLOEXEC)
	if err != nil {
		return -1, dispatcherr.New(dispatcherr.System, "read_fd", err)
	}
	if n == 0 {
		return -1, dispatcherr.New(dispatcherr.Protocol, "read_fd", io.ErrUnexpectedEOF)
	}

	msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, dispatcherr.New(dispatcherr.Protocol, "read_fd", err)
	}
	if len(msgs) != 1 {
		return -1, dispatcherr.New(dispatcherr.Protocol, "read_fd", errNoAncillaryFD)
	}

	fds, err := unix.ParseUnixRights(&msgs[0])
	if err != nil {
		return -1, dispatcherr.New(dispatcherr.Protocol, "read_fd", err)
	}
	if len(fds) != 1 {
		return -1, dispatcherr.New(dispatcherr.Protocol, "read_fd", errNoAncillaryFD)
	}

	return fds[0], nil
}

var errNoAncillaryFD = errors.New("message carried no ancillary file descriptor")

// WriteFD sends fd as SCM_RIGHTS ancillary data alongside one payload byte.
func WriteFD(p Peer, fd int) error {
	oob := unix.UnixRights(fd)
	err := unix.Sendmsg(p.Fd(), []byte{0}, oob, nil, 0)
	if err != nil {
		return dispatcherr.New(dispatcherr.System, "write_fd", err)
	}
	return nil
}

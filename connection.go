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

package dispatch

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
	"github.com/dmshaw/dispatch/internal/sockaddr"
)

// handshakeHeader is the fixed two-byte opening handshake a client writes
// immediately after connecting: protocol version 1, reserved flags 0.
var handshakeHeader = [2]byte{0x01, 0x00}

// Connection owns a single local stream socket file descriptor. It is
// created by Open on the client side or by the accept loop on the server
// side, and is not safe for concurrent use by more than one goroutine at a
// time: after accept there is exactly one owning goroutine, matching the
// wire protocol's lack of in-connection multiplexing.
type Connection struct {
	mu sync.Mutex // GUARDED_BY(mu): fd, poisoned

	fd       int
	flags    Flags
	internal bool // storage owned by the dispatch engine; Close must not "free" it
	poisoned bool
}

// Fd returns the underlying file descriptor. It satisfies internal/wire.Peer.
func (c *Connection) Fd() int {
	return c.fd
}

// newConnection wraps an already-connected or already-accepted fd.
func newConnection(fd int, flags Flags, internal bool) *Connection {
	return &Connection{fd: fd, flags: flags, internal: internal}
}

// Open creates a stream socket in the local family, connects it to
// service, and performs the opening handshake. flags must include Local
// and may additionally include Nonblock; NoReturn is accepted but has no
// effect here. Any unrecognized bit is rejected.
//
// In this revision host must be empty; a non-empty host is rejected with
// Invalid, since no non-local address family is implemented.
func Open(host, service string, flags Flags) (*Connection, error) {
	if host != "" {
		return nil, dispatcherr.New(Invalid, "open", fmt.Errorf("non-empty host %q is not supported", host))
	}
	if flags&^knownFlags != 0 {
		return nil, dispatcherr.New(Invalid, "open", fmt.Errorf("unrecognized flag bits %#x", flags&^knownFlags))
	}
	if flags&Local == 0 {
		return nil, dispatcherr.New(Invalid, "open", fmt.Errorf("flags %#x do not include Local", flags))
	}

	addr, err := sockaddr.PopulateLocalAddress(service)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_LOCAL, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, dispatcherr.New(System, "socket", err)
	}

	if err := sockaddr.SetCloseOnExec(fd); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if flags&Nonblock != 0 {
		if err := sockaddr.SetNonblocking(fd); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}

	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, dispatcherr.New(System, "connect", err)
	}

	c := newConnection(fd, flags, false)

	if err := c.writeHandshake(); err != nil {
		c.poisoned = true
		c.Close()
		return nil, err
	}

	return c, nil
}

// writeHandshake writes the fixed two-byte opening handshake.
func (c *Connection) writeHandshake() error {
	return c.rawWrite(handshakeHeader[:], "handshake")
}

// Close closes the socket fd. If conn's storage is owned by the dispatch
// engine (an "internal" connection created by the accept loop), the
// caller — the worker task — is responsible for the descriptor's memory;
// Close only ever closes the fd. Close on a nil *Connection is a no-op.
func (c *Connection) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	fd := c.fd
	c.fd = -1
	c.mu.Unlock()

	if fd < 0 {
		return nil
	}
	if err := unix.Close(fd); err != nil {
		return dispatcherr.New(System, "close", err)
	}
	return nil
}

// Poison marks conn so a future caching layer would discard rather than
// retain it on close. It has no effect in this revision — there is no
// connection cache — and always succeeds.
func (c *Connection) Poison() error {
	c.mu.Lock()
	c.poisoned = true
	c.mu.Unlock()
	return nil
}

// Poisoned reports whether Poison has been called on conn.
func (c *Connection) Poisoned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poisoned
}

// PeerInfo retrieves the identity of the process on the other end of conn,
// via the platform's peer-credential socket option where one is available.
func (c *Connection) PeerInfo() (PeerInfo, error) {
	if !sockaddr.HavePeerCredentials {
		return PeerInfo{}, dispatcherr.New(Invalid, "peerinfo", fmt.Errorf("peer credentials are not available on this platform"))
	}

	cred, err := sockaddr.GetPeerCredentials(c.fd)
	if err != nil {
		return PeerInfo{}, err
	}
	return PeerInfo{PID: cred.PID, UID: cred.UID, GID: cred.GID}, nil
}

// rawRead loops over unix.Read until buf is full, EOF is seen, or an
// unrecoverable error occurs. It never returns a short count: on EOF mid-
// read it returns (0, io.EOF) regardless of how much of buf was already
// filled, matching the original library's msg_read, which also collapses
// any EOF to a bare 0 irrespective of partial progress. EINTR is retried
// transparently; any other error is wrapped as a System-kind Error.
func (c *Connection) rawRead(buf []byte, op string) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := unix.Read(c.fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, dispatcherr.New(System, op, err)
		}
		if n == 0 {
			return 0, io.EOF
		}
		total += n
	}
	return total, nil
}

// rawWrite loops over unix.Write until all of buf has been written or an
// unrecoverable error occurs. EINTR is retried transparently.
func (c *Connection) rawWrite(buf []byte, op string) error {
	total := 0
	for total < len(buf) {
		n, err := unix.Write(c.fd, buf[total:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return dispatcherr.New(System, op, err)
		}
		total += n
	}
	return nil
}

// Read implements io.Reader by delegating to the full-read loop, so a
// *Connection satisfies internal/wire.Peer directly. A partial logical
// read that hits EOF returns (0, io.EOF), per rawRead's contract; it is
// never observed as a short positive count.
func (c *Connection) Read(buf []byte) (int, error) {
	return c.rawRead(buf, "read")
}

// Write implements io.Writer by delegating to the full-write loop.
func (c *Connection) Write(buf []byte) (int, error) {
	if err := c.rawWrite(buf, "write"); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// readHeader reads the four-byte message header a server observes right
// after accept: two reserved bytes (the client's handshake, already
// consumed by the time a handler sees a connection — here it is the
// first thing the accept loop reads on an accepted fd) followed by the
// big-endian message type. Unlike every internal/wire primitive, this read
// is raw and unwrapped: an io.EOF here is a legitimate message-boundary
// close, not a protocol error, exactly as spec'd for the accept loop.
func (c *Connection) readHeader() (msgType uint16, err error) {
	var buf [4]byte
	_, err = c.rawRead(buf[:], "msg_read")
	if err != nil {
		return 0, err
	}
	msgType = uint16(buf[2])<<8 | uint16(buf[3])
	return msgType, nil
}

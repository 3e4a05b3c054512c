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

import "github.com/dmshaw/dispatch/internal/wire"

// ReadUint8 reads a single byte from conn.
func (c *Connection) ReadUint8() (uint8, error) { return wire.ReadUint8(c) }

// WriteUint8 writes a single byte to conn.
func (c *Connection) WriteUint8(v uint8) error { return wire.WriteUint8(c, v) }

// ReadType reads a message type; an alias for ReadUint16.
func (c *Connection) ReadType() (uint16, error) { return c.ReadUint16() }

// WriteType writes a message type; an alias for WriteUint16.
func (c *Connection) WriteType(t uint16) error { return c.WriteUint16(t) }

// ReadUint16 reads a big-endian uint16 from conn.
func (c *Connection) ReadUint16() (uint16, error) { return wire.ReadUint16(c) }

// WriteUint16 writes a big-endian uint16 to conn.
func (c *Connection) WriteUint16(v uint16) error { return wire.WriteUint16(c, v) }

// ReadUint32 reads a big-endian uint32 from conn.
func (c *Connection) ReadUint32() (uint32, error) { return wire.ReadUint32(c) }

// WriteUint32 writes a big-endian uint32 to conn.
func (c *Connection) WriteUint32(v uint32) error { return wire.WriteUint32(c, v) }

// ReadInt32 reads a big-endian int32 from conn.
func (c *Connection) ReadInt32() (int32, error) { return wire.ReadInt32(c) }

// WriteInt32 writes a big-endian int32 to conn.
func (c *Connection) WriteInt32(v int32) error { return wire.WriteInt32(c, v) }

// ReadUint64 reads a big-endian uint64 from conn.
func (c *Connection) ReadUint64() (uint64, error) { return wire.ReadUint64(c) }

// WriteUint64 writes a big-endian uint64 to conn.
func (c *Connection) WriteUint64(v uint64) error { return wire.WriteUint64(c, v) }

// ReadInt64 reads a big-endian int64 from conn.
func (c *Connection) ReadInt64() (int64, error) { return wire.ReadInt64(c) }

// WriteInt64 writes a big-endian int64 to conn.
func (c *Connection) WriteInt64(v int64) error { return wire.WriteInt64(c, v) }

// ReadString reads a length-prefixed string from conn. absent is true if
// the distinguished "absent string" marker was read instead, in which case
// s is "".
func (c *Connection) ReadString() (s string, absent bool, err error) { return wire.ReadString(c) }

// WriteString writes s as a length-prefixed string, or the absent marker
// if absent is true.
func (c *Connection) WriteString(s string, absent bool) error { return wire.WriteString(c, s, absent) }

// ReadBufferLength reads a buffer's length prefix, to be followed by a
// ReadBuffer call of the same length.
func (c *Connection) ReadBufferLength() (uint32, error) { return wire.ReadBufferLength(c) }

// ReadBuffer reads exactly len(buf) bytes of buffer payload into buf.
func (c *Connection) ReadBuffer(buf []byte) error { return wire.ReadBuffer(c, buf) }

// WriteBufferLength writes a buffer's length prefix.
func (c *Connection) WriteBufferLength(length uint32) error { return wire.WriteBufferLength(c, length) }

// WriteBuffer writes a buffer's payload.
func (c *Connection) WriteBuffer(buf []byte) error { return wire.WriteBuffer(c, buf) }

// ReadFD receives a file descriptor sent as ancillary data, already marked
// close-on-exec.
func (c *Connection) ReadFD() (int, error) { return wire.ReadFD(c) }

// WriteFD sends fd as ancillary data.
func (c *Connection) WriteFD(fd int) error { return wire.WriteFD(c, fd) }

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

import "github.com/dmshaw/dispatch/internal/dispatcherr"

// Kind classifies the cause of an Error. See the package-level constants.
type Kind = dispatcherr.Kind

// Error is returned by every operation in this package that can fail.
// Callers may inspect Kind directly or use errors.Is/errors.As; Error
// implements Unwrap so the underlying cause (a syscall.Errno, an io error,
// etc.) is reachable with errors.As as well.
type Error = dispatcherr.Error

const (
	// Invalid covers bad arguments: unsupported flag bits, an empty or
	// too-short service string, a service string with the wrong prefix.
	Invalid = dispatcherr.Invalid

	// Range covers an address that does not fit the platform's sockaddr_un.
	Range = dispatcherr.Range

	// System wraps an error returned directly by the operating system.
	System = dispatcherr.System

	// Protocol covers a malformed length prefix, a missing ancillary file
	// descriptor, or a frame that ended before it was fully read.
	Protocol = dispatcherr.Protocol

	// EOF marks a clean close observed at a message boundary. The public
	// surface signals a boundary EOF with io.EOF directly; this constant is
	// retained for symmetry with the other Kind values and for code that
	// inspects an *Error's Kind field after a wrapped EOF from elsewhere.
	EOF = dispatcherr.EOF
)

// Flags is a bitwise-OR of the flag constants below, passed to Open and
// Listen.
type Flags uint32

const (
	// Local requests a local (Unix-domain) stream socket. It is currently
	// the only address family this package supports; omitting it is an
	// error, matching the original library's requirement that callers name
	// the family they want even though none other is implemented yet.
	Local Flags = 1 << iota

	// NoReturn, passed to Listen, runs the accept loop on the calling
	// goroutine instead of spawning one. Listen then never returns except
	// by panic protocol.
	NoReturn

	// Nonblock puts the connection's underlying socket in non-blocking
	// mode. The codec does not retry on would-block in this mode; it
	// surfaces the platform's error verbatim as a System-kind Error.
	Nonblock
)

const knownFlags = Local | NoReturn | Nonblock

// Message types with reserved meaning. 0 never appears on the wire; it is
// purely the sentinel terminating a caller-supplied handler table.
const (
	// TypePing, if the caller's handler table does not register it
	// explicitly, is served by an internal handler that replies with a
	// single zero byte and reads no payload.
	TypePing uint16 = 65534

	// TypePanic is invoked internally by the panic protocol with a nil
	// Connection; a peer can never cause it to be dispatched, because the
	// engine aborts before a peer-supplied message of this type would reach
	// a worker.
	TypePanic uint16 = 65535
)

// Handler is the application-supplied callback bound to a message type. It
// is invoked once per accepted connection, after the type has been read,
// and owns conn until it returns. Its return value is informational only:
// the engine takes no action based on it beyond closing the connection.
type Handler func(conn *Connection, msgType uint16) error

// HandlerEntry pairs a message type with the Handler that should serve it.
type HandlerEntry struct {
	Type    uint16
	Handler Handler
}

// PeerInfo describes the process on the other end of a Connection, as
// reported by (*Connection).PeerInfo. On platforms without a
// peer-credential mechanism, PeerInfo fails with an Invalid-kind Error
// instead of returning a zero value, matching the original tagged-union
// Local/Unavailable distinction.
type PeerInfo struct {
	PID int32
	UID uint32
	GID uint32
}

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

// Package dispatcherr defines the error taxonomy shared by every layer of
// the dispatch library (the public package and its internal/wire and
// internal/sockaddr helpers), so that none of them need to import the
// public package just to report a classified error.
package dispatcherr

import "fmt"

// Kind classifies the cause of an Error, mirroring the error kinds a caller
// of the original C library would distinguish via errno plus the library's
// own -1/0/>0 return convention.
type Kind int

const (
	// Invalid covers bad arguments: unsupported flag bits, an empty or
	// too-short service string, a service string with the wrong prefix.
	Invalid Kind = iota + 1

	// Range covers an address that does not fit the platform's sockaddr_un.
	Range

	// System wraps an error returned directly by the operating system.
	System

	// Protocol covers a malformed length prefix, a missing ancillary file
	// descriptor, or a frame that ended before it was fully read.
	Protocol

	// EOF marks a clean close observed at a message boundary. In practice
	// this kind is documented for API completeness; the Go surface signals
	// a boundary EOF with the stdlib io.EOF sentinel directly rather than
	// wrapping it in an Error, since callers idiomatically test for that
	// with errors.Is(err, io.EOF).
	EOF
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Range:
		return "range"
	case System:
		return "system"
	case Protocol:
		return "protocol"
	case EOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Error is the concrete error type produced by every layer of the dispatch
// library. Op names the failing operation (e.g. "connect", "read_uint16")
// the way the teacher's connection.go wraps syscall failures with the name
// of the call that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dispatch: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("dispatch: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, dispatcherr.New(dispatcherr.Invalid, "", nil)) or,
// more commonly, compare against one of the package-level Kind constants
// via errors.As and a Kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error with the given kind, failing operation, and
// underlying cause (nil if there is none beyond the kind itself).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

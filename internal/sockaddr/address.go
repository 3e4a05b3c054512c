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

// Package sockaddr builds local-socket addresses and manages the small set
// of file-descriptor flags the dispatch library cares about. It is the Go
// analogue of the original library's lib/conn.c: get_connection's address
// construction and cloexec_fd.
package sockaddr

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
)

// pathCapacity returns the number of bytes available in the platform's
// sockaddr_un.sun_path, discovered from the struct itself rather than a
// hardcoded constant so the same code is correct on every GOOS the unix
// package supports.
func pathCapacity() int {
	return len(unix.RawSockaddrUnix{}.Path)
}

// PopulateLocalAddress validates service and builds the unix.Sockaddr the
// caller should bind or connect to. service must be at least two bytes and
// begin with '/' (a filesystem path) or '@' (an abstract-namespace name).
//
// golang.org/x/sys/unix already rewrites a leading '@' to a NUL byte when
// it marshals a SockaddrUnix, so the abstract-namespace behavior required
// here falls out of using that type rather than hand-rolling the sockaddr
// bytes the way the C original does.
func PopulateLocalAddress(service string) (unix.Sockaddr, error) {
	if len(service) < 2 {
		return nil, dispatcherr.New(dispatcherr.Invalid, "populate_local_address",
			fmt.Errorf("service %q is shorter than 2 bytes", service))
	}

	capacity := pathCapacity()

	switch service[0] {
	case '/':
		// +1 for the NUL terminator the kernel expects after the path.
		if len(service)+1 > capacity {
			return nil, dispatcherr.New(dispatcherr.Range, "populate_local_address",
				fmt.Errorf("service %q does not fit in a %d-byte sun_path", service, capacity))
		}
		return &unix.SockaddrUnix{Name: service}, nil

	case '@':
		// The leading '@' is replaced by the implicit NUL of the abstract
		// namespace, so it costs one byte of path capacity but no
		// trailing NUL is appended.
		if len(service) > capacity {
			return nil, dispatcherr.New(dispatcherr.Range, "populate_local_address",
				fmt.Errorf("service %q does not fit in a %d-byte sun_path", service, capacity))
		}
		return &unix.SockaddrUnix{Name: service}, nil

	default:
		return nil, dispatcherr.New(dispatcherr.Invalid, "populate_local_address",
			fmt.Errorf("service %q begins with neither '/' nor '@'", service))
	}
}

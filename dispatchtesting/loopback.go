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

// Package dispatchtesting provides test-only helpers for exercising the
// dispatch package end to end: a loopback server/client harness over an
// abstract-namespace socket, mirroring the role fusetesting plays for the
// fuse package's sample filesystem tests.
package dispatchtesting

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"golang.org/x/net/nettest"

	"github.com/dmshaw/dispatch"
)

// Harness owns a Listen-created server bound to a unique address and
// exposes Service for clients created with dispatch.Open. Path is the
// backing filesystem path when the harness was built with NewLoopbackPath,
// for a caller that wants to remove it itself instead of waiting on the
// deferred unlink dispatch.Listen already performs on a stale node.
type Harness struct {
	Service string
	Path    string
}

// NewLoopback starts a server with the given handler table bound to a
// freshly generated abstract-namespace address and returns a Harness
// whose Service field names it. The server runs for the lifetime of the
// process; there is no shutdown hook, matching the core package's lack of
// one.
func NewLoopback(handlers []dispatch.HandlerEntry) (*Harness, error) {
	service := randomAbstractAddress()

	if err := dispatch.Listen("", service, dispatch.Local, handlers); err != nil {
		return nil, err
	}

	return &Harness{Service: service}, nil
}

// NewLoopbackPath is NewLoopback's filesystem-path counterpart, for tests
// that want to exercise dispatch's "/"-prefixed address form rather than
// the abstract namespace. The path comes from nettest.LocalPath, which
// picks a collision-free location already known to fit within sun_path on
// every platform the module supports — a plain t.TempDir-based name is not
// guaranteed to, particularly on Darwin's longer default temp prefix.
func NewLoopbackPath(handlers []dispatch.HandlerEntry) (*Harness, error) {
	path, err := nettest.LocalPath()
	if err != nil {
		return nil, fmt.Errorf("dispatchtesting: %w", err)
	}

	if err := dispatch.Listen("", path, dispatch.Local, handlers); err != nil {
		return nil, err
	}

	return &Harness{Service: path, Path: path}, nil
}

// Dial opens a client connection to h's service.
func (h *Harness) Dial() (*dispatch.Connection, error) {
	return dispatch.Open("", h.Service, dispatch.Local)
}

var addrRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func randomAbstractAddress() string {
	return fmt.Sprintf("@dispatchtest-%x", addrRand.Int63())
}

// AssertPeerIsSelf reports whether conn's PeerInfo identifies the current
// process, which is always true for a loopback connection dialed by a
// Harness: the kernel reports the local socket's own credentials for a
// same-machine connect over an unauthenticated transport. On a platform
// without peer-credential support it returns the Invalid-kind error
// PeerInfo itself would produce, so callers can skip the assertion rather
// than fail spuriously.
func AssertPeerIsSelf(conn *dispatch.Connection) error {
	info, err := conn.PeerInfo()
	if err != nil {
		return err
	}

	// PID is -1 on platforms (Darwin) whose peer-credential socket option
	// carries no process id; skip that leg of the assertion there.
	if info.PID >= 0 && info.PID != int32(os.Getpid()) {
		return fmt.Errorf("dispatchtesting: peer pid %d does not match own pid %d", info.PID, os.Getpid())
	}
	if info.UID != uint32(os.Getuid()) {
		return fmt.Errorf("dispatchtesting: peer uid %d does not match own uid %d", info.UID, os.Getuid())
	}
	if info.GID != uint32(os.Getgid()) {
		return fmt.Errorf("dispatchtesting: peer gid %d does not match own gid %d", info.GID, os.Getgid())
	}
	return nil
}

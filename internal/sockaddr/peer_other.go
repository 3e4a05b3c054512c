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

//go:build !linux && !darwin

package sockaddr

import (
	"errors"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
)

// PeerCredentials holds the identity of the process on the other end of a
// local stream socket. Unused on platforms without a peer-credential
// mechanism; retained so callers can type-switch uniformly.
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}

// HavePeerCredentials reports whether this platform can report peer
// credentials for a local socket.
const HavePeerCredentials = false

// GetPeerCredentials always fails Invalid on platforms lacking a peer
// credential mechanism.
func GetPeerCredentials(fd int) (PeerCredentials, error) {
	return PeerCredentials{}, dispatcherr.New(dispatcherr.Invalid, "get_peer_credentials",
		errors.New("peer credentials are not available on this platform"))
}

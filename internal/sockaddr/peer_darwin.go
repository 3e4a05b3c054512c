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

//go:build darwin

package sockaddr

import (
	"golang.org/x/sys/unix"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
)

// PeerCredentials holds the identity of the process on the other end of a
// local stream socket. Darwin has no pid in its LOCAL_PEERCRED response, so
// PID is always -1 here.
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}

// HavePeerCredentials reports whether this platform can report peer
// credentials for a local socket.
const HavePeerCredentials = true

// GetPeerCredentials retrieves the credentials of the process connected to
// fd via LOCAL_PEERCRED/xucred, Darwin's analogue of Linux's SO_PEERCRED.
func GetPeerCredentials(fd int) (PeerCredentials, error) {
	xucred, err := unix.GetsockoptXucred(fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return PeerCredentials{}, dispatcherr.New(dispatcherr.System, "getsockopt_local_peercred", err)
	}
	gid := uint32(0)
	if xucred.Ngroups > 0 {
		gid = xucred.Groups[0]
	}
	return PeerCredentials{
		PID: -1,
		UID: xucred.Uid,
		GID: gid,
	}, nil
}

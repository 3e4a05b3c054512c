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

package sockaddr

import (
	"golang.org/x/sys/unix"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
)

// SetCloseOnExec sets FD_CLOEXEC on fd, preserving any other fd flags
// already set (the original library's cloexec_fd reads the current flag
// word before OR-ing in the bit rather than clobbering it).
func SetCloseOnExec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return dispatcherr.New(dispatcherr.System, "fcntl_getfd", err)
	}
	if flags&unix.FD_CLOEXEC != 0 {
		return nil
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	if err != nil {
		return dispatcherr.New(dispatcherr.System, "fcntl_setfd", err)
	}
	return nil
}

// SetNonblocking sets O_NONBLOCK on fd, preserving any other file-status
// flags already set.
func SetNonblocking(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return dispatcherr.New(dispatcherr.System, "fcntl_getfl", err)
	}
	if flags&unix.O_NONBLOCK != 0 {
		return nil
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK)
	if err != nil {
		return dispatcherr.New(dispatcherr.System, "fcntl_setfl", err)
	}
	return nil
}

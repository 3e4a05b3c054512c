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

package wire_test

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/dmshaw/dispatch/internal/wire"
)

// socketPeer adapts a connected Unix-domain socket fd into a wire.Peer, for
// tests that exercise fd-passing (which needs a real socket; ordinary pipes
// carry no ancillary data).
type socketPeer struct {
	fd int
}

func (p *socketPeer) Read(buf []byte) (int, error)  { return unix.Read(p.fd, buf) }
func (p *socketPeer) Write(buf []byte) (int, error) { return unix.Write(p.fd, buf) }
func (p *socketPeer) Fd() int                       { return p.fd }

func newSocketPair(t *testing.T) (*socketPeer, *socketPeer) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return &socketPeer{fd: fds[0]}, &socketPeer{fd: fds[1]}
}

func TestWriteFDThenReadFDSharesOpenFileDescription(t *testing.T) {
	sender, receiver := newSocketPair(t)

	tmp, err := os.CreateTemp(t.TempDir(), "dispatch-fd-test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer tmp.Close()

	if _, err := tmp.WriteString("hello"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}

	if err := wire.WriteFD(sender, int(tmp.Fd())); err != nil {
		t.Fatalf("WriteFD: %v", err)
	}

	got, err := wire.ReadFD(receiver)
	if err != nil {
		t.Fatalf("ReadFD: %v", err)
	}
	defer unix.Close(got)

	flags, err := unix.FcntlInt(uintptr(got), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("fcntl(F_GETFD): %v", err)
	}
	if flags&unix.FD_CLOEXEC == 0 {
		t.Error("received fd does not have FD_CLOEXEC set")
	}

	// The sender's write of "hello" left the file offset at 5. Seeing that
	// offset through the received fd confirms both refer to the same
	// open-file description (shared offset), not merely the same inode.
	off, err := unix.Seek(got, 0, unix.SEEK_CUR)
	if err != nil {
		t.Fatalf("Seek(SEEK_CUR): %v", err)
	}
	if off != 5 {
		t.Errorf("offset via received fd = %d, want 5", off)
	}

	if _, err := unix.Seek(got, 0, 0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	n, err := unix.Read(got, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("content via received fd = %q, want %q", buf[:n], "hello")
	}
}

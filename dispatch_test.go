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

package dispatch_test

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dmshaw/dispatch"
)

func randomAddress() string {
	return fmt.Sprintf("@dispatch-dispatch-test-%x", rand.Int63())
}

// TestMain pins the process-wide configuration before any test calls
// Listen, since Config is installed once per process and the bounded-
// concurrency test below depends on MaxConcurrency=1 having taken effect.
func TestMain(m *testing.M) {
	if err := dispatch.Init(dispatch.Config{MaxConcurrency: 1, PanicOnFailedAccept: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestOpenRejectsShortService(t *testing.T) {
	for _, s := range []string{"", "x"} {
		_, err := dispatch.Open("", s, dispatch.Local)
		if err == nil {
			t.Fatalf("Open(%q): expected error, got nil", s)
		}
		var derr *dispatch.Error
		if !errors.As(err, &derr) || derr.Kind != dispatch.Invalid {
			t.Errorf("Open(%q): err = %v, want Invalid kind", s, err)
		}
	}
}

func TestOpenRejectsWrongPrefix(t *testing.T) {
	_, err := dispatch.Open("", "relative/path", dispatch.Local)
	var derr *dispatch.Error
	if !errors.As(err, &derr) || derr.Kind != dispatch.Invalid {
		t.Fatalf("Open: err = %v, want Invalid kind", err)
	}
}

func TestOpenRejectsUnrecognizedFlags(t *testing.T) {
	_, err := dispatch.Open("", "@whatever", dispatch.Flags(1<<30))
	var derr *dispatch.Error
	if !errors.As(err, &derr) || derr.Kind != dispatch.Invalid {
		t.Fatalf("Open: err = %v, want Invalid kind", err)
	}
}

func TestPingReplyWithoutExplicitHandler(t *testing.T) {
	service := randomAddress()
	if err := dispatch.Listen("", service, dispatch.Local, nil); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	conn, err := dispatch.Open("", service, dispatch.Local)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteType(dispatch.TypePing); err != nil {
		t.Fatalf("WriteType: %v", err)
	}

	reply, err := conn.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8: %v", err)
	}
	if reply != 0 {
		t.Errorf("PING reply = %d, want 0", reply)
	}
}

func TestBoundedConcurrencySerializesHandlers(t *testing.T) {
	var mu sync.Mutex
	var order []int
	release := make(chan struct{})

	handler := func(conn *dispatch.Connection, msgType uint16) error {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		<-release
		conn.WriteUint8(0)
		return nil
	}

	service := randomAddress()
	table := []dispatch.HandlerEntry{{Type: 1, Handler: handler}}
	if err := dispatch.Listen("", service, dispatch.Local, table); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	dialAndSend := func() *dispatch.Connection {
		conn, err := dispatch.Open("", service, dispatch.Local)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := conn.WriteType(1); err != nil {
			t.Fatalf("WriteType: %v", err)
		}
		return conn
	}

	c1 := dialAndSend()
	defer c1.Close()

	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c2 := dialAndSend()
		defer c2.Close()
		c2.ReadUint8()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second client's handler completed before the first was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
}

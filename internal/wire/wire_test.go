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
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/dmshaw/dispatch/internal/dispatcherr"
	"github.com/dmshaw/dispatch/internal/wire"
)

// fakePeer adapts a bytes.Buffer into a wire.Peer for tests that never
// touch fd-passing primitives.
type fakePeer struct {
	bytes.Buffer
}

func (f *fakePeer) Fd() int { return -1 }

func TestUint8RoundTrip(t *testing.T) {
	for _, v := range []uint8{0, 1, 127, 255} {
		p := &fakePeer{}
		if err := wire.WriteUint8(p, v); err != nil {
			t.Fatalf("WriteUint8(%d): %v", v, err)
		}
		got, err := wire.ReadUint8(p)
		if err != nil {
			t.Fatalf("ReadUint8 after WriteUint8(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("ReadUint8() = %d, want %d", got, v)
		}
	}
}

func TestUint16RoundTripBigEndian(t *testing.T) {
	p := &fakePeer{}
	if err := wire.WriteUint16(p, 0x0102); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Bytes(), []byte{0x01, 0x02}; !bytes.Equal(got, want) {
		t.Errorf("wire bytes = %x, want %x", got, want)
	}

	got, err := wire.ReadUint16(p)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x0102 {
		t.Errorf("ReadUint16() = %#x, want %#x", got, 0x0102)
	}
}

func TestUint32AndInt32RoundTrip(t *testing.T) {
	p := &fakePeer{}
	wire.WriteUint32(p, 0xDEADBEEF)
	v, err := wire.ReadUint32(p)
	if err != nil || v != 0xDEADBEEF {
		t.Fatalf("ReadUint32() = (%#x, %v), want (0xDEADBEEF, nil)", v, err)
	}

	p2 := &fakePeer{}
	wire.WriteInt32(p2, -1)
	iv, err := wire.ReadInt32(p2)
	if err != nil || iv != -1 {
		t.Fatalf("ReadInt32() = (%d, %v), want (-1, nil)", iv, err)
	}
}

func TestUint64AndInt64RoundTrip(t *testing.T) {
	p := &fakePeer{}
	wire.WriteUint64(p, 0x0123456789ABCDEF)
	v, err := wire.ReadUint64(p)
	if err != nil || v != 0x0123456789ABCDEF {
		t.Fatalf("ReadUint64() = (%#x, %v)", v, err)
	}

	p2 := &fakePeer{}
	wire.WriteInt64(p2, -42)
	iv, err := wire.ReadInt64(p2)
	if err != nil || iv != -42 {
		t.Fatalf("ReadInt64() = (%d, %v)", iv, err)
	}
}

func TestLengthPrefixBoundaries(t *testing.T) {
	cases := []struct {
		length uint32
		want   []byte
	}{
		{191, []byte{0xBF}},
		{192, []byte{0xC0, 0x00}},
		{8383, []byte{0xDF, 0xFF}},
		{8384, []byte{0xFF, 0x00, 0x00, 0x20, 0xC0}},
	}

	for _, c := range cases {
		p := &fakePeer{}
		if err := wire.WriteLength(p, c.length, 0, false); err != nil {
			t.Fatalf("WriteLength(%d): %v", c.length, err)
		}
		if diff := pretty.Compare(p.Bytes(), c.want); diff != "" {
			t.Errorf("WriteLength(%d) bytes mismatch (-got +want):\n%s", c.length, diff)
		}

		length, _, ok, err := wire.ReadLength(p)
		if err != nil || !ok || length != c.length {
			t.Errorf("ReadLength() = (%d, ok=%v, %v), want (%d, true, nil)", length, ok, err, c.length)
		}
	}
}

func TestLengthPrefixSpecialMarker(t *testing.T) {
	p := &fakePeer{}
	if err := wire.WriteLength(p, 0, 5, true); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Bytes(), []byte{0xE5}; !bytes.Equal(got, want) {
		t.Errorf("special marker bytes = %x, want %x", got, want)
	}

	_, special, ok, err := wire.ReadLength(p)
	if err != nil || ok || special != 5 {
		t.Errorf("ReadLength() = (special=%d, ok=%v, %v), want (5, false, nil)", special, ok, err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "a long string that exceeds 191 bytes ............................................................................................................................................................................"} {
		p := &fakePeer{}
		if err := wire.WriteString(p, s, false); err != nil {
			t.Fatalf("WriteString(%q): %v", s, err)
		}
		got, absent, err := wire.ReadString(p)
		if err != nil || absent || got != s {
			t.Errorf("ReadString() after WriteString(%q) = (%q, absent=%v, %v)", s, got, absent, err)
		}
	}
}

func TestAbsentStringRoundTrip(t *testing.T) {
	p := &fakePeer{}
	if err := wire.WriteString(p, "ignored", true); err != nil {
		t.Fatal(err)
	}
	got, absent, err := wire.ReadString(p)
	if err != nil || !absent || got != "" {
		t.Errorf("ReadString() = (%q, absent=%v, %v), want (\"\", true, nil)", got, absent, err)
	}
}

func TestBufferRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox")

	p := &fakePeer{}
	if err := wire.WriteBufferLength(p, uint32(len(payload))); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteBuffer(p, payload); err != nil {
		t.Fatal(err)
	}

	length, err := wire.ReadBufferLength(p)
	if err != nil || length != uint32(len(payload)) {
		t.Fatalf("ReadBufferLength() = (%d, %v), want (%d, nil)", length, err, len(payload))
	}

	got := make([]byte, length)
	if err := wire.ReadBuffer(p, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("ReadBuffer() = %q, want %q", got, payload)
	}
}

func TestZeroLengthBufferTransmitsOnlyLength(t *testing.T) {
	p := &fakePeer{}
	if err := wire.WriteBufferLength(p, 0); err != nil {
		t.Fatal(err)
	}
	if got, want := p.Bytes(), []byte{0x00}; !bytes.Equal(got, want) {
		t.Errorf("zero-length buffer prefix = %x, want %x", got, want)
	}
}

func TestReadUint16ShortReadIsProtocolError(t *testing.T) {
	p := &fakePeer{}
	p.WriteByte(0x01) // one byte instead of the required two

	_, err := wire.ReadUint16(p)
	if err == nil {
		t.Fatal("expected an error for a short read, got nil")
	}

	var derr *dispatcherr.Error
	if !errors.As(err, &derr) {
		t.Fatalf("error is not *dispatcherr.Error: %v", err)
	}
	if derr.Kind != dispatcherr.Protocol {
		t.Errorf("Kind = %v, want Protocol", derr.Kind)
	}
	if !errors.Is(derr.Err, io.ErrUnexpectedEOF) {
		t.Errorf("underlying error = %v, want io.ErrUnexpectedEOF", derr.Err)
	}
}

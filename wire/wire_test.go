// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/cryptobyte"
)

func TestCompact(t *testing.T) {
	tests := []struct {
		Name  string
		Value uint32
		Want  []byte
	}{
		{
			Name:  "zero",
			Value: 0,
			Want:  []byte{0x00},
		},
		{
			Name:  "one byte max",
			Value: 0x7f,
			Want:  []byte{0x7f},
		},
		{
			Name:  "two bytes min",
			Value: 0x80,
			Want:  []byte{0x80, 0x01},
		},
		{
			Name:  "two bytes",
			Value: 300,
			Want:  []byte{0xac, 0x02},
		},
		{
			Name:  "three bytes",
			Value: 0x4000,
			Want:  []byte{0x80, 0x80, 0x01},
		},
		{
			Name:  "max",
			Value: 0xffff_ffff,
			Want:  []byte{0xff, 0xff, 0xff, 0xff, 0x0f},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			b := cryptobyte.NewBuilder(nil)
			AddCompact(b, test.Value)
			got := b.BytesOrPanic()
			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("AddCompact(%d): (-want, +got)\n%s", test.Value, diff)
			}

			if n := CompactLength(test.Value); n != len(test.Want) {
				t.Fatalf("CompactLength(%d): got %d, want %d", test.Value, n, len(test.Want))
			}

			s := cryptobyte.String(got)
			v, err := ReadCompact(&s)
			if err != nil {
				t.Fatalf("ReadCompact(): %v", err)
			}

			if v != test.Value {
				t.Fatalf("ReadCompact(): got %d, want %d", v, test.Value)
			}

			if !s.Empty() {
				t.Fatalf("ReadCompact(): %d trailing bytes", len(s))
			}
		})
	}
}

func TestReadCompactErrors(t *testing.T) {
	tests := []struct {
		Name string
		Data []byte
		Want error
	}{
		{
			Name: "empty",
			Data: nil,
			Want: io.ErrUnexpectedEOF,
		},
		{
			Name: "truncated",
			Data: []byte{0x80},
			Want: io.ErrUnexpectedEOF,
		},
		{
			Name: "overlong",
			Data: []byte{0x81, 0x00},
			Want: ErrCompact,
		},
		{
			Name: "overflow",
			Data: []byte{0xff, 0xff, 0xff, 0xff, 0x1f},
			Want: ErrCompact,
		},
		{
			Name: "too long",
			Data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			Want: ErrCompact,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			s := cryptobyte.String(test.Data)
			_, err := ReadCompact(&s)
			if !errors.Is(err, test.Want) {
				t.Fatalf("ReadCompact(%x): got error %v, want %v", test.Data, err, test.Want)
			}
		})
	}
}

func TestByte(t *testing.T) {
	b := cryptobyte.NewBuilder(nil)
	if err := AddByte(b, 255, 255); err != nil {
		t.Fatalf("AddByte(255): %v", err)
	}

	if err := AddByte(b, 256, 1000); !errors.Is(err, ErrRange) {
		t.Fatalf("AddByte(256): got error %v, want %v", err, ErrRange)
	}

	if err := AddByte(b, 4, 3); !errors.Is(err, ErrRange) {
		t.Fatalf("AddByte(4, max 3): got error %v, want %v", err, ErrRange)
	}

	if err := AddByte(b, 3, 3); err != nil {
		t.Fatalf("AddByte(3, max 3): %v", err)
	}

	got := b.BytesOrPanic()
	if diff := cmp.Diff([]byte{0xff, 0x03}, got); diff != "" {
		t.Fatalf("AddByte(): (-want, +got)\n%s", diff)
	}

	s := cryptobyte.String(got)
	if _, err := ReadByte(&s, 3); !errors.Is(err, ErrRange) {
		t.Fatalf("ReadByte(0xff, max 3): got error %v, want %v", err, ErrRange)
	}

	v, err := ReadByte(&s, 3)
	if err != nil || v != 3 {
		t.Fatalf("ReadByte(): got %d, %v, want 3", v, err)
	}

	if _, err := ReadByte(&s, 3); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadByte(empty): got error %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestCharAndBool(t *testing.T) {
	b := cryptobyte.NewBuilder(nil)
	AddChar(b, 0)
	AddChar(b, 'q')
	AddBool(b, true)
	AddBool(b, false)
	data := b.BytesOrPanic()
	if diff := cmp.Diff([]byte{0, 'q', 1, 0}, data); diff != "" {
		t.Fatalf("encoding: (-want, +got)\n%s", diff)
	}

	s := cryptobyte.String(data)
	c, err := ReadChar(&s)
	if err != nil || c != 0 {
		t.Fatalf("ReadChar(): got %q, %v, want NUL", c, err)
	}

	c, err = ReadChar(&s)
	if err != nil || c != 'q' {
		t.Fatalf("ReadChar(): got %q, %v, want 'q'", c, err)
	}

	v, err := ReadBool(&s)
	if err != nil || !v {
		t.Fatalf("ReadBool(): got %v, %v, want true", v, err)
	}

	v, err = ReadBool(&s)
	if err != nil || v {
		t.Fatalf("ReadBool(): got %v, %v, want false", v, err)
	}

	s = cryptobyte.String([]byte{2})
	if _, err := ReadBool(&s); !errors.Is(err, ErrBool) {
		t.Fatalf("ReadBool(2): got error %v, want %v", err, ErrBool)
	}
}

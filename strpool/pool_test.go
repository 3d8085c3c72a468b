// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package strpool

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIntern(t *testing.T) {
	p := New()

	jo, prefixed := p.Intern("jo", false)
	if jo != 0 || prefixed {
		t.Fatalf("Intern(jo): got %d, %v, want 0, false", jo, prefixed)
	}

	again, prefixed := p.Intern("jo", false)
	if again != jo || prefixed {
		t.Fatalf("Intern(jo) again: got %d, %v, want %d, false", again, prefixed, jo)
	}

	vfoo, prefixed := p.Intern("vfoo", true)
	if vfoo != 1 || !prefixed {
		t.Fatalf("Intern(vfoo, strip): got %d, %v, want 1, true", vfoo, prefixed)
	}

	foo, prefixed := p.Intern("foo", false)
	if foo != vfoo || prefixed {
		t.Fatalf("Intern(foo): got %d, %v, want %d, false", foo, prefixed, vfoo)
	}

	foo, prefixed = p.Intern("foo", true)
	if foo != vfoo || prefixed {
		t.Fatalf("Intern(foo, strip): got %d, %v, want %d, false", foo, prefixed, vfoo)
	}

	// Without stripping, the prefixed form
	// is a distinct string.
	plain, prefixed := p.Intern("vfoo", false)
	if plain != 2 || prefixed {
		t.Fatalf("Intern(vfoo): got %d, %v, want 2, false", plain, prefixed)
	}

	// The prefix alone is never stripped.
	v, prefixed := p.Intern("v", true)
	if v != 3 || prefixed {
		t.Fatalf("Intern(v, strip): got %d, %v, want 3, false", v, prefixed)
	}

	want := []string{"jo", "foo", "vfoo", "v"}
	if diff := cmp.Diff(want, p.Strings()); diff != "" {
		t.Fatalf("Strings(): (-want, +got)\n%s", diff)
	}
}

func TestFreeze(t *testing.T) {
	p := New()
	p.Intern("add", false)
	p.Freeze()

	if !p.Frozen() {
		t.Fatal("Frozen(): got false after Freeze()")
	}

	// Existing strings are still found.
	if i, _ := p.Intern("vadd", true); i != 0 {
		t.Fatalf("Intern(vadd, strip) after freeze: got %d, want 0", i)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Intern(sub) after freeze: did not panic")
		}

		if msg, ok := r.(string); !ok || !strings.Contains(msg, "frozen") {
			t.Fatalf("Intern(sub) after freeze: got panic %v", r)
		}
	}()

	p.Intern("sub", false)
}

func TestLookup(t *testing.T) {
	p := New()
	p.Intern("mov", false)

	got, err := p.Lookup(0)
	if err != nil || got != "mov" {
		t.Fatalf("Lookup(0): got %q, %v, want \"mov\"", got, err)
	}

	_, err = p.Lookup(1)
	if !errors.Is(err, ErrIndex) {
		t.Fatalf("Lookup(1): got error %v, want %v", err, ErrIndex)
	}
}

func TestEncodeDecode(t *testing.T) {
	p := New()
	for _, s := range []string{"", "add", "vaddps", strings.Repeat("x", 200)} {
		p.Intern(s, true)
	}

	data := p.Encode()
	want := []byte{
		4,                // Count.
		0,                // Length 0 ("").
		3, 'a', 'd', 'd', // "add".
		5, 'a', 'd', 'd', 'p', 's', // "addps".
		0xc8, 0x01, // Length 200.
	}

	if diff := cmp.Diff(want, data[:len(want)]); diff != "" {
		t.Fatalf("Encode(): (-want, +got)\n%s", diff)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(): %v", err)
	}

	if !got.Frozen() {
		t.Fatal("Decode(): pool is not frozen")
	}

	if diff := cmp.Diff(p.Strings(), got.Strings()); diff != "" {
		t.Fatalf("Decode(): (-want, +got)\n%s", diff)
	}

	if text, err := got.Lookup(2); err != nil || text != "addps" {
		t.Fatalf("Lookup(2): got %q, %v, want addps", text, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		Name string
		Data []byte
		Want string
	}{
		{
			Name: "empty",
			Data: nil,
			Want: "failed to read string count",
		},
		{
			Name: "truncated string",
			Data: []byte{1, 3, 'a', 'd'},
			Want: "failed to read string 0",
		},
		{
			Name: "count too large",
			Data: []byte{9, 0},
			Want: "9 strings in 1 bytes",
		},
		{
			Name: "duplicate",
			Data: []byte{2, 1, 'a', 1, 'a'},
			Want: "duplicates string 0",
		},
		{
			Name: "trailing data",
			Data: []byte{1, 1, 'a', 0},
			Want: "1 trailing bytes",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := Decode(test.Data)
			if err == nil {
				t.Fatalf("Decode(%x): unexpected success", test.Data)
			}

			if !strings.Contains(err.Error(), test.Want) {
				t.Fatalf("Decode(%x): got error %q, want %q", test.Data, err, test.Want)
			}
		})
	}
}

// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package fmttab

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"firefly-os.dev/x86fmt/strpool"
)

var roundTrip = tuples(
	Tuple{Tag: tagPlain, Args: []Arg{Str("vaddps")}},
	Tuple{Tag: tagPlain, Args: []Arg{Str("addps")}},
	Tuple{Tag: tagPlain, Args: []Arg{Str("vaddps")}},
	Tuple{Tag: tagSuffix, Args: []Arg{Str("mov"), Char('l')}},
	Tuple{Tag: tagSuffix, Args: []Arg{Str("mov"), Char(0)}},
	Tuple{Tag: tagSized, Args: []Arg{Str("push"), Uint(3)}},
	Tuple{Tag: tagStack, Args: []Arg{Str("fadd"), Str("%st(1)"), Bool(true)}},
	Tuple{Tag: tagStack, Args: []Arg{Str("fadd"), Str("%st(1)"), Bool(true)}},
	Tuple{Tag: tagStack, Args: []Arg{Str("fadd"), Str("%st(1)"), Bool(true)}},
	Tuple{Tag: tagDirective, Args: []Arg{Str(".byte"), Uint(1)}},
	Tuple{Tag: tagFlagged, Args: []Arg{Str("jmp"), Uint(1 | 1<<19)}},
	Tuple{Tag: tagBig, Args: []Arg{Str("xlat"), Uint(1<<32 - 1)}},
	Tuple{Tag: tagPlain, Args: []Arg{Str("v")}},
)

func TestLoad(t *testing.T) {
	table, pool, err := CompileTable(testCatalog.Schema(), roundTrip)
	if err != nil {
		t.Fatalf("CompileTable(): %v", err)
	}

	got, err := Load(testCatalog, table.Data, pool, len(roundTrip))
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	want := []recipe{
		{Code: 0, Kind: "plain", Mnemonic: "vaddps"},
		{Code: 1, Kind: "plain", Mnemonic: "addps"},
		{Code: 2, Kind: "plain", Mnemonic: "vaddps"},
		{Code: 3, Kind: "suffix", Mnemonic: "mov", Char: 'l'},
		{Code: 4, Kind: "suffix", Mnemonic: "mov"},
		{Code: 5, Kind: "sized", Mnemonic: "push", Num: 3},
		{Code: 6, Kind: "stack", Mnemonic: "fadd", Other: "%st(1)", Bool: true},
		{Code: 7, Kind: "stack", Mnemonic: "fadd", Other: "%st(1)", Bool: true},
		{Code: 8, Kind: "stack", Mnemonic: "fadd", Other: "%st(1)", Bool: true},
		{Code: 9, Kind: "directive", Other: ".byte", Num: 1},
		{Code: 10, Kind: "flagged", Mnemonic: "jmp", Num: 1 | 1<<19},
		{Code: 11, Kind: "big", Mnemonic: "xlat", Num: 1<<32 - 1},
		{Code: 12, Kind: "plain", Mnemonic: "v"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Load(): (-want, +got)\n%s", diff)
	}

	// The pool must survive serialisation too.
	decoded, err := strpool.Decode(pool.Encode())
	if err != nil {
		t.Fatalf("strpool.Decode(): %v", err)
	}

	back, err := Decode(testCatalog.Schema(), table.Data, decoded, len(roundTrip))
	if err != nil {
		t.Fatalf("Decode(): %v", err)
	}

	if diff := cmp.Diff(roundTrip, back); diff != "" {
		t.Fatalf("Decode(): (-want, +got)\n%s", diff)
	}
}

func TestLoadBackReference(t *testing.T) {
	pool := strpool.New()
	pool.Intern("jo", false)
	pool.Intern("jno", false)
	pool.Freeze()

	// Both back-references refer to the first
	// record, and the second carries its own
	// prefix flag.
	data := []byte{
		tagPlain, 0,
		Previous,
		PrefixFlag | Previous,
		tagPlain, 1,
		Previous,
	}

	got, err := Load(testCatalog, data, pool, 5)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	var mnemonics []string
	for _, r := range got {
		mnemonics = append(mnemonics, r.Mnemonic)
	}

	want := []string{"jo", "jo", "vjo", "jno", "jno"}
	if diff := cmp.Diff(want, mnemonics); diff != "" {
		t.Fatalf("Load(): (-want, +got)\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	pool := strpool.New()
	pool.Intern("nop", false)
	pool.Intern("jmp", false)
	pool.Freeze()

	tests := []struct {
		Name string
		Data []byte
		N    int
		Kind error
		Want string
	}{
		{
			Name: "trailing bytes",
			Data: []byte{tagPlain, 0, Previous, tagPlain, 1},
			N:    2,
			Kind: ErrFraming,
			Want: "2 trailing bytes after 2 opcodes",
		},
		{
			Name: "too few records",
			Data: []byte{tagPlain, 0, Previous},
			N:    3,
			Kind: ErrFraming,
			Want: "table ended after 2 of 3 opcodes",
		},
		{
			Name: "truncated field",
			Data: []byte{tagSuffix, 0},
			N:    1,
			Kind: ErrFraming,
			Want: "field char",
		},
		{
			Name: "truncated compact",
			Data: []byte{tagBig, 0, 0x80},
			N:    1,
			Kind: ErrFraming,
			Want: "field count",
		},
		{
			Name: "negative count",
			Data: nil,
			N:    -1,
			Kind: ErrFraming,
			Want: "invalid opcode count -1",
		},
		{
			Name: "impossible count",
			Data: []byte{tagPlain, 0},
			N:    0x7fffffff,
			Kind: ErrFraming,
			Want: "table of 2 bytes cannot hold 2147483647 opcodes",
		},
		{
			Name: "huge count",
			Data: nil,
			N:    1 << 30,
			Kind: ErrFraming,
			Want: "table of 0 bytes cannot hold 1073741824 opcodes",
		},
		{
			Name: "leading back-reference",
			Data: []byte{Previous, tagPlain, 0},
			N:    2,
			Kind: ErrSchema,
			Want: "opcode 0 at offset 0: back-reference with no preceding record",
		},
		{
			Name: "unknown tag",
			Data: []byte{tagPlain, 0, 0x55},
			N:    2,
			Kind: ErrSchema,
			Want: "opcode 1 at offset 2: unrecognised variant tag 85",
		},
		{
			Name: "invalid bool",
			Data: []byte{tagStack, 0, 1, 2},
			N:    1,
			Kind: ErrSchema,
			Want: "field pop",
		},
		{
			Name: "enum out of range",
			Data: []byte{tagSized, 0, 4},
			N:    1,
			Kind: ErrSchema,
			Want: "field size",
		},
		{
			Name: "reserved flag bit",
			Data: []byte{tagFlagged, 1, 0x80, 0x80, 0x40},
			N:    1,
			Kind: ErrSchema,
			Want: "undefined flags bits 0x100000",
		},
		{
			Name: "overlong compact",
			Data: []byte{tagBig, 0, 0x81, 0x00},
			N:    1,
			Kind: ErrSchema,
			Want: "malformed compact integer",
		},
		{
			Name: "unexpected prefix flag",
			Data: []byte{PrefixFlag | tagDirective, 0, 1},
			N:    1,
			Kind: ErrSchema,
			Want: "variant directive has no prefixable field",
		},
		{
			Name: "pool index out of range",
			Data: []byte{tagPlain, 2},
			N:    1,
			Kind: ErrPoolState,
			Want: "index 2 in a pool of 2 strings",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got, err := Load(testCatalog, test.Data, pool, test.N)
			if err == nil {
				t.Fatalf("Load(): unexpected success")
			}

			if got != nil {
				t.Fatalf("Load(): returned a partial table of %d recipes", len(got))
			}

			if !errors.Is(err, test.Kind) {
				t.Fatalf("Load(): got error %v, want %v", err, test.Kind)
			}

			if !strings.Contains(err.Error(), test.Want) {
				t.Fatalf("Load(): got error %q, want %q", err.Error(), test.Want)
			}
		})
	}
}

func TestLoadUnfrozenPool(t *testing.T) {
	pool := strpool.New()
	pool.Intern("nop", false)

	for _, p := range []*strpool.Pool{nil, pool} {
		_, err := Load(testCatalog, []byte{tagPlain, 0}, p, 1)
		if !errors.Is(err, ErrPoolState) {
			t.Fatalf("Load(): got error %v, want %v", err, ErrPoolState)
		}
	}
}

func TestLoadFraming(t *testing.T) {
	// A table compiled for N opcodes fails to
	// load for any M other than N.
	table, pool, err := CompileTable(testCatalog.Schema(), roundTrip)
	if err != nil {
		t.Fatalf("CompileTable(): %v", err)
	}

	n := len(roundTrip)
	for _, m := range []int{0, 1, n - 1, n + 1, 2 * n} {
		_, err := Load(testCatalog, table.Data, pool, m)
		if !errors.Is(err, ErrFraming) {
			t.Errorf("Load(%d of %d): got error %v, want %v", m, n, err, ErrFraming)
		}
	}
}

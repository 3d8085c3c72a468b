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
	"firefly-os.dev/x86fmt/wire"
)

// The variants of the test catalog.
const (
	tagPlain uint8 = 1 + iota
	tagSuffix
	tagSized
	tagStack
	tagDirective
	tagFlagged
	tagBig
)

var testSize = &Enum{
	Name: "size",
	Values: []EnumValue{
		{Name: "unknown"},
		{Name: "16"},
		{Name: "32"},
		{Name: "64"},
	},
}

var testFlags = &Flags{
	Name: "flags",
	Values: []FlagValue{
		{Name: "far", Bit: 1 << 0},
		{Name: "bnd", Bit: 1 << 1},
		{Name: "wide", Bit: 1 << 19},
	},
}

// recipe is the test catalog's recipe type.
type recipe struct {
	Code     int
	Kind     string
	Mnemonic string
	Other    string
	Char     byte
	Bool     bool
	Num      uint32
}

func build(kind string) func(v *Values) recipe {
	return func(v *Values) recipe {
		r := recipe{Code: v.Opcode(), Kind: kind}
		for i, f := range v.variant.Fields {
			switch {
			case f.Prefix:
				r.Mnemonic = v.Str(i)
			case f.Name == "other":
				r.Other = v.Str(i)
			case f.Name == "char":
				r.Char = v.Char(i)
			case f.Name == "pop":
				r.Bool = v.Bool(i)
			default:
				r.Num = v.Uint(i)
			}
		}

		return r
	}
}

var testCatalog = NewCatalog("test",
	Variant[recipe]{
		Tag:    tagPlain,
		Name:   "plain",
		Fields: []FieldSpec{MnemonicField("mnemonic")},
		Build:  build("plain"),
	},
	Variant[recipe]{
		Tag:    tagSuffix,
		Name:   "suffix",
		Fields: []FieldSpec{MnemonicField("mnemonic"), CharField("char")},
		Build:  build("suffix"),
	},
	Variant[recipe]{
		Tag:    tagSized,
		Name:   "sized",
		Fields: []FieldSpec{MnemonicField("mnemonic"), EnumField("size", testSize)},
		Build:  build("sized"),
	},
	Variant[recipe]{
		Tag:    tagStack,
		Name:   "stack",
		Fields: []FieldSpec{MnemonicField("mnemonic"), StringField("other"), BoolField("pop")},
		Build:  build("stack"),
	},
	Variant[recipe]{
		Tag:    tagDirective,
		Name:   "directive",
		Fields: []FieldSpec{StringField("other"), ByteField("unit", 0)},
		Build:  build("directive"),
	},
	Variant[recipe]{
		Tag:    tagFlagged,
		Name:   "flagged",
		Fields: []FieldSpec{MnemonicField("mnemonic"), FlagsField("flags", testFlags)},
		Build:  build("flagged"),
	},
	Variant[recipe]{
		Tag:    tagBig,
		Name:   "big",
		Fields: []FieldSpec{MnemonicField("mnemonic"), UintField("count", 0)},
		Build:  build("big"),
	},
)

func TestNewCatalogPanics(t *testing.T) {
	noop := func(v *Values) int { return 0 }
	tests := []struct {
		Name     string
		Variants []Variant[int]
		Want     string
	}{
		{
			Name:     "previous tag",
			Variants: []Variant[int]{{Tag: Previous, Name: "a", Build: noop}},
			Want:     "invalid tag",
		},
		{
			Name:     "tag too large",
			Variants: []Variant[int]{{Tag: 0x80, Name: "a", Build: noop}},
			Want:     "invalid tag",
		},
		{
			Name: "duplicate tag",
			Variants: []Variant[int]{
				{Tag: 1, Name: "a", Build: noop},
				{Tag: 1, Name: "b", Build: noop},
			},
			Want: "share tag",
		},
		{
			Name: "duplicate name",
			Variants: []Variant[int]{
				{Tag: 1, Name: "a", Build: noop},
				{Tag: 2, Name: "a", Build: noop},
			},
			Want: "duplicate name",
		},
		{
			Name:     "no constructor",
			Variants: []Variant[int]{{Tag: 1, Name: "a"}},
			Want:     "no constructor",
		},
		{
			Name: "two prefix fields",
			Variants: []Variant[int]{{
				Tag:    1,
				Name:   "a",
				Fields: []FieldSpec{MnemonicField("x"), MnemonicField("y")},
				Build:  noop,
			}},
			Want: "more than one prefixable field",
		},
		{
			Name: "prefixed byte",
			Variants: []Variant[int]{{
				Tag:    1,
				Name:   "a",
				Fields: []FieldSpec{{Name: "x", Kind: wire.KindByte, Prefix: true}},
				Build:  noop,
			}},
			Want: "not a string",
		},
		{
			Name: "verbatim byte",
			Variants: []Variant[int]{{
				Tag:    1,
				Name:   "a",
				Fields: []FieldSpec{{Name: "x", Kind: wire.KindByte, Verbatim: true}},
				Build:  noop,
			}},
			Want: "verbatim but not a plain string",
		},
		{
			Name: "invalid kind",
			Variants: []Variant[int]{{
				Tag:    1,
				Name:   "a",
				Fields: []FieldSpec{{Name: "x"}},
				Build:  noop,
			}},
			Want: "invalid kind",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("NewCatalog(): did not panic")
				}

				msg, ok := r.(string)
				if !ok || !strings.Contains(msg, test.Want) {
					t.Fatalf("NewCatalog(): got panic %v, want %q", r, test.Want)
				}
			}()

			NewCatalog("bad", test.Variants...)
		})
	}
}

func TestSchema(t *testing.T) {
	schema := testCatalog.Schema()
	if got := schema.Syntax(); got != "test" {
		t.Fatalf("Syntax(): got %q, want %q", got, "test")
	}

	if _, ok := schema.Variant(Previous); ok {
		t.Fatalf("Variant(Previous): unexpectedly found a variant")
	}

	if _, ok := schema.Variant(0x81); ok {
		t.Fatalf("Variant(0x81): unexpectedly found a variant")
	}

	v, ok := schema.Lookup("stack")
	if !ok {
		t.Fatalf("Lookup(stack): not found")
	}

	if v.Tag != tagStack || v.PrefixField() != 0 {
		t.Fatalf("Lookup(stack): got tag %d prefix field %d, want %d and 0", v.Tag, v.PrefixField(), tagStack)
	}

	v, _ = schema.Variant(tagDirective)
	if v.PrefixField() != -1 {
		t.Fatalf("directive: got prefix field %d, want -1", v.PrefixField())
	}

	var names []string
	for _, v := range schema.Variants() {
		names = append(names, v.Name)
	}

	want := []string{"plain", "suffix", "sized", "stack", "directive", "flagged", "big"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("Variants(): (-want, +got)\n%s", diff)
	}
}

func TestEnum(t *testing.T) {
	if got := testSize.Format(2); got != "32" {
		t.Fatalf("Format(2): got %q, want %q", got, "32")
	}

	if got := testSize.Format(9); got != "size(9)" {
		t.Fatalf("Format(9): got %q, want %q", got, "size(9)")
	}

	for _, s := range []string{"64", "3"} {
		v, err := testSize.Parse(s)
		if err != nil || v != 3 {
			t.Fatalf("Parse(%q): got %d, %v, want 3", s, v, err)
		}
	}

	if _, err := testSize.Parse("128"); err == nil {
		t.Fatalf("Parse(128): unexpected success")
	}
}

func TestFlags(t *testing.T) {
	tests := []struct {
		Value uint32
		Text  string
	}{
		{0, "0"},
		{1, "far"},
		{3, "far|bnd"},
		{1<<19 | 2, "bnd|wide"},
	}

	for _, test := range tests {
		if got := testFlags.Format(test.Value); got != test.Text {
			t.Errorf("Format(%#x): got %q, want %q", test.Value, got, test.Text)
		}

		got, err := testFlags.Parse(test.Text)
		if err != nil {
			t.Errorf("Parse(%q): %v", test.Text, err)
		} else if got != test.Value {
			t.Errorf("Parse(%q): got %#x, want %#x", test.Text, got, test.Value)
		}
	}

	if got := testFlags.Format(1<<20 | 1); got != "far|0x100000" {
		t.Errorf("Format(reserved): got %q", got)
	}

	if got := testFlags.Undefined(1<<20 | 1); got != 1<<20 {
		t.Errorf("Undefined(): got %#x, want %#x", got, 1<<20)
	}

	if _, err := testFlags.Parse("far|near"); err == nil {
		t.Errorf("Parse(far|near): unexpected success")
	}
}

func TestError(t *testing.T) {
	err := errorf("gas", ErrFraming, 3, 17, "table ended early")
	want := "gas: framing violation: opcode 3 at offset 17: table ended early"
	if got := err.Error(); got != want {
		t.Fatalf("Error(): got %q, want %q", got, want)
	}

	if !errors.Is(err, ErrFraming) || errors.Is(err, ErrSchema) {
		t.Fatalf("errors.Is(): wrong classification for %v", err)
	}

	wrapped := &Error{Syntax: "nasm", Kind: ErrPoolState, Opcode: -1, Offset: -1, Err: strpool.ErrIndex}
	if !errors.Is(wrapped, strpool.ErrIndex) || !errors.Is(wrapped, ErrPoolState) {
		t.Fatalf("errors.Is(): wrapped error lost its cause: %v", wrapped)
	}

	want = "nasm: pool-state violation: " + strpool.ErrIndex.Error()
	if got := wrapped.Error(); got != want {
		t.Fatalf("Error(): got %q, want %q", got, want)
	}
}

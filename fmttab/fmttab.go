// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package fmttab compiles and loads formatter recipe tables.
//
// A formatter table holds one record for each opcode index,
// in ascending order, describing how that opcode is rendered
// in one assembly syntax. The shape of each record is chosen
// by its variant tag, from a closed per-syntax Catalog that
// both the compiler and the loader consult.
//
// # Records
//
// Each record is described with the following pseudocode:
//
//	type Record struct {
//		Tag     uint8     // Bit 7: variant prefix present. Bits 0-6: variant tag.
//		switch Record.Tag & 0x7f {
//		case Previous:
//			// No further data.
//		default:
//			Fields  [...]Field  // As declared by the catalog for the tag.
//		}
//	}
//
// A Previous record means "the same as the nearest preceding
// record that is not itself Previous", with its own prefix
// flag. The compiler emits one whenever a record's tag and
// fields equal those of the record before it, ignoring the
// prefix flag.
//
// The field encodings are described in package wire. String
// fields are indices into a strpool.Pool that is serialised
// alongside the table.
//
// There is no header or length: a table for N opcodes holds
// exactly N records, and a reader that does not end exactly
// at the end of the data reports a framing violation.
package fmttab

import (
	"fmt"
	"math"
	"strconv"

	"firefly-os.dev/x86fmt/wire"
)

const (
	// Previous is the reserved variant tag for
	// back-references. It is never a real variant.
	Previous uint8 = 0

	// PrefixFlag is set in a record's tag byte
	// when the record's prefixable string field
	// had the variant prefix stripped.
	PrefixFlag uint8 = 0x80

	// MaxTag is the largest variant tag.
	MaxTag uint8 = 0x7f
)

// FieldSpec declares one field of a variant.
type FieldSpec struct {
	Name string
	Kind wire.Kind

	// Prefix marks a string field from which
	// the variant prefix may be stripped. At
	// most one field of a variant may set it.
	Prefix bool

	// Verbatim marks a string field whose text
	// is stored as written, even when it starts
	// with the variant prefix.
	Verbatim bool

	// Max is the largest value a numeric field
	// may take. Zero means the kind's own limit.
	Max uint32

	Enum  *Enum  // The field's ordinals, if any.
	Flags *Flags // The field's bits, if any.
}

// MnemonicField declares a string field that
// may carry the variant prefix.
func MnemonicField(name string) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindString, Prefix: true}
}

// StringField declares a string field that
// must not carry the variant prefix.
func StringField(name string) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindString}
}

// TextField declares a string field that is
// stored as written. Unlike a StringField, its
// text may start with the variant prefix.
func TextField(name string) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindString, Verbatim: true}
}

// CharField declares a raw character field.
func CharField(name string) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindChar}
}

// BoolField declares a boolean field.
func BoolField(name string) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindBool}
}

// ByteField declares a single-byte numeric field.
func ByteField(name string, max uint32) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindByte, Max: max}
}

// UintField declares a compact numeric field.
func UintField(name string, max uint32) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindCompact, Max: max}
}

// EnumField declares a single-byte field holding
// an ordinal of e.
func EnumField(name string, e *Enum) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindByte, Enum: e}
}

// FlagsField declares a compact field holding
// a bitmask of f.
func FlagsField(name string, f *Flags) FieldSpec {
	return FieldSpec{Name: name, Kind: wire.KindCompact, Flags: f}
}

// max returns the largest value the field can
// hold.
func (f *FieldSpec) max() uint32 {
	var limit uint32
	switch f.Kind {
	case wire.KindByte:
		limit = math.MaxUint8
	case wire.KindCompact, wire.KindString:
		limit = math.MaxUint32
	case wire.KindChar:
		limit = math.MaxUint8
	case wire.KindBool:
		limit = 1
	}

	switch {
	case f.Enum != nil:
		limit = min(limit, f.Enum.Max())
	case f.Flags != nil:
		limit = min(limit, f.Flags.Mask())
	case f.Max != 0:
		limit = min(limit, f.Max)
	}

	return limit
}

// check reports whether v is a legal value for
// the numeric field f.
func (f *FieldSpec) check(v uint32) error {
	if f.Flags != nil {
		if undefined := f.Flags.Undefined(v); undefined != 0 {
			return fmt.Errorf("field %s: undefined %s bits %#x", f.Name, f.Flags.Name, undefined)
		}

		return nil
	}

	if max := f.max(); v > max {
		if f.Enum != nil {
			return fmt.Errorf("field %s: %s ordinal %d out of range (%d values)", f.Name, f.Enum.Name, v, f.Enum.Len())
		}

		return fmt.Errorf("field %s: value %d exceeds maximum %d", f.Name, v, max)
	}

	return nil
}

// argKind returns the kind of argument that
// supplies the field.
func (f *FieldSpec) argKind() argKind {
	switch f.Kind {
	case wire.KindString:
		return argString
	case wire.KindChar:
		return argChar
	case wire.KindBool:
		return argBool
	default:
		return argUint
	}
}

// VariantSchema is the field layout of one
// variant tag.
type VariantSchema struct {
	Tag    uint8
	Name   string
	Fields []FieldSpec

	// The index of the field that may carry
	// the variant prefix, or -1.
	prefixField int
}

// PrefixField returns the index of the field
// that may carry the variant prefix, or -1.
func (v *VariantSchema) PrefixField() int {
	return v.prefixField
}

// Schema is the non-generic part of a Catalog:
// the syntax name and every variant's layout.
// It is all the compiler needs.
type Schema struct {
	syntax   string
	variants [MaxTag + 1]*VariantSchema
	byName   map[string]*VariantSchema
}

// Syntax returns the name of the table's syntax.
func (s *Schema) Syntax() string {
	return s.syntax
}

// Variant returns the layout for tag.
func (s *Schema) Variant(tag uint8) (*VariantSchema, bool) {
	if tag == Previous || tag > MaxTag {
		return nil, false
	}

	v := s.variants[tag]
	return v, v != nil
}

// Lookup returns the layout of the variant
// with the given name.
func (s *Schema) Lookup(name string) (*VariantSchema, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// Variants returns every variant in ascending
// tag order.
func (s *Schema) Variants() []*VariantSchema {
	var out []*VariantSchema
	for _, v := range s.variants {
		if v != nil {
			out = append(out, v)
		}
	}

	return out
}

// Variant defines one variant of a catalog: its
// tag, its fields, and the constructor for the
// recipe it describes.
//
// Build must be pure and total over the field
// ranges: invalid combinations are rejected by
// the compiler. Build must not retain v.
type Variant[R any] struct {
	Tag    uint8
	Name   string
	Fields []FieldSpec
	Build  func(v *Values) R
}

// Catalog is the closed set of variants for one
// syntax, producing recipes of type R.
type Catalog[R any] struct {
	schema *Schema
	build  [MaxTag + 1]func(v *Values) R
}

// NewCatalog builds a catalog from its variants.
//
// NewCatalog panics if the variants are malformed,
// as catalogs are static program data.
func NewCatalog[R any](syntax string, variants ...Variant[R]) *Catalog[R] {
	c := &Catalog[R]{
		schema: &Schema{
			syntax: syntax,
			byName: make(map[string]*VariantSchema, len(variants)),
		},
	}

	for _, v := range variants {
		if v.Tag == Previous || v.Tag > MaxTag {
			panic(fmt.Sprintf("fmttab: %s variant %s has invalid tag %d", syntax, v.Name, v.Tag))
		}

		if c.schema.variants[v.Tag] != nil {
			panic(fmt.Sprintf("fmttab: %s variants %s and %s share tag %d", syntax, c.schema.variants[v.Tag].Name, v.Name, v.Tag))
		}

		if _, ok := c.schema.byName[v.Name]; ok || v.Name == "" {
			panic(fmt.Sprintf("fmttab: %s variant %d has a missing or duplicate name %q", syntax, v.Tag, v.Name))
		}

		if v.Build == nil {
			panic(fmt.Sprintf("fmttab: %s variant %s has no constructor", syntax, v.Name))
		}

		vs := &VariantSchema{
			Tag:         v.Tag,
			Name:        v.Name,
			Fields:      v.Fields,
			prefixField: -1,
		}

		for i, f := range v.Fields {
			if f.Kind == wire.KindInvalid || f.Kind > wire.KindString {
				panic(fmt.Sprintf("fmttab: %s variant %s field %s has invalid kind %v", syntax, v.Name, f.Name, f.Kind))
			}

			if f.Enum != nil && (f.Enum.Len() == 0 || (f.Kind == wire.KindByte && f.Enum.Len() > 256)) {
				panic(fmt.Sprintf("fmttab: %s variant %s field %s has an enum that does not fit", syntax, v.Name, f.Name))
			}

			if f.Verbatim && (f.Kind != wire.KindString || f.Prefix) {
				panic(fmt.Sprintf("fmttab: %s variant %s field %s is verbatim but not a plain string", syntax, v.Name, f.Name))
			}

			if !f.Prefix {
				continue
			}

			if f.Kind != wire.KindString {
				panic(fmt.Sprintf("fmttab: %s variant %s field %s is prefixable but not a string", syntax, v.Name, f.Name))
			}

			if vs.prefixField >= 0 {
				panic(fmt.Sprintf("fmttab: %s variant %s has more than one prefixable field", syntax, v.Name))
			}

			vs.prefixField = i
		}

		c.schema.variants[v.Tag] = vs
		c.schema.byName[v.Name] = vs
		c.build[v.Tag] = v.Build
	}

	return c
}

// Schema returns the catalog's schema.
func (c *Catalog[R]) Schema() *Schema {
	return c.schema
}

// Syntax returns the name of the catalog's syntax.
func (c *Catalog[R]) Syntax() string {
	return c.schema.syntax
}

type argKind uint8

const (
	argInvalid argKind = iota
	argString
	argUint
	argChar
	argBool
)

func (k argKind) String() string {
	switch k {
	case argString:
		return "string"
	case argUint:
		return "integer"
	case argChar:
		return "char"
	case argBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Arg is one argument of a construction tuple.
type Arg struct {
	kind argKind
	str  string
	num  uint32
}

// Str returns a string argument.
func Str(s string) Arg { return Arg{kind: argString, str: s} }

// Uint returns a numeric argument, for byte,
// compact, enum, and flags fields.
func Uint(v uint32) Arg { return Arg{kind: argUint, num: v} }

// Char returns a character argument. The zero
// character means "none".
func Char(c byte) Arg { return Arg{kind: argChar, num: uint32(c)} }

// Bool returns a boolean argument.
func Bool(b bool) Arg {
	if b {
		return Arg{kind: argBool, num: 1}
	}

	return Arg{kind: argBool}
}

// Equal reports whether a and b are the same
// argument.
func (a Arg) Equal(b Arg) bool {
	return a == b
}

// Text returns the value of a string argument.
func (a Arg) Text() string { return a.str }

// Num returns the value of any other argument.
// Booleans are 0 or 1.
func (a Arg) Num() uint32 { return a.num }

// String returns the argument in the form used
// by definition files.
func (a Arg) String() string {
	switch a.kind {
	case argString:
		return strconv.Quote(a.str)
	case argUint:
		return strconv.FormatUint(uint64(a.num), 10)
	case argChar:
		if a.num == 0 {
			return "''"
		}

		return strconv.QuoteRune(rune(a.num))
	case argBool:
		return strconv.FormatBool(a.num != 0)
	default:
		return "<invalid>"
	}
}

// Tuple is the compiler's input for one opcode:
// the variant tag and its arguments.
type Tuple struct {
	Code int // The opcode index the tuple describes.
	Tag  uint8
	Args []Arg
}

type value struct {
	str string
	num uint32
}

// Values holds the decoded fields of one record,
// for a variant's constructor.
type Values struct {
	opcode  int
	variant *VariantSchema
	vals    []value
}

// Opcode returns the opcode index being loaded.
func (v *Values) Opcode() int { return v.opcode }

// Tag returns the record's variant tag.
func (v *Values) Tag() uint8 { return v.variant.Tag }

// Len returns the number of fields.
func (v *Values) Len() int { return len(v.vals) }

func (v *Values) field(i int, kind wire.Kind) *value {
	if f := v.variant.Fields[i]; f.Kind != kind && !(kind == wire.KindCompact && f.Kind == wire.KindByte) {
		panic(fmt.Sprintf("fmttab: variant %s field %d (%s) is %v, not %v", v.variant.Name, i, f.Name, f.Kind, kind))
	}

	return &v.vals[i]
}

// Str returns string field i, with the variant
// prefix restored if it was stripped.
func (v *Values) Str(i int) string { return v.field(i, wire.KindString).str }

// Uint returns numeric field i.
func (v *Values) Uint(i int) uint32 { return v.field(i, wire.KindCompact).num }

// Char returns character field i.
func (v *Values) Char(i int) byte { return byte(v.field(i, wire.KindChar).num) }

// Bool returns boolean field i.
func (v *Values) Bool(i int) bool { return v.field(i, wire.KindBool).num != 0 }

// Tuple returns the construction tuple that
// describes the record.
func (v *Values) Tuple() Tuple {
	t := Tuple{
		Code: v.opcode,
		Tag:  v.variant.Tag,
		Args: make([]Arg, len(v.vals)),
	}

	for i, f := range v.variant.Fields {
		val := v.vals[i]
		switch f.argKind() {
		case argString:
			t.Args[i] = Str(val.str)
		case argChar:
			t.Args[i] = Char(byte(val.num))
		case argBool:
			t.Args[i] = Bool(val.num != 0)
		default:
			t.Args[i] = Uint(val.num)
		}
	}

	return t
}

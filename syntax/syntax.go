// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package syntax contains the enumerations shared by
// the formatter catalogs of every assembly syntax.
//
// Each enumeration is a small integer type with an
// explicit table of names, which the catalogs use to
// declare and validate their fields.
package syntax

import (
	"fmt"

	"firefly-os.dev/x86fmt/fmttab"
)

// Names of the supported syntaxes.
const (
	GAS   = "gas"
	Intel = "intel"
	MASM  = "masm"
	NASM  = "nasm"
)

// All lists every supported syntax, in the order
// tables are stored.
var All = []string{GAS, Intel, MASM, NASM}

// CodeSize is an operand or address size.
type CodeSize uint8

const (
	CodeUnknown CodeSize = iota
	Code16
	Code32
	Code64
)

// NumCodeSizes is the number of CodeSize values.
const NumCodeSizes = 4

// CodeSizes is the table of CodeSize values.
var CodeSizes = &fmttab.Enum{
	Name: "code size",
	Values: []fmttab.EnumValue{
		CodeUnknown: {Name: "unknown", Doc: "The size is taken from the instruction."},
		Code16:      {Name: "16", Doc: "16-bit."},
		Code32:      {Name: "32", Doc: "32-bit."},
		Code64:      {Name: "64", Doc: "64-bit."},
	},
}

func (s CodeSize) String() string {
	return CodeSizes.Format(uint32(s))
}

// Register is a register that a recipe can name
// explicitly.
type Register uint8

const (
	RegNone Register = iota
	RegAL
	RegAX
	RegEAX
	RegRAX
	RegCL
	RegDX
	RegES
	RegCS
	RegSS
	RegDS
	RegFS
	RegGS
	RegST0
	RegST1
	RegST2
	RegST3
	RegST4
	RegST5
	RegST6
	RegST7
)

// Registers is the table of Register values.
var Registers = &fmttab.Enum{
	Name: "register",
	Values: []fmttab.EnumValue{
		RegNone: {Name: "none", Doc: "No register."},
		RegAL:   {Name: "al"},
		RegAX:   {Name: "ax"},
		RegEAX:  {Name: "eax"},
		RegRAX:  {Name: "rax"},
		RegCL:   {Name: "cl"},
		RegDX:   {Name: "dx"},
		RegES:   {Name: "es"},
		RegCS:   {Name: "cs"},
		RegSS:   {Name: "ss"},
		RegDS:   {Name: "ds"},
		RegFS:   {Name: "fs"},
		RegGS:   {Name: "gs"},
		RegST0:  {Name: "st0", Doc: "The top of the x87 stack."},
		RegST1:  {Name: "st1"},
		RegST2:  {Name: "st2"},
		RegST3:  {Name: "st3"},
		RegST4:  {Name: "st4"},
		RegST5:  {Name: "st5"},
		RegST6:  {Name: "st6"},
		RegST7:  {Name: "st7"},
	},
}

func (r Register) String() string {
	return Registers.Format(uint32(r))
}

// IsST reports whether r is an x87 stack register.
func (r Register) IsST() bool {
	return RegST0 <= r && r <= RegST7
}

// STIndex returns the stack position of an x87
// register.
func (r Register) STIndex() int {
	if !r.IsST() {
		panic(fmt.Sprintf("syntax: %s is not an x87 stack register", r))
	}

	return int(r - RegST0)
}

// PseudoOpsKind selects the family of pseudo-op
// mnemonics an instruction's immediate can select.
type PseudoOpsKind uint8

const (
	PseudoCmpps PseudoOpsKind = iota
	PseudoVcmpps
	PseudoCmppd
	PseudoVcmppd
	PseudoCmpss
	PseudoVcmpss
	PseudoCmpsd
	PseudoVcmpsd
	PseudoPclmulqdq
	PseudoVpclmulqdq
	PseudoVpcom
	PseudoVpcomu
	PseudoVpcmp
	PseudoVpcmpu
)

// PseudoOpsKinds is the table of PseudoOpsKind values.
var PseudoOpsKinds = &fmttab.Enum{
	Name: "pseudo-ops kind",
	Values: []fmttab.EnumValue{
		PseudoCmpps:      {Name: "cmpps", Doc: "SSE packed single comparison."},
		PseudoVcmpps:     {Name: "vcmpps", Doc: "AVX packed single comparison."},
		PseudoCmppd:      {Name: "cmppd", Doc: "SSE packed double comparison."},
		PseudoVcmppd:     {Name: "vcmppd", Doc: "AVX packed double comparison."},
		PseudoCmpss:      {Name: "cmpss", Doc: "SSE scalar single comparison."},
		PseudoVcmpss:     {Name: "vcmpss", Doc: "AVX scalar single comparison."},
		PseudoCmpsd:      {Name: "cmpsd", Doc: "SSE scalar double comparison."},
		PseudoVcmpsd:     {Name: "vcmpsd", Doc: "AVX scalar double comparison."},
		PseudoPclmulqdq:  {Name: "pclmulqdq", Doc: "Carry-less multiplication."},
		PseudoVpclmulqdq: {Name: "vpclmulqdq", Doc: "VEX carry-less multiplication."},
		PseudoVpcom:      {Name: "vpcom", Doc: "XOP signed integer comparison."},
		PseudoVpcomu:     {Name: "vpcomu", Doc: "XOP unsigned integer comparison."},
		PseudoVpcmp:      {Name: "vpcmp", Doc: "AVX-512 signed integer comparison."},
		PseudoVpcmpu:     {Name: "vpcmpu", Doc: "AVX-512 unsigned integer comparison."},
	},
}

func (k PseudoOpsKind) String() string {
	return PseudoOpsKinds.Format(uint32(k))
}

// ExtendKind describes a sign or zero extension.
type ExtendKind uint8

const (
	ExtendSign ExtendKind = iota
	ExtendZero
	ExtendSignDword
)

// ExtendKinds is the table of ExtendKind values.
var ExtendKinds = &fmttab.Enum{
	Name: "extend kind",
	Values: []fmttab.EnumValue{
		ExtendSign:      {Name: "sign", Doc: "Sign extension (movsx)."},
		ExtendZero:      {Name: "zero", Doc: "Zero extension (movzx)."},
		ExtendSignDword: {Name: "sign_dword", Doc: "Sign extension of a doubleword (movsxd)."},
	},
}

func (k ExtendKind) String() string {
	return ExtendKinds.Format(uint32(k))
}

// Flags controls how a formatter displays an
// instruction.
type Flags uint32

const (
	FlagO16 Flags = 1 << iota
	FlagO32
	FlagO64
	FlagA16
	FlagA32
	FlagA64
	FlagBnd
	FlagFar
	FlagShort
	FlagNear
	FlagSignExtImm8
	FlagMemSize
	FlagNoMemSize
	FlagSizeFromOperand
	FlagRep
	FlagRepe
	FlagRepne
	FlagLock
	FlagHintTaken
	FlagHintNotTaken

	// Bits 20-31 are reserved.
)

// FlagsTable is the table of Flags bits.
var FlagsTable = &fmttab.Flags{
	Name: "flags",
	Values: []fmttab.FlagValue{
		{Name: "o16", Bit: uint32(FlagO16), Doc: "Show a 16-bit operand size override."},
		{Name: "o32", Bit: uint32(FlagO32), Doc: "Show a 32-bit operand size override."},
		{Name: "o64", Bit: uint32(FlagO64), Doc: "Show a 64-bit operand size override."},
		{Name: "a16", Bit: uint32(FlagA16), Doc: "Show a 16-bit address size override."},
		{Name: "a32", Bit: uint32(FlagA32), Doc: "Show a 32-bit address size override."},
		{Name: "a64", Bit: uint32(FlagA64), Doc: "Show a 64-bit address size override."},
		{Name: "bnd", Bit: uint32(FlagBnd), Doc: "The instruction accepts a bnd prefix."},
		{Name: "far", Bit: uint32(FlagFar), Doc: "The branch is far."},
		{Name: "short", Bit: uint32(FlagShort), Doc: "The branch may be short."},
		{Name: "near", Bit: uint32(FlagNear), Doc: "The branch may be near."},
		{Name: "sign_ext_imm8", Bit: uint32(FlagSignExtImm8), Doc: "The 8-bit immediate is sign-extended."},
		{Name: "mem_size", Bit: uint32(FlagMemSize), Doc: "Always show the memory operand size."},
		{Name: "no_mem_size", Bit: uint32(FlagNoMemSize), Doc: "Never show the memory operand size."},
		{Name: "size_from_operand", Bit: uint32(FlagSizeFromOperand), Doc: "The operand size follows a register operand."},
		{Name: "rep", Bit: uint32(FlagRep), Doc: "The instruction accepts a rep prefix."},
		{Name: "repe", Bit: uint32(FlagRepe), Doc: "The instruction accepts a repe prefix."},
		{Name: "repne", Bit: uint32(FlagRepne), Doc: "The instruction accepts a repne prefix."},
		{Name: "lock", Bit: uint32(FlagLock), Doc: "The instruction accepts a lock prefix."},
		{Name: "hint_taken", Bit: uint32(FlagHintTaken), Doc: "Show a branch-taken hint."},
		{Name: "hint_not_taken", Bit: uint32(FlagHintNotTaken), Doc: "Show a branch-not-taken hint."},
	},
}

func (f Flags) String() string {
	return FlagsTable.Format(uint32(f))
}

// FlagsAt returns field i of v as flags, or no
// flags if the variant has no field i.
func FlagsAt(v *fmttab.Values, i int) Flags {
	if i >= v.Len() {
		return 0
	}

	return Flags(v.Uint(i))
}

// WithSuffix returns m followed by the suffix c,
// or m alone if c is zero.
func WithSuffix(m string, c byte) string {
	if c == 0 {
		return m
	}

	return m + string(rune(c))
}

// Field declarations shared by the catalogs.
var (
	MnemonicField  = fmttab.MnemonicField("mnemonic")
	FlagsField     = fmttab.FlagsField("flags", FlagsTable)
	SuffixField    = fmttab.CharField("suffix")
	CodeSizeField  = fmttab.EnumField("code size", CodeSizes)
	AddrSizeField  = fmttab.EnumField("address size", CodeSizes)
	RegisterField  = fmttab.EnumField("register", Registers)
	PseudoField    = fmttab.EnumField("pseudo-ops kind", PseudoOpsKinds)
	ExtendField    = fmttab.EnumField("extend kind", ExtendKinds)
	OpIndexField   = fmttab.ByteField("operand index", 4)
	FromField      = fmttab.ByteField("from bits", 64)
	ToField        = fmttab.ByteField("to bits", 64)
	PopField       = fmttab.BoolField("pop")
	DirectiveField = fmttab.StringField("directive")
	UnitField      = fmttab.CharField("unit")
	AliasField     = fmttab.TextField("alias")
	CountField     = fmttab.ByteField("operand count", 5)
)

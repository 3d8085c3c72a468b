// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package intel

import (
	"firefly-os.dev/x86fmt/syntax"
)

// Tag is a variant tag in the Intel
// catalog.
type Tag uint8

// The Intel variants. Tag 0 is reserved
// for back-references.
const (
	TagPlain           Tag = iota + 1 // mnemonic
	TagFlags                          // mnemonic, flags
	TagSuffix                         // mnemonic, suffix
	TagSuffixFlags                    // mnemonic, suffix, flags
	TagSizeSuffix                     // mnemonic, code size
	TagSizeSuffixFlags                // mnemonic, code size, flags
	TagString                         // mnemonic, suffix, address size
	TagLoop                           // mnemonic, address size
	TagBranch                         // mnemonic, flags
	TagBnd                            // mnemonic, flags
	TagPseudo                         // mnemonic, pseudo-ops kind
	TagPseudoRounding                 // mnemonic, pseudo-ops kind, operand index
	TagStack                          // mnemonic, register, pop
	TagFixedReg                       // mnemonic, register, operand index
	TagExtend                         // mnemonic, extend kind, from bits, to bits
	TagRounding                       // mnemonic, operand index
	TagSae                            // mnemonic, operand index
	TagDeclare                        // directive, unit
	TagAlias                          // mnemonic, alias
	TagOperandCount                   // mnemonic, operand count
)

// Recipe is an Intel formatting recipe.
//
// Recipe is implemented only by the types in this
// package.
type Recipe interface {
	Variant() Tag
	recipe()
}

// Simple is a mnemonic with display flags.
type Simple struct {
	Tag      Tag
	Mnemonic string
	Flags    syntax.Flags
}

// Suffixed is a mnemonic with an explicit size
// suffix.
type Suffixed struct {
	Tag      Tag
	Mnemonic string
	Suffixed string // Mnemonic with the suffix, or Mnemonic if there is none.
	Flags    syntax.Flags
}

// SizeSuffixed is a mnemonic whose suffix follows
// the operand size.
type SizeSuffixed struct {
	Tag       Tag
	Default   syntax.CodeSize
	Mnemonics [syntax.NumCodeSizes]string // Indexed by operand size.
	Flags     syntax.Flags
}

// AddrSized is a string or loop instruction whose
// spelling follows the address size.
type AddrSized struct {
	Tag       Tag
	Default   syntax.CodeSize
	Mnemonic  string
	Mnemonics [syntax.NumCodeSizes]string // Indexed by address size.
}

// Branch is a relative or far branch.
type Branch struct {
	Tag   Tag
	Short string
	Near  string
	Far   string
	Flags syntax.Flags
}

// Bnd is an instruction that accepts a bnd prefix.
type Bnd struct {
	Tag      Tag
	Mnemonic string
	Bnd      string // The mnemonic with the bnd prefix.
	Flags    syntax.Flags
}

// Pseudo is an instruction whose immediate selects
// a pseudo-op mnemonic.
type Pseudo struct {
	Tag       Tag
	Mnemonic  string
	Kind      syntax.PseudoOpsKind
	Mnemonics []string // Indexed by immediate.
	OpIndex   int      // The rounding operand, or -1.
}

// Stack is an x87 instruction with an explicit
// stack register.
type Stack struct {
	Tag      Tag
	Mnemonic string
	Reg      syntax.Register
	RegName  string
	Pop      bool
}

// FixedReg is an instruction with an implicit
// register shown as an operand.
type FixedReg struct {
	Tag      Tag
	Mnemonic string
	Reg      syntax.Register
	RegName  string
	OpIndex  int
}

// Extend is a sign or zero extension.
type Extend struct {
	Tag      Tag
	Mnemonic string
	Spelling string // The mnemonic as displayed.
	Kind     syntax.ExtendKind
	From     int
	To       int
}

// Rounding is an instruction with embedded
// rounding control or suppressed exceptions.
type Rounding struct {
	Tag      Tag
	Mnemonic string
	OpIndex  int
	Sae      bool
}

// Directive is a data declaration.
type Directive struct {
	Tag       Tag
	Directive string
	Unit      byte
}

// Alias is an instruction with an alternative
// spelling.
type Alias struct {
	Tag      Tag
	Mnemonic string
	Alias    string
}

// OperandCount is an instruction that shows only
// its first few operands.
type OperandCount struct {
	Tag      Tag
	Mnemonic string
	Count    int
}

func (r *Simple) Variant() Tag       { return r.Tag }
func (r *Suffixed) Variant() Tag     { return r.Tag }
func (r *SizeSuffixed) Variant() Tag { return r.Tag }
func (r *AddrSized) Variant() Tag    { return r.Tag }
func (r *Branch) Variant() Tag       { return r.Tag }
func (r *Bnd) Variant() Tag          { return r.Tag }
func (r *Pseudo) Variant() Tag       { return r.Tag }
func (r *Stack) Variant() Tag        { return r.Tag }
func (r *FixedReg) Variant() Tag     { return r.Tag }
func (r *Extend) Variant() Tag       { return r.Tag }
func (r *Rounding) Variant() Tag     { return r.Tag }
func (r *Directive) Variant() Tag    { return r.Tag }
func (r *Alias) Variant() Tag        { return r.Tag }
func (r *OperandCount) Variant() Tag { return r.Tag }

func (r *Simple) recipe()       {}
func (r *Suffixed) recipe()     {}
func (r *SizeSuffixed) recipe() {}
func (r *AddrSized) recipe()    {}
func (r *Branch) recipe()       {}
func (r *Bnd) recipe()          {}
func (r *Pseudo) recipe()       {}
func (r *Stack) recipe()        {}
func (r *FixedReg) recipe()     {}
func (r *Extend) recipe()       {}
func (r *Rounding) recipe()     {}
func (r *Directive) recipe()    {}
func (r *Alias) recipe()        {}
func (r *OperandCount) recipe() {}

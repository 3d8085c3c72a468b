// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package intel contains the formatter catalog for
// Intel's assembler syntax, as used in the Intel
// manuals and by the GNU assembler's .intel_syntax
// mode.
package intel

import (
	"strconv"

	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/strpool"
	"firefly-os.dev/x86fmt/syntax"
)

var sizeSuffixes = [syntax.NumCodeSizes]string{
	syntax.Code16: "w",
	syntax.Code32: "d",
	syntax.Code64: "q",
}

var addrPrefixes = [syntax.NumCodeSizes]string{
	syntax.Code16: "a16 ",
	syntax.Code32: "a32 ",
	syntax.Code64: "a64 ",
}

// RegisterName returns the Intel spelling of a
// register.
func RegisterName(reg syntax.Register) string {
	switch {
	case reg == syntax.RegNone:
		return ""
	case reg.IsST():
		return "st(" + strconv.Itoa(reg.STIndex()) + ")"
	default:
		return reg.String()
	}
}

func simple(v *fmttab.Values) Recipe {
	return &Simple{Tag: Tag(v.Tag()), Mnemonic: v.Str(0), Flags: syntax.FlagsAt(v, 1)}
}

func suffixed(v *fmttab.Values) Recipe {
	m := v.Str(0)
	return &Suffixed{Tag: Tag(v.Tag()), Mnemonic: m, Suffixed: syntax.WithSuffix(m, v.Char(1)), Flags: syntax.FlagsAt(v, 2)}
}

// sizeSuffixed leaves the default size unsuffixed,
// as in iret, iretd, iretq.
func sizeSuffixed(v *fmttab.Values) Recipe {
	m := v.Str(0)
	r := &SizeSuffixed{Tag: Tag(v.Tag()), Default: syntax.CodeSize(v.Uint(1)), Flags: syntax.FlagsAt(v, 2)}
	for i := range r.Mnemonics {
		size := syntax.CodeSize(i)
		if size == r.Default {
			r.Mnemonics[i] = m
		} else {
			r.Mnemonics[i] = m + sizeSuffixes[size]
		}
	}

	return r
}

func addrSized(v *fmttab.Values) Recipe {
	tag := Tag(v.Tag())
	m, size := v.Str(0), v.Uint(1)
	if tag == TagString {
		m, size = syntax.WithSuffix(m, v.Char(1)), v.Uint(2)
	}

	r := &AddrSized{Tag: tag, Default: syntax.CodeSize(size), Mnemonic: m}
	for i := range r.Mnemonics {
		if syntax.CodeSize(i) == r.Default {
			r.Mnemonics[i] = m
		} else {
			r.Mnemonics[i] = addrPrefixes[i] + m
		}
	}

	return r
}

func branch(v *fmttab.Values) Recipe {
	m := v.Str(0)
	return &Branch{
		Tag:   TagBranch,
		Short: m + " short",
		Near:  m,
		Far:   m + " far",
		Flags: syntax.FlagsAt(v, 1),
	}
}

func bnd(v *fmttab.Values) Recipe {
	m := v.Str(0)
	return &Bnd{Tag: TagBnd, Mnemonic: m, Bnd: "bnd " + m, Flags: syntax.FlagsAt(v, 1)}
}

func pseudo(v *fmttab.Values) Recipe {
	m := v.Str(0)
	kind := syntax.PseudoOpsKind(v.Uint(1))
	r := &Pseudo{
		Tag:       Tag(v.Tag()),
		Mnemonic:  m,
		Kind:      kind,
		Mnemonics: syntax.PseudoMnemonics(kind, m),
		OpIndex:   -1,
	}

	if v.Len() > 2 {
		r.OpIndex = int(v.Uint(2))
	}

	return r
}

func stack(v *fmttab.Values) Recipe {
	reg := syntax.Register(v.Uint(1))
	return &Stack{Tag: TagStack, Mnemonic: v.Str(0), Reg: reg, RegName: RegisterName(reg), Pop: v.Bool(2)}
}

func fixedReg(v *fmttab.Values) Recipe {
	reg := syntax.Register(v.Uint(1))
	return &FixedReg{Tag: TagFixedReg, Mnemonic: v.Str(0), Reg: reg, RegName: RegisterName(reg), OpIndex: int(v.Uint(2))}
}

func extend(v *fmttab.Values) Recipe {
	m := v.Str(0)
	return &Extend{
		Tag:      TagExtend,
		Mnemonic: m,
		Spelling: m,
		Kind:     syntax.ExtendKind(v.Uint(1)),
		From:     int(v.Uint(2)),
		To:       int(v.Uint(3)),
	}
}

func rounding(v *fmttab.Values) Recipe {
	tag := Tag(v.Tag())
	return &Rounding{Tag: tag, Mnemonic: v.Str(0), OpIndex: int(v.Uint(1)), Sae: tag == TagSae}
}

func directive(v *fmttab.Values) Recipe {
	return &Directive{Tag: TagDeclare, Directive: v.Str(0), Unit: v.Char(1)}
}

func alias(v *fmttab.Values) Recipe {
	return &Alias{Tag: TagAlias, Mnemonic: v.Str(0), Alias: v.Str(1)}
}

func operandCount(v *fmttab.Values) Recipe {
	return &OperandCount{Tag: TagOperandCount, Mnemonic: v.Str(0), Count: int(v.Uint(1))}
}

func variant(tag Tag, name string, build func(*fmttab.Values) Recipe, fields ...fmttab.FieldSpec) fmttab.Variant[Recipe] {
	return fmttab.Variant[Recipe]{Tag: uint8(tag), Name: name, Fields: fields, Build: build}
}

// Catalog is the Intel catalog.
var Catalog = fmttab.NewCatalog(syntax.Intel,
	variant(TagPlain, "plain", simple, syntax.MnemonicField),
	variant(TagFlags, "flags", simple, syntax.MnemonicField, syntax.FlagsField),
	variant(TagSuffix, "suffix", suffixed, syntax.MnemonicField, syntax.SuffixField),
	variant(TagSuffixFlags, "suffix_flags", suffixed, syntax.MnemonicField, syntax.SuffixField, syntax.FlagsField),
	variant(TagSizeSuffix, "size_suffix", sizeSuffixed, syntax.MnemonicField, syntax.CodeSizeField),
	variant(TagSizeSuffixFlags, "size_suffix_flags", sizeSuffixed, syntax.MnemonicField, syntax.CodeSizeField, syntax.FlagsField),
	variant(TagString, "string", addrSized, syntax.MnemonicField, syntax.SuffixField, syntax.AddrSizeField),
	variant(TagLoop, "loop", addrSized, syntax.MnemonicField, syntax.AddrSizeField),
	variant(TagBranch, "branch", branch, syntax.MnemonicField, syntax.FlagsField),
	variant(TagBnd, "bnd", bnd, syntax.MnemonicField, syntax.FlagsField),
	variant(TagPseudo, "pseudo", pseudo, syntax.MnemonicField, syntax.PseudoField),
	variant(TagPseudoRounding, "pseudo_rounding", pseudo, syntax.MnemonicField, syntax.PseudoField, syntax.OpIndexField),
	variant(TagStack, "stack", stack, syntax.MnemonicField, syntax.RegisterField, syntax.PopField),
	variant(TagFixedReg, "fixed_reg", fixedReg, syntax.MnemonicField, syntax.RegisterField, syntax.OpIndexField),
	variant(TagExtend, "extend", extend, syntax.MnemonicField, syntax.ExtendField, syntax.FromField, syntax.ToField),
	variant(TagRounding, "rounding", rounding, syntax.MnemonicField, syntax.OpIndexField),
	variant(TagSae, "sae", rounding, syntax.MnemonicField, syntax.OpIndexField),
	variant(TagDeclare, "declare", directive, syntax.DirectiveField, syntax.UnitField),
	variant(TagAlias, "alias", alias, syntax.MnemonicField, syntax.AliasField),
	variant(TagOperandCount, "operand_count", operandCount, syntax.MnemonicField, syntax.CountField),
)

// Load decodes an Intel table of n records.
func Load(data []byte, pool *strpool.Pool, n int) ([]Recipe, error) {
	return fmttab.Load(Catalog, data, pool, n)
}

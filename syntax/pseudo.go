// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package syntax

// The comparison predicates, indexed by the
// instruction's immediate.
var (
	cmpPredicates = []string{
		"eq", "lt", "le", "unord", "neq", "nlt", "nle", "ord",
	}

	vcmpPredicates = []string{
		"eq", "lt", "le", "unord", "neq", "nlt", "nle", "ord",
		"eq_uq", "nge", "ngt", "false", "neq_oq", "ge", "gt", "true",
		"eq_os", "lt_oq", "le_oq", "unord_s", "neq_us", "nlt_uq", "nle_uq", "ord_s",
		"eq_us", "nge_uq", "ngt_uq", "false_os", "neq_os", "ge_oq", "gt_oq", "true_us",
	}

	pclmulPredicates = []string{
		"lqlq", "hqlq", "lqhq", "hqhq",
	}

	vpcomPredicates = []string{
		"lt", "le", "gt", "ge", "eq", "neq", "false", "true",
	}

	vpcmpPredicates = []string{
		"eq", "lt", "le", "false", "neq", "nlt", "nle", "true",
	}
)

// Predicates returns the predicate names for the
// given kind, indexed by immediate.
func (k PseudoOpsKind) Predicates() []string {
	switch k {
	case PseudoCmpps, PseudoCmppd, PseudoCmpss, PseudoCmpsd:
		return cmpPredicates
	case PseudoVcmpps, PseudoVcmppd, PseudoVcmpss, PseudoVcmpsd:
		return vcmpPredicates
	case PseudoPclmulqdq, PseudoVpclmulqdq:
		return pclmulPredicates
	case PseudoVpcom, PseudoVpcomu:
		return vpcomPredicates
	case PseudoVpcmp, PseudoVpcmpu:
		return vpcmpPredicates
	default:
		return nil
	}
}

// PseudoMnemonics returns every concrete mnemonic
// that the base mnemonic can take, indexed by the
// instruction's immediate.
//
// The predicate is inserted before the element
// type of a comparison (cmpps becomes cmpeqps),
// replaces the "q" of a carry-less multiply
// (pclmulqdq becomes pclmullqlqdq), and follows
// the "vpcom" or "vpcmp" stem of an integer
// comparison (vpcomub becomes vpcomltub).
//
// A mnemonic too short to split has the predicate
// appended.
func PseudoMnemonics(kind PseudoOpsKind, mnemonic string) []string {
	predicates := kind.Predicates()
	if predicates == nil {
		return nil
	}

	stem, rest := mnemonic, ""
	switch kind {
	case PseudoPclmulqdq, PseudoVpclmulqdq:
		if n := len(mnemonic) - 3; n >= 0 {
			stem, rest = mnemonic[:n], mnemonic[n+1:]
		}
	case PseudoVpcom, PseudoVpcomu, PseudoVpcmp, PseudoVpcmpu:
		if n := len("vpcom"); len(mnemonic) > n {
			stem, rest = mnemonic[:n], mnemonic[n:]
		}
	default:
		if n := len(mnemonic) - 2; n > 0 {
			stem, rest = mnemonic[:n], mnemonic[n:]
		}
	}

	out := make([]string, len(predicates))
	for i, p := range predicates {
		out[i] = stem + p + rest
	}

	return out
}

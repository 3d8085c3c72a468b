// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package fmttab

import (
	"fmt"
	"strconv"
	"strings"
)

// EnumValue names one ordinal of an Enum.
type EnumValue struct {
	Name string
	Doc  string
}

// Enum is an explicit table of the ordinals a
// field can take. The ordinal of each value is
// its position in Values.
type Enum struct {
	Name   string
	Values []EnumValue
}

// Len returns the number of ordinals.
func (e *Enum) Len() int {
	return len(e.Values)
}

// Max returns the largest valid ordinal.
func (e *Enum) Max() uint32 {
	return uint32(len(e.Values) - 1)
}

// Lookup returns the ordinal with the given
// name.
func (e *Enum) Lookup(name string) (uint32, bool) {
	for i, v := range e.Values {
		if v.Name == name {
			return uint32(i), true
		}
	}

	return 0, false
}

// Format returns the name of ordinal v.
func (e *Enum) Format(v uint32) string {
	if uint64(v) < uint64(len(e.Values)) {
		return e.Values[v].Name
	}

	return fmt.Sprintf("%s(%d)", e.Name, v)
}

// Parse converts a name or a decimal ordinal
// into an ordinal.
func (e *Enum) Parse(s string) (uint32, error) {
	if v, ok := e.Lookup(s); ok {
		return v, nil
	}

	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v > uint64(e.Max()) {
		return 0, fmt.Errorf("unknown %s %q", e.Name, s)
	}

	return uint32(v), nil
}

// FlagValue names one bit of a Flags set.
type FlagValue struct {
	Name string
	Doc  string
	Bit  uint32 // The mask, with exactly one bit set.
}

// Flags is an explicit table of the bits a
// bitmask field can carry. Bits not named in
// the table are reserved and rejected.
type Flags struct {
	Name   string
	Values []FlagValue
}

// Mask returns the union of every defined bit.
func (f *Flags) Mask() uint32 {
	var mask uint32
	for _, v := range f.Values {
		mask |= v.Bit
	}

	return mask
}

// Undefined returns the bits of v that are not
// defined by f.
func (f *Flags) Undefined(v uint32) uint32 {
	return v &^ f.Mask()
}

// Format returns v as a "|"-separated list of
// names, or "0" for the empty set. Undefined
// bits are printed in hexadecimal.
func (f *Flags) Format(v uint32) string {
	if v == 0 {
		return "0"
	}

	var b strings.Builder
	for _, flag := range f.Values {
		if v&flag.Bit == 0 {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte('|')
		}

		b.WriteString(flag.Name)
	}

	if rest := f.Undefined(v); rest != 0 {
		if b.Len() > 0 {
			b.WriteByte('|')
		}

		fmt.Fprintf(&b, "%#x", rest)
	}

	return b.String()
}

// Parse converts a "|"-separated list of flag
// names into a bitmask. The empty string and
// "0" denote no flags.
func (f *Flags) Parse(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	var v uint32
	for _, name := range strings.Split(s, "|") {
		name = strings.TrimSpace(name)
		found := false
		for _, flag := range f.Values {
			if flag.Name == name {
				v |= flag.Bit
				found = true
				break
			}
		}

		if !found {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
	}

	return v, nil
}

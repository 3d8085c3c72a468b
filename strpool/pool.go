// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package strpool implements the string pool shared by the
// formatter tables.
//
// A pool maps each distinct string to a dense index, in the
// order the strings were first seen, so the indices written
// into a table are reproducible from one build to the next.
//
// Mnemonics in one instruction-set family differ from their
// legacy forms only by a leading "v" (addps and vaddps). A
// string interned with prefix stripping enabled has that "v"
// removed before it is stored, so both forms share one entry;
// the caller records the prefix elsewhere.
//
// A pool is built, then frozen. Once frozen, no new string
// can be added, and the pool is safe for concurrent use.
package strpool

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/cryptobyte"

	"firefly-os.dev/x86fmt/wire"
)

// VariantPrefix is the reserved prefix that can
// be stripped from a string when it is interned.
const VariantPrefix = 'v'

// ErrIndex is returned when a lookup refers to
// a string beyond the end of the pool.
var ErrIndex = errors.New("string index out of range")

// Pool is a deduplicated table of strings.
//
// The zero value is an empty, unfrozen pool.
type Pool struct {
	strings []string
	indices map[string]uint32
	frozen  bool
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{indices: make(map[string]uint32)}
}

// Intern returns the index of text, adding it to
// the pool if necessary.
//
// If stripPrefix is true and text consists of the
// variant prefix followed by at least one more
// character, the prefix is removed before the
// string is interned and hadPrefix is true. The
// caller decides whether stripping is permitted.
//
// Interning a string that is not yet in a frozen
// pool panics.
func (p *Pool) Intern(text string, stripPrefix bool) (index uint32, hadPrefix bool) {
	if stripPrefix {
		text, hadPrefix = StripPrefix(text)
	}

	index, ok := p.indices[text]
	if ok {
		return index, hadPrefix
	}

	if p.frozen {
		panic(fmt.Sprintf("strpool: cannot intern %q: pool is frozen", text))
	}

	if p.indices == nil {
		p.indices = make(map[string]uint32)
	}

	index = uint32(len(p.strings))
	p.strings = append(p.strings, text)
	p.indices[text] = index

	return index, hadPrefix
}

// StripPrefix removes the variant prefix from
// text, reporting whether it was present. A
// string consisting only of the prefix is left
// unchanged.
func StripPrefix(text string) (string, bool) {
	if len(text) > 1 && text[0] == VariantPrefix {
		return text[1:], true
	}

	return text, false
}

// HasPrefix reports whether text would have
// a variant prefix stripped by Intern.
func HasPrefix(text string) bool {
	_, ok := StripPrefix(text)
	return ok
}

// Freeze prevents any further strings from
// being added to the pool.
func (p *Pool) Freeze() {
	p.frozen = true
}

// Frozen reports whether the pool has been
// frozen.
func (p *Pool) Frozen() bool {
	return p.frozen
}

// Len returns the number of strings in the pool.
func (p *Pool) Len() int {
	return len(p.strings)
}

// Lookup returns the string with the given index.
func (p *Pool) Lookup(index uint32) (string, error) {
	if uint64(index) >= uint64(len(p.strings)) {
		return "", fmt.Errorf("%w: index %d in a pool of %d strings", ErrIndex, index, len(p.strings))
	}

	return p.strings[index], nil
}

// Strings returns a copy of the pool's contents
// in index order.
func (p *Pool) Strings() []string {
	out := make([]string, len(p.strings))
	copy(out, p.strings)
	return out
}

// Marshal appends the encoded pool to b.
//
// The encoding is a compact string count,
// followed by each string as a compact length
// and its bytes.
func (p *Pool) Marshal(b *cryptobyte.Builder) error {
	wire.AddCompact(b, uint32(len(p.strings)))
	for _, s := range p.strings {
		wire.AddCompact(b, uint32(len(s)))
		b.AddBytes([]byte(s))
	}

	return nil
}

// Encode returns the encoded pool.
func (p *Pool) Encode() []byte {
	b := cryptobyte.NewBuilder(nil)
	b.AddValue(p)
	return b.BytesOrPanic()
}

// Decode parses an encoded pool. The result is
// frozen.
func Decode(data []byte) (*Pool, error) {
	s := cryptobyte.String(data)
	count, err := wire.ReadCompact(&s)
	if err != nil {
		return nil, fmt.Errorf("invalid string pool: failed to read string count: %w", err)
	}

	// Each string takes at least one byte,
	// so a larger count cannot be valid.
	if uint64(count) > uint64(len(s)) {
		return nil, fmt.Errorf("invalid string pool: %d strings in %d bytes: %w", count, len(s), io.ErrUnexpectedEOF)
	}

	p := &Pool{
		strings: make([]string, 0, count),
		indices: make(map[string]uint32, count),
	}

	for i := uint32(0); i < count; i++ {
		length, err := wire.ReadCompact(&s)
		if err != nil {
			return nil, fmt.Errorf("invalid string pool: failed to read length of string %d: %w", i, err)
		}

		var text []byte
		if !s.ReadBytes(&text, int(length)) {
			return nil, fmt.Errorf("invalid string pool: failed to read string %d: %w", i, io.ErrUnexpectedEOF)
		}

		str := string(text)
		if prev, ok := p.indices[str]; ok {
			return nil, fmt.Errorf("invalid string pool: string %d (%q) duplicates string %d", i, str, prev)
		}

		p.indices[str] = i
		p.strings = append(p.strings, str)
	}

	if !s.Empty() {
		return nil, fmt.Errorf("invalid string pool: %d trailing bytes", len(s))
	}

	p.frozen = true

	return p, nil
}

// String returns a short description of the pool,
// for debugging.
func (p *Pool) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "strpool(%d strings", len(p.strings))
	if p.frozen {
		b.WriteString(", frozen")
	}

	b.WriteByte(')')
	return b.String()
}

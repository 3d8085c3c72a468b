// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package bundle implements the container format that
// carries a set of compiled formatter tables.
//
// A bundle holds the opcode count, the shared string
// pool, and one record stream per syntax. It is
// described with the following pseudocode:
//
//	type Bundle struct {
//		Magic    uint32  // "x86f"
//		Version  uint8   // 1
//		Count    uint32  // The number of opcodes in each table.
//		Pool     <uint32>[]byte  // The serialised string pool.
//		NumTables uint8
//		Tables   [NumTables]struct {
//			Syntax <uint8>[]byte  // The syntax name.
//			Data   <uint32>[]byte // The record stream.
//		}
//		Checksum [32]byte // SHA-256 of all preceding data.
//	}
//
// All integers are big-endian. A <uintN>[]byte is a
// byte sequence preceded by its length.
package bundle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"golang.org/x/crypto/cryptobyte"

	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/strpool"
)

const (
	Magic   uint32 = 0x78383666 // "x86f"
	Version uint8  = 1

	// ChecksumLength is the length of the
	// trailing checksum.
	ChecksumLength = sha256.Size
)

const headerSize = 4 + // 32-bit magic.
	1 + // 8-bit version.
	4 // 32-bit opcode count.

// ErrChecksum is returned when a bundle's
// checksum does not match its contents.
var ErrChecksum = errors.New("checksum mismatch")

// Table is the record stream for one syntax.
type Table struct {
	Syntax string
	Data   []byte
}

// Bundle is a decoded bundle.
type Bundle struct {
	Count  int           // The number of opcodes in each table.
	Pool   *strpool.Pool // The frozen string pool.
	Tables []Table

	// The serialised pool.
	pool []byte
}

// New returns a bundle containing the output of
// a compiler. Every table must describe the same
// number of opcodes.
func New(out *fmttab.Output) (*Bundle, error) {
	if !out.Pool.Frozen() {
		return nil, fmt.Errorf("bundle: string pool is not frozen")
	}

	b := &Bundle{
		Count:  -1,
		Pool:   out.Pool,
		Tables: make([]Table, 0, len(out.Tables)),
	}

	for _, t := range out.Tables {
		if b.Count >= 0 && t.Count != b.Count {
			return nil, fmt.Errorf("bundle: %s table has %d opcodes, but %s has %d", t.Syntax, t.Count, b.Tables[0].Syntax, b.Count)
		}

		b.Count = t.Count
		b.Tables = append(b.Tables, Table{Syntax: t.Syntax, Data: t.Data})
	}

	if b.Count < 0 {
		return nil, fmt.Errorf("bundle: no tables")
	}

	return b, nil
}

// Table returns the record stream for the given
// syntax.
func (b *Bundle) Table(syntax string) ([]byte, bool) {
	for _, t := range b.Tables {
		if t.Syntax == syntax {
			return t.Data, true
		}
	}

	return nil, false
}

// Syntaxes returns the name of each syntax in the
// bundle, in order.
func (b *Bundle) Syntaxes() []string {
	out := make([]string, len(b.Tables))
	for i, t := range b.Tables {
		out[i] = t.Syntax
	}

	return out
}

// NewPool decodes a fresh copy of the bundle's
// string pool.
func (b *Bundle) NewPool() (*strpool.Pool, error) {
	if b.pool == nil {
		return strpool.Decode(b.Pool.Encode())
	}

	return strpool.Decode(b.pool)
}

// Encode writes the bundle to w.
func (b *Bundle) Encode(w io.Writer) error {
	data, err := b.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write bundle: %v", err)
	}

	return nil
}

// MarshalBinary encodes the bundle.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	if b.Count < 0 || b.Count > math.MaxUint32 {
		return nil, fmt.Errorf("bundle: invalid opcode count %d", b.Count)
	}

	if len(b.Tables) > math.MaxUint8 {
		return nil, fmt.Errorf("bundle: too many tables: %d", len(b.Tables))
	}

	if b.Pool == nil || !b.Pool.Frozen() {
		return nil, fmt.Errorf("bundle: string pool is not frozen")
	}

	seen := make(map[string]bool)
	size := headerSize + 4 + 1 + ChecksumLength
	for _, t := range b.Tables {
		if t.Syntax == "" || len(t.Syntax) > math.MaxUint8 {
			return nil, fmt.Errorf("bundle: invalid syntax name %q", t.Syntax)
		}

		if seen[t.Syntax] {
			return nil, fmt.Errorf("bundle: duplicate %s table", t.Syntax)
		}

		if uint64(len(t.Data)) > math.MaxUint32 {
			return nil, fmt.Errorf("bundle: %s table is too large: %d bytes", t.Syntax, len(t.Data))
		}

		seen[t.Syntax] = true
		size += 1 + len(t.Syntax) + 4 + len(t.Data)
	}

	builder := cryptobyte.NewBuilder(make([]byte, 0, size))
	builder.AddUint32(Magic)
	builder.AddUint8(Version)
	builder.AddUint32(uint32(b.Count))
	builder.AddUint32LengthPrefixed(func(builder *cryptobyte.Builder) {
		if err := b.Pool.Marshal(builder); err != nil {
			builder.SetError(err)
		}
	})

	builder.AddUint8(uint8(len(b.Tables)))
	for _, t := range b.Tables {
		builder.AddUint8LengthPrefixed(func(builder *cryptobyte.Builder) {
			builder.AddBytes([]byte(t.Syntax))
		})
		builder.AddUint32LengthPrefixed(func(builder *cryptobyte.Builder) {
			builder.AddBytes(t.Data)
		})
	}

	data, err := builder.Bytes()
	if err != nil {
		return nil, fmt.Errorf("bundle: failed to encode: %v", err)
	}

	// Add the checksum.
	sum := sha256.Sum256(data)
	data = append(data, sum[:]...)

	return data, nil
}

// Decode parses a bundle, verifying its checksum.
func Decode(data []byte) (*Bundle, error) {
	if len(data) < headerSize+ChecksumLength {
		return nil, fmt.Errorf("invalid bundle header: %w", io.ErrUnexpectedEOF)
	}

	// Verify the checksum.
	checksum := data[len(data)-ChecksumLength:]
	want := ([ChecksumLength]byte)(checksum)
	got := sha256.Sum256(data[:len(data)-ChecksumLength])
	if got != want {
		return nil, fmt.Errorf("invalid bundle: %w", ErrChecksum)
	}

	s := cryptobyte.String(data[:len(data)-ChecksumLength])

	var magic, count uint32
	var version uint8
	if !s.ReadUint32(&magic) ||
		!s.ReadUint8(&version) ||
		!s.ReadUint32(&count) {
		return nil, fmt.Errorf("invalid bundle header: %w", io.ErrUnexpectedEOF)
	}

	if magic != Magic {
		return nil, fmt.Errorf("invalid bundle header: got magic %x, want %x", magic, Magic)
	}

	if version != Version {
		return nil, fmt.Errorf("unsupported bundle: got version %d, but only %d is supported", version, Version)
	}

	var pool cryptobyte.String
	if !readUint32LengthPrefixed(&s, &pool) {
		return nil, fmt.Errorf("invalid bundle: failed to read string pool: %w", io.ErrUnexpectedEOF)
	}

	b := &Bundle{
		Count: int(count),
		pool:  bytes.Clone(pool),
	}

	var err error
	b.Pool, err = strpool.Decode(b.pool)
	if err != nil {
		return nil, fmt.Errorf("invalid bundle: %v", err)
	}

	var numTables uint8
	if !s.ReadUint8(&numTables) {
		return nil, fmt.Errorf("invalid bundle: failed to read table count: %w", io.ErrUnexpectedEOF)
	}

	b.Tables = make([]Table, numTables)
	for i := range b.Tables {
		var syntax, table cryptobyte.String
		if !s.ReadUint8LengthPrefixed(&syntax) ||
			!readUint32LengthPrefixed(&s, &table) {
			return nil, fmt.Errorf("invalid bundle: failed to read table %d: %w", i+1, io.ErrUnexpectedEOF)
		}

		name := string(syntax)
		if name == "" {
			return nil, fmt.Errorf("invalid bundle: table %d has no syntax name", i+1)
		}

		if slices.ContainsFunc(b.Tables[:i], func(t Table) bool { return t.Syntax == name }) {
			return nil, fmt.Errorf("invalid bundle: duplicate %s table", name)
		}

		b.Tables[i] = Table{Syntax: name, Data: bytes.Clone(table)}
	}

	if !s.Empty() {
		return nil, fmt.Errorf("invalid bundle: %d trailing bytes before the checksum", len(s))
	}

	return b, nil
}

// readUint32LengthPrefixed reads a big-endian
// uint32 length and that many bytes from s into
// out. cryptobyte only provides length-prefixed
// reads up to 24 bits.
func readUint32LengthPrefixed(s *cryptobyte.String, out *cryptobyte.String) bool {
	var n uint32
	var v []byte
	if !s.ReadUint32(&n) || uint64(n) > uint64(len(*s)) || !s.ReadBytes(&v, int(n)) {
		return false
	}

	*out = v

	return true
}

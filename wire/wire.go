// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package wire contains the field encodings shared by every
// formatter table record.
//
// No field is self-describing. The sequence of fields that
// follows a record's tag is fixed by the tag, so the writer
// and the reader must be driven by the same catalog.
//
// The field kinds are:
//
//   - Compact: a little-endian base-128 unsigned integer. Each
//     byte carries seven bits of the value, with the high bit
//     set on every byte but the last. Values up to 0x7f take one
//     byte, up to 0x3fff two bytes, and so on, to a maximum of
//     five bytes for a 32-bit value.
//   - Byte: a single byte holding a value statically known to
//     fit in 0-255.
//   - Char: a single raw character. The value 0 is meaningful
//     (it denotes "no suffix").
//   - Bool: a single byte, 0 or 1.
//   - String: a compact integer holding an index into the
//     string pool.
package wire

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/cryptobyte"
)

// Kind identifies the encoding of a field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindCompact      // Variable-length unsigned integer.
	KindByte         // Single byte with a range check.
	KindChar         // Raw character; 0 means none.
	KindBool         // 0 or 1.
	KindString       // Compact string pool index.
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindCompact:
		return "compact"
	case KindByte:
		return "byte"
	case KindChar:
		return "char"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// MaxCompactLength is the maximum number of
// bytes in a compact encoding of a uint32.
const MaxCompactLength = 5

var (
	// ErrRange indicates that a value does not
	// fit in the field being written.
	ErrRange = errors.New("value out of range")

	// ErrCompact indicates a malformed compact
	// integer: one that overflows 32 bits or
	// that has redundant trailing zero groups.
	ErrCompact = errors.New("malformed compact integer")

	// ErrBool indicates a boolean byte other
	// than 0 or 1.
	ErrBool = errors.New("invalid boolean")
)

// CompactLength returns the number of bytes
// used to encode v as a compact integer.
func CompactLength(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}

// AddCompact appends the compact encoding of v.
func AddCompact(b *cryptobyte.Builder, v uint32) {
	for v >= 0x80 {
		b.AddUint8(uint8(v) | 0x80)
		v >>= 7
	}

	b.AddUint8(uint8(v))
}

// ReadCompact reads a compact integer from s.
//
// Only the minimal encoding of each value is
// accepted, so every value has exactly one
// representation in a table.
func ReadCompact(s *cryptobyte.String) (uint32, error) {
	var v uint32
	for i := 0; i < MaxCompactLength; i++ {
		var b uint8
		if !s.ReadUint8(&b) {
			return 0, io.ErrUnexpectedEOF
		}

		if i == MaxCompactLength-1 && b > 0x0f {
			return 0, ErrCompact
		}

		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if b == 0 && i > 0 {
				return 0, ErrCompact
			}

			return v, nil
		}
	}

	return 0, ErrCompact
}

// AddByte appends v as a single byte. The
// value must not exceed max, which itself
// must not exceed 255.
func AddByte(b *cryptobyte.Builder, v, max uint32) error {
	if max > 0xff {
		max = 0xff
	}

	if v > max {
		return fmt.Errorf("%w: %d does not fit in a byte field with maximum %d", ErrRange, v, max)
	}

	b.AddUint8(uint8(v))

	return nil
}

// ReadByte reads a single byte from s and
// checks it against max.
func ReadByte(s *cryptobyte.String, max uint32) (uint32, error) {
	var v uint8
	if !s.ReadUint8(&v) {
		return 0, io.ErrUnexpectedEOF
	}

	if uint32(v) > max {
		return 0, fmt.Errorf("%w: byte field value %d exceeds maximum %d", ErrRange, v, max)
	}

	return uint32(v), nil
}

// AddChar appends the raw character c.
func AddChar(b *cryptobyte.Builder, c byte) {
	b.AddUint8(c)
}

// ReadChar reads a raw character.
func ReadChar(s *cryptobyte.String) (byte, error) {
	var c uint8
	if !s.ReadUint8(&c) {
		return 0, io.ErrUnexpectedEOF
	}

	return c, nil
}

// AddBool appends v as 0 or 1.
func AddBool(b *cryptobyte.Builder, v bool) {
	if v {
		b.AddUint8(1)
	} else {
		b.AddUint8(0)
	}
}

// ReadBool reads a boolean byte, rejecting
// any value other than 0 or 1.
func ReadBool(s *cryptobyte.String) (bool, error) {
	var v uint8
	if !s.ReadUint8(&v) {
		return false, io.ErrUnexpectedEOF
	}

	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: got byte %#02x", ErrBool, v)
	}
}

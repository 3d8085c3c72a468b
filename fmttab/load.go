// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package fmttab

import (
	"errors"
	"io"

	"golang.org/x/crypto/cryptobyte"

	"firefly-os.dev/x86fmt/strpool"
	"firefly-os.dev/x86fmt/wire"
)

// Load decodes a table of n records, producing
// one recipe per opcode index.
//
// The pool must be frozen. Load either returns
// a complete table or an *Error; it never
// returns a partial table.
func Load[R any](c *Catalog[R], data []byte, pool *strpool.Pool, n int) ([]R, error) {
	return load(c.schema, data, pool, n, func(v *Values) R {
		return c.build[v.variant.Tag](v)
	})
}

// Decode decodes a table of n records into the
// construction tuples that describe it. This is
// the inverse of compilation and is used to
// verify and inspect tables.
func Decode(schema *Schema, data []byte, pool *strpool.Pool, n int) ([]Tuple, error) {
	return load(schema, data, pool, n, func(v *Values) Tuple {
		return v.Tuple()
	})
}

// reader tracks a position in a table.
type reader struct {
	schema *Schema
	pool   *strpool.Pool
	data   []byte
	s      cryptobyte.String
}

func (r *reader) pos() int {
	return len(r.data) - len(r.s)
}

func (r *reader) seek(offset int) {
	r.s = cryptobyte.String(r.data[offset:])
}

func load[R any](schema *Schema, data []byte, pool *strpool.Pool, n int, build func(v *Values) R) ([]R, error) {
	syntax := schema.Syntax()
	if pool == nil || !pool.Frozen() {
		return nil, errorf(syntax, ErrPoolState, -1, -1, "string pool is not frozen")
	}

	if n < 0 {
		return nil, errorf(syntax, ErrFraming, -1, -1, "invalid opcode count %d", n)
	}

	// Every record takes at least its tag byte.
	if n > len(data) {
		return nil, errorf(syntax, ErrFraming, -1, 0, "table of %d bytes cannot hold %d opcodes", len(data), n)
	}

	r := &reader{
		schema: schema,
		pool:   pool,
		data:   data,
		s:      cryptobyte.String(data),
	}

	out := make([]R, n)
	var v Values
	prevStart := -1
	for i := 0; i < n; i++ {
		start := r.pos()
		var tag uint8
		if !r.s.ReadUint8(&tag) {
			return nil, errorf(syntax, ErrFraming, i, start, "table ended after %d of %d opcodes", i, n)
		}

		prefixed := tag&PrefixFlag != 0
		tag &^= PrefixFlag
		if tag != Previous {
			prevStart = start
			err := r.readRecord(&v, i, start, tag, prefixed)
			if err != nil {
				return nil, err
			}

			out[i] = build(&v)
			continue
		}

		if prevStart < 0 {
			return nil, errorf(syntax, ErrSchema, i, start, "back-reference with no preceding record")
		}

		// Replay the previous real record with
		// this record's prefix flag, then carry
		// on from here.
		resume := r.pos()
		r.seek(prevStart)
		var target uint8
		r.s.ReadUint8(&target) // Cannot fail: prevStart was read before.
		target &^= PrefixFlag
		if target == Previous {
			return nil, errorf(syntax, ErrSchema, i, start, "back-reference to another back-reference at offset %d", prevStart)
		}

		err := r.readRecord(&v, i, prevStart, target, prefixed)
		if err != nil {
			return nil, err
		}

		r.seek(resume)
		out[i] = build(&v)
	}

	if !r.s.Empty() {
		return nil, errorf(syntax, ErrFraming, -1, r.pos(), "%d trailing bytes after %d opcodes", len(r.s), n)
	}

	return out, nil
}

// readRecord reads the fields of a record whose
// tag has already been read.
func (r *reader) readRecord(v *Values, opcode, start int, tag uint8, prefixed bool) error {
	syntax := r.schema.Syntax()
	variant, ok := r.schema.Variant(tag)
	if !ok {
		return errorf(syntax, ErrSchema, opcode, start, "unrecognised variant tag %d", tag)
	}

	if prefixed && variant.prefixField < 0 {
		return errorf(syntax, ErrSchema, opcode, start, "variant %s has no prefixable field but has the prefix flag", variant.Name)
	}

	v.opcode = opcode
	v.variant = variant
	v.vals = v.vals[:0]
	for i := range variant.Fields {
		f := &variant.Fields[i]
		offset := r.pos()
		var val value
		var err error
		switch f.Kind {
		case wire.KindString:
			var index uint32
			index, err = wire.ReadCompact(&r.s)
			if err != nil {
				break
			}

			val.str, err = r.pool.Lookup(index)
			if err != nil {
				return &Error{Syntax: syntax, Kind: ErrPoolState, Opcode: opcode, Offset: offset, Err: err}
			}

			if prefixed && f.Prefix {
				val.str = string(strpool.VariantPrefix) + val.str
			}
		case wire.KindCompact:
			val.num, err = wire.ReadCompact(&r.s)
			if err == nil {
				err = f.check(val.num)
			}
		case wire.KindByte:
			val.num, err = wire.ReadByte(&r.s, f.max())
			if err == nil {
				err = f.check(val.num)
			}
		case wire.KindChar:
			var c byte
			c, err = wire.ReadChar(&r.s)
			val.num = uint32(c)
		case wire.KindBool:
			var b bool
			b, err = wire.ReadBool(&r.s)
			if b {
				val.num = 1
			}
		}

		if err != nil {
			kind := ErrSchema
			if errors.Is(err, io.ErrUnexpectedEOF) {
				kind = ErrFraming
			}

			return errorf(syntax, kind, opcode, offset, "variant %s field %s: %w", variant.Name, f.Name, err)
		}

		v.vals = append(v.vals, val)
	}

	return nil
}

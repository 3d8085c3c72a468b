// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package fmttab

import (
	"fmt"
	"slices"

	"golang.org/x/crypto/cryptobyte"

	"firefly-os.dev/x86fmt/strpool"
	"firefly-os.dev/x86fmt/wire"
)

// record is a construction tuple resolved against
// its catalog, with every string replaced by its
// pool index.
type record struct {
	tag      uint8
	prefixed bool
	fields   []uint32
	texts    []string // String arguments, until interned.
}

// sameAs reports whether r can be written as a
// back-reference to prev.
func (r *record) sameAs(prev *record) bool {
	return r.tag == prev.tag && slices.Equal(r.fields, prev.fields)
}

type pendingTable struct {
	schema  *Schema
	records []record
}

// Compiler builds formatter tables that share
// one string pool.
//
// Compilation has two phases. AddTable checks
// each table's tuples and interns their strings.
// Compile then freezes the pool and emits every
// table, so every index written is final.
type Compiler struct {
	pool     *strpool.Pool
	tables   []*pendingTable
	compiled bool
}

// NewCompiler returns a compiler with an empty
// string pool.
func NewCompiler() *Compiler {
	return &Compiler{pool: strpool.New()}
}

// Pool returns the compiler's string pool.
func (c *Compiler) Pool() *strpool.Pool {
	return c.pool
}

// AddTable checks the tuples for one syntax and
// interns their strings. tuples[i] must describe
// opcode i.
func (c *Compiler) AddTable(schema *Schema, tuples []Tuple) error {
	syntax := schema.Syntax()
	if c.compiled {
		return errorf(syntax, ErrPoolState, -1, -1, "cannot add a table after the string pool is frozen")
	}

	for _, t := range c.tables {
		if t.schema.Syntax() == syntax {
			return fmt.Errorf("fmttab: duplicate table for syntax %q", syntax)
		}
	}

	table := &pendingTable{
		schema:  schema,
		records: make([]record, len(tuples)),
	}

	for i := range tuples {
		err := c.resolve(schema, i, &tuples[i], &table.records[i])
		if err != nil {
			return err
		}
	}

	// Strings are only added to the pool once
	// the whole table is valid.
	for i := range table.records {
		c.intern(schema, &table.records[i])
	}

	c.tables = append(c.tables, table)

	return nil
}

// resolve checks t against the schema and fills
// in rec.
func (c *Compiler) resolve(schema *Schema, i int, t *Tuple, rec *record) error {
	syntax := schema.Syntax()
	if t.Code != i {
		return errorf(syntax, ErrIdentity, i, -1, "got the tuple for opcode %d", t.Code)
	}

	v, ok := schema.Variant(t.Tag)
	if !ok {
		return errorf(syntax, ErrSchema, i, -1, "unrecognised variant tag %d", t.Tag)
	}

	if len(t.Args) != len(v.Fields) {
		return errorf(syntax, ErrSchema, i, -1, "variant %s takes %d arguments, got %d", v.Name, len(v.Fields), len(t.Args))
	}

	rec.tag = t.Tag
	rec.prefixed = false
	rec.fields = make([]uint32, len(v.Fields))
	rec.texts = make([]string, len(v.Fields))
	for j := range v.Fields {
		f := &v.Fields[j]
		arg := t.Args[j]
		if want := f.argKind(); arg.kind != want {
			return errorf(syntax, ErrSchema, i, -1, "variant %s field %s: got %s argument, want %s", v.Name, f.Name, arg.kind, want)
		}

		switch f.Kind {
		case wire.KindString:
			if !f.Prefix && !f.Verbatim && strpool.HasPrefix(arg.str) {
				return errorf(syntax, ErrSchema, i, -1, "variant %s field %s does not permit the %q prefix: got %q", v.Name, f.Name, strpool.VariantPrefix, arg.str)
			}

			rec.texts[j] = arg.str
		case wire.KindByte, wire.KindCompact:
			if err := f.check(arg.num); err != nil {
				return errorf(syntax, ErrSchema, i, -1, "variant %s %v", v.Name, err)
			}

			rec.fields[j] = arg.num
		case wire.KindChar, wire.KindBool:
			rec.fields[j] = arg.num
		}
	}

	return nil
}

// intern replaces the string arguments of a
// resolved record with their pool indices.
func (c *Compiler) intern(schema *Schema, rec *record) {
	v, _ := schema.Variant(rec.tag)
	for j, f := range v.Fields {
		if f.Kind != wire.KindString {
			continue
		}

		index, prefixed := c.pool.Intern(rec.texts[j], f.Prefix)
		rec.fields[j] = index
		rec.prefixed = rec.prefixed || prefixed
	}

	rec.texts = nil
}

// Table is one compiled formatter table.
type Table struct {
	Syntax   string // The syntax name.
	Count    int    // The number of opcodes.
	BackRefs int    // The number of back-reference records.
	Data     []byte // The record stream.
}

// Output is the result of compiling a set of
// tables.
type Output struct {
	Pool   *strpool.Pool // The frozen string pool.
	Tables []*Table      // The tables, in the order added.
}

// Table returns the table for the given syntax.
func (o *Output) Table(syntax string) (*Table, bool) {
	for _, t := range o.Tables {
		if t.Syntax == syntax {
			return t, true
		}
	}

	return nil, false
}

// Compile freezes the string pool and emits
// every table. It can be called only once.
func (c *Compiler) Compile() (*Output, error) {
	if c.compiled {
		return nil, errorf("", ErrPoolState, -1, -1, "tables already compiled")
	}

	c.compiled = true
	c.pool.Freeze()

	out := &Output{
		Pool:   c.pool,
		Tables: make([]*Table, 0, len(c.tables)),
	}

	for _, t := range c.tables {
		table, err := emit(t)
		if err != nil {
			return nil, err
		}

		out.Tables = append(out.Tables, table)
	}

	return out, nil
}

// emit writes the record stream for a table.
func emit(t *pendingTable) (*Table, error) {
	syntax := t.schema.Syntax()
	b := cryptobyte.NewBuilder(make([]byte, 0, 2*len(t.records)))
	table := &Table{
		Syntax: syntax,
		Count:  len(t.records),
	}

	// The offset is tracked by hand so that
	// faults can report it, and so we can
	// check the builder agrees.
	offset := 0
	var prev *record
	for i := range t.records {
		rec := &t.records[i]
		var flag uint8
		if rec.prefixed {
			flag = PrefixFlag
		}

		if prev != nil && rec.sameAs(prev) {
			b.AddUint8(Previous | flag)
			offset++
			table.BackRefs++
			continue
		}

		b.AddUint8(rec.tag | flag)
		offset++

		v := t.schema.variants[rec.tag]
		for j := range v.Fields {
			f := &v.Fields[j]
			val := rec.fields[j]
			switch f.Kind {
			case wire.KindString, wire.KindCompact:
				wire.AddCompact(b, val)
				offset += wire.CompactLength(val)
			case wire.KindByte:
				if err := wire.AddByte(b, val, f.max()); err != nil {
					return nil, errorf(syntax, ErrSchema, i, offset, "variant %s field %s: %v", v.Name, f.Name, err)
				}

				offset++
			case wire.KindChar:
				wire.AddChar(b, byte(val))
				offset++
			case wire.KindBool:
				wire.AddBool(b, val != 0)
				offset++
			}
		}

		prev = rec
	}

	data, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("fmttab: internal error: failed to build %s table: %v", syntax, err)
	}

	if len(data) != offset {
		return nil, fmt.Errorf("fmttab: internal error: %s table has length %d, expected %d", syntax, len(data), offset)
	}

	table.Data = data

	return table, nil
}

// CompileTable compiles a single table with its
// own string pool.
func CompileTable(schema *Schema, tuples []Tuple) (*Table, *strpool.Pool, error) {
	c := NewCompiler()
	err := c.AddTable(schema, tuples)
	if err != nil {
		return nil, nil, err
	}

	out, err := c.Compile()
	if err != nil {
		return nil, nil, err
	}

	return out.Tables[0], out.Pool, nil
}

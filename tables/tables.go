// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package tables loads the formatter recipes for
// every syntax from a bundle.
//
// Each syntax is loaded with its own copy of the
// string pool, in parallel. Loading is all or
// nothing: if any table in the bundle fails to
// load, no tables are returned.
package tables

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"firefly-os.dev/x86fmt/bundle"
	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/strpool"
	"firefly-os.dev/x86fmt/syntax"
	"firefly-os.dev/x86fmt/syntax/gas"
	"firefly-os.dev/x86fmt/syntax/intel"
	"firefly-os.dev/x86fmt/syntax/masm"
	"firefly-os.dev/x86fmt/syntax/nasm"
)

// ErrUnavailable is returned when the recipes for
// a syntax were not included in the bundle.
var ErrUnavailable = errors.New("syntax unavailable")

// Tables holds the loaded recipes for each
// syntax in a bundle.
type Tables struct {
	count int
	gas   []gas.Recipe
	intel []intel.Recipe
	masm  []masm.Recipe
	nasm  []nasm.Recipe
}

// Open decodes a bundle and loads every table it
// contains. If expected is not negative, the
// bundle must describe exactly that many opcodes.
func Open(data []byte, expected int) (*Tables, error) {
	b, err := bundle.Decode(data)
	if err != nil {
		return nil, err
	}

	if expected >= 0 && b.Count != expected {
		return nil, &fmttab.Error{
			Kind:   fmttab.ErrFraming,
			Opcode: -1,
			Offset: -1,
			Err:    fmt.Errorf("bundle has %d opcodes, expected %d", b.Count, expected),
		}
	}

	for _, name := range b.Syntaxes() {
		if !slices.Contains(syntax.All, name) {
			return nil, fmt.Errorf("bundle contains a table for unknown syntax %q", name)
		}
	}

	t := &Tables{count: b.Count}

	var g errgroup.Group
	if data, ok := b.Table(syntax.GAS); ok {
		g.Go(func() (err error) {
			t.gas, err = load(b, data, gas.Load)
			return err
		})
	}

	if data, ok := b.Table(syntax.Intel); ok {
		g.Go(func() (err error) {
			t.intel, err = load(b, data, intel.Load)
			return err
		})
	}

	if data, ok := b.Table(syntax.MASM); ok {
		g.Go(func() (err error) {
			t.masm, err = load(b, data, masm.Load)
			return err
		})
	}

	if data, ok := b.Table(syntax.NASM); ok {
		g.Go(func() (err error) {
			t.nasm, err = load(b, data, nasm.Load)
			return err
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	return t, nil
}

// load decodes a fresh copy of the string pool
// and loads one table with it.
func load[R any](b *bundle.Bundle, data []byte, fn func([]byte, *strpool.Pool, int) ([]R, error)) ([]R, error) {
	pool, err := b.NewPool()
	if err != nil {
		return nil, err
	}

	return fn(data, pool, b.Count)
}

func available[R any](recipes []R, name string) ([]R, error) {
	if recipes == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrUnavailable)
	}

	return recipes, nil
}

// Count returns the number of opcodes in each
// table.
func (t *Tables) Count() int {
	return t.count
}

// Syntaxes returns the names of the syntaxes
// that were loaded.
func (t *Tables) Syntaxes() []string {
	var out []string
	if t.gas != nil {
		out = append(out, syntax.GAS)
	}
	if t.intel != nil {
		out = append(out, syntax.Intel)
	}
	if t.masm != nil {
		out = append(out, syntax.MASM)
	}
	if t.nasm != nil {
		out = append(out, syntax.NASM)
	}

	return out
}

// GAS returns the GNU assembler recipes, indexed
// by opcode.
func (t *Tables) GAS() ([]gas.Recipe, error) {
	return available(t.gas, syntax.GAS)
}

// Intel returns the Intel recipes, indexed by
// opcode.
func (t *Tables) Intel() ([]intel.Recipe, error) {
	return available(t.intel, syntax.Intel)
}

// MASM returns the MASM recipes, indexed by
// opcode.
func (t *Tables) MASM() ([]masm.Recipe, error) {
	return available(t.masm, syntax.MASM)
}

// NASM returns the NASM recipes, indexed by
// opcode.
func (t *Tables) NASM() ([]nasm.Recipe, error) {
	return available(t.nasm, syntax.NASM)
}

// Lazy loads a bundle the first time it is
// needed. If loading fails, every call to Get
// returns the same error and the bundle is not
// loaded again.
type Lazy struct {
	data     []byte
	expected int

	once   sync.Once
	tables *Tables
	err    error
}

// NewLazy returns a Lazy that will call Open
// with the given arguments.
func NewLazy(data []byte, expected int) *Lazy {
	return &Lazy{data: data, expected: expected}
}

// Get returns the loaded tables.
func (l *Lazy) Get() (*Tables, error) {
	l.once.Do(func() {
		l.tables, l.err = Open(l.data, l.expected)
	})

	return l.tables, l.err
}

// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package fmttab

import (
	"errors"
	"fmt"
	"strings"
)

// The kinds of table fault. Every *Error wraps
// exactly one of these, so callers can use
// errors.Is to classify a failure.
var (
	// ErrSchema indicates a record that does not
	// match its catalog: an unknown variant tag,
	// a field value outside its declared range,
	// a forbidden variant prefix, or an invalid
	// boolean.
	ErrSchema = errors.New("schema violation")

	// ErrIdentity indicates a construction tuple
	// passed at the wrong opcode index.
	ErrIdentity = errors.New("identity violation")

	// ErrFraming indicates a table whose length
	// does not match its opcode count.
	ErrFraming = errors.New("framing violation")

	// ErrPoolState indicates misuse of the string
	// pool, such as a string index beyond the end
	// of the pool.
	ErrPoolState = errors.New("pool-state violation")
)

// Error describes a fault found while compiling
// or loading a table.
type Error struct {
	Syntax string // The table's syntax, if known.
	Kind   error  // One of ErrSchema, ErrIdentity, ErrFraming, or ErrPoolState.
	Opcode int    // The opcode index, or -1.
	Offset int    // The byte offset into the table, or -1.
	Err    error  // The underlying problem.
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Syntax != "" {
		b.WriteString(e.Syntax)
		b.WriteString(": ")
	}

	b.WriteString(e.Kind.Error())
	if e.Opcode >= 0 {
		fmt.Fprintf(&b, ": opcode %d", e.Opcode)
	}

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns both the fault kind and the
// underlying error, so either can be matched
// with errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func errorf(syntax string, kind error, opcode, offset int, format string, v ...any) *Error {
	return &Error{
		Syntax: syntax,
		Kind:   kind,
		Opcode: opcode,
		Offset: offset,
		Err:    fmt.Errorf(format, v...),
	}
}

// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package defs reads and writes the definitions from
// which formatter tables are compiled.
//
// A definitions file is a YAML list of opcodes, in
// index order. Each opcode names its recipe in every
// syntax as a variant name followed by the variant's
// arguments:
//
//	- opcode: ADD_rm8_r8
//	  gas: [suffix, add, b]
//	  intel: [plain, add]
//	  masm: [plain, add]
//	  nasm: [plain, add]
//
// Arguments are converted using the variant's field
// kinds. Strings are used verbatim. Characters are a
// one-character string, or empty for none. Booleans
// are true or false. Numbers are decimal. Enumerated
// values are given by name, and flags by name,
// separated by "|".
package defs

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/syntax"
	"firefly-os.dev/x86fmt/wire"
)

// entry is one opcode in a definitions file.
type entry struct {
	Opcode  string              `yaml:"opcode"`
	Recipes map[string][]string `yaml:",inline"`
}

// Definitions is a parsed definitions file.
type Definitions struct {
	// Opcodes lists the opcode names, in index
	// order.
	Opcodes []string

	// Tuples holds the construction tuples for
	// each syntax, in index order.
	Tuples map[string][]fmttab.Tuple
}

// Load reads and parses the definitions file at
// path.
func Load(path string, schemas ...*fmttab.Schema) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %v", err)
	}

	return Parse(path, data, schemas...)
}

// Parse parses a definitions file, converting each
// recipe using the schema for its syntax. Every
// opcode must have a recipe for each schema.
// Recipes for other syntaxes are ignored.
//
// All problems in the file are reported together.
func Parse(name string, data []byte, schemas ...*fmttab.Schema) (*Definitions, error) {
	var nodes []yaml.Node
	err := yaml.Unmarshal(data, &nodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}

	defs := &Definitions{
		Opcodes: make([]string, 0, len(nodes)),
		Tuples:  make(map[string][]fmttab.Tuple),
	}

	for _, schema := range schemas {
		defs.Tuples[schema.Syntax()] = make([]fmttab.Tuple, 0, len(nodes))
	}

	var errs *multierror.Error
	seen := make(map[string]int)
	for code, node := range nodes {
		pos := fmt.Sprintf("%s:%d", name, node.Line)

		var e entry
		err := node.Decode(&e)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %v", pos, err))
			continue
		}

		if e.Opcode == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: opcode %d has no name", pos, code))
		} else if prev, ok := seen[e.Opcode]; ok {
			errs = multierror.Append(errs, fmt.Errorf("%s: opcode %s already defined as opcode %d", pos, e.Opcode, prev))
		} else {
			seen[e.Opcode] = code
		}

		defs.Opcodes = append(defs.Opcodes, e.Opcode)
		for name := range e.Recipes {
			if !slices.Contains(syntax.All, name) {
				errs = multierror.Append(errs, fmt.Errorf("%s: opcode %s: unknown syntax %q", pos, e.Opcode, name))
			}
		}

		for _, schema := range schemas {
			name := schema.Syntax()
			recipe, ok := e.Recipes[name]
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("%s: opcode %s has no %s recipe", pos, e.Opcode, name))
				continue
			}

			tuple, err := Convert(schema, recipe)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: opcode %s: %s: %v", pos, e.Opcode, name, err))
				continue
			}

			tuple.Code = code
			defs.Tuples[name] = append(defs.Tuples[name], tuple)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return defs, nil
}

// Convert turns a recipe, a variant name followed
// by its arguments, into a construction tuple.
// The tuple's opcode index is left as zero.
func Convert(schema *fmttab.Schema, recipe []string) (fmttab.Tuple, error) {
	if len(recipe) == 0 {
		return fmttab.Tuple{}, fmt.Errorf("missing variant name")
	}

	variant, ok := schema.Lookup(recipe[0])
	if !ok {
		return fmttab.Tuple{}, fmt.Errorf("unknown variant %q", recipe[0])
	}

	args := recipe[1:]
	if len(args) != len(variant.Fields) {
		return fmttab.Tuple{}, fmt.Errorf("variant %s takes %d arguments, got %d", variant.Name, len(variant.Fields), len(args))
	}

	tuple := fmttab.Tuple{
		Tag:  variant.Tag,
		Args: make([]fmttab.Arg, len(args)),
	}

	for i, text := range args {
		arg, err := parseArg(&variant.Fields[i], text)
		if err != nil {
			return fmttab.Tuple{}, fmt.Errorf("variant %s field %s: %v", variant.Name, variant.Fields[i].Name, err)
		}

		tuple.Args[i] = arg
	}

	return tuple, nil
}

func parseArg(f *fmttab.FieldSpec, text string) (fmttab.Arg, error) {
	switch f.Kind {
	case wire.KindString:
		return fmttab.Str(text), nil
	case wire.KindChar:
		switch len(text) {
		case 0:
			return fmttab.Char(0), nil
		case 1:
			return fmttab.Char(text[0]), nil
		}

		return fmttab.Arg{}, fmt.Errorf("invalid character %q", text)
	case wire.KindBool:
		switch text {
		case "true":
			return fmttab.Bool(true), nil
		case "false":
			return fmttab.Bool(false), nil
		}

		return fmttab.Arg{}, fmt.Errorf("invalid boolean %q", text)
	}

	switch {
	case f.Enum != nil:
		v, err := f.Enum.Parse(text)
		if err != nil {
			return fmttab.Arg{}, err
		}

		return fmttab.Uint(v), nil
	case f.Flags != nil:
		v, err := f.Flags.Parse(text)
		if err != nil {
			return fmttab.Arg{}, err
		}

		return fmttab.Uint(v), nil
	}

	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return fmttab.Arg{}, fmt.Errorf("invalid number %q", text)
	}

	return fmttab.Uint(uint32(v)), nil
}

// Format turns a construction tuple back into a
// recipe, a variant name followed by its arguments.
func Format(schema *fmttab.Schema, tuple fmttab.Tuple) ([]string, error) {
	variant, ok := schema.Variant(tuple.Tag)
	if !ok {
		return nil, fmt.Errorf("unrecognised variant tag %d", tuple.Tag)
	}

	if len(tuple.Args) != len(variant.Fields) {
		return nil, fmt.Errorf("variant %s takes %d arguments, got %d", variant.Name, len(variant.Fields), len(tuple.Args))
	}

	out := make([]string, 1+len(tuple.Args))
	out[0] = variant.Name
	for i, arg := range tuple.Args {
		f := &variant.Fields[i]
		var text string
		switch {
		case f.Kind == wire.KindString:
			text = arg.Text()
		case f.Kind == wire.KindChar:
			if arg.Num() != 0 {
				text = string(rune(arg.Num()))
			}
		case f.Kind == wire.KindBool:
			text = strconv.FormatBool(arg.Num() != 0)
		case f.Enum != nil:
			text = f.Enum.Format(arg.Num())
		case f.Flags != nil:
			text = f.Flags.Format(arg.Num())
		default:
			text = strconv.FormatUint(uint64(arg.Num()), 10)
		}

		out[i+1] = text
	}

	return out, nil
}

// Marshal writes definitions in the form read by
// Parse. Recipes are written for each schema, in
// the order given.
func Marshal(defs *Definitions, schemas ...*fmttab.Schema) ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for code, name := range defs.Opcodes {
		item := &yaml.Node{Kind: yaml.MappingNode}
		item.Content = append(item.Content, scalar("opcode"), scalar(name))
		for _, schema := range schemas {
			label := schema.Syntax()
			tuples := defs.Tuples[label]
			if code >= len(tuples) {
				return nil, fmt.Errorf("opcode %s has no %s recipe", name, label)
			}

			recipe, err := Format(schema, tuples[code])
			if err != nil {
				return nil, fmt.Errorf("opcode %s: %s: %v", name, label, err)
			}

			list := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, text := range recipe {
				list.Content = append(list.Content, scalar(text))
			}

			item.Content = append(item.Content, scalar(label), list)
		}

		seq.Content = append(seq.Content, item)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode definitions: %v", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to encode definitions: %v", err)
	}

	return buf.Bytes(), nil
}

// scalar returns a string node. The empty
// string is quoted so it is not read as null.
func scalar(text string) *yaml.Node {
	if text == "" {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.SingleQuotedStyle}
	}

	return &yaml.Node{Kind: yaml.ScalarNode, Value: text}
}

// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"

	"firefly-os.dev/x86fmt/defs"
	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/syntax"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Print a starter definitions file",
	Long: `Stub prints a definitions file with one opcode for each
instruction known to the Go x86 disassembler, each rendered
as its plain mnemonic in every syntax.`,
	Example: `
# Start a new definitions file
x86fmt stub > x86.yaml
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stub(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(stubCmd)
}

// stubOps returns the name of every instruction
// known to x86asm.
func stubOps() []string {
	var ops []string
	for op := x86asm.Op(1); ; op++ {
		name := op.String()
		if strings.HasPrefix(name, "Op(") {
			break
		}

		ops = append(ops, name)
	}

	return ops
}

// stub writes a definitions file for stubOps.
func stub(w io.Writer) error {
	schemas, err := schemasFor(syntax.All)
	if err != nil {
		return err
	}

	d := &defs.Definitions{
		Opcodes: stubOps(),
		Tuples:  make(map[string][]fmttab.Tuple),
	}

	for _, schema := range schemas {
		plain, ok := schema.Lookup("plain")
		if !ok {
			return fmt.Errorf("%s catalog has no plain variant", schema.Syntax())
		}

		tuples := make([]fmttab.Tuple, len(d.Opcodes))
		for i, op := range d.Opcodes {
			tuples[i] = fmttab.Tuple{
				Code: i,
				Tag:  plain.Tag,
				Args: []fmttab.Arg{fmttab.Str(strings.ToLower(op))},
			}
		}

		d.Tuples[schema.Syntax()] = tuples
	}

	data, err := defs.Marshal(d, schemas...)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

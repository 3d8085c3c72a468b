// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"firefly-os.dev/x86fmt/defs"
	"firefly-os.dev/x86fmt/syntax"
	"firefly-os.dev/x86fmt/tables"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [bundle]",
	Short: "Print the recipes in a bundle",
	Long: `Dump loads every table in a bundle and prints the
recipe for each opcode.`,
	Example: `
# Print every recipe
x86fmt dump x86fmt.bin

# Print the NASM recipes, with opcode names
x86fmt dump --syntax nasm --defs x86.yaml x86fmt.bin
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read bundle: %v", err)
		}

		only, _ := cmd.Flags().GetStringSlice("syntax")

		var names []string
		if path, _ := cmd.Flags().GetString("defs"); path != "" {
			d, err := defs.Load(path)
			if err != nil {
				return err
			}

			names = d.Opcodes
		}

		return dump(cmd.OutOrStdout(), data, only, names)
	},
}

func init() {
	dumpCmd.Flags().StringSlice("syntax", nil, "Only print these syntaxes")
	dumpCmd.Flags().String("defs", "", "Definitions file to take opcode names from")

	rootCmd.AddCommand(dumpCmd)
}

// dump prints the recipes in a bundle. If only
// is not empty, other syntaxes are skipped. If
// names is not nil, it holds the opcode names.
func dump(w io.Writer, data []byte, only, names []string) error {
	for _, name := range only {
		if !slices.Contains(syntax.All, name) {
			return fmt.Errorf("unknown syntax %q", name)
		}
	}

	t, err := tables.Open(data, -1)
	if err != nil {
		return err
	}

	if names != nil && len(names) != t.Count() {
		return fmt.Errorf("bundle has %d opcodes, but the definitions have %d", t.Count(), len(names))
	}

	for _, name := range t.Syntaxes() {
		if len(only) != 0 && !slices.Contains(only, name) {
			continue
		}

		switch name {
		case syntax.GAS:
			recipes, _ := t.GAS()
			printRecipes(w, name, names, recipes)
		case syntax.Intel:
			recipes, _ := t.Intel()
			printRecipes(w, name, names, recipes)
		case syntax.MASM:
			recipes, _ := t.MASM()
			printRecipes(w, name, names, recipes)
		case syntax.NASM:
			recipes, _ := t.NASM()
			printRecipes(w, name, names, recipes)
		}
	}

	return nil
}

func printRecipes[R any](w io.Writer, name string, names []string, recipes []R) {
	for i, r := range recipes {
		if names != nil {
			fmt.Fprintf(w, "%s\t%d\t%s\t%+v\n", name, i, names[i], r)
		} else {
			fmt.Fprintf(w, "%s\t%d\t%+v\n", name, i, r)
		}
	}
}

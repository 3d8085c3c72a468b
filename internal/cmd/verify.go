// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"rsc.io/diff"

	"firefly-os.dev/x86fmt/bundle"
	"firefly-os.dev/x86fmt/defs"
	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/internal/logging"
	"firefly-os.dev/x86fmt/tables"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [bundle] [definitions]",
	Short: "Check a bundle against its definitions",
	Long: `Verify decodes every table in a bundle and checks that
it describes exactly the recipes in the definitions file.`,
	Example: `
# Check a bundle
x86fmt verify x86fmt.bin x86.yaml
  `,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read bundle: %v", err)
		}

		err = verify(cmd.OutOrStdout(), data, args[1], logger)
		if err != nil {
			return err
		}

		logger.Info("bundle matches definitions", "bundle", args[0], "definitions", args[1])

		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// verify checks that the bundle in data matches
// the definitions file at path, describing any
// differences to w.
func verify(w io.Writer, data []byte, path string, lg *logging.Logger) error {
	b, err := bundle.Decode(data)
	if err != nil {
		return err
	}

	schemas, err := schemasFor(b.Syntaxes())
	if err != nil {
		return err
	}

	d, err := defs.Load(path, schemas...)
	if err != nil {
		return err
	}

	// Check that every table loads into recipes.
	_, err = tables.Open(data, len(d.Opcodes))
	if err != nil {
		return err
	}

	mismatches := 0
	for _, schema := range schemas {
		name := schema.Syntax()
		pool, err := b.NewPool()
		if err != nil {
			return err
		}

		table, _ := b.Table(name)
		got, err := fmttab.Decode(schema, table, pool, b.Count)
		if err != nil {
			return err
		}

		want, err := listing(schema, d.Opcodes, d.Tuples[name])
		if err != nil {
			return err
		}

		have, err := listing(schema, d.Opcodes, got)
		if err != nil {
			return err
		}

		if have != want {
			mismatches++
			fmt.Fprintf(w, "%s:\n%s", name, diff.Format(have, want))
			continue
		}

		lg.Debug("verified table", "syntax", name, "opcodes", len(got))
	}

	if mismatches != 0 {
		return fmt.Errorf("%d of %d tables do not match the definitions", mismatches, len(schemas))
	}

	return nil
}

// listing describes one recipe per line.
func listing(schema *fmttab.Schema, names []string, tuples []fmttab.Tuple) (string, error) {
	var b strings.Builder
	for i, tuple := range tuples {
		recipe, err := defs.Format(schema, tuple)
		if err != nil {
			return "", fmt.Errorf("opcode %d: %v", i, err)
		}

		fmt.Fprintf(&b, "%s: %q\n", names[i], recipe)
	}

	return b.String(), nil
}

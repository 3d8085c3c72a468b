// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package cmd implements the x86fmt build driver,
// which compiles formatter definitions into a
// bundle and inspects existing bundles.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/internal/logging"
	"firefly-os.dev/x86fmt/syntax"
	"firefly-os.dev/x86fmt/syntax/gas"
	"firefly-os.dev/x86fmt/syntax/intel"
	"firefly-os.dev/x86fmt/syntax/masm"
	"firefly-os.dev/x86fmt/syntax/nasm"
)

// logger is set up before any command runs.
var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "x86fmt",
	Short: "Build and inspect x86 formatter tables",
	Long: `x86fmt compiles formatter definitions into a checksummed
bundle of recipe tables, one per assembly syntax, and
inspects existing bundles.`,
	Example: `
# Compile the tables described by a config file
x86fmt gen -c x86fmt.toml

# Show the GNU assembler recipes in a bundle
x86fmt dump --syntax gas x86fmt.bin
  `,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New()
		if err != nil {
			return err
		}

		if name, _ := cmd.Flags().GetString("log-level"); name != "" {
			level, err := logging.ParseLevel(name)
			if err != nil {
				return err
			}

			logger.SetLevel(level)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, or error")
}

// Execute runs the build driver.
func Execute() {
	// fang's styled output is only useful in
	// a terminal.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}

		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// schemaFor returns the catalog schema for the
// named syntax.
func schemaFor(name string) (*fmttab.Schema, error) {
	switch name {
	case syntax.GAS:
		return gas.Catalog.Schema(), nil
	case syntax.Intel:
		return intel.Catalog.Schema(), nil
	case syntax.MASM:
		return masm.Catalog.Schema(), nil
	case syntax.NASM:
		return nasm.Catalog.Schema(), nil
	}

	return nil, fmt.Errorf("unknown syntax %q", name)
}

func schemasFor(names []string) ([]*fmttab.Schema, error) {
	schemas := make([]*fmttab.Schema, len(names))
	for i, name := range names {
		schema, err := schemaFor(name)
		if err != nil {
			return nil, err
		}

		schemas[i] = schema
	}

	return schemas, nil
}

// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firefly-os.dev/x86fmt/internal/config"
)

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the x86fmt TOML configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.Schema()
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

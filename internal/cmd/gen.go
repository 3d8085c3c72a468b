// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"firefly-os.dev/x86fmt/bundle"
	"firefly-os.dev/x86fmt/defs"
	"firefly-os.dev/x86fmt/fmttab"
	"firefly-os.dev/x86fmt/internal/config"
	"firefly-os.dev/x86fmt/internal/logging"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"join": strings.Join,
}).ParseFS(templatesFS, "templates/*.tmpl"))

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Compile definitions into a bundle",
	Long: `Gen compiles the definitions for each syntax into one
bundle, sharing a single string pool, and optionally writes
a Go source file that embeds the bundle.`,
	Example: `
# Compile using a config file
x86fmt gen -c x86fmt.toml

# Compile two syntaxes without a config file
x86fmt gen --defs x86.yaml --out x86fmt.bin --syntax gas,intel
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return generate(cfg, logger)
	},
}

func init() {
	genCmd.Flags().StringP("config", "c", "", "Path to the TOML config file")
	genCmd.Flags().String("defs", "", "Path to the definitions file (overrides the config)")
	genCmd.Flags().StringP("out", "o", "", "Path to write the bundle (overrides the config)")
	genCmd.Flags().StringSlice("syntax", nil, "Syntaxes to compile (overrides the config)")
	genCmd.Flags().String("embed", "", "Path to write a Go file embedding the bundle")
	genCmd.Flags().String("package", "", "Package name for the embedding Go file")

	rootCmd.AddCommand(genCmd)
}

// loadConfig reads the config file, if any, then
// applies any flags that override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("defs") {
		cfg.Definitions, _ = cmd.Flags().GetString("defs")
	}

	if cmd.Flags().Changed("out") {
		cfg.Bundle, _ = cmd.Flags().GetString("out")
	}

	if cmd.Flags().Changed("syntax") {
		cfg.Syntaxes, _ = cmd.Flags().GetStringSlice("syntax")
	}

	if cmd.Flags().Changed("embed") {
		if cfg.Embed == nil {
			cfg.Embed = new(config.Embed)
		}

		cfg.Embed.Path, _ = cmd.Flags().GetString("embed")
	}

	if cmd.Flags().Changed("package") {
		if cfg.Embed == nil {
			return nil, fmt.Errorf("--package requires --embed")
		}

		cfg.Embed.Package, _ = cmd.Flags().GetString("package")
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		level, _ := logging.ParseLevel(cfg.LogLevel)
		logger.SetLevel(level)
	}

	return cfg, nil
}

// generate compiles the bundle described by cfg
// and writes it out.
func generate(cfg *config.Config, lg *logging.Logger) error {
	schemas, err := schemasFor(cfg.Syntaxes)
	if err != nil {
		return err
	}

	lg.Debug("reading definitions", "path", cfg.Definitions)
	d, err := defs.Load(cfg.Definitions, schemas...)
	if err != nil {
		return err
	}

	c := fmttab.NewCompiler()
	for _, schema := range schemas {
		err = c.AddTable(schema, d.Tuples[schema.Syntax()])
		if err != nil {
			return err
		}
	}

	out, err := c.Compile()
	if err != nil {
		return err
	}

	for _, t := range out.Tables {
		lg.Info("compiled table", "syntax", t.Syntax, "opcodes", t.Count, "back-references", t.BackRefs, "bytes", len(t.Data))
	}

	lg.Debug("compiled string pool", "strings", out.Pool.Len())

	b, err := bundle.New(out)
	if err != nil {
		return err
	}

	data, err := b.MarshalBinary()
	if err != nil {
		return err
	}

	err = writeFile(cfg.Bundle, data)
	if err != nil {
		return err
	}

	lg.Info("wrote bundle", "path", cfg.Bundle, "bytes", len(data))

	if cfg.Embed == nil {
		return nil
	}

	src, err := embedSource(cfg.Embed, filepath.Base(cfg.Bundle), b)
	if err != nil {
		return err
	}

	err = writeFile(cfg.Embed.Path, src)
	if err != nil {
		return err
	}

	lg.Info("wrote embedding source", "path", cfg.Embed.Path, "package", cfg.Embed.Package)

	return nil
}

func writeFile(name string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(name), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", filepath.Dir(name), err)
	}

	err = os.WriteFile(name, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %v", name, err)
	}

	return nil
}

// embedSource renders the Go source file that
// embeds the bundle file.
func embedSource(e *config.Embed, file string, b *bundle.Bundle) ([]byte, error) {
	data := struct {
		Command  string
		Package  string
		Variable string
		File     string
		Count    int
		Syntaxes []string
	}{
		Command:  "x86fmt gen",
		Package:  e.Package,
		Variable: e.Variable,
		File:     file,
		Count:    b.Count,
		Syntaxes: b.Syntaxes(),
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, "embed.go.tmpl", data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute embed.go.tmpl template: %v", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated source: %v", err)
	}

	return formatted, nil
}

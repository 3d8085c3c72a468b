// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package config contains the build driver's
// configuration, which is read from a TOML file.
package config

import (
	"encoding/json"
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/invopop/jsonschema"

	"firefly-os.dev/x86fmt/internal/logging"
	"firefly-os.dev/x86fmt/syntax"
)

// Config describes how to build a bundle.
type Config struct {
	Definitions string   `toml:"definitions" json:"definitions" jsonschema:"title=Definitions,description=Path to the YAML definitions file"`
	Bundle      string   `toml:"bundle" json:"bundle" jsonschema:"title=Bundle,description=Path the compiled bundle is written to"`
	Syntaxes    []string `toml:"syntaxes" json:"syntaxes,omitempty" jsonschema:"title=Syntaxes,description=The syntaxes to compile (default: all),enum=gas,enum=intel,enum=masm,enum=nasm"`
	LogLevel    string   `toml:"log_level" json:"log_level,omitempty" jsonschema:"title=Log level,description=Overrides X86FMT_LOG_LEVEL,enum=debug,enum=info,enum=warn,enum=error"`
	Embed       *Embed   `toml:"embed" json:"embed,omitempty" jsonschema:"title=Embed,description=Generate a Go file that embeds the bundle"`
}

// Embed describes the Go source file that embeds
// a bundle.
type Embed struct {
	Path     string `toml:"path" json:"path" jsonschema:"title=Path,description=Path to the generated Go file"`
	Package  string `toml:"package" json:"package" jsonschema:"title=Package,description=Package name of the generated file"`
	Variable string `toml:"variable" json:"variable,omitempty" jsonschema:"title=Variable,description=Name of the embedded variable (default: Bundle)"`
}

// Default returns the configuration used when no
// file is given.
func Default() *Config {
	return &Config{
		Definitions: "defs.yaml",
		Bundle:      "x86fmt.bin",
		Syntaxes:    slices.Clone(syntax.All),
	}
}

// Load reads the configuration at path. Relative
// paths in the file are relative to its directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		return nil, fmt.Errorf("%s: unknown config keys: %s", path, strings.Join(keys, ", "))
	}

	dir := filepath.Dir(path)
	cfg.Definitions = resolve(dir, cfg.Definitions)
	cfg.Bundle = resolve(dir, cfg.Bundle)
	if cfg.Embed != nil {
		cfg.Embed.Path = resolve(dir, cfg.Embed.Path)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}

// Validate checks that the configuration is
// complete and consistent.
func (c *Config) Validate() error {
	if c.Definitions == "" {
		return fmt.Errorf("no definitions file")
	}

	if c.Bundle == "" {
		return fmt.Errorf("no bundle path")
	}

	if len(c.Syntaxes) == 0 {
		return fmt.Errorf("no syntaxes")
	}

	seen := make(map[string]bool)
	for _, name := range c.Syntaxes {
		if !slices.Contains(syntax.All, name) {
			return fmt.Errorf("unknown syntax %q", name)
		}

		if seen[name] {
			return fmt.Errorf("syntax %q listed twice", name)
		}

		seen[name] = true
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if e := c.Embed; e != nil {
		if e.Variable == "" {
			e.Variable = "Bundle"
		}

		switch {
		case e.Path == "":
			return fmt.Errorf("embed: no path")
		case !token.IsIdentifier(e.Package):
			return fmt.Errorf("embed: invalid package name %q", e.Package)
		case !token.IsIdentifier(e.Variable):
			return fmt.Errorf("embed: invalid variable name %q", e.Variable)
		case filepath.Dir(e.Path) != filepath.Dir(c.Bundle):
			// go:embed cannot refer to files in
			// other directories.
			return fmt.Errorf("embed: %s must be in the same directory as %s", e.Path, c.Bundle)
		}
	}

	return nil
}

// Schema returns the JSON schema for the
// configuration file.
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	data, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return data, nil
}

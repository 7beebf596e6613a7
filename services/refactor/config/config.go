// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads per-project analysis configuration from
// refactor.config.yaml at the project root.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = "refactor.config.yaml"

// ImpurePattern is one user-supplied impurity rule appended to the
// built-in pattern table.
type ImpurePattern struct {
	// Type is the impurity category: io, global, nondeterministic or
	// external.
	Type string `yaml:"type"`

	// Pattern is the call prefix to match ("kafka.", "myLogger").
	Pattern string `yaml:"pattern"`

	// Description explains the evidence in reports.
	Description string `yaml:"description"`
}

// Config holds user-provided analysis overrides.
//
// Description:
//
//	Loaded from <projectRoot>/refactor.config.yaml. All fields are
//	optional. A missing config file is not an error (zero-config works
//	out of the box).
//
// Thread Safety: Safe for concurrent reads after construction.
type Config struct {
	// Ignore lists path globs excluded from discovery, in addition to
	// the built-in skips (node_modules, vendor, dot-directories).
	// Example: ["**/*.test.ts", "build/**"]
	Ignore []string `yaml:"ignore"`

	// EntryPoints lists project-relative entry-point files, overriding
	// manifest detection when non-empty.
	EntryPoints []string `yaml:"entry_points"`

	// Aliases maps import specifier prefixes to path prefixes.
	// Example: {"@/": "src/"}
	Aliases map[string]string `yaml:"aliases"`

	// Cache toggles baseline persistence. Defaults to true.
	Cache *bool `yaml:"cache"`

	// ImpurePatterns extends the built-in purity pattern table.
	ImpurePatterns []ImpurePattern `yaml:"impure_patterns"`

	// Workers bounds the parallel parse pool. Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// CacheEnabled reports the cache toggle with its default applied.
func (c *Config) CacheEnabled() bool {
	return c.Cache == nil || *c.Cache
}

// Load reads refactor.config.yaml from the project root.
//
// Description:
//
//	If the project root is empty or the file does not exist, returns an
//	empty config with no error. Only returns an error if the file exists
//	but cannot be read or parsed.
//
// Inputs:
//
//	projectRoot - Absolute path to the project root. May be empty.
//
// Outputs:
//
//	*Config - The parsed config, never nil on success.
//	error - Non-nil only if the file exists but has invalid YAML.
//
// Thread Safety: Safe for concurrent use (stateless function).
func Load(projectRoot string) (*Config, error) {
	if projectRoot == "" {
		return &Config{}, nil
	}

	configPath := filepath.Join(projectRoot, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}
	return &cfg, nil
}

// validate rejects configurations the analysis cannot honor.
func (c *Config) validate() error {
	for i, p := range c.ImpurePatterns {
		switch p.Type {
		case "io", "global", "nondeterministic", "external":
		default:
			return fmt.Errorf("impure_patterns[%d]: unknown type %q", i, p.Type)
		}
		if p.Pattern == "" {
			return fmt.Errorf("impure_patterns[%d]: empty pattern", i)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return dir
}

func TestLoad_MissingFileIsZeroConfig(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("missing config file must not error: %v", err)
	}
	if !cfg.CacheEnabled() {
		t.Error("cache should default to enabled")
	}
	if len(cfg.Ignore) != 0 || len(cfg.EntryPoints) != 0 {
		t.Errorf("zero config carries values: %+v", cfg)
	}

	if _, err := Load(""); err != nil {
		t.Errorf("empty project root must not error: %v", err)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := writeConfig(t, `
ignore:
  - "build/**"
  - "**/*.test.ts"
entry_points:
  - src/index.ts
aliases:
  "@/": src/
cache: false
workers: 4
impure_patterns:
  - type: external
    pattern: "kafka."
    description: message publish
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Ignore) != 2 {
		t.Errorf("Ignore = %v, want 2 globs", cfg.Ignore)
	}
	if len(cfg.EntryPoints) != 1 || cfg.EntryPoints[0] != "src/index.ts" {
		t.Errorf("EntryPoints = %v", cfg.EntryPoints)
	}
	if cfg.Aliases["@/"] != "src/" {
		t.Errorf("Aliases = %v", cfg.Aliases)
	}
	if cfg.CacheEnabled() {
		t.Error("cache: false not honored")
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.ImpurePatterns) != 1 || cfg.ImpurePatterns[0].Type != "external" {
		t.Errorf("ImpurePatterns = %+v", cfg.ImpurePatterns)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := writeConfig(t, "ignore: [unclosed")
	if _, err := Load(dir); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestLoad_RejectsBadPatternType(t *testing.T) {
	dir := writeConfig(t, `
impure_patterns:
  - type: cosmic
    pattern: "x."
`)
	if _, err := Load(dir); err == nil {
		t.Error("unknown impurity type should fail validation")
	}
}

func TestLoad_RejectsNegativeWorkers(t *testing.T) {
	dir := writeConfig(t, "workers: -2")
	if _, err := Load(dir); err == nil {
		t.Error("negative workers should fail validation")
	}
}

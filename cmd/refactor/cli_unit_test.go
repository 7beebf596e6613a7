// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Unit tests for CLI helpers. No server or baseline store required.

package main

import (
	"path/filepath"
	"testing"
)

func TestProjectRootArg(t *testing.T) {
	abs, err := projectRootArg([]string{"/some/project"})
	if err != nil {
		t.Fatalf("projectRootArg failed: %v", err)
	}
	if abs != "/some/project" {
		t.Errorf("abs = %q, want /some/project", abs)
	}

	// No argument defaults to the working directory.
	abs, err = projectRootArg(nil)
	if err != nil {
		t.Fatalf("projectRootArg with no args failed: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("default root %q is not absolute", abs)
	}
}

func TestCacheDir_EnvOverride(t *testing.T) {
	t.Setenv("REFACTOR_CACHE_DIR", "/custom/cache")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir failed: %v", err)
	}
	if dir != "/custom/cache" {
		t.Errorf("dir = %q, want env override", dir)
	}
}

func TestRelevantChange(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/a.ts", true},
		{"src/a.tsx", true},
		{"src/a.py", true},
		{"src/a.mjs", true},
		{"README.md", false},
		{"src/a.go", false},
		{"src/.a.ts.swp", false},
	}
	for _, tt := range tests {
		if got := relevantChange(tt.path); got != tt.want {
			t.Errorf("relevantChange(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	want := []string{"analyze", "cycles", "impact", "unused", "compare",
		"scan", "verify", "diff", "serve", "watch"}
	for _, name := range want {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

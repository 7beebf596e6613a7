// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// conventionalEntryPoints are checked when no manifest names any.
var conventionalEntryPoints = []string{
	"index.ts", "index.js", "src/index.ts", "src/index.js",
	"main.ts", "main.js", "src/main.ts", "src/main.js",
	"main.py", "app.py", "__main__.py",
}

// packageManifest is the subset of package.json entry-point fields.
type packageManifest struct {
	Main   string `json:"main"`
	Module string `json:"module"`
	Bin    any    `json:"bin"`
}

// pyProject is the subset of pyproject.toml entry-point fields.
type pyProject struct {
	Project struct {
		Scripts map[string]string `toml:"scripts"`
	} `toml:"project"`
}

// EntryPoints determines the project's entry-point files.
//
// Description:
//
//	Precedence: explicit config entry_points win outright; otherwise
//	package.json main/module/bin entries that exist in the discovered
//	file set; otherwise conventional locations (index/main files).
//	Results are project-relative, sorted, and always members of files.
func (p *Pipeline) EntryPoints(projectRoot string, files []string) []string {
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f] = true
	}

	if len(p.cfg.EntryPoints) > 0 {
		out := make([]string, 0, len(p.cfg.EntryPoints))
		for _, e := range p.cfg.EntryPoints {
			e = strings.TrimPrefix(filepath.ToSlash(e), "./")
			if known[e] {
				out = append(out, e)
			} else {
				slog.Warn("configured entry point not in project", slog.String("entry", e))
			}
		}
		sort.Strings(out)
		return out
	}

	entries := manifestEntryPoints(projectRoot, known)
	entries = append(entries, pyprojectEntryPoints(projectRoot, known, entries)...)
	if len(entries) == 0 {
		for _, candidate := range conventionalEntryPoints {
			if known[candidate] {
				entries = append(entries, candidate)
			}
		}
	}
	sort.Strings(entries)
	return entries
}

// manifestEntryPoints reads package.json entry fields.
func manifestEntryPoints(projectRoot string, known map[string]bool) []string {
	data, err := os.ReadFile(filepath.Join(projectRoot, "package.json"))
	if err != nil {
		return nil
	}
	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		slog.Warn("unparseable package.json", slog.Any("error", err))
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(raw string) {
		rel := strings.TrimPrefix(filepath.ToSlash(raw), "./")
		if rel == "" || seen[rel] || !known[rel] {
			return
		}
		seen[rel] = true
		out = append(out, rel)
	}

	add(manifest.Main)
	add(manifest.Module)
	switch bin := manifest.Bin.(type) {
	case string:
		add(bin)
	case map[string]any:
		for _, v := range bin {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	}
	return out
}

// pyprojectEntryPoints maps [project.scripts] targets to source files.
// Script values look like "mypkg.cli:main"; the module path resolves to
// mypkg/cli.py or a package __init__.py.
func pyprojectEntryPoints(projectRoot string, known map[string]bool, already []string) []string {
	data, err := os.ReadFile(filepath.Join(projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}
	var manifest pyProject
	if err := toml.Unmarshal(data, &manifest); err != nil {
		slog.Warn("unparseable pyproject.toml", slog.Any("error", err))
		return nil
	}

	seen := make(map[string]bool, len(already))
	for _, e := range already {
		seen[e] = true
	}
	var out []string
	for _, target := range manifest.Project.Scripts {
		module, _, _ := strings.Cut(target, ":")
		base := strings.ReplaceAll(strings.TrimSpace(module), ".", "/")
		for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
			if known[candidate] && !seen[candidate] {
				seen[candidate] = true
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

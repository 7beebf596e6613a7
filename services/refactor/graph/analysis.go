// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds the project-wide symbol and dependency graph:
// per-export usage traces, file-level dependency edges, circular dependency
// detection, refactor impact computation, unused-export detection and
// export-surface comparison.
//
// A ProjectAnalysis is built once from a fixed set of parse results and is
// immutable afterwards. Building is idempotent: the same parse results
// always produce the same analysis.
package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

// SymbolTrace is the complete usage picture of one export.
type SymbolTrace struct {
	// Symbol is the traced export.
	Symbol ast.Export `json:"symbol"`

	// ImportedBy lists every import binding that targets this export,
	// including namespace and re-export bindings.
	ImportedBy []ast.Import `json:"imported_by,omitempty"`

	// Usages are the classified cross-file usage sites.
	Usages []ast.Usage `json:"usages,omitempty"`

	// Dependents are the files that use or import the symbol, first
	// occurrence order, no duplicates.
	Dependents []string `json:"dependents,omitempty"`

	// UsageCount always equals len(Usages).
	UsageCount int `json:"usage_count"`
}

// DependencyGraph holds file-level dependency edges in both directions.
//
// Forward[A] contains B exactly when A imports something that resolves to
// B; Reverse[B] then contains A. Only resolved project-internal imports
// become edges; external packages never appear.
type DependencyGraph struct {
	Forward map[string][]string `json:"forward"`
	Reverse map[string][]string `json:"reverse"`
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Forward: make(map[string][]string),
		Reverse: make(map[string][]string),
	}
}

// AddEdge records that from depends on to, maintaining both directions.
// Duplicate edges are ignored.
func (g *DependencyGraph) AddEdge(from, to string) {
	if from == "" || to == "" {
		return
	}
	for _, existing := range g.Forward[from] {
		if existing == to {
			return
		}
	}
	g.Forward[from] = append(g.Forward[from], to)
	g.Reverse[to] = append(g.Reverse[to], from)
}

// DependsOn reports whether from has a direct edge to to.
func (g *DependencyGraph) DependsOn(from, to string) bool {
	for _, t := range g.Forward[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Validate checks the forward/reverse mirror invariant.
func (g *DependencyGraph) Validate() error {
	for from, tos := range g.Forward {
		for _, to := range tos {
			if !contains(g.Reverse[to], from) {
				return fmt.Errorf("edge %s -> %s missing from reverse graph", from, to)
			}
		}
	}
	for to, froms := range g.Reverse {
		for _, from := range froms {
			if !contains(g.Forward[from], to) {
				return fmt.Errorf("edge %s -> %s missing from forward graph", from, to)
			}
		}
	}
	return nil
}

// Cycle is one circular dependency, as an ordered path of files. A
// self-loop is a one-element cycle.
type Cycle []string

// String renders the cycle as "a -> b -> a".
func (c Cycle) String() string {
	if len(c) == 0 {
		return ""
	}
	out := c[0]
	for _, f := range c[1:] {
		out += " -> " + f
	}
	return out + " -> " + c[0]
}

// ProjectAnalysis is the aggregate result of one project scan.
//
// Immutable after Build returns.
type ProjectAnalysis struct {
	// Files are the analyzed project-relative paths, sorted.
	Files []string `json:"files"`

	// Results holds the per-file parse results, keyed by path. Import
	// ResolvedPath fields are populated.
	Results map[string]*ast.ParseResult `json:"-"`

	// SymbolTraces maps export keys ("filePath:name") to their traces.
	SymbolTraces map[string]*SymbolTrace `json:"symbol_traces"`

	// Graph is the file-level dependency graph.
	Graph *DependencyGraph `json:"graph"`

	// CircularDependencies lists the detected cycles, rotation-deduplicated.
	CircularDependencies []Cycle `json:"circular_dependencies,omitempty"`

	// Warnings carry file-local problems that did not abort the analysis.
	Warnings []string `json:"warnings,omitempty"`

	// GeneratedAt is the build timestamp.
	GeneratedAt time.Time `json:"generated_at"`
}

// Trace returns the symbol trace for an export key, or nil.
func (a *ProjectAnalysis) Trace(key string) *SymbolTrace {
	return a.SymbolTraces[key]
}

// ExportsOf returns the exports declared by one file.
func (a *ProjectAnalysis) ExportsOf(filePath string) []ast.Export {
	r, ok := a.Results[filePath]
	if !ok {
		return nil
	}
	return r.Exports
}

// sortedKeys returns the map's keys in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

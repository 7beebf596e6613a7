// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

// BuilderOption configures a Builder instance.
type BuilderOption func(*Builder)

// WithUsageTracing toggles per-export usage scanning. Disabling it keeps
// the dependency graph and cycle detection but leaves Usages empty, which
// is much faster on large projects.
func WithUsageTracing(enabled bool) BuilderOption {
	return func(b *Builder) { b.traceUsages = enabled }
}

// Builder constructs a ProjectAnalysis from parse results.
//
// Description:
//
//	Building runs in phases over an internal state: import resolution,
//	dependency edges, symbol tracing, cycle detection. Each phase is
//	single-threaded; parallelism belongs to the parse stage upstream.
//
// Thread Safety: Safe for concurrent Build calls; the builder itself
// holds no per-build state.
type Builder struct {
	registry    *ast.Registry
	traceUsages bool
}

// NewBuilder creates a Builder using the given parser registry for usage
// scanning and import resolution.
func NewBuilder(registry *ast.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{registry: registry, traceUsages: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// buildState carries one build's intermediate products between phases.
type buildState struct {
	results  map[string]*ast.ParseResult
	files    []string
	cfg      ast.ResolverConfig
	analysis *ProjectAnalysis
}

// Build constructs the project analysis.
//
// Inputs:
//   - ctx: Context for cancellation, checked between phases.
//   - results: Per-file parse results. Nil entries are skipped with a
//     warning. Import ResolvedPath fields are populated in place.
//   - cfg: Resolver configuration. cfg.Files is derived from results when
//     empty.
//
// Outputs:
//   - *ProjectAnalysis: The immutable analysis. Never nil on success.
//   - error: Non-nil only for whole-build failures (canceled context,
//     duplicate file paths). File-local problems become Warnings.
//
// Thread Safety: Safe for concurrent use.
func (b *Builder) Build(ctx context.Context, results []*ast.ParseResult, cfg ast.ResolverConfig) (*ProjectAnalysis, error) {
	ctx, span := tracer.Start(ctx, "Builder.Build")
	defer span.End()

	start := time.Now()

	state, err := b.initState(results, cfg)
	if err != nil {
		return nil, err
	}

	phases := []struct {
		name string
		fn   func(context.Context, *buildState) error
	}{
		{"resolve_imports", b.resolveImports},
		{"trace_symbols", b.traceSymbols},
		{"detect_cycles", b.detectCycles},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build canceled before phase %s: %w", phase.name, err)
		}
		if err := phase.fn(ctx, state); err != nil {
			return nil, fmt.Errorf("phase %s failed: %w", phase.name, err)
		}
	}

	a := state.analysis
	a.GeneratedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.Int("files", len(a.Files)),
		attribute.Int("symbols", len(a.SymbolTraces)),
		attribute.Int("cycles", len(a.CircularDependencies)),
	)
	recordBuildMetrics(ctx, time.Since(start), len(a.Files), len(a.SymbolTraces), len(a.CircularDependencies))

	slog.Info("project analysis built",
		slog.Int("files", len(a.Files)),
		slog.Int("symbols", len(a.SymbolTraces)),
		slog.Int("cycles", len(a.CircularDependencies)),
		slog.Int("warnings", len(a.Warnings)),
		slog.Duration("elapsed", time.Since(start)))

	return a, nil
}

// initState validates inputs and prepares the build state.
func (b *Builder) initState(results []*ast.ParseResult, cfg ast.ResolverConfig) (*buildState, error) {
	state := &buildState{
		results: make(map[string]*ast.ParseResult, len(results)),
		cfg:     cfg,
		analysis: &ProjectAnalysis{
			SymbolTraces: make(map[string]*SymbolTrace),
			Graph:        NewDependencyGraph(),
		},
	}

	for _, r := range results {
		if r == nil {
			state.analysis.Warnings = append(state.analysis.Warnings, "skipped nil parse result")
			continue
		}
		if _, dup := state.results[r.FilePath]; dup {
			return nil, fmt.Errorf("duplicate parse result for %s", r.FilePath)
		}
		state.results[r.FilePath] = r
		for _, e := range r.Errors {
			state.analysis.Warnings = append(state.analysis.Warnings,
				fmt.Sprintf("%s: %s", r.FilePath, e))
		}
	}

	state.files = sortedKeys(state.results)
	state.analysis.Files = state.files
	state.analysis.Results = state.results

	// The resolver probes the known file set, not the filesystem. Derive
	// it from the results when the caller did not supply one.
	if state.cfg.Files == nil {
		state.cfg.Files = make(map[string]bool, len(state.files))
		for _, f := range state.files {
			state.cfg.Files[f] = true
		}
	}
	return state, nil
}

// resolveImports resolves every import specifier and populates the
// dependency graph with resolved edges.
func (b *Builder) resolveImports(ctx context.Context, state *buildState) error {
	_, span := tracer.Start(ctx, "Builder.resolveImports")
	defer span.End()

	edges := 0
	for _, file := range state.files {
		result := state.results[file]
		parser, err := b.registry.ForFile(file)
		if err != nil {
			state.analysis.Warnings = append(state.analysis.Warnings,
				fmt.Sprintf("%s: %v", file, err))
			continue
		}
		for i := range result.Imports {
			imp := &result.Imports[i]
			imp.ResolvedPath = parser.ResolveImport(imp.Source, file, state.cfg)
			// Empty ResolvedPath means external or unresolvable, an
			// expected condition, never a warning.
			if imp.ResolvedPath != "" && imp.ResolvedPath != file {
				state.analysis.Graph.AddEdge(file, imp.ResolvedPath)
				edges++
			}
		}
	}

	span.SetAttributes(attribute.Int("edges", edges))
	return state.analysis.Graph.Validate()
}

// traceSymbols builds one SymbolTrace per export by scanning every other
// file's imports and usages.
func (b *Builder) traceSymbols(ctx context.Context, state *buildState) error {
	_, span := tracer.Start(ctx, "Builder.traceSymbols")
	defer span.End()

	for _, file := range state.files {
		for _, exp := range state.results[file].Exports {
			trace := &SymbolTrace{Symbol: exp}
			b.scanImporters(state, trace)
			trace.UsageCount = len(trace.Usages)
			state.analysis.SymbolTraces[exp.Key()] = trace
		}
	}

	span.SetAttributes(attribute.Int("symbols", len(state.analysis.SymbolTraces)))
	return nil
}

// scanImporters finds every file importing the traced export and collects
// its classified usages there.
func (b *Builder) scanImporters(state *buildState, trace *SymbolTrace) {
	exp := trace.Symbol
	for _, file := range state.files {
		if file == exp.FilePath {
			continue
		}
		result := state.results[file]

		imported := false
		for _, imp := range result.Imports {
			if imp.ResolvedPath != exp.FilePath {
				continue
			}
			if !importBinds(imp, exp) {
				continue
			}
			trace.ImportedBy = append(trace.ImportedBy, imp)
			imported = true
		}
		if !imported {
			continue
		}

		addDependent(trace, file)
		if !b.traceUsages {
			continue
		}

		parser, err := b.registry.ForFile(file)
		if err != nil {
			continue
		}
		usages := parser.FindUsages(file, result.Content, exportLookupName(exp), result.LocalSymbols)
		trace.Usages = append(trace.Usages, usages...)
	}
}

// importBinds reports whether an import binding can reach the export:
// exact name match, default-to-default, or a namespace/side-effect binding
// that exposes the whole module.
func importBinds(imp ast.Import, exp ast.Export) bool {
	switch {
	case imp.Name == "*":
		return true
	case imp.IsDefault || imp.Name == "default":
		return exp.IsDefault || exp.Name == "default"
	default:
		return imp.Name == exp.Name
	}
}

// exportLookupName is the origin name usage scanning keys on.
func exportLookupName(exp ast.Export) string {
	if exp.IsDefault {
		return "default"
	}
	return exp.Name
}

// addDependent appends a file once, preserving first-occurrence order.
func addDependent(trace *SymbolTrace, file string) {
	if !contains(trace.Dependents, file) {
		trace.Dependents = append(trace.Dependents, file)
	}
}

// detectCycles runs cycle detection over the forward graph.
func (b *Builder) detectCycles(ctx context.Context, state *buildState) error {
	_, span := tracer.Start(ctx, "Builder.detectCycles")
	defer span.End()

	state.analysis.CircularDependencies = FindCycles(state.analysis.Graph.Forward)
	sort.Slice(state.analysis.CircularDependencies, func(i, j int) bool {
		return state.analysis.CircularDependencies[i].String() < state.analysis.CircularDependencies[j].String()
	})

	span.SetAttributes(attribute.Int("cycles", len(state.analysis.CircularDependencies)))
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package refactor ties the analysis pipeline together: discovery and
// parsing, the project dependency graph, the function call graph with
// purity classification, and gold-standard baseline verification.
//
// The Engine is the single entry point the HTTP surface and the CLI
// share. Each operation loads the per-project configuration fresh from
// the project root, so edits to refactor.config.yaml take effect on the
// next call without a restart.
package refactor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/config"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/discovery"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/funcgraph"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/graph"
)

var tracer = otel.Tracer("refactor.engine")

// Analysis bundles a project dependency analysis with the discovery
// context needed to interpret it (entry points for unused-export
// filtering, the config that shaped discovery).
type Analysis struct {
	*graph.ProjectAnalysis

	// ProjectRoot is the absolute root the analysis was built from.
	ProjectRoot string `json:"project_root"`

	// EntryPoints are the detected or configured entry-point files,
	// project-relative and sorted.
	EntryPoints []string `json:"entry_points"`
}

// Unused reports exports with no cross-file usage and no importers,
// using the analysis's own entry points.
func (a *Analysis) Unused(strict bool) []graph.UnusedExport {
	return a.UnusedExports(a.EntryPoints, strict)
}

// EngineOption configures an Engine instance.
type EngineOption func(*Engine)

// WithRegistry overrides the parser registry (tests register stub
// parsers this way).
func WithRegistry(r *ast.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// Engine runs refactor-safety analyses over project roots.
//
// Description:
//
//	The Engine owns no per-project state. Every operation re-discovers
//	and re-parses the project, which keeps results consistent with the
//	working tree at call time. Only gold-standard baselines persist,
//	through the baseline store.
//
// Thread Safety: Safe for concurrent use. Operations share no mutable
// state; baseline persistence is serialized by BadgerDB transactions.
type Engine struct {
	registry *ast.Registry
	store    *baseline.Store
	logger   *slog.Logger
}

// NewEngine creates an Engine.
//
// Inputs:
//
//	store - Baseline persistence. May be nil; Scan and Verify then
//	        return an error while pure analyses keep working.
//	logger - Structured logger. Must not be nil.
//
// Outputs:
//
//	*Engine - The configured engine.
//	error - Non-nil if logger is nil.
func NewEngine(store *baseline.Store, logger *slog.Logger, opts ...EngineOption) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	e := &Engine{
		registry: ast.DefaultRegistry(),
		store:    store,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Analyze builds the project-wide symbol dependency analysis.
//
// Description:
//
//	Loads refactor.config.yaml from the root, discovers and parses the
//	source files, builds the import dependency graph with symbol usage
//	traces, and detects circular dependencies. File-local problems
//	(unparseable files, syntax errors) surface as warnings on the
//	result, never as errors.
//
// Outputs:
//
//	*Analysis - The analysis with entry points attached.
//	error - Non-nil when the root is unreadable, the config is invalid
//	        or the context is canceled.
func (e *Engine) Analyze(ctx context.Context, projectRoot string) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "Engine.Analyze")
	defer span.End()

	start := time.Now()

	snap, err := e.snapshot(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	builder := graph.NewBuilder(e.registry, graph.WithUsageTracing(true))
	analysis, err := builder.Build(ctx, snap.results, snap.resolverCfg)
	if err != nil {
		return nil, fmt.Errorf("building dependency graph for %s: %w", projectRoot, err)
	}

	span.SetAttributes(
		attribute.Int("files", len(analysis.Files)),
		attribute.Int("cycles", len(analysis.CircularDependencies)),
	)
	e.logger.Info("project analyzed",
		slog.String("root", projectRoot),
		slog.Int("files", len(analysis.Files)),
		slog.Int("symbols", len(analysis.SymbolTraces)),
		slog.Int("cycles", len(analysis.CircularDependencies)),
		slog.Duration("elapsed", time.Since(start)))

	return &Analysis{
		ProjectAnalysis: analysis,
		ProjectRoot:     projectRoot,
		EntryPoints:     snap.entryPoints,
	}, nil
}

// BuildGraph builds the function-level call graph with purity
// classification. It satisfies baseline.GraphSource, so the Engine is
// its own graph source for Scan and Verify.
//
// The built-in purity pattern table is extended with any
// impure_patterns from the project config before classification.
func (e *Engine) BuildGraph(ctx context.Context, projectRoot string) (*funcgraph.FunctionGraph, error) {
	ctx, span := tracer.Start(ctx, "Engine.BuildGraph")
	defer span.End()

	snap, err := e.snapshot(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	builder := funcgraph.NewBuilder(e.registry,
		funcgraph.WithPatternTable(patternTable(snap.cfg)))
	g, err := builder.Build(ctx, snap.results, snap.resolverCfg)
	if err != nil {
		return nil, fmt.Errorf("building function graph for %s: %w", projectRoot, err)
	}

	span.SetAttributes(
		attribute.Int("functions", g.Stats.TotalFunctions),
		attribute.Int("calls", g.Stats.TotalCalls),
	)
	return g, nil
}

// Scan builds the current function graph and saves it as the gold
// standard baseline for the project. Projects that set cache: false in
// their config opt out of baseline persistence entirely.
func (e *Engine) Scan(ctx context.Context, projectRoot string) (*baseline.Metadata, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}
	if !cfg.CacheEnabled() {
		return nil, fmt.Errorf("baseline persistence disabled by %s (cache: false)", config.ConfigFileName)
	}
	verifier, err := e.verifier()
	if err != nil {
		return nil, err
	}
	return verifier.Scan(ctx, projectRoot)
}

// Verify rebuilds the function graph and diffs it against the stored
// baseline. It never mutates the baseline; run Scan to accept drift.
//
// Returns baseline.ErrNoBaseline when the project was never scanned.
func (e *Engine) Verify(ctx context.Context, projectRoot string) (*baseline.Report, error) {
	verifier, err := e.verifier()
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, projectRoot)
}

// CompareSurfaces analyzes two project roots and reports breaking
// changes to the export surface: exports removed in the new root, or
// kept with a changed signature. Additions are never breaking.
func (e *Engine) CompareSurfaces(ctx context.Context, oldRoot, newRoot string) ([]graph.BreakingChange, error) {
	ctx, span := tracer.Start(ctx, "Engine.CompareSurfaces")
	defer span.End()

	oldAnalysis, err := e.Analyze(ctx, oldRoot)
	if err != nil {
		return nil, fmt.Errorf("analyzing old root: %w", err)
	}
	newAnalysis, err := e.Analyze(ctx, newRoot)
	if err != nil {
		return nil, fmt.Errorf("analyzing new root: %w", err)
	}
	return graph.CompareExports(oldAnalysis.ProjectAnalysis, newAnalysis.ProjectAnalysis), nil
}

// verifier wires the baseline verifier over this engine's graph source.
func (e *Engine) verifier() (*baseline.Verifier, error) {
	if e.store == nil {
		return nil, fmt.Errorf("baseline store not configured")
	}
	return baseline.NewVerifier(e.store, e, e.logger)
}

// snapshot holds the per-call discovery output shared by Analyze and
// BuildGraph.
type snapshot struct {
	cfg         *config.Config
	results     []*ast.ParseResult
	resolverCfg ast.ResolverConfig
	entryPoints []string
}

func (e *Engine) snapshot(ctx context.Context, projectRoot string) (*snapshot, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}

	pipeline := discovery.NewPipeline(e.registry, cfg)
	results, resolverCfg, err := pipeline.Run(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(results))
	for _, r := range results {
		files = append(files, r.FilePath)
	}

	return &snapshot{
		cfg:         cfg,
		results:     results,
		resolverCfg: resolverCfg,
		entryPoints: pipeline.EntryPoints(projectRoot, files),
	}, nil
}

// patternTable extends the built-in purity rules with config overrides.
// Config types are validated at load time, so the conversion is direct.
func patternTable(cfg *config.Config) funcgraph.PatternTable {
	if len(cfg.ImpurePatterns) == 0 {
		return funcgraph.DefaultPatternTable()
	}
	custom := make([]funcgraph.PatternRule, 0, len(cfg.ImpurePatterns))
	for _, p := range cfg.ImpurePatterns {
		custom = append(custom, funcgraph.PatternRule{
			Type:        funcgraph.ImpurityType(p.Type),
			Pattern:     p.Pattern,
			Description: p.Description,
		})
	}
	return funcgraph.DefaultPatternTable().Extend(custom...)
}

var _ baseline.GraphSource = (*Engine)(nil)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discovery walks a project root, filters files through ignore
// globs, parses them on a bounded worker pool and detects entry points
// from package manifests.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/config"
)

var tracer = otel.Tracer("refactor.discovery")

// defaultSkipDirs are directory names never descended into.
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"coverage":     true,
}

// PipelineOption configures a Pipeline instance.
type PipelineOption func(*Pipeline)

// WithWorkers bounds the parallel parse pool. Values below one fall back
// to one worker per CPU.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// Pipeline discovers and parses a project's source files.
//
// Description:
//
//	Discovery walks the root honoring ignore globs and built-in skips.
//	Parsing runs on an errgroup bounded by the worker count; everything
//	downstream of parsing runs single-threaded.
//
// Thread Safety: Safe for concurrent Run calls.
type Pipeline struct {
	registry *ast.Registry
	cfg      *config.Config
	workers  int
}

// NewPipeline creates a Pipeline.
func NewPipeline(registry *ast.Registry, cfg *config.Config, opts ...PipelineOption) *Pipeline {
	if cfg == nil {
		cfg = &config.Config{}
	}
	p := &Pipeline{registry: registry, cfg: cfg, workers: runtime.NumCPU()}
	if cfg.Workers > 0 {
		p.workers = cfg.Workers
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run discovers, parses and packages a project snapshot.
//
// Outputs:
//   - []*ast.ParseResult: One result per parsed file, ordered by path.
//     Files that fail to parse are skipped with a warning log; their
//     absence surfaces as analysis warnings downstream.
//   - ast.ResolverConfig: The resolver input derived from the discovered
//     file set and the configured aliases.
//   - error: Non-nil when the root is unreadable or the context is
//     canceled.
func (p *Pipeline) Run(ctx context.Context, projectRoot string) ([]*ast.ParseResult, ast.ResolverConfig, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()

	start := time.Now()

	files, err := p.Discover(projectRoot)
	if err != nil {
		return nil, ast.ResolverConfig{}, err
	}

	resolverCfg := ast.ResolverConfig{
		Files:   make(map[string]bool, len(files)),
		Aliases: p.cfg.Aliases,
	}
	for _, f := range files {
		resolverCfg.Files[f] = true
	}

	results, err := p.parseAll(ctx, projectRoot, files)
	if err != nil {
		return nil, ast.ResolverConfig{}, err
	}

	span.SetAttributes(
		attribute.Int("files", len(files)),
		attribute.Int("parsed", len(results)),
	)
	slog.Info("project discovered",
		slog.String("root", projectRoot),
		slog.Int("files", len(files)),
		slog.Int("parsed", len(results)),
		slog.Duration("elapsed", time.Since(start)))

	return results, resolverCfg, nil
}

// Discover walks the root and returns the parseable project-relative
// paths, sorted, forward slashes.
func (p *Pipeline) Discover(projectRoot string) ([]string, error) {
	info, err := os.Stat(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", projectRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", projectRoot)
	}

	var files []string
	err = filepath.WalkDir(projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if defaultSkipDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if p.ignored(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !p.registry.Supports(rel) {
			return nil
		}
		if p.ignored(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", projectRoot, err)
	}

	sort.Strings(files)
	return files, nil
}

// ignored reports whether a relative path matches any configured ignore
// glob.
func (p *Pipeline) ignored(rel string) bool {
	for _, glob := range p.cfg.Ignore {
		if matchGlob(glob, strings.TrimSuffix(rel, "/")) {
			return true
		}
	}
	return false
}

// parseAll parses the files on a bounded pool, preserving path order.
func (p *Pipeline) parseAll(ctx context.Context, projectRoot string, files []string) ([]*ast.ParseResult, error) {
	results := make([]*ast.ParseResult, len(files))
	var mu sync.Mutex
	skipped := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, rel := range files {
		g.Go(func() error {
			parser, err := p.registry.ForFile(rel)
			if err != nil {
				return nil
			}
			content, err := os.ReadFile(filepath.Join(projectRoot, filepath.FromSlash(rel)))
			if err != nil {
				slog.Warn("skipping unreadable file", slog.String("file", rel), slog.Any("error", err))
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			result, err := parser.Parse(ctx, content, rel)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("skipping unparseable file", slog.String("file", rel), slog.Any("error", err))
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing project: %w", err)
	}

	out := make([]*ast.ParseResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	if skipped > 0 {
		slog.Warn("files skipped during parse", slog.Int("count", skipped))
	}
	return out, nil
}

// matchGlob matches a path against a glob supporting "**" across path
// segments and filepath.Match semantics within a segment. Config ignore
// globs are the only consumer; full gitignore semantics are out of scope.
func matchGlob(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		// "**" matches zero or more leading segments.
		for skip := 0; skip <= len(parts); skip++ {
			if matchSegments(pattern[1:], parts[skip:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := filepath.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

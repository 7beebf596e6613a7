// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package funcgraph

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

// WithPatternTable overrides the default impurity pattern table.
func WithPatternTable(table PatternTable) BuilderOption {
	return func(b *Builder) { b.table = table }
}

// Builder constructs a FunctionGraph from parse results.
//
// Description:
//
//	Nodes come straight from the parsers' function declarations; edges
//	are resolved in three tiers: same-file direct calls, same-class
//	method calls through this/self receivers, and cross-file calls
//	through resolved imports. Calls that resolve to nothing in the
//	project produce no edge.
//
// Thread Safety: Safe for concurrent Build calls.
type Builder struct {
	registry *ast.Registry
	table    PatternTable
}

// NewBuilder creates a Builder with the default pattern table.
func NewBuilder(registry *ast.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{registry: registry, table: DefaultPatternTable()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// fileIndex is the per-file lookup state edge resolution works from.
type fileIndex struct {
	result *ast.ParseResult

	// byName maps plain function names to node IDs.
	byName map[string]string

	// byMethod maps "Class.method" to node IDs.
	byMethod map[string]string

	// importOrigin maps local names to (resolvedPath, originName).
	importOrigin map[string]importTarget

	// namespaceFor maps namespace-import local names to resolved paths.
	namespaceFor map[string]string
}

type importTarget struct {
	path string
	name string
}

// Build constructs the function graph.
//
// Inputs:
//   - ctx: Context for cancellation, checked between phases.
//   - results: Per-file parse results, with or without pre-resolved
//     imports; unresolved imports are resolved here against cfg.
//   - cfg: Resolver configuration. cfg.Files is derived from results when
//     empty.
//
// Outputs:
//   - *FunctionGraph: The immutable graph with purity classified and
//     stats computed. Never nil on success.
//   - error: Non-nil for canceled contexts or graph invariant violations.
func (b *Builder) Build(ctx context.Context, results []*ast.ParseResult, cfg ast.ResolverConfig) (*FunctionGraph, error) {
	ctx, span := tracer.Start(ctx, "funcgraph.Build")
	defer span.End()

	start := time.Now()

	if cfg.Files == nil {
		cfg.Files = make(map[string]bool, len(results))
		for _, r := range results {
			if r != nil {
				cfg.Files[r.FilePath] = true
			}
		}
	}

	g := &FunctionGraph{Nodes: make(map[string]*FunctionNode)}
	indexes := make(map[string]*fileIndex, len(results))
	evidence := make(map[string][]ImpurityReason)

	// Phase 1: nodes and per-file indexes.
	for _, r := range results {
		if r == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build canceled: %w", err)
		}
		idx := b.indexFile(r, cfg)
		indexes[r.FilePath] = idx
		g.Files = append(g.Files, r.FilePath)

		for _, decl := range r.Functions {
			node := nodeFromDecl(r.FilePath, decl)
			if existing := g.Nodes[node.ID]; existing != nil {
				// Same name declared twice (overloads, conditional
				// definitions). Keep the first; later spans are noise.
				continue
			}
			g.Nodes[node.ID] = node
			if reasons := directEvidenceFor(decl, b.table); len(reasons) > 0 {
				evidence[node.ID] = reasons
			}
		}
	}
	sort.Strings(g.Files)

	// Phase 2: edges.
	for _, file := range g.Files {
		idx := indexes[file]
		for _, decl := range idx.result.Functions {
			fromID := declNodeID(file, decl)
			if g.Nodes[fromID] == nil {
				continue
			}
			for _, call := range decl.Calls {
				if call.IsDynamic {
					g.Nodes[fromID].HasDynamicCalls = true
					continue
				}
				if edge := b.resolveCall(fromID, call, idx, indexes); edge != nil {
					g.Edges = append(g.Edges, *edge)
				}
			}
		}
	}
	sortEdges(g.Edges)

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph invariant violated: %w", err)
	}

	// Phase 3: purity.
	classifyPurity(g, b.table, evidence)
	g.computeStats()

	span.SetAttributes(
		attribute.Int("functions", g.Stats.TotalFunctions),
		attribute.Int("edges", g.Stats.TotalCalls),
		attribute.Int("impure", g.Stats.ImpureFunctions),
	)
	recordBuildMetrics(ctx, time.Since(start), g.Stats)

	slog.Info("function graph built",
		slog.Int("functions", g.Stats.TotalFunctions),
		slog.Int("edges", g.Stats.TotalCalls),
		slog.Int("pure", g.Stats.PureFunctions),
		slog.Int("impure", g.Stats.ImpureFunctions),
		slog.Int("unknown", g.Stats.UnknownFunctions),
		slog.Duration("elapsed", time.Since(start)))

	return g, nil
}

// indexFile builds the lookup state for one file.
func (b *Builder) indexFile(r *ast.ParseResult, cfg ast.ResolverConfig) *fileIndex {
	idx := &fileIndex{
		result:       r,
		byName:       make(map[string]string),
		byMethod:     make(map[string]string),
		importOrigin: make(map[string]importTarget),
		namespaceFor: make(map[string]string),
	}

	for _, decl := range r.Functions {
		id := declNodeID(r.FilePath, decl)
		if decl.Name == "" {
			continue
		}
		if decl.IsMethod {
			idx.byMethod[decl.ClassName+"."+decl.Name] = id
		} else if _, dup := idx.byName[decl.Name]; !dup {
			idx.byName[decl.Name] = id
		}
	}

	parser, err := b.registry.ForFile(r.FilePath)
	for i := range r.Imports {
		imp := &r.Imports[i]
		if imp.ResolvedPath == "" && err == nil {
			imp.ResolvedPath = parser.ResolveImport(imp.Source, r.FilePath, cfg)
		}
		if imp.ResolvedPath == "" {
			continue
		}
		local := imp.LocalName()
		if imp.Name == "*" && local != "" {
			idx.namespaceFor[local] = imp.ResolvedPath
			continue
		}
		if local != "" {
			idx.importOrigin[local] = importTarget{path: imp.ResolvedPath, name: imp.Name}
		}
	}
	return idx
}

// resolveCall resolves one call site to an edge, or nil when the target
// is outside the project.
func (b *Builder) resolveCall(fromID string, call ast.CallSite, idx *fileIndex, indexes map[string]*fileIndex) *CallEdge {
	edgeType := CallDirect
	switch {
	case call.IsConstructor:
		edgeType = CallConstructor
	case call.IsCallback:
		edgeType = CallCallback
	case call.IsMethod:
		edgeType = CallMethod
	}

	// Same-class method call: this.m() / self.m().
	if call.IsMethod && (call.Receiver == "this" || call.Receiver == "self") {
		for key, id := range idx.byMethod {
			if methodName(key) == call.Target {
				return &CallEdge{From: fromID, To: id, Line: call.Line, Type: CallMethod}
			}
		}
		return nil
	}

	// Namespace-qualified cross-file call: ns.fn().
	if call.IsMethod {
		if path, ok := idx.namespaceFor[call.Receiver]; ok {
			if target := lookupIn(indexes, path, call.Target); target != "" {
				return &CallEdge{From: fromID, To: target, Line: call.Line, Type: CallMethod}
			}
		}
		return nil
	}

	// Constructor of a local or imported class: methods are per-class, so
	// constructors resolve to the class's constructor/__init__ when
	// declared, otherwise no edge.
	if call.IsConstructor {
		if id, ok := idx.byMethod[call.Target+".constructor"]; ok {
			return &CallEdge{From: fromID, To: id, Line: call.Line, Type: CallConstructor}
		}
		if id, ok := idx.byMethod[call.Target+".__init__"]; ok {
			return &CallEdge{From: fromID, To: id, Line: call.Line, Type: CallConstructor}
		}
		if target, ok := idx.importOrigin[call.Target]; ok {
			if id := lookupMethodIn(indexes, target.path, target.name+".constructor"); id != "" {
				return &CallEdge{From: fromID, To: id, Line: call.Line, Type: CallConstructor}
			}
			if id := lookupMethodIn(indexes, target.path, target.name+".__init__"); id != "" {
				return &CallEdge{From: fromID, To: id, Line: call.Line, Type: CallConstructor}
			}
		}
		return nil
	}

	// Same-file function.
	if id, ok := idx.byName[call.Target]; ok {
		return &CallEdge{From: fromID, To: id, Line: call.Line, Type: edgeType}
	}

	// Imported function.
	if target, ok := idx.importOrigin[call.Target]; ok {
		if id := lookupIn(indexes, target.path, target.name); id != "" {
			return &CallEdge{From: fromID, To: id, Line: call.Line, Type: edgeType}
		}
	}
	return nil
}

// lookupIn finds a plain function by name in another file's index.
func lookupIn(indexes map[string]*fileIndex, path, name string) string {
	idx, ok := indexes[path]
	if !ok {
		return ""
	}
	return idx.byName[name]
}

// lookupMethodIn finds a "Class.method" entry in another file's index.
func lookupMethodIn(indexes map[string]*fileIndex, path, key string) string {
	idx, ok := indexes[path]
	if !ok {
		return ""
	}
	return idx.byMethod[key]
}

// methodName strips the class qualifier from a "Class.method" key.
func methodName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			return key[i+1:]
		}
	}
	return key
}

// declNodeID derives the node ID for a declaration.
func declNodeID(filePath string, decl ast.FunctionDecl) string {
	name := decl.Name
	if decl.IsMethod && decl.ClassName != "" {
		name = decl.ClassName + "." + decl.Name
	}
	return FunctionID(filePath, name, decl.StartLine)
}

// nodeFromDecl converts a parser declaration into a graph node.
func nodeFromDecl(filePath string, decl ast.FunctionDecl) *FunctionNode {
	return &FunctionNode{
		ID:          declNodeID(filePath, decl),
		Name:        decl.Name,
		FilePath:    filePath,
		StartLine:   decl.StartLine,
		EndLine:     decl.EndLine,
		Signature:   decl.Signature,
		Exported:    decl.Exported,
		IsMethod:    decl.IsMethod,
		ClassName:   decl.ClassName,
		IsNested:    decl.IsNested,
		IsAsync:     decl.IsAsync,
		IsGenerator: decl.IsGenerator,
	}
}

// sortEdges orders edges deterministically.
func sortEdges(edges []CallEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		if edges[i].Type != edges[j].Type {
			return edges[i].Type < edges[j].Type
		}
		return edges[i].Line < edges[j].Line
	})
}

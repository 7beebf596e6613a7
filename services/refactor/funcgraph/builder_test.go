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
	"sort"
	"testing"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

// buildGraph parses an in-memory file set and builds its function graph.
func buildGraph(t *testing.T, files map[string]string) *FunctionGraph {
	t.Helper()
	registry := ast.DefaultRegistry()

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	results := make([]*ast.ParseResult, 0, len(files))
	for _, path := range paths {
		parser, err := registry.ForFile(path)
		if err != nil {
			t.Fatalf("no parser for %s: %v", path, err)
		}
		r, err := parser.Parse(context.Background(), []byte(files[path]), path)
		if err != nil {
			t.Fatalf("parse %s failed: %v", path, err)
		}
		results = append(results, r)
	}

	g, err := NewBuilder(registry).Build(context.Background(), results, ast.ResolverConfig{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return g
}

func mustNode(t *testing.T, g *FunctionGraph, id string) *FunctionNode {
	t.Helper()
	n := g.Node(id)
	if n == nil {
		ids := sortedNodeIDs(g.Nodes)
		t.Fatalf("node %q not in graph; have %v", id, ids)
	}
	return n
}

func hasEdge(g *FunctionGraph, from, to string) bool {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

func TestBuilder_NodesAndIDs(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/svc.ts": `
export function named(x: number): number { return x; }

export class Service {
	handle(): void {}
}
`,
	})

	named := mustNode(t, g, "src/svc.ts:named")
	if !named.Exported || named.IsMethod {
		t.Errorf("named = %+v, want exported non-method", named)
	}

	method := mustNode(t, g, "src/svc.ts:Service.handle")
	if !method.IsMethod || method.ClassName != "Service" {
		t.Errorf("method = %+v, want method of Service", method)
	}

	if err := g.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	if g.Stats.TotalFunctions != len(g.Nodes) {
		t.Errorf("Stats.TotalFunctions = %d, want %d", g.Stats.TotalFunctions, len(g.Nodes))
	}
}

func TestBuilder_AnonymousFunctionID(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/anon.ts": `export default function (x: number) { return x; }`,
	})

	var anon *FunctionNode
	for _, n := range g.Nodes {
		if n.Name == "" {
			anon = n
		}
	}
	if anon == nil {
		t.Fatal("anonymous function not collected")
	}
	want := FunctionID("src/anon.ts", "", anon.StartLine)
	if anon.ID != want {
		t.Errorf("anonymous ID = %q, want line-based %q", anon.ID, want)
	}
}

func TestBuilder_SameFileAndCrossFileEdges(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/lib.ts": `
export function shared(): number { return 1; }
`,
		"src/app.ts": `
import { shared } from './lib';

function local(): number { return 2; }

export function run(): number {
	return shared() + local();
}
`,
	})

	if !hasEdge(g, "src/app.ts:run", "src/app.ts:local") {
		t.Errorf("same-file edge missing; edges = %v", g.Edges)
	}
	if !hasEdge(g, "src/app.ts:run", "src/lib.ts:shared") {
		t.Errorf("cross-file edge missing; edges = %v", g.Edges)
	}
}

func TestBuilder_MethodEdgeThroughSelf(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"pkg/worker.py": `
class Worker:
    def start(self):
        return self.step()

    def step(self):
        return 1
`,
	})

	if !hasEdge(g, "pkg/worker.py:Worker.start", "pkg/worker.py:Worker.step") {
		t.Errorf("self method edge missing; edges = %v", g.Edges)
	}
}

func TestBuilder_CallbackEdge(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/cb.ts": `
export function double(x: number): number { return x * 2; }

export function run(items: number[]): number[] {
	return items.map(double);
}
`,
	})

	var edge *CallEdge
	for i := range g.Edges {
		if g.Edges[i].From == "src/cb.ts:run" && g.Edges[i].To == "src/cb.ts:double" {
			edge = &g.Edges[i]
		}
	}
	if edge == nil {
		t.Fatalf("callback edge run -> double missing; edges = %v", g.Edges)
	}
	if edge.Type != CallCallback {
		t.Errorf("edge type = %q, want %q", edge.Type, CallCallback)
	}
}

func TestBuilder_ExternalCallsProduceNoEdge(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/a.ts": `
import { hash } from 'crypto-lib';

export function digest(x: string) {
	return hash(x);
}
`,
	})

	for _, e := range g.Edges {
		t.Errorf("external call produced edge %+v", e)
	}
}

func TestBuilder_DeterministicEdges(t *testing.T) {
	files := map[string]string{
		"src/a.ts": `
function z() { return 1; }
function m() { return 2; }
export function run() { return z() + m() + z(); }
`,
	}
	first := buildGraph(t, files)
	second := buildGraph(t, files)

	if len(first.Edges) != len(second.Edges) {
		t.Fatalf("edge counts differ: %d vs %d", len(first.Edges), len(second.Edges))
	}
	for i := range first.Edges {
		if first.Edges[i] != second.Edges[i] {
			t.Errorf("edge %d differs: %+v vs %+v", i, first.Edges[i], second.Edges[i])
		}
	}
}

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
	"sort"
	"testing"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

// parseProject parses an in-memory file set with the real parsers.
func parseProject(t *testing.T, files map[string]string) []*ast.ParseResult {
	t.Helper()
	registry := ast.DefaultRegistry()
	results := make([]*ast.ParseResult, 0, len(files))

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

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
	return results
}

func buildProject(t *testing.T, files map[string]string) *ProjectAnalysis {
	t.Helper()
	results := parseProject(t, files)
	b := NewBuilder(ast.DefaultRegistry())
	a, err := b.Build(context.Background(), results, ast.ResolverConfig{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return a
}

func TestBuilder_TraceAcrossFiles(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/utils.ts": `
export function formatName(first: string, last: string): string {
	return first + " " + last;
}
export function unusedHelper(): void {}
`,
		"src/main.ts": `
import { formatName } from './utils';

export function greet(first: string, last: string) {
	return "hi " + formatName(first, last);
}
`,
	})

	trace := a.Trace("src/utils.ts:formatName")
	if trace == nil {
		t.Fatal("formatName trace missing")
	}
	if len(trace.ImportedBy) != 1 || trace.ImportedBy[0].FilePath != "src/main.ts" {
		t.Errorf("ImportedBy = %+v, want one import from src/main.ts", trace.ImportedBy)
	}
	if trace.UsageCount != len(trace.Usages) {
		t.Errorf("UsageCount %d != len(Usages) %d", trace.UsageCount, len(trace.Usages))
	}
	if trace.UsageCount == 0 {
		t.Error("formatName call in main.ts not counted")
	}
	if !contains(trace.Dependents, "src/main.ts") {
		t.Errorf("Dependents = %v, want src/main.ts", trace.Dependents)
	}

	unused := a.Trace("src/utils.ts:unusedHelper")
	if unused == nil {
		t.Fatal("unusedHelper trace missing")
	}
	if unused.UsageCount != 0 || len(unused.ImportedBy) != 0 {
		t.Errorf("unusedHelper should have no importers or usages: %+v", unused)
	}

	if !a.Graph.DependsOn("src/main.ts", "src/utils.ts") {
		t.Error("dependency edge main -> utils missing")
	}
	if a.Graph.DependsOn("src/utils.ts", "src/main.ts") {
		t.Error("unexpected reverse dependency")
	}
	if err := a.Graph.Validate(); err != nil {
		t.Errorf("graph invariant violated: %v", err)
	}
}

func TestBuilder_UnresolvedImportIsNotAnError(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/main.ts": `
import { readFile } from 'fs/promises';
import missing from './does-not-exist';

export function load() {
	return readFile("x");
}
`,
	})

	if len(a.Graph.Forward["src/main.ts"]) != 0 {
		t.Errorf("external imports must not create edges: %v", a.Graph.Forward["src/main.ts"])
	}
	for _, w := range a.Warnings {
		t.Errorf("unresolved import produced warning: %q", w)
	}
	for _, imp := range a.Results["src/main.ts"].Imports {
		if imp.ResolvedPath != "" {
			t.Errorf("import %q resolved to %q, want empty", imp.Source, imp.ResolvedPath)
		}
	}
}

func TestBuilder_AliasedImportTracesToOrigin(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/utils.ts": `
export function merge(a: object, b: object): object {
	return { ...a, ...b };
}
`,
		"src/main.ts": `
import { merge as combine } from './utils';

export function join(a: object, b: object) {
	return combine(a, b);
}
`,
	})

	trace := a.Trace("src/utils.ts:merge")
	if trace == nil {
		t.Fatal("merge trace missing")
	}
	if trace.UsageCount == 0 {
		t.Error("aliased call site not attributed to origin export")
	}
	if len(trace.ImportedBy) != 1 || trace.ImportedBy[0].Alias != "combine" {
		t.Errorf("ImportedBy = %+v, want aliased import", trace.ImportedBy)
	}
}

func TestBuilder_PythonProject(t *testing.T) {
	a := buildProject(t, map[string]string{
		"pkg/utils.py": `
def clean(s):
    return s.strip()
`,
		"pkg/main.py": `
from .utils import clean

def run(s):
    return clean(s)
`,
	})

	if !a.Graph.DependsOn("pkg/main.py", "pkg/utils.py") {
		t.Error("python relative import edge missing")
	}
	trace := a.Trace("pkg/utils.py:clean")
	if trace == nil || trace.UsageCount == 0 {
		t.Errorf("clean usage not traced: %+v", trace)
	}
}

func TestBuilder_Idempotent(t *testing.T) {
	files := map[string]string{
		"src/a.ts": `import { b } from './b'; export const a = () => b();`,
		"src/b.ts": `export function b() { return 1; }`,
	}

	first := buildProject(t, files)
	second := buildProject(t, files)

	if len(first.SymbolTraces) != len(second.SymbolTraces) {
		t.Fatalf("trace counts differ: %d vs %d", len(first.SymbolTraces), len(second.SymbolTraces))
	}
	for key, ft := range first.SymbolTraces {
		st := second.SymbolTraces[key]
		if st == nil {
			t.Errorf("trace %s missing from second build", key)
			continue
		}
		if ft.UsageCount != st.UsageCount || len(ft.Dependents) != len(st.Dependents) {
			t.Errorf("trace %s differs between builds: %+v vs %+v", key, ft, st)
		}
	}
}

func TestBuilder_DuplicateFileRejected(t *testing.T) {
	results := parseProject(t, map[string]string{"src/a.ts": `export const x = 1;`})
	results = append(results, results[0])

	b := NewBuilder(ast.DefaultRegistry())
	if _, err := b.Build(context.Background(), results, ast.ResolverConfig{}); err == nil {
		t.Error("duplicate file paths should fail the build")
	}
}

func TestBuilder_RemovingSoleImporterClearsTrace(t *testing.T) {
	files := map[string]string{
		"src/a.ts": `export function x() { return 1; }`,
		"src/b.ts": `import { x } from './a'; export const y = x();`,
	}

	before := buildProject(t, files)
	trace := before.Trace("src/a.ts:x")
	if trace == nil || trace.UsageCount == 0 || len(trace.ImportedBy) != 1 {
		t.Fatalf("precondition failed: trace = %+v", trace)
	}

	delete(files, "src/b.ts")
	after := buildProject(t, files)
	trace = after.Trace("src/a.ts:x")
	if trace == nil {
		t.Fatal("x trace missing after importer removal")
	}
	if trace.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0 with the sole importer gone", trace.UsageCount)
	}
	if len(trace.ImportedBy) != 0 {
		t.Errorf("ImportedBy = %+v, want empty", trace.ImportedBy)
	}
}

func TestBuilder_ParseErrorsBecomeWarnings(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/ok.ts":     `export const fine = 1;`,
		"src/broken.ts": `export function broken( {`,
	})

	if len(a.Warnings) == 0 {
		t.Error("syntax errors should surface as analysis warnings")
	}
	if a.Trace("src/ok.ts:fine") == nil {
		t.Error("healthy files must still be analyzed")
	}
}

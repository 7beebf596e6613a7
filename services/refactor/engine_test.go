// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package refactor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/funcgraph"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("opening in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := baseline.NewStore(db, slog.Default())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	engine, err := NewEngine(store, slog.Default())
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	return engine
}

// writeProject materializes a source tree under a temp dir.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func TestNewEngine_NilLogger(t *testing.T) {
	if _, err := NewEngine(nil, nil); err == nil {
		t.Error("nil logger should be rejected")
	}
}

func TestEngine_Analyze(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.ts": `import { greet } from './greeting'; greet();`,
		"src/greeting.ts": `export function greet() { return 'hi'; }
export function orphan() { return 0; }`,
	})

	engine := newTestEngine(t)
	analysis, err := engine.Analyze(context.Background(), root)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.Files) != 2 {
		t.Fatalf("analyzed %d files, want 2", len(analysis.Files))
	}
	trace := analysis.Trace("src/greeting.ts:greet")
	if trace == nil {
		t.Fatal("no trace for src/greeting.ts:greet")
	}
	if len(trace.ImportedBy) != 1 || trace.ImportedBy[0].FilePath != "src/index.ts" {
		t.Errorf("ImportedBy = %+v, want one import from src/index.ts", trace.ImportedBy)
	}

	if len(analysis.EntryPoints) != 1 || analysis.EntryPoints[0] != "src/index.ts" {
		t.Errorf("EntryPoints = %v, want [src/index.ts]", analysis.EntryPoints)
	}

	unused := analysis.Unused(false)
	if len(unused) != 1 || unused[0].Export.Name != "orphan" {
		t.Errorf("Unused = %+v, want only orphan", unused)
	}
}

func TestEngine_ScanVerify_Lifecycle(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/calc.ts": `export function add(a, b) { return a + b; }`,
	})
	engine := newTestEngine(t)
	ctx := context.Background()

	meta, err := engine.Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if meta.FunctionCount != 1 {
		t.Errorf("FunctionCount = %d, want 1", meta.FunctionCount)
	}

	report, err := engine.Verify(ctx, root)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !report.Valid || report.Status != baseline.StatusValid {
		t.Errorf("unchanged project reported as drifted: %s", report.Diff.Summary())
	}

	// Drift: add produces console output now.
	drifted := `export function add(a, b) { console.log(a); return a + b; }`
	if err := os.WriteFile(filepath.Join(root, "src", "calc.ts"), []byte(drifted), 0o644); err != nil {
		t.Fatalf("rewriting calc.ts: %v", err)
	}

	report, err = engine.Verify(ctx, root)
	if err != nil {
		t.Fatalf("Verify after edit failed: %v", err)
	}
	if report.Valid || report.Status != baseline.StatusDrifted {
		t.Fatal("purity drift not detected")
	}
	if len(report.Diff.PurityChanges) != 1 {
		t.Errorf("PurityChanges = %+v, want exactly one", report.Diff.PurityChanges)
	}

	// Accepting the drift makes verification pass again.
	if _, err := engine.Scan(ctx, root); err != nil {
		t.Fatalf("re-scan failed: %v", err)
	}
	report, err = engine.Verify(ctx, root)
	if err != nil {
		t.Fatalf("Verify after re-scan failed: %v", err)
	}
	if !report.Valid {
		t.Errorf("re-scanned project still drifted: %s", report.Diff.Summary())
	}
}

func TestEngine_Verify_NoBaseline(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/a.ts": `export const a = 1;`,
	})
	engine := newTestEngine(t)
	if _, err := engine.Verify(context.Background(), root); !errors.Is(err, baseline.ErrNoBaseline) {
		t.Errorf("Verify without scan = %v, want ErrNoBaseline", err)
	}
}

func TestEngine_ScanWithoutStore(t *testing.T) {
	engine, err := NewEngine(nil, slog.Default())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if _, err := engine.Scan(context.Background(), t.TempDir()); err == nil {
		t.Error("Scan without a store should fail")
	}
}

func TestEngine_CompareSurfaces(t *testing.T) {
	oldRoot := writeProject(t, map[string]string{
		"src/api.ts": `export function fetchUser(id) { return id; }
export function listUsers() { return []; }`,
	})
	newRoot := writeProject(t, map[string]string{
		"src/api.ts": `export function fetchUser(id) { return id; }
export function createUser(data) { return data; }`,
	})

	engine := newTestEngine(t)
	changes, err := engine.CompareSurfaces(context.Background(), oldRoot, newRoot)
	if err != nil {
		t.Fatalf("CompareSurfaces failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %+v, want exactly one (listUsers removed)", changes)
	}
	if changes[0].Export.Name != "listUsers" {
		t.Errorf("breaking change names %s, want listUsers", changes[0].Export.Name)
	}
}

func TestEngine_Scan_CacheDisabled(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/a.ts":             `export const a = 1;`,
		"refactor.config.yaml": "cache: false\n",
	})
	engine := newTestEngine(t)
	if _, err := engine.Scan(context.Background(), root); err == nil {
		t.Error("Scan should refuse when the project disables the cache")
	}
}

func TestEngine_ConfigPatternsExtendPurity(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/pub.ts": `export function publish(msg) { return kafka.send(msg); }`,
		"refactor.config.yaml": `impure_patterns:
  - type: external
    pattern: "kafka."
    description: message publish
`,
	})

	engine := newTestEngine(t)
	g, err := engine.BuildGraph(context.Background(), root)
	if err != nil {
		t.Fatalf("BuildGraph failed: %v", err)
	}
	node := g.Node("src/pub.ts:publish")
	if node == nil {
		t.Fatal("publish node missing")
	}
	if node.Purity != funcgraph.PurityImpure {
		t.Fatalf("publish purity = %s, want impure via config pattern", node.Purity)
	}
	if len(node.ImpurityReasons) != 1 || node.ImpurityReasons[0].Type != funcgraph.ImpurityExternal {
		t.Errorf("ImpurityReasons = %+v, want one external reason", node.ImpurityReasons)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package baseline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/funcgraph"
)

// fixedSource serves a configurable graph per BuildGraph call.
type fixedSource struct {
	graph *funcgraph.FunctionGraph
	err   error
}

func (s *fixedSource) BuildGraph(ctx context.Context, projectRoot string) (*funcgraph.FunctionGraph, error) {
	return s.graph, s.err
}

func newTestVerifier(t *testing.T, source GraphSource) *Verifier {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := NewStore(newTestDB(t), logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	v, err := NewVerifier(store, source, logger)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestVerifier_ScanThenVerifyUnchanged(t *testing.T) {
	source := &fixedSource{graph: testGraph(false)}
	v := newTestVerifier(t, source)
	ctx := context.Background()

	if _, err := v.Scan(ctx, "/proj"); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	report, err := v.Verify(ctx, "/proj")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !report.Valid || report.Status != StatusValid {
		t.Errorf("report = %+v, want valid", report)
	}
	if !report.Diff.IsEquivalent() {
		t.Errorf("valid report carries differences: %+v", report.Diff)
	}

	// Verification is stable: repeating it changes nothing.
	again, err := v.Verify(ctx, "/proj")
	if err != nil {
		t.Fatalf("second Verify failed: %v", err)
	}
	if !again.Valid {
		t.Error("second verification of an unchanged project not valid")
	}
}

func TestVerifier_DetectsDrift(t *testing.T) {
	source := &fixedSource{graph: testGraph(false)}
	v := newTestVerifier(t, source)
	ctx := context.Background()

	if _, err := v.Scan(ctx, "/proj"); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// The project changes: g becomes impure.
	source.graph = testGraph(true)

	report, err := v.Verify(ctx, "/proj")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if report.Valid || report.Status != StatusDrifted {
		t.Errorf("report = %+v, want drifted", report)
	}
	if len(report.Diff.PurityChanges) != 1 {
		t.Errorf("PurityChanges = %+v, want one", report.Diff.PurityChanges)
	}
}

func TestVerifier_VerifyDoesNotMutateBaseline(t *testing.T) {
	source := &fixedSource{graph: testGraph(false)}
	v := newTestVerifier(t, source)
	ctx := context.Background()

	scanMeta, err := v.Scan(ctx, "/proj")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	source.graph = testGraph(true)
	if _, err := v.Verify(ctx, "/proj"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	meta, err := v.store.Meta(ctx, "/proj")
	if err != nil {
		t.Fatalf("Meta failed: %v", err)
	}
	if meta.ContentHash != scanMeta.ContentHash {
		t.Error("Verify mutated the stored baseline")
	}
}

func TestVerifier_NoBaseline(t *testing.T) {
	v := newTestVerifier(t, &fixedSource{graph: testGraph(false)})
	_, err := v.Verify(context.Background(), "/proj")
	if !errors.Is(err, ErrNoBaseline) {
		t.Errorf("error = %v, want ErrNoBaseline", err)
	}
}

func TestVerifier_BuildFailurePropagates(t *testing.T) {
	source := &fixedSource{graph: testGraph(false)}
	v := newTestVerifier(t, source)
	ctx := context.Background()

	if _, err := v.Scan(ctx, "/proj"); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	source.err = errors.New("walk failed")
	source.graph = nil
	if _, err := v.Verify(ctx, "/proj"); err == nil {
		t.Error("build failure should propagate from Verify")
	}
	if _, err := v.Scan(ctx, "/proj2"); err == nil {
		t.Error("build failure should propagate from Scan")
	}
}

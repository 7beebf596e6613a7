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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/funcgraph"
)

var tracer = otel.Tracer("refactor.baseline")

// Status is the verification outcome against the Gold Standard.
type Status string

// Verification statuses.
const (
	// StatusValid means the current graph is structurally equivalent to
	// the baseline.
	StatusValid Status = "valid"

	// StatusDrifted means the current graph differs from the baseline.
	StatusDrifted Status = "drifted"
)

// Report is the result of one verification run.
type Report struct {
	// Status is valid or drifted.
	Status Status `json:"status"`

	// Valid is true exactly when Status is StatusValid.
	Valid bool `json:"valid"`

	// Diff is the structural difference from the baseline to the current
	// graph. Present for drifted reports; equivalent (empty) for valid
	// ones.
	Diff *funcgraph.GraphDiff `json:"diff"`

	// Baseline is the stored baseline's metadata.
	Baseline *Metadata `json:"baseline"`
}

// GraphSource builds the current function graph of a project. The
// analysis engine implements it; tests substitute fixed graphs.
type GraphSource interface {
	BuildGraph(ctx context.Context, projectRoot string) (*funcgraph.FunctionGraph, error)
}

// Verifier drives the scan/verify lifecycle against the Gold Standard.
//
// Description:
//
//	Scan builds the current graph and persists it as the new baseline.
//	Verify builds the current graph, loads the stored baseline and diffs
//	them; it never mutates the baseline, so repeated verification of an
//	unchanged project is stable. Verifying a project with no baseline
//	returns ErrNoBaseline; a corrupt baseline returns ErrCorruptBaseline
//	and must be resolved by an explicit re-scan.
//
// Thread Safety: Safe for concurrent use.
type Verifier struct {
	store  *Store
	source GraphSource
	logger *slog.Logger
}

// NewVerifier creates a Verifier.
//
// Outputs:
//
//	*Verifier - The configured verifier.
//	error - Non-nil if any dependency is nil.
func NewVerifier(store *Store, source GraphSource, logger *slog.Logger) (*Verifier, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("graph source must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Verifier{store: store, source: source, logger: logger}, nil
}

// Scan builds the project's current function graph and stores it as the
// new Gold Standard, replacing any previous baseline.
func (v *Verifier) Scan(ctx context.Context, projectRoot string) (*Metadata, error) {
	ctx, span := tracer.Start(ctx, "Verifier.Scan")
	defer span.End()

	g, err := v.source.BuildGraph(ctx, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("building graph for scan: %w", err)
	}

	meta, err := v.store.Save(ctx, projectRoot, g)
	if err != nil {
		return nil, fmt.Errorf("persisting baseline: %w", err)
	}

	span.SetAttributes(attribute.Int("functions", meta.FunctionCount))
	v.logger.Info("gold standard scanned",
		slog.String("project_root", projectRoot),
		slog.Int("functions", meta.FunctionCount),
		slog.Int("edges", meta.EdgeCount))
	return meta, nil
}

// Verify rebuilds the project's graph and compares it to the stored
// baseline.
//
// Outputs:
//
//	*Report - The verification report. Never nil on success.
//	error - ErrNoBaseline when no scan has been run; ErrCorruptBaseline
//	        when the stored baseline fails integrity checks; otherwise
//	        build failures.
func (v *Verifier) Verify(ctx context.Context, projectRoot string) (*Report, error) {
	ctx, span := tracer.Start(ctx, "Verifier.Verify")
	defer span.End()

	stored, meta, err := v.store.Load(ctx, projectRoot)
	if err != nil {
		return nil, err
	}

	current, err := v.source.BuildGraph(ctx, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("building graph for verify: %w", err)
	}

	diff := funcgraph.Diff(stored, current)
	report := &Report{
		Status:   StatusDrifted,
		Diff:     diff,
		Baseline: meta,
	}
	if diff.IsEquivalent() {
		report.Status = StatusValid
		report.Valid = true
	}

	span.SetAttributes(
		attribute.Bool("valid", report.Valid),
		attribute.Int("added_functions", len(diff.AddedFunctions)),
		attribute.Int("removed_functions", len(diff.RemovedFunctions)),
	)
	v.logger.Info("verification complete",
		slog.String("project_root", projectRoot),
		slog.String("status", string(report.Status)))
	return report, nil
}

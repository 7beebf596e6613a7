// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/funcgraph"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/graph"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ProjectRequest is the body shared by the project-scoped POST
// endpoints.
type ProjectRequest struct {
	// ProjectRoot is the absolute path of the project to analyze.
	ProjectRoot string `json:"project_root" binding:"required"`
}

// CompareRequest asks for an export-surface comparison of two roots.
type CompareRequest struct {
	OldRoot string `json:"old_root" binding:"required"`
	NewRoot string `json:"new_root" binding:"required"`
}

// AnalyzeResponse summarizes a project dependency analysis.
type AnalyzeResponse struct {
	ProjectRoot string   `json:"project_root"`
	Files       []string `json:"files"`
	SymbolCount int      `json:"symbol_count"`
	EntryPoints []string `json:"entry_points"`

	// Cycles are the circular dependency chains, rendered as
	// "a -> b -> a".
	Cycles []string `json:"cycles"`

	Warnings []string `json:"warnings,omitempty"`
}

// ImpactResponse lists the files transitively affected by a change.
type ImpactResponse struct {
	File     string   `json:"file"`
	Impacted []string `json:"impacted"`
}

// UnusedResponse lists exports with no usage anywhere in the project.
type UnusedResponse struct {
	Unused []graph.UnusedExport `json:"unused"`
}

// CyclesResponse lists circular dependency chains.
type CyclesResponse struct {
	Cycles []string `json:"cycles"`
}

// CompareResponse lists breaking export-surface changes.
type CompareResponse struct {
	BreakingChanges []graph.BreakingChange `json:"breaking_changes"`
}

// VerifyResponse reports a baseline verification run.
type VerifyResponse struct {
	Status   baseline.Status      `json:"status"`
	Valid    bool                 `json:"valid"`
	Summary  string               `json:"summary"`
	Diff     *funcgraph.GraphDiff `json:"diff"`
	Baseline *baseline.Metadata   `json:"baseline"`
}

// HealthResponse is the health-check payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

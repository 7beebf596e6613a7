// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the refactor analysis engine over HTTP.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianRefactor/services/refactor"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
)

const requestIDHeader = "X-Request-ID"

// getOrCreateRequestID returns the inbound request ID or mints one,
// echoing it on the response either way.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	return id
}

// Handlers holds the HTTP handlers for the refactor API.
//
// Thread Safety: Safe for concurrent use; the engine is stateless per
// request.
type Handlers struct {
	engine *refactor.Engine
	logger *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(engine *refactor.Engine, logger *slog.Logger) (*Handlers, error) {
	if engine == nil {
		return nil, errors.New("engine must not be nil")
	}
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	return &Handlers{engine: engine, logger: logger}, nil
}

// HandleAnalyze handles POST /v1/refactor/analyze.
//
// Description:
//
//	Runs the full project dependency analysis and returns a summary:
//	analyzed files, symbol count, entry points, circular dependencies
//	and any per-file warnings.
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Missing or invalid body
//	422 Unprocessable Entity: Project root unreadable or config invalid
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleAnalyze")

	req, ok := bindProjectRequest(c)
	if !ok {
		return
	}

	analysis, err := h.engine.Analyze(c.Request.Context(), req.ProjectRoot)
	if err != nil {
		logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "ANALYSIS_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		ProjectRoot: analysis.ProjectRoot,
		Files:       analysis.Files,
		SymbolCount: len(analysis.SymbolTraces),
		EntryPoints: analysis.EntryPoints,
		Cycles:      renderCycles(analysis),
		Warnings:    analysis.Warnings,
	})
}

// HandleGraph handles POST /v1/refactor/graph.
//
// Description:
//
//	Builds the function-level call graph with purity classification and
//	returns it in the persistence schema, suitable for offline diffing.
//
// Response:
//
//	200 OK: funcgraph.SerializableGraph
//	400 Bad Request: Missing or invalid body
//	422 Unprocessable Entity: Build failure
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleGraph")

	req, ok := bindProjectRequest(c)
	if !ok {
		return
	}

	g, err := h.engine.BuildGraph(c.Request.Context(), req.ProjectRoot)
	if err != nil {
		logger.Error("graph build failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "GRAPH_BUILD_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, g.ToSerializable(req.ProjectRoot))
}

// HandleScan handles POST /v1/refactor/scan.
//
// Description:
//
//	Builds the current function graph and persists it as the project's
//	Gold Standard baseline, replacing any previous one.
//
// Response:
//
//	200 OK: baseline.Metadata
//	400 Bad Request: Missing or invalid body
//	422 Unprocessable Entity: Build or persistence failure
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleScan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleScan")

	req, ok := bindProjectRequest(c)
	if !ok {
		return
	}

	meta, err := h.engine.Scan(c.Request.Context(), req.ProjectRoot)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "SCAN_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, meta)
}

// HandleVerify handles POST /v1/refactor/verify.
//
// Description:
//
//	Rebuilds the function graph and diffs it against the stored Gold
//	Standard. Verification never mutates the baseline.
//
// Response:
//
//	200 OK: VerifyResponse (status valid or drifted)
//	400 Bad Request: Missing or invalid body
//	404 Not Found: No baseline stored for the project
//	409 Conflict: Baseline exists but is corrupt; re-scan to resolve
//	422 Unprocessable Entity: Build failure
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleVerify(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleVerify")

	req, ok := bindProjectRequest(c)
	if !ok {
		return
	}

	report, err := h.engine.Verify(c.Request.Context(), req.ProjectRoot)
	if err != nil {
		switch {
		case errors.Is(err, baseline.ErrNoBaseline):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "NO_BASELINE",
			})
		case errors.Is(err, baseline.ErrCorruptBaseline):
			logger.Error("corrupt baseline", slog.Any("error", err))
			c.JSON(http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Code:  "CORRUPT_BASELINE",
			})
		default:
			logger.Error("verification failed", slog.Any("error", err))
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error: err.Error(),
				Code:  "VERIFY_FAILED",
			})
		}
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		Status:   report.Status,
		Valid:    report.Valid,
		Summary:  report.Diff.Summary(),
		Diff:     report.Diff,
		Baseline: report.Baseline,
	})
}

// HandleCompare handles POST /v1/refactor/compare.
//
// Description:
//
//	Analyzes two project roots and reports breaking changes to the
//	export surface (removed exports, changed signatures).
//
// Response:
//
//	200 OK: CompareResponse
//	400 Bad Request: Missing or invalid body
//	422 Unprocessable Entity: Either analysis failed
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleCompare(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleCompare")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	changes, err := h.engine.CompareSurfaces(c.Request.Context(), req.OldRoot, req.NewRoot)
	if err != nil {
		logger.Error("comparison failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "COMPARE_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, CompareResponse{BreakingChanges: changes})
}

// HandleImpact handles GET /v1/refactor/impact.
//
// Query Parameters:
//
//	project_root: Absolute path of the project (required)
//	file: Project-relative file to assess (required)
//
// Response:
//
//	200 OK: ImpactResponse (files transitively depending on the file)
//	400 Bad Request: Missing parameter
//	422 Unprocessable Entity: Analysis failed
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleImpact(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleImpact")

	root, ok := requiredQuery(c, "project_root")
	if !ok {
		return
	}
	file, ok := requiredQuery(c, "file")
	if !ok {
		return
	}

	analysis, err := h.engine.Analyze(c.Request.Context(), root)
	if err != nil {
		logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "ANALYSIS_FAILED",
		})
		return
	}

	impacted := analysis.Impact(file)
	c.JSON(http.StatusOK, ImpactResponse{File: file, Impacted: impacted})
}

// HandleUnused handles GET /v1/refactor/unused.
//
// Query Parameters:
//
//	project_root: Absolute path of the project (required)
//	strict: Include entry-point exports, default false (optional)
//
// Response:
//
//	200 OK: UnusedResponse
//	400 Bad Request: Missing parameter
//	422 Unprocessable Entity: Analysis failed
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleUnused(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleUnused")

	root, ok := requiredQuery(c, "project_root")
	if !ok {
		return
	}
	strict := c.Query("strict") == "true"

	analysis, err := h.engine.Analyze(c.Request.Context(), root)
	if err != nil {
		logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "ANALYSIS_FAILED",
		})
		return
	}

	unused := analysis.Unused(strict)
	c.JSON(http.StatusOK, UnusedResponse{Unused: unused})
}

// HandleCycles handles GET /v1/refactor/cycles.
//
// Query Parameters:
//
//	project_root: Absolute path of the project (required)
//
// Response:
//
//	200 OK: CyclesResponse
//	400 Bad Request: Missing parameter
//	422 Unprocessable Entity: Analysis failed
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleCycles(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleCycles")

	root, ok := requiredQuery(c, "project_root")
	if !ok {
		return
	}

	analysis, err := h.engine.Analyze(c.Request.Context(), root)
	if err != nil {
		logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "ANALYSIS_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, CyclesResponse{Cycles: renderCycles(analysis)})
}

// HandleHealth handles GET /v1/refactor/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "refactor"})
}

// bindProjectRequest binds the shared project body, writing the 400 on
// failure.
func bindProjectRequest(c *gin.Context) (ProjectRequest, bool) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return ProjectRequest{}, false
	}
	return req, true
}

// requiredQuery reads a mandatory query parameter, writing the 400 on
// absence.
func requiredQuery(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: name + " parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return "", false
	}
	return v, true
}

// renderCycles renders cycles in "a -> b -> a" form. Always non-nil so
// the JSON field serializes as an array.
func renderCycles(analysis *refactor.Analysis) []string {
	out := make([]string, 0, len(analysis.CircularDependencies))
	for _, cycle := range analysis.CircularDependencies {
		out = append(out, cycle.String())
	}
	return out
}

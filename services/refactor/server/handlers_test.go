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
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianRefactor/services/refactor"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter builds a router over a real engine with an in-memory
// baseline store.
func setupTestRouter(t *testing.T, opts ...RouterOption) *gin.Engine {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err, "opening in-memory badger")
	t.Cleanup(func() { _ = db.Close() })

	store, err := baseline.NewStore(db, slog.Default())
	require.NoError(t, err)
	engine, err := refactor.NewEngine(store, slog.Default())
	require.NoError(t, err)
	handlers, err := NewHandlers(engine, slog.Default())
	require.NoError(t, err)

	return NewRouter(handlers, opts...)
}

// writeProject materializes a source tree under a temp dir.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleAnalyze_Success(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.ts": `import { a } from './a'; a();`,
		"src/a.ts":     `export function a() { return 1; }`,
	})
	router := setupTestRouter(t)

	w := postJSON(router, "/v1/refactor/analyze", `{"project_root": "`+root+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"), "request id should be echoed")

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 2)
	assert.Equal(t, []string{"src/index.ts"}, resp.EntryPoints)
	assert.Empty(t, resp.Cycles)
}

func TestHandleAnalyze_InvalidBody(t *testing.T) {
	router := setupTestRouter(t)

	w := postJSON(router, "/v1/refactor/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

func TestHandleAnalyze_MissingRoot(t *testing.T) {
	router := setupTestRouter(t)
	missing := filepath.Join(t.TempDir(), "nope")

	w := postJSON(router, "/v1/refactor/analyze", `{"project_root": "`+missing+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleCycles(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/a.ts": `import { b } from './b'; export function a() { return b(); }`,
		"src/b.ts": `import { a } from './a'; export function b() { return a(); }`,
	})
	router := setupTestRouter(t)

	w := getPath(router, "/v1/refactor/cycles?project_root="+root)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CyclesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Cycles, 1)
	assert.Equal(t, "src/a.ts -> src/b.ts -> src/a.ts", resp.Cycles[0])
}

func TestHandleImpact(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/util.ts":    `export function util() { return 1; }`,
		"src/service.ts": `import { util } from './util'; export function svc() { return util(); }`,
		"src/handler.ts": `import { svc } from './service'; export function handle() { return svc(); }`,
	})
	router := setupTestRouter(t)

	w := getPath(router, "/v1/refactor/impact?project_root="+root+"&file=src/util.ts")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ImpactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"src/service.ts", "src/handler.ts"}, resp.Impacted)
}

func TestHandleImpact_MissingParameter(t *testing.T) {
	router := setupTestRouter(t)

	w := getPath(router, "/v1/refactor/impact?project_root=/tmp/x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "MISSING_PARAMETER", resp.Code)
}

func TestHandleUnused(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/index.ts": `import { used } from './lib'; used();`,
		"src/lib.ts": `export function used() { return 1; }
export function orphan() { return 2; }`,
	})
	router := setupTestRouter(t)

	w := getPath(router, "/v1/refactor/unused?project_root="+root)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp UnusedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Unused, 1)
	assert.Equal(t, "orphan", resp.Unused[0].Export.Name)
}

func TestScanVerify_Lifecycle(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/calc.ts": `export function add(a, b) { return a + b; }`,
	})
	router := setupTestRouter(t)
	body := `{"project_root": "` + root + `"}`

	// Verify before any scan: no baseline.
	w := postJSON(router, "/v1/refactor/verify", body)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = postJSON(router, "/v1/refactor/scan", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var meta baseline.Metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, 1, meta.FunctionCount)

	w = postJSON(router, "/v1/refactor/verify", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, baseline.StatusValid, report.Status)

	// Drift and verify again.
	drifted := `export function add(a, b) { console.log(a); return a + b; }`
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "calc.ts"), []byte(drifted), 0o644))

	w = postJSON(router, "/v1/refactor/verify", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Valid)
	assert.Equal(t, baseline.StatusDrifted, report.Status)
	assert.Contains(t, report.Summary, "purity")
}

func TestHandleCompare(t *testing.T) {
	oldRoot := writeProject(t, map[string]string{
		"src/api.ts": `export function keep() { return 1; }
export function gone() { return 2; }`,
	})
	newRoot := writeProject(t, map[string]string{
		"src/api.ts": `export function keep() { return 1; }`,
	})
	router := setupTestRouter(t)

	w := postJSON(router, "/v1/refactor/compare",
		`{"old_root": "`+oldRoot+`", "new_root": "`+newRoot+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.BreakingChanges, 1)
	assert.Equal(t, "gone", resp.BreakingChanges[0].Export.Name)
}

func TestHandleHealth(t *testing.T) {
	router := setupTestRouter(t)

	w := getPath(router, "/v1/refactor/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := getPath(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(t, WithRateLimit(1, 1))

	first := getPath(router, "/v1/refactor/health")
	require.Equal(t, http.StatusOK, first.Code)

	second := getPath(router, "/v1/refactor/health")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp.Code)
}

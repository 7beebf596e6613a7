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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("refactor.graph")

var (
	metricsOnce   sync.Once
	buildDuration metric.Float64Histogram
	buildFiles    metric.Int64Histogram
	buildSymbols  metric.Int64Histogram
	cyclesFound   metric.Int64Counter
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("refactor.graph")
		buildDuration, _ = meter.Float64Histogram("refactor.graph.build.duration_ms",
			metric.WithDescription("Project analysis build duration in milliseconds"))
		buildFiles, _ = meter.Int64Histogram("refactor.graph.build.files",
			metric.WithDescription("Files per analysis build"))
		buildSymbols, _ = meter.Int64Histogram("refactor.graph.build.symbols",
			metric.WithDescription("Symbol traces per analysis build"))
		cyclesFound, _ = meter.Int64Counter("refactor.graph.cycles",
			metric.WithDescription("Circular dependencies detected"))
	})
}

// recordBuildMetrics records one completed analysis build.
func recordBuildMetrics(ctx context.Context, elapsed time.Duration, files, symbols, cycles int) {
	initMetrics()
	if buildDuration != nil {
		buildDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	}
	if buildFiles != nil {
		buildFiles.Record(ctx, int64(files))
	}
	if buildSymbols != nil {
		buildSymbols.Record(ctx, int64(symbols))
	}
	if cyclesFound != nil && cycles > 0 {
		cyclesFound.Add(ctx, int64(cycles))
	}
}

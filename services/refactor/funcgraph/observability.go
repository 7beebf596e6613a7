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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("refactor.funcgraph")

var (
	metricsOnce   sync.Once
	buildDuration metric.Float64Histogram
	graphNodes    metric.Int64Histogram
	impureRatio   metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("refactor.funcgraph")
		buildDuration, _ = meter.Float64Histogram("refactor.funcgraph.build.duration_ms",
			metric.WithDescription("Function graph build duration in milliseconds"))
		graphNodes, _ = meter.Int64Histogram("refactor.funcgraph.nodes",
			metric.WithDescription("Function nodes per built graph"))
		impureRatio, _ = meter.Float64Histogram("refactor.funcgraph.impure_ratio",
			metric.WithDescription("Fraction of impure functions per built graph"))
	})
}

// recordBuildMetrics records one completed graph build.
func recordBuildMetrics(ctx context.Context, elapsed time.Duration, stats GraphStats) {
	initMetrics()
	if buildDuration != nil {
		buildDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	}
	if graphNodes != nil {
		graphNodes.Record(ctx, int64(stats.TotalFunctions))
	}
	if impureRatio != nil && stats.TotalFunctions > 0 {
		impureRatio.Record(ctx, float64(stats.ImpureFunctions)/float64(stats.TotalFunctions))
	}
}

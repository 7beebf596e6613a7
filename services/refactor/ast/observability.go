// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("refactor.ast")

var (
	metricsOnce    sync.Once
	parseCounter   metric.Int64Counter
	parseDuration  metric.Float64Histogram
	exportsCounter metric.Int64Counter
)

// initMetrics lazily creates the package's metric instruments.
func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("refactor.ast")
		parseCounter, _ = meter.Int64Counter("refactor.parse.count",
			metric.WithDescription("Number of file parses by language and outcome"))
		parseDuration, _ = meter.Float64Histogram("refactor.parse.duration_ms",
			metric.WithDescription("File parse duration in milliseconds"))
		exportsCounter, _ = meter.Int64Counter("refactor.parse.exports",
			metric.WithDescription("Number of exports extracted"))
	})
}

// startParseSpan starts the tracing span for one file parse.
func startParseSpan(ctx context.Context, language, filePath string, size int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Parser.Parse",
		trace.WithAttributes(
			attribute.String("language", language),
			attribute.String("file", filePath),
			attribute.Int("size_bytes", size),
		),
	)
}

// setParseSpanResult records extraction counts on the parse span.
func setParseSpanResult(span trace.Span, exports, imports, functions, errors int) {
	span.SetAttributes(
		attribute.Int("exports", exports),
		attribute.Int("imports", imports),
		attribute.Int("functions", functions),
		attribute.Int("parse_errors", errors),
	)
}

// recordParseMetrics records parse counters and duration.
func recordParseMetrics(ctx context.Context, language string, elapsed time.Duration, exports int, ok bool) {
	initMetrics()
	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("success", ok),
	)
	if parseCounter != nil {
		parseCounter.Add(ctx, 1, attrs)
	}
	if parseDuration != nil {
		parseDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	}
	if exportsCounter != nil && exports > 0 {
		exportsCounter.Add(ctx, int64(exports), attrs)
	}
}

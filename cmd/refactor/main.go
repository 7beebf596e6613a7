// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command refactor analyzes project dependency structure and function
// purity, and verifies the working tree against a saved Gold Standard
// call graph.
//
// Usage:
//
//	refactor analyze ./my-project
//	refactor cycles ./my-project
//	refactor impact ./my-project src/utils.ts
//	refactor unused ./my-project --strict
//	refactor compare ./old-checkout ./new-checkout
//
// Baseline lifecycle:
//
//	refactor scan ./my-project      # save the Gold Standard
//	refactor verify ./my-project    # diff the working tree against it
//	refactor diff ./my-project      # verify with full diff detail
//
// Server:
//
//	refactor serve --port 8080
//	refactor watch ./my-project     # re-verify on file changes
//
// Telemetry: spans export over OTLP/gRPC when
// OTEL_EXPORTER_OTLP_ENDPOINT is set, or to stderr with --debug.
// Metrics are served on /metrics in serve mode.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/AleutianRefactor/services/refactor"
	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
)

// debugMode holds the global --debug flag.
var debugMode bool

// telemetryShutdown flushes the telemetry providers on exit. Installed
// after flag parsing so --debug can select the stderr exporter.
var telemetryShutdown = func() {}

var rootCmd = &cobra.Command{
	Use:   "refactor",
	Short: "Refactor-safety analysis for TypeScript, JavaScript and Python projects",
	Long: `Builds project-wide dependency graphs and function-level call graphs
with purity classification, and verifies the working tree against a
saved Gold Standard baseline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level := slog.LevelInfo
		if debugMode {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		shutdown, err := setupTelemetry(cmd.Context())
		if err != nil {
			return err
		}
		telemetryShutdown = shutdown
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		telemetryShutdown()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		telemetryShutdown()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging and stderr trace export")
}

// setupTelemetry installs the global propagator, tracer provider and
// meter provider.
//
// Description:
//
//	Spans export over OTLP/gRPC when OTEL_EXPORTER_OTLP_ENDPOINT is
//	set; with --debug they print to stderr instead. Without either the
//	provider stays exporter-free so instrumentation costs nothing.
//	Metrics always flow to the Prometheus registry the /metrics
//	endpoint serves.
func setupTelemetry(ctx context.Context) (func(), error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	var traceOpts []sdktrace.TracerProviderOption
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint))
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	} else if debugMode {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("creating stderr trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithSyncer(exporter))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)

	promExporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	otel.SetMeterProvider(mp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	}, nil
}

// cacheDir resolves the baseline database directory. REFACTOR_CACHE_DIR
// wins; the default lives under the user's home.
func cacheDir() (string, error) {
	if dir := os.Getenv("REFACTOR_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".aleutian", "cache", "refactor"), nil
}

// openEngine builds an Engine, with baseline persistence when
// withStore is set. The returned closer is nil-safe.
func openEngine(withStore bool) (*refactor.Engine, func(), error) {
	noop := func() {}

	if !withStore {
		engine, err := refactor.NewEngine(nil, slog.Default())
		return engine, noop, err
	}

	dir, err := cacheDir()
	if err != nil {
		return nil, noop, err
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, noop, fmt.Errorf("opening baseline database at %s: %w", dir, err)
	}
	store, err := baseline.NewStore(db, slog.Default())
	if err != nil {
		_ = db.Close()
		return nil, noop, err
	}
	engine, err := refactor.NewEngine(store, slog.Default())
	if err != nil {
		_ = db.Close()
		return nil, noop, err
	}
	return engine, func() { _ = db.Close() }, nil
}

// projectRootArg resolves a positional project root to an absolute
// path.
func projectRootArg(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}
	return abs, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/server"
)

// Serve and watch flags.
var (
	servePort     int
	serveRate     float64
	serveBurst    int
	watchDebounce time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the refactor analysis API over HTTP",
	Args:  cobra.NoArgs,
	Run:   runServeCommand,
}

var watchCmd = &cobra.Command{
	Use:   "watch [project-root]",
	Short: "Re-verify against the Gold Standard whenever source files change",
	Args:  cobra.MaximumNArgs(1),
	Run:   runWatchCommand,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().Float64Var(&serveRate, "rate-limit", 50, "Requests per second (0 disables)")
	serveCmd.Flags().IntVar(&serveBurst, "rate-burst", 100, "Rate limit burst size")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before re-verifying")
	rootCmd.AddCommand(serveCmd, watchCmd)
}

func runServeCommand(_ *cobra.Command, _ []string) {
	if debugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, closeEngine, err := openEngine(true)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	handlers, err := server.NewHandlers(engine, slog.Default())
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	router := server.NewRouter(handlers, server.WithRateLimit(serveRate, serveBurst))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down refactor server")
		closeEngine()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", servePort)
	slog.Info("starting refactor server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func runWatchCommand(cmd *cobra.Command, args []string) {
	root, err := projectRootArg(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(true)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("Creating watcher: %v", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, root); err != nil {
		log.Fatalf("Watching %s: %v", root, err)
	}

	verify := func() {
		report, err := engine.Verify(cmd.Context(), root)
		if err != nil {
			fmt.Printf("[%s] verification error: %v\n", time.Now().Format("15:04:05"), err)
			return
		}
		if report.Valid {
			fmt.Printf("[%s] OK: no structural changes\n", time.Now().Format("15:04:05"))
			return
		}
		fmt.Printf("[%s] DRIFT:\n%s\n", time.Now().Format("15:04:05"), report.Diff.Summary())
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", root)
	verify()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Coalesce event bursts (editors write several events per save)
	// into one verification per quiet period.
	var timer *time.Timer
	pending := make(chan struct{}, 1)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			select {
			case pending <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name)
				}
			}
			if relevantChange(event.Name) {
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.Any("error", err))
		case <-pending:
			verify()
		case <-quit:
			fmt.Println("\nStopped.")
			return
		}
	}
}

// watchTree registers the directory and every non-skipped subdirectory
// with the watcher. fsnotify watches are not recursive.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipWatchDirs[name]) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// skipWatchDirs mirrors the discovery skip list.
var skipWatchDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"coverage":     true,
}

// relevantChange filters events to source files the parsers support.
func relevantChange(path string) bool {
	switch filepath.Ext(path) {
	case ".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".py", ".pyi":
		return true
	}
	return false
}

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
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/baseline"
)

var scanCmd = &cobra.Command{
	Use:   "scan [project-root]",
	Short: "Save the current function graph as the Gold Standard baseline",
	Args:  cobra.MaximumNArgs(1),
	Run:   runScanCommand,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [project-root]",
	Short: "Verify the working tree against the Gold Standard baseline",
	Long: `Rebuilds the function graph and diffs it structurally against the
stored baseline. Exits non-zero on drift so CI can gate on it. The
baseline is never modified; run scan to accept drift.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runVerifyCommand,
}

var diffCmd = &cobra.Command{
	Use:   "diff [project-root]",
	Short: "Show the full structural diff against the Gold Standard baseline",
	Args:  cobra.MaximumNArgs(1),
	Run:   runDiffCommand,
}

func init() {
	rootCmd.AddCommand(scanCmd, verifyCmd, diffCmd)
}

func runScanCommand(cmd *cobra.Command, args []string) {
	root, err := projectRootArg(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(true)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	meta, err := engine.Scan(cmd.Context(), root)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("Gold Standard saved for %s\n", root)
	fmt.Printf("  functions: %d\n", meta.FunctionCount)
	fmt.Printf("  call edges: %d\n", meta.EdgeCount)
	fmt.Printf("  created: %s\n", time.UnixMilli(meta.CreatedAtMilli).Format(time.RFC3339))
}

func runVerifyCommand(cmd *cobra.Command, args []string) {
	report := mustVerify(cmd, args)
	if report.Valid {
		fmt.Println("OK: no structural changes against the Gold Standard.")
		return
	}
	fmt.Println("DRIFT detected:")
	fmt.Println(report.Diff.Summary())
	os.Exit(1)
}

func runDiffCommand(cmd *cobra.Command, args []string) {
	report := mustVerify(cmd, args)
	if report.Valid {
		fmt.Println("No structural changes.")
		return
	}

	d := report.Diff
	printList := func(header string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("%s (%d):\n", header, len(items))
		for _, item := range items {
			fmt.Printf("  %s\n", item)
		}
	}
	printList("Added functions", d.AddedFunctions)
	printList("Removed functions", d.RemovedFunctions)
	printList("Added call edges", d.AddedEdges)
	printList("Removed call edges", d.RemovedEdges)
	for _, s := range d.SignatureChanges {
		fmt.Printf("Signature changed: %s %q -> %q\n", s.ID, s.OldSignature, s.NewSignature)
	}
	for _, p := range d.PurityChanges {
		fmt.Printf("Purity changed: %s %s -> %s\n", p.ID, p.OldPurity, p.NewPurity)
	}
	os.Exit(1)
}

// mustVerify runs verification, translating the baseline sentinels into
// actionable messages.
func mustVerify(cmd *cobra.Command, args []string) *baseline.Report {
	root, err := projectRootArg(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(true)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	report, err := engine.Verify(cmd.Context(), root)
	switch {
	case errors.Is(err, baseline.ErrNoBaseline):
		log.Fatalf("No baseline for %s. Run 'refactor scan' first.", root)
	case errors.Is(err, baseline.ErrCorruptBaseline):
		log.Fatalf("Baseline for %s is corrupt. Re-run 'refactor scan' to replace it.", root)
	case err != nil:
		log.Fatalf("Verification failed: %v", err)
	}
	return report
}

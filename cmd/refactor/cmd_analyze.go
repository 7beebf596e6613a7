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
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/graph"
)

// strictUnused holds the --strict flag for the unused command.
var strictUnused bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [project-root]",
	Short: "Build the project dependency analysis and print a summary",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAnalyzeCommand,
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles [project-root]",
	Short: "Report circular dependency chains",
	Args:  cobra.MaximumNArgs(1),
	Run:   runCyclesCommand,
}

var impactCmd = &cobra.Command{
	Use:   "impact [project-root] <file>",
	Short: "List files transitively affected by changing one file",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runImpactCommand,
}

var unusedCmd = &cobra.Command{
	Use:   "unused [project-root]",
	Short: "Report exports with no usage anywhere in the project",
	Args:  cobra.MaximumNArgs(1),
	Run:   runUnusedCommand,
}

var compareCmd = &cobra.Command{
	Use:   "compare <old-root> <new-root>",
	Short: "Report breaking export-surface changes between two checkouts",
	Args:  cobra.ExactArgs(2),
	Run:   runCompareCommand,
}

func init() {
	unusedCmd.Flags().BoolVar(&strictUnused, "strict", false, "Include entry-point exports")
	rootCmd.AddCommand(analyzeCmd, cyclesCmd, impactCmd, unusedCmd, compareCmd)
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) {
	root, err := projectRootArg(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(false)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	analysis, err := engine.Analyze(cmd.Context(), root)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Printf("Project: %s\n", root)
	fmt.Printf("Files analyzed: %d\n", len(analysis.Files))
	fmt.Printf("Symbols traced: %d\n", len(analysis.SymbolTraces))
	fmt.Printf("Entry points: %s\n", strings.Join(analysis.EntryPoints, ", "))
	fmt.Printf("Circular dependencies: %d\n", len(analysis.CircularDependencies))
	for _, cycle := range analysis.CircularDependencies {
		fmt.Printf("  %s\n", cycle.String())
	}
	if len(analysis.Warnings) > 0 {
		fmt.Printf("Warnings (%d):\n", len(analysis.Warnings))
		for _, w := range analysis.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}

func runCyclesCommand(cmd *cobra.Command, args []string) {
	root, err := projectRootArg(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(false)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	analysis, err := engine.Analyze(cmd.Context(), root)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	if len(analysis.CircularDependencies) == 0 {
		fmt.Println("No circular dependencies.")
		return
	}
	for _, cycle := range analysis.CircularDependencies {
		fmt.Println(cycle.String())
	}
}

func runImpactCommand(cmd *cobra.Command, args []string) {
	// Single-arg form assumes the current directory as the root.
	rootArgs, file := args[:len(args)-1], args[len(args)-1]
	root, err := projectRootArg(rootArgs)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(false)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	analysis, err := engine.Analyze(cmd.Context(), root)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	impacted := analysis.Impact(file)
	if len(impacted) == 0 {
		fmt.Printf("Nothing depends on %s.\n", file)
		return
	}
	fmt.Printf("Changing %s affects %d file(s):\n", file, len(impacted))
	for _, f := range impacted {
		fmt.Printf("  %s\n", f)
	}
}

func runUnusedCommand(cmd *cobra.Command, args []string) {
	root, err := projectRootArg(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	engine, closeEngine, err := openEngine(false)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	analysis, err := engine.Analyze(cmd.Context(), root)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	unused := analysis.Unused(strictUnused)
	if len(unused) == 0 {
		fmt.Println("No unused exports.")
		return
	}
	fmt.Printf("Unused exports (%d):\n", len(unused))
	for _, u := range unused {
		marker := ""
		if u.EntryPoint {
			marker = " (entry point)"
		}
		fmt.Printf("  %s:%d %s%s\n", u.Export.FilePath, u.Export.StartLine, u.Export.Name, marker)
	}
}

func runCompareCommand(cmd *cobra.Command, args []string) {
	engine, closeEngine, err := openEngine(false)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer closeEngine()

	changes, err := engine.CompareSurfaces(cmd.Context(), args[0], args[1])
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	if len(changes) == 0 {
		fmt.Println("Export surface is compatible.")
		return
	}
	fmt.Printf("Breaking changes (%d):\n", len(changes))
	for _, c := range changes {
		switch c.Type {
		case graph.ChangeRemoved:
			fmt.Printf("  removed: %s (%s)\n", c.Export.Name, c.Export.FilePath)
		default:
			fmt.Printf("  signature: %s (%s) %q -> %q\n",
				c.Export.Name, c.Export.FilePath, c.OldSignature, c.NewSignature)
		}
		if len(c.AffectedFiles) > 0 {
			fmt.Printf("    affects: %s\n", strings.Join(c.AffectedFiles, ", "))
		}
	}
}

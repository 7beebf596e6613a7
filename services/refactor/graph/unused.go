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
	"sort"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

// UnusedExport is one export with no cross-file usage.
type UnusedExport struct {
	// Export is the unused symbol.
	Export ast.Export `json:"export"`

	// EntryPoint marks exports from entry-point files, which only appear
	// in strict mode. Their consumers are outside the analyzed project.
	EntryPoint bool `json:"entry_point"`
}

// UnusedExports finds exports with zero cross-file usages.
//
// Description:
//
//	Same-file usages never count; an export only used inside its own
//	file is still unused from the project's point of view. Exports of
//	entry-point files are excluded unless strict is set, since their
//	consumers (frameworks, package consumers) are invisible to the
//	analysis. Re-exports are skipped; their usage belongs to the origin.
//
// Outputs:
//   - []UnusedExport: Sorted by file path, then name. Empty slice when
//     every export is used.
func (a *ProjectAnalysis) UnusedExports(entryPoints []string, strict bool) []UnusedExport {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, e := range entryPoints {
		entrySet[e] = true
	}

	unused := make([]UnusedExport, 0)
	for _, key := range sortedKeys(a.SymbolTraces) {
		trace := a.SymbolTraces[key]
		if trace.UsageCount > 0 || len(trace.ImportedBy) > 0 {
			continue
		}
		if trace.Symbol.IsReExport {
			continue
		}
		isEntry := entrySet[trace.Symbol.FilePath]
		if isEntry && !strict {
			continue
		}
		unused = append(unused, UnusedExport{Export: trace.Symbol, EntryPoint: isEntry})
	}

	sort.Slice(unused, func(i, j int) bool {
		if unused[i].Export.FilePath != unused[j].Export.FilePath {
			return unused[i].Export.FilePath < unused[j].Export.FilePath
		}
		return unused[i].Export.Name < unused[j].Export.Name
	})
	return unused
}

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

// BreakingChangeType classifies how an export surface change breaks
// consumers.
type BreakingChangeType string

// Breaking change types.
const (
	// ChangeRemoved marks an export present before and gone now.
	ChangeRemoved BreakingChangeType = "removed"

	// ChangeSignature marks an export whose captured signature changed.
	ChangeSignature BreakingChangeType = "signature_changed"
)

// BreakingChange is one consumer-visible difference between two analyses
// of the same project.
type BreakingChange struct {
	// Type classifies the change.
	Type BreakingChangeType `json:"type"`

	// Export is the affected symbol as it appeared in the old analysis.
	Export ast.Export `json:"export"`

	// OldSignature and NewSignature are set for signature changes.
	OldSignature string `json:"old_signature,omitempty"`
	NewSignature string `json:"new_signature,omitempty"`

	// AffectedFiles are the old analysis's dependents of the symbol, the
	// files a refactor must touch.
	AffectedFiles []string `json:"affected_files,omitempty"`
}

// CompareExports reports the export-surface changes from old to new.
//
// Description:
//
//	Removed exports and signature changes are breaking; added exports are
//	not and are ignored. Affected files come from the old analysis's
//	symbol traces, since those consumers existed when the export did.
//
// Outputs:
//   - []BreakingChange: Sorted by export key. Empty slice when the
//     surfaces are compatible.
func CompareExports(old, new *ProjectAnalysis) []BreakingChange {
	changes := make([]BreakingChange, 0)

	for _, key := range sortedKeys(old.SymbolTraces) {
		oldTrace := old.SymbolTraces[key]
		newTrace := new.SymbolTraces[key]

		if newTrace == nil {
			changes = append(changes, BreakingChange{
				Type:          ChangeRemoved,
				Export:        oldTrace.Symbol,
				AffectedFiles: append([]string(nil), oldTrace.Dependents...),
			})
			continue
		}

		oldSig := oldTrace.Symbol.Signature
		newSig := newTrace.Symbol.Signature
		if oldSig != "" && newSig != "" && oldSig != newSig {
			changes = append(changes, BreakingChange{
				Type:          ChangeSignature,
				Export:        oldTrace.Symbol,
				OldSignature:  oldSig,
				NewSignature:  newSig,
				AffectedFiles: append([]string(nil), oldTrace.Dependents...),
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Export.Key() < changes[j].Export.Key()
	})
	return changes
}

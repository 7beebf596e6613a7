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
	"fmt"
	"sort"
	"strings"
)

// SignatureChange records a function whose captured signature changed.
type SignatureChange struct {
	ID           string `json:"id"`
	OldSignature string `json:"old_signature"`
	NewSignature string `json:"new_signature"`
}

// PurityChange records a function whose purity classification changed.
type PurityChange struct {
	ID        string `json:"id"`
	OldPurity Purity `json:"old_purity"`
	NewPurity Purity `json:"new_purity"`
}

// GraphDiff is the structural difference between two function graphs.
//
// A diff is derived and read-only; it is never persisted. Edge
// differences are computed over (From, To, Type) triples; call-site line
// numbers are excluded so moving a call inside a function does not
// register as drift.
type GraphDiff struct {
	// AddedFunctions and RemovedFunctions are node IDs, sorted.
	AddedFunctions   []string `json:"added_functions,omitempty"`
	RemovedFunctions []string `json:"removed_functions,omitempty"`

	// SignatureChanges and PurityChanges cover nodes present in both
	// graphs, sorted by ID.
	SignatureChanges []SignatureChange `json:"signature_changes,omitempty"`
	PurityChanges    []PurityChange    `json:"purity_changes,omitempty"`

	// AddedEdges and RemovedEdges are "from|to|type" edge keys, sorted.
	AddedEdges   []string `json:"added_edges,omitempty"`
	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// IsEquivalent reports whether the two graphs are structurally identical:
// every difference set empty.
func (d *GraphDiff) IsEquivalent() bool {
	return len(d.AddedFunctions) == 0 &&
		len(d.RemovedFunctions) == 0 &&
		len(d.SignatureChanges) == 0 &&
		len(d.PurityChanges) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}

// Summary renders one line per non-empty category. Equivalent diffs
// render "no structural changes".
func (d *GraphDiff) Summary() string {
	if d.IsEquivalent() {
		return "no structural changes"
	}
	var lines []string
	if n := len(d.AddedFunctions); n > 0 {
		lines = append(lines, fmt.Sprintf("%d function(s) added", n))
	}
	if n := len(d.RemovedFunctions); n > 0 {
		lines = append(lines, fmt.Sprintf("%d function(s) removed", n))
	}
	if n := len(d.SignatureChanges); n > 0 {
		lines = append(lines, fmt.Sprintf("%d signature(s) changed", n))
	}
	if n := len(d.PurityChanges); n > 0 {
		lines = append(lines, fmt.Sprintf("%d purity classification(s) changed", n))
	}
	if n := len(d.AddedEdges); n > 0 {
		lines = append(lines, fmt.Sprintf("%d call edge(s) added", n))
	}
	if n := len(d.RemovedEdges); n > 0 {
		lines = append(lines, fmt.Sprintf("%d call edge(s) removed", n))
	}
	return strings.Join(lines, "\n")
}

// Diff computes the structural difference from old to new.
//
// Description:
//
//	Node identity is the function ID; edge identity is the
//	(From, To, Type) triple. The operation is antisymmetric:
//	Diff(a, b).AddedFunctions == Diff(b, a).RemovedFunctions, and
//	likewise for every paired category.
//
// Outputs:
//   - *GraphDiff: The difference, never nil. Diff(g, g).IsEquivalent()
//     is always true.
func Diff(old, new *FunctionGraph) *GraphDiff {
	d := &GraphDiff{}

	for id, newNode := range new.Nodes {
		oldNode := old.Nodes[id]
		if oldNode == nil {
			d.AddedFunctions = append(d.AddedFunctions, id)
			continue
		}
		if oldNode.Signature != newNode.Signature {
			d.SignatureChanges = append(d.SignatureChanges, SignatureChange{
				ID:           id,
				OldSignature: oldNode.Signature,
				NewSignature: newNode.Signature,
			})
		}
		if oldNode.Purity != newNode.Purity {
			d.PurityChanges = append(d.PurityChanges, PurityChange{
				ID:        id,
				OldPurity: oldNode.Purity,
				NewPurity: newNode.Purity,
			})
		}
	}
	for id := range old.Nodes {
		if new.Nodes[id] == nil {
			d.RemovedFunctions = append(d.RemovedFunctions, id)
		}
	}

	oldEdges := edgeSet(old.Edges)
	newEdges := edgeSet(new.Edges)
	for key := range newEdges {
		if !oldEdges[key] {
			d.AddedEdges = append(d.AddedEdges, key)
		}
	}
	for key := range oldEdges {
		if !newEdges[key] {
			d.RemovedEdges = append(d.RemovedEdges, key)
		}
	}

	sort.Strings(d.AddedFunctions)
	sort.Strings(d.RemovedFunctions)
	sort.Strings(d.AddedEdges)
	sort.Strings(d.RemovedEdges)
	sort.Slice(d.SignatureChanges, func(i, j int) bool {
		return d.SignatureChanges[i].ID < d.SignatureChanges[j].ID
	})
	sort.Slice(d.PurityChanges, func(i, j int) bool {
		return d.PurityChanges[i].ID < d.PurityChanges[j].ID
	})
	return d
}

// edgeSet collapses edges to their identity keys. Duplicate call sites
// within one function collapse to a single key.
func edgeSet(edges []CallEdge) map[string]bool {
	set := make(map[string]bool, len(edges))
	for _, e := range edges {
		set[e.key()] = true
	}
	return set
}

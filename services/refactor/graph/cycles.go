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
	"strings"
)

// FindCycles detects circular dependencies in a forward adjacency map.
//
// Description:
//
//	Depth-first search with an explicit recursion stack. A back edge to a
//	node on the stack emits the stack slice from that node as a cycle.
//	Cycles are deduplicated up to rotation by rotating each to start at
//	its lexicographically smallest member. Self-loops are reported as
//	one-element cycles.
//
// Outputs:
//   - []Cycle: The distinct cycles, in discovery order. Empty slice for
//     acyclic graphs.
//
// Implemented directly on the adjacency map; cycle enumeration with
// rotation dedup is not something the module's graph dependencies provide.
func FindCycles(forward map[string][]string) []Cycle {
	const (
		white = 0 // unvisited
		gray  = 1 // on the recursion stack
		black = 2 // fully explored
	)

	color := make(map[string]int, len(forward))
	seen := make(map[string]bool)
	var cycles []Cycle
	var stack []string
	onStack := make(map[string]int) // node -> stack index

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		onStack[node] = len(stack)
		stack = append(stack, node)

		// Sorted neighbor order keeps discovery deterministic.
		neighbors := append([]string(nil), forward[node]...)
		sort.Strings(neighbors)

		for _, next := range neighbors {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Back edge: the stack from next to node is a cycle.
				cycle := normalizeCycle(stack[onStack[next]:])
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, node)
		color[node] = black
	}

	for _, node := range sortedKeys(forward) {
		if color[node] == white {
			visit(node)
		}
	}
	if cycles == nil {
		return []Cycle{}
	}
	return cycles
}

// normalizeCycle rotates a cycle to start at its lexicographically
// smallest member so rotations of the same cycle compare equal. A path
// that somehow repeats a member keeps only the segment from the first
// occurrence, which preserves the cycle property.
func normalizeCycle(path []string) Cycle {
	if len(path) == 0 {
		return Cycle{}
	}

	// Guard against repeated members in the emitted slice.
	firstIdx := make(map[string]int, len(path))
	deduped := make([]string, 0, len(path))
	for _, n := range path {
		if _, dup := firstIdx[n]; dup {
			continue
		}
		firstIdx[n] = len(deduped)
		deduped = append(deduped, n)
	}

	smallest := 0
	for i, n := range deduped {
		if n < deduped[smallest] {
			smallest = i
		}
	}

	out := make(Cycle, 0, len(deduped))
	out = append(out, deduped[smallest:]...)
	out = append(out, deduped[:smallest]...)
	return out
}

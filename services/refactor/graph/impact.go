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

import "sort"

// Impact returns every file transitively affected by a change to the
// given file: the reverse-reachability set, excluding the file itself.
//
// Description:
//
//	Breadth-first search over the reverse dependency graph with sorted
//	frontier expansion, so the output order is deterministic for a fixed
//	graph. A file participating in a cycle never lists itself, even
//	though it is reverse-reachable through the cycle.
//
// Outputs:
//   - []string: Affected files in BFS discovery order. Empty slice when
//     nothing depends on the file.
func (a *ProjectAnalysis) Impact(filePath string) []string {
	return reverseReachable(a.Graph.Reverse, filePath)
}

// reverseReachable runs the BFS; split out for direct testing on bare
// adjacency maps.
func reverseReachable(reverse map[string][]string, start string) []string {
	visited := map[string]bool{start: true}
	affected := make([]string, 0)
	frontier := []string{start}

	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]

		dependents := append([]string(nil), reverse[node]...)
		sort.Strings(dependents)
		for _, dep := range dependents {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			affected = append(affected, dep)
			frontier = append(frontier, dep)
		}
	}
	return affected
}

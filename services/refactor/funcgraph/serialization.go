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
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// GraphSchemaVersion identifies the serialized graph layout. Bump on any
// breaking change to SerializableGraph.
const GraphSchemaVersion = "1.0"

// SerializableGraph is the persistence form of a FunctionGraph.
//
// Nodes and edges are emitted in sorted order so the same graph always
// serializes to the same bytes, which makes the stored content hash
// meaningful.
type SerializableGraph struct {
	SchemaVersion string         `json:"schema_version"`
	GeneratedAt   time.Time      `json:"generated_at"`
	RootDir       string         `json:"root_dir,omitempty"`
	Nodes         []FunctionNode `json:"nodes"`
	Edges         []CallEdge     `json:"edges"`
	Files         []string       `json:"files"`
	Stats         GraphStats     `json:"stats"`
}

// ToSerializable converts a graph to its persistence form.
func (g *FunctionGraph) ToSerializable(rootDir string) *SerializableGraph {
	nodes := make([]FunctionNode, 0, len(g.Nodes))
	for _, id := range sortedNodeIDs(g.Nodes) {
		nodes = append(nodes, *g.Nodes[id])
	}

	edges := append([]CallEdge(nil), g.Edges...)
	sortEdges(edges)

	files := append([]string(nil), g.Files...)
	sort.Strings(files)

	return &SerializableGraph{
		SchemaVersion: GraphSchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		RootDir:       rootDir,
		Nodes:         nodes,
		Edges:         edges,
		Files:         files,
		Stats:         g.Stats,
	}
}

// FromSerializable rebuilds a FunctionGraph from its persistence form.
//
// Outputs:
//   - *FunctionGraph: The rebuilt graph with stats recomputed.
//   - error: Non-nil for schema mismatches or edges referencing unknown
//     nodes.
func FromSerializable(s *SerializableGraph) (*FunctionGraph, error) {
	if s == nil {
		return nil, fmt.Errorf("nil serializable graph")
	}
	if s.SchemaVersion != GraphSchemaVersion {
		return nil, fmt.Errorf("unsupported graph schema version %q (want %q)",
			s.SchemaVersion, GraphSchemaVersion)
	}

	g := &FunctionGraph{
		Nodes: make(map[string]*FunctionNode, len(s.Nodes)),
		Edges: append([]CallEdge(nil), s.Edges...),
		Files: append([]string(nil), s.Files...),
	}
	for i := range s.Nodes {
		node := s.Nodes[i]
		if node.ID == "" {
			return nil, fmt.Errorf("serialized node %d has empty ID", i)
		}
		if _, dup := g.Nodes[node.ID]; dup {
			return nil, fmt.Errorf("serialized graph repeats node ID %q", node.ID)
		}
		g.Nodes[node.ID] = &node
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.computeStats()
	return g, nil
}

// Marshal renders the persistence form as JSON.
func (s *SerializableGraph) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	return data, nil
}

// UnmarshalGraph parses the persistence form from JSON.
func UnmarshalGraph(data []byte) (*SerializableGraph, error) {
	var s SerializableGraph
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	return &s, nil
}

func sortedNodeIDs(nodes map[string]*FunctionNode) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

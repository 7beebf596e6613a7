// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package funcgraph builds the function-level call graph: one node per
// function-like construct, one edge per statically resolvable call, purity
// classification over a configurable pattern table with infection
// propagation, and structural diffing between two graphs.
package funcgraph

import (
	"fmt"
	"sort"
)

// Purity is the inferred purity classification of a function.
type Purity string

// Purity values.
const (
	// PurityPure marks functions with no impurity evidence and no impure
	// callees.
	PurityPure Purity = "pure"

	// PurityImpure marks functions with direct impurity evidence or an
	// impure callee.
	PurityImpure Purity = "impure"

	// PurityUnknown marks functions whose purity cannot be determined,
	// typically because of dynamic dispatch. Unknown never propagates.
	PurityUnknown Purity = "unknown"
)

// ImpurityType categorizes why a function is impure.
type ImpurityType string

// Impurity categories. The first four come from direct pattern evidence;
// infected is assigned by propagation.
const (
	ImpurityIO               ImpurityType = "io"
	ImpurityGlobal           ImpurityType = "global"
	ImpurityNondeterministic ImpurityType = "nondeterministic"
	ImpurityExternal         ImpurityType = "external"
	ImpurityInfected         ImpurityType = "infected"
)

// ImpurityReason is one piece of evidence that a function is impure.
type ImpurityReason struct {
	// Type is the impurity category.
	Type ImpurityType `json:"type"`

	// Description names the matched pattern or the infection source.
	Description string `json:"description"`

	// Line is the 1-based line of the evidence, when known.
	Line int `json:"line,omitempty"`

	// InfectedBy is the callee node ID for infected reasons.
	InfectedBy string `json:"infected_by,omitempty"`
}

// CallEdgeType classifies a call edge.
type CallEdgeType string

// Call edge types.
const (
	CallDirect      CallEdgeType = "direct"
	CallMethod      CallEdgeType = "method"
	CallCallback    CallEdgeType = "callback"
	CallConstructor CallEdgeType = "constructor"
)

// CallEdge is one resolved call between two functions in the graph.
type CallEdge struct {
	// From and To are function node IDs.
	From string `json:"from"`
	To   string `json:"to"`

	// Line is the 1-based line of the call site.
	Line int `json:"line"`

	// Type classifies the call.
	Type CallEdgeType `json:"type"`
}

// key is the edge identity diffing operates on. Line is deliberately
// excluded: moving a call within a function is not a structural change.
func (e CallEdge) key() string {
	return e.From + "|" + e.To + "|" + string(e.Type)
}

// FunctionNode is one function-like construct in the graph.
type FunctionNode struct {
	// ID is the stable identity: "filePath:name" for named functions
	// ("filePath:Class.method" for methods), "filePath:<line>" for
	// anonymous ones.
	ID string `json:"id"`

	// Name is the declared name; empty for anonymous functions.
	Name string `json:"name"`

	// FilePath is the declaring file.
	FilePath string `json:"file_path"`

	// StartLine and EndLine bound the declaration.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Signature is the captured declaration signature.
	Signature string `json:"signature,omitempty"`

	// Exported marks functions visible outside their file.
	Exported bool `json:"exported"`

	// IsMethod and ClassName identify class methods.
	IsMethod  bool   `json:"is_method"`
	ClassName string `json:"class_name,omitempty"`

	// IsNested, IsAsync and IsGenerator carry declaration shape.
	IsNested    bool `json:"is_nested"`
	IsAsync     bool `json:"is_async"`
	IsGenerator bool `json:"is_generator"`

	// HasDynamicCalls marks functions containing calls through dynamic
	// dispatch; their purity is unknown absent impure evidence.
	HasDynamicCalls bool `json:"has_dynamic_calls,omitempty"`

	// Purity is the inferred classification.
	Purity Purity `json:"purity"`

	// ImpurityReasons is the complete evidence list. Use DisplayReasons
	// for capped rendering.
	ImpurityReasons []ImpurityReason `json:"impurity_reasons,omitempty"`
}

// displayReasonCap bounds rendered evidence per node.
const displayReasonCap = 10

// DisplayReasons returns the evidence list capped for display. The full
// list always stays on the node; the cap is cosmetic only.
func (n *FunctionNode) DisplayReasons() []ImpurityReason {
	if len(n.ImpurityReasons) <= displayReasonCap {
		return n.ImpurityReasons
	}
	return n.ImpurityReasons[:displayReasonCap]
}

// FunctionID builds a node ID from its parts.
func FunctionID(filePath, name string, startLine int) string {
	if name == "" {
		return fmt.Sprintf("%s:<%d>", filePath, startLine)
	}
	return filePath + ":" + name
}

// GraphStats summarizes one built graph.
type GraphStats struct {
	TotalFunctions    int `json:"total_functions"`
	PureFunctions     int `json:"pure_functions"`
	ImpureFunctions   int `json:"impure_functions"`
	UnknownFunctions  int `json:"unknown_functions"`
	TotalCalls        int `json:"total_calls"`
	ExportedFunctions int `json:"exported_functions"`
}

// FunctionGraph is the complete call graph of one project scan.
//
// Built once, immutable afterwards. This is the only funcgraph entity
// persisted across invocations.
type FunctionGraph struct {
	// Nodes maps node IDs to nodes.
	Nodes map[string]*FunctionNode `json:"nodes"`

	// Edges are the resolved call edges.
	Edges []CallEdge `json:"edges"`

	// Files are the analyzed paths, sorted.
	Files []string `json:"files"`

	// Stats summarizes the graph.
	Stats GraphStats `json:"stats"`
}

// Node returns the node with the given ID, or nil.
func (g *FunctionGraph) Node(id string) *FunctionNode {
	return g.Nodes[id]
}

// Callees returns the IDs a node calls, sorted, deduplicated.
func (g *FunctionGraph) Callees(id string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, e := range g.Edges {
		if e.From == id && !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	sort.Strings(out)
	return out
}

// Callers returns the IDs calling a node, sorted, deduplicated.
func (g *FunctionGraph) Callers(id string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, e := range g.Edges {
		if e.To == id && !seen[e.From] {
			seen[e.From] = true
			out = append(out, e.From)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks that every edge references known node IDs. A violation
// is a builder defect, not an input problem.
func (g *FunctionGraph) Validate() error {
	for _, e := range g.Edges {
		if g.Nodes[e.From] == nil {
			return fmt.Errorf("edge references unknown from-node %q", e.From)
		}
		if g.Nodes[e.To] == nil {
			return fmt.Errorf("edge references unknown to-node %q", e.To)
		}
	}
	return nil
}

// computeStats recounts the summary from nodes and edges.
func (g *FunctionGraph) computeStats() {
	s := GraphStats{
		TotalFunctions: len(g.Nodes),
		TotalCalls:     len(g.Edges),
	}
	for _, n := range g.Nodes {
		switch n.Purity {
		case PurityPure:
			s.PureFunctions++
		case PurityImpure:
			s.ImpureFunctions++
		default:
			s.UnknownFunctions++
		}
		if n.Exported {
			s.ExportedFunctions++
		}
	}
	g.Stats = s
}

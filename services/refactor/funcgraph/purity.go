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
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

// PatternRule matches one impure construct by call-expression prefix.
//
// A rule matches a call site when the rendered call ("target" or
// "receiver.target") equals the pattern or extends it past a dot. The
// rule "console." matches console.log and console.error; the rule
// "print" matches print but not printValue.
type PatternRule struct {
	// Type is the impurity category the rule assigns.
	Type ImpurityType `json:"type"`

	// Pattern is the matched prefix. A trailing dot matches any member.
	Pattern string `json:"pattern"`

	// Description explains the evidence in reports.
	Description string `json:"description"`
}

// PatternTable is the ordered set of impurity rules purity inference
// scans call sites against. First match wins per site.
type PatternTable struct {
	rules []PatternRule
}

// NewPatternTable creates a table with the given rules only.
func NewPatternTable(rules ...PatternRule) PatternTable {
	return PatternTable{rules: rules}
}

// Extend returns a table with custom rules appended after the existing
// ones. The receiver is not modified.
func (t PatternTable) Extend(custom ...PatternRule) PatternTable {
	merged := make([]PatternRule, 0, len(t.rules)+len(custom))
	merged = append(merged, t.rules...)
	merged = append(merged, custom...)
	return PatternTable{rules: merged}
}

// Rules returns a copy of the rule list.
func (t PatternTable) Rules() []PatternRule {
	return append([]PatternRule(nil), t.rules...)
}

// DefaultPatternTable returns the built-in rules for the supported
// languages.
func DefaultPatternTable() PatternTable {
	return NewPatternTable(
		// I/O.
		PatternRule{ImpurityIO, "console.", "console output"},
		PatternRule{ImpurityIO, "process.stdout.", "stdout write"},
		PatternRule{ImpurityIO, "process.stderr.", "stderr write"},
		PatternRule{ImpurityIO, "fs.", "filesystem access"},
		PatternRule{ImpurityIO, "fetch", "network request"},
		PatternRule{ImpurityIO, "print", "console output"},
		PatternRule{ImpurityIO, "open", "file open"},
		PatternRule{ImpurityIO, "input", "console input"},
		PatternRule{ImpurityIO, "requests.", "network request"},
		PatternRule{ImpurityIO, "urllib.", "network request"},
		PatternRule{ImpurityIO, "logging.", "log output"},
		PatternRule{ImpurityIO, "logger.", "log output"},

		// Global state.
		PatternRule{ImpurityGlobal, "window.", "browser global access"},
		PatternRule{ImpurityGlobal, "document.", "DOM access"},
		PatternRule{ImpurityGlobal, "globalThis.", "global object access"},
		PatternRule{ImpurityGlobal, "localStorage.", "local storage access"},
		PatternRule{ImpurityGlobal, "sessionStorage.", "session storage access"},
		PatternRule{ImpurityGlobal, "process.env.", "environment access"},
		PatternRule{ImpurityGlobal, "os.environ.", "environment access"},
		PatternRule{ImpurityGlobal, "os.getenv", "environment access"},

		// Nondeterminism.
		PatternRule{ImpurityNondeterministic, "Math.random", "random number"},
		PatternRule{ImpurityNondeterministic, "Date.now", "current time"},
		PatternRule{ImpurityNondeterministic, "Date", "current time"},
		PatternRule{ImpurityNondeterministic, "performance.now", "current time"},
		PatternRule{ImpurityNondeterministic, "random.", "random number"},
		PatternRule{ImpurityNondeterministic, "time.", "current time"},
		PatternRule{ImpurityNondeterministic, "datetime.", "current time"},
		PatternRule{ImpurityNondeterministic, "uuid", "random identifier"},

		// External systems.
		PatternRule{ImpurityExternal, "axios.", "HTTP client call"},
		PatternRule{ImpurityExternal, "db.", "database call"},
		PatternRule{ImpurityExternal, "pool.", "database pool call"},
		PatternRule{ImpurityExternal, "redis.", "cache call"},
		PatternRule{ImpurityExternal, "client.", "external client call"},
		PatternRule{ImpurityExternal, "session.", "external session call"},
	)
}

// Match returns the first rule matching a call site, or nil.
func (t PatternTable) Match(call ast.CallSite) *PatternRule {
	rendered := call.Target
	if call.Receiver != "" {
		rendered = call.Receiver + "." + call.Target
	}
	for i := range t.rules {
		if patternMatches(t.rules[i].Pattern, rendered) {
			return &t.rules[i]
		}
	}
	return nil
}

// patternMatches implements the prefix semantics: exact match, or prefix
// match where the pattern ends at a dot boundary.
func patternMatches(pattern, rendered string) bool {
	if pattern == rendered {
		return true
	}
	if strings.HasSuffix(pattern, ".") {
		return strings.HasPrefix(rendered, pattern)
	}
	return strings.HasPrefix(rendered, pattern+".")
}

// classifyPurity runs the two purity stages over a built graph: direct
// pattern evidence per node, then infection propagation along call edges
// to a fixed point.
//
// Propagation is monotone: a node only ever moves from pure or unknown to
// impure, never back, so the work list terminates even on call cycles.
// Unknown never propagates.
func classifyPurity(g *FunctionGraph, table PatternTable, directEvidence map[string][]ImpurityReason) {
	// Stage 1: direct evidence.
	impure := make(map[string]bool)
	for id, node := range g.Nodes {
		if reasons := directEvidence[id]; len(reasons) > 0 {
			node.Purity = PurityImpure
			node.ImpurityReasons = reasons
			impure[id] = true
			continue
		}
		if node.HasDynamicCalls {
			node.Purity = PurityUnknown
		} else {
			node.Purity = PurityPure
		}
	}

	// Stage 2: infection. Callers of impure functions become impure.
	callersOf := make(map[string][]CallEdge)
	for _, e := range g.Edges {
		callersOf[e.To] = append(callersOf[e.To], e)
	}

	worklist := sortedIDs(impure)
	for len(worklist) > 0 {
		calleeID := worklist[0]
		worklist = worklist[1:]

		edges := callersOf[calleeID]
		sort.Slice(edges, func(i, j int) bool { return edges[i].From < edges[j].From })
		for _, e := range edges {
			caller := g.Nodes[e.From]
			if caller == nil || impure[e.From] {
				continue
			}
			caller.Purity = PurityImpure
			caller.ImpurityReasons = append(caller.ImpurityReasons, ImpurityReason{
				Type:        ImpurityInfected,
				Description: "calls impure function " + calleeID,
				Line:        e.Line,
				InfectedBy:  calleeID,
			})
			impure[e.From] = true
			worklist = append(worklist, e.From)
		}
	}
}

// directEvidenceFor scans one function's call sites against the table.
func directEvidenceFor(decl ast.FunctionDecl, table PatternTable) []ImpurityReason {
	var reasons []ImpurityReason
	for _, call := range decl.Calls {
		rule := table.Match(call)
		if rule == nil {
			continue
		}
		rendered := call.Target
		if call.Receiver != "" {
			rendered = call.Receiver + "." + call.Target
		}
		reasons = append(reasons, ImpurityReason{
			Type:        rule.Type,
			Description: rule.Description + ": " + rendered,
			Line:        call.Line,
		})
	}
	return reasons
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

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
	"testing"

	"github.com/AleutianAI/AleutianRefactor/services/refactor/ast"
)

func TestPatternTable_Match(t *testing.T) {
	table := DefaultPatternTable()

	tests := []struct {
		name string
		call ast.CallSite
		want ImpurityType
		hit  bool
	}{
		{"console member", ast.CallSite{Target: "log", Receiver: "console", IsMethod: true}, ImpurityIO, true},
		{"math random", ast.CallSite{Target: "random", Receiver: "Math", IsMethod: true}, ImpurityNondeterministic, true},
		{"python print", ast.CallSite{Target: "print"}, ImpurityIO, true},
		{"dom access", ast.CallSite{Target: "getElementById", Receiver: "document", IsMethod: true}, ImpurityGlobal, true},
		{"axios client", ast.CallSite{Target: "get", Receiver: "axios", IsMethod: true}, ImpurityExternal, true},
		{"pure helper", ast.CallSite{Target: "computeSum"}, "", false},
		{"prefix not a word boundary", ast.CallSite{Target: "printValue"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := table.Match(tt.call)
			if !tt.hit {
				if rule != nil {
					t.Errorf("Match(%+v) = %+v, want no match", tt.call, rule)
				}
				return
			}
			if rule == nil {
				t.Fatalf("Match(%+v) = nil, want %s rule", tt.call, tt.want)
			}
			if rule.Type != tt.want {
				t.Errorf("rule type = %q, want %q", rule.Type, tt.want)
			}
		})
	}
}

func TestPatternTable_Extend(t *testing.T) {
	base := DefaultPatternTable()
	extended := base.Extend(PatternRule{ImpurityExternal, "kafka.", "message publish"})

	call := ast.CallSite{Target: "publish", Receiver: "kafka", IsMethod: true}
	if base.Match(call) != nil {
		t.Error("base table should not match the custom pattern")
	}
	rule := extended.Match(call)
	if rule == nil || rule.Type != ImpurityExternal {
		t.Errorf("extended table match = %+v, want external rule", rule)
	}
}

func TestPurity_DirectEvidence(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/mix.ts": `
export function pureAdd(a: number, b: number): number {
	return a + b;
}

export function logging(msg: string): void {
	console.log(msg);
}

export function rolling(): number {
	return Math.random();
}
`,
	})

	if p := mustNode(t, g, "src/mix.ts:pureAdd").Purity; p != PurityPure {
		t.Errorf("pureAdd purity = %q, want pure", p)
	}

	logging := mustNode(t, g, "src/mix.ts:logging")
	if logging.Purity != PurityImpure {
		t.Errorf("logging purity = %q, want impure", logging.Purity)
	}
	if len(logging.ImpurityReasons) == 0 || logging.ImpurityReasons[0].Type != ImpurityIO {
		t.Errorf("logging reasons = %+v, want io evidence", logging.ImpurityReasons)
	}

	rolling := mustNode(t, g, "src/mix.ts:rolling")
	if rolling.Purity != PurityImpure {
		t.Errorf("rolling purity = %q, want impure", rolling.Purity)
	}
	if len(rolling.ImpurityReasons) == 0 || rolling.ImpurityReasons[0].Type != ImpurityNondeterministic {
		t.Errorf("rolling reasons = %+v, want nondeterministic evidence", rolling.ImpurityReasons)
	}
}

func TestPurity_InfectionPropagates(t *testing.T) {
	// c is directly impure; b calls c; a calls b. Both become infected.
	g := buildGraph(t, map[string]string{
		"src/chain.ts": `
export function a(): void { b(); }
export function b(): void { c(); }
export function c(): void { console.log("side effect"); }
`,
	})

	for _, id := range []string{"src/chain.ts:a", "src/chain.ts:b"} {
		n := mustNode(t, g, id)
		if n.Purity != PurityImpure {
			t.Errorf("%s purity = %q, want impure via infection", id, n.Purity)
			continue
		}
		var infected *ImpurityReason
		for i := range n.ImpurityReasons {
			if n.ImpurityReasons[i].Type == ImpurityInfected {
				infected = &n.ImpurityReasons[i]
			}
		}
		if infected == nil {
			t.Errorf("%s reasons = %+v, want infected entry", id, n.ImpurityReasons)
			continue
		}
		if infected.InfectedBy == "" {
			t.Errorf("%s infected reason missing source: %+v", id, infected)
		}
	}
}

func TestPurity_CycleTolerated(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/cycle.ts": `
export function ping(n: number): void { if (n > 0) pong(n - 1); }
export function pong(n: number): void { console.log(n); ping(n); }
`,
	})

	if p := mustNode(t, g, "src/cycle.ts:ping").Purity; p != PurityImpure {
		t.Errorf("ping purity = %q, want impure through cycle", p)
	}
	if p := mustNode(t, g, "src/cycle.ts:pong").Purity; p != PurityImpure {
		t.Errorf("pong purity = %q, want impure", p)
	}
}

func TestPurity_DynamicCallIsUnknownAndNonPropagating(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/dyn.ts": `
export function dispatch(handlers: Record<string, () => void>, key: string): void {
	handlers[key]();
}

export function caller(handlers: Record<string, () => void>): void {
	dispatch(handlers, "a");
}
`,
	})

	if p := mustNode(t, g, "src/dyn.ts:dispatch").Purity; p != PurityUnknown {
		t.Errorf("dispatch purity = %q, want unknown for dynamic dispatch", p)
	}
	// Unknown must not infect callers.
	if p := mustNode(t, g, "src/dyn.ts:caller").Purity; p != PurityPure {
		t.Errorf("caller purity = %q, want pure (unknown never propagates)", p)
	}
}

func TestPurity_Idempotent(t *testing.T) {
	files := map[string]string{
		"src/p.ts": `
export function a(): void { b(); }
export function b(): void { console.log("x"); }
export function c(a: number): number { return a * 2; }
`,
	}
	first := buildGraph(t, files)
	second := buildGraph(t, files)

	for id, fn := range first.Nodes {
		sn := second.Nodes[id]
		if sn == nil {
			t.Fatalf("node %s missing from second build", id)
		}
		if fn.Purity != sn.Purity {
			t.Errorf("%s purity differs between builds: %q vs %q", id, fn.Purity, sn.Purity)
		}
	}
	if first.Stats != second.Stats {
		t.Errorf("stats differ between builds: %+v vs %+v", first.Stats, second.Stats)
	}
}

func TestDisplayReasons_Capped(t *testing.T) {
	n := &FunctionNode{ID: "f"}
	for i := 0; i < 25; i++ {
		n.ImpurityReasons = append(n.ImpurityReasons, ImpurityReason{Type: ImpurityIO, Line: i + 1})
	}
	if got := len(n.DisplayReasons()); got != displayReasonCap {
		t.Errorf("DisplayReasons length = %d, want %d", got, displayReasonCap)
	}
	if got := len(n.ImpurityReasons); got != 25 {
		t.Errorf("full reason list truncated to %d, must stay complete", got)
	}
}

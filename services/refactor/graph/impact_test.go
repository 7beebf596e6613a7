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
	"reflect"
	"testing"
)

func TestReverseReachable_Chain(t *testing.T) {
	// c <- b <- a: changing c affects b and a.
	reverse := map[string][]string{
		"c": {"b"},
		"b": {"a"},
	}
	got := reverseReachable(reverse, "c")
	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("impact(c) = %v, want %v", got, want)
	}
}

func TestReverseReachable_ExcludesSelfInCycle(t *testing.T) {
	reverse := map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}
	got := reverseReachable(reverse, "a")
	want := []string{"b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("impact(a) = %v, want %v (never the start file)", got, want)
	}
}

func TestReverseReachable_Leaf(t *testing.T) {
	reverse := map[string][]string{"b": {"a"}}
	if got := reverseReachable(reverse, "a"); len(got) != 0 {
		t.Errorf("impact of an unreferenced file = %v, want empty", got)
	}
}

func TestReverseReachable_Deterministic(t *testing.T) {
	reverse := map[string][]string{
		"core": {"z", "a", "m"},
		"z":    {"zz"},
	}
	want := []string{"a", "m", "z", "zz"}
	for i := 0; i < 20; i++ {
		got := reverseReachable(reverse, "core")
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("iteration %d: impact = %v, want stable %v", i, got, want)
		}
	}
}

func TestImpact_EndToEnd(t *testing.T) {
	// utils <- service <- handler, plus standalone.
	a := buildProject(t, map[string]string{
		"src/utils.ts":      `export function util() { return 1; }`,
		"src/service.ts":    `import { util } from './utils'; export function svc() { return util(); }`,
		"src/handler.ts":    `import { svc } from './service'; export function handle() { return svc(); }`,
		"src/standalone.ts": `export const lonely = 1;`,
	})

	got := a.Impact("src/utils.ts")
	want := []string{"src/service.ts", "src/handler.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Impact(utils) = %v, want %v", got, want)
	}

	if got := a.Impact("src/standalone.ts"); len(got) != 0 {
		t.Errorf("Impact(standalone) = %v, want empty", got)
	}
}

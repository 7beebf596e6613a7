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

import "testing"

func unusedNames(list []UnusedExport) []string {
	names := make([]string, 0, len(list))
	for _, u := range list {
		names = append(names, u.Export.Name)
	}
	return names
}

func TestUnusedExports_Basic(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/utils.ts": `
export function used() { return 1; }
export function neverImported() { return 2; }
`,
		"src/main.ts": `
import { used } from './utils';
export function entry() { return used(); }
`,
	})

	unused := a.UnusedExports([]string{"src/main.ts"}, false)
	names := unusedNames(unused)
	if len(names) != 1 || names[0] != "neverImported" {
		t.Errorf("unused = %v, want [neverImported]", names)
	}
}

func TestUnusedExports_EntryPointHandling(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/index.ts": `export function publicApi() { return 1; }`,
	})

	// Default mode: entry-point exports have invisible external consumers.
	if unused := a.UnusedExports([]string{"src/index.ts"}, false); len(unused) != 0 {
		t.Errorf("entry-point export reported unused: %v", unusedNames(unused))
	}

	// Strict mode reports them, flagged.
	strict := a.UnusedExports([]string{"src/index.ts"}, true)
	if len(strict) != 1 {
		t.Fatalf("strict mode unused = %v, want one entry", unusedNames(strict))
	}
	if !strict[0].EntryPoint {
		t.Error("strict-mode entry-point export not flagged EntryPoint")
	}
}

func TestUnusedExports_SameFileUsageDoesNotCount(t *testing.T) {
	a := buildProject(t, map[string]string{
		"src/self.ts": `
export function helper() { return 1; }
export function caller() { return helper(); }
`,
		"src/main.ts": `
import { caller } from './self';
export const run = () => caller();
`,
	})

	unused := a.UnusedExports([]string{"src/main.ts"}, false)
	names := unusedNames(unused)
	if len(names) != 1 || names[0] != "helper" {
		t.Errorf("unused = %v, want [helper]; same-file calls never count", names)
	}
}

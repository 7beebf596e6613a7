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
	"bytes"
	"testing"
)

func TestSerialization_RoundTrip(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/a.ts": `
export function f(): void { g(); console.log("x"); }
function g(): void {}
`,
	})

	s := g.ToSerializable("/proj")
	if s.SchemaVersion != GraphSchemaVersion {
		t.Errorf("schema version = %q, want %q", s.SchemaVersion, GraphSchemaVersion)
	}

	data, err := s.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	parsed, err := UnmarshalGraph(data)
	if err != nil {
		t.Fatalf("UnmarshalGraph failed: %v", err)
	}
	rebuilt, err := FromSerializable(parsed)
	if err != nil {
		t.Fatalf("FromSerializable failed: %v", err)
	}

	if d := Diff(g, rebuilt); !d.IsEquivalent() {
		t.Errorf("round trip changed the graph: %+v", d)
	}
	if rebuilt.Stats != g.Stats {
		t.Errorf("stats after round trip = %+v, want %+v", rebuilt.Stats, g.Stats)
	}
}

func TestSerialization_Deterministic(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"src/a.ts": `
export function z(): void {}
export function a(): void { z(); }
export function m(): void { a(); }
`,
	})

	s1 := g.ToSerializable("/proj")
	s2 := g.ToSerializable("/proj")
	s2.GeneratedAt = s1.GeneratedAt

	d1, err := s1.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	d2, err := s2.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("identical graphs serialized to different bytes")
	}
}

func TestFromSerializable_RejectsBadInput(t *testing.T) {
	if _, err := FromSerializable(nil); err == nil {
		t.Error("nil input should fail")
	}

	if _, err := FromSerializable(&SerializableGraph{SchemaVersion: "0.9"}); err == nil {
		t.Error("schema version mismatch should fail")
	}

	bad := &SerializableGraph{
		SchemaVersion: GraphSchemaVersion,
		Nodes:         []FunctionNode{{ID: "a.ts:f"}},
		Edges:         []CallEdge{{From: "a.ts:f", To: "a.ts:ghost", Type: CallDirect}},
	}
	if _, err := FromSerializable(bad); err == nil {
		t.Error("edge to unknown node should fail loudly")
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

// buildChain registers resources R0..Rn and passes p0..p(n-1) where each
// pass reads R(i) and writes R(i+1). Returns the graph.
func buildChain(t *testing.T, n int, enabled bool) *Graph {
	t.Helper()
	g := New()
	for i := 0; i <= n; i++ {
		id := ResourceID("R" + string(rune('0'+i)))
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		err := g.AddPass(PassDescriptor{
			ID:      "p" + string(rune('0'+i)),
			Inputs:  []PassInput{{Resource: ResourceID("R" + string(rune('0'+i)))}},
			Outputs: []PassOutput{{Resource: ResourceID("R" + string(rune('1'+i)))}},
			Enabled: enabled,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestCompileTopologicalOrder(t *testing.T) {
	// Declare passes in reverse dependency order; the plan must still
	// schedule producers before consumers.
	g := New()
	for _, id := range []ResourceID{"A", "B", "C"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	addEnabled := func(id string, in, out ResourceID) {
		t.Helper()
		desc := PassDescriptor{
			ID:      id,
			Outputs: []PassOutput{{Resource: out}},
			Enabled: true,
		}
		if in != "" {
			desc.Inputs = []PassInput{{Resource: in}}
		}
		if err := g.AddPass(desc); err != nil {
			t.Fatal(err)
		}
	}
	addEnabled("last", "B", "C")
	addEnabled("mid", "A", "B")
	addEnabled("first", "", "A")

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	got := plan.Modes()
	want := []string{"first:Execute", "mid:Execute", "last:Execute"}
	if !slices.Equal(got, want) {
		t.Errorf("plan = %v, want %v", got, want)
	}
}

func TestCompileDeclarationOrderTies(t *testing.T) {
	// Independent passes keep declaration order.
	g := New()
	for _, id := range []ResourceID{"A", "B", "C"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	for _, spec := range []struct {
		id  string
		out ResourceID
	}{{"zeta", "A"}, {"alpha", "B"}, {"mid", "C"}} {
		err := g.AddPass(PassDescriptor{
			ID:      spec.id,
			Outputs: []PassOutput{{Resource: spec.out}},
			Enabled: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	got := plan.Modes()
	want := []string{"zeta:Execute", "alpha:Execute", "mid:Execute"}
	if !slices.Equal(got, want) {
		t.Errorf("plan = %v, want %v (declaration order)", got, want)
	}
}

func TestCompileDeterminism(t *testing.T) {
	// Two identical graphs compile to identical plans, order and modes.
	build := func() *Graph {
		g := buildChain(t, 4, true)
		// Replace p2 with a disabled passthrough variant so the plan mixes
		// Execute and Passthrough steps.
		if err := g.RemovePass("p2"); err != nil {
			t.Fatal(err)
		}
		err := g.AddPass(PassDescriptor{
			ID:               "p2",
			Inputs:           []PassInput{{Resource: "R2"}},
			Outputs:          []PassOutput{{Resource: "R3"}},
			AllowPassthrough: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		return g
	}
	g1, g2 := build(), build()

	p1, err := g1.Compile()
	if err != nil {
		t.Fatalf("Compile(g1) = %v", err)
	}
	p2, err := g2.Compile()
	if err != nil {
		t.Fatalf("Compile(g2) = %v", err)
	}
	if !slices.Equal(p1.Modes(), p2.Modes()) {
		t.Errorf("plans differ: %v vs %v", p1.Modes(), p2.Modes())
	}
}

func TestCompileMemoized(t *testing.T) {
	g := buildChain(t, 3, true)
	p1, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}
	p2, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("compiling an unchanged enabled-state should return the memoized plan")
	}

	// Toggling a pass invalidates the memo.
	if err := g.SetPassEnabled("p1", false); err != nil {
		t.Fatal(err)
	}
	if err := g.SetPassEnabled("p1", true); err != nil {
		t.Fatal(err)
	}
	p3, err := g.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if p3 != p1 {
		// Same fingerprint again: toggle off+on restores the memo key.
		t.Error("restoring the enabled-state should hit the memoized plan")
	}
}

func TestCompileWriteConflict(t *testing.T) {
	g := New()
	if err := g.Resources().Register("Z", rgba(8, 8)); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"q1", "q2"} {
		err := g.AddPass(PassDescriptor{
			ID:      id,
			Outputs: []PassOutput{{Resource: "Z"}},
			Enabled: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	_, err := g.Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Compile() = %v, want ErrConfiguration", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigurationError", err)
	}
	if cfgErr.Resource != "Z" {
		t.Errorf("ConfigurationError.Resource = %q, want %q", cfgErr.Resource, "Z")
	}
}

func TestCompileMutualExclusionGroup(t *testing.T) {
	// Scenario B: gravityComposite and scene both declare SCENE_COLOR in
	// group "scene-root"; the graph compiles regardless of which one is
	// enabled, and rejects both enabled at once.
	build := func(sceneOn, gravityOn bool) *Graph {
		t.Helper()
		g := New()
		if err := g.Resources().Register("SCENE_COLOR", rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
		for _, spec := range []struct {
			id string
			on bool
		}{{"scene", sceneOn}, {"gravityComposite", gravityOn}} {
			err := g.AddPass(PassDescriptor{
				ID:                   spec.id,
				Outputs:              []PassOutput{{Resource: "SCENE_COLOR"}},
				Enabled:              spec.on,
				MutualExclusionGroup: "scene-root",
			})
			if err != nil {
				t.Fatal(err)
			}
		}
		return g
	}

	if _, err := build(true, false).Compile(); err != nil {
		t.Errorf("scene enabled: Compile() = %v, want nil", err)
	}
	if _, err := build(false, true).Compile(); err != nil {
		t.Errorf("gravityComposite enabled: Compile() = %v, want nil", err)
	}
	if _, err := build(false, false).Compile(); err != nil {
		t.Errorf("both disabled: Compile() = %v, want nil", err)
	}

	_, err := build(true, true).Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("both enabled: Compile() = %v, want ErrConfiguration", err)
	}
	if err != nil && !strings.Contains(err.Error(), "scene-root") {
		t.Errorf("error should name the group, got: %v", err)
	}
}

func TestCompileCycleDetection(t *testing.T) {
	g := New()
	for _, id := range []ResourceID{"R1", "R2"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	add := func(id string, in, out ResourceID) {
		t.Helper()
		err := g.AddPass(PassDescriptor{
			ID:      id,
			Inputs:  []PassInput{{Resource: in}},
			Outputs: []PassOutput{{Resource: out}},
			Enabled: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add("a", "R2", "R1")
	add("b", "R1", "R2")

	_, err := g.Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Compile() = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("error should mention the cycle, got: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error should name pass %q, got: %v", id, err)
		}
	}
}

func TestCompileFeedbackIsNotACycle(t *testing.T) {
	// A pass reading its own double-buffered output is a feedback loop,
	// not a dependency cycle: the read side is the previous frame.
	g := New()
	desc := rgba(8, 8)
	desc.DoubleBuffered = true
	if err := g.Resources().Register("HISTORY", desc); err != nil {
		t.Fatal(err)
	}
	err := g.AddPass(PassDescriptor{
		ID:      "temporal",
		Inputs:  []PassInput{{Resource: "HISTORY", Role: "history"}},
		Outputs: []PassOutput{{Resource: "HISTORY"}},
		Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v, want nil", err)
	}
	if got := plan.Steps[0].Mode; got != ModeExecute {
		t.Errorf("mode = %v, want Execute", got)
	}
}

func TestCompileMultiInputRegression(t *testing.T) {
	// The documented legacy bug: a disabled multi-input pass silently
	// copied only inputs[0]. It must now be a loud compile-time error.
	g := New()
	for _, id := range []ResourceID{"X", "Y", "Z"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	err := g.AddPass(PassDescriptor{
		ID:               "composite",
		Inputs:           []PassInput{{Resource: "X"}, {Resource: "Y"}},
		Outputs:          []PassOutput{{Resource: "Z"}},
		AllowPassthrough: true,
		// No CopyPairs: ambiguous.
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Compile() = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "copyPairs") {
		t.Errorf("error should point at copyPairs, got: %v", err)
	}
}

func TestCompileMultiInputWithCopyPairs(t *testing.T) {
	g := New()
	for _, id := range []ResourceID{"X", "Y", "Z", "W"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	err := g.AddPass(PassDescriptor{
		ID:               "composite",
		Inputs:           []PassInput{{Resource: "X"}, {Resource: "Y"}},
		Outputs:          []PassOutput{{Resource: "Z"}, {Resource: "W", Attachment: 1}},
		AllowPassthrough: true,
		CopyPairs:        []CopyPair{{From: "X", To: "Z"}, {From: "Y", To: "W"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	step := plan.Steps[0]
	if step.Mode != ModePassthrough {
		t.Fatalf("mode = %v, want Passthrough", step.Mode)
	}
	if len(step.Copies) != 2 {
		t.Errorf("copies = %d, want 2", len(step.Copies))
	}
}

func TestCompileCopyPairsMustCoverOutputs(t *testing.T) {
	g := New()
	for _, id := range []ResourceID{"X", "Z", "W"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	err := g.AddPass(PassDescriptor{
		ID:               "mrt",
		Inputs:           []PassInput{{Resource: "X"}},
		Outputs:          []PassOutput{{Resource: "Z"}, {Resource: "W", Attachment: 1}},
		AllowPassthrough: true,
		CopyPairs:        []CopyPair{{From: "X", To: "Z"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Compile() = %v, want ErrConfiguration", err)
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Resource != "W" {
		t.Errorf("ConfigurationError.Resource = %q, want %q", cfgErr.Resource, "W")
	}
}

func TestCompileScenarioC(t *testing.T) {
	// normalComposite (multi-input, passthrough forbidden) disabled while
	// enabled ssr still consumes its output.
	g := New()
	for _, id := range []ResourceID{"NORMAL_ENV", "MRT1", "NORMAL_BUFFER", "SSR_COLOR"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	err := g.AddPass(PassDescriptor{
		ID:      "normalComposite",
		Inputs:  []PassInput{{Resource: "NORMAL_ENV"}, {Resource: "MRT1"}},
		Outputs: []PassOutput{{Resource: "NORMAL_BUFFER"}},
		// AllowPassthrough false: disabled means Skip.
	})
	if err != nil {
		t.Fatal(err)
	}
	err = g.AddPass(PassDescriptor{
		ID:      "ssr",
		Inputs:  []PassInput{{Resource: "NORMAL_BUFFER"}},
		Outputs: []PassOutput{{Resource: "SSR_COLOR"}},
		Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = g.Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Compile() = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "normalComposite disabled but required by ssr") {
		t.Errorf("error = %v, want %q", err, "normalComposite disabled but required by ssr")
	}
}

func TestCompileSkipWithoutConsumersIsFine(t *testing.T) {
	g := New()
	for _, id := range []ResourceID{"X", "Z"} {
		if err := g.Resources().Register(id, rgba(8, 8)); err != nil {
			t.Fatal(err)
		}
	}
	err := g.AddPass(PassDescriptor{
		ID:      "lonely",
		Inputs:  []PassInput{{Resource: "X"}},
		Outputs: []PassOutput{{Resource: "Z"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v, want nil (no enabled consumer)", err)
	}
	if got := plan.Steps[0].Mode; got != ModeSkip {
		t.Errorf("mode = %v, want Skip", got)
	}
}

func TestCompileAliasForVirtualOutput(t *testing.T) {
	g := New()
	if err := g.Resources().Register("IN", rgba(8, 8)); err != nil {
		t.Fatal(err)
	}
	if err := g.Resources().Register("OUT", ResourceDescriptor{Virtual: true}); err != nil {
		t.Fatal(err)
	}
	err := g.AddPass(PassDescriptor{
		ID:               "reexport",
		Inputs:           []PassInput{{Resource: "IN"}},
		Outputs:          []PassOutput{{Resource: "OUT"}},
		AllowPassthrough: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	if got := plan.Steps[0].Mode; got != ModeAlias {
		t.Fatalf("mode = %v, want Alias", got)
	}
	if src := plan.Aliases["OUT"]; src != "IN" {
		t.Errorf("alias table OUT -> %q, want IN", src)
	}
}

func TestCompileAliasChainFlattening(t *testing.T) {
	g := New()
	if err := g.Resources().Register("SRC", rgba(8, 8)); err != nil {
		t.Fatal(err)
	}
	for _, id := range []ResourceID{"V1", "V2"} {
		if err := g.Resources().Register(id, ResourceDescriptor{Virtual: true}); err != nil {
			t.Fatal(err)
		}
	}
	add := func(id string, in, out ResourceID) {
		t.Helper()
		err := g.AddPass(PassDescriptor{
			ID:               id,
			Inputs:           []PassInput{{Resource: in}},
			Outputs:          []PassOutput{{Resource: out}},
			AllowPassthrough: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add("first", "SRC", "V1")
	add("second", "V1", "V2")

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	// Both entries flatten to the ultimate source.
	if src := plan.Aliases["V1"]; src != "SRC" {
		t.Errorf("V1 -> %q, want SRC", src)
	}
	if src := plan.Aliases["V2"]; src != "SRC" {
		t.Errorf("V2 -> %q, want SRC (flattened)", src)
	}
}

func TestCompileAliasCycle(t *testing.T) {
	g := New()
	for _, id := range []ResourceID{"V1", "V2"} {
		if err := g.Resources().Register(id, ResourceDescriptor{Virtual: true}); err != nil {
			t.Fatal(err)
		}
	}
	add := func(id string, in, out ResourceID) {
		t.Helper()
		err := g.AddPass(PassDescriptor{
			ID:               id,
			Inputs:           []PassInput{{Resource: in}},
			Outputs:          []PassOutput{{Resource: out}},
			AllowPassthrough: true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add("a", "V2", "V1")
	add("b", "V1", "V2")

	_, err := g.Compile()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Compile() = %v, want ErrConfiguration", err)
	}
	if !strings.Contains(err.Error(), "alias cycle") {
		t.Errorf("error should mention the alias cycle, got: %v", err)
	}
}

func TestCompileDisabledSourceSkips(t *testing.T) {
	// A disabled pass with no inputs has nothing to copy from; it skips
	// even with AllowPassthrough set.
	g := New()
	if err := g.Resources().Register("OUT", rgba(8, 8)); err != nil {
		t.Fatal(err)
	}
	err := g.AddPass(PassDescriptor{
		ID:               "source",
		Outputs:          []PassOutput{{Resource: "OUT"}},
		AllowPassthrough: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	if got := plan.Steps[0].Mode; got != ModeSkip {
		t.Errorf("mode = %v, want Skip", got)
	}
}

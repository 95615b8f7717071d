// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "strings"

// compile is a pure function from a descriptor snapshot and the current
// enabled-state to an ordered ExecutionPlan. It performs no GPU work and
// touches no mutable engine state, which is what makes plans reproducible:
// identical input yields an identical plan, order and modes included.
//
// Compilation fails with a *ConfigurationError on:
//   - two enabled passes writing the same output
//   - a dependency cycle
//   - an alias cycle
//   - a disabled multi-input pass with AllowPassthrough and no CopyPairs
//   - copy pairs that do not cover every output of a disabled pass
//   - a skipped pass whose output an enabled downstream pass requires
func compile(topoRev uint64, passes []*passState, enabled []bool, reg *Registry) (*ExecutionPlan, error) {
	n := len(passes)

	// Writer table: every declared output and the passes that own it,
	// in declaration order.
	writers := make(map[ResourceID][]int)
	for i, p := range passes {
		for _, out := range p.desc.Outputs {
			writers[out.Resource] = append(writers[out.Resource], i)
		}
	}

	if err := checkWriteConflicts(passes, enabled, writers); err != nil {
		return nil, err
	}

	// Per-pass mode resolution.
	resolutions := make([]resolution, n)
	for i, p := range passes {
		res, err := resolvePassMode(p, enabled[i], reg)
		if err != nil {
			return nil, err
		}
		resolutions[i] = res
	}

	aliases, err := buildAliasTable(passes, resolutions)
	if err != nil {
		return nil, err
	}

	if err := checkRequiredInputs(passes, enabled, writers, resolutions); err != nil {
		return nil, err
	}

	order, err := topoSort(passes, writers)
	if err != nil {
		return nil, err
	}

	steps := make([]PlannedPass, n)
	for pos, i := range order {
		steps[pos] = PlannedPass{
			Pass:    passes[i].desc.ID,
			Mode:    resolutions[i].mode,
			Copies:  resolutions[i].copies,
			Aliases: resolutions[i].aliases,
		}
	}

	return &ExecutionPlan{
		Steps:       steps,
		Aliases:     aliases,
		Fingerprint: fingerprint(topoRev, passes, enabled),
	}, nil
}

// resolution is a pass's compiled mode plus its passthrough work items.
type resolution struct {
	mode    PlanMode
	copies  []CopyPair
	aliases map[ResourceID]ResourceID
}

// checkWriteConflicts rejects configurations where more than one enabled
// pass writes the same output this frame. Disabled extra writers are
// permitted: their passthrough resolutions are no-ops at runtime when the
// output is already in the written set.
func checkWriteConflicts(passes []*passState, enabled []bool, writers map[ResourceID][]int) error {
	for res, owners := range writers {
		if len(owners) < 2 {
			continue
		}
		first := -1
		for _, i := range owners {
			if !enabled[i] {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			a, b := &passes[first].desc, &passes[i].desc
			if a.MutualExclusionGroup != "" && a.MutualExclusionGroup == b.MutualExclusionGroup {
				return configErrorf(b.ID, res,
					"mutual exclusion group %q has multiple enabled writers of %q: %s, %s",
					a.MutualExclusionGroup, res, a.ID, b.ID)
			}
			return configErrorf(b.ID, res,
				"passes %s and %s both write %q while enabled", a.ID, b.ID, res)
		}
	}
	return nil
}

// resolvePassMode decides the PlanMode for one pass under the current
// enabled-state. Disabled passes resolve to Passthrough (copy per pair),
// Alias (virtual outputs), or Skip; ambiguous configurations fail loudly.
func resolvePassMode(p *passState, enabled bool, reg *Registry) (resolution, error) {
	if enabled {
		return resolution{mode: ModeExecute}, nil
	}

	desc := &p.desc
	if !desc.AllowPassthrough {
		return resolution{mode: ModeSkip}, nil
	}

	pairs := desc.CopyPairs
	if len(pairs) == 0 {
		switch {
		case len(desc.Inputs) == 1 && len(desc.Outputs) == 1:
			pairs = []CopyPair{{
				From: desc.Inputs[0].Resource,
				To:   desc.Outputs[0].Resource,
			}}
		case len(desc.Inputs) == 0:
			// Nothing to copy from; a disabled source pass skips.
			return resolution{mode: ModeSkip}, nil
		default:
			// The legacy engine copied only the first input here,
			// silently losing the rest. Refuse instead.
			return resolution{}, configErrorf(desc.ID, "",
				"pass %s disabled with %d inputs: explicit copyPairs required for passthrough",
				desc.ID, len(desc.Inputs))
		}
	}

	covered := make(map[ResourceID]struct{}, len(pairs))
	for _, cp := range pairs {
		covered[cp.To] = struct{}{}
	}
	for _, out := range desc.Outputs {
		if _, ok := covered[out.Resource]; !ok {
			return resolution{}, configErrorf(desc.ID, out.Resource,
				"pass %s disabled: copyPairs do not cover output %q", desc.ID, out.Resource)
		}
	}

	// Partition: pairs targeting virtual outputs become zero-cost
	// aliases, the rest become full-screen copies.
	res := resolution{}
	for _, cp := range pairs {
		if d, ok := reg.Descriptor(cp.To); ok && d.Virtual {
			if res.aliases == nil {
				res.aliases = make(map[ResourceID]ResourceID)
			}
			res.aliases[cp.To] = cp.From
			continue
		}
		res.copies = append(res.copies, cp)
	}
	if len(res.copies) == 0 && len(res.aliases) > 0 {
		res.mode = ModeAlias
	} else {
		res.mode = ModePassthrough
	}
	return res, nil
}

// buildAliasTable merges per-pass alias entries into one flattened table
// mapping each aliased output to its ultimate source, and rejects cycles.
func buildAliasTable(passes []*passState, resolutions []resolution) (map[ResourceID]ResourceID, error) {
	raw := make(map[ResourceID]ResourceID)
	for i := range resolutions {
		for out, src := range resolutions[i].aliases {
			if prev, dup := raw[out]; dup && prev != src {
				return nil, configErrorf(passes[i].desc.ID, out,
					"resource %q aliased to both %q and %q", out, prev, src)
			}
			raw[out] = src
		}
	}
	if len(raw) == 0 {
		return raw, nil
	}

	flat := make(map[ResourceID]ResourceID, len(raw))
	for out := range raw {
		src := raw[out]
		visited := map[ResourceID]struct{}{out: {}}
		for {
			if _, cyc := visited[src]; cyc {
				return nil, configErrorf("", out,
					"alias cycle through resource %q", out)
			}
			visited[src] = struct{}{}
			next, ok := raw[src]
			if !ok {
				break
			}
			src = next
		}
		flat[out] = src
	}
	return flat, nil
}

// checkRequiredInputs verifies that every input an enabled pass reads has
// a provider this frame: an enabled writer, a passthrough copy, or an
// alias. An input with no declared writers at all is an external resource
// (filled by the host) and is allowed.
func checkRequiredInputs(passes []*passState, enabled []bool, writers map[ResourceID][]int, resolutions []resolution) error {
	provided := func(res ResourceID) bool {
		owners, ok := writers[res]
		if !ok {
			return true // external input
		}
		for _, i := range owners {
			switch resolutions[i].mode {
			case ModeExecute:
				return true
			case ModePassthrough, ModeAlias:
				for _, cp := range resolutions[i].copies {
					if cp.To == res {
						return true
					}
				}
				if _, ok := resolutions[i].aliases[res]; ok {
					return true
				}
			}
		}
		return false
	}

	for i, p := range passes {
		if !enabled[i] {
			continue
		}
		for _, in := range p.desc.Inputs {
			if provided(in.Resource) {
				continue
			}
			// Name the first declared writer in the error; it is the
			// pass whose disablement broke the chain.
			owner := passes[writers[in.Resource][0]].desc.ID
			return configErrorf(owner, in.Resource,
				"%s disabled but required by %s", owner, p.desc.ID)
		}
	}
	return nil
}

// topoSort orders passes so every producer precedes its consumers, with
// ties broken by declaration order. A pass reading its own output (a
// double-buffered feedback loop) is not a self-dependency: the read side
// is the previous frame's target.
func topoSort(passes []*passState, writers map[ResourceID][]int) ([]int, error) {
	n := len(passes)
	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i, p := range passes {
		for _, in := range p.desc.Inputs {
			for _, w := range writers[in.Resource] {
				if w == i {
					continue // feedback read, previous frame
				}
				dependents[w] = append(dependents[w], i)
				indegree[i]++
			}
		}
	}

	order := make([]int, 0, n)
	emitted := make([]bool, n)
	for len(order) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !emitted[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break // remaining passes form a cycle
		}
		emitted[next] = true
		order = append(order, next)
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}

	if len(order) < n {
		var cyclic []string
		for i := 0; i < n; i++ {
			if !emitted[i] {
				cyclic = append(cyclic, passes[i].desc.ID)
			}
		}
		return nil, configErrorf("", "",
			"dependency cycle involving passes: %s", strings.Join(cyclic, ", "))
	}
	return order, nil
}

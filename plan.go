// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"hash/fnv"
)

// PlanMode is the compiled resolution of one pass for the current
// enabled-state: run it, substitute a copy, substitute an alias, or skip
// it entirely. Representing the resolution as a tagged variant (rather
// than booleans scattered across call sites) lets the executor and the
// tests handle every case exhaustively.
type PlanMode int

const (
	// ModeExecute runs the pass's Execute callback.
	ModeExecute PlanMode = iota

	// ModePassthrough issues one full-screen copy per copy pair in place
	// of the disabled pass.
	ModePassthrough

	// ModeAlias redirects reads of the pass's outputs to their source
	// resources with zero GPU work.
	ModeAlias

	// ModeSkip does nothing for the pass this frame.
	ModeSkip
)

// String returns the string representation of a PlanMode.
func (m PlanMode) String() string {
	switch m {
	case ModeExecute:
		return "Execute"
	case ModePassthrough:
		return "Passthrough"
	case ModeAlias:
		return "Alias"
	case ModeSkip:
		return "Skip"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// PassStatus is the per-frame state of a pass.
// Every pass starts a frame Pending and ends in exactly one terminal
// state; statuses reset at the start of the next frame.
type PassStatus int

const (
	// StatusPending means the pass has not been reached this frame.
	StatusPending PassStatus = iota

	// StatusExecuted means the pass's Execute callback ran successfully.
	StatusExecuted

	// StatusPassedThrough means the pass's copy pairs were resolved.
	StatusPassedThrough

	// StatusAliased means the pass's outputs were aliased to their sources.
	StatusAliased

	// StatusSkipped means the pass was skipped entirely.
	StatusSkipped

	// StatusFailed means Execute returned an error or panicked; the
	// pass's outputs retain their previous-frame contents.
	StatusFailed
)

// String returns the string representation of a PassStatus.
func (s PassStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusExecuted:
		return "Executed"
	case StatusPassedThrough:
		return "PassedThrough"
	case StatusAliased:
		return "Aliased"
	case StatusSkipped:
		return "Skipped"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// PlannedPass is one step of a compiled plan: a pass together with its
// resolved mode and, for passthrough steps, the copies to issue.
type PlannedPass struct {
	// Pass is the id of the scheduled pass.
	Pass string

	// Mode is the compiled resolution for this pass.
	Mode PlanMode

	// Copies are the copy pairs to issue when Mode is ModePassthrough.
	// A mixed pass (some outputs copied, some aliased) carries both
	// Copies and Aliases.
	Copies []CopyPair

	// Aliases maps this pass's aliased outputs to their ultimate source
	// resources when Mode is ModeAlias (or mixed).
	Aliases map[ResourceID]ResourceID
}

// ExecutionPlan is the compiled, ordered set of pass resolutions for one
// enabled-state. Plans are immutable once compiled; the engine replays the
// same plan every frame until the fingerprint changes.
type ExecutionPlan struct {
	// Steps are the planned passes in execution order: topologically
	// sorted, ties broken by declaration order.
	Steps []PlannedPass

	// Aliases is the flattened alias table for the whole plan, installed
	// on the registry before each frame.
	Aliases map[ResourceID]ResourceID

	// Fingerprint identifies the topology and enabled-state this plan was
	// compiled from.
	Fingerprint uint64
}

// Modes returns "pass:Mode" strings for every step, in order.
// Useful in logs and tests for asserting plan shape.
func (p *ExecutionPlan) Modes() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Pass + ":" + s.Mode.String()
	}
	return out
}

// fingerprint hashes the declaration order and enabled state of the
// passes together with the topology revision. Identical inputs produce
// identical fingerprints, which is what makes plan memoization and
// frame-to-frame reproducibility work.
func fingerprint(topoRev uint64, passes []*passState, enabled []bool) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(topoRev >> (8 * i))
	}
	h.Write(buf[:])
	for i, p := range passes {
		h.Write([]byte(p.desc.ID))
		if enabled[i] {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	return h.Sum64()
}

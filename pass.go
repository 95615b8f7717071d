// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "fmt"

// PassInput declares a logical resource a pass reads.
type PassInput struct {
	// Resource is the logical resource id to read.
	Resource ResourceID

	// Role is an optional semantic label ("color", "depth", "history").
	// The engine does not interpret it; it exists for feature code and
	// diagnostics.
	Role string
}

// PassOutput declares a logical resource a pass writes.
// A pass may own multiple outputs (MRT).
type PassOutput struct {
	// Resource is the logical resource id to write.
	Resource ResourceID

	// Attachment is the render-target attachment index for MRT passes.
	Attachment int
}

// CopyPair names one input-to-output copy a disabled pass performs in
// passthrough mode. A disabled pass with more than one input must declare
// a complete CopyPairs list; there is no implicit "first input" fallback.
type CopyPair struct {
	// From is the input resource to copy from.
	From ResourceID

	// To is the output resource to copy to.
	To ResourceID
}

// PassContext carries per-frame state into a pass Execute callback.
type PassContext struct {
	// FrameNumber is the 1-based index of the current frame.
	FrameNumber uint64

	// Pass is the id of the executing pass.
	Pass string

	// Resources resolves logical ids to concrete textures and targets.
	Resources *Registry

	// Device is the host GPU device handle, or nil for CPU-only graphs.
	Device DeviceHandle

	// StateDirty reports that an external collaborator mutated renderer
	// state out of band since the last frame (see [Graph.MarkStateDirty]).
	// Passes that cache bind state must re-sync when this is set.
	StateDirty bool
}

// PassDescriptor is the declarative specification of one rendering pass.
//
// Descriptors are validated by [Graph.AddPass] and snapshotted at compile
// time; mutating a descriptor after registration has no effect. Enablement
// is mutated through [Graph.SetPassEnabled] / [Graph.SetPassEnabledFunc].
type PassDescriptor struct {
	// ID is the unique pass name.
	ID string

	// Inputs are the logical resources the pass reads.
	Inputs []PassInput

	// Outputs are the logical resources the pass writes. At least one
	// output is required; a pass with nothing to produce has no place in
	// the resource chain.
	Outputs []PassOutput

	// Enabled is the initial enabled flag. Ignored when EnabledFunc is set.
	Enabled bool

	// EnabledFunc, when non-nil, is evaluated once per compile to decide
	// enablement. It takes precedence over Enabled.
	EnabledFunc func() bool

	// MutualExclusionGroup names a set of passes where exactly one is
	// expected to produce a given output per frame. Passes in the same
	// group may declare the same output without a write conflict.
	MutualExclusionGroup string

	// AllowPassthrough permits the engine to copy inputs to outputs when
	// the pass is disabled. Disabled passes with AllowPassthrough false
	// resolve to Skip, which is a ConfigurationError if an enabled
	// downstream pass requires their outputs.
	AllowPassthrough bool

	// CopyPairs lists the input-to-output copies to perform in
	// passthrough mode. Required when the pass has more than one input;
	// a single-input single-output pass may omit it and gets the implicit
	// pair (input, output).
	CopyPairs []CopyPair

	// Execute renders the pass. The engine isolates failures: an error or
	// panic is logged with the pass id and frame number, the pass's
	// outputs retain their previous contents, and the frame continues.
	Execute func(*PassContext) error
}

// passState is the registered form of a pass: the immutable descriptor
// snapshot plus the mutable enablement flags.
type passState struct {
	desc        PassDescriptor
	enabled     bool
	enabledFunc func() bool
}

// isEnabled evaluates enablement at compile time. The predicate wins over
// the flag; the result feeds the plan fingerprint.
func (p *passState) isEnabled() bool {
	if p.enabledFunc != nil {
		return p.enabledFunc()
	}
	return p.enabled
}

// validatePass checks a descriptor against the registry before the pass
// joins the graph. Duplicate-id checking is the graph's job.
func validatePass(desc *PassDescriptor, reg *Registry) error {
	if desc.ID == "" {
		return fmt.Errorf("%w: empty pass id", ErrInvalidDescriptor)
	}
	if len(desc.Outputs) == 0 {
		return fmt.Errorf("%w: pass %q declares no outputs", ErrInvalidDescriptor, desc.ID)
	}
	for _, in := range desc.Inputs {
		if !reg.Registered(in.Resource) {
			return fmt.Errorf("%w: pass %q input %q", ErrResourceNotFound, desc.ID, in.Resource)
		}
	}
	seen := make(map[ResourceID]struct{}, len(desc.Outputs))
	for _, out := range desc.Outputs {
		if !reg.Registered(out.Resource) {
			return fmt.Errorf("%w: pass %q output %q", ErrResourceNotFound, desc.ID, out.Resource)
		}
		if _, dup := seen[out.Resource]; dup {
			return fmt.Errorf("%w: pass %q declares output %q twice", ErrInvalidDescriptor, desc.ID, out.Resource)
		}
		seen[out.Resource] = struct{}{}
	}
	for _, cp := range desc.CopyPairs {
		if !inputsContain(desc.Inputs, cp.From) {
			return fmt.Errorf("%w: pass %q copy pair source %q is not a declared input", ErrInvalidDescriptor, desc.ID, cp.From)
		}
		if _, ok := seen[cp.To]; !ok {
			return fmt.Errorf("%w: pass %q copy pair destination %q is not a declared output", ErrInvalidDescriptor, desc.ID, cp.To)
		}
	}
	return nil
}

func inputsContain(inputs []PassInput, id ResourceID) bool {
	for _, in := range inputs {
		if in.Resource == id {
			return true
		}
	}
	return false
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// GraphOption configures a Graph during creation.
// Use functional options to customize Graph behavior.
//
// Example:
//
//	// Default CPU-backed graph
//	g := framegraph.New()
//
//	// GPU-backed graph (dependency injection)
//	g := framegraph.New(
//	    framegraph.WithDevice(provider),
//	    framegraph.WithRegistry(framegraph.NewRegistry(
//	        framegraph.WithTargetFactory(gpuTargets),
//	    )),
//	)
type GraphOption func(*Graph)

// WithRegistry sets a custom resource registry for the Graph.
func WithRegistry(r *Registry) GraphOption {
	return func(g *Graph) {
		if r != nil {
			g.registry = r
		}
	}
}

// WithBlitter sets a custom blitter for passthrough copies.
// Without this option the graph selects the best available registered
// backend on first use.
func WithBlitter(b Blitter) GraphOption {
	return func(g *Graph) {
		g.blitter = b
	}
}

// WithDevice sets the host GPU device handle. The handle is exposed to
// pass Execute callbacks through [PassContext] and to blitter factories.
func WithDevice(h DeviceHandle) GraphOption {
	return func(g *Graph) {
		g.device = h
	}
}

// Graph schedules a set of named rendering passes once per frame.
//
// A Graph is built once at startup: register resources on its [Registry],
// then add passes with [Graph.AddPass]. Per frame, the host render loop
// calls [Graph.RenderFrame], which compiles an [ExecutionPlan] when the
// enabled-state fingerprint has changed and replays it otherwise.
//
// Thread Safety: RenderFrame, Resize, and Dispose must be called from the
// render loop goroutine; they reject overlap with an executing frame.
// SetPassEnabled and SetPassEnabledFunc may be called from any goroutine
// (for example a UI handler); their effect is observed at the start of the
// next frame.
type Graph struct {
	// mu guards the pass list, enablement flags, and the plan cache
	// against concurrent SetPassEnabled calls from UI goroutines.
	mu sync.Mutex

	registry *Registry
	blitter  Blitter
	device   DeviceHandle

	// passes in declaration order; byID indexes them.
	passes []*passState
	byID   map[string]*passState

	// topoRev increments on AddPass/RemovePass so the fingerprint
	// distinguishes topology changes from pure toggles.
	topoRev uint64

	// plan is the memoized compiled plan.
	plan *ExecutionPlan

	// stateDirty records out-of-band renderer state mutation between
	// frames. Settable from any goroutine.
	stateDirty atomic.Bool

	frame    uint64
	inFrame  bool
	statuses map[string]PassStatus
	written  map[ResourceID]struct{}
	warned   map[string]struct{}
	disposed bool
}

// New creates an empty graph.
// Without options, resources are CPU-backed and passthrough copies use
// the best available registered blitter.
func New(opts ...GraphOption) *Graph {
	g := &Graph{
		byID:     make(map[string]*passState),
		statuses: make(map[string]PassStatus),
		written:  make(map[ResourceID]struct{}),
		warned:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = NewRegistry(WithRegistryDevice(g.device))
	}
	return g
}

// Resources returns the graph's resource registry.
func (g *Graph) Resources() *Registry {
	return g.registry
}

// FrameNumber returns the number of frames rendered so far.
func (g *Graph) FrameNumber() uint64 {
	return g.frame
}

// AddPass validates a descriptor and adds the pass to the graph.
// Every input and output resource must be registered first.
func (g *Graph) AddPass(desc PassDescriptor) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disposed {
		return ErrDisposed
	}
	if g.inFrame {
		return ErrFrameInProgress
	}
	if err := validatePass(&desc, g.registry); err != nil {
		return err
	}
	if _, dup := g.byID[desc.ID]; dup {
		return configErrorf(desc.ID, "", "duplicate pass id %q", desc.ID)
	}

	p := &passState{
		desc:        desc,
		enabled:     desc.Enabled,
		enabledFunc: desc.EnabledFunc,
	}
	g.passes = append(g.passes, p)
	g.byID[desc.ID] = p
	g.topoRev++
	return nil
}

// RemovePass removes a pass by id.
func (g *Graph) RemovePass(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disposed {
		return ErrDisposed
	}
	if g.inFrame {
		return ErrFrameInProgress
	}
	if _, ok := g.byID[id]; !ok {
		return fmt.Errorf("%w: %q", ErrPassNotFound, id)
	}
	delete(g.byID, id)
	for i, p := range g.passes {
		if p.desc.ID == id {
			g.passes = append(g.passes[:i], g.passes[i+1:]...)
			break
		}
	}
	delete(g.statuses, id)
	g.topoRev++
	return nil
}

// SetPassEnabled sets a pass's enabled flag and clears any predicate.
// The flag has no topology effect until the next compile: toggles are
// observed at the start of the next frame.
func (g *Graph) SetPassEnabled(id string, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPassNotFound, id)
	}
	p.enabled = enabled
	p.enabledFunc = nil
	return nil
}

// SetPassEnabledFunc sets a predicate evaluated once per compile to
// decide a pass's enablement. Pass nil to fall back to the boolean flag.
func (g *Graph) SetPassEnabledFunc(id string, fn func() bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPassNotFound, id)
	}
	p.enabledFunc = fn
	return nil
}

// PassEnabled reports a pass's enablement as it would be evaluated at
// the next compile.
func (g *Graph) PassEnabled(id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrPassNotFound, id)
	}
	return p.isEnabled(), nil
}

// PassStatus returns the per-frame state a pass reached in the most
// recent frame, or StatusPending if the pass has not run.
func (g *Graph) PassStatus(id string) PassStatus {
	return g.statuses[id]
}

// MarkStateDirty records that an external collaborator mutated renderer
// state out of band (for example, a third-party environment-map prefilter
// rebinding pipeline state). Every pass of the next frame observes
// [PassContext.StateDirty] set and must re-sync any cached bind state.
//
// MarkStateDirty is safe to call from any goroutine.
func (g *Graph) MarkStateDirty() {
	g.stateDirty.Store(true)
}

// Compile resolves the current enabled-state into an execution plan.
// Plans are memoized: compiling the same topology and enabled-state twice
// returns the identical plan. A *ConfigurationError means the graph
// refuses to render until the configuration is fixed.
//
// RenderFrame compiles automatically; calling Compile directly is useful
// to surface configuration errors at startup.
func (g *Graph) Compile() (*ExecutionPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disposed {
		return nil, ErrDisposed
	}

	enabled := make([]bool, len(g.passes))
	for i, p := range g.passes {
		enabled[i] = p.isEnabled()
	}
	fp := fingerprint(g.topoRev, g.passes, enabled)
	if g.plan != nil && g.plan.Fingerprint == fp {
		return g.plan, nil
	}

	plan, err := compile(g.topoRev, g.passes, enabled, g.registry)
	if err != nil {
		return nil, err
	}
	g.plan = plan
	g.warned = make(map[string]struct{})
	Logger().Debug("compiled execution plan",
		"fingerprint", plan.Fingerprint,
		"steps", plan.Modes())
	return plan, nil
}

// Plan returns the most recently compiled plan, or nil.
func (g *Graph) Plan() *ExecutionPlan {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.plan
}

// RenderFrame executes one frame: it recompiles the plan if the
// enabled-state fingerprint changed, resets the per-frame bookkeeping,
// and walks the plan in order.
//
// A *ConfigurationError from compilation aborts the frame before any
// pass runs. Failures inside a pass's Execute callback never abort the
// frame: they are logged, the pass is marked [StatusFailed], and its
// outputs retain their previous-frame contents.
func (g *Graph) RenderFrame() error {
	if g.disposed {
		return ErrDisposed
	}
	if g.inFrame {
		return ErrFrameInProgress
	}

	plan, err := g.Compile()
	if err != nil {
		return err
	}

	g.inFrame = true
	defer func() { g.inFrame = false }()
	g.frame++

	g.registry.setAliases(plan.Aliases)
	clear(g.written)
	for _, step := range plan.Steps {
		g.statuses[step.Pass] = StatusPending
	}
	dirty := g.stateDirty.Swap(false)

	for _, step := range plan.Steps {
		switch step.Mode {
		case ModeExecute:
			g.executePass(step, dirty)
		case ModePassthrough:
			g.resolvePassthrough(step)
			g.statuses[step.Pass] = StatusPassedThrough
		case ModeAlias:
			// The alias table is already installed; reads of the
			// pass's outputs redirect lazily with zero GPU work.
			g.statuses[step.Pass] = StatusAliased
		case ModeSkip:
			g.statuses[step.Pass] = StatusSkipped
		}
	}
	return nil
}

// executePass runs one enabled pass with failure isolation.
func (g *Graph) executePass(step PlannedPass, dirty bool) {
	p := g.byID[step.Pass]
	ctx := &PassContext{
		FrameNumber: g.frame,
		Pass:        step.Pass,
		Resources:   g.registry,
		Device:      g.device,
		StateDirty:  dirty,
	}

	if err := runIsolated(p.desc.Execute, ctx); err != nil {
		Logger().Warn("pass execution failed",
			"pass", step.Pass,
			"frame", g.frame,
			"err", err)
		g.statuses[step.Pass] = StatusFailed
		return
	}

	for _, out := range p.desc.Outputs {
		g.written[out.Resource] = struct{}{}
		g.registry.Swap(out.Resource)
	}
	g.statuses[step.Pass] = StatusExecuted
}

// runIsolated invokes a pass callback, converting panics to errors so a
// single broken pass cannot take down the frame.
func runIsolated(fn func(*PassContext) error, ctx *PassContext) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Resize recreates all resource backings at the new dimensions.
// Must not be called while a frame is executing.
func (g *Graph) Resize(width, height int) error {
	if g.disposed {
		return ErrDisposed
	}
	if g.inFrame {
		return ErrFrameInProgress
	}
	return g.registry.Resize(width, height)
}

// Dispose releases all resources owned by the graph. Idempotent.
// Callers must guarantee no frame is executing.
func (g *Graph) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disposed {
		return
	}
	g.registry.Dispose()
	g.passes = nil
	g.byID = make(map[string]*passState)
	g.plan = nil
	g.disposed = true
}

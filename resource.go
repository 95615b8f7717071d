// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceID is the stable name of a logical texture or render-target slot
// (for example "SCENE_COLOR"), independent of its concrete GPU backing.
type ResourceID string

// ResourceDescriptor describes the backing of a logical resource.
type ResourceDescriptor struct {
	// Width is the resource width in pixels.
	Width int

	// Height is the resource height in pixels.
	Height int

	// Format is the pixel format of the resource.
	Format gputypes.TextureFormat

	// DoubleBuffered allocates two targets (ping/pong) so a pass can read
	// its own previous-frame output while writing the current frame.
	DoubleBuffered bool

	// Virtual marks an identity re-export slot with no concrete backing.
	// Reads of a virtual resource resolve through the alias table to the
	// resource that actually produced the data. A disabled pass whose
	// output is virtual resolves to a zero-cost alias instead of a
	// passthrough copy.
	Virtual bool
}

// binding holds the concrete target(s) bound to a ResourceID.
// Double-buffered bindings hold two targets and a flip index; the write
// side is targets[flip], the read side is targets[1-flip].
type binding struct {
	desc    ResourceDescriptor
	targets [2]RenderTarget
	flip    int
}

// RegistryOption configures a Registry during creation.
type RegistryOption func(*Registry)

// WithTargetFactory injects the factory used to create concrete targets.
// GPU hosts use this to allocate device textures instead of CPU pixmaps.
func WithTargetFactory(f TargetFactory) RegistryOption {
	return func(r *Registry) {
		if f != nil {
			r.factory = f
		}
	}
}

// WithRegistryDevice stores a device handle on the registry so that
// target factories closing over the registry can reach the shared GPU
// device.
func WithRegistryDevice(h DeviceHandle) RegistryOption {
	return func(r *Registry) {
		r.device = h
	}
}

// Registry owns the bindings from logical resource ids to concrete render
// targets, including double-buffering for feedback passes and the alias
// table installed by the compiled plan.
//
// Registry is NOT safe for concurrent use. All methods must be called from
// the render loop goroutine; the engine accesses the registry exclusively
// from within the RenderFrame call stack.
type Registry struct {
	factory  TargetFactory
	device   DeviceHandle
	bindings map[ResourceID]*binding
	order    []ResourceID
	aliases  map[ResourceID]ResourceID
	disposed bool
}

// NewRegistry creates an empty resource registry.
// Without options, resources are backed by CPU [PixmapTarget] values.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factory:  defaultTargetFactory,
		bindings: make(map[ResourceID]*binding),
		aliases:  make(map[ResourceID]ResourceID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Device returns the device handle stored on the registry, or nil.
func (r *Registry) Device() DeviceHandle {
	return r.device
}

// Register creates (or recreates) the backing for a logical resource.
// Registering an existing id destroys its previous targets first.
//
// Virtual resources receive no backing; reads resolve through the alias
// table and writes are rejected.
func (r *Registry) Register(id ResourceID, desc ResourceDescriptor) error {
	if r.disposed {
		return ErrDisposed
	}
	if id == "" {
		return fmt.Errorf("%w: empty resource id", ErrInvalidDescriptor)
	}

	b, exists := r.bindings[id]
	if exists {
		b.destroy()
	} else {
		b = &binding{}
		r.bindings[id] = b
		r.order = append(r.order, id)
	}
	b.desc = desc
	b.flip = 0

	if desc.Virtual {
		return nil
	}
	return r.allocate(id, b)
}

// allocate creates the concrete target(s) for a non-virtual binding.
func (r *Registry) allocate(id ResourceID, b *binding) error {
	t0, err := r.factory(b.desc)
	if err != nil {
		return fmt.Errorf("framegraph: creating target for %q: %w", id, err)
	}
	b.targets[0] = t0
	if b.desc.DoubleBuffered {
		t1, err := r.factory(b.desc)
		if err != nil {
			t0.Destroy()
			b.targets[0] = nil
			return fmt.Errorf("framegraph: creating back buffer for %q: %w", id, err)
		}
		b.targets[1] = t1
	}
	return nil
}

// Registered reports whether a resource id has been registered.
func (r *Registry) Registered(id ResourceID) bool {
	_, ok := r.bindings[id]
	return ok
}

// Descriptor returns the descriptor a resource was registered with.
func (r *Registry) Descriptor(id ResourceID) (ResourceDescriptor, bool) {
	b, ok := r.bindings[id]
	if !ok {
		return ResourceDescriptor{}, false
	}
	return b.desc, true
}

// ReadTexture returns the current-frame-readable texture for a resource,
// resolving alias chains and ping-pong buffers. Returns nil when the
// resource is unknown, virtual with no installed alias, or mid-resize.
func (r *Registry) ReadTexture(id ResourceID) Texture {
	id = r.resolveAlias(id)
	b, ok := r.bindings[id]
	if !ok || b.desc.Virtual {
		return nil
	}
	t := b.readTarget()
	if t == nil {
		return nil
	}
	return t.Texture()
}

// WriteTarget returns this frame's write target for a resource, resolving
// ping-pong buffers. Aliases are NOT resolved: writes always go to the
// concrete resource. Returns nil for unknown or virtual resources.
func (r *Registry) WriteTarget(id ResourceID) RenderTarget {
	b, ok := r.bindings[id]
	if !ok || b.desc.Virtual {
		return nil
	}
	return b.targets[b.flip]
}

// Swap flips a double-buffered binding after its producer has executed,
// making the freshly written target the read side for downstream passes
// (and the other target the write side for the next frame).
// Swap is a no-op for single-buffered resources.
func (r *Registry) Swap(id ResourceID) {
	b, ok := r.bindings[id]
	if !ok || !b.desc.DoubleBuffered {
		return
	}
	b.flip = 1 - b.flip
}

// readTarget returns the read side of a binding.
func (b *binding) readTarget() RenderTarget {
	if b.desc.DoubleBuffered {
		return b.targets[1-b.flip]
	}
	return b.targets[0]
}

// resolveAlias follows the alias table to the ultimate source resource.
// The compiler installs flattened tables, so a single hop is the common
// case; the loop guards against tables installed by hand.
func (r *Registry) resolveAlias(id ResourceID) ResourceID {
	seen := 0
	for {
		src, ok := r.aliases[id]
		if !ok {
			return id
		}
		id = src
		seen++
		if seen > len(r.aliases) {
			// Cycle in a hand-installed table. Compile rejects cycles,
			// so bail out rather than spin.
			return id
		}
	}
}

// setAliases installs the alias table from a compiled plan.
func (r *Registry) setAliases(aliases map[ResourceID]ResourceID) {
	if len(aliases) == 0 {
		r.aliases = make(map[ResourceID]ResourceID)
		return
	}
	table := make(map[ResourceID]ResourceID, len(aliases))
	for out, src := range aliases {
		table[out] = src
	}
	r.aliases = table
}

// Aliases returns a copy of the installed alias table.
func (r *Registry) Aliases() map[ResourceID]ResourceID {
	out := make(map[ResourceID]ResourceID, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Resize recreates all non-virtual bindings at the new dimensions,
// preserving ids, formats, and double-buffering. Contents are not
// preserved. Must not be called while a frame is executing; the graph
// enforces that contract.
func (r *Registry) Resize(width, height int) error {
	if r.disposed {
		return ErrDisposed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid size %dx%d", ErrInvalidDescriptor, width, height)
	}
	for _, id := range r.order {
		b := r.bindings[id]
		if b.desc.Virtual {
			continue
		}
		b.destroy()
		b.desc.Width = width
		b.desc.Height = height
		b.flip = 0
		if err := r.allocate(id, b); err != nil {
			return err
		}
	}
	return nil
}

// Dispose destroys all targets and releases the registry. Idempotent.
func (r *Registry) Dispose() {
	if r.disposed {
		return
	}
	for _, id := range r.order {
		r.bindings[id].destroy()
	}
	r.bindings = make(map[ResourceID]*binding)
	r.order = nil
	r.aliases = make(map[ResourceID]ResourceID)
	r.disposed = true
}

// destroy releases a binding's targets.
func (b *binding) destroy() {
	for i, t := range b.targets {
		if t != nil {
			t.Destroy()
			b.targets[i] = nil
		}
	}
}

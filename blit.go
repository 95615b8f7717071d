// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"image"
	"image/draw"
	"sort"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Blitter performs the passthrough-copy primitive: one full-screen
// textured copy from a source texture to a destination target. The engine
// issues exactly one Blit per copy pair of a passed-through pass.
type Blitter interface {
	// Blit copies src to dst, scaling if the dimensions differ.
	Blit(src Texture, dst RenderTarget) error
}

// BlitterFactory creates a Blitter. The device handle is nil for
// CPU-only graphs.
type BlitterFactory func(device DeviceHandle) (Blitter, error)

// blitterEntry represents a registered blitter backend.
type blitterEntry struct {
	name      string
	priority  int
	factory   BlitterFactory
	available func() bool
}

// blitterRegistry manages registered blitter backends.
//
// The registry enables GPU backends to register themselves without
// requiring changes to the core library. The built-in "pixmap" backend
// (priority 10) copies CPU-backed targets; GPU backends register at
// higher priority from their own packages:
//
//	func init() {
//	    framegraph.RegisterBlitter("wgpu", 100, wgpuFactory, wgpuAvailable)
//	}
type blitterRegistry struct {
	mu      sync.RWMutex
	entries map[string]*blitterEntry
}

// globalBlitters is the default registry.
var globalBlitters = &blitterRegistry{}

// RegisterBlitter adds a blitter backend to the global registry.
//
// Parameters:
//   - name: unique identifier (e.g., "wgpu", "pixmap")
//   - priority: selection priority (higher = preferred)
//   - factory: function to create blitter instances
//   - available: function to check if the backend is available
//
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func RegisterBlitter(name string, priority int, factory BlitterFactory, available func() bool) {
	globalBlitters.register(name, priority, factory, available)
}

// UnregisterBlitter removes a blitter backend from the global registry.
func UnregisterBlitter(name string) {
	globalBlitters.unregister(name)
}

// Blitters returns all registered backend names sorted by priority
// (highest first).
func Blitters() []string {
	return globalBlitters.sortedNames(false)
}

// NewBlitter creates a blitter using the best available backend.
// Returns ErrNoBlitterAvailable if no backends are available.
func NewBlitter(device DeviceHandle) (Blitter, error) {
	return globalBlitters.newBlitter(device)
}

// NewBlitterByName creates a blitter using a specific named backend.
func NewBlitterByName(name string, device DeviceHandle) (Blitter, error) {
	return globalBlitters.newBlitterByName(name, device)
}

func (r *blitterRegistry) register(name string, priority int, factory BlitterFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*blitterEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &blitterEntry{
		name:      name,
		priority:  priority,
		factory:   factory,
		available: available,
	}
}

func (r *blitterRegistry) unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

func (r *blitterRegistry) newBlitter(device DeviceHandle) (Blitter, error) {
	available := r.sortedNames(true)
	if len(available) == 0 {
		return nil, ErrNoBlitterAvailable
	}

	// Try each available backend in priority order.
	var lastErr error
	for _, name := range available {
		b, err := r.newBlitterByName(name, device)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoBlitterAvailable
}

func (r *blitterRegistry) newBlitterByName(name string, device DeviceHandle) (Blitter, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BlitterNotFoundError{Name: name}
	}
	if !entry.available() {
		return nil, &BlitterUnavailableError{Name: name}
	}
	return entry.factory(device)
}

// sortedNames returns backend names sorted by priority (highest first).
// If onlyAvailable is true, filters to available backends only.
func (r *blitterRegistry) sortedNames(onlyAvailable bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}
	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.priority})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Pixmap blitter errors.
var (
	// ErrBlitSourceUnsupported is returned when the source texture has no
	// CPU-accessible pixels.
	ErrBlitSourceUnsupported = errors.New("framegraph: blit source has no CPU pixels")

	// ErrBlitTargetUnsupported is returned when the destination target has
	// no CPU-accessible pixels.
	ErrBlitTargetUnsupported = errors.New("framegraph: blit target has no CPU pixels")
)

// pixmapBlitter copies CPU-backed textures with image/draw, scaling with
// x/image/draw when source and destination sizes differ.
type pixmapBlitter struct{}

// Blit copies src to dst.
func (pixmapBlitter) Blit(src Texture, dst RenderTarget) error {
	if src == nil || src.Pixels() == nil {
		return ErrBlitSourceUnsupported
	}
	dstTex := dst.Texture()
	if dstTex == nil || dstTex.Pixels() == nil {
		return ErrBlitTargetUnsupported
	}

	srcImg := &image.RGBA{
		Pix:    src.Pixels(),
		Stride: src.Stride(),
		Rect:   image.Rect(0, 0, src.Width(), src.Height()),
	}
	dstImg := &image.RGBA{
		Pix:    dstTex.Pixels(),
		Stride: dstTex.Stride(),
		Rect:   image.Rect(0, 0, dst.Width(), dst.Height()),
	}

	if srcImg.Rect == dstImg.Rect {
		draw.Draw(dstImg, dstImg.Rect, srcImg, image.Point{}, draw.Src)
		return nil
	}
	xdraw.ApproxBiLinear.Scale(dstImg, dstImg.Rect, srcImg, srcImg.Rect, xdraw.Src, nil)
	return nil
}

// Ensure pixmapBlitter implements Blitter.
var _ Blitter = pixmapBlitter{}

// init registers the built-in pixmap blitter.
func init() {
	RegisterBlitter("pixmap", 10, func(DeviceHandle) (Blitter, error) {
		return pixmapBlitter{}, nil
	}, nil)
}

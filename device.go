// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// This interface is the integration point between framegraph and GPU
// frameworks like gogpu. The host application implements DeviceHandle and
// passes it to the graph via [WithDevice], allowing GPU-backed target
// factories and blitters to use the shared device and queue.
//
// Key principle: framegraph RECEIVES the device from the host, it does NOT
// create one. The engine itself never touches the device; it only carries
// the handle to the collaborators that need it ([TargetFactory]
// implementations, [Blitter] backends, and pass Execute callbacks through
// [PassContext]).
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing a
// framegraph-specific name for the interface while maintaining full
// compatibility with the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used for CPU-only rendering where no GPU is available.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns unknown adapter info for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}

// Texture is the readable face of a logical resource for the current frame.
//
// Textures may support GPU access (TextureView), CPU access (Pixels), or
// both. Pass Execute callbacks and [Blitter] implementations choose the
// appropriate access method.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int

	// Format returns the pixel format of the texture.
	Format() gputypes.TextureFormat

	// TextureView returns the GPU texture view for this texture.
	// Returns nil for CPU-only textures.
	TextureView() TextureView

	// Pixels returns direct access to pixel data.
	// Returns nil for GPU-only textures.
	// For RGBA format, each pixel is 4 bytes: R, G, B, A.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// TextureView represents a view into a GPU texture.
// Views are used to bind textures to shader stages.
type TextureView interface {
	// Destroy releases resources associated with this view.
	Destroy()
}

// RenderTarget is the writable face of a logical resource for the current
// frame. A pass draws into the RenderTarget returned by
// [Registry.WriteTarget]; the result becomes readable through
// [Registry.ReadTexture].
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Texture returns the readable face of this target.
	// For CPU targets this is typically the target itself.
	Texture() Texture

	// Destroy releases resources associated with this target.
	Destroy()
}

// TargetFactory creates the concrete backing for a registered resource.
//
// The default factory creates CPU-backed [PixmapTarget] values. GPU hosts
// inject their own factory with [WithTargetFactory], typically closing
// over a [DeviceHandle] to allocate device textures.
type TargetFactory func(desc ResourceDescriptor) (RenderTarget, error)

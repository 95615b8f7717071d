// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// PixmapTarget is a CPU-backed render target using *image.RGBA.
//
// PixmapTarget implements both [RenderTarget] and [Texture]: the readable
// face of a pixmap is the pixmap itself. It is the default backing created
// by [NewRegistry] when no custom [TargetFactory] is injected, and the
// backing used throughout the engine's own tests.
//
// Example:
//
//	target := framegraph.NewPixmapTarget(800, 600)
//	// draw into target.Image() ...
//	img := target.Image()
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Texture returns the readable face of this target: the target itself.
func (t *PixmapTarget) Texture() Texture {
	return t
}

// TextureView returns nil as this is a CPU-only target.
func (t *PixmapTarget) TextureView() TextureView {
	return nil
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte {
	return t.img.Pix
}

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int {
	return t.img.Stride
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) {
	r, g, b, a := c.RGBA()
	// Convert from 16-bit to 8-bit (mask ensures value fits in uint8)
	//nolint:gosec // G115: mask ensures no overflow
	rgba := color.RGBA{
		R: uint8((r >> 8) & 0xFF),
		G: uint8((g >> 8) & 0xFF),
		B: uint8((b >> 8) & 0xFF),
		A: uint8((a >> 8) & 0xFF),
	}

	bounds := t.img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			t.img.SetRGBA(x, y, rgba)
		}
	}
}

// SetPixel sets a single pixel at the given coordinates.
func (t *PixmapTarget) SetPixel(x, y int, c color.Color) {
	t.img.Set(x, y, c)
}

// GetPixel returns the color at the given coordinates.
func (t *PixmapTarget) GetPixel(x, y int) color.Color {
	return t.img.At(x, y)
}

// Destroy releases the pixel storage.
func (t *PixmapTarget) Destroy() {
	t.img = image.NewRGBA(image.Rect(0, 0, 0, 0))
}

// Ensure PixmapTarget implements RenderTarget and Texture.
var (
	_ RenderTarget = (*PixmapTarget)(nil)
	_ Texture      = (*PixmapTarget)(nil)
)

// defaultTargetFactory creates CPU-backed pixmap targets.
// The resource format is recorded on the descriptor but pixmaps always
// store RGBA8; GPU hosts that need other formats inject their own factory.
func defaultTargetFactory(desc ResourceDescriptor) (RenderTarget, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, configErrorf("", "", "invalid target size %dx%d", desc.Width, desc.Height)
	}
	return NewPixmapTarget(desc.Width, desc.Height), nil
}

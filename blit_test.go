// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"image/color"
	"slices"
	"testing"
)

// fakeBlitter is a registry test double.
type fakeBlitter struct{ name string }

func (fakeBlitter) Blit(Texture, RenderTarget) error { return nil }

func registerFake(t *testing.T, name string, priority int, available func() bool) {
	t.Helper()
	RegisterBlitter(name, priority, func(DeviceHandle) (Blitter, error) {
		return fakeBlitter{name: name}, nil
	}, available)
	t.Cleanup(func() { UnregisterBlitter(name) })
}

func TestBlitterRegistryPriority(t *testing.T) {
	registerFake(t, "test-high", 100, nil)
	registerFake(t, "test-low", 1, nil)

	names := Blitters()
	hi := slices.Index(names, "test-high")
	lo := slices.Index(names, "test-low")
	px := slices.Index(names, "pixmap")
	if hi < 0 || lo < 0 || px < 0 {
		t.Fatalf("Blitters() = %v, missing registered backends", names)
	}
	if !(hi < px && px < lo) {
		t.Errorf("Blitters() = %v, want test-high before pixmap before test-low", names)
	}

	b, err := NewBlitter(nil)
	if err != nil {
		t.Fatalf("NewBlitter() = %v", err)
	}
	fb, ok := b.(fakeBlitter)
	if !ok || fb.name != "test-high" {
		t.Errorf("NewBlitter() selected %T %v, want test-high", b, b)
	}
}

func TestBlitterRegistryAvailability(t *testing.T) {
	// An unavailable high-priority backend is skipped in favor of the
	// next available one.
	registerFake(t, "test-down", 200, func() bool { return false })

	b, err := NewBlitter(nil)
	if err != nil {
		t.Fatalf("NewBlitter() = %v", err)
	}
	if _, isFake := b.(fakeBlitter); isFake {
		t.Error("NewBlitter() selected the unavailable backend")
	}

	_, err = NewBlitterByName("test-down", nil)
	var unavailErr *BlitterUnavailableError
	if !errors.As(err, &unavailErr) {
		t.Errorf("NewBlitterByName(unavailable) = %v, want *BlitterUnavailableError", err)
	}
}

func TestBlitterByNameNotFound(t *testing.T) {
	_, err := NewBlitterByName("does-not-exist", nil)
	var notFound *BlitterNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("NewBlitterByName(unknown) = %v, want *BlitterNotFoundError", err)
	}
	if notFound.Name != "does-not-exist" {
		t.Errorf("BlitterNotFoundError.Name = %q", notFound.Name)
	}
}

func TestBlitterUnregister(t *testing.T) {
	registerFake(t, "test-gone", 5, nil)
	UnregisterBlitter("test-gone")
	if slices.Contains(Blitters(), "test-gone") {
		t.Error("unregistered backend still listed")
	}
}

func TestPixmapBlitSameSize(t *testing.T) {
	src := NewPixmapTarget(16, 16)
	dst := NewPixmapTarget(16, 16)
	red := color.RGBA{R: 255, A: 255}
	src.Clear(red)

	b, err := NewBlitterByName("pixmap", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Blit(src.Texture(), dst); err != nil {
		t.Fatalf("Blit() = %v", err)
	}
	if got := dst.GetPixel(8, 8); got != red {
		t.Errorf("dst pixel = %v, want %v", got, red)
	}
}

func TestPixmapBlitScales(t *testing.T) {
	src := NewPixmapTarget(8, 8)
	dst := NewPixmapTarget(32, 32)
	green := color.RGBA{G: 255, A: 255}
	src.Clear(green)

	b, err := NewBlitterByName("pixmap", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Blit(src.Texture(), dst); err != nil {
		t.Fatalf("Blit() = %v", err)
	}
	// A uniform source stays uniform through the bilinear scale.
	for _, pt := range [][2]int{{0, 0}, {16, 16}, {31, 31}} {
		if got := dst.GetPixel(pt[0], pt[1]); got != green {
			t.Errorf("dst pixel at %v = %v, want %v", pt, got, green)
		}
	}
}

// gpuOnlyTexture simulates a texture with no CPU-accessible pixels.
type gpuOnlyTexture struct{ PixmapTarget }

func (gpuOnlyTexture) Pixels() []byte { return nil }

func TestPixmapBlitUnsupportedSource(t *testing.T) {
	dst := NewPixmapTarget(8, 8)
	b, err := NewBlitterByName("pixmap", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Blit(&gpuOnlyTexture{}, dst); !errors.Is(err, ErrBlitSourceUnsupported) {
		t.Errorf("Blit(gpu-only src) = %v, want ErrBlitSourceUnsupported", err)
	}
	if err := b.Blit(nil, dst); !errors.Is(err, ErrBlitSourceUnsupported) {
		t.Errorf("Blit(nil src) = %v, want ErrBlitSourceUnsupported", err)
	}
}

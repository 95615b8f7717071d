// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
)

// Common errors returned by graph and registry operations.
var (
	// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
	// Use errors.Is(err, ErrConfiguration) to detect compile-time failures.
	ErrConfiguration = errors.New("framegraph: invalid configuration")

	// ErrDisposed is returned when operations are attempted on a disposed
	// graph or registry.
	ErrDisposed = errors.New("framegraph: disposed")

	// ErrFrameInProgress is returned when an exclusive operation (Resize,
	// Dispose, reentrant RenderFrame) is attempted while a frame is
	// executing. Callers must quantize such calls to frame boundaries.
	ErrFrameInProgress = errors.New("framegraph: frame in progress")

	// ErrPassNotFound is returned when a pass id is not registered.
	ErrPassNotFound = errors.New("framegraph: pass not found")

	// ErrResourceNotFound is returned when a resource id is not registered.
	ErrResourceNotFound = errors.New("framegraph: resource not found")

	// ErrInvalidDescriptor is returned when a pass or resource descriptor
	// fails validation.
	ErrInvalidDescriptor = errors.New("framegraph: invalid descriptor")

	// ErrNoBlitterAvailable is returned when no blitter backends are
	// registered or available.
	ErrNoBlitterAvailable = errors.New("framegraph: no blitter available")
)

// ConfigurationError describes a graph configuration the compiler refuses
// to schedule: duplicate writers, dependency or alias cycles, or a disabled
// pass whose outputs an enabled downstream pass still requires.
//
// ConfigurationErrors are fatal at compile time. They surface from
// [Graph.Compile] and [Graph.RenderFrame] so that a misconfigured graph
// refuses to render instead of silently dropping a pass's contribution.
type ConfigurationError struct {
	// Pass is the id of the offending pass, if one is identifiable.
	Pass string

	// Resource is the logical resource involved, if one is identifiable.
	Resource ResourceID

	// Reason is a human-readable description of the failure.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "framegraph: " + e.Reason
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// configErrorf builds a ConfigurationError with a formatted reason.
func configErrorf(pass string, resource ResourceID, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Pass:     pass,
		Resource: resource,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// BlitterNotFoundError indicates a named blitter backend is not registered.
type BlitterNotFoundError struct {
	Name string
}

func (e *BlitterNotFoundError) Error() string {
	return "framegraph: blitter not found: " + e.Name
}

// BlitterUnavailableError indicates a blitter backend exists but is not
// available on this system.
type BlitterUnavailableError struct {
	Name string
}

func (e *BlitterUnavailableError) Error() string {
	return "framegraph: blitter unavailable: " + e.Name
}

// Package framegraph provides a render-graph execution engine for Go.
//
// # Overview
//
// framegraph schedules a set of named GPU rendering passes once per frame.
// Each pass declares the logical resources (textures and render targets) it
// reads and writes; the engine compiles those declarations into an ordered
// execution plan and replays the plan every frame. When a pass is disabled
// at runtime the engine keeps the resource chain consistent by copying or
// aliasing the pass's inputs to its outputs, so downstream passes never
// observe a hole in the pipeline.
//
// # Quick Start
//
//	import "github.com/gogpu/framegraph"
//
//	g := framegraph.New()
//	res := g.Resources()
//
//	res.Register("SCENE_COLOR", framegraph.ResourceDescriptor{
//	    Width: 1280, Height: 720,
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	})
//	res.Register("SCENE_COMPOSITE", framegraph.ResourceDescriptor{
//	    Width: 1280, Height: 720,
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	})
//
//	g.AddPass(framegraph.PassDescriptor{
//	    ID:      "scene",
//	    Outputs: []framegraph.PassOutput{{Resource: "SCENE_COLOR"}},
//	    Execute: drawScene,
//	})
//	g.AddPass(framegraph.PassDescriptor{
//	    ID:               "cloudComposite",
//	    Inputs:           []framegraph.PassInput{{Resource: "SCENE_COLOR"}},
//	    Outputs:          []framegraph.PassOutput{{Resource: "SCENE_COMPOSITE"}},
//	    AllowPassthrough: true,
//	    Execute:          drawClouds,
//	})
//
//	// Per-frame render callback:
//	if err := g.RenderFrame(); err != nil {
//	    log.Fatal(err) // misconfigured graph refuses to render
//	}
//
// # Compile / Execute Split
//
// The engine is two-phase. Compilation is a pure function from the pass
// descriptors and their current enabled state to an [ExecutionPlan]: a
// topologically sorted list of passes, each tagged with a [PlanMode]
// (Execute, Passthrough, Alias, or Skip). Compilation detects duplicate
// writers, dependency cycles, and disabled passes whose outputs are still
// required downstream, and reports them as a [ConfigurationError] instead
// of silently dropping data. Execution is a thin loop over the compiled
// plan; plans are memoized and recompiled only when the enabled-state
// fingerprint changes.
//
// # Passthrough and Aliasing
//
// A disabled pass with AllowPassthrough resolves to a full-screen copy of
// its input to its output (one blit per copy pair), or to a zero-cost
// alias when the output is a Virtual resource. A disabled pass with more
// than one input must declare explicit CopyPairs; there is no implicit
// "first input" fallback.
//
// # Concurrency
//
// RenderFrame, Resize, and Dispose must be called from the render loop
// goroutine. SetPassEnabled may be called from any goroutine (for example
// a UI handler); its effect is observed at the start of the next frame.
//
// # Logging
//
// framegraph produces no log output by default. Call [SetLogger] to enable
// structured logging via log/slog.
package framegraph

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"
)

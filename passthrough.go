// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// resolvePassthrough issues the copy pairs of one passed-through pass.
//
// For each pair the resolver checks the written set first: if an enabled
// pass already produced the output this frame, the copy is a no-op and
// the output retains that pass's contents. A source texture or write
// target that resolves to nil (for example mid-resize) skips the pair for
// this frame and logs once per plan rather than once per frame.
func (g *Graph) resolvePassthrough(step PlannedPass) {
	for _, cp := range step.Copies {
		if _, produced := g.written[cp.To]; produced {
			continue
		}

		src := g.registry.ReadTexture(cp.From)
		dst := g.registry.WriteTarget(cp.To)
		if src == nil || dst == nil {
			g.warnOnce(step.Pass, cp, "source or target unavailable")
			continue
		}

		b, err := g.ensureBlitter()
		if err != nil {
			g.warnOnce(step.Pass, cp, err.Error())
			continue
		}
		if err := b.Blit(src, dst); err != nil {
			g.warnOnce(step.Pass, cp, err.Error())
			continue
		}

		g.written[cp.To] = struct{}{}
		g.registry.Swap(cp.To)
	}
}

// ensureBlitter lazily selects the best available blitter backend, so
// that backends registered by imported packages are picked up no matter
// the construction order.
func (g *Graph) ensureBlitter() (Blitter, error) {
	if g.blitter != nil {
		return g.blitter, nil
	}
	b, err := NewBlitter(g.device)
	if err != nil {
		return nil, err
	}
	g.blitter = b
	return b, nil
}

// warnOnce logs a passthrough fallback once per (pass, pair) until the
// next recompile clears the set.
func (g *Graph) warnOnce(pass string, cp CopyPair, reason string) {
	key := pass + "/" + string(cp.From) + ">" + string(cp.To)
	if _, seen := g.warned[key]; seen {
		return
	}
	g.warned[key] = struct{}{}
	Logger().Warn("passthrough copy skipped",
		"pass", pass,
		"from", cp.From,
		"to", cp.To,
		"frame", g.frame,
		"reason", reason)
}

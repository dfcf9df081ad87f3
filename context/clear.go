// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package context

import "github.com/dxmt-go/metallayer/internal/objcbridge"

// clearColorTarget remembers a pending ClearRTV against one color
// attachment slot's view.
type clearColorTarget struct {
	viewKey int
	color   objcbridge.MTLClearColor
}

// clearDepthStencilTarget remembers a pending ClearDSV.
type clearDepthStencilTarget struct {
	viewKey      int
	depth        float64
	stencil      uint32
	clearDepth   bool
	clearStencil bool
}

// PendingClearPass accumulates ClearRTV/ClearDSV calls that have not yet
// been absorbed into a render pass's load actions, per spec.md §4.3's
// clear-pass coalescing rule: up to 8 color targets plus one
// depth/stencil target, last-writer-wins on repeated clears of the same
// view.
type PendingClearPass struct {
	colors       [MaxRenderTargets]*clearColorTarget
	depthStencil *clearDepthStencilTarget
}

// ClearRTV coalesces a color clear into the pending pass: a later call
// against the same slot overwrites the earlier clear color
// (last-writer-wins), per spec.md.
func (p *PendingClearPass) ClearRTV(slot int, viewKey int, color objcbridge.MTLClearColor) {
	p.colors[slot] = &clearColorTarget{viewKey: viewKey, color: color}
}

// ClearDSV coalesces a depth and/or stencil clear into the pending pass.
func (p *PendingClearPass) ClearDSV(viewKey int, depth float64, stencil uint32, clearDepth, clearStencil bool) {
	if p.depthStencil != nil && p.depthStencil.viewKey == viewKey {
		if clearDepth {
			p.depthStencil.depth = depth
			p.depthStencil.clearDepth = true
		}
		if clearStencil {
			p.depthStencil.stencil = stencil
			p.depthStencil.clearStencil = true
		}
		return
	}
	p.depthStencil = &clearDepthStencilTarget{
		viewKey: viewKey, depth: depth, stencil: stencil,
		clearDepth: clearDepth, clearStencil: clearStencil,
	}
}

// IsEmpty reports whether there is nothing pending.
func (p *PendingClearPass) IsEmpty() bool {
	if p.depthStencil != nil {
		return false
	}
	for _, c := range p.colors {
		if c != nil {
			return false
		}
	}
	return true
}

// AbsorbInto overwrites desc's load actions for any attachment slot this
// pending clear pass targets, clearing the corresponding entry from the
// pending pass (it has been absorbed and must not also be emitted as a
// standalone clear-only pass). Slots whose view key doesn't match the
// render pass's bound view are left untouched — only an exact target
// overlap absorbs (spec.md: "whose targets overlap the pending clear
// pass").
func (p *PendingClearPass) AbsorbInto(colorViewKeys [MaxRenderTargets]int, depthStencilViewKey int, setColorClear func(slot int, color objcbridge.MTLClearColor), setDepthClear func(depth float64), setStencilClear func(stencil uint32)) {
	for slot, c := range p.colors {
		if c == nil {
			continue
		}
		if colorViewKeys[slot] != c.viewKey {
			continue
		}
		setColorClear(slot, c.color)
		p.colors[slot] = nil
	}
	if ds := p.depthStencil; ds != nil && ds.viewKey == depthStencilViewKey {
		if ds.clearDepth {
			setDepthClear(ds.depth)
		}
		if ds.clearStencil {
			setStencilClear(ds.stencil)
		}
		p.depthStencil = nil
	}
}

// Take drains and returns whatever remains pending (used to flush the
// pass as a standalone no-op clear-only render pass when nothing else
// ever opened a render pass against these targets).
func (p *PendingClearPass) Take() ([MaxRenderTargets]*clearColorTarget, *clearDepthStencilTarget) {
	colors := p.colors
	ds := p.depthStencil
	p.colors = [MaxRenderTargets]*clearColorTarget{}
	p.depthStencil = nil
	return colors, ds
}

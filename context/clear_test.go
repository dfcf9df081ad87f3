package context

import (
	"testing"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

func TestPendingClearPass_LastWriterWinsOnSameSlot(t *testing.T) {
	var p PendingClearPass
	p.ClearRTV(0, 7, objcbridge.MTLClearColor{Red: 1})
	p.ClearRTV(0, 7, objcbridge.MTLClearColor{Red: 0.5})

	colors, _ := p.Take()
	if colors[0] == nil || colors[0].color.Red != 0.5 {
		t.Fatalf("second ClearRTV on the same slot should win, got %+v", colors[0])
	}
}

func TestPendingClearPass_AbsorbIntoOnlyMatchingViewKey(t *testing.T) {
	var p PendingClearPass
	p.ClearRTV(0, 7, objcbridge.MTLClearColor{Red: 1})

	var absorbedSlot = -1
	var viewKeys [MaxRenderTargets]int
	viewKeys[0] = 9 // does not match the pending clear's view key (7)
	p.AbsorbInto(viewKeys, -1,
		func(slot int, color objcbridge.MTLClearColor) { absorbedSlot = slot },
		func(depth float64) {}, func(stencil uint32) {})
	if absorbedSlot != -1 {
		t.Fatalf("a render pass targeting a different view must not absorb the pending clear")
	}
	if p.IsEmpty() {
		t.Fatalf("the pending clear should still be pending after a non-matching absorb attempt")
	}

	viewKeys[0] = 7
	p.AbsorbInto(viewKeys, -1,
		func(slot int, color objcbridge.MTLClearColor) { absorbedSlot = slot },
		func(depth float64) {}, func(stencil uint32) {})
	if absorbedSlot != 0 {
		t.Fatalf("a render pass targeting the same view should absorb the pending clear, absorbedSlot=%d", absorbedSlot)
	}
	if !p.IsEmpty() {
		t.Fatalf("the pending clear should be drained once absorbed")
	}
}

func TestPendingClearPass_DepthAndStencilIndependentlyCoalesce(t *testing.T) {
	var p PendingClearPass
	p.ClearDSV(3, 1.0, 0, true, false)
	p.ClearDSV(3, 0, 0xFF, false, true)

	_, ds := p.Take()
	if ds == nil || !ds.clearDepth || ds.depth != 1.0 || !ds.clearStencil || ds.stencil != 0xFF {
		t.Fatalf("depth and stencil clears on the same view should both survive coalescing, got %+v", ds)
	}
}

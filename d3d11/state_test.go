// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"testing"

	"github.com/dxmt-go/metallayer/metal"
)

func TestRasterizerStateCullBack(t *testing.T) {
	tests := []struct {
		cull CullMode
		want bool
	}{
		{CullModeNone, false},
		{CullModeFront, false},
		{CullModeBack, true},
	}
	for _, tc := range tests {
		rs := &RasterizerState{desc: RasterizerDesc{Cull: tc.cull}}
		if got := rs.CullBack(); got != tc.want {
			t.Errorf("CullBack() with Cull=%v = %v, want %v", tc.cull, got, tc.want)
		}
	}
}

func TestBlendStateColorAttachmentsIndependentDisabled(t *testing.T) {
	desc := BlendDesc{
		IndependentBlendEnable: false,
		RenderTarget: [8]RenderTargetBlendDesc{
			0: {
				BlendEnable: true,
				SrcBlend:    metal.BlendFactorSourceAlpha,
				DestBlend:   metal.BlendFactorOneMinusSourceAlpha,
			},
			1: {BlendEnable: false},
		},
	}
	bs := &BlendState{desc: desc}
	got := bs.ColorAttachments()
	for i, att := range got {
		if !att.Enabled {
			t.Errorf("attachment %d: Enabled = false, want true (index-0 descriptor applies to all when IndependentBlendEnable is false)", i)
		}
		if att.SourceRGB != metal.BlendFactorSourceAlpha {
			t.Errorf("attachment %d: SourceRGB = %v, want %v", i, att.SourceRGB, metal.BlendFactorSourceAlpha)
		}
	}
}

func TestBlendStateColorAttachmentsIndependentEnabled(t *testing.T) {
	desc := BlendDesc{
		IndependentBlendEnable: true,
		RenderTarget: [8]RenderTargetBlendDesc{
			0: {BlendEnable: true},
			1: {BlendEnable: false},
		},
	}
	bs := &BlendState{desc: desc}
	got := bs.ColorAttachments()
	if !got[0].Enabled {
		t.Errorf("attachment 0: Enabled = false, want true")
	}
	if got[1].Enabled {
		t.Errorf("attachment 1: Enabled = true, want false (independent blend keeps per-target descriptors distinct)")
	}
}

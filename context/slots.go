// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package context implements the D3D11 immediate/deferred context: the
// per-context binding state, the encoder state machine, argument-buffer
// upload (PreDraw/PreDispatch), clear-pass coalescing, copy/update paths,
// and occlusion queries described by original_source/src/d3d11's internal
// context (via spec.md, which distills it).
package context

// Fixed argument-table slot indices shared by every pipeline, mirroring
// the reserved vertex/object buffer table slots original_source's shader
// backend always emits into regardless of how many user-visible vertex
// buffers or constant buffers a given draw actually touches.
const (
	// VertexBufferTableSlot is where the fixed-layout vertex-buffer table
	// ({u64 handle, u32 stride, u32 length}[32]) is bound for an ordinary
	// (non-tessellated) vertex stage.
	VertexBufferTableSlot = 30

	// ObjectBufferTableSlot is the same table slot reused by a
	// tessellated vertex-as-object stage; tessellation geometry pipelines
	// are unsupported (spec.md Open Question), so this constant exists
	// to document the slot collision, not to be upload-reachable yet.
	ObjectBufferTableSlot = 30
)

// Per-class binding-set capacities, matching D3D11_PS_CS_UAV_REGISTER_COUNT
// and friends.
const (
	MaxVertexBufferSlots    = 32
	MaxConstantBufferSlots  = 15
	MaxShaderResourceSlots  = 128
	MaxSamplerSlots         = 16
	MaxUnorderedAccessSlots = 8
	MaxRenderTargets        = 8
)

// OcclusionSampleCount bounds how many visibility-result counters one
// chunk's per-chunk visibility buffer holds; the query offset wraps back to
// the start of the buffer past that count (spec.md §4.6).
const OcclusionSampleCount = 4096

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package context

import (
	"github.com/dxmt-go/metallayer/core"
	"github.com/dxmt-go/metallayer/internal/objcbridge"
	"github.com/dxmt-go/metallayer/metal"
)

// ConstantBufferBinding is one CB slot's bound range (spec.md §4.4: "write
// buffer_gpu_address + (first_constant << 4)").
type ConstantBufferBinding struct {
	Buffer        *core.Buffer
	FirstConstant uint32
	NumConstants  uint32
}

// ShaderResourceBinding is one SRV slot, resolved against either a buffer
// or a texture view (exactly one of the two is non-nil).
type ShaderResourceBinding struct {
	Buffer       *core.Buffer
	Texture      *core.Texture
	ViewKey      int
	FirstElement uint32
	NumElements  uint32
}

// SamplerBinding is one sampler slot.
type SamplerBinding struct {
	State *metal.SamplerState
}

// UnorderedAccessBinding is one UAV slot, with an optional append/consume
// counter sourced from the queue's CounterPool.
type UnorderedAccessBinding struct {
	Buffer       *core.Buffer
	Texture      *core.Texture
	ViewKey      int
	InitialCount uint32
	HasCounter   bool
}

// VertexBufferBinding is one IA vertex-buffer slot.
type VertexBufferBinding struct {
	Buffer *core.Buffer
	Stride uint32
	Offset uint32
}

// StageBindings groups the four binding classes one shader stage (VS, PS,
// CS, ...) carries, matching spec.md §4.2's "Each stage holds a fixed-size
// BindingSet per class (CB, SRV, Sampler, UAV)".
type StageBindings struct {
	ConstantBuffers *core.BindingSet[ConstantBufferBinding]
	Resources       *core.BindingSet[ShaderResourceBinding]
	Samplers        *core.BindingSet[SamplerBinding]
	UAVs            *core.BindingSet[UnorderedAccessBinding]
}

// NewStageBindings allocates a stage's four binding sets at D3D11's fixed
// register-count capacities.
func NewStageBindings() *StageBindings {
	return &StageBindings{
		ConstantBuffers: core.NewBindingSet[ConstantBufferBinding](MaxConstantBufferSlots),
		Resources:       core.NewBindingSet[ShaderResourceBinding](MaxShaderResourceSlots),
		Samplers:        core.NewBindingSet[SamplerBinding](MaxSamplerSlots),
		UAVs:            core.NewBindingSet[UnorderedAccessBinding](MaxUnorderedAccessSlots),
	}
}

// PipelineBindingMask is the per-class slot mask a compiled pipeline
// reflects: exactly which slots it reads (spec.md §4.2: "each pipeline
// reflects exactly which slots it reads").
type PipelineBindingMask struct {
	ConstantBuffers core.BindingSlotMask
	Resources       core.BindingSlotMask
	Samplers        core.BindingSlotMask
	UAVs            core.BindingSlotMask
}

// AnyDirty reports whether any slot the pipeline reads from any of the
// stage's four binding classes is currently dirty.
func (s *StageBindings) AnyDirty(mask PipelineBindingMask) bool {
	return s.ConstantBuffers.AnyDirtyMasked(mask.ConstantBuffers) ||
		s.Resources.AnyDirtyMasked(mask.Resources) ||
		s.Samplers.AnyDirtyMasked(mask.Samplers) ||
		s.UAVs.AnyDirtyMasked(mask.UAVs)
}

// InputAssemblerState holds the IA's vertex-buffer table and index buffer,
// separate from a shader stage's bindings since it's not per-stage.
type InputAssemblerState struct {
	VertexBuffers *core.BindingSet[VertexBufferBinding]
	IndexBuffer   *core.Buffer
	IndexFormat   metal.IndexType
	IndexOffset   uint32
	Topology      metal.PrimitiveType
	VertexSlotMask core.BindingSlotMask // set by the bound InputLayout
}

// NewInputAssemblerState allocates an IA with 32 vertex-buffer slots.
func NewInputAssemblerState() *InputAssemblerState {
	return &InputAssemblerState{VertexBuffers: core.NewBindingSet[VertexBufferBinding](MaxVertexBufferSlots)}
}

// RasterizerState is the small subset of D3D11_RASTERIZER_DESC the
// translation layer threads through to Metal's per-encoder setters
// (everything else folds into the pipeline descriptor instead).
type RasterizerState struct {
	Viewport objcbridge.MTLViewport
	Scissor  objcbridge.MTLScissorRect
	CullBack bool
}

// OutputMergerState holds the bound render targets, depth/stencil view,
// and the depth-stencil compiled state object.
type OutputMergerState struct {
	RenderTargets    [MaxRenderTargets]*core.Texture
	RenderTargetView [MaxRenderTargets]int // view keys into each texture
	NumRenderTargets int
	DepthStencil     *core.Texture
	DepthStencilView int
	DepthStencilState *metal.DepthStencilState
	BlendFactor      [4]float32
	SampleMask       uint32
}

// ComputeStageState is the CS's own binding set plus its UAVs (D3D11 CS
// UAVs share register space with the graphics pipeline's UAVs but are
// tracked independently since compute and render never run the same
// encoder concurrently).
type ComputeStageState struct {
	Bindings *StageBindings
}

func NewComputeStageState() *ComputeStageState {
	return &ComputeStageState{Bindings: NewStageBindings()}
}

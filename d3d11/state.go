// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import "github.com/dxmt-go/metallayer/metal"

// FillMode mirrors D3D11_FILL_MODE.
type FillMode int

const (
	FillModeWireframe FillMode = 2
	FillModeSolid     FillMode = 3
)

// CullMode mirrors D3D11_CULL_MODE.
type CullMode int

const (
	CullModeNone  CullMode = 1
	CullModeFront CullMode = 2
	CullModeBack  CullMode = 3
)

// RasterizerDesc mirrors D3D11_RASTERIZER_DESC.
type RasterizerDesc struct {
	Fill              FillMode
	Cull              CullMode
	FrontCounterClockwise bool
	DepthBias         int32
	SlopeScaledDepthBias float32
	DepthClipEnable   bool
	ScissorEnable     bool
}

// RasterizerState is the ID3D11RasterizerState-equivalent: a compiled,
// immutable snapshot of the subset of D3D11_RASTERIZER_DESC this layer
// applies per draw via the render encoder's fixed-function setters rather
// than through the pipeline descriptor. Only the cull mode is applied
// (RSSetState forwards it as back-face culling on or off); the other
// fields, depth bias included, are not applied.
type RasterizerState struct {
	desc RasterizerDesc
}

// CreateRasterizerState builds a RasterizerState object from a
// descriptor (ID3D11Device::CreateRasterizerState).
func (d *Device) CreateRasterizerState(desc RasterizerDesc) (*RasterizerState, error) {
	return &RasterizerState{desc: desc}, nil
}

// Descriptor returns the state's originating descriptor (GetDesc).
func (r *RasterizerState) Descriptor() RasterizerDesc { return r.desc }

// CullBack reports whether back-face culling applies, the one cull mode
// the context package's RasterizerState forwards to the render encoder.
func (r *RasterizerState) CullBack() bool { return r.desc.Cull == CullModeBack }

// DepthStencilDesc mirrors the scalar subset of D3D11_DEPTH_STENCIL_DESC
// this layer exercises (stencil op state is a Non-goal per SPEC_FULL.md).
type DepthStencilDesc struct {
	DepthEnable    bool
	DepthWriteMask bool
	DepthFunc      metal.CompareFunction
}

// DepthStencilState is the ID3D11DepthStencilState-equivalent, backed
// directly by a compiled MTLDepthStencilState object.
type DepthStencilState struct {
	desc DepthStencilDesc
	raw  *metal.DepthStencilState
}

// CreateDepthStencilState compiles a DepthStencilState
// (ID3D11Device::CreateDepthStencilState).
func (d *Device) CreateDepthStencilState(desc DepthStencilDesc) (*DepthStencilState, error) {
	compareFunc := desc.DepthFunc
	if !desc.DepthEnable {
		compareFunc = metal.CompareFunctionAlways
	}
	raw, err := d.metal.NewDepthStencilState(metal.DepthStencilDescriptor{
		DepthCompareFunc: compareFunc,
		DepthWriteEnabled: desc.DepthEnable && desc.DepthWriteMask,
	})
	if err != nil {
		return nil, errOutOfMemory
	}
	return &DepthStencilState{desc: desc, raw: raw}, nil
}

// Descriptor returns the state's originating descriptor (GetDesc).
func (s *DepthStencilState) Descriptor() DepthStencilDesc { return s.desc }

// Raw exposes the compiled MTLDepthStencilState for the context
// package's OutputMergerState.
func (s *DepthStencilState) Raw() *metal.DepthStencilState { return s.raw }

// SamplerDesc mirrors the scalar subset of D3D11_SAMPLER_DESC this layer
// exercises.
type SamplerDesc struct {
	Filter       metal.SamplerMinMagFilter
	AddressU     metal.SamplerAddressMode
	AddressV     metal.SamplerAddressMode
	AddressW     metal.SamplerAddressMode
	MaxAnisotropy uint64
	ComparisonFunc metal.CompareFunction
	MaxLOD       float32
}

// SamplerState is the ID3D11SamplerState-equivalent.
type SamplerState struct {
	desc SamplerDesc
	raw  *metal.SamplerState
}

// CreateSamplerState compiles a SamplerState
// (ID3D11Device::CreateSamplerState).
func (d *Device) CreateSamplerState(desc SamplerDesc) (*SamplerState, error) {
	raw, err := d.metal.NewSamplerState(metal.SamplerDescriptor{
		MinFilter:     desc.Filter,
		MagFilter:     desc.Filter,
		MipFilter:     desc.Filter,
		AddressU:      desc.AddressU,
		AddressV:      desc.AddressV,
		AddressW:      desc.AddressW,
		MaxAnisotropy: desc.MaxAnisotropy,
		CompareFunc:   desc.ComparisonFunc,
		MaxLOD:        desc.MaxLOD,
	})
	if err != nil {
		return nil, errOutOfMemory
	}
	return &SamplerState{desc: desc, raw: raw}, nil
}

// Descriptor returns the state's originating descriptor (GetDesc).
func (s *SamplerState) Descriptor() SamplerDesc { return s.desc }

// Raw exposes the compiled MTLSamplerState for binding slot setup.
func (s *SamplerState) Raw() *metal.SamplerState { return s.raw }

// RenderTargetBlendDesc mirrors one D3D11_RENDER_TARGET_BLEND_DESC entry.
type RenderTargetBlendDesc struct {
	BlendEnable    bool
	SrcBlend       metal.BlendFactor
	DestBlend      metal.BlendFactor
	BlendOp        metal.BlendOperation
	SrcBlendAlpha  metal.BlendFactor
	DestBlendAlpha metal.BlendFactor
	BlendOpAlpha   metal.BlendOperation
	RenderTargetWriteMask metal.ColorWriteMask
}

// BlendDesc mirrors D3D11_BLEND_DESC: per-render-target blend state plus
// the independent-blend-enable flag (index 0 applies to every target
// when false, per D3D11 semantics).
type BlendDesc struct {
	IndependentBlendEnable bool
	RenderTarget           [8]RenderTargetBlendDesc
}

// BlendState is the ID3D11BlendState-equivalent; ColorAttachments converts
// it into metal.RenderPipelineDescriptor.ColorBlends entries. No
// DeviceContext method binds a BlendState, so it does not reach any
// compiled pipeline.
type BlendState struct {
	desc BlendDesc
}

// CreateBlendState builds a BlendState (ID3D11Device::CreateBlendState).
func (d *Device) CreateBlendState(desc BlendDesc) (*BlendState, error) {
	return &BlendState{desc: desc}, nil
}

// Descriptor returns the state's originating descriptor (GetDesc).
func (b *BlendState) Descriptor() BlendDesc { return b.desc }

// ColorAttachments converts the D3D11 per-target blend descriptors into
// the metal.AttachmentBlendDescriptor array a RenderPipelineDescriptor
// needs.
func (b *BlendState) ColorAttachments() [8]metal.AttachmentBlendDescriptor {
	var out [8]metal.AttachmentBlendDescriptor
	for i := range out {
		rt := b.desc.RenderTarget[0]
		if b.desc.IndependentBlendEnable {
			rt = b.desc.RenderTarget[i]
		}
		out[i] = metal.AttachmentBlendDescriptor{
			Enabled:          rt.BlendEnable,
			SourceRGB:        rt.SrcBlend,
			DestinationRGB:   rt.DestBlend,
			OperationRGB:     rt.BlendOp,
			SourceAlpha:      rt.SrcBlendAlpha,
			DestinationAlpha: rt.DestBlendAlpha,
			OperationAlpha:   rt.BlendOpAlpha,
			WriteMask:        rt.RenderTargetWriteMask,
		}
	}
	return out
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

// SamplerAddressMode mirrors MTLSamplerAddressMode.
type SamplerAddressMode objcbridge.NSUInteger

const (
	SamplerAddressModeClampToEdge  SamplerAddressMode = 0
	SamplerAddressModeRepeat      SamplerAddressMode = 2
	SamplerAddressModeMirrorRepeat SamplerAddressMode = 3
	SamplerAddressModeClampToBorder SamplerAddressMode = 5
)

// SamplerMinMagFilter mirrors MTLSamplerMinMagFilter.
type SamplerMinMagFilter objcbridge.NSUInteger

const (
	SamplerFilterNearest SamplerMinMagFilter = 0
	SamplerFilterLinear  SamplerMinMagFilter = 1
)

// CompareFunction mirrors MTLCompareFunction, shared by sampler and
// depth-stencil descriptors.
type CompareFunction objcbridge.NSUInteger

const (
	CompareFunctionNever        CompareFunction = 0
	CompareFunctionLess         CompareFunction = 1
	CompareFunctionEqual        CompareFunction = 2
	CompareFunctionLessEqual    CompareFunction = 3
	CompareFunctionGreater      CompareFunction = 4
	CompareFunctionNotEqual     CompareFunction = 5
	CompareFunctionGreaterEqual CompareFunction = 6
	CompareFunctionAlways       CompareFunction = 7
)

// SamplerDescriptor mirrors the MTLSamplerDescriptor fields the
// translation layer's SamplerState pipeline state needs.
type SamplerDescriptor struct {
	MinFilter    SamplerMinMagFilter
	MagFilter    SamplerMinMagFilter
	MipFilter    SamplerMinMagFilter
	AddressU     SamplerAddressMode
	AddressV     SamplerAddressMode
	AddressW     SamplerAddressMode
	MaxAnisotropy uint64
	CompareFunc  CompareFunction
	MaxLOD       float32
}

// SamplerState wraps id<MTLSamplerState>.
type SamplerState struct{ raw id }

func (s *SamplerState) Raw() id { return s.raw }

// GPUResourceID returns the sampler's MTLResourceID for embedding into an
// argument-table entry, mirroring Texture.GPUResourceID.
func (s *SamplerState) GPUResourceID() uint64 { return sendUint(s.raw, objcbridge.Sel("gpuResourceID")) }

// NewSamplerState compiles a sampler state object.
func (d *Device) NewSamplerState(desc SamplerDescriptor) (*SamplerState, error) {
	cls := objcbridge.GetClass("MTLSamplerDescriptor")
	raw := send(id(cls), objcbridge.Sel("new"))
	if raw == 0 {
		return nil, fmt.Errorf("metal: failed to allocate MTLSamplerDescriptor")
	}
	defer objcbridge.Release(raw)

	sendVoid(raw, objcbridge.Sel("setMinFilter:"), uintptr(desc.MinFilter))
	sendVoid(raw, objcbridge.Sel("setMagFilter:"), uintptr(desc.MagFilter))
	sendVoid(raw, objcbridge.Sel("setMipFilter:"), uintptr(desc.MipFilter))
	sendVoid(raw, objcbridge.Sel("setSAddressMode:"), uintptr(desc.AddressU))
	sendVoid(raw, objcbridge.Sel("setTAddressMode:"), uintptr(desc.AddressV))
	sendVoid(raw, objcbridge.Sel("setRAddressMode:"), uintptr(desc.AddressW))
	if desc.MaxAnisotropy > 1 {
		sendVoid(raw, objcbridge.Sel("setMaxAnisotropy:"), uintptr(desc.MaxAnisotropy))
	}
	sendVoid(raw, objcbridge.Sel("setCompareFunction:"), uintptr(desc.CompareFunc))

	obj := objcbridge.SendArgs(d.raw, objcbridge.Sel("newSamplerStateWithDescriptor:"), objcbridge.Ptr(uintptr(raw)))
	if obj == 0 {
		return nil, fmt.Errorf("metal: newSamplerStateWithDescriptor: failed")
	}
	return &SamplerState{raw: obj}, nil
}

// DepthStencilDescriptor mirrors MTLDepthStencilDescriptor's scalar fields;
// front/back stencil op state is out of scope for now (spec.md doesn't
// exercise stencil ops beyond pass-through compare).
type DepthStencilDescriptor struct {
	DepthCompareFunc CompareFunction
	DepthWriteEnabled bool
}

// DepthStencilState wraps id<MTLDepthStencilState>.
type DepthStencilState struct{ raw id }

func (d *DepthStencilState) Raw() id { return d.raw }

func (dev *Device) NewDepthStencilState(desc DepthStencilDescriptor) (*DepthStencilState, error) {
	cls := objcbridge.GetClass("MTLDepthStencilDescriptor")
	raw := send(id(cls), objcbridge.Sel("new"))
	if raw == 0 {
		return nil, fmt.Errorf("metal: failed to allocate MTLDepthStencilDescriptor")
	}
	defer objcbridge.Release(raw)

	sendVoid(raw, objcbridge.Sel("setDepthCompareFunction:"), uintptr(desc.DepthCompareFunc))
	objcbridge.SendVoidArgs(raw, objcbridge.Sel("setDepthWriteEnabled:"), objcbridge.BoolArg(desc.DepthWriteEnabled))

	obj := objcbridge.SendArgs(dev.raw, objcbridge.Sel("newDepthStencilStateWithDescriptor:"), objcbridge.Ptr(uintptr(raw)))
	if obj == 0 {
		return nil, fmt.Errorf("metal: newDepthStencilStateWithDescriptor: failed")
	}
	return &DepthStencilState{raw: obj}, nil
}

func (e *RenderEncoder) SetDepthStencilState(s *DepthStencilState) {
	sendVoid(e.raw, objcbridge.Sel("setDepthStencilState:"), uintptr(s.raw))
}

func (e *RenderEncoder) SetVertexSamplerState(s *SamplerState, index int) {
	sendVoid(e.raw, objcbridge.Sel("setVertexSamplerState:atIndex:"), uintptr(s.raw), uintptr(index))
}

func (e *RenderEncoder) SetFragmentSamplerState(s *SamplerState, index int) {
	sendVoid(e.raw, objcbridge.Sel("setFragmentSamplerState:atIndex:"), uintptr(s.raw), uintptr(index))
}

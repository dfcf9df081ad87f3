// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"fmt"

	"github.com/dxmt-go/metallayer/core"
)

// bufferResource is satisfied by Buffer; views over buffers (SRV/UAV of
// raw, structured, or typed buffers) only need the logical core.Buffer.
type bufferResource interface {
	Core() *core.Buffer
}

// textureViewResource is satisfied by Texture1D/2D/3D.
type textureViewResource interface {
	Core() *core.Texture
}

// ShaderResourceView is the ID3D11ShaderResourceView-equivalent: a
// content-addressed ViewKey plus a reference back to the resource it was
// created against, matching spec.md §3's "two CreateView calls with an
// identical descriptor return the same key" invariant.
type ShaderResourceView struct {
	bufferRes  *core.Buffer
	textureRes *core.Texture
	key        core.ViewKey
}

// UnorderedAccessView is the ID3D11UnorderedAccessView-equivalent.
type UnorderedAccessView struct {
	bufferRes  *core.Buffer
	textureRes *core.Texture
	key        core.ViewKey
}

// RenderTargetView is the ID3D11RenderTargetView-equivalent; always
// texture-backed.
type RenderTargetView struct {
	textureRes *core.Texture
	key        core.ViewKey
}

// DepthStencilView is the ID3D11DepthStencilView-equivalent; always
// texture-backed.
type DepthStencilView struct {
	textureRes *core.Texture
	key        core.ViewKey
}

// CreateShaderResourceViewBuffer creates an SRV over a raw/structured/
// typed buffer range.
func (d *Device) CreateShaderResourceViewBuffer(res bufferResource, desc core.BufferViewDescriptor) (*ShaderResourceView, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	key := res.Core().CreateView(desc)
	return &ShaderResourceView{bufferRes: res.Core(), key: key}, nil
}

// CreateShaderResourceViewTexture creates an SRV over a texture
// mip/array subrange, optionally reformatted.
func (d *Device) CreateShaderResourceViewTexture(res textureViewResource, desc core.TextureViewDescriptor) (*ShaderResourceView, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	key := res.Core().CreateView(desc)
	return &ShaderResourceView{textureRes: res.Core(), key: key}, nil
}

// CreateUnorderedAccessViewBuffer creates a UAV over a buffer range.
func (d *Device) CreateUnorderedAccessViewBuffer(res bufferResource, desc core.BufferViewDescriptor) (*UnorderedAccessView, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	key := res.Core().CreateView(desc)
	return &UnorderedAccessView{bufferRes: res.Core(), key: key}, nil
}

// CreateUnorderedAccessViewTexture creates a UAV over a texture
// mip/array subrange.
func (d *Device) CreateUnorderedAccessViewTexture(res textureViewResource, desc core.TextureViewDescriptor) (*UnorderedAccessView, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	key := res.Core().CreateView(desc)
	return &UnorderedAccessView{textureRes: res.Core(), key: key}, nil
}

// CreateRenderTargetView creates an RTV over a texture mip/array
// subrange.
func (d *Device) CreateRenderTargetView(res textureViewResource, desc core.TextureViewDescriptor) (*RenderTargetView, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	if desc.MipLevelCount != 1 {
		return nil, fmt.Errorf("d3d11: a render target view binds exactly one mip level: %w", errInvalidArgument)
	}
	key := res.Core().CreateView(desc)
	return &RenderTargetView{textureRes: res.Core(), key: key}, nil
}

// CreateDepthStencilView creates a DSV over a texture mip/array
// subrange.
func (d *Device) CreateDepthStencilView(res textureViewResource, desc core.TextureViewDescriptor) (*DepthStencilView, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	if desc.MipLevelCount != 1 {
		return nil, fmt.Errorf("d3d11: a depth stencil view binds exactly one mip level: %w", errInvalidArgument)
	}
	key := res.Core().CreateView(desc)
	return &DepthStencilView{textureRes: res.Core(), key: key}, nil
}

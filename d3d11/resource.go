// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"github.com/dxmt-go/metallayer/core"
	"github.com/dxmt-go/metallayer/metal"
)

// Buffer is the ID3D11Buffer-equivalent: a logical core.Buffer plus the
// usage/bind/CPU-access bookkeeping D3D11 callers expect to read back via
// GetDesc.
type Buffer struct {
	core   *core.Buffer
	usage  Usage
	bind   BindFlag
	access CPUAccessFlag
	length uint64
}

// Core exposes the underlying logical buffer for context/view plumbing.
func (b *Buffer) Core() *core.Buffer { return b.core }

// ByteWidth mirrors D3D11_BUFFER_DESC.ByteWidth.
func (b *Buffer) ByteWidth() uint64 { return b.length }

// Usage mirrors D3D11_BUFFER_DESC.Usage.
func (b *Buffer) Usage() Usage { return b.usage }

// BindFlags mirrors D3D11_BUFFER_DESC.BindFlags.
func (b *Buffer) BindFlags() BindFlag { return b.bind }

// CPUAccessFlags mirrors D3D11_BUFFER_DESC.CPUAccessFlags.
func (b *Buffer) CPUAccessFlags() CPUAccessFlag { return b.access }

// Texture1D is the ID3D11Texture1D-equivalent.
type Texture1D struct {
	core   *core.Texture
	usage  Usage
	bind   BindFlag
	access CPUAccessFlag
	desc   metal.TextureDescriptor
}

// Texture2D is the ID3D11Texture2D-equivalent. Device.CreateTexture2D
// populates this struct's literal directly.
type Texture2D struct {
	core   *core.Texture
	usage  Usage
	bind   BindFlag
	access CPUAccessFlag
	desc   metal.TextureDescriptor
}

// Texture3D is the ID3D11Texture3D-equivalent.
type Texture3D struct {
	core   *core.Texture
	usage  Usage
	bind   BindFlag
	access CPUAccessFlag
	desc   metal.TextureDescriptor
}

func (t *Texture1D) Core() *core.Texture                { return t.core }
func (t *Texture1D) Usage() Usage                        { return t.usage }
func (t *Texture1D) BindFlags() BindFlag                 { return t.bind }
func (t *Texture1D) CPUAccessFlags() CPUAccessFlag       { return t.access }
func (t *Texture1D) Descriptor() metal.TextureDescriptor { return t.desc }

func (t *Texture2D) Core() *core.Texture                { return t.core }
func (t *Texture2D) Usage() Usage                        { return t.usage }
func (t *Texture2D) BindFlags() BindFlag                 { return t.bind }
func (t *Texture2D) CPUAccessFlags() CPUAccessFlag       { return t.access }
func (t *Texture2D) Descriptor() metal.TextureDescriptor { return t.desc }

func (t *Texture3D) Core() *core.Texture                { return t.core }
func (t *Texture3D) Usage() Usage                        { return t.usage }
func (t *Texture3D) BindFlags() BindFlag                 { return t.bind }
func (t *Texture3D) CPUAccessFlags() CPUAccessFlag       { return t.access }
func (t *Texture3D) Descriptor() metal.TextureDescriptor { return t.desc }

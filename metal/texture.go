// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

// TextureDescriptor mirrors the subset of MTLTextureDescriptor fields the
// translation layer needs to populate from a D3D11 resource descriptor.
type TextureDescriptor struct {
	Type          TextureType
	PixelFormat   PixelFormat
	Width         uint64
	Height        uint64
	Depth         uint64
	ArrayLength   uint64
	MipLevelCount uint64
	SampleCount   uint64
	Usage         TextureUsage
	StorageMode   StorageMode
	Label         string
}

// Texture wraps id<MTLTexture>.
type Texture struct {
	raw    id
	desc   TextureDescriptor
	owned  bool // false for textures backed by another texture's storage
}

// NewTexture allocates an MTLTexture from a descriptor.
func (d *Device) NewTexture(desc TextureDescriptor) (*Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("metal: texture dimensions must be > 0")
	}

	pool := objcbridge.NewAutoreleasePool()
	defer pool.Drain()

	cls := objcbridge.GetClass("MTLTextureDescriptor")
	td := send(id(cls), objcbridge.Sel("new"))
	if td == 0 {
		return nil, fmt.Errorf("metal: failed to allocate MTLTextureDescriptor")
	}
	defer objcbridge.Release(td)

	sendVoid(td, objcbridge.Sel("setTextureType:"), uintptr(desc.Type))
	sendVoid(td, objcbridge.Sel("setPixelFormat:"), uintptr(desc.PixelFormat))
	sendVoid(td, objcbridge.Sel("setWidth:"), uintptr(desc.Width))
	sendVoid(td, objcbridge.Sel("setHeight:"), uintptr(desc.Height))

	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}
	sendVoid(td, objcbridge.Sel("setDepth:"), uintptr(depth))

	arrayLength := desc.ArrayLength
	if arrayLength == 0 {
		arrayLength = 1
	}
	sendVoid(td, objcbridge.Sel("setArrayLength:"), uintptr(arrayLength))

	mips := desc.MipLevelCount
	if mips == 0 {
		mips = 1
	}
	sendVoid(td, objcbridge.Sel("setMipmapLevelCount:"), uintptr(mips))

	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	sendVoid(td, objcbridge.Sel("setSampleCount:"), uintptr(samples))

	sendVoid(td, objcbridge.Sel("setUsage:"), uintptr(desc.Usage))
	sendVoid(td, objcbridge.Sel("setStorageMode:"), uintptr(desc.StorageMode))

	raw := send(d.raw, objcbridge.Sel("newTextureWithDescriptor:"), uintptr(td))
	if raw == 0 {
		return nil, fmt.Errorf("metal: newTextureWithDescriptor: failed")
	}
	if desc.Label != "" {
		setLabel(raw, desc.Label)
	}

	return &Texture{raw: raw, desc: desc, owned: true}, nil
}

// Raw exposes id<MTLTexture>.
func (t *Texture) Raw() id { return t.raw }

// GPUResourceID returns the texture's MTLResourceID, the opaque handle an
// argument-buffer entry embeds so a shader can index into it without a
// bound-slot declaration (spec.md §4.4's SRV/UAV argument-table entries).
func (t *Texture) GPUResourceID() uint64 { return sendUint(t.raw, objcbridge.Sel("gpuResourceID")) }

// Descriptor returns the descriptor the texture was created with.
func (t *Texture) Descriptor() TextureDescriptor { return t.desc }

// NewTextureView creates a reinterpreted view of this texture in a
// different pixel format — the mechanism backing dxmt's TextureView /
// BufferView-as-texture caches.
func (t *Texture) NewTextureView(format PixelFormat) (*Texture, error) {
	raw := send(t.raw, objcbridge.Sel("newTextureViewWithPixelFormat:"), uintptr(format))
	if raw == 0 {
		return nil, fmt.Errorf("metal: newTextureViewWithPixelFormat: failed")
	}
	viewDesc := t.desc
	viewDesc.PixelFormat = format
	return &Texture{raw: raw, desc: viewDesc, owned: false}, nil
}

// NewTextureViewRanged creates a reinterpreted view over a mip/slice
// subrange of this texture (newTextureViewWithPixelFormat:textureType:
// levels:slices:), the selector a D3D11 SRV/RTV/DSV/UAV targeting
// anything narrower than the whole resource needs.
func (t *Texture) NewTextureViewRanged(format PixelFormat, textureType TextureType, baseMipLevel, mipLevelCount, baseArrayLayer, arrayLayerCount uint64) (*Texture, error) {
	levels := objcbridge.NSRange{Location: objcbridge.NSUInteger(baseMipLevel), Length: objcbridge.NSUInteger(mipLevelCount)}
	slices := objcbridge.NSRange{Location: objcbridge.NSUInteger(baseArrayLayer), Length: objcbridge.NSUInteger(arrayLayerCount)}
	raw := objcbridge.SendArgs(t.raw, objcbridge.Sel("newTextureViewWithPixelFormat:textureType:levels:slices:"),
		objcbridge.Ptr(uintptr(format)),
		objcbridge.Ptr(uintptr(textureType)),
		objcbridge.Struct(levels, objcbridge.RangeType),
		objcbridge.Struct(slices, objcbridge.RangeType),
	)
	if raw == 0 {
		return nil, fmt.Errorf("metal: newTextureViewWithPixelFormat:textureType:levels:slices:: failed")
	}
	viewDesc := t.desc
	viewDesc.PixelFormat = format
	viewDesc.MipLevelCount = mipLevelCount
	viewDesc.ArrayLength = arrayLayerCount
	return &Texture{raw: raw, desc: viewDesc, owned: false}, nil
}

// Release releases the underlying MTLTexture (a no-op for non-owning views
// sharing another texture's storage is still correct: Metal ARC handles
// the refcount on the view object itself, which this owns).
func (t *Texture) Release() {
	if t.raw != 0 {
		objcbridge.Release(t.raw)
		t.raw = 0
	}
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import "github.com/dxmt-go/metallayer/internal/objcbridge"

// ColorAttachment mirrors one slot of MTLRenderPassColorAttachmentDescriptor.
type ColorAttachment struct {
	Texture     *Texture
	Resolve     *Texture
	Level       uint64
	Slice       uint64
	LoadAction  LoadAction
	StoreAction StoreAction
	ClearColor  objcbridge.MTLClearColor
}

// DepthStencilAttachment mirrors the merged depth+stencil descriptor slots.
type DepthStencilAttachment struct {
	Texture          *Texture
	DepthLoadAction  LoadAction
	DepthStoreAction StoreAction
	ClearDepth       float64
	StencilLoad      LoadAction
	StencilStore     StoreAction
	ClearStencil     uint32
}

// RenderPassDescriptor is a Go-side mirror of MTLRenderPassDescriptor,
// built up by context.Context before a render encoder is requested.
type RenderPassDescriptor struct {
	Colors       [8]*ColorAttachment
	DepthStencil *DepthStencilAttachment
	VisibilityResultBuffer *Buffer
}

// BuildRenderPassDescriptor populates an id<MTLRenderPassDescriptor>
// obtained from the autoreleased +renderPassDescriptor constructor. The
// returned object is not retained for the caller, so the caller does not
// release it (Metal retains what it needs when the encoder is created).
func (d *Device) BuildRenderPassDescriptor(desc *RenderPassDescriptor) id {
	cls := objcbridge.GetClass("MTLRenderPassDescriptor")
	raw := send(id(cls), objcbridge.Sel("renderPassDescriptor"))
	if raw == 0 {
		return 0
	}

	colorAttachments := send(raw, objcbridge.Sel("colorAttachments"))
	for i, c := range desc.Colors {
		if c == nil {
			continue
		}
		slot := objcbridge.SendArgs(colorAttachments, objcbridge.Sel("objectAtIndexedSubscript:"), objcbridge.Ptr(uintptr(i)))
		if c.Texture != nil {
			sendVoid(slot, objcbridge.Sel("setTexture:"), uintptr(c.Texture.raw))
		}
		if c.Resolve != nil {
			sendVoid(slot, objcbridge.Sel("setResolveTexture:"), uintptr(c.Resolve.raw))
		}
		sendVoid(slot, objcbridge.Sel("setLevel:"), uintptr(c.Level))
		sendVoid(slot, objcbridge.Sel("setSlice:"), uintptr(c.Slice))
		sendVoid(slot, objcbridge.Sel("setLoadAction:"), uintptr(c.LoadAction))
		sendVoid(slot, objcbridge.Sel("setStoreAction:"), uintptr(c.StoreAction))
		objcbridge.SendVoidArgs(slot, objcbridge.Sel("setClearColor:"), objcbridge.Struct(c.ClearColor, objcbridge.ClearColorType))
	}

	if ds := desc.DepthStencil; ds != nil && ds.Texture != nil {
		depthSlot := send(raw, objcbridge.Sel("depthAttachment"))
		sendVoid(depthSlot, objcbridge.Sel("setTexture:"), uintptr(ds.Texture.raw))
		sendVoid(depthSlot, objcbridge.Sel("setLoadAction:"), uintptr(ds.DepthLoadAction))
		sendVoid(depthSlot, objcbridge.Sel("setStoreAction:"), uintptr(ds.DepthStoreAction))

		stencilSlot := send(raw, objcbridge.Sel("stencilAttachment"))
		sendVoid(stencilSlot, objcbridge.Sel("setTexture:"), uintptr(ds.Texture.raw))
		sendVoid(stencilSlot, objcbridge.Sel("setLoadAction:"), uintptr(ds.StencilLoad))
		sendVoid(stencilSlot, objcbridge.Sel("setStoreAction:"), uintptr(ds.StencilStore))
	}

	if desc.VisibilityResultBuffer != nil {
		sendVoid(raw, objcbridge.Sel("setVisibilityResultBuffer:"), uintptr(desc.VisibilityResultBuffer.raw))
	}

	return raw
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/dxmt-go/metallayer/context"
	"github.com/dxmt-go/metallayer/core"
	"github.com/dxmt-go/metallayer/internal/objcbridge"
	"github.com/dxmt-go/metallayer/metal"
)

// DeviceContext is the ID3D11DeviceContext-equivalent. It owns one
// context.Context (the recording/encoder-state-machine engine) and adds
// the D3D11 surface: resource binding setters, Draw/Dispatch, Map/Unmap,
// and the copy/update family, translating D3D11 argument shapes into the
// context package's calls.
type DeviceContext struct {
	device *Device
	inner  *context.Context

	pendingVS   *VertexShader
	pendingPS   *PixelShader
	renderMask  context.PipelineBindingMask
	computeMask context.PipelineBindingMask
	lastBindErr error
}

func newDeviceContext(d *Device) *DeviceContext {
	return &DeviceContext{
		device: d,
		inner:  context.NewContext(d.metal, d.queue, d.pipelines),
	}
}

// VSSetConstantBuffers mirrors ID3D11DeviceContext::VSSetConstantBuffers.
func (c *DeviceContext) VSSetConstantBuffers(startSlot int, buffers []*Buffer, firstConstants, numConstants []uint32) {
	bindConstantBuffers(c.inner.VS, startSlot, buffers, firstConstants, numConstants)
}

// PSSetConstantBuffers mirrors ID3D11DeviceContext::PSSetConstantBuffers.
func (c *DeviceContext) PSSetConstantBuffers(startSlot int, buffers []*Buffer, firstConstants, numConstants []uint32) {
	bindConstantBuffers(c.inner.PS, startSlot, buffers, firstConstants, numConstants)
}

// CSSetConstantBuffers mirrors ID3D11DeviceContext::CSSetConstantBuffers.
func (c *DeviceContext) CSSetConstantBuffers(startSlot int, buffers []*Buffer, firstConstants, numConstants []uint32) {
	bindConstantBuffers(c.inner.CS.Bindings, startSlot, buffers, firstConstants, numConstants)
}

func bindConstantBuffers(stage *context.StageBindings, startSlot int, buffers []*Buffer, firstConstants, numConstants []uint32) {
	for i, b := range buffers {
		var binding context.ConstantBufferBinding
		if b != nil {
			binding.Buffer = b.core
			if i < len(firstConstants) {
				binding.FirstConstant = firstConstants[i]
			}
			if i < len(numConstants) {
				binding.NumConstants = numConstants[i]
			}
		}
		stage.ConstantBuffers.Bind(startSlot+i, binding)
	}
}

// VSSetShaderResources mirrors ID3D11DeviceContext::VSSetShaderResources.
func (c *DeviceContext) VSSetShaderResources(startSlot int, views []*ShaderResourceView) {
	bindShaderResources(c.inner.VS, startSlot, views)
}

// PSSetShaderResources mirrors ID3D11DeviceContext::PSSetShaderResources.
func (c *DeviceContext) PSSetShaderResources(startSlot int, views []*ShaderResourceView) {
	bindShaderResources(c.inner.PS, startSlot, views)
}

// CSSetShaderResources mirrors ID3D11DeviceContext::CSSetShaderResources.
func (c *DeviceContext) CSSetShaderResources(startSlot int, views []*ShaderResourceView) {
	bindShaderResources(c.inner.CS.Bindings, startSlot, views)
}

func bindShaderResources(stage *context.StageBindings, startSlot int, views []*ShaderResourceView) {
	for i, v := range views {
		var binding context.ShaderResourceBinding
		if v != nil {
			binding.Buffer = v.bufferRes
			binding.Texture = v.textureRes
			binding.ViewKey = int(v.key)
		}
		stage.Resources.Bind(startSlot+i, binding)
	}
}

// CSSetUnorderedAccessViews mirrors
// ID3D11DeviceContext::CSSetUnorderedAccessViews.
func (c *DeviceContext) CSSetUnorderedAccessViews(startSlot int, views []*UnorderedAccessView, initialCounts []uint32) {
	for i, v := range views {
		var binding context.UnorderedAccessBinding
		if v != nil {
			binding.Buffer = v.bufferRes
			binding.Texture = v.textureRes
			binding.ViewKey = int(v.key)
			if i < len(initialCounts) && initialCounts[i] != 0xFFFFFFFF {
				binding.InitialCount = initialCounts[i]
				binding.HasCounter = true
			}
		}
		c.inner.CS.Bindings.UAVs.Bind(startSlot+i, binding)
	}
}

// VSSetSamplers mirrors ID3D11DeviceContext::VSSetSamplers.
func (c *DeviceContext) VSSetSamplers(startSlot int, samplers []*SamplerState) {
	bindSamplers(c.inner.VS, startSlot, samplers)
}

// PSSetSamplers mirrors ID3D11DeviceContext::PSSetSamplers.
func (c *DeviceContext) PSSetSamplers(startSlot int, samplers []*SamplerState) {
	bindSamplers(c.inner.PS, startSlot, samplers)
}

func bindSamplers(stage *context.StageBindings, startSlot int, samplers []*SamplerState) {
	for i, s := range samplers {
		var binding context.SamplerBinding
		if s != nil {
			binding.State = s.raw
		}
		stage.Samplers.Bind(startSlot+i, binding)
	}
}

// IASetVertexBuffers mirrors ID3D11DeviceContext::IASetVertexBuffers.
func (c *DeviceContext) IASetVertexBuffers(startSlot int, buffers []*Buffer, strides, offsets []uint32) {
	for i, b := range buffers {
		var binding context.VertexBufferBinding
		if b != nil {
			binding.Buffer = b.core
			binding.Stride = strides[i]
			binding.Offset = offsets[i]
		}
		c.inner.IA.VertexBuffers.Bind(startSlot+i, binding)
	}
}

// IASetIndexBuffer mirrors ID3D11DeviceContext::IASetIndexBuffer.
func (c *DeviceContext) IASetIndexBuffer(b *Buffer, format metal.IndexType, offset uint32) {
	if b != nil {
		c.inner.IA.IndexBuffer = b.core
	} else {
		c.inner.IA.IndexBuffer = nil
	}
	c.inner.IA.IndexFormat = format
	c.inner.IA.IndexOffset = offset
}

// IASetPrimitiveTopology mirrors
// ID3D11DeviceContext::IASetPrimitiveTopology.
func (c *DeviceContext) IASetPrimitiveTopology(topology metal.PrimitiveType) {
	c.inner.IA.Topology = topology
}

// OMSetRenderTargets mirrors ID3D11DeviceContext::OMSetRenderTargets.
// Changing the bound targets always starts a fresh Metal render pass
// against them: a render encoder's attachments are fixed for its whole
// lifetime, so there is no way to reuse whatever encoder was already open
// (spec.md §4.3).
func (c *DeviceContext) OMSetRenderTargets(rtvs []*RenderTargetView, dsv *DepthStencilView) {
	om := c.inner.OM
	om.NumRenderTargets = len(rtvs)
	for i := 0; i < context.MaxRenderTargets; i++ {
		if i < len(rtvs) && rtvs[i] != nil {
			om.RenderTargets[i] = rtvs[i].textureRes
			om.RenderTargetView[i] = int(rtvs[i].key)
		} else {
			om.RenderTargets[i] = nil
			om.RenderTargetView[i] = 0
		}
	}
	if dsv != nil {
		om.DepthStencil = dsv.textureRes
		om.DepthStencilView = int(dsv.key)
	} else {
		om.DepthStencil = nil
	}
	if om.NumRenderTargets == 0 && om.DepthStencil == nil {
		return
	}
	if err := c.openRenderPass(); err != nil {
		c.lastBindErr = err
	}
}

// resolveRenderTargets resolves the bound RTV/DSV core.Texture views into
// concrete Metal textures for OpenRenderPass, using the same nil-guard
// convention Map/Unmap already use for Buffer.Current (the Snatchable's
// internal mutex, not the guard value, is what actually protects a
// concurrent rename — see core.SnatchGuard).
func (c *DeviceContext) resolveRenderTargets() (colors [context.MaxRenderTargets]*metal.Texture, colorViewKeys [context.MaxRenderTargets]int, depthStencil *metal.Texture, depthStencilViewKey int) {
	om := c.inner.OM
	for i := 0; i < context.MaxRenderTargets; i++ {
		tex := om.RenderTargets[i]
		if tex == nil {
			continue
		}
		colorViewKeys[i] = om.RenderTargetView[i]
		if view, ok := tex.View(nil, core.ViewKey(om.RenderTargetView[i])); ok {
			colors[i] = view.Raw
		}
	}
	depthStencilViewKey = om.DepthStencilView
	if om.DepthStencil != nil {
		if view, ok := om.DepthStencil.View(nil, core.ViewKey(om.DepthStencilView)); ok {
			depthStencil = view.Raw
		}
	}
	return
}

// openRenderPass resolves the currently bound OM targets and opens a
// Metal render pass against them.
func (c *DeviceContext) openRenderPass() error {
	colors, colorViewKeys, depthStencil, depthStencilViewKey := c.resolveRenderTargets()
	if err := c.inner.OpenRenderPass(colors, colorViewKeys, depthStencil, depthStencilViewKey); err != nil {
		return fmt.Errorf("d3d11: opening render pass: %w", err)
	}
	return nil
}

// OMSetDepthStencilState mirrors
// ID3D11DeviceContext::OMSetDepthStencilState.
func (c *DeviceContext) OMSetDepthStencilState(s *DepthStencilState) {
	if s != nil {
		c.inner.OM.DepthStencilState = s.raw
	} else {
		c.inner.OM.DepthStencilState = nil
	}
}

// RSSetState mirrors ID3D11DeviceContext::RSSetState.
func (c *DeviceContext) RSSetState(s *RasterizerState) {
	if s != nil {
		c.inner.RS.CullBack = s.CullBack()
	}
}

// RSSetViewport mirrors ID3D11DeviceContext::RSSetViewports for the
// single-viewport case (multi-viewport / MRT-indexed viewports are a
// SPEC_FULL.md Non-goal).
func (c *DeviceContext) RSSetViewport(v objcbridge.MTLViewport) {
	c.inner.RS.Viewport = v
}

// RSSetScissorRect mirrors ID3D11DeviceContext::RSSetScissorRects.
func (c *DeviceContext) RSSetScissorRect(r objcbridge.MTLScissorRect) {
	c.inner.RS.Scissor = r
}

// ClearRenderTargetView mirrors
// ID3D11DeviceContext::ClearRenderTargetView.
func (c *DeviceContext) ClearRenderTargetView(rtv *RenderTargetView, color objcbridge.MTLClearColor) {
	slot := -1
	for i := 0; i < context.MaxRenderTargets; i++ {
		if c.inner.OM.RenderTargets[i] == rtv.textureRes && c.inner.OM.RenderTargetView[i] == int(rtv.key) {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = 0
	}
	c.inner.ClearRTV(slot, int(rtv.key), color)
}

// ClearDepthStencilView mirrors
// ID3D11DeviceContext::ClearDepthStencilView.
func (c *DeviceContext) ClearDepthStencilView(dsv *DepthStencilView, depth float64, stencil uint32, clearDepth, clearStencil bool) {
	c.inner.ClearDSV(int(dsv.key), depth, stencil, clearDepth, clearStencil)
}

// Draw mirrors ID3D11DeviceContext::Draw. A render encoder may already be
// open from OMSetRenderTargets; this only (re)opens one as a fallback, so
// a caller that issues several draws against the same targets without an
// intervening OMSetRenderTargets call still works.
func (c *DeviceContext) Draw(vertexCount, startVertex uint64) error {
	if c.lastBindErr != nil {
		return c.lastBindErr
	}
	if !c.inner.RenderEncoderOpen() {
		if err := c.openRenderPass(); err != nil {
			return err
		}
	}
	if err := c.inner.PreDraw(); err != nil {
		return err
	}
	c.inner.Draw(c.inner.IA.Topology, startVertex, vertexCount)
	return nil
}

// Dispatch mirrors ID3D11DeviceContext::Dispatch.
func (c *DeviceContext) Dispatch(threadGroupsX, threadGroupsY, threadGroupsZ uint64) error {
	if !c.inner.ComputeEncoderOpen() {
		if err := c.inner.OpenComputePass(); err != nil {
			return err
		}
	}
	if err := c.inner.PreDispatch(); err != nil {
		return err
	}
	c.inner.Dispatch(objcbridge.MTLSize{Width: threadGroupsX, Height: threadGroupsY, Depth: threadGroupsZ},
		objcbridge.MTLSize{Width: 1, Height: 1, Depth: 1})
	return nil
}

// CopyResource mirrors ID3D11DeviceContext::CopyResource for the
// buffer-to-buffer case (texture-to-texture copy is resolved by the
// caller into a CopySubresourceRegion sequence, per spec.md §4.5).
func (c *DeviceContext) CopyResource(dst, src *Buffer) error {
	if dst.length != src.length {
		return fmt.Errorf("d3d11: CopyResource requires matching buffer sizes: %w", errInvalidArgument)
	}
	return c.inner.CopyBufferRegion(dst.core, 0, src.core, 0, src.length)
}

// CopySubresourceRegionBuffer mirrors
// ID3D11DeviceContext::CopySubresourceRegion for the buffer case.
func (c *DeviceContext) CopySubresourceRegionBuffer(dst *Buffer, dstOffset uint64, src *Buffer, srcOffset, size uint64) error {
	return c.inner.CopyBufferRegion(dst.core, dstOffset, src.core, srcOffset, size)
}

// UpdateSubresourceTexture mirrors
// ID3D11DeviceContext::UpdateSubresource against a default-usage texture.
func (c *DeviceContext) UpdateSubresourceTexture(dst *Texture2D, data []byte, rowPitch, depthPitch uint64,
	dstSlice, dstLevel uint64, dstOrigin objcbridge.MTLOrigin, size objcbridge.MTLSize) error {
	if dst.usage != UsageDefault {
		return fmt.Errorf("d3d11: UpdateSubresource against a non-DEFAULT texture must use Map: %w", errInvalidArgument)
	}
	return c.inner.UpdateSubresource(dst.core, data, rowPitch, depthPitch, dstSlice, dstLevel, dstOrigin, size)
}

// MappedResource is the ID3D11_MAPPED_SUBRESOURCE-equivalent: a
// CPU-visible pointer plus the row/depth pitch of the mapped region.
type MappedResource struct {
	Data       unsafe.Pointer
	RowPitch   uint64
	DepthPitch uint64
	length     int
}

// Map mirrors ID3D11DeviceContext::Map for a DYNAMIC or STAGING buffer.
// mapType is not consulted: every map type, WRITE_DISCARD included, maps
// the buffer's current CPU-visible Allocation directly, and no rename
// takes place.
func (c *DeviceContext) Map(b *Buffer, mapType MapType) (MappedResource, error) {
	if b.access == 0 {
		return MappedResource{}, fmt.Errorf("d3d11: Map against a buffer with no CPU access flags: %w", errInvalidArgument)
	}
	alloc := b.core.Current(nil)
	if alloc == nil || alloc.Buffer == nil {
		return MappedResource{}, fmt.Errorf("d3d11: Map against an unbacked buffer: %w", errInvalidArgument)
	}
	ptr := alloc.Buffer.Contents()
	if ptr == nil {
		return MappedResource{}, fmt.Errorf("d3d11: Map against a GPU-private buffer: %w", errInvalidArgument)
	}
	return MappedResource{Data: ptr, RowPitch: b.length, DepthPitch: b.length, length: int(b.length)}, nil
}

// Unmap mirrors ID3D11DeviceContext::Unmap. Managed-storage buffers need
// DidModifyRange after a CPU write; shared-storage (the common DYNAMIC/
// STAGING case on Apple Silicon's unified memory) need nothing further.
func (c *DeviceContext) Unmap(b *Buffer) {
	alloc := b.core.Current(nil)
	if alloc == nil || alloc.Buffer == nil {
		return
	}
	if alloc.Flags()&core.AllocGPUManaged != 0 {
		alloc.Buffer.DidModifyRange(0, b.length)
	}
}

// Flush mirrors ID3D11DeviceContext::Flush: submits the currently
// recording chunk without waiting for it to complete.
func (c *DeviceContext) Flush() error {
	return c.inner.Flush()
}

// BeginQuery is an alias of DeviceContext.Begin; kept here so
// DeviceContext is the single call surface a caller binds to the
// ID3D11DeviceContext vtable shape.
func (c *DeviceContext) BeginQuery(q *Query) error { return c.Begin(q) }

// EndQuery is an alias of DeviceContext.End, see BeginQuery.
func (c *DeviceContext) EndQuery(q *Query) { c.End(q) }

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package context

import (
	"fmt"
	"unsafe"

	"github.com/dxmt-go/metallayer/core"
	"github.com/dxmt-go/metallayer/core/track"
	"github.com/dxmt-go/metallayer/internal/objcbridge"
	"github.com/dxmt-go/metallayer/metal"
)

// argTableEntrySize is the number of bytes writeArgTable reserves per bound
// slot. writeArgTable writes one 8-byte value per slot, packed back to
// back; no element-width or length metadata is written, and the rest of
// the reservation is left unwritten.
const argTableEntrySize = 24

// encoderCell holds whichever single Metal encoder is currently open for
// the in-flight chunk. It is shared by reference across every closure
// core.CommandChunk.Record captures for that chunk, since the encoder
// itself isn't created until CommandChunk.Replay runs the "open encoder"
// closure — every later closure in the same chunk reads cell.* at replay
// time, after that closure has already run (Replay executes records in
// append order).
type encoderCell struct {
	render  *metal.RenderEncoder
	compute *metal.ComputeEncoder
	blit    *metal.BlitEncoder
}

// Context is the D3D11 immediate/deferred context's Go-side state: current
// chunk, encoder state machine, per-stage bindings, and the aggregate
// input-assembler/rasterizer/output-merger/compute state. One Context
// backs one ID3D11DeviceContext.
//
// Grounded on original_source/src/d3d11's internal context (distilled by
// spec.md §4) and the teacher's CoreCommandEncoder guard-per-call idiom
// for the encoder lifecycle, generalized to the full nine-state machine
// in state.go.
type Context struct {
	device    *metal.Device
	queue     *core.CommandQueue
	pipelines *core.PipelineCache

	chunk *core.CommandChunk
	cell  *encoderCell
	sm    *EncoderStateMachine

	VS *StageBindings
	PS *StageBindings
	CS *ComputeStageState

	IA *InputAssemblerState
	OM *OutputMergerState
	RS *RasterizerState

	pendingClear PendingClearPass

	currentRenderPipeline  *metal.RenderPipelineState
	currentRenderMask      PipelineBindingMask
	currentComputePipeline *metal.ComputePipelineState
	currentComputeMask     PipelineBindingMask

	occlusion occlusionState
}

// NewContext constructs a Context bound to queue's device, sharing
// pipelines (typically the device-wide cache) across every context.
func NewContext(device *metal.Device, queue *core.CommandQueue, pipelines *core.PipelineCache) *Context {
	c := &Context{
		device:    device,
		queue:     queue,
		pipelines: pipelines,
		VS:        NewStageBindings(),
		PS:        NewStageBindings(),
		CS:        NewComputeStageState(),
		IA:        NewInputAssemblerState(),
		OM:        &OutputMergerState{},
		RS:        &RasterizerState{},
	}
	c.sm = NewEncoderStateMachine(c.closeEncoder)
	return c
}

// beginChunk lazily starts a new chunk when the context has none in
// flight (first call after construction or after the previous Flush).
func (c *Context) beginChunk() *core.CommandChunk {
	if c.chunk == nil {
		c.chunk = c.queue.NewChunk()
		c.cell = &encoderCell{}
	}
	return c.chunk
}

// closeEncoder is the EncoderStateMachine's onClose callback: it records
// the appropriate EndEncoding closure for whichever encoder kind is being
// left.
func (c *Context) closeEncoder(kind encoderKind) {
	cell := c.cell
	chunk := c.chunk
	if chunk == nil {
		return
	}
	switch kind {
	case kindRender:
		chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.render != nil {
				cell.render.EndEncoding()
				cell.render = nil
			}
			return nil
		})
	case kindCompute:
		chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.compute != nil {
				cell.compute.EndEncoding()
				cell.compute = nil
			}
			return nil
		})
	case kindBlit:
		chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.blit != nil {
				cell.blit.EndEncoding()
				cell.blit = nil
			}
			return nil
		})
	}
}

// Flush closes whatever encoder is open and submits the in-flight chunk
// to the queue, matching spec.md §4.3's "Flush (Commit) forces a close to
// Idle and submits the chunk".
func (c *Context) Flush() error {
	c.sm.Flush()
	if c.chunk == nil {
		return nil
	}
	chunk := c.chunk
	c.chunk = nil
	c.cell = nil
	return c.queue.Submit(chunk)
}

// OpenRenderPass gathers the bound RTVs/DSV and records an "open render
// pass" command, absorbing any pending coalesced clear (spec.md §4.3).
// colorViews/depthView are the resolved backend texture views for the
// currently bound OM targets; viewKeys identify them for clear-pass
// overlap matching.
func (c *Context) OpenRenderPass(colors [MaxRenderTargets]*metal.Texture, colorViewKeys [MaxRenderTargets]int, depthStencil *metal.Texture, depthStencilViewKey int) error {
	c.beginChunk()
	c.chunk.Residency.Reset()

	desc := &metal.RenderPassDescriptor{}
	for i, tex := range colors {
		if tex == nil {
			continue
		}
		desc.Colors[i] = &metal.ColorAttachment{
			Texture:     tex,
			LoadAction:  metal.LoadActionLoad,
			StoreAction: metal.StoreActionStore,
		}
	}
	if depthStencil != nil {
		desc.DepthStencil = &metal.DepthStencilAttachment{
			Texture:          depthStencil,
			DepthLoadAction:  metal.LoadActionLoad,
			DepthStoreAction: metal.StoreActionStore,
			StencilLoad:      metal.LoadActionLoad,
			StencilStore:     metal.StoreActionStore,
		}
	}

	c.pendingClear.AbsorbInto(colorViewKeys, depthStencilViewKey,
		func(slot int, color objcbridge.MTLClearColor) {
			if desc.Colors[slot] != nil {
				desc.Colors[slot].LoadAction = metal.LoadActionClear
				desc.Colors[slot].ClearColor = color
			}
		},
		func(depth float64) {
			if desc.DepthStencil != nil {
				desc.DepthStencil.DepthLoadAction = metal.LoadActionClear
				desc.DepthStencil.ClearDepth = depth
			}
		},
		func(stencil uint32) {
			if desc.DepthStencil != nil {
				desc.DepthStencil.StencilLoad = metal.LoadActionClear
				desc.DepthStencil.ClearStencil = stencil
			}
		},
	)

	descID := c.device.BuildRenderPassDescriptor(desc)
	if descID == 0 {
		return fmt.Errorf("context: failed to build MTLRenderPassDescriptor")
	}

	cell := c.cell
	c.sm.OpenRender()
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		cell.render = cb.NewRenderEncoder(descID)
		return nil
	})
	return nil
}

// OpenComputePass opens a Metal compute encoder for the in-flight chunk.
// Unlike OpenRenderPass, no descriptor is needed: a compute pass has no
// fixed attachment set, so MTLComputeCommandEncoder creation never fails
// on descriptor validation (spec.md §4.3's ComputeEncoderActive entry).
func (c *Context) OpenComputePass() error {
	c.beginChunk()
	c.chunk.Residency.Reset()
	cell := c.cell
	c.sm.OpenCompute()
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		cell.compute = cb.NewComputeEncoder()
		return nil
	})
	return nil
}

// RenderEncoderOpen reports whether the state machine currently considers
// a render encoder open (Active or Ready), letting a caller skip
// reopening a pass it already has.
func (c *Context) RenderEncoderOpen() bool { return c.sm.State().kind() == kindRender }

// ComputeEncoderOpen is RenderEncoderOpen's compute counterpart.
func (c *Context) ComputeEncoderOpen() bool { return c.sm.State().kind() == kindCompute }

// ClearRTV / ClearDSV coalesce into the pending clear pass rather than
// opening a render pass immediately.
func (c *Context) ClearRTV(slot int, viewKey int, color objcbridge.MTLClearColor) {
	c.pendingClear.ClearRTV(slot, viewKey, color)
}

func (c *Context) ClearDSV(viewKey int, depth float64, stencil uint32, clearDepth, clearStencil bool) {
	c.pendingClear.ClearDSV(viewKey, depth, stencil, clearDepth, clearStencil)
}

// FlushPendingClearAsNoOpPass emits whatever clear remains unabsorbed as
// a standalone render pass whose sole purpose is to clear, per spec.md
// §4.3. Called before Flush if nothing else ever opened a matching render
// pass.
func (c *Context) FlushPendingClearAsNoOpPass(colors [MaxRenderTargets]*metal.Texture, depthStencil *metal.Texture) error {
	if c.pendingClear.IsEmpty() {
		return nil
	}
	colorTargets, ds := c.pendingClear.Take()

	desc := &metal.RenderPassDescriptor{}
	for i, cc := range colorTargets {
		if cc == nil || colors[i] == nil {
			continue
		}
		desc.Colors[i] = &metal.ColorAttachment{
			Texture:     colors[i],
			LoadAction:  metal.LoadActionClear,
			StoreAction: metal.StoreActionStore,
			ClearColor:  cc.color,
		}
	}
	if ds != nil && depthStencil != nil {
		desc.DepthStencil = &metal.DepthStencilAttachment{Texture: depthStencil}
		if ds.clearDepth {
			desc.DepthStencil.DepthLoadAction = metal.LoadActionClear
			desc.DepthStencil.ClearDepth = ds.depth
		}
		if ds.clearStencil {
			desc.DepthStencil.StencilLoad = metal.LoadActionClear
			desc.DepthStencil.ClearStencil = ds.stencil
		}
	}

	c.beginChunk()
	descID := c.device.BuildRenderPassDescriptor(desc)
	if descID == 0 {
		return fmt.Errorf("context: failed to build no-op clear pass descriptor")
	}
	c.sm.OpenRender()
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		enc := cb.NewRenderEncoder(descID)
		enc.EndEncoding()
		return nil
	})
	c.sm.InvalidateReady()
	return nil
}

// SetShader invalidates the Ready substate without closing the encoder,
// since a new pipeline may bind against the same open render/compute
// encoder (spec.md §4.3).
func (c *Context) SetShader() { c.sm.InvalidateReady() }

// SetRenderPipeline installs the compiled pipeline state and the
// per-class slot mask it reflects; PreDraw re-binds it onto the open
// render encoder and re-uploads argument tables the new mask reads that
// the old one didn't.
func (c *Context) SetRenderPipeline(state *metal.RenderPipelineState, mask PipelineBindingMask) {
	c.currentRenderPipeline = state
	c.currentRenderMask = mask
	c.sm.InvalidateReady()
}

// SetComputePipeline is SetRenderPipeline's compute analogue.
func (c *Context) SetComputePipeline(state *metal.ComputePipelineState, mask PipelineBindingMask) {
	c.currentComputePipeline = state
	c.currentComputeMask = mask
	c.sm.InvalidateReady()
}

// emitBufferResidency records a UseResource closure against whichever
// encoder kind is open, the first time this chunk's in-flight encoder
// sees buf used at usage it hasn't already declared (spec.md §4.4:
// "declare-resident via UseResource, not barriers").
func (c *Context) emitBufferResidency(kind encoderKind, buf *core.Buffer, usage track.BufferUses, raw *metal.Buffer) {
	if raw == nil || !c.chunk.Residency.NeedsBufferDeclaration(buf.TrackerIndex, usage) {
		return
	}
	mtlUsage := metal.ResourceUsageRead
	if !usage.IsReadOnly() {
		mtlUsage |= metal.ResourceUsageWrite
	}
	cell := c.cell
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		switch kind {
		case kindRender:
			if cell.render != nil {
				cell.render.UseResource(raw.Raw(), mtlUsage)
			}
		case kindCompute:
			if cell.compute != nil {
				cell.compute.UseResource(raw.Raw(), mtlUsage)
			}
		}
		return nil
	})
}

// emitTextureResidency is emitBufferResidency's texture counterpart.
func (c *Context) emitTextureResidency(kind encoderKind, tex *core.Texture, usage track.TextureUses, raw *metal.Texture) {
	if raw == nil || !c.chunk.Residency.NeedsTextureDeclaration(tex.TrackerIndex, usage) {
		return
	}
	mtlUsage := metal.ResourceUsageRead
	if !usage.IsReadOnly() {
		mtlUsage |= metal.ResourceUsageWrite
	}
	cell := c.cell
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		switch kind {
		case kindRender:
			if cell.render != nil {
				cell.render.UseResource(raw.Raw(), mtlUsage)
			}
		case kindCompute:
			if cell.compute != nil {
				cell.compute.UseResource(raw.Raw(), mtlUsage)
			}
		}
		return nil
	})
}

// writeArgTable writes a dirty stage's argument table into a freshly
// reserved region of the chunk's GPU argument heap, per spec.md §4.4, and
// returns the region so the caller can emit the SetBufferOffset closure.
// kind identifies which encoder the stage belongs to, so texture/buffer
// entries it writes a handle for can also declare residency against the
// right encoder.
func (c *Context) writeArgTable(stage *StageBindings, mask PipelineBindingMask, kind encoderKind) (core.RingAllocation, error) {
	count := popcount64(uint64(mask.ConstantBuffers)) + popcount64(uint64(mask.Resources)) +
		popcount64(uint64(mask.Samplers)) + popcount64(uint64(mask.UAVs))
	size := uint64(count) * argTableEntrySize
	if size == 0 {
		size = argTableEntrySize
	}
	region, err := c.chunk.ArgumentHeap.Allocate(c.chunk.CurrentSeqID, c.queue.CoherentSeqID(), size, 16)
	if err != nil {
		return core.RingAllocation{}, fmt.Errorf("context: reserving argument table: %w", err)
	}

	base := uintptr(region.CPU)
	offset := uintptr(0)
	writeU64 := func(v uint64) {
		*(*uint64)(unsafe.Pointer(base + offset)) = v
		offset += 8
	}

	for slot := 0; slot < stage.ConstantBuffers.Capacity(); slot++ {
		if !mask.ConstantBuffers.Slot(slot) {
			continue
		}
		cb := stage.ConstantBuffers.Entry(slot)
		var addr uint64
		if cb.Buffer != nil {
			if alloc := cb.Buffer.Current(nil); alloc != nil && alloc.Buffer != nil {
				addr = alloc.Buffer.GPUAddress() + uint64(cb.FirstConstant)<<4
				c.emitBufferResidency(kind, cb.Buffer, track.BufferUsesConstant, alloc.Buffer)
			}
		}
		writeU64(addr)
		stage.ConstantBuffers.ClearDirty(slot)
	}
	for slot := 0; slot < stage.Resources.Capacity(); slot++ {
		if !mask.Resources.Slot(slot) {
			continue
		}
		srv := stage.Resources.Entry(slot)
		var addr uint64
		switch {
		case srv.Buffer != nil:
			if alloc := srv.Buffer.Current(nil); alloc != nil && alloc.Buffer != nil {
				addr = alloc.Buffer.GPUAddress()
				c.emitBufferResidency(kind, srv.Buffer, track.BufferUsesShaderRead, alloc.Buffer)
			}
		case srv.Texture != nil:
			if view, ok := srv.Texture.View(nil, core.ViewKey(srv.ViewKey)); ok && view.Raw != nil {
				addr = view.Raw.GPUResourceID()
				c.emitTextureResidency(kind, srv.Texture, track.TextureUsesShaderRead, view.Raw)
			}
		}
		writeU64(addr)
		stage.Resources.ClearDirty(slot)
	}
	for slot := 0; slot < stage.Samplers.Capacity(); slot++ {
		if !mask.Samplers.Slot(slot) {
			continue
		}
		sampler := stage.Samplers.Entry(slot)
		var handle uint64
		if sampler.State != nil {
			handle = sampler.State.GPUResourceID()
		}
		writeU64(handle)
		stage.Samplers.ClearDirty(slot)
	}
	for slot := 0; slot < stage.UAVs.Capacity(); slot++ {
		if !mask.UAVs.Slot(slot) {
			continue
		}
		uav := stage.UAVs.Entry(slot)
		var addr uint64
		switch {
		case uav.Buffer != nil:
			if alloc := uav.Buffer.Current(nil); alloc != nil && alloc.Buffer != nil {
				addr = alloc.Buffer.GPUAddress()
				c.emitBufferResidency(kind, uav.Buffer, track.BufferUsesShaderRead|track.BufferUsesShaderWrite, alloc.Buffer)
			}
		case uav.Texture != nil:
			if view, ok := uav.Texture.View(nil, core.ViewKey(uav.ViewKey)); ok && view.Raw != nil {
				addr = view.Raw.GPUResourceID()
				c.emitTextureResidency(kind, uav.Texture, track.TextureUsesShaderRead|track.TextureUsesShaderWrite, view.Raw)
			}
		}
		writeU64(addr)
		stage.UAVs.ClearDirty(slot)
	}

	return region, nil
}

func popcount64(v uint64) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}

// PreDraw uploads every dirty stage's argument table ahead of a draw call,
// per spec.md §4.4: for each stage whose dirty∩pipeline-mask is non-empty,
// reserve and fill a region of the chunk argument heap and emit a
// SetBufferOffset targeting that stage's fixed table slot. It also uploads
// the vertex-buffer table when the IA's vertex-slot-mask-relative dirty
// bits are set.
func (c *Context) PreDraw() error {
	c.beginChunk()
	cell := c.cell

	if c.sm.State() != StateRenderPipelineReady {
		pipeline := c.currentRenderPipeline
		c.chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.render != nil && pipeline != nil {
				cell.render.SetPipelineState(pipeline)
			}
			return nil
		})
	}

	if c.VS.AnyDirty(c.currentRenderMask) {
		region, err := c.writeArgTable(c.VS, c.currentRenderMask, kindRender)
		if err != nil {
			return err
		}
		c.chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.render != nil {
				cell.render.SetVertexBufferOffset(region.Offset, VertexBufferTableSlot)
			}
			return nil
		})
	}
	if c.PS.AnyDirty(c.currentRenderMask) {
		region, err := c.writeArgTable(c.PS, c.currentRenderMask, kindRender)
		if err != nil {
			return err
		}
		c.chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.render != nil {
				cell.render.SetFragmentBufferOffset(region.Offset, 0)
			}
			return nil
		})
	}
	if c.IA.VertexBuffers.DirtyMask()&c.IA.VertexSlotMask != 0 {
		if err := c.uploadVertexBufferTable(); err != nil {
			return err
		}
	}
	c.sm.MarkPipelineReady()
	return nil
}

// uploadVertexBufferTable writes the fixed-layout vertex-buffer table
// ({u64 handle, u32 stride, u32 length}[32]) described by spec.md §4.4.
func (c *Context) uploadVertexBufferTable() error {
	const entrySize = 16
	region, err := c.chunk.ArgumentHeap.Allocate(c.chunk.CurrentSeqID, c.queue.CoherentSeqID(), MaxVertexBufferSlots*entrySize, 16)
	if err != nil {
		return fmt.Errorf("context: reserving vertex-buffer table: %w", err)
	}
	base := uintptr(region.CPU)
	for slot := 0; slot < c.IA.VertexBuffers.Capacity(); slot++ {
		if !c.IA.VertexSlotMask.Slot(slot) {
			continue
		}
		vb := c.IA.VertexBuffers.Entry(slot)
		var handle uint64
		if vb.Buffer != nil {
			if alloc := vb.Buffer.Current(nil); alloc != nil && alloc.Buffer != nil {
				handle = alloc.Buffer.GPUAddress() + uint64(vb.Offset)
			}
		}
		entry := base + uintptr(slot)*entrySize
		*(*uint64)(unsafe.Pointer(entry)) = handle
		*(*uint32)(unsafe.Pointer(entry + 8)) = vb.Stride
		*(*uint32)(unsafe.Pointer(entry + 12)) = 0
		c.IA.VertexBuffers.ClearDirty(slot)
	}

	cell := c.cell
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		if cell.render != nil {
			cell.render.SetVertexBufferOffset(region.Offset, VertexBufferTableSlot)
		}
		return nil
	})
	return nil
}

// PreDispatch is PreDraw's compute analogue: uploads the CS's argument
// table if dirty, ahead of a Dispatch call.
func (c *Context) PreDispatch() error {
	c.beginChunk()
	cell := c.cell

	if c.sm.State() != StateComputePipelineReady {
		pipeline := c.currentComputePipeline
		c.chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.compute != nil && pipeline != nil {
				cell.compute.SetPipelineState(pipeline)
			}
			return nil
		})
	}

	if c.CS.Bindings.AnyDirty(c.currentComputeMask) {
		region, err := c.writeArgTable(c.CS.Bindings, c.currentComputeMask, kindCompute)
		if err != nil {
			return err
		}
		c.chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.compute != nil {
				cell.compute.SetBufferOffset(region.Offset, 0)
			}
			return nil
		})
	}
	c.sm.MarkPipelineReady()
	return nil
}

// Draw records a draw call against the currently open, Ready render
// encoder.
func (c *Context) Draw(primitive metal.PrimitiveType, vertexStart, vertexCount uint64) {
	cell := c.cell
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		if cell.render == nil {
			return fmt.Errorf("context: Draw with no open render encoder")
		}
		cell.render.DrawPrimitives(primitive, vertexStart, vertexCount)
		return nil
	})
}

// Dispatch records a compute dispatch against the currently open, Ready
// compute encoder.
func (c *Context) Dispatch(groups, threadsPerGroup objcbridge.MTLSize) {
	cell := c.cell
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		if cell.compute == nil {
			return fmt.Errorf("context: Dispatch with no open compute encoder")
		}
		cell.compute.DispatchThreadgroups(groups, threadsPerGroup)
		return nil
	})
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

// NewCommandBuffer creates an autoreleased id<MTLCommandBuffer> from the
// device's single command queue and retains it for the caller (CommandChunk
// replay holds one per in-flight chunk).
func (d *Device) NewCommandBuffer() (*CommandBuffer, error) {
	raw := send(d.queue, objcbridge.Sel("commandBuffer"))
	if raw == 0 {
		return nil, fmt.Errorf("metal: commandBuffer failed")
	}
	objcbridge.Retain(raw)
	return &CommandBuffer{raw: raw}, nil
}

// CommandBuffer wraps id<MTLCommandBuffer>.
type CommandBuffer struct {
	raw id
}

func (c *CommandBuffer) Raw() id { return c.raw }

// NewBlitEncoder starts a blit pass.
func (c *CommandBuffer) NewBlitEncoder() *BlitEncoder {
	raw := send(c.raw, objcbridge.Sel("blitCommandEncoder"))
	return &BlitEncoder{raw: raw}
}

// NewComputeEncoder starts a compute pass.
func (c *CommandBuffer) NewComputeEncoder() *ComputeEncoder {
	raw := send(c.raw, objcbridge.Sel("computeCommandEncoder"))
	return &ComputeEncoder{raw: raw}
}

// NewRenderEncoder starts a render pass from a previously built MTLRenderPassDescriptor.
func (c *CommandBuffer) NewRenderEncoder(passDescriptor id) *RenderEncoder {
	raw := send(c.raw, objcbridge.Sel("renderCommandEncoderWithDescriptor:"), uintptr(passDescriptor))
	return &RenderEncoder{raw: raw}
}

// AddCompletedHandler registers fn to run (on Metal's completion-handler
// thread) once the GPU finishes this command buffer. Must be called before
// Commit.
func (c *CommandBuffer) AddCompletedHandler(fn func()) {
	blockPtr, id := objcbridge.NewCompletionBlock(fn)
	if blockPtr == 0 {
		fn()
		return
	}
	ok := c.sendAddCompletedHandler(blockPtr)
	if !ok {
		objcbridge.CancelCompletionBlock(id)
		fn()
	}
}

func (c *CommandBuffer) sendAddCompletedHandler(blockPtr uintptr) bool {
	if c.raw == 0 || blockPtr == 0 {
		return false
	}
	objcbridge.SendVoidArgs(c.raw, objcbridge.Sel("addCompletedHandler:"), objcbridge.Ptr(blockPtr))
	return true
}

// Commit submits the command buffer to the GPU.
func (c *CommandBuffer) Commit() { sendVoid(c.raw, objcbridge.Sel("commit")) }

// WaitUntilCompleted blocks the calling goroutine until the GPU finishes
// this command buffer.
func (c *CommandBuffer) WaitUntilCompleted() { sendVoid(c.raw, objcbridge.Sel("waitUntilCompleted")) }

// Status returns the MTLCommandBufferStatus as a raw NSUInteger.
func (c *CommandBuffer) Status() uint64 { return sendUint(c.raw, objcbridge.Sel("status")) }

// Release releases the command buffer (retained in NewCommandBuffer).
func (c *CommandBuffer) Release() {
	if c.raw != 0 {
		objcbridge.Release(c.raw)
		c.raw = 0
	}
}

// BlitEncoder wraps id<MTLBlitCommandEncoder>.
type BlitEncoder struct{ raw id }

func (e *BlitEncoder) CopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("copyFromBuffer:sourceOffset:toBuffer:destinationOffset:size:"),
		objcbridge.Ptr(uintptr(src.raw)), objcbridge.U64(srcOffset),
		objcbridge.Ptr(uintptr(dst.raw)), objcbridge.U64(dstOffset), objcbridge.U64(size))
}

func (e *BlitEncoder) FillBuffer(dst *Buffer, offset, length uint64, value byte) {
	r := objcbridge.NSRange{Location: objcbridge.NSUInteger(offset), Length: objcbridge.NSUInteger(length)}
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("fillBuffer:range:value:"),
		objcbridge.Ptr(uintptr(dst.raw)), objcbridge.Struct(r, objcbridge.RangeType), objcbridge.BoolArg(value != 0))
}

func (e *BlitEncoder) CopyBufferToTexture(src *Buffer, srcOffset, bytesPerRow, bytesPerImage uint64,
	size objcbridge.MTLSize, dst *Texture, dstSlice, dstLevel uint64, dstOrigin objcbridge.MTLOrigin) {
	objcbridge.SendVoidArgs(e.raw,
		objcbridge.Sel("copyFromBuffer:sourceOffset:sourceBytesPerRow:sourceBytesPerImage:sourceSize:toTexture:destinationSlice:destinationLevel:destinationOrigin:"),
		objcbridge.Ptr(uintptr(src.raw)), objcbridge.U64(srcOffset),
		objcbridge.U64(bytesPerRow), objcbridge.U64(bytesPerImage),
		objcbridge.Struct(size, objcbridge.SizeType),
		objcbridge.Ptr(uintptr(dst.raw)), objcbridge.U64(dstSlice), objcbridge.U64(dstLevel),
		objcbridge.Struct(dstOrigin, objcbridge.OriginType),
	)
}

func (e *BlitEncoder) EndEncoding() { sendVoid(e.raw, objcbridge.Sel("endEncoding")) }

// ComputeEncoder wraps id<MTLComputeCommandEncoder>.
type ComputeEncoder struct{ raw id }

func (e *ComputeEncoder) SetPipelineState(p *ComputePipelineState) {
	sendVoid(e.raw, objcbridge.Sel("setComputePipelineState:"), uintptr(p.raw))
}

func (e *ComputeEncoder) SetBuffer(b *Buffer, offset uint64, index int) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setBuffer:offset:atIndex:"),
		objcbridge.Ptr(uintptr(b.raw)), objcbridge.U64(offset), objcbridge.Ptr(uintptr(index)))
}

func (e *ComputeEncoder) SetTexture(t *Texture, index int) {
	sendVoid(e.raw, objcbridge.Sel("setTexture:atIndex:"), uintptr(t.raw), uintptr(index))
}

func (e *ComputeEncoder) DispatchThreadgroups(groups, threadsPerGroup objcbridge.MTLSize) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("dispatchThreadgroups:threadsPerThreadgroup:"),
		objcbridge.Struct(groups, objcbridge.SizeType), objcbridge.Struct(threadsPerGroup, objcbridge.SizeType))
}

func (e *ComputeEncoder) SetBufferOffset(offset uint64, index int) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setBufferOffset:atIndex:"),
		objcbridge.U64(offset), objcbridge.Ptr(uintptr(index)))
}

func (e *ComputeEncoder) UseResource(res id, usage ResourceUsage) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("useResource:usage:"),
		objcbridge.Ptr(uintptr(res)), objcbridge.Ptr(uintptr(usage)))
}

func (e *ComputeEncoder) EndEncoding() { sendVoid(e.raw, objcbridge.Sel("endEncoding")) }

// RenderEncoder wraps id<MTLRenderCommandEncoder>.
type RenderEncoder struct{ raw id }

func (e *RenderEncoder) SetPipelineState(p *RenderPipelineState) {
	sendVoid(e.raw, objcbridge.Sel("setRenderPipelineState:"), uintptr(p.raw))
}

func (e *RenderEncoder) SetVertexBuffer(b *Buffer, offset uint64, index int) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setVertexBuffer:offset:atIndex:"),
		objcbridge.Ptr(uintptr(b.raw)), objcbridge.U64(offset), objcbridge.Ptr(uintptr(index)))
}

func (e *RenderEncoder) SetFragmentBuffer(b *Buffer, offset uint64, index int) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setFragmentBuffer:offset:atIndex:"),
		objcbridge.Ptr(uintptr(b.raw)), objcbridge.U64(offset), objcbridge.Ptr(uintptr(index)))
}

func (e *RenderEncoder) SetVertexTexture(t *Texture, index int) {
	sendVoid(e.raw, objcbridge.Sel("setVertexTexture:atIndex:"), uintptr(t.raw), uintptr(index))
}

func (e *RenderEncoder) SetFragmentTexture(t *Texture, index int) {
	sendVoid(e.raw, objcbridge.Sel("setFragmentTexture:atIndex:"), uintptr(t.raw), uintptr(index))
}

func (e *RenderEncoder) SetViewport(v objcbridge.MTLViewport) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setViewport:"), objcbridge.Struct(v, objcbridge.ViewportType))
}

func (e *RenderEncoder) SetScissorRect(r objcbridge.MTLScissorRect) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setScissorRect:"), objcbridge.Struct(r, objcbridge.ScissorRectType))
}

// VisibilityResultMode mirrors MTLVisibilityResultMode.
type VisibilityResultMode objcbridge.NSUInteger

const (
	VisibilityResultModeDisabled  VisibilityResultMode = 0
	VisibilityResultModeBoolean   VisibilityResultMode = 1
	VisibilityResultModeCounting  VisibilityResultMode = 2
)

// ResourceUsage mirrors MTLResourceUsage, a bitmask passed to UseResource.
type ResourceUsage objcbridge.NSUInteger

const (
	ResourceUsageRead  ResourceUsage = 1 << 0
	ResourceUsageWrite ResourceUsage = 1 << 1
)

func (e *RenderEncoder) SetVisibilityResultMode(mode VisibilityResultMode, offset uint64) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setVisibilityResultMode:offset:"),
		objcbridge.Ptr(uintptr(mode)), objcbridge.U64(offset))
}

func (e *RenderEncoder) SetVertexBufferOffset(offset uint64, index int) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setVertexBufferOffset:atIndex:"),
		objcbridge.U64(offset), objcbridge.Ptr(uintptr(index)))
}

func (e *RenderEncoder) SetFragmentBufferOffset(offset uint64, index int) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("setFragmentBufferOffset:atIndex:"),
		objcbridge.U64(offset), objcbridge.Ptr(uintptr(index)))
}

// UseResource declares a resource as accessed by subsequent draws without
// binding it at a slot, matching Metal's residency-tracking model for
// argument-buffer-referenced resources (spec.md §4.4: "declare-resident via
// UseResource, not barriers").
func (e *RenderEncoder) UseResource(res id, usage ResourceUsage) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("useResource:usage:"),
		objcbridge.Ptr(uintptr(res)), objcbridge.Ptr(uintptr(usage)))
}

func (e *RenderEncoder) DrawPrimitives(primitive PrimitiveType, vertexStart, vertexCount uint64) {
	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("drawPrimitives:vertexStart:vertexCount:"),
		objcbridge.Ptr(uintptr(primitive)), objcbridge.U64(vertexStart), objcbridge.U64(vertexCount))
}

func (e *RenderEncoder) DrawIndexedPrimitives(primitive PrimitiveType, indexCount uint64, indexType IndexType, indexBuffer *Buffer, indexBufferOffset uint64) {
	objcbridge.SendVoidArgs(e.raw,
		objcbridge.Sel("drawIndexedPrimitives:indexCount:indexType:indexBuffer:indexBufferOffset:"),
		objcbridge.Ptr(uintptr(primitive)), objcbridge.U64(indexCount), objcbridge.Ptr(uintptr(indexType)),
		objcbridge.Ptr(uintptr(indexBuffer.raw)), objcbridge.U64(indexBufferOffset))
}

func (e *RenderEncoder) EndEncoding() { sendVoid(e.raw, objcbridge.Sel("endEncoding")) }

// RenderPipelineState wraps id<MTLRenderPipelineState>.
type RenderPipelineState struct{ raw id }

// ComputePipelineState wraps id<MTLComputePipelineState>.
type ComputePipelineState struct{ raw id }

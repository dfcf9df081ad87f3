// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"
	"unsafe"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

// Buffer wraps id<MTLBuffer>.
type Buffer struct {
	raw     id
	length  uint64
	options ResourceOptions
}

// NewBuffer allocates an MTLBuffer with the given length and storage mode.
// label may be empty.
func (d *Device) NewBuffer(length uint64, options ResourceOptions, label string) (*Buffer, error) {
	if length == 0 {
		return nil, fmt.Errorf("metal: buffer length must be > 0")
	}
	pool := objcbridge.NewAutoreleasePool()
	defer pool.Drain()

	raw := send(d.raw, objcbridge.Sel("newBufferWithLength:options:"), uintptr(length), uintptr(options))
	if raw == 0 {
		return nil, fmt.Errorf("metal: newBufferWithLength:options: failed (length=%d)", length)
	}
	if label != "" {
		setLabel(raw, label)
	}
	return &Buffer{raw: raw, length: length, options: options}, nil
}

// Raw exposes the underlying id<MTLBuffer> for callers (command encoders)
// that need to pass it across another objc_msgSend call.
func (b *Buffer) Raw() id { return b.raw }

// Length returns the buffer's allocated length in bytes.
func (b *Buffer) Length() uint64 { return b.length }

// Contents returns a pointer to the buffer's CPU-visible storage.
// Only shared/managed storage-mode buffers have one; for a private buffer
// Metal returns nil, which callers use to detect GPU-private storage.
func (b *Buffer) Contents() unsafe.Pointer {
	ptr := send(b.raw, objcbridge.Sel("contents"))
	return unsafe.Pointer(uintptr(ptr)) //nolint:govet // objc returns a raw pointer value, not an object
}

// DidModifyRange tells Metal a CPU write touched [offset, offset+length) of
// a managed-storage buffer, so it gets synchronized to the GPU before the
// next command buffer that reads it is scheduled.
func (b *Buffer) DidModifyRange(offset, length uint64) {
	r := objcbridge.NSRange{Location: objcbridge.NSUInteger(offset), Length: objcbridge.NSUInteger(length)}
	objcbridge.SendVoidArgs(b.raw, objcbridge.Sel("didModifyRange:"), objcbridge.Struct(r, objcbridge.RangeType))
}

// SetLabel sets the debug label visible in Xcode's GPU frame capture.
func (b *Buffer) SetLabel(label string) { setLabel(b.raw, label) }

// GPUAddress returns the buffer's device-virtual address, used to build
// argument-buffer constant-pointer entries directly (MTLBuffer.gpuAddress)
// rather than binding every constant buffer at a fixed encoder slot.
func (b *Buffer) GPUAddress() uint64 { return sendUint(b.raw, objcbridge.Sel("gpuAddress")) }

// Release releases the underlying MTLBuffer. The Buffer must not be used
// afterward.
func (b *Buffer) Release() {
	if b.raw != 0 {
		objcbridge.Release(b.raw)
		b.raw = 0
	}
}

func setLabel(obj id, label string) {
	ns := objcbridge.NSString(label)
	sendVoid(obj, objcbridge.Sel("setLabel:"), uintptr(ns))
	objcbridge.Release(ns)
}

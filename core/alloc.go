package core

import (
	"sync/atomic"

	"github.com/dxmt-go/metallayer/metal"
)

// AllocationFlags records the storage characteristics of an Allocation,
// matching spec.md §3's "GPU-private vs. GPU-managed vs. shared,
// CPU-invisible, CPU-write-combined, tracked vs. untracked, optionally
// owned-by-command-list" flag set.
type AllocationFlags uint32

const (
	AllocGPUPrivate       AllocationFlags = 1 << 0
	AllocGPUManaged       AllocationFlags = 1 << 1
	AllocShared           AllocationFlags = 1 << 2
	AllocCPUInvisible     AllocationFlags = 1 << 3
	AllocCPUWriteCombined AllocationFlags = 1 << 4
	AllocTracked          AllocationFlags = 1 << 5
	AllocOwnedByCmdList   AllocationFlags = 1 << 6
)

// Allocation is an owned GPU memory object: either a BufferAllocation or a
// TextureAllocation. It is reference-counted because a single Allocation
// may be referenced by a logical resource's "current name" and by any
// in-flight CommandChunk that captured it before a rename.
type Allocation struct {
	refs  atomic.Int32
	flags AllocationFlags

	Buffer  *metal.Buffer  // nil for a TextureAllocation
	Texture *metal.Texture // nil for a BufferAllocation
}

// NewBufferAllocation wraps an already-created metal.Buffer.
func NewBufferAllocation(b *metal.Buffer, flags AllocationFlags) *Allocation {
	a := &Allocation{flags: flags, Buffer: b}
	a.refs.Store(1)
	return a
}

// NewTextureAllocation wraps an already-created metal.Texture.
func NewTextureAllocation(t *metal.Texture, flags AllocationFlags) *Allocation {
	a := &Allocation{flags: flags, Texture: t}
	a.refs.Store(1)
	return a
}

// Flags returns the allocation's storage flags.
func (a *Allocation) Flags() AllocationFlags { return a.flags }

// IsTracked reports whether Metal hazard-tracks this allocation
// automatically, or whether the encoder must declare it via UseResource.
func (a *Allocation) IsTracked() bool { return a.flags&AllocTracked != 0 }

// Retain increments the allocation's reference count. Called whenever a
// CommandChunk captures this Allocation as a "currently named" backing
// store, so a rename racing a still-recording chunk cannot free it early.
func (a *Allocation) Retain() *Allocation {
	a.refs.Add(1)
	return a
}

// Release decrements the reference count and releases the underlying
// Metal object once it reaches zero.
func (a *Allocation) Release() {
	if a.refs.Add(-1) != 0 {
		return
	}
	if a.Buffer != nil {
		a.Buffer.Release()
	}
	if a.Texture != nil {
		a.Texture.Release()
	}
}

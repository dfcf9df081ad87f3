package core

import "sync"

// TexturePool is a simple discard/reuse FIFO for textures that are
// recreated wholesale every frame (e.g. a D3D11 resource bound as a
// render target one frame and discarded the next) rather than renamed
// in place through a Texture's own Rename. It differs from DynamicTexture
// only in that it has no notion of a single texture's "immediate name" —
// any caller sharing the same descriptor can draw from the same pool.
//
// Grounded on dxmt_buffer_pool.hpp/.cpp's DynamicTexturePool2.
type TexturePool struct {
	flags      AllocationFlags
	allocateFn func(AllocationFlags) *Allocation

	mu   sync.Mutex
	fifo []dynamicBufferEntry
}

// NewTexturePool constructs a pool that mints new Allocations via
// allocateFn when nothing recyclable is available yet.
func NewTexturePool(flags AllocationFlags, allocateFn func(AllocationFlags) *Allocation) *TexturePool {
	return &TexturePool{flags: flags, allocateFn: allocateFn}
}

// Allocate pops the oldest entry whose willFreeAt sequence has passed
// coherentSeqID, or mints a fresh Allocation.
func (p *TexturePool) Allocate(coherentSeqID uint64) *Allocation {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.fifo) > 0 && p.fifo[0].willFreeAt <= coherentSeqID {
		ret := p.fifo[0].allocation
		p.fifo = p.fifo[1:]
		return ret
	}
	return p.allocateFn(p.flags)
}

// Discard queues allocation for reuse once the GPU has certainly retired
// currentSeqID's work.
func (p *TexturePool) Discard(allocation *Allocation, currentSeqID uint64) {
	if allocation == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fifo = append(p.fifo, dynamicBufferEntry{allocation: allocation, willFreeAt: currentSeqID})
}

package core

import "sync"

// DynamicBuffer recycles the Allocations behind a frequently-renamed Buffer
// (a D3D11 DYNAMIC buffer with Map(WRITE_DISCARD) usage): instead of
// freeing a displaced Allocation immediately, it is queued until the GPU
// has certainly finished with it (coherentSeqID has passed the sequence ID
// the rename happened at), then handed back out to a later allocate() call.
//
// Grounded on dxmt_dynamic.hpp/.cpp's DynamicBuffer; Go's garbage collector
// makes the original's incRef/decRef/delete-this lifecycle unnecessary.
type DynamicBuffer struct {
	Buffer *Buffer

	flags      AllocationFlags
	allocateFn func(AllocationFlags) *Allocation

	mu               sync.Mutex
	fifo             []dynamicBufferEntry
	name             *Allocation
	nameSuballoc     uint32
	ownedByCmdList   bool
}

type dynamicBufferEntry struct {
	allocation *Allocation
	willFreeAt uint64
}

// NewDynamicBuffer wraps buffer, seeding the immediate name from its
// current Allocation. allocateFn is called to mint a fresh Allocation when
// the recycle FIFO is empty.
func NewDynamicBuffer(buffer *Buffer, flags AllocationFlags, initial *Allocation, allocateFn func(AllocationFlags) *Allocation) *DynamicBuffer {
	return &DynamicBuffer{
		Buffer:     buffer,
		flags:      flags,
		allocateFn: allocateFn,
		name:       initial,
	}
}

// Allocate pops the oldest recyclable Allocation whose willFreeAt sequence
// has already passed coherentSeqID (the GPU is known to be done with it),
// or mints a new one via allocateFn if none is eligible yet.
func (d *DynamicBuffer) Allocate(coherentSeqID uint64) *Allocation {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.fifo) > 0 && d.fifo[0].willFreeAt <= coherentSeqID {
		ret := d.fifo[0].allocation
		d.fifo = d.fifo[1:]
		return ret
	}
	return d.allocateFn(d.flags)
}

// UpdateImmediateName installs allocation as the buffer's new "immediate"
// name, queuing the previous name for recycling at currentSeqID (unless
// the previous name was itself owned by a still-recording command list,
// in which case it must not be reused until that chunk retires).
func (d *DynamicBuffer) UpdateImmediateName(currentSeqID uint64, allocation *Allocation, suballocation uint32, ownedByCmdList bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ownedByCmdList {
		d.fifo = append(d.fifo, dynamicBufferEntry{allocation: d.name, willFreeAt: currentSeqID})
	}
	d.name = allocation
	d.nameSuballoc = suballocation
	d.ownedByCmdList = ownedByCmdList
}

// Recycle returns allocation to the FIFO once the chunk that owned it has
// retired, unless it is still the current immediate name (in which case it
// simply loses its owned-by-command-list flag and stays live).
func (d *DynamicBuffer) Recycle(currentSeqID uint64, allocation *Allocation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ownedByCmdList && d.name == allocation {
		d.ownedByCmdList = false
		return
	}
	d.fifo = append(d.fifo, dynamicBufferEntry{allocation: allocation, willFreeAt: currentSeqID})
}

// ImmediateName returns the Allocation currently named by the buffer.
func (d *DynamicBuffer) ImmediateName() *Allocation { return d.name }

// DynamicTexture is DynamicBuffer's texture counterpart; it has no
// suballocation cursor since textures are never suballocated within an
// Allocation the way ring-bumped constant buffers are.
type DynamicTexture struct {
	Texture *Texture

	flags      AllocationFlags
	allocateFn func(AllocationFlags) *Allocation

	mu             sync.Mutex
	fifo           []dynamicBufferEntry
	name           *Allocation
	ownedByCmdList bool
}

// NewDynamicTexture wraps texture, seeding the immediate name from its
// current Allocation.
func NewDynamicTexture(texture *Texture, flags AllocationFlags, initial *Allocation, allocateFn func(AllocationFlags) *Allocation) *DynamicTexture {
	return &DynamicTexture{
		Texture:    texture,
		flags:      flags,
		allocateFn: allocateFn,
		name:       initial,
	}
}

// Allocate is DynamicBuffer.Allocate's texture counterpart.
func (d *DynamicTexture) Allocate(coherentSeqID uint64) *Allocation {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.fifo) > 0 && d.fifo[0].willFreeAt <= coherentSeqID {
		ret := d.fifo[0].allocation
		d.fifo = d.fifo[1:]
		return ret
	}
	return d.allocateFn(d.flags)
}

// UpdateImmediateName is DynamicBuffer.UpdateImmediateName's texture
// counterpart.
func (d *DynamicTexture) UpdateImmediateName(currentSeqID uint64, allocation *Allocation, ownedByCmdList bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ownedByCmdList {
		d.fifo = append(d.fifo, dynamicBufferEntry{allocation: d.name, willFreeAt: currentSeqID})
	}
	d.name = allocation
	d.ownedByCmdList = ownedByCmdList
}

// Recycle is DynamicBuffer.Recycle's texture counterpart.
func (d *DynamicTexture) Recycle(currentSeqID uint64, allocation *Allocation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ownedByCmdList && d.name == allocation {
		d.ownedByCmdList = false
		return
	}
	d.fifo = append(d.fifo, dynamicBufferEntry{allocation: allocation, willFreeAt: currentSeqID})
}

// ImmediateName returns the Allocation currently named by the texture.
func (d *DynamicTexture) ImmediateName() *Allocation { return d.name }

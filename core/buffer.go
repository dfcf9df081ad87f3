package core

import (
	"sync"
	"sync/atomic"

	"github.com/dxmt-go/metallayer/core/track"
	"github.com/dxmt-go/metallayer/metal"
)

// ViewKey is a content-addressed index into a logical resource's view
// cache: two CreateView calls with identical descriptors return the same
// key (spec.md §3 "View descriptor").
type ViewKey int

// BufferViewDescriptor is the buffer-side subset of spec.md's View
// descriptor: a byte range reinterpreted as a typed element span (used for
// raw/structured/typed buffer SRVs and UAVs).
type BufferViewDescriptor struct {
	Format      metal.PixelFormat
	FirstElem   uint64
	ElemCount   uint64
	ElemStride  uint32
}

type bufferView struct {
	desc    BufferViewDescriptor
	version uint64 // the Buffer.version this view was built against
}

// Buffer is the logical D3D11 resource: a stable identity whose current
// Allocation can be swapped out (renamed) by Map(WRITE_DISCARD). Readers
// must resolve through a SnatchGuard so a rename never hands back a torn
// Allocation (spec.md §4.1, §9 "COM reference counting").
type Buffer struct {
	lock *SnatchLock

	current *Snatchable[*Allocation]
	version atomic.Uint64

	TrackerIndex track.TrackerIndex

	length uint64

	mu         sync.Mutex
	viewDescs  []BufferViewDescriptor
	views      []bufferView
}

// NewBuffer wraps an initial Allocation as a new logical Buffer.
func NewBuffer(lock *SnatchLock, alloc *Allocation, length uint64, index track.TrackerIndex) *Buffer {
	return &Buffer{
		lock:         lock,
		current:      NewSnatchable(alloc),
		length:       length,
		TrackerIndex: index,
	}
}

// Length returns the buffer's byte length (stable across renames: a
// rename always installs an Allocation of the same size for a given
// Buffer).
func (b *Buffer) Length() uint64 { return b.length }

// Version returns the current rename version. Any cached binding that
// recorded a lower version must re-resolve (spec.md §3 invariant (c)).
func (b *Buffer) Version() uint64 { return b.version.Load() }

// Current returns the buffer's current Allocation under a read guard.
// Returns nil if the buffer has been destroyed.
func (b *Buffer) Current(guard *SnatchGuard) *Allocation {
	p := b.current.Get(guard)
	if p == nil {
		return nil
	}
	return *p
}

// Rename installs newAlloc as the buffer's current Allocation, bumps the
// version, and returns the displaced Allocation for the caller to hand to
// a reuse pool (DynamicBuffer) or release outright. Requires an exclusive
// guard: this must not race a concurrent Current() read.
func (b *Buffer) Rename(guard *ExclusiveSnatchGuard, newAlloc *Allocation) *Allocation {
	prevPtr := b.current.Snatch(guard)
	b.current = NewSnatchable(newAlloc)
	b.version.Add(1)
	if prevPtr == nil {
		return nil
	}
	return *prevPtr
}

// CreateView returns the stable ViewKey for descriptor, creating a new
// cache slot on first use (spec.md "createView is a pure lookup-or-append
// on the descriptor array; it does not allocate a backend view").
func (b *Buffer) CreateView(desc BufferViewDescriptor) ViewKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, d := range b.viewDescs {
		if d == desc {
			return ViewKey(i)
		}
	}
	b.viewDescs = append(b.viewDescs, desc)
	b.views = append(b.views, bufferView{})
	return ViewKey(len(b.viewDescs) - 1)
}

// ResolvedBufferView is a backend view resolved against the buffer's
// Allocation current at the time it was built; it is not updated by a
// later rename.
type ResolvedBufferView struct {
	Allocation *Allocation
	Desc       BufferViewDescriptor
}

// View resolves key against the buffer's current Allocation, rebuilding
// the cached view if the Allocation has been renamed since it was last
// constructed (spec.md §4.1 "view(view_key)").
func (b *Buffer) View(guard *SnatchGuard, key ViewKey) (*ResolvedBufferView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(key) < 0 || int(key) >= len(b.viewDescs) {
		return nil, false
	}
	allocPtr := b.current.Get(guard)
	if allocPtr == nil {
		return nil, false
	}
	alloc := *allocPtr
	cur := b.version.Load()
	v := &b.views[key]
	if v.version != cur {
		v.version = cur
		v.desc = b.viewDescs[key]
	}
	return &ResolvedBufferView{Allocation: alloc, Desc: v.desc}, true
}

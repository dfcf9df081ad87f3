package core

// BindingSlotMask is a bitmask over a BindingSet's slots; pipelines carry
// one per binding class to say exactly which slots they read, and
// PreDraw/PreDispatch tests stage-dirty & pipeline-mask to decide whether
// a re-upload is needed (spec.md §4.2).
type BindingSlotMask uint64

// Slot reports whether slot is set in the mask.
func (m BindingSlotMask) Slot(slot int) bool { return m&(1<<uint(slot)) != 0 }

// WithSlot returns m with slot set.
func (m BindingSlotMask) WithSlot(slot int) BindingSlotMask { return m | (1 << uint(slot)) }

// BindingSet is a fixed-capacity, slot-indexed table of bound entries for
// one binding class (constant buffers, SRVs, samplers, UAVs, or vertex
// buffers) within one shader stage, paired with a per-slot dirty mask.
//
// Grounded on spec.md §4.2's bind/set_dirty/clear_dirty/any_dirty_masked
// contract, generalized from original_source's dxmt_resource_binding.hpp
// subresource-tracking idea into a Go generic over the entry type each
// binding class actually stores (constant-buffer-with-offset-and-size vs.
// a bare resolved view), since the original's per-class entry shapes
// differ but the slot/dirty mechanics don't.
type BindingSet[T comparable] struct {
	entries []T
	bound   []bool
	dirty   BindingSlotMask
}

// NewBindingSet constructs a BindingSet with capacity slots.
func NewBindingSet[T comparable](capacity int) *BindingSet[T] {
	return &BindingSet[T]{
		entries: make([]T, capacity),
		bound:   make([]bool, capacity),
	}
}

// Capacity returns the number of slots.
func (b *BindingSet[T]) Capacity() int { return len(b.entries) }

// Bind stores entry at slot, returning the previous entry and whether it
// differs from entry (spec.md: "returns whether the entry changed; used
// to preserve per-field sub-dirty"). The slot is always marked bound by a
// successful Bind, and marked dirty only when `replaced` is true, so a
// no-op rebind leaves the dirty bit as it was.
func (b *BindingSet[T]) Bind(slot int, entry T) (prev T, replaced bool) {
	prev = b.entries[slot]
	replaced = !b.bound[slot] || prev != entry
	b.entries[slot] = entry
	b.bound[slot] = true
	if replaced {
		b.dirty = b.dirty.WithSlot(slot)
	}
	return prev, replaced
}

// Unbind clears slot's entry and bound flag, and marks it dirty (an
// unbound slot that a pipeline still expects to read must force a
// re-upload so the argument table stops pointing at stale storage).
func (b *BindingSet[T]) Unbind(slot int) {
	var zero T
	b.entries[slot] = zero
	b.bound[slot] = false
	b.dirty = b.dirty.WithSlot(slot)
}

// TestBound reports whether slot currently holds a bound entry.
func (b *BindingSet[T]) TestBound(slot int) bool { return b.bound[slot] }

// Entry returns the entry currently bound at slot (zero value if unbound).
func (b *BindingSet[T]) Entry(slot int) T { return b.entries[slot] }

// SetDirty marks slot dirty without changing its entry — used when the
// slot's underlying Allocation was renamed (spec.md §4.2: "or when the
// underlying Allocation was renamed since last upload").
func (b *BindingSet[T]) SetDirty(slot int) { b.dirty = b.dirty.WithSlot(slot) }

// SetAllDirty marks every in-range slot dirty — used when the pipeline
// changes and every binding must be re-validated against the new
// reflection.
func (b *BindingSet[T]) SetAllDirty() {
	if len(b.entries) >= 64 {
		b.dirty = ^BindingSlotMask(0)
		return
	}
	b.dirty = BindingSlotMask(1<<uint(len(b.entries))) - 1
}

// ClearDirty marks slot current (spec.md: "clear_dirty(slot) marks it
// current").
func (b *BindingSet[T]) ClearDirty(slot int) { b.dirty &^= 1 << uint(slot) }

// AnyDirtyMasked reports whether any slot the pipeline cares about
// (pipelineMask) is currently dirty.
func (b *BindingSet[T]) AnyDirtyMasked(pipelineMask BindingSlotMask) bool {
	return b.dirty&pipelineMask != 0
}

// DirtyMask returns the raw dirty bitmask.
func (b *BindingSet[T]) DirtyMask() BindingSlotMask { return b.dirty }

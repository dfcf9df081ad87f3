package core

import "testing"

func TestTexturePool_AllocateRecyclesAfterCoherentSeqID(t *testing.T) {
	minted := 0
	p := NewTexturePool(AllocGPUPrivate, func(AllocationFlags) *Allocation {
		minted++
		return NewTextureAllocation(nil, AllocGPUPrivate)
	})

	discarded := NewTextureAllocation(nil, AllocGPUPrivate)
	p.Discard(discarded, 10)

	if got := p.Allocate(5); got == nil || minted != 1 {
		t.Fatalf("Allocate before the retirement sequence should mint fresh, minted=%d", minted)
	}
	if got := p.Allocate(10); got != discarded || minted != 1 {
		t.Fatalf("Allocate at the retirement sequence should recycle the discarded Allocation, minted=%d", minted)
	}
}

func TestTexturePool_DiscardNilIsNoop(t *testing.T) {
	p := NewTexturePool(AllocGPUPrivate, func(AllocationFlags) *Allocation {
		return NewTextureAllocation(nil, AllocGPUPrivate)
	})
	p.Discard(nil, 5)
	if len(p.fifo) != 0 {
		t.Fatalf("Discard(nil) should not queue anything, fifo len=%d", len(p.fifo))
	}
}

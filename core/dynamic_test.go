package core

import "testing"

func TestDynamicBuffer_AllocateReusesOnlyAfterCoherentSeqID(t *testing.T) {
	minted := 0
	db := NewDynamicBuffer(nil, AllocGPUManaged, NewBufferAllocation(nil, AllocGPUManaged), func(AllocationFlags) *Allocation {
		minted++
		return NewBufferAllocation(nil, AllocGPUManaged)
	})

	retired := NewBufferAllocation(nil, AllocGPUManaged)
	db.UpdateImmediateName(10, retired, 0, false)
	// the previous immediate name (seeded in NewDynamicBuffer) is now queued
	// with willFreeAt = 10.

	if got := db.Allocate(5); got == nil || minted != 1 {
		t.Fatalf("Allocate before coherent seq should mint a fresh Allocation, minted=%d", minted)
	}
	if got := db.Allocate(10); got == nil || minted != 1 {
		t.Fatalf("Allocate at coherent seq 10 should recycle the queued Allocation, minted=%d", minted)
	}
}

func TestDynamicBuffer_RecycleKeepsCommandListOwnedName(t *testing.T) {
	initial := NewBufferAllocation(nil, AllocGPUManaged)
	db := NewDynamicBuffer(nil, AllocGPUManaged, initial, func(AllocationFlags) *Allocation {
		return NewBufferAllocation(nil, AllocGPUManaged)
	})
	db.UpdateImmediateName(1, initial, 0, true)

	before := len(db.fifo)
	db.Recycle(1, initial)
	if db.ImmediateName() != initial {
		t.Fatal("Recycle of the still-current command-list-owned name must not replace it")
	}
	if db.ownedByCmdList {
		t.Fatal("Recycle should clear ownedByCmdList once the command list has retired")
	}
	if len(db.fifo) != before {
		t.Fatalf("Recycle of the still-owned name should not additionally queue it, fifo len=%d want %d", len(db.fifo), before)
	}
}

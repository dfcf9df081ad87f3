package core

import "testing"

func TestStagingResource_TryMap(t *testing.T) {
	s := NewStagingResource(NewBufferAllocation(nil, AllocShared), 0, 0, func() *Allocation {
		return NewBufferAllocation(nil, AllocShared)
	})

	if got := s.TryMap(0, true, false); got.Kind != MapOutcomeMappable {
		t.Fatalf("TryMap on a fresh resource = %v, want Mappable", got.Kind)
	}
	s.Unmap()

	s.UseCopyDestination(5)
	if got := s.TryMap(3, true, false); got.Kind != MapOutcomeWouldBlock || got.WaitSequences != 2 {
		t.Fatalf("TryMap(read) before the write lands = %+v, want WouldBlock waiting 2", got)
	}

	if got := s.TryMap(5, true, false); got.Kind != MapOutcomeMappable {
		t.Fatalf("TryMap(read) once coherent seq reaches the write = %v, want Mappable", got.Kind)
	}
	s.Unmap()
}

func TestStagingResource_TryMapWriteRenamableVsBlock(t *testing.T) {
	// UseCopySource only pushes the write (gpu-occupied-until) watermark,
	// leaving the read (cpu-coherent-after) watermark at zero — a write
	// can safely rename past a pending read that was never queued.
	s := NewStagingResource(NewBufferAllocation(nil, AllocShared), 0, 0, func() *Allocation {
		return NewBufferAllocation(nil, AllocShared)
	})
	s.UseCopySource(10)

	if got := s.TryMap(0, false, true); got.Kind != MapOutcomeRenamable {
		t.Fatalf("TryMap(write) with no pending read dependency = %v, want Renamable", got.Kind)
	}

	// Once a copy-destination queues a read dependency too, an earlier
	// coherent seq must block outright rather than rename.
	s2 := NewStagingResource(NewBufferAllocation(nil, AllocShared), 0, 0, func() *Allocation {
		return NewBufferAllocation(nil, AllocShared)
	})
	s2.UseCopyDestination(10)
	if got := s2.TryMap(0, false, true); got.Kind != MapOutcomeWouldBlock {
		t.Fatalf("TryMap(write) with a pending read dependency = %v, want WouldBlock", got.Kind)
	}
}

func TestStagingResource_TryMapAlreadyMapped(t *testing.T) {
	s := NewStagingResource(NewBufferAllocation(nil, AllocShared), 0, 0, func() *Allocation {
		return NewBufferAllocation(nil, AllocShared)
	})
	s.TryMap(0, true, true)
	if got := s.TryMap(0, true, true); got.Kind != MapOutcomeMapped {
		t.Fatalf("TryMap while already mapped = %v, want Mapped", got.Kind)
	}
}

func TestStagingResource_AllocateRecyclesAfterUpdateImmediateName(t *testing.T) {
	minted := 0
	initial := NewBufferAllocation(nil, AllocShared)
	s := NewStagingResource(initial, 0, 0, func() *Allocation {
		minted++
		return NewBufferAllocation(nil, AllocShared)
	})

	s.UpdateImmediateName(7, NewBufferAllocation(nil, AllocShared))
	if got := s.Allocate(3); got == nil || minted != 1 {
		t.Fatalf("Allocate before the retirement sequence should mint fresh, minted=%d", minted)
	}
	if got := s.Allocate(7); got != initial || minted != 1 {
		t.Fatalf("Allocate at the retirement sequence should recycle the old name, minted=%d", minted)
	}
}

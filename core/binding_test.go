package core

import "testing"

func TestBindingSet_BindReportsReplaced(t *testing.T) {
	bs := NewBindingSet[int](4)

	if _, replaced := bs.Bind(0, 7); !replaced {
		t.Fatal("first bind to an empty slot must report replaced")
	}
	bs.ClearDirty(0)

	if _, replaced := bs.Bind(0, 7); replaced {
		t.Fatal("rebinding the identical entry must not report replaced")
	}
	if prev, replaced := bs.Bind(0, 9); !replaced || prev != 7 {
		t.Fatalf("Bind(0, 9) = prev=%d replaced=%v, want prev=7 replaced=true", prev, replaced)
	}
}

func TestBindingSet_DirtyTracking(t *testing.T) {
	bs := NewBindingSet[int](4)
	bs.Bind(1, 42)

	mask := BindingSlotMask(0).WithSlot(1)
	if !bs.AnyDirtyMasked(mask) {
		t.Fatal("slot 1 should be dirty after Bind")
	}
	bs.ClearDirty(1)
	if bs.AnyDirtyMasked(mask) {
		t.Fatal("ClearDirty(1) should clear the pipeline-masked dirty check")
	}

	bs.SetDirty(1)
	if !bs.AnyDirtyMasked(mask) {
		t.Fatal("SetDirty(1) should re-dirty slot 1 without rebinding")
	}
}

func TestBindingSet_UnbindMarksDirty(t *testing.T) {
	bs := NewBindingSet[int](4)
	bs.Bind(2, 1)
	bs.ClearDirty(2)

	bs.Unbind(2)
	if bs.TestBound(2) {
		t.Fatal("Unbind should clear the bound flag")
	}
	if !bs.AnyDirtyMasked(BindingSlotMask(0).WithSlot(2)) {
		t.Fatal("Unbind should mark the slot dirty")
	}
}

func TestBindingSet_SetAllDirty(t *testing.T) {
	bs := NewBindingSet[int](3)
	bs.ClearDirty(0)
	bs.ClearDirty(1)
	bs.ClearDirty(2)

	bs.SetAllDirty()
	for slot := 0; slot < 3; slot++ {
		if !bs.AnyDirtyMasked(BindingSlotMask(0).WithSlot(slot)) {
			t.Fatalf("slot %d should be dirty after SetAllDirty", slot)
		}
	}
}

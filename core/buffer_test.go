package core

import (
	"testing"

	"github.com/dxmt-go/metallayer/core/track"
)

func TestBuffer_RenameBumpsVersionAndInvalidatesCache(t *testing.T) {
	lock := NewSnatchLock()
	a1 := NewBufferAllocation(nil, AllocGPUManaged)
	buf := NewBuffer(lock, a1, 256, track.TrackerIndex(0))

	if got := buf.Version(); got != 0 {
		t.Fatalf("initial Version() = %d, want 0", got)
	}

	readGuard := lock.Read()
	if got := buf.Current(readGuard); got != a1 {
		t.Fatalf("Current() = %v, want %v", got, a1)
	}
	readGuard.Release()

	a2 := NewBufferAllocation(nil, AllocGPUManaged)
	writeGuard := lock.Write()
	prev := buf.Rename(writeGuard, a2)
	writeGuard.Release()

	if prev != a1 {
		t.Fatalf("Rename returned %v, want displaced %v", prev, a1)
	}
	if got := buf.Version(); got != 1 {
		t.Fatalf("Version() after rename = %d, want 1", got)
	}

	readGuard = lock.Read()
	if got := buf.Current(readGuard); got != a2 {
		t.Fatalf("Current() after rename = %v, want %v", got, a2)
	}
	readGuard.Release()
}

func TestBuffer_CreateViewIsContentAddressed(t *testing.T) {
	lock := NewSnatchLock()
	buf := NewBuffer(lock, NewBufferAllocation(nil, AllocGPUManaged), 1024, track.TrackerIndex(0))

	d1 := BufferViewDescriptor{ElemCount: 16, ElemStride: 4}
	d2 := BufferViewDescriptor{ElemCount: 32, ElemStride: 4}

	k1 := buf.CreateView(d1)
	k2 := buf.CreateView(d2)
	k1Again := buf.CreateView(d1)

	if k1 != k1Again {
		t.Fatalf("CreateView(d1) twice returned %d then %d, want the same key", k1, k1Again)
	}
	if k1 == k2 {
		t.Fatalf("CreateView with distinct descriptors returned the same key %d", k1)
	}
}

func TestBuffer_ViewRebuildsOnRename(t *testing.T) {
	lock := NewSnatchLock()
	a1 := NewBufferAllocation(nil, AllocGPUManaged)
	buf := NewBuffer(lock, a1, 256, track.TrackerIndex(0))

	key := buf.CreateView(BufferViewDescriptor{ElemCount: 4, ElemStride: 4})

	guard := lock.Read()
	v1, ok := buf.View(guard, key)
	guard.Release()
	if !ok || v1.Allocation != a1 {
		t.Fatalf("initial View() = %+v, ok=%v, want Allocation %v", v1, ok, a1)
	}

	a2 := NewBufferAllocation(nil, AllocGPUManaged)
	wg := lock.Write()
	buf.Rename(wg, a2)
	wg.Release()

	guard = lock.Read()
	v2, ok := buf.View(guard, key)
	guard.Release()
	if !ok || v2.Allocation != a2 {
		t.Fatalf("View() after rename = %+v, ok=%v, want Allocation %v", v2, ok, a2)
	}
}

func TestBuffer_ViewOutOfRangeKeyFails(t *testing.T) {
	lock := NewSnatchLock()
	buf := NewBuffer(lock, NewBufferAllocation(nil, AllocGPUManaged), 256, track.TrackerIndex(0))

	guard := lock.Read()
	defer guard.Release()
	if _, ok := buf.View(guard, ViewKey(99)); ok {
		t.Fatal("View() with an unregistered key should fail")
	}
}

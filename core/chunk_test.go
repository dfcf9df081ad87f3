package core

import (
	"errors"
	"testing"

	"github.com/dxmt-go/metallayer/metal"
)

func TestCommandChunk_RecordReplayOrder(t *testing.T) {
	c := NewCommandChunk(1, nil)
	if c.Status() != ChunkStatusRecording {
		t.Fatalf("new chunk status = %v, want Recording", c.Status())
	}

	var order []int
	c.Record(func(cb *metal.CommandBuffer) error { order = append(order, 1); return nil })
	c.Record(func(cb *metal.CommandBuffer) error { order = append(order, 2); return nil })

	if err := c.Replay(nil); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("Replay order = %v, want [1 2]", order)
	}
}

func TestCommandChunk_ReplayStopsAtFirstError(t *testing.T) {
	c := NewCommandChunk(1, nil)
	wantErr := errors.New("boom")

	ran := 0
	c.Record(func(cb *metal.CommandBuffer) error { ran++; return wantErr })
	c.Record(func(cb *metal.CommandBuffer) error { ran++; return nil })

	if err := c.Replay(nil); !errors.Is(err, wantErr) {
		t.Fatalf("Replay error = %v, want %v", err, wantErr)
	}
	if ran != 1 {
		t.Fatalf("Replay ran %d records, want 1 (stop at first error)", ran)
	}
}

func TestCommandChunk_RecordAfterFinishPanics(t *testing.T) {
	c := NewCommandChunk(1, nil)
	c.Finish()
	if c.Status() != ChunkStatusFinished {
		t.Fatalf("status after Finish = %v, want Finished", c.Status())
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Record after Finish should panic")
		}
	}()
	c.Record(func(cb *metal.CommandBuffer) error { return nil })
}

func TestCommandChunk_RetainAllocationAndRelease(t *testing.T) {
	c := NewCommandChunk(1, nil)
	a := NewBufferAllocation(&metal.Buffer{}, AllocGPUManaged)

	c.RetainAllocation(a)
	if len(c.auxRefs) != 1 {
		t.Fatalf("RetainAllocation should append to auxRefs, len=%d", len(c.auxRefs))
	}

	c.Release()
	if len(c.auxRefs) != 0 {
		t.Fatalf("Release should clear auxRefs, len=%d", len(c.auxRefs))
	}
}

package core

import (
	"sync"
	"sync/atomic"

	"github.com/dxmt-go/metallayer/core/track"
	"github.com/dxmt-go/metallayer/metal"
)

// ChunkStatus mirrors the encoder-adjacent lifecycle of a CommandChunk: a
// chunk is recorded into, then finished and handed to the queue for
// submission, then marked submitted once its Metal command buffer has been
// committed. Nothing in this package sets ChunkStatusConsumed.
//
// Grounded on the teacher's CoreCommandEncoder status machine
// (Recording/Locked/Finished/Consumed), generalized from "one encoder
// wraps one HAL command buffer" to "one chunk accumulates many command
// records replayed onto potentially several Metal encoders at submit
// time" (spec.md §3 CommandChunk, §4.3 encoder state machine).
type ChunkStatus int32

const (
	ChunkStatusRecording ChunkStatus = iota
	ChunkStatusFinished
	ChunkStatusSubmitted
	ChunkStatusConsumed
)

// chunkRecord is one deferred command-buffer operation. Go closures stand
// in for the original's arena of tagged command structs: each record
// receives the live Metal command buffer at submit time and does whatever
// encoding it needs, including opening/closing its own encoders.
type chunkRecord func(cb *metal.CommandBuffer) error

// CommandChunk is an arena of recorded work — command records, auxiliary
// Allocation references that must outlive the chunk's GPU execution, and
// the GPU argument/staging heap it allocates from — corresponding to one
// deferred or immediate context's batch of recording between two Flush
// points. CommandQueue.NewChunk gives every chunk the queue's one shared
// Staging ring as its ArgumentHeap; chunks do not own separate heaps.
//
// CurrentSeqID is the sequence ID assigned to this chunk at creation;
// CoherentSeqID (read via the owning CommandQueue) is the highest
// sequence ID known completed on the GPU as of the last check.
type CommandChunk struct {
	status atomic.Int32

	CurrentSeqID uint64

	mu         sync.Mutex
	records    []chunkRecord
	auxRefs    []*Allocation
	visibility *metal.Buffer // nil until an occlusion query is used in this chunk

	ArgumentHeap *RingBumpAllocator
	Residency    *track.ResidencyTracker
}

// NewCommandChunk allocates a chunk that takes its argument tables from
// argumentHeap (shared storage mode, CPU-visible ring; the allocator may be
// shared with other chunks).
func NewCommandChunk(seqID uint64, argumentHeap *RingBumpAllocator) *CommandChunk {
	c := &CommandChunk{
		CurrentSeqID: seqID,
		ArgumentHeap: argumentHeap,
		Residency:    track.NewResidencyTracker(),
	}
	c.status.Store(int32(ChunkStatusRecording))
	return c
}

// Status returns the chunk's current lifecycle state.
func (c *CommandChunk) Status() ChunkStatus { return ChunkStatus(c.status.Load()) }

// Record appends a deferred command-buffer operation. Panics if the chunk
// is not in the Recording state — a programming error, since nothing
// should record into a chunk already handed to the queue.
func (c *CommandChunk) Record(op func(cb *metal.CommandBuffer) error) {
	if c.Status() != ChunkStatusRecording {
		panic("core: Record called on a non-recording CommandChunk")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, op)
}

// RetainAllocation adds alloc to the chunk's auxiliary reference list,
// retaining it so a rename racing this chunk's submission cannot free the
// Allocation out from under still-pending GPU work.
func (c *CommandChunk) RetainAllocation(alloc *Allocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auxRefs = append(c.auxRefs, alloc.Retain())
}

// VisibilityBuffer returns the chunk's occlusion-query result buffer,
// allocating it lazily via newBuffer on first use.
func (c *CommandChunk) VisibilityBuffer(newBuffer func() (*metal.Buffer, error)) (*metal.Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visibility != nil {
		return c.visibility, nil
	}
	buf, err := newBuffer()
	if err != nil {
		return nil, err
	}
	c.visibility = buf
	return buf, nil
}

// Finish transitions the chunk from Recording to Finished, preventing
// further Record calls; the queue submits a Finished chunk's records as
// one Metal command buffer.
func (c *CommandChunk) Finish() {
	c.status.Store(int32(ChunkStatusFinished))
}

// Replay executes every recorded operation against cb in order, stopping
// at the first error.
func (c *CommandChunk) Replay(cb *metal.CommandBuffer) error {
	c.mu.Lock()
	records := c.records
	c.mu.Unlock()
	for _, rec := range records {
		if err := rec(cb); err != nil {
			return err
		}
	}
	return nil
}

// Release releases every Allocation the chunk retained once its GPU work
// has certainly completed (the queue calls this after CoherentSeqID
// passes CurrentSeqID).
func (c *CommandChunk) Release() {
	c.mu.Lock()
	refs := c.auxRefs
	c.auxRefs = nil
	c.mu.Unlock()
	for _, a := range refs {
		a.Release()
	}
}

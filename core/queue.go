package core

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dxmt-go/metallayer/metal"
)

// CommandQueueChunkCapacity is the default number of chunks kept live in
// the queue's ring, matching spec.md §3's "ring of live chunks (capacity
// >= 2, default 3)".
const CommandQueueChunkCapacity = 3

// CounterPool hands out small GPU-visible counter buffers used for UAV
// append/consume and structured-buffer counters, recycled the same way a
// DynamicBuffer recycles Allocations.
type CounterPool struct {
	device *metal.Device

	mu   sync.Mutex
	free []*metal.Buffer
}

// NewCounterPool constructs an empty pool.
func NewCounterPool(device *metal.Device) *CounterPool {
	return &CounterPool{device: device}
}

// Acquire returns a zeroed 4-byte counter buffer, reusing a released one
// if available.
func (p *CounterPool) Acquire() (*metal.Buffer, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		zero := buf.Contents()
		if zero != nil {
			*(*uint32)(zero) = 0
			buf.DidModifyRange(0, 4)
		}
		return buf, nil
	}
	p.mu.Unlock()
	return p.device.NewBuffer(4, metal.ResourceStorageModeShared, "uav-counter")
}

// Release returns buf to the pool for reuse.
func (p *CounterPool) Release(buf *metal.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, buf)
}

// CommandQueue owns the Metal command queue's Go-side bookkeeping: the
// sequence-ID counters, the shared GPU/CPU completion event, the counter
// pool, the staging ring allocator, and the ring of live chunks a
// deferred/immediate context recorded into.
//
// Grounded on spec.md §3's CommandQueue description and the teacher's
// CoreCommandEncoder/CoreCommandBuffer submit path (device queue +
// completion tracking), generalized from "one HAL command buffer per
// Finish()" to "one Metal command buffer replays one CommandChunk's
// recorded closures".
type CommandQueue struct {
	device *metal.Device
	event  *metal.Event

	nextSeqID     atomic.Uint64
	coherentSeqID atomic.Uint64

	Counters *CounterPool
	Staging  *RingBumpAllocator

	mu     sync.Mutex
	chunks []*CommandChunk
}

// NewCommandQueue constructs a queue bound to device's implicit Metal
// command queue.
func NewCommandQueue(device *metal.Device) (*CommandQueue, error) {
	event, err := device.NewEvent()
	if err != nil {
		return nil, fmt.Errorf("core: creating queue completion event: %w", err)
	}
	q := &CommandQueue{
		device:   device,
		event:    event,
		Counters: NewCounterPool(device),
	}
	q.nextSeqID.Store(1)
	q.Staging = NewRingBumpAllocator(true, func(size uint64) (*metal.Buffer, error) {
		return device.NewBuffer(size, metal.ResourceStorageModeShared, "command-queue-staging")
	})
	return q, nil
}

// CoherentSeqID returns the highest sequence ID known completed on the
// GPU, as advanced by Submit's completion handler.
func (q *CommandQueue) CoherentSeqID() uint64 { return q.coherentSeqID.Load() }

// NewChunk allocates the next CommandChunk in sequence, evicting the
// oldest ring entry once the ring reaches CommandQueueChunkCapacity
// (releasing its auxiliary Allocation references first, unless it is a
// submitted chunk the GPU has not yet completed; Submit's completion
// handler releases those).
func (q *CommandQueue) NewChunk() *CommandChunk {
	seqID := q.nextSeqID.Add(1) - 1
	chunk := NewCommandChunk(seqID, q.Staging)

	q.mu.Lock()
	q.chunks = append(q.chunks, chunk)
	if len(q.chunks) > CommandQueueChunkCapacity {
		evicted := q.chunks[0]
		q.chunks = q.chunks[1:]
		if evicted.Status() != ChunkStatusSubmitted || evicted.CurrentSeqID <= q.coherentSeqID.Load() {
			evicted.Release()
		}
	}
	q.mu.Unlock()
	return chunk
}

// Submit finishes chunk, replays its recorded closures onto a fresh Metal
// command buffer, and commits it. The completion handler advances
// coherentSeqID and signals the shared event once the GPU is done.
func (q *CommandQueue) Submit(chunk *CommandChunk) error {
	chunk.Finish()

	cmdbuf, err := q.device.NewCommandBuffer()
	if err != nil {
		return fmt.Errorf("core: allocating command buffer for chunk %d: %w", chunk.CurrentSeqID, err)
	}
	if err := chunk.Replay(cmdbuf); err != nil {
		return fmt.Errorf("core: replaying chunk %d: %w", chunk.CurrentSeqID, err)
	}

	seqID := chunk.CurrentSeqID
	cmdbuf.AddCompletedHandler(func() {
		for {
			cur := q.coherentSeqID.Load()
			if seqID <= cur || q.coherentSeqID.CompareAndSwap(cur, seqID) {
				break
			}
		}
		q.event.SetSignaledValue(seqID)
		chunk.Release()
	})
	chunk.status.Store(int32(ChunkStatusSubmitted))
	cmdbuf.Commit()
	return nil
}

// Event returns the MTLSharedEvent signaled on every chunk's completion.
func (q *CommandQueue) Event() *metal.Event { return q.event }

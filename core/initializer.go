package core

import (
	"sync"
	"time"
	"unsafe"

	"github.com/dxmt-go/metallayer/metal"
)

// ResourceInitializerGPUUploadHeapAlignment is the byte alignment every
// staging suballocation inside the initializer's own upload ring is
// rounded up to.
const ResourceInitializerGPUUploadHeapAlignment = 256

// pendingBlit is one deferred blit-encoder command: a zero-fill or a
// data-upload copy, queued until the next flush batches them onto a
// single MTLBlitCommandEncoder. Go closures replace the arena of typed
// command structs the original builds by hand.
type pendingBlit func(*metal.BlitEncoder)

// ResourceInitializer batches the "must be initialized before first use"
// work a freshly created D3D11 resource needs — zero-filling, or copying
// caller-supplied initial data — onto its own command buffers on the
// device's implicit command queue, so the main recording path never stalls
// waiting for a small one-off blit.
//
// Grounded on dxmt_resource_initializer.hpp/.cpp: an internal sequence-ID
// counter, a RingBumpAllocator-backed staging heap for initWithData's
// source bytes, and an MTLSharedEvent signaled after the batched command
// buffer completes so callers can Wait() for a specific initialization to
// have landed before they issue a dependent draw/dispatch.
type ResourceInitializer struct {
	device *metal.Device
	event  *metal.Event
	upload *RingBumpAllocator

	mu                  sync.Mutex
	currentSeqID        uint64
	cachedCoherentSeqID uint64
	pending             []pendingBlit
}

// NewResourceInitializer constructs an initializer backed by device's
// implicit command queue.
func NewResourceInitializer(device *metal.Device) (*ResourceInitializer, error) {
	event, err := device.NewEvent()
	if err != nil {
		return nil, err
	}
	r := &ResourceInitializer{
		device:       device,
		event:        event,
		currentSeqID: 1,
	}
	r.upload = NewRingBumpAllocator(true, func(size uint64) (*metal.Buffer, error) {
		return device.NewBuffer(size, metal.ResourceStorageModeShared, "resource-initializer-upload")
	})
	return r, nil
}

// InitWithZero queues a zero-fill of [offset, offset+length) in buf's
// current allocation. Returns the sequence ID the caller must Wait() for.
func (r *ResourceInitializer) InitWithZero(buf *metal.Buffer, offset, length uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seqID := r.currentSeqID
	r.pending = append(r.pending, func(enc *metal.BlitEncoder) {
		enc.FillBuffer(buf, offset, length, 0)
	})
	return seqID
}

// InitWithData queues a copy of data into dst's current allocation,
// staging data through the initializer's own CPU-visible ring allocator.
// The copy is one contiguous len(data)-byte copy to dstOffset; rowPitch and
// depthPitch are not used, so rows are not repacked. Returns the sequence
// ID to Wait() for.
func (r *ResourceInitializer) InitWithData(dst *metal.Buffer, dstOffset uint64, data []byte, rowPitch, depthPitch uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	seqID := r.currentSeqID
	staged, err := r.upload.Allocate(seqID, r.cachedCoherentSeqID, uint64(len(data)), ResourceInitializerGPUUploadHeapAlignment)
	if err != nil {
		return seqID
	}
	copy(unsafe.Slice((*byte)(staged.CPU), len(data)), data)

	r.pending = append(r.pending, func(enc *metal.BlitEncoder) {
		enc.CopyBufferToBuffer(staged.Buffer, staged.Offset, dst, dstOffset, uint64(len(data)))
	})
	_ = rowPitch
	_ = depthPitch
	return seqID
}

// FlushToWait encodes and commits every queued operation as a single
// command buffer, returning the sequence ID to Wait() for. Returns 0 if
// there was nothing pending.
func (r *ResourceInitializer) FlushToWait() uint64 {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return 0
	}
	ops := r.pending
	r.pending = nil
	seqID := r.currentSeqID
	r.currentSeqID++
	r.mu.Unlock()

	cmdbuf, err := r.device.NewCommandBuffer()
	if err != nil {
		return 0
	}
	enc := cmdbuf.NewBlitEncoder()
	for _, op := range ops {
		op(enc)
	}
	enc.EndEncoding()

	cmdbuf.AddCompletedHandler(func() {
		r.mu.Lock()
		if seqID > r.cachedCoherentSeqID {
			r.cachedCoherentSeqID = seqID
		}
		r.mu.Unlock()
		r.event.SetSignaledValue(seqID)
	})
	cmdbuf.Commit()
	return seqID
}

// Wait blocks until seqID's command buffer has completed, or timeout
// elapses. A seqID already known complete (cachedCoherentSeqID >= seqID)
// returns immediately without touching the event.
func (r *ResourceInitializer) Wait(seqID uint64, timeoutNanoseconds int64) bool {
	r.mu.Lock()
	done := r.cachedCoherentSeqID >= seqID
	r.mu.Unlock()
	if done {
		return true
	}
	return r.event.Wait(seqID, time.Duration(timeoutNanoseconds))
}

// Event returns the MTLSharedEvent signaled on every flush's completion.
func (r *ResourceInitializer) Event() *metal.Event { return r.event }

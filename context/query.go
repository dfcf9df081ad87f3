// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package context

import (
	"fmt"
	"unsafe"

	"github.com/dxmt-go/metallayer/metal"
)

func offsetPtr(base unsafe.Pointer, offset uint64) unsafe.Pointer {
	return unsafe.Add(base, offset)
}

// occlusionVisibilityCounterSize is the byte width of one
// MTLVisibilityResultMode counter slot.
const occlusionVisibilityCounterSize = 8

// occlusionState tracks the context's rotating offset into each chunk's
// per-chunk visibility buffer and the in-flight queries waiting on a
// retired chunk's results (spec.md §4.6).
type occlusionState struct {
	nextOffset uint64
	active     *OcclusionQuery
	pending    []*OcclusionQuery
}

// OcclusionQuery is one D3D11 occlusion query's lifetime: the chunk and
// offset it was recorded against, and whether GetData has observed the
// chunk retire.
type OcclusionQuery struct {
	chunkSeqID uint64
	offset     uint64
	ended      bool
	buf        *metal.Buffer
}

// NewOcclusionQuery allocates a query handle; Begin binds it to the
// current chunk's visibility buffer slot.
func NewOcclusionQuery() *OcclusionQuery { return &OcclusionQuery{} }

// BeginQuery rotates to the next visibility-buffer offset in the current
// chunk and switches the render encoder (if one is open) into Counting
// mode at that offset, per spec.md §4.6: "the context calls
// SetVisibilityResultMode(Counting, offset) where offset rotates through
// the buffer."
func (c *Context) BeginQuery(q *OcclusionQuery) error {
	c.beginChunk()
	offset := c.occlusion.nextOffset
	c.occlusion.nextOffset = (offset + occlusionVisibilityCounterSize) % (OcclusionSampleCount * occlusionVisibilityCounterSize)

	q.chunkSeqID = c.chunk.CurrentSeqID
	q.offset = offset
	q.ended = false
	c.occlusion.active = q

	vizBuf, err := c.chunk.VisibilityBuffer(func() (*metal.Buffer, error) {
		return c.device.NewBuffer(OcclusionSampleCount*occlusionVisibilityCounterSize, metal.ResourceStorageModeShared, "occlusion-visibility")
	})
	if err != nil {
		return fmt.Errorf("context: allocating visibility buffer: %w", err)
	}
	q.buf = vizBuf

	cell := c.cell
	c.chunk.Record(func(cb *metal.CommandBuffer) error {
		if cell.render != nil {
			cell.render.SetVisibilityResultMode(metal.VisibilityResultModeCounting, offset)
		}
		return nil
	})
	return nil
}

// EndQuery disables visibility counting for subsequent draws; the query's
// result becomes readable once q's chunk retires.
func (c *Context) EndQuery(q *OcclusionQuery) {
	q.ended = true
	if c.occlusion.active == q {
		c.occlusion.active = nil
	}
	c.occlusion.pending = append(c.occlusion.pending, q)

	cell := c.cell
	if c.chunk != nil {
		c.chunk.Record(func(cb *metal.CommandBuffer) error {
			if cell.render != nil {
				cell.render.SetVisibilityResultMode(metal.VisibilityResultModeDisabled, 0)
			}
			return nil
		})
	}
}

// GetQueryData reads q's sample count from the retired chunk's visibility
// buffer. Returns (0, false) if q's chunk has not yet completed on the
// GPU (the D3D11 caller should retry, matching ID3D11DeviceContext::
// GetData's polling contract).
func (c *Context) GetQueryData(q *OcclusionQuery) (uint64, bool) {
	if !q.ended {
		return 0, false
	}
	if q.chunkSeqID > c.queue.CoherentSeqID() {
		return 0, false
	}
	if q.buf == nil {
		return 0, false
	}
	contents := q.buf.Contents()
	if contents == nil {
		return 0, false
	}
	count := *(*uint64)(offsetPtr(contents, q.offset))
	return count, true
}

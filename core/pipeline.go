package core

import (
	"sync"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
	"github.com/dxmt-go/metallayer/metal"
)

// RenderPipelineKey is the descriptor-derived cache key for a compiled
// MTLRenderPipelineState. metal.RenderPipelineDescriptor is itself
// comparable (fixed-size arrays and scalars), so it doubles as its own
// key.
type RenderPipelineKey = metal.RenderPipelineDescriptor

// ComputePipelineKey caches by function identity: a given MTLFunction
// compiles to exactly one MTLComputePipelineState.
type ComputePipelineKey = objcbridge.ID

// PipelineCache memoizes compiled MTLRenderPipelineState/
// MTLComputePipelineState objects by descriptor, so repeated draws with
// the same D3D11 pipeline state never recompile. Backed by sync.Map: the
// hit path (the overwhelming majority of PreDraw/PreDispatch calls) never
// takes a lock, only the miss path does — reads racing a concurrent miss
// either see the old absence or the newly-stored entry, never a torn one.
//
// Grounded on SPEC_FULL.md §4.7 and the teacher's core/track dense-index
// tables for the "cache by descriptor" idea, generalized to Go's sync.Map
// since pipeline descriptors (unlike TrackerIndex) are not dense integers.
type PipelineCache struct {
	render  sync.Map // RenderPipelineKey -> *metal.RenderPipelineState
	compute sync.Map // ComputePipelineKey -> *metal.ComputePipelineState
}

// NewPipelineCache constructs an empty cache.
func NewPipelineCache() *PipelineCache { return &PipelineCache{} }

// RenderPipeline returns the cached MTLRenderPipelineState for key,
// compiling it via device.NewRenderPipelineState and storing it on a
// cache miss.
func (c *PipelineCache) RenderPipeline(device *metal.Device, key RenderPipelineKey) (*metal.RenderPipelineState, error) {
	if v, ok := c.render.Load(key); ok {
		return v.(*metal.RenderPipelineState), nil
	}
	state, err := device.NewRenderPipelineState(key)
	if err != nil {
		return nil, err
	}
	actual, loaded := c.render.LoadOrStore(key, state)
	if loaded {
		return actual.(*metal.RenderPipelineState), nil
	}
	return state, nil
}

// ComputePipeline returns the cached MTLComputePipelineState for
// function, compiling and storing it on a cache miss.
func (c *PipelineCache) ComputePipeline(device *metal.Device, function ComputePipelineKey) (*metal.ComputePipelineState, error) {
	if v, ok := c.compute.Load(function); ok {
		return v.(*metal.ComputePipelineState), nil
	}
	state, err := device.NewComputePipelineState(function)
	if err != nil {
		return nil, err
	}
	actual, loaded := c.compute.LoadOrStore(function, state)
	if loaded {
		return actual.(*metal.ComputePipelineState), nil
	}
	return state, nil
}

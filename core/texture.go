package core

import (
	"sync"
	"sync/atomic"

	"github.com/dxmt-go/metallayer/core/track"
	"github.com/dxmt-go/metallayer/metal"
)

// TextureViewDescriptor is the texture-side subset of spec.md's View
// descriptor: a mip/array subrange, optionally reinterpreted through a
// different (but storage-compatible) pixel format for SRV/RTV/DSV/UAV.
type TextureViewDescriptor struct {
	Format          metal.PixelFormat
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

type textureView struct {
	desc    TextureViewDescriptor
	version uint64
	raw     *metal.Texture // nil until first resolved, or after a rename
}

// Texture is the logical D3D11 resource counterpart to Buffer: a stable
// identity whose current Allocation is swapped by Map(WRITE_DISCARD) or
// by UpdateSubresource-driven renaming (spec.md §4.2).
type Texture struct {
	lock *SnatchLock

	current *Snatchable[*Allocation]
	version atomic.Uint64

	TrackerIndex track.TrackerIndex

	baseDesc metal.TextureDescriptor

	mu        sync.Mutex
	viewDescs []TextureViewDescriptor
	views     []textureView
}

// NewTexture wraps an initial Allocation as a new logical Texture.
// MipLevelCount/ArrayLength of 0 (D3D11's "not specified" default) are
// normalized to 1 so every other method can compare against baseDesc
// without special-casing the zero value.
func NewTexture(lock *SnatchLock, alloc *Allocation, baseDesc metal.TextureDescriptor, index track.TrackerIndex) *Texture {
	if baseDesc.MipLevelCount == 0 {
		baseDesc.MipLevelCount = 1
	}
	if baseDesc.ArrayLength == 0 {
		baseDesc.ArrayLength = 1
	}
	return &Texture{
		lock:         lock,
		current:      NewSnatchable(alloc),
		baseDesc:     baseDesc,
		TrackerIndex: index,
	}
}

// Descriptor returns the descriptor the backing Allocation was originally
// created with (dimensions, sample count, mip/array counts never change
// across a rename — only the backing storage does).
func (t *Texture) Descriptor() metal.TextureDescriptor { return t.baseDesc }

// Version returns the current rename version.
func (t *Texture) Version() uint64 { return t.version.Load() }

// Current returns the texture's current Allocation under a read guard.
// Returns nil if the texture has been destroyed.
func (t *Texture) Current(guard *SnatchGuard) *Allocation {
	p := t.current.Get(guard)
	if p == nil {
		return nil
	}
	return *p
}

// Rename installs newAlloc as the texture's current Allocation, bumps the
// version (invalidating every cached TextureView), and returns the
// displaced Allocation for the caller to hand to a reuse pool
// (DynamicTexture/TexturePool) or release outright.
func (t *Texture) Rename(guard *ExclusiveSnatchGuard, newAlloc *Allocation) *Allocation {
	prevPtr := t.current.Snatch(guard)
	t.current = NewSnatchable(newAlloc)
	t.version.Add(1)
	if prevPtr == nil {
		return nil
	}
	return *prevPtr
}

// CreateView returns the stable ViewKey for desc, creating a new cache
// slot on first use.
func (t *Texture) CreateView(desc TextureViewDescriptor) ViewKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, d := range t.viewDescs {
		if d == desc {
			return ViewKey(i)
		}
	}
	t.viewDescs = append(t.viewDescs, desc)
	t.views = append(t.views, textureView{})
	return ViewKey(len(t.viewDescs) - 1)
}

// ResolvedTextureView is a backend MTLTexture view lazily built against
// the texture's current Allocation.
type ResolvedTextureView struct {
	Allocation *Allocation
	Raw        *metal.Texture
	Desc       TextureViewDescriptor
}

// View resolves key against the texture's current Allocation, rebuilding
// the cached Metal texture-view object if the Allocation has been renamed
// or reformatted since it was last constructed (spec.md §4.2 "view(view_key)").
//
// whole reports whether desc matches the Allocation's native format exactly
// (no reinterpretation needed, so the Allocation's own texture is returned
// rather than a newTextureViewWithPixelFormat: object).
func (t *Texture) View(guard *SnatchGuard, key ViewKey) (*ResolvedTextureView, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(key) < 0 || int(key) >= len(t.viewDescs) {
		return nil, false
	}
	allocPtr := t.current.Get(guard)
	if allocPtr == nil {
		return nil, false
	}
	alloc := *allocPtr
	if alloc.Texture == nil {
		return nil, false
	}

	cur := t.version.Load()
	v := &t.views[key]
	desc := t.viewDescs[key]

	// A zero MipLevelCount/ArrayLayerCount means "the rest of the
	// resource from the base level/layer", matching D3D11's view
	// descriptor convention.
	mipCount := uint64(desc.MipLevelCount)
	if mipCount == 0 {
		mipCount = t.baseDesc.MipLevelCount - uint64(desc.BaseMipLevel)
	}
	arrayCount := uint64(desc.ArrayLayerCount)
	if arrayCount == 0 {
		arrayCount = t.baseDesc.ArrayLength - uint64(desc.BaseArrayLayer)
	}
	whole := desc.Format == t.baseDesc.PixelFormat &&
		desc.BaseMipLevel == 0 && mipCount == t.baseDesc.MipLevelCount &&
		desc.BaseArrayLayer == 0 && arrayCount == t.baseDesc.ArrayLength

	if v.version != cur {
		v.version = cur
		v.desc = desc
		v.raw = nil
		if whole {
			v.raw = alloc.Texture
		} else {
			raw, err := alloc.Texture.NewTextureViewRanged(desc.Format, t.baseDesc.Type,
				uint64(desc.BaseMipLevel), mipCount, uint64(desc.BaseArrayLayer), arrayCount)
			if err == nil {
				v.raw = raw
			}
		}
	}
	if v.raw == nil {
		return nil, false
	}
	return &ResolvedTextureView{Allocation: alloc, Raw: v.raw, Desc: desc}, true
}

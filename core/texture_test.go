package core

import (
	"testing"

	"github.com/dxmt-go/metallayer/core/track"
	"github.com/dxmt-go/metallayer/metal"
)

func TestTexture_RenameBumpsVersion(t *testing.T) {
	lock := NewSnatchLock()
	baseDesc := metal.TextureDescriptor{
		Type:        metal.TextureType2D,
		PixelFormat: metal.PixelFormatRGBA8Unorm,
		Width:       64,
		Height:      64,
	}
	a1 := NewTextureAllocation(nil, AllocGPUPrivate|AllocTracked)
	tex := NewTexture(lock, a1, baseDesc, track.TrackerIndex(1))

	if got := tex.Version(); got != 0 {
		t.Fatalf("initial Version() = %d, want 0", got)
	}

	a2 := NewTextureAllocation(nil, AllocGPUPrivate|AllocTracked)
	wg := lock.Write()
	prev := tex.Rename(wg, a2)
	wg.Release()

	if prev != a1 {
		t.Fatalf("Rename returned %v, want displaced %v", prev, a1)
	}
	if got := tex.Version(); got != 1 {
		t.Fatalf("Version() after rename = %d, want 1", got)
	}
}

func TestTexture_CreateViewIsContentAddressed(t *testing.T) {
	lock := NewSnatchLock()
	baseDesc := metal.TextureDescriptor{PixelFormat: metal.PixelFormatRGBA8Unorm, Width: 32, Height: 32}
	tex := NewTexture(lock, NewTextureAllocation(nil, AllocGPUPrivate), baseDesc, track.TrackerIndex(0))

	d1 := TextureViewDescriptor{Format: metal.PixelFormatRGBA8Unorm, MipLevelCount: 1, ArrayLayerCount: 1}
	d2 := TextureViewDescriptor{Format: metal.PixelFormatRGBA8UnormSRGB, MipLevelCount: 1, ArrayLayerCount: 1}

	k1 := tex.CreateView(d1)
	k1Again := tex.CreateView(d1)
	k2 := tex.CreateView(d2)

	if k1 != k1Again {
		t.Fatalf("CreateView(d1) twice returned %d then %d", k1, k1Again)
	}
	if k1 == k2 {
		t.Fatal("CreateView with distinct descriptors returned the same key")
	}
}

func TestTexture_ViewFailsWithoutBackingTexture(t *testing.T) {
	lock := NewSnatchLock()
	baseDesc := metal.TextureDescriptor{PixelFormat: metal.PixelFormatRGBA8Unorm, Width: 32, Height: 32}
	// A nil metal.Texture simulates an Allocation that was never actually
	// backed (e.g. construction failed before the caller checked the
	// error) — View must fail closed rather than panic.
	tex := NewTexture(lock, NewTextureAllocation(nil, AllocGPUPrivate), baseDesc, track.TrackerIndex(0))
	key := tex.CreateView(TextureViewDescriptor{Format: metal.PixelFormatRGBA8Unorm, ArrayLayerCount: 1, MipLevelCount: 1})

	guard := lock.Read()
	defer guard.Release()
	if _, ok := tex.View(guard, key); ok {
		t.Fatal("View() should fail when the current Allocation has no backing metal.Texture")
	}
}

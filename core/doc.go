// Package core implements the D3D11-on-Metal resource and command model:
// Buffer/Texture logical resources backed by swappable, reference-counted
// Allocations, a slot-indexed BindingSet with per-stage dirty tracking, an
// arena-allocated CommandChunk recorder, and the CommandQueue that turns
// retired chunks into submitted Metal command buffers.
//
// Architecture:
//
//	metal/    → Metal object model (MTLDevice, MTLBuffer, ...)
//	core/     → this package: resource virtualization + command recording
//	context/  → ContextState + encoder state machine, built on core
//	d3d11/    → thin COM-style surface, built on context
//
// Allocation renaming (D3D11 Map WRITE_DISCARD) is the central mechanism:
// a Buffer or Texture keeps a stable identity while its current Allocation
// is swapped out from under it, guarded by a SnatchLock so readers
// (argument-buffer upload, view resolution) never observe a torn Allocation.
//
// Thread safety: the recording path (one goroutine per deferred context,
// one for the immediate context) is lock-light by design — see
// SnatchLock's read/write split and BindingSet's per-slot dirty bitmask.
// Pool and queue bookkeeping (Dynamic/Staging/TexturePool, CommandQueue
// sequence IDs) is safe for concurrent use from the completion-handler
// goroutine racing the recording goroutine.
package core

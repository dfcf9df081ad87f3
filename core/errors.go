package core

import "errors"

// Sentinel errors matching the D3D11 error-kind taxonomy. Callers in the
// d3d11 package translate these into HRESULTs; nothing below this layer
// ever panics across a package boundary.
var (
	// ErrInvalidArgument covers malformed descriptors, out-of-range slot
	// indices, and format-incompatible views. No state is mutated when
	// this is returned.
	ErrInvalidArgument = errors.New("core: invalid argument")

	// ErrUnsupported covers a descriptor valid in D3D11 with no Metal
	// equivalent (tiled resource pool, unsupported format cast).
	ErrUnsupported = errors.New("core: unsupported")

	// ErrOutOfMemory is a backend allocation failure. Not retried here.
	ErrOutOfMemory = errors.New("core: out of memory")

	// ErrDeviceLost latches once a command buffer completes with an
	// error status; every subsequent operation on the device returns it.
	ErrDeviceLost = errors.New("core: device lost")

	// ErrWouldBlock is returned only for a Map call that requested
	// DO_NOT_WAIT semantics on a resource still touched by in-flight GPU
	// work. Without DO_NOT_WAIT the caller instead waits internally and
	// never observes this error.
	ErrWouldBlock = errors.New("core: map would block")
)

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/dxmt-go/metallayer/config"
	"github.com/dxmt-go/metallayer/core"
	"github.com/dxmt-go/metallayer/core/track"
	"github.com/dxmt-go/metallayer/metal"
)

// Device is the thin ID3D11Device-equivalent surface: it owns the shared
// Metal device, the command queue, the pipeline cache, and a SnatchLock
// shared by every logical resource it creates, and forwards every Create*
// call into core's constructors after descriptor validation.
//
// Grounded on original_source/src/d3d11/d3d11_device.cpp (via spec.md).
type Device struct {
	metal     *metal.Device
	queue     *core.CommandQueue
	pipelines *core.PipelineCache
	lock      *core.SnatchLock
	cfg       config.Config

	trackers *track.TrackerIndexAllocators

	lost bool
}

// NewDevice opens the system default Metal device and wires up the
// command queue and pipeline cache every DeviceContext created from this
// Device shares.
func NewDevice(cfg config.Config) (*Device, error) {
	mdev, err := metal.Open()
	if err != nil {
		return nil, fmt.Errorf("d3d11: opening Metal device: %w", err)
	}
	queue, err := core.NewCommandQueue(mdev)
	if err != nil {
		return nil, fmt.Errorf("d3d11: creating command queue: %w", err)
	}
	return &Device{
		metal:     mdev,
		queue:     queue,
		pipelines: core.NewPipelineCache(),
		lock:      core.NewSnatchLock(),
		cfg:       cfg,
		trackers:  track.NewTrackerIndexAllocators(),
	}, nil
}

// checkLost returns errDeviceLost once the device has latched a lost
// state (spec.md §7: "Device-lost ... latched; subsequent calls report
// lost-device").
func (d *Device) checkLost() error {
	if d.lost {
		return errDeviceLost
	}
	return nil
}

// MarkLost latches the device-lost state; every subsequent Device call
// that goes through checkLost fails with errDeviceLost. DeviceContext
// methods do not check the latch, and nothing in this module calls
// MarkLost: a command buffer's error status does not set it.
func (d *Device) MarkLost() { d.lost = true }

// CreateBuffer allocates a new logical Buffer (spec.md §3) backed by a
// fresh Metal buffer, matching D3D11's CreateBuffer + D3D11_BUFFER_DESC.
func (d *Device) CreateBuffer(byteWidth uint64, usage Usage, bind BindFlag, access CPUAccessFlag, initialData []byte) (*Buffer, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	if err := validateUsageBind(usage, bind, access); err != nil {
		return nil, err
	}
	if byteWidth == 0 {
		return nil, fmt.Errorf("d3d11: CreateBuffer with ByteWidth 0: %w", errInvalidArgument)
	}

	options, flags := storageOptionsFor(usage)
	mbuf, err := d.metal.NewBuffer(byteWidth, options, "")
	if err != nil {
		return nil, fmt.Errorf("d3d11: %w", errOutOfMemory)
	}
	if len(initialData) > 0 {
		contents := mbuf.Contents()
		if contents != nil {
			dst := unsafe.Slice((*byte)(contents), len(initialData))
			copy(dst, initialData)
			if options == metal.ResourceStorageModeManaged {
				mbuf.DidModifyRange(0, uint64(len(initialData)))
			}
		}
	}

	alloc := core.NewBufferAllocation(mbuf, flags)
	cb := core.NewBuffer(d.lock, alloc, byteWidth, d.trackers.Buffers.Alloc())
	return &Buffer{core: cb, usage: usage, bind: bind, access: access, length: byteWidth}, nil
}

// CreateTexture1D allocates a new logical 1D texture.
func (d *Device) CreateTexture1D(desc metal.TextureDescriptor, usage Usage, bind BindFlag, access CPUAccessFlag) (*Texture1D, error) {
	ct, err := d.newLogicalTexture(desc, usage, bind, access)
	if err != nil {
		return nil, err
	}
	return &Texture1D{core: ct, usage: usage, bind: bind, access: access, desc: desc}, nil
}

// CreateTexture2D allocates a new logical 2D texture.
func (d *Device) CreateTexture2D(desc metal.TextureDescriptor, usage Usage, bind BindFlag, access CPUAccessFlag) (*Texture2D, error) {
	ct, err := d.newLogicalTexture(desc, usage, bind, access)
	if err != nil {
		return nil, err
	}
	return &Texture2D{core: ct, usage: usage, bind: bind, access: access, desc: desc}, nil
}

// CreateTexture3D allocates a new logical 3D (volume) texture.
func (d *Device) CreateTexture3D(desc metal.TextureDescriptor, usage Usage, bind BindFlag, access CPUAccessFlag) (*Texture3D, error) {
	ct, err := d.newLogicalTexture(desc, usage, bind, access)
	if err != nil {
		return nil, err
	}
	return &Texture3D{core: ct, usage: usage, bind: bind, access: access, desc: desc}, nil
}

func (d *Device) newLogicalTexture(desc metal.TextureDescriptor, usage Usage, bind BindFlag, access CPUAccessFlag) (*core.Texture, error) {
	if err := d.checkLost(); err != nil {
		return nil, err
	}
	if err := validateUsageBind(usage, bind, access); err != nil {
		return nil, err
	}

	mtex, err := d.metal.NewTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("d3d11: %w", errOutOfMemory)
	}
	_, flags := storageOptionsFor(usage)
	alloc := core.NewTextureAllocation(mtex, flags)
	return core.NewTexture(d.lock, alloc, desc, d.trackers.Textures.Alloc()), nil
}

// NewContext creates a DeviceContext (the immediate context, or one of
// several deferred contexts) sharing this Device's queue and pipeline
// cache.
func (d *Device) NewContext() *DeviceContext {
	return newDeviceContext(d)
}

func storageOptionsFor(usage Usage) (metal.ResourceOptions, core.AllocationFlags) {
	switch usage {
	case UsageDefault, UsageImmutable:
		return metal.ResourceStorageModePrivate, core.AllocGPUPrivate | core.AllocTracked
	case UsageDynamic:
		return metal.ResourceStorageModeShared, core.AllocShared
	case UsageStaging:
		return metal.ResourceStorageModeShared, core.AllocShared | core.AllocCPUWriteCombined
	default:
		return metal.ResourceStorageModePrivate, core.AllocGPUPrivate
	}
}

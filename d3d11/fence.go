// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"fmt"
	"time"

	"github.com/dxmt-go/metallayer/metal"
)

// Fence is the ID3D11Fence-equivalent: a monotonically increasing
// CPU/GPU signal directly backed by MTLSharedEvent, matching the 1:1
// mapping original_source/src/d3d11/d3d11_fence.cpp uses (GetCompletedValue
// reads signaledValue, CreateFence sets the initial value, Signal/SetEventOnCompletion
// drive the same event from the CPU and GPU sides respectively).
//
// Cross-process sharing (CreateSharedHandle / OpenSharedFence via
// D3DKMT/mach-port handle export) is Windows-kernel-driver interop, not a
// Metal-facing concern, so it is left unimplemented here.
type Fence struct {
	event *metal.Event
}

// NewFence creates a Fence with the given initial value (ID3D11Device5::CreateFence).
func (d *Device) NewFence(initialValue uint64) (*Fence, error) {
	ev, err := d.metal.NewEvent()
	if err != nil {
		return nil, fmt.Errorf("d3d11: creating fence: %w", errOutOfMemory)
	}
	ev.SetSignaledValue(initialValue)
	return &Fence{event: ev}, nil
}

// GetCompletedValue mirrors ID3D11Fence::GetCompletedValue.
func (f *Fence) GetCompletedValue() uint64 {
	return f.event.SignaledValue()
}

// Signal mirrors ID3D11DeviceContext4::Signal: sets the fence's value
// from the CPU side, without waiting for any GPU work.
func (f *Fence) Signal(value uint64) {
	f.event.SetSignaledValue(value)
}

// SetEventOnCompletion mirrors ID3D11Fence::SetEventOnCompletion. D3D11's
// Win32 HANDLE/HANDLE-signaling model has no direct Go analogue, so this
// blocks the calling goroutine (typically run in its own goroutine by the
// caller) until the fence reaches value or timeout elapses, returning
// whether it was reached.
func (f *Fence) SetEventOnCompletion(value uint64, timeout time.Duration) bool {
	return f.event.Wait(value, timeout)
}

// CreateSharedHandle mirrors ID3D11Fence::CreateSharedHandle. Exporting a
// fence as a cross-process Win32 handle requires D3DKMT/mach-port kernel
// plumbing this translation layer does not model.
func (f *Fence) CreateSharedHandle() error {
	return fmt.Errorf("d3d11: fence sharing across processes: %w", errUnsupported)
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

// Event wraps id<MTLSharedEvent>, the GPU/CPU synchronization primitive
// used both for the D3D11 Fence surface and for internal chunk-completion
// tracking (core.CommandQueue). MTLSharedEvent, unlike MTLEvent, exposes a
// CPU-readable signaledValue and supports host-side wait notification.
type Event struct {
	raw    id
	device *Device
}

// NewEvent creates a new MTLSharedEvent.
func (d *Device) NewEvent() (*Event, error) {
	raw := send(d.raw, objcbridge.Sel("newSharedEvent"))
	if raw == 0 {
		return nil, fmt.Errorf("metal: newSharedEvent failed")
	}
	return &Event{raw: raw, device: d}, nil
}

// Raw exposes id<MTLSharedEvent>.
func (e *Event) Raw() id { return e.raw }

// SignaledValue returns the event's current CPU-visible value.
func (e *Event) SignaledValue() uint64 {
	return sendUint(e.raw, objcbridge.Sel("signaledValue"))
}

// SetSignaledValue forces the event's value from the CPU side (used to
// reset a reusable event between frames).
func (e *Event) SetSignaledValue(v uint64) {
	sendVoid(e.raw, objcbridge.Sel("setSignaledValue:"), uintptr(v))
}

// Wait blocks until the event reaches at least value, or timeout elapses.
// It prefers Metal's notifyListener:atValue:block: event-driven wait and
// falls back to progressive-backoff polling when block support is
// unavailable (e.g. _NSConcreteStackBlock could not be resolved).
func (e *Event) Wait(value uint64, timeout time.Duration) bool {
	if e.SignaledValue() >= value {
		return true
	}
	if ok, attempted := e.waitEventDriven(value, timeout); attempted {
		return ok
	}
	return e.waitPolling(value, timeout)
}

func (e *Event) waitEventDriven(value uint64, timeout time.Duration) (ok bool, attempted bool) {
	listener := e.device.getOrCreateEventListener()
	if listener == 0 {
		return false, false
	}
	blockPtr, blockID, done := objcbridge.NewNotifyBlock()
	if blockPtr == 0 {
		return false, false
	}
	defer objcbridge.ReleaseNotifyBlock(blockID)

	objcbridge.SendVoidArgs(e.raw, objcbridge.Sel("notifyListener:atValue:block:"),
		objcbridge.Ptr(uintptr(listener)),
		objcbridge.U64(value),
		objcbridge.Ptr(blockPtr),
	)
	runtime.KeepAlive(blockPtr)

	select {
	case <-done:
		return true, true
	case <-time.After(timeout):
		select {
		case <-done:
			return true, true
		default:
			return false, true
		}
	}
}

func (e *Event) waitPolling(value uint64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	spins := 0
	for {
		if e.SignaledValue() >= value {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		spins++
		switch {
		case spins < 100:
		case spins < 200:
			runtime.Gosched()
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

// Release releases the underlying MTLSharedEvent.
func (e *Event) Release() {
	if e.raw != 0 {
		objcbridge.Release(e.raw)
		e.raw = 0
	}
}

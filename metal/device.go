// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

// Package metal is a thin, concrete mirror of the Metal object model
// (MTLDevice, MTLBuffer, MTLTexture, the command-encoder family, and
// MTLSharedEvent) built directly on objc_msgSend. It does not attempt to
// be a general-purpose GPU HAL: the call shapes are chosen to match what
// the core and context packages need to drive a D3D11-shaped command
// stream, not to expose the whole Metal API surface.
package metal

import (
	"fmt"
	"sync"

	"github.com/dxmt-go/metallayer/internal/log"
	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

type (
	id  = objcbridge.ID
	sel = objcbridge.SEL
)

func send(obj id, s sel, args ...uintptr) id { return objcbridge.Send(obj, s, args...) }
func sendVoid(obj id, s sel, args ...uintptr) { objcbridge.SendVoid(obj, s, args...) }
func sendUint(obj id, s sel, args ...uintptr) uint64 { return objcbridge.SendUint(obj, s, args...) }
func sendBool(obj id, s sel, args ...uintptr) bool  { return objcbridge.SendBool(obj, s, args...) }

// Device wraps id<MTLDevice> plus the single command queue the translation
// layer opens it with. D3D11 has one implicit immediate context and an
// unbounded number of deferred contexts, all sharing a single MTLDevice and
// (in this design) a single MTLCommandQueue, matching dxmt's WMT::Device.
type Device struct {
	raw   id
	queue id
	name  string

	eventListener id
}

var (
	bridgeOnce sync.Once
	bridgeErr  error
)

// Open initializes the Objective-C bridge (once per process) and returns
// the system default Metal device.
func Open() (*Device, error) {
	bridgeOnce.Do(func() { bridgeErr = objcbridge.Init() })
	if bridgeErr != nil {
		return nil, fmt.Errorf("metal: %w", bridgeErr)
	}

	rawDevice, err := mtlCreateSystemDefaultDevice()
	if err != nil {
		return nil, err
	}
	if rawDevice == 0 {
		return nil, fmt.Errorf("metal: MTLCreateSystemDefaultDevice returned nil (no GPU?)")
	}

	queue := send(rawDevice, objcbridge.Sel("newCommandQueue"))
	if queue == 0 {
		return nil, fmt.Errorf("metal: failed to create command queue")
	}

	name := deviceName(rawDevice)
	log.Logger().Info("metal: device opened", "name", name)

	return &Device{raw: rawDevice, queue: queue, name: name}, nil
}

// Name returns the MTLDevice.name string, cached at Open time.
func (d *Device) Name() string { return d.name }

func deviceName(raw id) string {
	nsName := send(raw, objcbridge.Sel("name"))
	return objcbridge.GoString(nsName)
}

// Destroy releases the device's command queue and underlying MTLDevice.
// All resources created from this device must already be released.
func (d *Device) Destroy() {
	if d.eventListener != 0 {
		objcbridge.Release(d.eventListener)
		d.eventListener = 0
	}
	if d.queue != 0 {
		objcbridge.Release(d.queue)
		d.queue = 0
	}
	if d.raw != 0 {
		objcbridge.Release(d.raw)
		d.raw = 0
	}
}

func (d *Device) getOrCreateEventListener() id {
	if d.eventListener != 0 {
		return d.eventListener
	}
	cls := objcbridge.GetClass("MTLSharedEventListener")
	if cls == 0 {
		return 0
	}
	obj := send(id(cls), objcbridge.Sel("alloc"))
	if obj == 0 {
		return 0
	}
	obj = send(obj, objcbridge.Sel("init"))
	d.eventListener = obj
	return obj
}

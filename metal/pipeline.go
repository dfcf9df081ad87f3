// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

// errOutParam returns the address of nsErrPtr as a uintptr, for passing as
// an NSError** out-parameter across objc_msgSend.
func errOutParam(nsErrPtr *id) uintptr {
	return uintptr(unsafe.Pointer(nsErrPtr))
}

// spoolTempMetallib writes data to a temp file and returns its path plus a
// cleanup closure that removes it.
func spoolTempMetallib(data []byte) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "metallayer-*.metallib")
	if err != nil {
		return "", nil, fmt.Errorf("metal: spooling metallib: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", nil, fmt.Errorf("metal: spooling metallib: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", nil, fmt.Errorf("metal: spooling metallib: %w", err)
	}
	return name, func() { os.Remove(name) }, nil
}

// Library wraps id<MTLLibrary>, built from a precompiled metallib blob (see
// the mtllib package, which parses the container and hands this raw bytes).
type Library struct{ raw id }

// NewLibraryWithData loads a precompiled metallib binary (the raw bytes
// mtllib.Container.Bitcode or a whole metallib file's bytes). Metal has no
// in-memory-buffer loading entry point that avoids a dispatch_data_t
// bridge, so this spools the blob to a temp file and uses
// newLibraryWithURL:error:, mirroring what Metal's own command-line
// compiler produces on disk.
func (d *Device) NewLibraryWithData(data []byte) (*Library, error) {
	path, cleanup, err := spoolTempMetallib(data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	nsPath := objcbridge.NSString(path)
	defer objcbridge.Release(nsPath)
	clsURL := objcbridge.GetClass("NSURL")
	url := objcbridge.SendArgs(id(clsURL), objcbridge.Sel("fileURLWithPath:"), objcbridge.Ptr(uintptr(nsPath)))

	var nsErr id
	raw := objcbridge.SendArgs(d.raw, objcbridge.Sel("newLibraryWithURL:error:"),
		objcbridge.Ptr(uintptr(url)), objcbridge.Ptr(errOutParam(&nsErr)))
	if raw == 0 {
		return nil, fmt.Errorf("metal: newLibraryWithURL:error: failed: %s", describeNSError(nsErr))
	}
	return &Library{raw: raw}, nil
}

// Function returns the named function from the library (a vertex, fragment
// or kernel entry point).
func (l *Library) Function(name string) (id, error) {
	ns := objcbridge.NSString(name)
	defer objcbridge.Release(ns)
	fn := objcbridge.SendArgs(l.raw, objcbridge.Sel("newFunctionWithName:"), objcbridge.Ptr(uintptr(ns)))
	if fn == 0 {
		return 0, fmt.Errorf("metal: function %q not found in library", name)
	}
	return fn, nil
}

// Release releases the library.
func (l *Library) Release() {
	if l.raw != 0 {
		objcbridge.Release(l.raw)
		l.raw = 0
	}
}

// BlendFactor mirrors MTLBlendFactor.
type BlendFactor objcbridge.NSUInteger

const (
	BlendFactorZero              BlendFactor = 0
	BlendFactorOne               BlendFactor = 1
	BlendFactorSourceColor       BlendFactor = 2
	BlendFactorOneMinusSourceColor BlendFactor = 3
	BlendFactorSourceAlpha       BlendFactor = 4
	BlendFactorOneMinusSourceAlpha BlendFactor = 5
	BlendFactorDestinationColor  BlendFactor = 6
	BlendFactorOneMinusDestinationColor BlendFactor = 7
	BlendFactorDestinationAlpha BlendFactor = 8
	BlendFactorOneMinusDestinationAlpha BlendFactor = 9
)

// BlendOperation mirrors MTLBlendOperation.
type BlendOperation objcbridge.NSUInteger

const (
	BlendOperationAdd             BlendOperation = 0
	BlendOperationSubtract        BlendOperation = 1
	BlendOperationReverseSubtract BlendOperation = 2
	BlendOperationMin             BlendOperation = 3
	BlendOperationMax             BlendOperation = 4
)

// ColorWriteMask mirrors MTLColorWriteMask (bitmask).
type ColorWriteMask objcbridge.NSUInteger

const (
	ColorWriteMaskRed   ColorWriteMask = 1 << 3
	ColorWriteMaskGreen ColorWriteMask = 1 << 2
	ColorWriteMaskBlue  ColorWriteMask = 1 << 1
	ColorWriteMaskAlpha ColorWriteMask = 1 << 0
	ColorWriteMaskAll   ColorWriteMask = ColorWriteMaskRed | ColorWriteMaskGreen | ColorWriteMaskBlue | ColorWriteMaskAlpha
)

// AttachmentBlendDescriptor is one color attachment's blend state,
// mirroring the per-render-target fields of D3D11_BLEND_DESC.
type AttachmentBlendDescriptor struct {
	Enabled         bool
	SourceRGB       BlendFactor
	DestinationRGB  BlendFactor
	OperationRGB    BlendOperation
	SourceAlpha     BlendFactor
	DestinationAlpha BlendFactor
	OperationAlpha  BlendOperation
	WriteMask       ColorWriteMask
}

// RenderPipelineDescriptor is the Go-side mirror of MTLRenderPipelineDescriptor
// fields the translation layer populates per D3D11 pipeline state object.
type RenderPipelineDescriptor struct {
	VertexFunction   id
	FragmentFunction id
	ColorFormats     [8]PixelFormat
	ColorBlends      [8]AttachmentBlendDescriptor
	DepthFormat      PixelFormat
	StencilFormat    PixelFormat
	SampleCount      uint64
}

// NewRenderPipelineState compiles a render pipeline. This is the slow path
// behind core.PipelineCache's cache miss.
func (d *Device) NewRenderPipelineState(desc RenderPipelineDescriptor) (*RenderPipelineState, error) {
	cls := objcbridge.GetClass("MTLRenderPipelineDescriptor")
	rpd := send(id(cls), objcbridge.Sel("new"))
	if rpd == 0 {
		return nil, fmt.Errorf("metal: failed to allocate MTLRenderPipelineDescriptor")
	}
	defer objcbridge.Release(rpd)

	sendVoid(rpd, objcbridge.Sel("setVertexFunction:"), uintptr(desc.VertexFunction))
	sendVoid(rpd, objcbridge.Sel("setFragmentFunction:"), uintptr(desc.FragmentFunction))

	colorAttachments := send(rpd, objcbridge.Sel("colorAttachments"))
	for i, fmt := range desc.ColorFormats {
		if fmt == PixelFormatInvalid {
			continue
		}
		slot := objcbridge.SendArgs(colorAttachments, objcbridge.Sel("objectAtIndexedSubscript:"), objcbridge.Ptr(uintptr(i)))
		sendVoid(slot, objcbridge.Sel("setPixelFormat:"), uintptr(fmt))

		blend := desc.ColorBlends[i]
		objcbridge.SendVoidArgs(slot, objcbridge.Sel("setBlendingEnabled:"), objcbridge.BoolArg(blend.Enabled))
		if blend.Enabled {
			sendVoid(slot, objcbridge.Sel("setSourceRGBBlendFactor:"), uintptr(blend.SourceRGB))
			sendVoid(slot, objcbridge.Sel("setDestinationRGBBlendFactor:"), uintptr(blend.DestinationRGB))
			sendVoid(slot, objcbridge.Sel("setRgbBlendOperation:"), uintptr(blend.OperationRGB))
			sendVoid(slot, objcbridge.Sel("setSourceAlphaBlendFactor:"), uintptr(blend.SourceAlpha))
			sendVoid(slot, objcbridge.Sel("setDestinationAlphaBlendFactor:"), uintptr(blend.DestinationAlpha))
			sendVoid(slot, objcbridge.Sel("setAlphaBlendOperation:"), uintptr(blend.OperationAlpha))
		}
		mask := blend.WriteMask
		if mask == 0 {
			mask = ColorWriteMaskAll
		}
		sendVoid(slot, objcbridge.Sel("setWriteMask:"), uintptr(mask))
	}
	if desc.DepthFormat != PixelFormatInvalid {
		sendVoid(rpd, objcbridge.Sel("setDepthAttachmentPixelFormat:"), uintptr(desc.DepthFormat))
	}
	if desc.StencilFormat != PixelFormatInvalid {
		sendVoid(rpd, objcbridge.Sel("setStencilAttachmentPixelFormat:"), uintptr(desc.StencilFormat))
	}
	if desc.SampleCount > 1 {
		sendVoid(rpd, objcbridge.Sel("setSampleCount:"), uintptr(desc.SampleCount))
	}

	var nsErr id
	raw := objcbridge.SendArgs(d.raw, objcbridge.Sel("newRenderPipelineStateWithDescriptor:error:"),
		objcbridge.Ptr(uintptr(rpd)), objcbridge.Ptr(errOutParam(&nsErr)))
	if raw == 0 {
		return nil, fmt.Errorf("metal: render pipeline compile failed: %s", describeNSError(nsErr))
	}
	return &RenderPipelineState{raw: raw}, nil
}

// NewComputePipelineState compiles a compute pipeline from a single kernel function.
func (d *Device) NewComputePipelineState(function id) (*ComputePipelineState, error) {
	var nsErr id
	raw := objcbridge.SendArgs(d.raw, objcbridge.Sel("newComputePipelineStateWithFunction:error:"),
		objcbridge.Ptr(uintptr(function)), objcbridge.Ptr(errOutParam(&nsErr)))
	if raw == 0 {
		return nil, fmt.Errorf("metal: compute pipeline compile failed: %s", describeNSError(nsErr))
	}
	return &ComputePipelineState{raw: raw}, nil
}

func describeNSError(nsErr id) string {
	if nsErr == 0 {
		return "unknown error"
	}
	desc := send(nsErr, objcbridge.Sel("localizedDescription"))
	return objcbridge.GoString(desc)
}

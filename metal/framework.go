// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"

	"github.com/dxmt-go/metallayer/internal/objcbridge"
)

var (
	metalLib unsafe.Pointer

	symCreateSystemDefaultDevice unsafe.Pointer
	cifCreateSystemDefaultDevice types.CallInterface

	frameworkOnce sync.Once
	frameworkErr  error
)

func loadFramework() error {
	frameworkOnce.Do(func() {
		var err error
		metalLib, err = ffi.LoadLibrary("/System/Library/Frameworks/Metal.framework/Metal")
		if err != nil {
			frameworkErr = fmt.Errorf("metal: failed to load Metal.framework: %w", err)
			return
		}
		symCreateSystemDefaultDevice, err = ffi.GetSymbol(metalLib, "MTLCreateSystemDefaultDevice")
		if err != nil {
			frameworkErr = fmt.Errorf("metal: MTLCreateSystemDefaultDevice not found: %w", err)
			return
		}
		frameworkErr = ffi.PrepareCallInterface(&cifCreateSystemDefaultDevice, types.DefaultCall,
			types.PointerTypeDescriptor, nil)
		if frameworkErr != nil {
			return
		}
		preRegisterSelectors()
	})
	return frameworkErr
}

func mtlCreateSystemDefaultDevice() (id, error) {
	if err := loadFramework(); err != nil {
		return 0, err
	}
	var result id
	_ = ffi.CallFunction(&cifCreateSystemDefaultDevice, symCreateSystemDefaultDevice, unsafe.Pointer(&result), nil)
	return result, nil
}

// preRegisterSelectors warms the objcbridge selector cache with the
// selectors hit on every draw/dispatch so the cache is never cold on the
// recording hot path.
func preRegisterSelectors() {
	for _, s := range []string{
		"alloc", "init", "new", "retain", "release", "name", "setLabel:",
		"newBufferWithLength:options:", "contents", "length",
		"newTextureWithDescriptor:", "newTextureViewWithPixelFormat:",
		"setWidth:", "setHeight:", "setDepth:", "setPixelFormat:",
		"setTextureType:", "setUsage:", "setStorageMode:",
		"setMipmapLevelCount:", "setSampleCount:", "setArrayLength:",
		"newCommandQueue", "commandBuffer", "commit", "waitUntilCompleted",
		"addCompletedHandler:", "status",
		"blitCommandEncoder", "computeCommandEncoder", "renderCommandEncoderWithDescriptor:",
		"endEncoding",
		"setRenderPipelineState:", "setComputePipelineState:",
		"setVertexBuffer:offset:atIndex:", "setFragmentBuffer:offset:atIndex:",
		"setBuffer:offset:atIndex:",
		"setVertexTexture:atIndex:", "setFragmentTexture:atIndex:", "setTexture:atIndex:",
		"setViewport:", "setScissorRect:",
		"drawPrimitives:vertexStart:vertexCount:",
		"drawIndexedPrimitives:indexCount:indexType:indexBuffer:indexBufferOffset:",
		"dispatchThreadgroups:threadsPerThreadgroup:",
		"copyFromBuffer:sourceOffset:toBuffer:destinationOffset:size:",
		"copyFromBuffer:sourceOffset:sourceBytesPerRow:sourceBytesPerImage:sourceSize:toTexture:destinationSlice:destinationLevel:destinationOrigin:",
		"fillBuffer:range:value:",
		"newSharedEvent", "signaledValue", "setSignaledValue:",
		"notifyListener:atValue:block:",
		"newLibraryWithData:error:", "newLibraryWithURL:error:", "fileURLWithPath:", "newFunctionWithName:",
		"newRenderPipelineStateWithDescriptor:error:",
		"newComputePipelineStateWithDescriptor:options:reflection:error:",
	} {
		objcbridge.Sel(s)
	}
}

// deviceSupportsFamily reports whether the device supports a given GPU family.
func deviceSupportsFamily(d id, family int64) bool {
	return sendBool(d, objcbridge.Sel("supportsFamily:"), uintptr(family))
}

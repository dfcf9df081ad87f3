// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package mtllib

import (
	"fmt"

	"github.com/dxmt-go/metallayer/metal"
)

// ShaderCompiler turns an already-parsed MTLB container into a live
// metal.Library/function, the step spec.md §6 assigns to the external
// shader-bytecode-compiler collaborator once it has already lowered
// D3D11 bytecode to AIR — this package and this type only ever see
// already-compiled containers.
type ShaderCompiler interface {
	Compile(device *metal.Device, container *Container) (*metal.Library, error)
}

// DeviceCompiler is the ShaderCompiler that hands the container's raw
// bitcode blob straight to Metal's metallib loader.
type DeviceCompiler struct{}

// Compile loads container's bitcode blob as a metallib.
func (DeviceCompiler) Compile(device *metal.Device, container *Container) (*metal.Library, error) {
	lib, err := device.NewLibraryWithData(container.Bitcode)
	if err != nil {
		return nil, fmt.Errorf("mtllib: loading metallib: %w", err)
	}
	return lib, nil
}

// LoadFunction parses data as an MTLB container, verifies name's checksum,
// and returns the compiled metal.Library together with name's Function
// record; the caller resolves the MTLFunction through the library.
func LoadFunction(device *metal.Device, compiler ShaderCompiler, data []byte, name string) (metal.Library, Function, error) {
	container, err := Parse(data)
	if err != nil {
		return metal.Library{}, Function{}, err
	}
	fn, ok := container.Function(name)
	if !ok {
		return metal.Library{}, Function{}, fmt.Errorf("mtllib: function %q not found in container", name)
	}
	ok2, err := container.VerifyChecksum(fn)
	if err != nil {
		return metal.Library{}, Function{}, err
	}
	if !ok2 {
		return metal.Library{}, Function{}, fmt.Errorf("mtllib: function %q failed SHA-256 verification", name)
	}
	lib, err := compiler.Compile(device, container)
	if err != nil {
		return metal.Library{}, Function{}, err
	}
	return *lib, fn, nil
}

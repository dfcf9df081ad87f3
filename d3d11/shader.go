// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"fmt"

	"github.com/dxmt-go/metallayer/context"
	"github.com/dxmt-go/metallayer/internal/objcbridge"
	"github.com/dxmt-go/metallayer/metal"
	"github.com/dxmt-go/metallayer/mtllib"
)

// VertexShader is the ID3D11VertexShader-equivalent: a compiled MTLFunction
// extracted from an MTLB container (spec.md §6; the container's bitcode
// was produced by the out-of-scope bytecode-to-AIR compiler this layer
// only ever consumes the output of).
type VertexShader struct{ function objcbridge.ID }

// PixelShader is the ID3D11PixelShader-equivalent.
type PixelShader struct{ function objcbridge.ID }

// ComputeShader is the ID3D11ComputeShader-equivalent.
type ComputeShader struct{ function objcbridge.ID }

func (d *Device) loadFunction(bytecode []byte, entryPoint string) (objcbridge.ID, error) {
	lib, _, err := mtllib.LoadFunction(d.metal, mtllib.DeviceCompiler{}, bytecode, entryPoint)
	if err != nil {
		return 0, fmt.Errorf("d3d11: %w: %v", errInvalidArgument, err)
	}
	fn, err := lib.Function(entryPoint)
	if err != nil {
		return 0, fmt.Errorf("d3d11: %w: %v", errInvalidArgument, err)
	}
	return fn, nil
}

// CreateVertexShader mirrors ID3D11Device::CreateVertexShader.
func (d *Device) CreateVertexShader(bytecode []byte, entryPoint string) (*VertexShader, error) {
	fn, err := d.loadFunction(bytecode, entryPoint)
	if err != nil {
		return nil, err
	}
	return &VertexShader{function: fn}, nil
}

// CreatePixelShader mirrors ID3D11Device::CreatePixelShader.
func (d *Device) CreatePixelShader(bytecode []byte, entryPoint string) (*PixelShader, error) {
	fn, err := d.loadFunction(bytecode, entryPoint)
	if err != nil {
		return nil, err
	}
	return &PixelShader{function: fn}, nil
}

// CreateComputeShader mirrors ID3D11Device::CreateComputeShader.
func (d *Device) CreateComputeShader(bytecode []byte, entryPoint string) (*ComputeShader, error) {
	fn, err := d.loadFunction(bytecode, entryPoint)
	if err != nil {
		return nil, err
	}
	return &ComputeShader{function: fn}, nil
}

// renderPipelineState is a small helper over the shared PipelineCache
// that builds the color/depth/stencil format key from the currently
// bound OutputMergerState.
func (c *DeviceContext) renderPipelineState(vs *VertexShader, ps *PixelShader) (*metal.RenderPipelineState, error) {
	om := c.inner.OM
	var desc metal.RenderPipelineDescriptor
	desc.VertexFunction = vs.function
	if ps != nil {
		desc.FragmentFunction = ps.function
	}
	for i := 0; i < om.NumRenderTargets && i < 8; i++ {
		if om.RenderTargets[i] != nil {
			desc.ColorFormats[i] = om.RenderTargets[i].Descriptor().PixelFormat
		}
	}
	if om.DepthStencil != nil {
		desc.DepthFormat = om.DepthStencil.Descriptor().PixelFormat
	}
	return c.device.pipelines.RenderPipeline(c.device.metal, desc)
}

// VSSetShader mirrors ID3D11DeviceContext::VSSetShader. The actual
// MTLRenderPipelineState isn't compiled until the matching PSSetShader
// (or a nil fragment stage) is known, so this only remembers the
// pending vertex shader; bindRenderPipelineIfReady does the compile+install.
func (c *DeviceContext) VSSetShader(vs *VertexShader) {
	c.pendingVS = vs
	c.bindRenderPipelineIfReady()
}

// PSSetShader mirrors ID3D11DeviceContext::PSSetShader.
func (c *DeviceContext) PSSetShader(ps *PixelShader) {
	c.pendingPS = ps
	c.bindRenderPipelineIfReady()
}

func (c *DeviceContext) bindRenderPipelineIfReady() {
	if c.pendingVS == nil {
		return
	}
	state, err := c.renderPipelineState(c.pendingVS, c.pendingPS)
	if err != nil {
		c.lastBindErr = err
		return
	}
	c.lastBindErr = nil
	c.inner.SetRenderPipeline(state, c.renderMask)
}

// CSSetShader mirrors ID3D11DeviceContext::CSSetShader. Binding a compute
// shader opens the compute encoder it will dispatch against if one isn't
// already open (spec.md §4.3); Dispatch repeats this check as a fallback
// for a second dispatch against the same shader.
func (c *DeviceContext) CSSetShader(cs *ComputeShader) error {
	if cs == nil {
		return nil
	}
	state, err := c.device.pipelines.ComputePipeline(c.device.metal, cs.function)
	if err != nil {
		return fmt.Errorf("d3d11: compiling compute pipeline: %w", errOutOfMemory)
	}
	if !c.inner.ComputeEncoderOpen() {
		if err := c.inner.OpenComputePass(); err != nil {
			return err
		}
	}
	c.inner.SetComputePipeline(state, c.computeMask)
	return nil
}

// SetRenderPipelineMask lets the caller (the reflection step that reads a
// shader's resource bindings from its MTLB metadata) declare which
// binding-class slots the currently bound VS/PS pair reads, so
// StageBindings.AnyDirty stops over-reporting slots the pipeline never
// touches. A zero-value mask is permissive: every dirty slot uploads.
func (c *DeviceContext) SetRenderPipelineMask(mask context.PipelineBindingMask) {
	c.renderMask = mask
	c.bindRenderPipelineIfReady()
}

// SetComputePipelineMask is SetRenderPipelineMask's compute analogue.
func (c *DeviceContext) SetComputePipelineMask(mask context.PipelineBindingMask) {
	c.computeMask = mask
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package d3d11 is the thin COM-shaped surface named in spec.md §6:
// Device, DeviceContext, Buffer, Texture1D/2D/3D, the view kinds,
// SamplerState/RasterizerState/BlendState/DepthStencilState, Query, and
// Fence. Every operation forwards into context/core; this package adds no
// new resource-management logic of its own beyond usage-kind bookkeeping
// and descriptor validation (spec.md §7's "descriptor validation fails
// locally").
//
// Grounded on original_source/src/d3d11/d3d11_device.cpp and
// d3d11_buffer.cpp (via spec.md, which distills both), generalized from
// the original's full IUnknown/QueryInterface vtable surface to plain Go
// structs and methods returning errors — the translation layer's actual
// COM vtable plumbing (reference counting, interface query tables) is a
// DXMT-wrapper concern outside this module's scope, not a Metal-facing
// one.
package d3d11

import "fmt"

// Usage mirrors D3D11_USAGE.
type Usage int

const (
	UsageDefault Usage = iota
	UsageImmutable
	UsageDynamic
	UsageStaging
)

// BindFlag mirrors D3D11_BIND_FLAG (bitmask).
type BindFlag uint32

const (
	BindVertexBuffer    BindFlag = 1 << 0
	BindIndexBuffer     BindFlag = 1 << 1
	BindConstantBuffer  BindFlag = 1 << 2
	BindShaderResource  BindFlag = 1 << 3
	BindRenderTarget    BindFlag = 1 << 5
	BindDepthStencil    BindFlag = 1 << 6
	BindUnorderedAccess BindFlag = 1 << 7
)

// CPUAccessFlag mirrors D3D11_CPU_ACCESS_FLAG.
type CPUAccessFlag uint32

const (
	CPUAccessWrite CPUAccessFlag = 1 << 16
	CPUAccessRead  CPUAccessFlag = 1 << 17
)

// MapType mirrors D3D11_MAP.
type MapType int

const (
	MapRead MapType = iota
	MapWrite
	MapReadWrite
	MapWriteDiscard
	MapWriteNoOverwrite
)

// MapFlag mirrors D3D11_MAP_FLAG.
type MapFlag uint32

const MapFlagDoNotWait MapFlag = 1 << 0

func validateUsageBind(usage Usage, bind BindFlag, access CPUAccessFlag) error {
	switch usage {
	case UsageImmutable:
		if access != 0 {
			return fmt.Errorf("d3d11: immutable resources cannot have CPU access flags: %w", errInvalidArgument)
		}
	case UsageDynamic:
		if bind&BindUnorderedAccess != 0 || bind&BindRenderTarget != 0 || bind&BindDepthStencil != 0 {
			return fmt.Errorf("d3d11: DYNAMIC may not be bound as a UAV/RTV/DSV: %w", errInvalidArgument)
		}
		if access&CPUAccessWrite == 0 {
			return fmt.Errorf("d3d11: DYNAMIC resources require CPU_ACCESS_WRITE: %w", errInvalidArgument)
		}
	case UsageStaging:
		if bind != 0 {
			return fmt.Errorf("d3d11: STAGING resources may not have bind flags: %w", errInvalidArgument)
		}
	}
	return nil
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build darwin

package metal

import "github.com/dxmt-go/metallayer/internal/objcbridge"

// PixelFormat mirrors MTLPixelFormat. Only the subset of formats the D3D11
// surface actually exposes is named. This module has no DXGI_FORMAT ->
// PixelFormat mapping; callers pass PixelFormat values directly.
type PixelFormat objcbridge.NSUInteger

const (
	PixelFormatInvalid              PixelFormat = 0
	PixelFormatA8Unorm              PixelFormat = 1
	PixelFormatR8Unorm              PixelFormat = 10
	PixelFormatR8Snorm              PixelFormat = 12
	PixelFormatR8Uint               PixelFormat = 13
	PixelFormatR8Sint               PixelFormat = 14
	PixelFormatR16Unorm             PixelFormat = 20
	PixelFormatR16Snorm             PixelFormat = 22
	PixelFormatR16Uint              PixelFormat = 23
	PixelFormatR16Sint              PixelFormat = 24
	PixelFormatR16Float             PixelFormat = 25
	PixelFormatRG8Unorm             PixelFormat = 30
	PixelFormatRG8Snorm             PixelFormat = 32
	PixelFormatRG8Uint              PixelFormat = 33
	PixelFormatRG8Sint              PixelFormat = 34
	PixelFormatR32Uint              PixelFormat = 53
	PixelFormatR32Sint              PixelFormat = 54
	PixelFormatR32Float             PixelFormat = 55
	PixelFormatRG16Unorm            PixelFormat = 60
	PixelFormatRG16Snorm            PixelFormat = 62
	PixelFormatRG16Uint             PixelFormat = 63
	PixelFormatRG16Sint             PixelFormat = 64
	PixelFormatRG16Float            PixelFormat = 65
	PixelFormatRGBA8Unorm           PixelFormat = 70
	PixelFormatRGBA8UnormSRGB       PixelFormat = 71
	PixelFormatRGBA8Snorm           PixelFormat = 72
	PixelFormatRGBA8Uint            PixelFormat = 73
	PixelFormatRGBA8Sint            PixelFormat = 74
	PixelFormatBGRA8Unorm           PixelFormat = 80
	PixelFormatBGRA8UnormSRGB       PixelFormat = 81
	PixelFormatRGB10A2Unorm         PixelFormat = 90
	PixelFormatRGB10A2Uint          PixelFormat = 91
	PixelFormatRG11B10Float         PixelFormat = 92
	PixelFormatRGB9E5Float          PixelFormat = 93
	PixelFormatRG32Uint             PixelFormat = 103
	PixelFormatRG32Sint             PixelFormat = 104
	PixelFormatRG32Float            PixelFormat = 105
	PixelFormatRGBA16Unorm          PixelFormat = 110
	PixelFormatRGBA16Snorm          PixelFormat = 112
	PixelFormatRGBA16Uint           PixelFormat = 113
	PixelFormatRGBA16Sint           PixelFormat = 114
	PixelFormatRGBA16Float          PixelFormat = 115
	PixelFormatRGBA32Uint           PixelFormat = 123
	PixelFormatRGBA32Sint           PixelFormat = 124
	PixelFormatRGBA32Float          PixelFormat = 125
	PixelFormatDepth16Unorm         PixelFormat = 250
	PixelFormatDepth32Float         PixelFormat = 252
	PixelFormatStencil8             PixelFormat = 253
	PixelFormatDepth24UnormStencil8 PixelFormat = 255
	PixelFormatDepth32FloatStencil8 PixelFormat = 260
)

// ResourceOptions mirrors MTLResourceOptions (cache mode | storage mode | hazard tracking).
type ResourceOptions objcbridge.NSUInteger

const (
	ResourceCPUCacheModeWriteCombined ResourceOptions = 1 << 0

	ResourceStorageModeShared     ResourceOptions = 0 << 4
	ResourceStorageModeManaged    ResourceOptions = 1 << 4
	ResourceStorageModePrivate    ResourceOptions = 2 << 4
	ResourceStorageModeMemoryless ResourceOptions = 3 << 4

	ResourceHazardTrackingModeUntracked ResourceOptions = 1 << 8
)

// StorageMode mirrors MTLStorageMode.
type StorageMode objcbridge.NSUInteger

const (
	StorageModeShared     StorageMode = 0
	StorageModeManaged    StorageMode = 1
	StorageModePrivate    StorageMode = 2
	StorageModeMemoryless StorageMode = 3
)

// TextureType mirrors MTLTextureType.
type TextureType objcbridge.NSUInteger

const (
	TextureType1D            TextureType = 0
	TextureType1DArray       TextureType = 1
	TextureType2D            TextureType = 2
	TextureType2DArray       TextureType = 3
	TextureType2DMultisample TextureType = 4
	TextureTypeCube          TextureType = 5
	TextureTypeCubeArray     TextureType = 6
	TextureType3D            TextureType = 7
)

// TextureUsage mirrors MTLTextureUsage.
type TextureUsage objcbridge.NSUInteger

const (
	TextureUsageShaderRead      TextureUsage = 1 << 0
	TextureUsageShaderWrite     TextureUsage = 1 << 1
	TextureUsageRenderTarget    TextureUsage = 1 << 2
	TextureUsagePixelFormatView TextureUsage = 1 << 4
)

// LoadAction / StoreAction mirror MTLLoadAction / MTLStoreAction.
type LoadAction objcbridge.NSUInteger
type StoreAction objcbridge.NSUInteger

const (
	LoadActionDontCare LoadAction = 0
	LoadActionLoad     LoadAction = 1
	LoadActionClear    LoadAction = 2
)

const (
	StoreActionDontCare                   StoreAction = 0
	StoreActionStore                      StoreAction = 1
	StoreActionMultisampleResolve         StoreAction = 2
	StoreActionStoreAndMultisampleResolve StoreAction = 3
)

// IndexType mirrors MTLIndexType.
type IndexType objcbridge.NSUInteger

const (
	IndexTypeUInt16 IndexType = 0
	IndexTypeUInt32 IndexType = 1
)

// PrimitiveType mirrors MTLPrimitiveType.
type PrimitiveType objcbridge.NSUInteger

const (
	PrimitiveTypePoint         PrimitiveType = 0
	PrimitiveTypeLine          PrimitiveType = 1
	PrimitiveTypeLineStrip     PrimitiveType = 2
	PrimitiveTypeTriangle      PrimitiveType = 3
	PrimitiveTypeTriangleStrip PrimitiveType = 4
)

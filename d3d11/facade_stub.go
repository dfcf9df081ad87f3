// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

// This file documents, without implementing, the surfaces spec.md names
// as external collaborators rather than core responsibilities: the
// DXGI swap-chain/adapter-enumeration surface, the window surface/layer
// glue, the D3D10-on-D3D11 compatibility façade, ClassLinkage, and shader
// bytecode compilation. Each is specified only by the interface this
// package would consume or expose, not by a working implementation.
//
// SwapChain would wrap a CAMetalLayer's nextDrawable cycle and present
// one of this package's Texture2D objects (created with
// BindRenderTarget and the swap-chain's pixel format) per frame; it has
// no GPU-resource-model content of its own and sits entirely on the
// windowing-glue side of the line spec.md draws.
//
// ClassLinkage (HLSL dynamic shader linkage / interface slots) resolves
// purely at shader-compile time, a concern spec.md assigns to the
// separate bytecode-to-AIR compiler this layer only ever consumes the
// output of (see the mtllib package) — ClassLinkage itself never reaches
// the core's resource or command model.
//
// The D3D10-on-D3D11 façade forwards D3D10 COM calls onto this package's
// Device/DeviceContext; since it adds no Metal-facing behavior, it is
// left to whatever wrapper consumes this module.

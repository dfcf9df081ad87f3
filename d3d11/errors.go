// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"errors"

	"github.com/dxmt-go/metallayer/core"
)

// This package's errors are the core error-kind taxonomy (spec.md §7)
// re-exported under d3d11-facing names; callers at the true COM boundary
// (outside this module's scope) would translate these to HRESULTs, but
// nothing in this module needs to know the numeric HRESULT values.
var (
	errInvalidArgument = core.ErrInvalidArgument
	errUnsupported     = core.ErrUnsupported
	errOutOfMemory     = core.ErrOutOfMemory
	errDeviceLost      = core.ErrDeviceLost
	errWouldBlock      = core.ErrWouldBlock

	// errTimestampsNotSupported matches the teacher's existing Metal
	// backend stub for CreateQuerySet against D3D11_QUERY_TIMESTAMP
	// (SPEC_FULL.md Non-goals: GPU timestamp queries stay unsupported).
	errTimestampsNotSupported = errors.New("d3d11: timestamp queries are not supported")
)

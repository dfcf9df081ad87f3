// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import (
	"fmt"

	"github.com/dxmt-go/metallayer/context"
)

// QueryKind mirrors the subset of D3D11_QUERY this layer supports.
type QueryKind int

const (
	QueryOcclusion QueryKind = iota
	QueryOcclusionPredicate
	QueryTimestamp // rejected by CreateQuery, spec.md Non-goal
)

// Query is the ID3D11Query/ID3D11Predicate-equivalent. Only occlusion
// queries are modeled; CreateQuery rejects QueryTimestamp up front so
// callers never reach a half-built query object.
type Query struct {
	kind QueryKind
	occ  *context.OcclusionQuery
}

// CreateQuery builds a Query (ID3D11Device::CreateQuery).
func (d *Device) CreateQuery(kind QueryKind) (*Query, error) {
	if kind == QueryTimestamp {
		return nil, fmt.Errorf("d3d11: CreateQuery(TIMESTAMP): %w", errTimestampsNotSupported)
	}
	return &Query{kind: kind, occ: context.NewOcclusionQuery()}, nil
}

// Kind reports the D3D11 query type this Query was created with.
func (q *Query) Kind() QueryKind { return q.kind }

// Begin starts the query (ID3D11DeviceContext::Begin).
func (ctx *DeviceContext) Begin(q *Query) error {
	return ctx.inner.BeginQuery(q.occ)
}

// End ends the query (ID3D11DeviceContext::End).
func (ctx *DeviceContext) End(q *Query) {
	ctx.inner.EndQuery(q.occ)
}

// GetData polls the query's result (ID3D11DeviceContext::GetData). The
// returned bool mirrors GetData's S_FALSE/S_OK distinction: false means
// the result isn't ready yet and the D3D11 call should be retried.
func (ctx *DeviceContext) GetData(q *Query) (uint64, bool) {
	value, ready := ctx.inner.GetQueryData(q.occ)
	if !ready {
		return 0, false
	}
	if q.kind == QueryOcclusionPredicate {
		if value != 0 {
			value = 1
		}
	}
	return value, true
}

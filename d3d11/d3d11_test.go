// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package d3d11

import "testing"

func TestValidateUsageBind(t *testing.T) {
	tests := []struct {
		name    string
		usage   Usage
		bind    BindFlag
		access  CPUAccessFlag
		wantErr bool
	}{
		{"default is unrestricted", UsageDefault, BindRenderTarget, 0, false},
		{"immutable with no CPU access", UsageImmutable, BindShaderResource, 0, false},
		{"immutable with CPU access rejected", UsageImmutable, BindShaderResource, CPUAccessRead, true},
		{"dynamic with write access", UsageDynamic, BindConstantBuffer, CPUAccessWrite, false},
		{"dynamic without write access rejected", UsageDynamic, BindConstantBuffer, CPUAccessRead, true},
		{"dynamic as render target rejected", UsageDynamic, BindRenderTarget, CPUAccessWrite, true},
		{"dynamic as UAV rejected", UsageDynamic, BindUnorderedAccess, CPUAccessWrite, true},
		{"staging with no bind flags", UsageStaging, 0, CPUAccessRead, false},
		{"staging with bind flags rejected", UsageStaging, BindVertexBuffer, CPUAccessRead, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateUsageBind(tc.usage, tc.bind, tc.access)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validateUsageBind(%v, %v, %v) = %v, wantErr %v", tc.usage, tc.bind, tc.access, err, tc.wantErr)
			}
		})
	}
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package context

import "fmt"

// EncoderState enumerates the context's encoder lifecycle states exactly
// as spec.md §4.3 names them.
type EncoderState int

const (
	StateIdle EncoderState = iota
	StateRenderEncoderActive
	StateRenderPipelineReady
	StateTessellationRenderPipelineReady
	StateComputeEncoderActive
	StateComputePipelineReady
	StateBlitEncoderActive
	StateUpdateBlitEncoderActive
	StateReadbackBlitEncoderActive
)

func (s EncoderState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRenderEncoderActive:
		return "RenderEncoderActive"
	case StateRenderPipelineReady:
		return "RenderPipelineReady"
	case StateTessellationRenderPipelineReady:
		return "TessellationRenderPipelineReady"
	case StateComputeEncoderActive:
		return "ComputeEncoderActive"
	case StateComputePipelineReady:
		return "ComputePipelineReady"
	case StateBlitEncoderActive:
		return "BlitEncoderActive"
	case StateUpdateBlitEncoderActive:
		return "UpdateBlitEncoderActive"
	case StateReadbackBlitEncoderActive:
		return "ReadbackBlitEncoderActive"
	default:
		return fmt.Sprintf("EncoderState(%d)", int(s))
	}
}

// encoderKind groups states that share one open Metal encoder: the Ready
// substates are peers of their Active state, not a distinct encoder.
type encoderKind int

const (
	kindNone encoderKind = iota
	kindRender
	kindCompute
	kindBlit
)

func (s EncoderState) kind() encoderKind {
	switch s {
	case StateRenderEncoderActive, StateRenderPipelineReady, StateTessellationRenderPipelineReady:
		return kindRender
	case StateComputeEncoderActive, StateComputePipelineReady:
		return kindCompute
	case StateBlitEncoderActive, StateUpdateBlitEncoderActive, StateReadbackBlitEncoderActive:
		return kindBlit
	default:
		return kindNone
	}
}

// EncoderStateMachine drives the transitions spec.md §4.3 describes: any
// transition that changes encoder kind closes the current encoder first;
// Render/Compute's Ready substate is invalidated by SetShader without
// closing the encoder; Flush always forces a close back to Idle.
//
// Grounded on the teacher's CoreCommandEncoder status field, generalized
// from a two-state (recording/finished) machine to the full nine-state
// D3D11 encoder lifecycle; closing the underlying Metal encoder is
// delegated to the onClose callback and opening one is left to the caller,
// so this type stays a pure
// state machine, independent of core.CommandChunk and metal encoder
// plumbing.
type EncoderStateMachine struct {
	state EncoderState

	// onClose is invoked with the kind being left, before the state
	// changes to a different kind (or to Idle). Never invoked for a
	// Ready<->Active transition within the same kind.
	onClose func(kind encoderKind)
}

// NewEncoderStateMachine starts Idle.
func NewEncoderStateMachine(onClose func(kind encoderKind)) *EncoderStateMachine {
	return &EncoderStateMachine{state: StateIdle, onClose: onClose}
}

// State returns the current state.
func (m *EncoderStateMachine) State() EncoderState { return m.state }

// transitionTo moves to next, closing the current encoder first if next's
// kind differs from the current state's kind.
func (m *EncoderStateMachine) transitionTo(next EncoderState) {
	if m.state.kind() != next.kind() && m.state.kind() != kindNone {
		if m.onClose != nil {
			m.onClose(m.state.kind())
		}
	}
	m.state = next
}

// OpenRender transitions to RenderEncoderActive, closing any other open
// encoder kind first.
func (m *EncoderStateMachine) OpenRender() { m.transitionTo(StateRenderEncoderActive) }

// OpenCompute transitions to ComputeEncoderActive.
func (m *EncoderStateMachine) OpenCompute() { m.transitionTo(StateComputeEncoderActive) }

// OpenBlit transitions to BlitEncoderActive (plain CopyResource path).
func (m *EncoderStateMachine) OpenBlit() { m.transitionTo(StateBlitEncoderActive) }

// OpenUpdateBlit transitions to UpdateBlitEncoderActive (UpdateSubresource
// staging path).
func (m *EncoderStateMachine) OpenUpdateBlit() { m.transitionTo(StateUpdateBlitEncoderActive) }

// OpenReadbackBlit transitions to ReadbackBlitEncoderActive (a copy whose
// destination the application will Map for reading).
func (m *EncoderStateMachine) OpenReadbackBlit() { m.transitionTo(StateReadbackBlitEncoderActive) }

// MarkPipelineReady promotes an Active render/compute state to its Ready
// peer once PreDraw/PreDispatch has finished uploading argument state,
// without touching the underlying Metal encoder.
func (m *EncoderStateMachine) MarkPipelineReady() {
	switch m.state {
	case StateRenderEncoderActive:
		m.state = StateRenderPipelineReady
	case StateComputeEncoderActive:
		m.state = StateComputePipelineReady
	}
}

// InvalidateReady drops back from a Ready substate to its Active peer
// without closing the encoder (spec.md: "SetShader-family invalidates the
// 'Ready' substate without closing the encoder").
func (m *EncoderStateMachine) InvalidateReady() {
	switch m.state {
	case StateRenderPipelineReady, StateTessellationRenderPipelineReady:
		m.state = StateRenderEncoderActive
	case StateComputePipelineReady:
		m.state = StateComputeEncoderActive
	}
}

// Flush forces a close back to Idle regardless of current state,
// corresponding to Commit (spec.md: "Flush (Commit) forces a close to
// Idle and submits the chunk").
func (m *EncoderStateMachine) Flush() {
	if m.state != StateIdle {
		if m.onClose != nil {
			m.onClose(m.state.kind())
		}
		m.state = StateIdle
	}
}

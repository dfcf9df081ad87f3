package context

import "testing"

func TestEncoderStateMachine_OpenRenderClosesNothingFromIdle(t *testing.T) {
	closed := 0
	m := NewEncoderStateMachine(func(kind encoderKind) { closed++ })
	m.OpenRender()
	if m.State() != StateRenderEncoderActive {
		t.Fatalf("state = %v, want RenderEncoderActive", m.State())
	}
	if closed != 0 {
		t.Fatalf("opening from Idle should not close anything, closed=%d", closed)
	}
}

func TestEncoderStateMachine_SwitchingKindClosesPrevious(t *testing.T) {
	var closedKinds []encoderKind
	m := NewEncoderStateMachine(func(kind encoderKind) { closedKinds = append(closedKinds, kind) })
	m.OpenRender()
	m.OpenCompute()
	if len(closedKinds) != 1 || closedKinds[0] != kindRender {
		t.Fatalf("closedKinds = %v, want [kindRender]", closedKinds)
	}
	if m.State() != StateComputeEncoderActive {
		t.Fatalf("state = %v, want ComputeEncoderActive", m.State())
	}
}

func TestEncoderStateMachine_MarkReadyThenInvalidateStaysSameKind(t *testing.T) {
	closed := 0
	m := NewEncoderStateMachine(func(kind encoderKind) { closed++ })
	m.OpenRender()
	m.MarkPipelineReady()
	if m.State() != StateRenderPipelineReady {
		t.Fatalf("state = %v, want RenderPipelineReady", m.State())
	}
	m.InvalidateReady()
	if m.State() != StateRenderEncoderActive {
		t.Fatalf("state after InvalidateReady = %v, want RenderEncoderActive", m.State())
	}
	if closed != 0 {
		t.Fatalf("Ready<->Active transitions must not close the encoder, closed=%d", closed)
	}
}

func TestEncoderStateMachine_FlushAlwaysClosesAndReturnsIdle(t *testing.T) {
	closed := 0
	m := NewEncoderStateMachine(func(kind encoderKind) { closed++ })
	m.OpenRender()
	m.MarkPipelineReady()
	m.Flush()
	if m.State() != StateIdle {
		t.Fatalf("state after Flush = %v, want Idle", m.State())
	}
	if closed != 1 {
		t.Fatalf("Flush should close exactly once, closed=%d", closed)
	}

	// Flush from Idle is a no-op.
	m.Flush()
	if closed != 1 {
		t.Fatalf("Flush from Idle should not close again, closed=%d", closed)
	}
}

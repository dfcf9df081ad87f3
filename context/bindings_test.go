package context

import "testing"

func TestStageBindings_AnyDirtyRespectsPipelineMask(t *testing.T) {
	s := NewStageBindings()
	s.ConstantBuffers.Bind(5, ConstantBufferBinding{NumConstants: 4})

	// The pipeline doesn't read slot 5 at all: no class' mask includes it.
	mask := PipelineBindingMask{}
	if s.AnyDirty(mask) {
		t.Fatalf("a dirty slot the pipeline never reads should not count")
	}

	mask.ConstantBuffers = mask.ConstantBuffers.WithSlot(5)
	if !s.AnyDirty(mask) {
		t.Fatalf("a dirty slot within the pipeline's mask should count")
	}
}

func TestInputAssemblerState_VertexSlotMaskGatesUpload(t *testing.T) {
	ia := NewInputAssemblerState()
	ia.VertexBuffers.Bind(2, VertexBufferBinding{Stride: 12})

	if ia.VertexBuffers.DirtyMask()&ia.VertexSlotMask != 0 {
		t.Fatalf("a slot outside the InputLayout's mask should not appear dirty-relative-to-mask")
	}
	ia.VertexSlotMask = ia.VertexSlotMask.WithSlot(2)
	if ia.VertexBuffers.DirtyMask()&ia.VertexSlotMask == 0 {
		t.Fatalf("slot 2 should be dirty once the InputLayout's mask includes it")
	}
}

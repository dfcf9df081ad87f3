package track

import "testing"

func TestBufferUses_IsReadOnly(t *testing.T) {
	tests := []struct {
		name string
		u    BufferUses
		want bool
	}{
		{"empty", BufferUsesNone, true},
		{"copy src only", BufferUsesCopySrc, true},
		{"shader read only", BufferUsesShaderRead, true},
		{"copy dst", BufferUsesCopyDst, false},
		{"shader write", BufferUsesShaderWrite, false},
		{"mixed read+write", BufferUsesShaderRead | BufferUsesShaderWrite, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.u.IsReadOnly(); got != tt.want {
				t.Errorf("IsReadOnly() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResidencyTracker_NeedsBufferDeclaration(t *testing.T) {
	tr := NewResidencyTracker()

	if !tr.NeedsBufferDeclaration(0, BufferUsesShaderRead) {
		t.Fatal("first declaration of a new usage must be needed")
	}
	if tr.NeedsBufferDeclaration(0, BufferUsesShaderRead) {
		t.Fatal("repeating an already-declared usage must not be needed again")
	}
	if !tr.NeedsBufferDeclaration(0, BufferUsesShaderWrite) {
		t.Fatal("a new usage bit on an already-tracked index must be needed")
	}
	if tr.NeedsBufferDeclaration(0, BufferUsesShaderRead|BufferUsesShaderWrite) {
		t.Fatal("a usage fully subsumed by what's already declared must not be needed")
	}

	tr.Reset()
	if !tr.NeedsBufferDeclaration(0, BufferUsesShaderRead) {
		t.Fatal("Reset must clear prior declarations")
	}
}

func TestResidencyTracker_NeedsTextureDeclaration(t *testing.T) {
	tr := NewResidencyTracker()

	if !tr.NeedsTextureDeclaration(3, TextureUsesRenderTarget) {
		t.Fatal("first declaration of a new usage must be needed")
	}
	if tr.NeedsTextureDeclaration(3, TextureUsesRenderTarget) {
		t.Fatal("repeating an already-declared usage must not be needed again")
	}
	if !tr.NeedsTextureDeclaration(3, TextureUsesShaderRead) {
		t.Fatal("a new usage bit on an already-tracked index must be needed")
	}
}

func TestBufferUsageScope_Merge(t *testing.T) {
	scope := NewBufferUsageScope()
	scope.SetUsage(0, BufferUsesShaderRead)
	scope.SetUsage(0, BufferUsesCopySrc)

	if got := scope.GetUsage(0); got != BufferUsesShaderRead|BufferUsesCopySrc {
		t.Fatalf("GetUsage(0) = %v, want merged mask", got)
	}
	scope.Clear()
	if got := scope.GetUsage(0); got != BufferUsesNone {
		t.Fatalf("GetUsage(0) after Clear = %v, want none", got)
	}
}

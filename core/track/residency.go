// Package track provides dense-indexed resource usage tracking, shared by
// buffers and textures. Unlike WebGPU's hazard-barrier model, D3D11 on
// Metal does not transition resources between states with explicit
// barriers: untracked (immutable/read-only) allocations must be declared to
// an encoder via UseResource before the encoder touches them, while tracked
// allocations (writable UAVs, render targets) participate in Metal's
// automatic hazard tracking. This package answers "does the encoder already
// know about this resource at this usage, or does a UseResource command
// need to be emitted" — it does not compute barriers.
package track

// BufferUses is a bitset of ways a buffer can be used within an encoder.
type BufferUses uint32

const (
	BufferUsesNone         BufferUses = 0
	BufferUsesCopySrc      BufferUses = 1 << 0
	BufferUsesCopyDst      BufferUses = 1 << 1
	BufferUsesIndex        BufferUses = 1 << 2
	BufferUsesVertex       BufferUses = 1 << 3
	BufferUsesConstant     BufferUses = 1 << 4
	BufferUsesShaderRead   BufferUses = 1 << 5
	BufferUsesShaderWrite  BufferUses = 1 << 6
	BufferUsesIndirect     BufferUses = 1 << 7
	BufferUsesMapRead      BufferUses = 1 << 8
	BufferUsesMapWrite     BufferUses = 1 << 9
	BufferUsesQueryResolve BufferUses = 1 << 10
)

// IsReadOnly reports whether u contains only read usages.
func (u BufferUses) IsReadOnly() bool {
	writes := BufferUsesCopyDst | BufferUsesShaderWrite | BufferUsesMapWrite | BufferUsesQueryResolve
	return u&writes == 0
}

// Contains reports whether every flag in other is set in u.
func (u BufferUses) Contains(other BufferUses) bool { return u&other == other }

// TextureUses is a bitset of ways a texture can be used within an encoder.
type TextureUses uint32

const (
	TextureUsesNone            TextureUses = 0
	TextureUsesCopySrc         TextureUses = 1 << 0
	TextureUsesCopyDst         TextureUses = 1 << 1
	TextureUsesShaderRead      TextureUses = 1 << 2
	TextureUsesShaderWrite     TextureUses = 1 << 3
	TextureUsesRenderTarget    TextureUses = 1 << 4
	TextureUsesDepthStencil    TextureUses = 1 << 5
	TextureUsesResolveTarget   TextureUses = 1 << 6
	TextureUsesPresent         TextureUses = 1 << 7
)

// IsReadOnly reports whether u contains only read usages.
func (u TextureUses) IsReadOnly() bool {
	writes := TextureUsesCopyDst | TextureUsesShaderWrite | TextureUsesRenderTarget | TextureUsesDepthStencil
	return u&writes == 0
}

// Contains reports whether every flag in other is set in u.
func (u TextureUses) Contains(other TextureUses) bool { return u&other == other }

// ResourceMetadata tracks which dense TrackerIndex slots are currently
// occupied, shared by both the buffer and texture usage scopes below.
type ResourceMetadata struct {
	owned []bool
	count int
}

func NewResourceMetadata() ResourceMetadata {
	return ResourceMetadata{owned: make([]bool, 0, 64)}
}

func (m *ResourceMetadata) SetOwned(index TrackerIndex, owned bool) {
	for int(index) >= len(m.owned) {
		m.owned = append(m.owned, false)
	}
	was := m.owned[index]
	m.owned[index] = owned
	switch {
	case owned && !was:
		m.count++
	case !owned && was:
		m.count--
	}
}

func (m *ResourceMetadata) IsOwned(index TrackerIndex) bool {
	return int(index) < len(m.owned) && m.owned[index]
}

func (m *ResourceMetadata) Count() int { return m.count }

func (m *ResourceMetadata) Clear() {
	for i := range m.owned {
		m.owned[i] = false
	}
	m.count = 0
}

// BufferUsageScope accumulates per-encoder buffer usage; which resources
// need a UseResource command this encoder hasn't already declared is
// decided separately, by ResidencyTracker.
type BufferUsageScope struct {
	states   []BufferUses
	metadata ResourceMetadata
}

func NewBufferUsageScope() *BufferUsageScope {
	return &BufferUsageScope{states: make([]BufferUses, 0, 32), metadata: NewResourceMetadata()}
}

func (s *BufferUsageScope) SetUsage(index TrackerIndex, usage BufferUses) {
	s.ensureSize(int(index) + 1)
	if s.metadata.IsOwned(index) {
		s.states[index] |= usage
		return
	}
	s.states[index] = usage
	s.metadata.SetOwned(index, true)
}

func (s *BufferUsageScope) GetUsage(index TrackerIndex) BufferUses {
	if int(index) < len(s.states) && s.metadata.IsOwned(index) {
		return s.states[index]
	}
	return BufferUsesNone
}

func (s *BufferUsageScope) Clear() {
	s.states = s.states[:0]
	s.metadata.Clear()
}

func (s *BufferUsageScope) ensureSize(size int) {
	for len(s.states) < size {
		s.states = append(s.states, BufferUsesNone)
	}
}

// TextureUsageScope is TextureUses's counterpart to BufferUsageScope.
type TextureUsageScope struct {
	states   []TextureUses
	metadata ResourceMetadata
}

func NewTextureUsageScope() *TextureUsageScope {
	return &TextureUsageScope{states: make([]TextureUses, 0, 32), metadata: NewResourceMetadata()}
}

func (s *TextureUsageScope) SetUsage(index TrackerIndex, usage TextureUses) {
	s.ensureSize(int(index) + 1)
	if s.metadata.IsOwned(index) {
		s.states[index] |= usage
		return
	}
	s.states[index] = usage
	s.metadata.SetOwned(index, true)
}

func (s *TextureUsageScope) GetUsage(index TrackerIndex) TextureUses {
	if int(index) < len(s.states) && s.metadata.IsOwned(index) {
		return s.states[index]
	}
	return TextureUsesNone
}

func (s *TextureUsageScope) Clear() {
	s.states = s.states[:0]
	s.metadata.Clear()
}

func (s *TextureUsageScope) ensureSize(size int) {
	for len(s.states) < size {
		s.states = append(s.states, TextureUsesNone)
	}
}

// ResidencyTracker remembers, per encoder (reset every time a new Metal
// encoder opens), which TrackerIndex/usage pairs have already been declared
// via UseResource so PreDraw/PreDispatch only emits the command once per
// newly-needed mask.
type ResidencyTracker struct {
	bufferStates  []BufferUses
	bufferMeta    ResourceMetadata
	textureStates []TextureUses
	textureMeta   ResourceMetadata
}

func NewResidencyTracker() *ResidencyTracker {
	return &ResidencyTracker{
		bufferMeta:  NewResourceMetadata(),
		textureMeta: NewResourceMetadata(),
	}
}

// NeedsBufferDeclaration reports whether usage adds bits beyond what was
// already declared for index this encoder, and records the new mask.
func (t *ResidencyTracker) NeedsBufferDeclaration(index TrackerIndex, usage BufferUses) bool {
	for int(index) >= len(t.bufferStates) {
		t.bufferStates = append(t.bufferStates, BufferUsesNone)
	}
	known := t.bufferStates[index]
	if known.Contains(usage) {
		return false
	}
	t.bufferStates[index] = known | usage
	t.bufferMeta.SetOwned(index, true)
	return true
}

// NeedsTextureDeclaration is NeedsBufferDeclaration's texture counterpart.
func (t *ResidencyTracker) NeedsTextureDeclaration(index TrackerIndex, usage TextureUses) bool {
	for int(index) >= len(t.textureStates) {
		t.textureStates = append(t.textureStates, TextureUsesNone)
	}
	known := t.textureStates[index]
	if known.Contains(usage) {
		return false
	}
	t.textureStates[index] = known | usage
	t.textureMeta.SetOwned(index, true)
	return true
}

// Reset clears all recorded declarations; called when a new encoder opens.
func (t *ResidencyTracker) Reset() {
	for i := range t.bufferStates {
		t.bufferStates[i] = BufferUsesNone
	}
	for i := range t.textureStates {
		t.textureStates[i] = TextureUsesNone
	}
	t.bufferMeta.Clear()
	t.textureMeta.Clear()
}

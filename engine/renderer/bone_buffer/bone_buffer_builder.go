package bone_buffer

// BoneBufferBuilderOption is a functional option for configuring a BoneBuffer during construction.
type BoneBufferBuilderOption func(*boneBuffer)

// WithCapacity sets the number of entity records the buffer holds.
//
// Parameters:
//   - n: the record count
//
// Returns:
//   - BoneBufferBuilderOption: option function to apply
func WithCapacity(n int) BoneBufferBuilderOption {
	return func(b *boneBuffer) {
		b.capacity = n
	}
}

// WithLabel sets the debug label used for the GPU buffer and in errors.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - BoneBufferBuilderOption: option function to apply
func WithLabel(label string) BoneBufferBuilderOption {
	return func(b *boneBuffer) {
		b.label = label
	}
}

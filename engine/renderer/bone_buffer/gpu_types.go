package bone_buffer

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUEntityBonesSource is the canonical WGSL definition of the EntityBones struct.
// Matches GPUEntityBones layout exactly (3904 bytes, std430 aligned).
//
//go:embed assets/entity_bones.wgsl
var GPUEntityBonesSource string

// GPUEntityBones is the GPU-aligned record of one entity: the model matrix followed by
// the 60-matrix bone palette, all column-major.
// Size: 3904 bytes (61 × mat4x4<f32>).
type GPUEntityBones struct {
	// Model is at offset 0, size 64.
	Model [16]float32
	// Bones is at offset 64, size 3840.
	Bones [skeleton.MaxBones][16]float32
}

// Size returns the size of the GPUEntityBones struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUEntityBones) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalInto serializes the record into buf, which must hold at least Size() bytes.
//
// Parameters:
//   - buf: destination buffer
func (g *GPUEntityBones) MarshalInto(buf []byte) {
	putMat(buf, g.Model)
	for i := range g.Bones {
		putMat(buf[(i+1)*64:], g.Bones[i])
	}
}

// newGPUEntityBones copies a model matrix and a pose into a GPU record.
func newGPUEntityBones(model mgl32.Mat4, pose skeleton.Pose) GPUEntityBones {
	g := GPUEntityBones{Model: model}
	for i, m := range pose {
		g.Bones[i] = m
	}
	return g
}

func putMat(buf []byte, m [16]float32) {
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(m[i]))
	}
}

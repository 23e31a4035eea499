package bone_buffer

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// RecordSize is the byte size of one entity record in the bone buffer.
const RecordSize = 64 * (1 + skeleton.MaxBones)

// DefaultCapacity is the number of entity records allocated when none is configured.
const DefaultCapacity = 64

// ErrSlotOutOfRange is returned when staging into a slot past the buffer capacity.
var ErrSlotOutOfRange = errors.New("bone buffer slot out of range")

// BufferWrite describes a single GPU buffer write: a byte range of the staging buffer
// destined for the same offset in the GPU buffer.
type BufferWrite struct {
	Offset uint64
	Data   []byte
}

// Source is anything that can be drawn with a bone palette. entity.Entity satisfies it.
type Source interface {
	ModelMatrix() mgl32.Mat4
	BoneTransforms() skeleton.Pose
}

type boneBuffer struct {
	mu sync.Mutex

	label    string
	capacity int
	staging  []byte
	dirty    []bool
	writes   []BufferWrite // reused between frames
	buffer   *wgpu.Buffer
}

// BoneBuffer stages per-entity model matrices and bone palettes in CPU memory and turns the
// slots changed since the last flush into coalesced GPU buffer writes.
//
// A BoneBuffer is safe for concurrent use; entities may be staged from parallel workers.
type BoneBuffer interface {
	// Label returns the debug label of the buffer.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Capacity returns the number of entity records the buffer holds.
	//
	// Returns:
	//   - int: the record count
	Capacity() int

	// Size returns the byte size of the staging buffer.
	//
	// Returns:
	//   - uint64: size in bytes
	Size() uint64

	// Stage writes one entity record into a slot.
	//
	// Parameters:
	//   - slot: the record index
	//   - model: the entity's model matrix
	//   - pose: the entity's bone transforms
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if slot is not within capacity
	Stage(slot int, model mgl32.Mat4, pose skeleton.Pose) error

	// StageSource writes the current model matrix and pose of src into a slot.
	//
	// Parameters:
	//   - slot: the record index
	//   - src: the drawable source
	//
	// Returns:
	//   - error: ErrSlotOutOfRange if slot is not within capacity
	StageSource(slot int, src Source) error

	// Record returns a copy of the staged bytes of one slot.
	//
	// Parameters:
	//   - slot: the record index
	//
	// Returns:
	//   - []byte: RecordSize bytes, nil if slot is out of range
	Record(slot int) []byte

	// Flush returns the writes covering every slot staged since the previous flush.
	// Adjacent slots are merged into a single write. The returned slice and its data are
	// reused by the next Flush.
	//
	// Returns:
	//   - []BufferWrite: the pending writes in offset order
	Flush() []BufferWrite

	// Allocate creates the GPU storage buffer backing this bone buffer.
	//
	// Parameters:
	//   - device: the device to allocate on
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: error if allocation fails
	Allocate(device *wgpu.Device) (*wgpu.Buffer, error)

	// Upload flushes pending writes to the allocated GPU buffer.
	//
	// Parameters:
	//   - queue: the device queue
	//
	// Returns:
	//   - int: the number of writes issued
	Upload(queue *wgpu.Queue) int

	// Release releases the GPU buffer.
	Release()
}

var _ BoneBuffer = &boneBuffer{}

// NewBoneBuffer creates a new BoneBuffer with the provided options. Every slot starts as an
// identity model matrix and identity pose, and is marked for upload.
//
// Parameters:
//   - options: variadic list of BoneBufferBuilderOption functions
//
// Returns:
//   - BoneBuffer: the bone buffer
func NewBoneBuffer(options ...BoneBufferBuilderOption) BoneBuffer {
	b := &boneBuffer{
		label:    "Bone Buffer",
		capacity: DefaultCapacity,
	}
	for _, option := range options {
		option(b)
	}
	if b.capacity < 1 {
		b.capacity = DefaultCapacity
	}

	b.staging = make([]byte, b.capacity*RecordSize)
	b.dirty = make([]bool, b.capacity)
	identity := newGPUEntityBones(mgl32.Ident4(), skeleton.IdentityPose())
	for slot := range b.capacity {
		identity.MarshalInto(b.staging[slot*RecordSize:])
		b.dirty[slot] = true
	}
	return b
}

func (b *boneBuffer) Label() string {
	return b.label
}

func (b *boneBuffer) Capacity() int {
	return b.capacity
}

func (b *boneBuffer) Size() uint64 {
	return uint64(len(b.staging))
}

func (b *boneBuffer) Stage(slot int, model mgl32.Mat4, pose skeleton.Pose) error {
	if slot < 0 || slot >= b.capacity {
		return fmt.Errorf("%s: %w: %d of %d", b.label, ErrSlotOutOfRange, slot, b.capacity)
	}
	rec := newGPUEntityBones(model, pose)

	b.mu.Lock()
	defer b.mu.Unlock()
	rec.MarshalInto(b.staging[slot*RecordSize:])
	b.dirty[slot] = true
	return nil
}

func (b *boneBuffer) StageSource(slot int, src Source) error {
	return b.Stage(slot, src.ModelMatrix(), src.BoneTransforms())
}

func (b *boneBuffer) Record(slot int) []byte {
	if slot < 0 || slot >= b.capacity {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.staging[slot*RecordSize : (slot+1)*RecordSize])
}

func (b *boneBuffer) Flush() []BufferWrite {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writes = b.writes[:0]
	for slot := 0; slot < b.capacity; {
		if !b.dirty[slot] {
			slot++
			continue
		}
		end := slot
		for end < b.capacity && b.dirty[end] {
			b.dirty[end] = false
			end++
		}
		b.writes = append(b.writes, BufferWrite{
			Offset: uint64(slot * RecordSize),
			Data:   b.staging[slot*RecordSize : end*RecordSize],
		})
		slot = end
	}
	return b.writes
}

func (b *boneBuffer) Allocate(device *wgpu.Device) (*wgpu.Buffer, error) {
	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            b.label,
		Size:             b.Size(),
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: allocate: %w", b.label, err)
	}
	b.mu.Lock()
	b.buffer = buf
	b.mu.Unlock()
	return buf, nil
}

func (b *boneBuffer) Upload(queue *wgpu.Queue) int {
	writes := b.Flush()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffer == nil {
		return 0
	}
	for _, w := range writes {
		queue.WriteBuffer(b.buffer, w.Offset, w.Data)
	}
	return len(writes)
}

func (b *boneBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

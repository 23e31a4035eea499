package bone_buffer

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeSource struct {
	model mgl32.Mat4
	pose  skeleton.Pose
}

func (f fakeSource) ModelMatrix() mgl32.Mat4 {
	return f.model
}

func (f fakeSource) BoneTransforms() skeleton.Pose {
	return f.pose
}

func floatAt(rec []byte, index int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(rec[index*4:]))
}

func TestRecordSize(t *testing.T) {
	if got := (&GPUEntityBones{}).Size(); got != RecordSize {
		t.Fatalf("GPUEntityBones size = %d, want %d", got, RecordSize)
	}
	if RecordSize != 3904 {
		t.Fatalf("RecordSize = %d, want 3904", RecordSize)
	}
}

func TestStageLayout(t *testing.T) {
	b := NewBoneBuffer(WithCapacity(2))
	pose := skeleton.IdentityPose()
	pose[1] = mgl32.Translate3D(1, 2, 3)
	if err := b.StageSource(1, fakeSource{model: mgl32.Translate3D(7, 8, 9), pose: pose}); err != nil {
		t.Fatalf("StageSource: %v", err)
	}

	rec := b.Record(1)
	if len(rec) != RecordSize {
		t.Fatalf("record length = %d", len(rec))
	}
	// column-major: translation lives in elements 12..14
	if floatAt(rec, 12) != 7 || floatAt(rec, 13) != 8 || floatAt(rec, 14) != 9 {
		t.Errorf("model translation = %v %v %v", floatAt(rec, 12), floatAt(rec, 13), floatAt(rec, 14))
	}
	bone1 := 16 + 16 // model, then bone 0
	if floatAt(rec, bone1+12) != 1 || floatAt(rec, bone1+13) != 2 || floatAt(rec, bone1+14) != 3 {
		t.Errorf("bone 1 translation not staged")
	}
	if floatAt(rec, 16) != 1 || floatAt(rec, 16+12) != 0 {
		t.Errorf("bone 0 is not identity")
	}

	untouched := b.Record(0)
	if floatAt(untouched, 0) != 1 || floatAt(untouched, 5) != 1 || floatAt(untouched, 1) != 0 {
		t.Errorf("unstaged slot is not identity")
	}
}

func TestFlushCoalesces(t *testing.T) {
	b := NewBoneBuffer(WithCapacity(6))

	writes := b.Flush()
	if len(writes) != 1 || writes[0].Offset != 0 || uint64(len(writes[0].Data)) != b.Size() {
		t.Fatalf("initial flush = %d writes, want one covering the buffer", len(writes))
	}
	if writes := b.Flush(); len(writes) != 0 {
		t.Fatalf("second flush = %d writes, want none", len(writes))
	}

	for _, slot := range []int{1, 2, 4} {
		if err := b.Stage(slot, mgl32.Ident4(), skeleton.IdentityPose()); err != nil {
			t.Fatalf("Stage(%d): %v", slot, err)
		}
	}
	writes = b.Flush()
	if len(writes) != 2 {
		t.Fatalf("flush = %d writes, want 2", len(writes))
	}
	if writes[0].Offset != RecordSize || len(writes[0].Data) != 2*RecordSize {
		t.Errorf("first write = offset %d len %d", writes[0].Offset, len(writes[0].Data))
	}
	if writes[1].Offset != 4*RecordSize || len(writes[1].Data) != RecordSize {
		t.Errorf("second write = offset %d len %d", writes[1].Offset, len(writes[1].Data))
	}
}

func TestStageOutOfRange(t *testing.T) {
	b := NewBoneBuffer(WithCapacity(1), WithLabel("test"))
	for _, slot := range []int{-1, 1} {
		if err := b.Stage(slot, mgl32.Ident4(), skeleton.IdentityPose()); !errors.Is(err, ErrSlotOutOfRange) {
			t.Errorf("Stage(%d) err = %v, want ErrSlotOutOfRange", slot, err)
		}
	}
	if b.Record(3) != nil {
		t.Errorf("Record out of range returned data")
	}
	if b.Upload(nil) != 0 {
		t.Errorf("Upload without an allocated buffer issued writes")
	}
}

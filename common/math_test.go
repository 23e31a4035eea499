package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// near compares element-wise with an absolute tolerance.
func near(a, b []float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > 1e-5 || d < -1e-5 {
			return false
		}
	}
	return true
}

func TestQuatMatrix(t *testing.T) {
	tests := []struct {
		name string
		q    mgl32.Quat
		want mgl32.Mat4
		ok   bool
	}{
		{"identity", mgl32.QuatIdent(), mgl32.Ident4(), true},
		{"unnormalized identity", mgl32.Quat{W: 3}, mgl32.Ident4(), true},
		{"yaw 90", mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}), mgl32.HomogRotate3DY(mgl32.DegToRad(90)), true},
		{"degenerate", mgl32.Quat{}, mgl32.Ident4(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := QuatMatrix(tt.q)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !near(got[:], tt.want[:]) {
				t.Errorf("QuatMatrix = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotateYawMatchesYawMatrix(t *testing.T) {
	v := mgl32.Vec3{1, 2, 3}
	for _, deg := range []float32{0, 30, 90, 180, -45} {
		want := YawMatrix(deg).Mul4x1(v.Vec4(1)).Vec3()
		if got := RotateYaw(v, deg); !near(got[:], want[:]) {
			t.Errorf("RotateYaw(%v) = %v, want %v", deg, got, want)
		}
	}
	if got := RotateYaw(mgl32.Vec3{1, 0, 0}, 90); !near(got[:], []float32{0, 0, 1}) {
		t.Errorf("RotateYaw(x, 90) = %v, want +z", got)
	}
}

func TestBuildModelMatrix(t *testing.T) {
	m := BuildModelMatrix(mgl32.Vec3{1, 2, 3}, 90, 2)
	if got := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3(); !near(got[:], []float32{1, 2, 5}) {
		t.Errorf("model * x = %v, want (1,2,5)", got)
	}
	if got := m.Col(3).Vec3(); got != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("translation = %v", got)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce[float32](0, 0, 2, 3); got != 2 {
		t.Errorf("Coalesce = %v, want 2", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce of zeros = %q", got)
	}
}

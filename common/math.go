package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// QuatNormEpsilon is the squared-norm threshold below which a quaternion is treated as degenerate.
const QuatNormEpsilon = 1e-6

// QuatMatrix converts a rotation quaternion into a 4x4 homogeneous rotation matrix.
// The quaternion does not need to be unit length; it is normalized as part of the conversion.
// Quaternions whose squared norm falls below QuatNormEpsilon produce the identity matrix.
//
// Parameters:
//   - q: the rotation quaternion (W, X, Y, Z)
//
// Returns:
//   - mgl32.Mat4: the column-major rotation matrix
//   - bool: false if the quaternion was degenerate and identity was substituted
func QuatMatrix(q mgl32.Quat) (mgl32.Mat4, bool) {
	w, x, y, z := float64(q.W), float64(q.V[0]), float64(q.V[1]), float64(q.V[2])
	n := w*w + x*x + y*y + z*z
	if n < QuatNormEpsilon {
		return mgl32.Ident4(), false
	}
	s := 2.0 / n

	m00 := 1 - s*(y*y+z*z)
	m01 := s * (x*y - w*z)
	m02 := s * (x*z + w*y)
	m10 := s * (x*y + w*z)
	m11 := 1 - s*(x*x+z*z)
	m12 := s * (y*z - w*x)
	m20 := s * (x*z - w*y)
	m21 := s * (y*z + w*x)
	m22 := 1 - s*(x*x+y*y)

	return mgl32.Mat4{
		float32(m00), float32(m10), float32(m20), 0,
		float32(m01), float32(m11), float32(m21), 0,
		float32(m02), float32(m12), float32(m22), 0,
		0, 0, 0, 1,
	}, true
}

// YawMatrix builds a rotation about the Y axis by the given angle in degrees.
// Positive angles turn the +X axis towards +Z, matching RotateYaw.
//
// Parameters:
//   - degrees: the rotation angle in degrees
//
// Returns:
//   - mgl32.Mat4: the column-major rotation matrix
func YawMatrix(degrees float32) mgl32.Mat4 {
	c, s := cosSin(degrees)
	return mgl32.Mat4{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotateYaw rotates a vector about the Y axis by the given angle in degrees.
// It is equivalent to YawMatrix(degrees) applied to v, without building the matrix.
//
// Parameters:
//   - v: the vector to rotate
//   - degrees: the rotation angle in degrees
//
// Returns:
//   - mgl32.Vec3: the rotated vector
func RotateYaw(v mgl32.Vec3, degrees float32) mgl32.Vec3 {
	c, s := cosSin(degrees)
	return mgl32.Vec3{
		c*v[0] - s*v[2],
		v[1],
		s*v[0] + c*v[2],
	}
}

// BuildModelMatrix constructs a model matrix from a position, a yaw angle in degrees and a uniform scale.
// The result is T(position) * Yaw(angle) * S(scale).
//
// Parameters:
//   - position: translation in world space
//   - yawDegrees: facing angle about the Y axis in degrees
//   - scale: uniform scale factor
//
// Returns:
//   - mgl32.Mat4: the column-major model matrix
func BuildModelMatrix(position mgl32.Vec3, yawDegrees, scale float32) mgl32.Mat4 {
	m := YawMatrix(yawDegrees).Mul4(mgl32.Scale3D(scale, scale, scale))
	m[12], m[13], m[14] = position[0], position[1], position[2]
	return m
}

func cosSin(degrees float32) (float32, float32) {
	s, c := math.Sincos(float64(degrees) * math.Pi / 180)
	return float32(c), float32(s)
}

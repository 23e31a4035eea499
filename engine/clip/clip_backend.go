package clip

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// clipBackend is the variant-specific half of a clip. The skeletal backend reads root motion
// from the root bone's position track; the proxy backend derives it from the configured
// end position and has no skeleton or tracks.
type clipBackend interface {
	skeleton() skeleton.Skeleton
	track(boneID int) (Track, bool)
	tracks() map[string]Track
	rootOffset(frame int, cfg *Config) mgl32.Vec3
	endOffset(lastFrame int, cfg *Config) mgl32.Vec3
	endRotation(cfg *Config) float32
}

// wrapIndex maps a frame onto a key array of length n, wrapping when the array is shorter
// than the clip. The caller guarantees n > 0.
func wrapIndex(frame, n int) int {
	i := frame % n
	if i < 0 {
		i += n
	}
	return i
}

// PositionAt returns the position key for a frame, wrapping over the key array.
//
// Parameters:
//   - frame: the frame index
//
// Returns:
//   - mgl32.Vec3: the position key
//   - bool: false if the track has no position keys
func (t Track) PositionAt(frame int) (mgl32.Vec3, bool) {
	if len(t.Positions) == 0 {
		return mgl32.Vec3{}, false
	}
	return t.Positions[wrapIndex(frame, len(t.Positions))], true
}

// RotationAt returns the rotation key for a frame, wrapping over the key array.
//
// Parameters:
//   - frame: the frame index
//
// Returns:
//   - mgl32.Quat: the rotation key
//   - bool: false if the track has no rotation keys
func (t Track) RotationAt(frame int) (mgl32.Quat, bool) {
	if len(t.Rotations) == 0 {
		return mgl32.QuatIdent(), false
	}
	return t.Rotations[wrapIndex(frame, len(t.Rotations))], true
}

// Len returns the number of frames covered by the longer of the two key arrays.
func (t Track) Len() int {
	return max(len(t.Positions), len(t.Rotations))
}

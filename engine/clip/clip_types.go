package clip

import (
	"github.com/go-gl/mathgl/mgl32"
)

// State is the completion state of a clip at a given time.
type State int

const (
	// StateRunning means the clip still has frames left to play (always the case for looping clips).
	StateRunning State = iota

	// StateFinished means a non-looping clip has played past its last frame.
	StateFinished
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Track is the key-frame data of a single bone, sampled once per frame.
// Positions and Rotations may have different lengths; readers wrap each independently.
type Track struct {
	// Positions are the per-frame local translations.
	Positions []mgl32.Vec3

	// Rotations are the per-frame local rotations.
	Rotations []mgl32.Quat
}

// Config holds the playback parameters of a clip.
type Config struct {
	// Name identifies the clip in logs and caches.
	Name string

	// FPS is the sampling rate used to map time to frames.
	FPS float64

	// FrameCount is the number of frames in one pass of the clip.
	FrameCount int

	// Looping clips never finish.
	Looping bool

	// Invert plays the frames back to front.
	Invert bool

	// EndPosition is the root displacement reached at the end of a proxy clip.
	EndPosition mgl32.Vec3

	// EndRotation is the yaw in degrees reached at the end of a proxy clip.
	EndRotation float32

	// PoseCacheLimit bounds the number of cached poses; zero means unbounded.
	PoseCacheLimit int
}

// CacheStats counts pose cache lookups on a clip.
type CacheStats struct {
	Hits, Misses, Evictions uint64
	Entries                 int
}

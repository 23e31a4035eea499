package clip

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ClipBuilderOption is a functional option for configuring a Clip during construction.
type ClipBuilderOption func(*Config)

// WithName is an option builder that sets the clip name used in logs and caches.
//
// Parameters:
//   - name: the clip identifier
//
// Returns:
//   - ClipBuilderOption: a function that applies the name option to a clip
func WithName(name string) ClipBuilderOption {
	return func(c *Config) {
		c.Name = name
	}
}

// WithFPS is an option builder that sets the sampling rate of the clip.
//
// Parameters:
//   - fps: frames per second, must be positive
//
// Returns:
//   - ClipBuilderOption: a function that applies the fps option to a clip
func WithFPS(fps float64) ClipBuilderOption {
	return func(c *Config) {
		c.FPS = fps
	}
}

// WithFrameCount is an option builder that sets the number of frames in the clip.
// Skeletal clips default to the longest track when this is left at zero.
//
// Parameters:
//   - n: the frame count, must be at least 1
//
// Returns:
//   - ClipBuilderOption: a function that applies the frame count option to a clip
func WithFrameCount(n int) ClipBuilderOption {
	return func(c *Config) {
		c.FrameCount = n
	}
}

// WithLooping is an option builder that sets whether the clip repeats forever.
//
// Parameters:
//   - looping: true for a looping clip
//
// Returns:
//   - ClipBuilderOption: a function that applies the looping option to a clip
func WithLooping(looping bool) ClipBuilderOption {
	return func(c *Config) {
		c.Looping = looping
	}
}

// WithInvert is an option builder that plays the clip's frames in reverse order.
//
// Parameters:
//   - invert: true to reverse playback
//
// Returns:
//   - ClipBuilderOption: a function that applies the invert option to a clip
func WithInvert(invert bool) ClipBuilderOption {
	return func(c *Config) {
		c.Invert = invert
	}
}

// WithEndPosition is an option builder that sets the root displacement of a proxy clip.
//
// Parameters:
//   - p: the displacement reached at the end of the clip
//
// Returns:
//   - ClipBuilderOption: a function that applies the end position option to a clip
func WithEndPosition(p mgl32.Vec3) ClipBuilderOption {
	return func(c *Config) {
		c.EndPosition = p
	}
}

// WithEndRotation is an option builder that sets the yaw reached at the end of a proxy clip.
//
// Parameters:
//   - degrees: the end yaw in degrees
//
// Returns:
//   - ClipBuilderOption: a function that applies the end rotation option to a clip
func WithEndRotation(degrees float32) ClipBuilderOption {
	return func(c *Config) {
		c.EndRotation = degrees
	}
}

// WithPoseCacheLimit is an option builder that bounds the clip's pose cache.
// When the limit is reached the least recently used pose is evicted.
//
// Parameters:
//   - n: the maximum number of cached poses, zero for unbounded
//
// Returns:
//   - ClipBuilderOption: a function that applies the cache limit option to a clip
func WithPoseCacheLimit(n int) ClipBuilderOption {
	return func(c *Config) {
		c.PoseCacheLimit = n
	}
}

// WithConfig is an option builder that replaces the whole configuration at once.
// Later options still override individual fields.
//
// Parameters:
//   - cfg: the configuration to apply
//
// Returns:
//   - ClipBuilderOption: a function that applies the configuration to a clip
func WithConfig(cfg Config) ClipBuilderOption {
	return func(c *Config) {
		*c = cfg
	}
}

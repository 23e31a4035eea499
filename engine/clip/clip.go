package clip

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Errors returned when a clip cannot be constructed.
var (
	ErrInvalidFPS  = errors.New("clip fps must be positive")
	ErrNoFrames    = errors.New("clip must have at least one frame")
	ErrNilSkeleton = errors.New("skeletal clip requires a finalized skeleton")
	ErrUnknownBone = errors.New("clip track references a bone that is not in the skeleton")
)

// frameEpsilon absorbs floating point noise when time*fps lands a hair below a frame boundary.
const frameEpsilon = 1e-9

// clip is the implementation of the Clip interface.
type clip struct {
	cfg     Config
	backend clipBackend
	cache   *poseCache
}

// Clip is a time-parameterized source of bone poses: either a skeletal clip holding
// per-bone key-frame tracks, or a proxy clip describing pure root displacement and yaw.
//
// Clips are immutable apart from their pose cache, which is guarded internally so a clip
// can be shared by several entities using the same animation and skeleton.
type Clip interface {
	// Name returns the clip identifier.
	//
	// Returns:
	//   - string: the clip name
	Name() string

	// Config returns the resolved playback configuration.
	//
	// Returns:
	//   - Config: the clip configuration
	Config() Config

	// Proxy reports whether this clip has no skeleton and only describes root motion.
	//
	// Returns:
	//   - bool: true for proxy clips
	Proxy() bool

	// Skeleton returns the hierarchy the clip's tracks are bound to, or nil for proxy clips.
	//
	// Returns:
	//   - skeleton.Skeleton: the bound skeleton or nil
	Skeleton() skeleton.Skeleton

	// Track returns the key-frame track of the bone with the given ID.
	//
	// Parameters:
	//   - boneID: the bone ID
	//
	// Returns:
	//   - Track: the bone's track
	//   - bool: false if the bone has no track of its own
	Track(boneID int) (Track, bool)

	// Tracks returns every track keyed by canonical bone name.
	//
	// Returns:
	//   - map[string]Track: the tracks
	Tracks() map[string]Track

	// FPS returns the sampling rate.
	FPS() float64

	// FrameCount returns the number of frames in one pass.
	FrameCount() int

	// Looping reports whether the clip repeats forever.
	Looping() bool

	// Inverted reports whether frames play back to front.
	Inverted() bool

	// Duration returns the length of one pass in seconds.
	Duration() float64

	// Frame maps a time offset into the clip onto a frame index: floor(t*fps) mod frameCount,
	// reversed as frameCount-f-1 when the clip is inverted.
	//
	// Parameters:
	//   - t: seconds since the clip started
	//
	// Returns:
	//   - int: the frame index in [0, FrameCount())
	Frame(t float64) int

	// State reports whether the clip is still running at time t.
	// Looping clips always run; others finish once floor(t*fps) passes the last frame.
	//
	// Parameters:
	//   - t: seconds since the clip started
	//
	// Returns:
	//   - State: StateRunning or StateFinished
	State(t float64) State

	// RootOffset returns the root displacement at time t.
	//
	// Parameters:
	//   - t: seconds since the clip started
	//
	// Returns:
	//   - mgl32.Vec3: the root bone's position key, or the proxy's scaled end position
	RootOffset(t float64) mgl32.Vec3

	// RootOffsetAt returns the root displacement at a frame index.
	//
	// Parameters:
	//   - frame: the frame index
	//
	// Returns:
	//   - mgl32.Vec3: the root displacement
	RootOffsetAt(frame int) mgl32.Vec3

	// EndOffset returns the root displacement reached when the clip completes.
	//
	// Returns:
	//   - mgl32.Vec3: the final root displacement
	EndOffset() mgl32.Vec3

	// EndRotation returns the yaw in degrees the clip adds to its owner when it completes.
	// Skeletal clips carry their rotation in the bones and return zero.
	//
	// Returns:
	//   - float32: the yaw delta in degrees
	EndRotation() float32

	// CachedPose returns a previously stored pose.
	//
	// Parameters:
	//   - frame: the frame index
	//   - rooted: whether root translation was applied
	//
	// Returns:
	//   - skeleton.Pose: a copy of the cached pose
	//   - bool: false on a cache miss
	CachedPose(frame int, rooted bool) (skeleton.Pose, bool)

	// StorePose records an evaluated pose.
	//
	// Parameters:
	//   - frame: the frame index
	//   - rooted: whether root translation was applied
	//   - p: the pose to store
	StorePose(frame int, rooted bool, p skeleton.Pose)

	// CacheStats returns pose cache counters.
	//
	// Returns:
	//   - CacheStats: hits, misses, evictions and current entry count
	CacheStats() CacheStats

	// ResetCache drops every cached pose.
	ResetCache()
}

var _ Clip = &clip{}

// NewSkeletal creates a skeletal clip bound to a finalized skeleton.
// Track names are resolved against the skeleton ignoring case; a track for an unknown bone
// is a configuration error. The frame count defaults to the longest track when not set.
//
// Parameters:
//   - skel: the finalized skeleton the tracks animate
//   - tracks: per-bone key-frame tracks keyed by bone name
//   - options: variadic list of ClipBuilderOption functions
//
// Returns:
//   - Clip: the clip
//   - error: error if the skeleton is nil, a bone is unknown or the configuration is invalid
func NewSkeletal(skel skeleton.Skeleton, tracks map[string]Track, options ...ClipBuilderOption) (Clip, error) {
	cfg := applyOptions(options)
	if skel == nil {
		return nil, fmt.Errorf("clip %q: %w", cfg.Name, ErrNilSkeleton)
	}

	backend, err := newSkeletalClipBackend(skel, tracks, cfg.Name)
	if err != nil {
		return nil, err
	}
	if cfg.FrameCount == 0 {
		cfg.FrameCount = backend.longestTrack()
	}
	return newClip(cfg, backend)
}

// NewProxy creates a clip with no skeleton that moves and turns its owner by
// EndPosition and EndRotation over FrameCount frames.
//
// Parameters:
//   - options: variadic list of ClipBuilderOption functions
//
// Returns:
//   - Clip: the clip
//   - error: error if the configuration is invalid
func NewProxy(options ...ClipBuilderOption) (Clip, error) {
	cfg := applyOptions(options)
	return newClip(cfg, newProxyClipBackend())
}

func applyOptions(options []ClipBuilderOption) Config {
	cfg := Config{FPS: 1}
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

func newClip(cfg Config, backend clipBackend) (Clip, error) {
	if !(cfg.FPS > 0) || math.IsInf(cfg.FPS, 0) {
		return nil, fmt.Errorf("clip %q: %w (got %v)", cfg.Name, ErrInvalidFPS, cfg.FPS)
	}
	if cfg.FrameCount < 1 {
		return nil, fmt.Errorf("clip %q: %w (got %d)", cfg.Name, ErrNoFrames, cfg.FrameCount)
	}
	return &clip{
		cfg:     cfg,
		backend: backend,
		cache:   newPoseCache(cfg.PoseCacheLimit),
	}, nil
}

func (c *clip) Name() string {
	return c.cfg.Name
}

func (c *clip) Config() Config {
	return c.cfg
}

func (c *clip) Proxy() bool {
	return c.backend.skeleton() == nil
}

func (c *clip) Skeleton() skeleton.Skeleton {
	return c.backend.skeleton()
}

func (c *clip) Track(boneID int) (Track, bool) {
	return c.backend.track(boneID)
}

func (c *clip) Tracks() map[string]Track {
	return c.backend.tracks()
}

func (c *clip) FPS() float64 {
	return c.cfg.FPS
}

func (c *clip) FrameCount() int {
	return c.cfg.FrameCount
}

func (c *clip) Looping() bool {
	return c.cfg.Looping
}

func (c *clip) Inverted() bool {
	return c.cfg.Invert
}

func (c *clip) Duration() float64 {
	return float64(c.cfg.FrameCount) / c.cfg.FPS
}

func (c *clip) Frame(t float64) int {
	n := c.cfg.FrameCount
	f := c.rawFrame(t) % n
	if f < 0 {
		f += n
	}
	if c.cfg.Invert {
		f = n - f - 1
	}
	return f
}

func (c *clip) State(t float64) State {
	if c.cfg.Looping {
		return StateRunning
	}
	if c.rawFrame(t) > c.cfg.FrameCount-1 {
		return StateFinished
	}
	return StateRunning
}

func (c *clip) RootOffset(t float64) mgl32.Vec3 {
	return c.RootOffsetAt(c.Frame(t))
}

func (c *clip) RootOffsetAt(frame int) mgl32.Vec3 {
	return c.backend.rootOffset(frame, &c.cfg)
}

func (c *clip) EndOffset() mgl32.Vec3 {
	last := c.cfg.FrameCount - 1
	if c.cfg.Invert {
		last = 0
	}
	return c.backend.endOffset(last, &c.cfg)
}

func (c *clip) EndRotation() float32 {
	return c.backend.endRotation(&c.cfg)
}

func (c *clip) CachedPose(frame int, rooted bool) (skeleton.Pose, bool) {
	return c.cache.load(poseKey{frame: frame, rooted: rooted})
}

func (c *clip) StorePose(frame int, rooted bool, p skeleton.Pose) {
	c.cache.store(poseKey{frame: frame, rooted: rooted}, p)
}

func (c *clip) CacheStats() CacheStats {
	return c.cache.stats()
}

func (c *clip) ResetCache() {
	c.cache.clear()
}

// rawFrame is floor(t*fps) before wrapping.
func (c *clip) rawFrame(t float64) int {
	return int(math.Floor(t*c.cfg.FPS + frameEpsilon))
}

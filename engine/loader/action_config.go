package loader

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Errors returned when an action configuration is invalid.
var (
	ErrMissingField  = errors.New("action config is missing a required field")
	ErrInvalidAction = errors.New("action config has an invalid value")
)

// actionSuffixes mark a YAML file as an action configuration rather than a model.
var actionSuffixes = []string{".action.yaml", ".action.yml"}

// ActionConfig describes one action of an entity: which animation it plays and how.
// An action without a source is a proxy that only moves and turns its owner, in which case
// fps and frame_count are required.
//
//	name: walk
//	source: models/hero.glb
//	looping: false
//	end_position: [0, 0, 1.5]
//	weight: 2
type ActionConfig struct {
	Name           string     `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Action name used by weight tables. Defaults to the file name."`
	Source         string     `yaml:"source,omitempty" json:"source,omitempty" jsonschema:"title=Source,description=Model file holding the animation. Omit for a proxy action."`
	AnimationIndex int        `yaml:"animation_index,omitempty" json:"animation_index,omitempty" jsonschema:"title=Animation index,description=Animation to play when the source holds several.,minimum=0"`
	FPS            *float64   `yaml:"fps,omitempty" json:"fps,omitempty" jsonschema:"title=Frames per second,description=Defaults to the tick rate of the source."`
	FrameCount     *int       `yaml:"frame_count,omitempty" json:"frame_count,omitempty" jsonschema:"title=Frame count,description=Defaults to the duration of the source in ticks.,minimum=1"`
	Looping        *bool      `yaml:"looping" json:"looping" jsonschema:"title=Looping,description=Looping actions never finish on their own."`
	Invert         bool       `yaml:"invert,omitempty" json:"invert,omitempty" jsonschema:"title=Invert,description=Play the frames backwards."`
	EndPosition    [3]float32 `yaml:"end_position,omitempty,flow" json:"end_position,omitempty" jsonschema:"title=End position,description=Root displacement of a proxy action over its whole length."`
	EndRotation    float32    `yaml:"end_rotation,omitempty" json:"end_rotation,omitempty" jsonschema:"title=End rotation,description=Yaw in degrees applied to the owner when the action finishes."`
	Weight         *float64   `yaml:"weight,omitempty" json:"weight,omitempty" jsonschema:"title=Weight,description=Selection weight. Higher weights are picked first.,minimum=0"`
	PoseCacheLimit int        `yaml:"pose_cache_limit,omitempty" json:"pose_cache_limit,omitempty" jsonschema:"title=Pose cache limit,description=Maximum number of cached poses. Zero keeps every pose.,minimum=0"`
}

// IsActionFile reports whether path names an action configuration file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - bool: true for *.action.yaml and *.action.yml files
func IsActionFile(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range actionSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// BasicAction returns the configuration used when an entity is given a plain model path:
// the first animation of the model, looping.
//
// Parameters:
//   - source: the model path
//
// Returns:
//   - ActionConfig: the configuration
func BasicAction(source string) ActionConfig {
	looping := true
	return ActionConfig{
		Name:    baseName(source),
		Source:  source,
		Looping: &looping,
	}
}

// LoadActionConfig reads an action configuration file. Any path that is not an action file
// is treated as a model and yields BasicAction(path).
//
// Parameters:
//   - path: the action file or model path
//
// Returns:
//   - ActionConfig: the validated configuration
//   - error: error naming the file if it cannot be read or is invalid
func LoadActionConfig(path string) (ActionConfig, error) {
	if !IsActionFile(path) {
		return BasicAction(path), nil
	}
	data, err := readFile(path)
	if err != nil {
		return ActionConfig{}, err
	}
	cfg, err := ParseActionConfig(data, path)
	if err != nil {
		return ActionConfig{}, err
	}
	if cfg.Source != "" && !filepath.IsAbs(cfg.Source) {
		cfg.Source = filepath.Join(filepath.Dir(path), cfg.Source)
	}
	return cfg, nil
}

// ParseActionConfig decodes and validates an action configuration document.
// Unknown fields are rejected.
//
// Parameters:
//   - data: the YAML document
//   - name: the file name, used in errors and as the default action name
//
// Returns:
//   - ActionConfig: the validated configuration
//   - error: error if the document is malformed or invalid
func ParseActionConfig(data []byte, name string) (ActionConfig, error) {
	var cfg ActionConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return ActionConfig{}, fmt.Errorf("action %q: %w", name, err)
	}
	if cfg.Name == "" {
		cfg.Name = baseName(name)
	}
	if err := cfg.Validate(); err != nil {
		return ActionConfig{}, fmt.Errorf("action %q: %w", name, err)
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
//
// Returns:
//   - error: ErrMissingField or ErrInvalidAction describing the first problem found
func (c ActionConfig) Validate() error {
	if c.Looping == nil {
		return fmt.Errorf("%w: looping", ErrMissingField)
	}
	if c.Source == "" {
		if c.FPS == nil {
			return fmt.Errorf("%w: fps (required without a source)", ErrMissingField)
		}
		if c.FrameCount == nil {
			return fmt.Errorf("%w: frame_count (required without a source)", ErrMissingField)
		}
	}
	if c.FPS != nil && (!(*c.FPS > 0) || math.IsInf(*c.FPS, 0)) {
		return fmt.Errorf("%w: fps must be positive, got %v", ErrInvalidAction, *c.FPS)
	}
	if c.FrameCount != nil && *c.FrameCount < 1 {
		return fmt.Errorf("%w: frame_count must be at least 1, got %d", ErrInvalidAction, *c.FrameCount)
	}
	if c.Weight != nil && !(*c.Weight >= 0) {
		return fmt.Errorf("%w: weight must not be negative, got %v", ErrInvalidAction, *c.Weight)
	}
	if c.AnimationIndex < 0 {
		return fmt.Errorf("%w: animation_index must not be negative", ErrInvalidAction)
	}
	if c.PoseCacheLimit < 0 {
		return fmt.Errorf("%w: pose_cache_limit must not be negative", ErrInvalidAction)
	}
	return nil
}

// Proxy reports whether the action plays no animation.
func (c ActionConfig) Proxy() bool {
	return c.Source == ""
}

// Key identifies the clip built from this configuration in a clip cache.
func (c ActionConfig) Key() string {
	fps, frames := "-", "-"
	if c.FPS != nil {
		fps = fmt.Sprint(*c.FPS)
	}
	if c.FrameCount != nil {
		frames = fmt.Sprint(*c.FrameCount)
	}
	return fmt.Sprintf("%s#%d/%s/%s/%s/%t/%t/%v/%v/%d",
		c.Source, c.AnimationIndex, c.Name, fps, frames, c.looping(), c.Invert, c.EndPosition, c.EndRotation, c.PoseCacheLimit)
}

// KeyFor identifies the clip built from this configuration for a given skeleton. Skeletal
// clips are only shared between skeletons built from equal bone tables.
//
// Parameters:
//   - skel: the skeleton the clip binds to, ignored for proxy actions
//
// Returns:
//   - string: the cache key
func (c ActionConfig) KeyFor(skel skeleton.Skeleton) string {
	if c.Proxy() || skel == nil {
		return c.Key()
	}
	return c.Key() + "@" + skel.Fingerprint()
}

// ClipOptions resolves the configuration into clip options. Missing fps and frame_count
// default from the source's tick rate and duration.
//
// Parameters:
//   - src: the animation source, may be nil for proxy actions
//
// Returns:
//   - []clip.ClipBuilderOption: the clip options
func (c ActionConfig) ClipOptions(src AnimationSource) []clip.ClipBuilderOption {
	cfg := clip.Config{
		Name:           c.Name,
		Looping:        c.looping(),
		Invert:         c.Invert,
		EndPosition:    mgl32.Vec3(c.EndPosition),
		EndRotation:    c.EndRotation,
		PoseCacheLimit: c.PoseCacheLimit,
		FPS:            1,
	}
	if src != nil {
		cfg.FPS = float64(src.TicksPerSecond())
		cfg.FrameCount = int(src.Duration())
	}
	if c.FPS != nil {
		cfg.FPS = *c.FPS
	}
	if c.FrameCount != nil {
		cfg.FrameCount = *c.FrameCount
	}
	return []clip.ClipBuilderOption{clip.WithConfig(cfg)}
}

// BuildClip creates the clip for this action. Proxy actions ignore skel and src.
//
// Parameters:
//   - skel: the finalized skeleton of the owner
//   - src: the loaded source named by Source
//
// Returns:
//   - clip.Clip: the clip
//   - error: error if the source does not match the skeleton or the timing is invalid
func (c ActionConfig) BuildClip(skel skeleton.Skeleton, src AnimationSource) (clip.Clip, error) {
	if c.Proxy() {
		return clip.NewProxy(c.ClipOptions(nil)...)
	}
	if src == nil {
		return nil, fmt.Errorf("action %q: source %q is not loaded", c.Name, c.Source)
	}
	cl, err := clip.NewSkeletal(skel, src.Tracks(), c.ClipOptions(src)...)
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", c.Name, err)
	}
	return cl, nil
}

func (c ActionConfig) looping() bool {
	return c.Looping != nil && *c.Looping
}

func baseName(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	for _, suffix := range actionSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

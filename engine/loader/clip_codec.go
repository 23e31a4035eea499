package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrSkeletonMismatch is returned when a clip's bone table differs from the skeleton it is bound to.
var ErrSkeletonMismatch = errors.New("clip bone table does not match the skeleton")

// ClipCodec persists clips in an asset cache as YAML records holding the clip configuration,
// the bone table and the tracks. Decoded skeletal clips are bound to Skeleton when set, then to
// the skeleton in Skeletons with the recorded table's fingerprint, otherwise to a skeleton
// rebuilt from the recorded bone table.
type ClipCodec struct {
	Skeleton  skeleton.Skeleton
	Skeletons *SkeletonSet
}

var _ assets.Codec[clip.Clip] = ClipCodec{}

type clipRecord struct {
	Name           string                 `yaml:"name,omitempty"`
	FPS            float64                `yaml:"fps"`
	FrameCount     int                    `yaml:"frame_count"`
	Looping        bool                   `yaml:"looping"`
	Invert         bool                   `yaml:"invert,omitempty"`
	EndPosition    [3]float32             `yaml:"end_position,omitempty,flow"`
	EndRotation    float32                `yaml:"end_rotation,omitempty"`
	PoseCacheLimit int                    `yaml:"pose_cache_limit,omitempty"`
	Bones          skeleton.BoneTable     `yaml:"bones,omitempty"`
	Tracks         map[string]TrackRecord `yaml:"tracks,omitempty"`
}

func (ClipCodec) Encode(c clip.Clip) ([]byte, error) {
	cfg := c.Config()
	r := clipRecord{
		Name:           cfg.Name,
		FPS:            cfg.FPS,
		FrameCount:     cfg.FrameCount,
		Looping:        cfg.Looping,
		Invert:         cfg.Invert,
		EndPosition:    cfg.EndPosition,
		EndRotation:    cfg.EndRotation,
		PoseCacheLimit: cfg.PoseCacheLimit,
	}
	if !c.Proxy() {
		r.Bones = c.Skeleton().Table()
		r.Tracks = make(map[string]TrackRecord, len(c.Tracks()))
		for bone, t := range c.Tracks() {
			r.Tracks[bone] = trackRecordOf(t)
		}
	}
	return yaml.Marshal(&r)
}

func (cc ClipCodec) Decode(data []byte) (clip.Clip, error) {
	var r clipRecord
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	cfg := clip.Config{
		Name:           r.Name,
		FPS:            r.FPS,
		FrameCount:     r.FrameCount,
		Looping:        r.Looping,
		Invert:         r.Invert,
		EndPosition:    mgl32.Vec3(r.EndPosition),
		EndRotation:    r.EndRotation,
		PoseCacheLimit: r.PoseCacheLimit,
	}
	if len(r.Bones) == 0 {
		return clip.NewProxy(clip.WithConfig(cfg))
	}

	skel, err := cc.bind(r.Bones)
	if err != nil {
		return nil, fmt.Errorf("decode clip %q: %w", r.Name, err)
	}
	tracks := make(map[string]clip.Track, len(r.Tracks))
	for bone, t := range r.Tracks {
		tracks[bone] = t.track()
	}
	return clip.NewSkeletal(skel, tracks, clip.WithConfig(cfg))
}

func (cc ClipCodec) bind(table skeleton.BoneTable) (skeleton.Skeleton, error) {
	fp := table.Fingerprint()
	if cc.Skeleton != nil {
		if cc.Skeleton.Fingerprint() != fp {
			return nil, ErrSkeletonMismatch
		}
		return cc.Skeleton, nil
	}
	if cc.Skeletons != nil {
		if skel, ok := cc.Skeletons.Get(fp); ok {
			return skel, nil
		}
	}
	skel, err := skeleton.Build(table)
	if err != nil {
		return nil, err
	}
	if cc.Skeletons != nil {
		skel = cc.Skeletons.Add(skel)
	}
	return skel, nil
}

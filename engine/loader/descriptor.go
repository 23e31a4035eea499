package loader

import (
	"errors"
	"fmt"
	"maps"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDescriptor is returned for a model descriptor without bones.
var ErrEmptyDescriptor = errors.New("model descriptor has no bones")

// Descriptor is a model described in YAML: a bone table and per-bone key-frame tracks.
// It is also the persisted form of any AnimationSource.
//
//	name: hero
//	ticks_per_second: 30
//	bones:
//	  Hips:  {id: 0, offset: [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]}
//	  Spine: {id: 1, parent: Hips}
//	tracks:
//	  Hips:
//	    positions: [[0,0,0], [0,0,0.1]]
//	    rotations: [[1,0,0,0], [1,0,0,0]]   # w, x, y, z
type Descriptor struct {
	Name   string `yaml:"name,omitempty"`
	Origin string `yaml:"origin,omitempty"`

	TickRate float32 `yaml:"ticks_per_second,omitempty"`
	Length   float32 `yaml:"duration,omitempty"`

	Bones    skeleton.BoneTable     `yaml:"bones"`
	Channels map[string]TrackRecord `yaml:"tracks,omitempty"`
}

// TrackRecord is the YAML form of a clip.Track. Rotations are stored as w, x, y, z.
type TrackRecord struct {
	Positions [][3]float32 `yaml:"positions,omitempty,flow"`
	Rotations [][4]float32 `yaml:"rotations,omitempty,flow"`
}

var _ AnimationSource = &Descriptor{}

// ParseDescriptor decodes and validates a YAML model descriptor.
// Bones without an offset get the identity matrix.
//
// Parameters:
//   - data: the YAML document
//   - name: the asset name used in errors
//
// Returns:
//   - *Descriptor: the descriptor
//   - error: error if the document is malformed or has no bones
func ParseDescriptor(data []byte, name string) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	if len(d.Bones) == 0 {
		return nil, fmt.Errorf("model %q: %w", name, ErrEmptyDescriptor)
	}
	if d.TickRate < 0 || d.Length < 0 {
		return nil, fmt.Errorf("model %q: ticks_per_second and duration must not be negative", name)
	}
	for bone, entry := range d.Bones {
		if entry.Offset == (mgl32.Mat4{}) {
			entry.Offset = mgl32.Ident4()
			d.Bones[bone] = entry
		}
	}
	if d.Name == "" {
		d.Name = name
	}
	return &d, nil
}

// DescriptorOf captures any AnimationSource as a Descriptor.
//
// Parameters:
//   - name: the descriptor name
//   - src: the source to capture
//
// Returns:
//   - *Descriptor: the descriptor
func DescriptorOf(name string, src AnimationSource) *Descriptor {
	if d, ok := src.(*Descriptor); ok {
		return d
	}
	d := &Descriptor{
		Name:     name,
		TickRate: src.TicksPerSecond(),
		Length:   src.Duration(),
		Bones:    maps.Clone(src.BoneTable()),
		Channels: make(map[string]TrackRecord),
	}
	for bone, t := range src.Tracks() {
		d.Channels[bone] = trackRecordOf(t)
	}
	return d
}

func (d *Descriptor) BoneTable() skeleton.BoneTable {
	return d.Bones
}

func (d *Descriptor) Tracks() map[string]clip.Track {
	tracks := make(map[string]clip.Track, len(d.Channels))
	for bone, r := range d.Channels {
		tracks[bone] = r.track()
	}
	return tracks
}

// TicksPerSecond defaults to one tick per second when the descriptor does not set a rate.
func (d *Descriptor) TicksPerSecond() float32 {
	if d.TickRate <= 0 {
		return 1
	}
	return d.TickRate
}

// Duration defaults to the longest track.
func (d *Descriptor) Duration() float32 {
	if d.Length > 0 {
		return d.Length
	}
	n := 0
	for _, r := range d.Channels {
		n = max(n, len(r.Positions), len(r.Rotations))
	}
	return float32(n)
}

func trackRecordOf(t clip.Track) TrackRecord {
	r := TrackRecord{
		Positions: make([][3]float32, len(t.Positions)),
		Rotations: make([][4]float32, len(t.Rotations)),
	}
	for i, p := range t.Positions {
		r.Positions[i] = p
	}
	for i, q := range t.Rotations {
		r.Rotations[i] = [4]float32{q.W, q.V[0], q.V[1], q.V[2]}
	}
	return r
}

func (r TrackRecord) track() clip.Track {
	t := clip.Track{
		Positions: make([]mgl32.Vec3, len(r.Positions)),
		Rotations: make([]mgl32.Quat, len(r.Rotations)),
	}
	for i, p := range r.Positions {
		t.Positions[i] = p
	}
	for i, q := range r.Rotations {
		t.Rotations[i] = mgl32.Quat{W: q[0], V: mgl32.Vec3{q[1], q[2], q[3]}}
	}
	return t
}

package loader

import (
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// ErrNoSkin is returned for a glTF file without a skin to build a skeleton from.
var ErrNoSkin = errors.New("glTF file has no skin")

// gltfLoaderBackend reads the first skin of a glTF/GLB file and resamples one of its
// animations at a fixed rate.
type gltfLoaderBackend struct {
	sampleRate float32
}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend(sampleRate float32) *gltfLoaderBackend {
	return &gltfLoaderBackend{sampleRate: sampleRate}
}

// gltfSource is the AnimationSource produced from a glTF file.
type gltfSource struct {
	name     string
	bones    skeleton.BoneTable
	tracks   map[string]clip.Track
	rate     float32
	duration float32
}

var _ AnimationSource = &gltfSource{}

func (b *gltfLoaderBackend) Load(path string, animIndex int) (AnimationSource, error) {
	p := newGLTFParser()
	if err := p.parse(path); err != nil {
		return nil, fmt.Errorf("model %q: %w", path, err)
	}
	return b.extract(path, p, animIndex)
}

func (b *gltfLoaderBackend) LoadReader(name string, r io.Reader, binary bool, animIndex int) (AnimationSource, error) {
	p := newGLTFParser()
	if err := p.parseReader(r, binary); err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return b.extract(name, p, animIndex)
}

func (b *gltfLoaderBackend) extract(name string, p *gltfParser, animIndex int) (AnimationSource, error) {
	if len(p.document.Skins) == 0 {
		return nil, fmt.Errorf("model %q: %w", name, ErrNoSkin)
	}
	rig, err := p.extractRig(0)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}

	src := &gltfSource{
		name:   name,
		bones:  rig.table,
		tracks: map[string]clip.Track{},
		rate:   b.sampleRate,
	}
	if len(p.document.Animations) == 0 {
		return src, nil
	}

	tracks, ticks, err := p.extractTracks(animIndex, rig, b.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	src.tracks = tracks
	src.duration = float32(ticks)
	return src, nil
}

func (s *gltfSource) BoneTable() skeleton.BoneTable {
	return s.bones
}

func (s *gltfSource) Tracks() map[string]clip.Track {
	return s.tracks
}

func (s *gltfSource) TicksPerSecond() float32 {
	return s.rate
}

func (s *gltfSource) Duration() float32 {
	return s.duration
}

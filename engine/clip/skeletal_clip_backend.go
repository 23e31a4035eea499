package clip

import (
	"fmt"
	"log"
	"maps"

	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// skeletalClipBackend holds per-bone tracks indexed by bone ID.
type skeletalClipBackend struct {
	skel    skeleton.Skeleton
	byID    []Track
	hasID   []bool
	byName  map[string]Track
	rootID  int
	longest int
}

var _ clipBackend = &skeletalClipBackend{}

func newSkeletalClipBackend(skel skeleton.Skeleton, tracks map[string]Track, clipName string) (*skeletalClipBackend, error) {
	b := &skeletalClipBackend{
		skel:   skel,
		byID:   make([]Track, skel.Count()),
		hasID:  make([]bool, skel.Count()),
		byName: make(map[string]Track, len(tracks)),
		rootID: skel.Root().ID,
	}

	for name, tr := range tracks {
		bone, ok := skel.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("clip %q: %w: %q", clipName, ErrUnknownBone, name)
		}
		if b.hasID[bone.ID] {
			return nil, fmt.Errorf("clip %q: bone %q has more than one track", clipName, bone.Name)
		}
		if len(tr.Positions) == 0 || len(tr.Rotations) == 0 {
			log.Printf("[Clip] Warning: clip %q bone %q has %d position and %d rotation keys, missing keys evaluate as identity",
				clipName, bone.Name, len(tr.Positions), len(tr.Rotations))
		}
		b.byID[bone.ID] = tr
		b.hasID[bone.ID] = true
		b.byName[bone.Name] = tr
		b.longest = max(b.longest, tr.Len())
	}
	return b, nil
}

func (b *skeletalClipBackend) longestTrack() int {
	return b.longest
}

func (b *skeletalClipBackend) skeleton() skeleton.Skeleton {
	return b.skel
}

func (b *skeletalClipBackend) track(boneID int) (Track, bool) {
	if boneID < 0 || boneID >= len(b.byID) || !b.hasID[boneID] {
		return Track{}, false
	}
	return b.byID[boneID], true
}

func (b *skeletalClipBackend) tracks() map[string]Track {
	return maps.Clone(b.byName)
}

func (b *skeletalClipBackend) rootOffset(frame int, _ *Config) mgl32.Vec3 {
	tr, ok := b.track(b.rootID)
	if !ok {
		return mgl32.Vec3{}
	}
	p, _ := tr.PositionAt(frame)
	return p
}

func (b *skeletalClipBackend) endOffset(lastFrame int, cfg *Config) mgl32.Vec3 {
	return b.rootOffset(lastFrame, cfg)
}

func (b *skeletalClipBackend) endRotation(_ *Config) float32 {
	return 0
}

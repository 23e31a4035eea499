package loader

import (
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
)

// fbxUnitScale converts centimeter-based exports to meters.
const fbxUnitScale = 0.01

// AnimationSource is a loaded mesh/animation file: the bone table of its skeleton and the
// key-frame tracks of one of its animations.
type AnimationSource interface {
	// BoneTable returns the skeleton's bones keyed by name.
	//
	// Returns:
	//   - skeleton.BoneTable: the bone table
	BoneTable() skeleton.BoneTable

	// Tracks returns the key-frame tracks keyed by bone name, one key per tick.
	//
	// Returns:
	//   - map[string]clip.Track: the tracks
	Tracks() map[string]clip.Track

	// TicksPerSecond returns the native sampling rate of the tracks.
	//
	// Returns:
	//   - float32: ticks per second
	TicksPerSecond() float32

	// Duration returns the length of the animation in ticks.
	//
	// Returns:
	//   - float32: the duration in ticks
	Duration() float32
}

// UnitScale returns the factor an entity's scale is multiplied by for a model.
// FBX exports are authored in centimeters; a descriptor converted from one records it in its origin.
//
// Parameters:
//   - path: the model path
//   - src: the loaded source, may be nil
//
// Returns:
//   - float32: 0.01 for FBX-derived models, otherwise 1
func UnitScale(path string, src AnimationSource) float32 {
	if isFBX(path) {
		return fbxUnitScale
	}
	if d, ok := src.(*Descriptor); ok && isFBX(d.Origin) {
		return fbxUnitScale
	}
	return 1
}

func isFBX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".fbx")
}

// longestTrack returns the key count of the longest track.
func longestTrack(tracks map[string]clip.Track) int {
	n := 0
	for _, t := range tracks {
		n = max(n, t.Len())
	}
	return n
}

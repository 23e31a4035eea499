package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfChannelKeys is one sampler's keys: times in seconds plus either vectors or quaternions.
type gltfChannelKeys struct {
	times     []float32
	positions []mgl32.Vec3
	rotations []mgl32.Quat
	step      bool
}

// extractTracks resamples an animation at a fixed rate so that every track has one key per tick.
// Joints the animation does not touch get a constant track from their rest pose.
//
// Returns the tracks and the number of sampled ticks.
func (p *gltfParser) extractTracks(animIndex int, rig *gltfRig, rate float32) (map[string]clip.Track, int, error) {
	doc := p.document
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, 0, fmt.Errorf("animation index %d out of range (%d animations)", animIndex, len(doc.Animations))
	}
	anim := &doc.Animations[animIndex]

	translations := make(map[string]*gltfChannelKeys)
	rotations := make(map[string]*gltfChannelKeys)
	var end float32

	for i := range anim.Channels {
		ch := &anim.Channels[i]
		if ch.Target.Node == nil {
			continue
		}
		bone, ok := rig.jointName[*ch.Target.Node]
		if !ok {
			continue
		}
		if ch.Target.Path != gltfAnimPathTranslation && ch.Target.Path != gltfAnimPathRotation {
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, 0, fmt.Errorf("animation %q channel %d: invalid sampler index %d", anim.Name, i, ch.Sampler)
		}
		keys, err := p.readChannelKeys(&anim.Samplers[ch.Sampler], ch.Target.Path)
		if err != nil {
			return nil, 0, fmt.Errorf("animation %q channel %d: %w", anim.Name, i, err)
		}
		if n := len(keys.times); n > 0 {
			end = max(end, keys.times[n-1])
		}
		if ch.Target.Path == gltfAnimPathTranslation {
			translations[bone] = keys
		} else {
			rotations[bone] = keys
		}
	}

	ticks := int(math.Floor(float64(end*rate)+1e-4)) + 1
	tracks := make(map[string]clip.Track, len(rig.rest))
	for bone, rest := range rig.rest {
		t := clip.Track{
			Positions: make([]mgl32.Vec3, ticks),
			Rotations: make([]mgl32.Quat, ticks),
		}
		for i := 0; i < ticks; i++ {
			at := min(float32(i)/rate, end)
			t.Positions[i] = rest.translation
			t.Rotations[i] = rest.rotation
			if k := translations[bone]; k != nil {
				t.Positions[i] = k.sampleVec3(at)
			}
			if k := rotations[bone]; k != nil {
				t.Rotations[i] = k.sampleQuat(at)
			}
		}
		tracks[bone] = t
	}
	return tracks, ticks, nil
}

func (p *gltfParser) readChannelKeys(s *gltfAnimSampler, path string) (*gltfChannelKeys, error) {
	times, err := p.readScalars(s.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read timestamps: %w", err)
	}
	keys := &gltfChannelKeys{times: times, step: s.Interpolation == gltfInterpolationStep}

	// cubic spline outputs hold in-tangent, value, out-tangent per key
	stride, pick := 1, 0
	if s.Interpolation == gltfInterpolationCubicSpline {
		stride, pick = 3, 1
	}

	switch path {
	case gltfAnimPathTranslation:
		values, err := p.readVec3s(s.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to read translation values: %w", err)
		}
		for i := pick; i < len(values) && len(keys.positions) < len(times); i += stride {
			keys.positions = append(keys.positions, values[i])
		}
	case gltfAnimPathRotation:
		values, err := p.readQuats(s.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to read rotation values: %w", err)
		}
		for i := pick; i < len(values) && len(keys.rotations) < len(times); i += stride {
			keys.rotations = append(keys.rotations, values[i])
		}
	}
	keys.times = keys.times[:max(len(keys.positions), len(keys.rotations))]
	return keys, nil
}

// span finds the keys around time t and the blend factor between them.
func (k *gltfChannelKeys) span(t float32) (int, int, float32) {
	n := len(k.times)
	if n == 0 {
		return -1, -1, 0
	}
	if t <= k.times[0] {
		return 0, 0, 0
	}
	if t >= k.times[n-1] {
		return n - 1, n - 1, 0
	}
	hi := 1
	for hi < n-1 && k.times[hi] < t {
		hi++
	}
	lo := hi - 1
	if k.step {
		return lo, lo, 0
	}
	dt := k.times[hi] - k.times[lo]
	if dt <= 0 {
		return hi, hi, 0
	}
	return lo, hi, (t - k.times[lo]) / dt
}

func (k *gltfChannelKeys) sampleVec3(t float32) mgl32.Vec3 {
	lo, hi, f := k.span(t)
	if lo < 0 {
		return mgl32.Vec3{}
	}
	a, b := k.positions[lo], k.positions[hi]
	return a.Add(b.Sub(a).Mul(f))
}

func (k *gltfChannelKeys) sampleQuat(t float32) mgl32.Quat {
	lo, hi, f := k.span(t)
	if lo < 0 {
		return mgl32.QuatIdent()
	}
	a, b := k.rotations[lo], k.rotations[hi]
	if lo == hi {
		return a
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, f)
}

package pose

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// evaluator is the implementation of the Evaluator interface.
type evaluator struct {
	caching       bool
	logDegenerate bool
}

// Evaluator turns a clip and a time offset into the per-bone skinning matrices of a pose.
//
// Evaluation is a pure function of (clip, frame, root translation flag); results are memoized
// in the clip's pose cache so repeated evaluation of the same frame returns identical matrices.
// An Evaluator holds no mutable state and can be shared between goroutines.
type Evaluator interface {
	// Evaluate computes the pose of a clip at time t.
	//
	// Skeletal clips walk the hierarchy depth first from the root. Each bone with a track gets
	// slot = parent · T(position) · R(rotation) · offset; the root's translation is skipped
	// unless applyRootTranslation is set. A bone without a track rides on its parent with the
	// nearest ancestor's offset. Proxy clips fill every slot with a partial yaw and, when
	// applyRootTranslation is set, a partial translation towards the clip's end position.
	// Slots past the bone count stay identity.
	//
	// Parameters:
	//   - c: the clip to evaluate
	//   - s: the skeleton to walk, nil to use the clip's own skeleton
	//   - t: seconds since the clip started
	//   - applyRootTranslation: whether the root bone's position key is applied
	//
	// Returns:
	//   - skeleton.Pose: the skinning matrices, a copy the caller may modify
	Evaluate(c clip.Clip, s skeleton.Skeleton, t float64, applyRootTranslation bool) skeleton.Pose

	// RootOffset returns the root displacement of a clip at time t without evaluating the
	// full pose.
	//
	// Parameters:
	//   - c: the clip
	//   - t: seconds since the clip started
	//
	// Returns:
	//   - mgl32.Vec3: the root bone's position key, or the proxy's scaled end position
	RootOffset(c clip.Clip, t float64) mgl32.Vec3
}

var _ Evaluator = &evaluator{}

// NewEvaluator creates a new Evaluator with the provided options.
//
// Parameters:
//   - options: variadic list of EvaluatorBuilderOption functions
//
// Returns:
//   - Evaluator: the evaluator
func NewEvaluator(options ...EvaluatorBuilderOption) Evaluator {
	e := &evaluator{
		caching:       true,
		logDegenerate: true,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// frameState is one pending node of the depth-first walk.
type frameState struct {
	id          int
	accumulated mgl32.Mat4
	lastOffset  mgl32.Mat4
}

func (e *evaluator) Evaluate(c clip.Clip, s skeleton.Skeleton, t float64, applyRootTranslation bool) skeleton.Pose {
	frame := c.Frame(t)
	if e.caching {
		if p, ok := c.CachedPose(frame, applyRootTranslation); ok {
			return p
		}
	}

	var p skeleton.Pose
	if c.Proxy() {
		p = e.evaluateProxy(c, frame, applyRootTranslation)
	} else {
		if s == nil {
			s = c.Skeleton()
		}
		p = e.evaluateSkeletal(c, s, frame, applyRootTranslation)
	}

	if e.caching {
		c.StorePose(frame, applyRootTranslation, p)
	}
	return p
}

func (e *evaluator) RootOffset(c clip.Clip, t float64) mgl32.Vec3 {
	return c.RootOffset(t)
}

func (e *evaluator) evaluateProxy(c clip.Clip, frame int, applyRootTranslation bool) skeleton.Pose {
	cfg := c.Config()
	progress := clip.Progress(frame, cfg.FrameCount)

	m := common.YawMatrix(cfg.EndRotation * progress)
	if applyRootTranslation {
		offset := cfg.EndPosition.Mul(progress)
		m[12], m[13], m[14] = offset[0], offset[1], offset[2]
	}

	var p skeleton.Pose
	for i := range p {
		p[i] = m
	}
	return p
}

func (e *evaluator) evaluateSkeletal(c clip.Clip, s skeleton.Skeleton, frame int, applyRootTranslation bool) skeleton.Pose {
	p := skeleton.IdentityPose()
	root := s.Root()

	visited := make([]bool, s.Count())
	stack := make([]frameState, 0, skeleton.MaxBones)
	stack = append(stack, frameState{id: root.ID, accumulated: mgl32.Ident4(), lastOffset: root.Offset})

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		bone, ok := s.Bone(cur.id)
		if !ok || cur.id >= skeleton.MaxBones {
			panic(fmt.Sprintf("pose: bone id %d is outside the skeleton of clip %q", cur.id, c.Name()))
		}
		if visited[cur.id] {
			panic(fmt.Sprintf("pose: bone %q reached twice while evaluating clip %q", bone.Name, c.Name()))
		}
		visited[cur.id] = true

		accumulated := cur.accumulated
		lastOffset := cur.lastOffset
		if track, ok := c.Track(bone.ID); ok {
			local := e.rotation(c, bone, track, frame)
			if !bone.IsRoot() || applyRootTranslation {
				if pos, ok := track.PositionAt(frame); ok {
					local = mgl32.Translate3D(pos[0], pos[1], pos[2]).Mul4(local)
				}
			}
			accumulated = accumulated.Mul4(local)
			lastOffset = bone.Offset
		}
		p[bone.ID] = accumulated.Mul4(lastOffset)

		// push in reverse so children are visited in ID order
		for i := len(bone.Children) - 1; i >= 0; i-- {
			child, ok := s.Lookup(bone.Children[i])
			if !ok {
				panic(fmt.Sprintf("pose: bone %q lists unknown child %q", bone.Name, bone.Children[i]))
			}
			stack = append(stack, frameState{id: child.ID, accumulated: accumulated, lastOffset: lastOffset})
		}
	}
	return p
}

func (e *evaluator) rotation(c clip.Clip, bone skeleton.Bone, track clip.Track, frame int) mgl32.Mat4 {
	q, ok := track.RotationAt(frame)
	if !ok {
		return mgl32.Ident4()
	}
	m, ok := common.QuatMatrix(q)
	if !ok && e.logDegenerate {
		log.Printf("[Pose] Warning: degenerate rotation on bone %q of clip %q at frame %d, using identity", bone.Name, c.Name(), frame)
	}
	return m
}

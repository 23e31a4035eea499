package entity

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-anim/engine/action"
	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// EntityBuilderOption is a functional option for configuring an Entity during construction.
type EntityBuilderOption func(*entity)

// WithID sets the ID of the Entity.
//
// Parameters:
//   - id: unique identifier for the Entity
//
// Returns:
//   - EntityBuilderOption: functional option to set the ID
func WithID(id uint64) EntityBuilderOption {
	return func(e *entity) {
		e.id = id
	}
}

// WithName sets the name of the Entity, used in logs and errors.
//
// Parameters:
//   - name: the entity name
//
// Returns:
//   - EntityBuilderOption: functional option to set the name
func WithName(name string) EntityBuilderOption {
	return func(e *entity) {
		e.name = name
	}
}

// WithEnabled sets whether the Entity is updated and drawn.
//
// Parameters:
//   - enabled: true to update the entity, false to skip it
//
// Returns:
//   - EntityBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) EntityBuilderOption {
	return func(e *entity) {
		e.enabled.Store(enabled)
	}
}

// WithPosition sets the initial world position. It becomes the anchor of the first action.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - EntityBuilderOption: functional option to set the initial position
func WithPosition(x, y, z float32) EntityBuilderOption {
	return func(e *entity) {
		e.position = mgl32.Vec3{x, y, z}
	}
}

// WithAngle sets the initial facing angle around the vertical axis.
//
// Parameters:
//   - degrees: the yaw in degrees
//
// Returns:
//   - EntityBuilderOption: functional option to set the initial angle
func WithAngle(degrees float32) EntityBuilderOption {
	return func(e *entity) {
		e.angle = degrees
	}
}

// WithScale sets the uniform scale of the Entity. Root motion is scaled by the same factor.
//
// Parameters:
//   - s: the scale factor
//
// Returns:
//   - EntityBuilderOption: functional option to set the scale
func WithScale(s float32) EntityBuilderOption {
	return func(e *entity) {
		e.scale = s
	}
}

// WithWillAnimate marks the Entity as animated. Animated entities must build their skeleton
// synchronously before any action is added, so LoadAsync is refused for them.
//
// Parameters:
//   - willAnimate: true if actions will be added
//
// Returns:
//   - EntityBuilderOption: functional option to set the animated flag
func WithWillAnimate(willAnimate bool) EntityBuilderOption {
	return func(e *entity) {
		e.willAnimate = willAnimate
	}
}

// WithFollow sets whether the Entity follows the root motion of its actions. A following
// entity is moved and turned by its controller; otherwise root translation is removed from
// the pose and the position is driven externally.
//
// Parameters:
//   - follow: true to chain root motion into the entity's position
//
// Returns:
//   - EntityBuilderOption: functional option to set the follow flag
func WithFollow(follow bool) EntityBuilderOption {
	return func(e *entity) {
		e.follow = follow
	}
}

// WithWeightFunc overrides the action selection strategy. Without it, actions are weighed by
// the weight field of their configuration.
//
// Parameters:
//   - w: the weighting strategy
//
// Returns:
//   - EntityBuilderOption: functional option to set the weighting strategy
func WithWeightFunc(w action.WeightFunc) EntityBuilderOption {
	return func(e *entity) {
		e.weightFunc = w
	}
}

// WithRand sets the random source used for action selection.
//
// Parameters:
//   - r: the random source
//
// Returns:
//   - EntityBuilderOption: functional option to set the random source
func WithRand(r *rand.Rand) EntityBuilderOption {
	return func(e *entity) {
		e.rng = r
	}
}

// WithEvaluator shares a pose evaluator between entities.
//
// Parameters:
//   - ev: the evaluator
//
// Returns:
//   - EntityBuilderOption: functional option to set the evaluator
func WithEvaluator(ev pose.Evaluator) EntityBuilderOption {
	return func(e *entity) {
		e.evaluator = ev
	}
}

// WithClipCache shares built clips between entities. Clips are keyed by their action
// configuration, so entities loading the same model reuse clips and their pose caches.
//
// Parameters:
//   - c: the clip cache
//
// Returns:
//   - EntityBuilderOption: functional option to set the clip cache
func WithClipCache(c assets.Cache[clip.Clip]) EntityBuilderOption {
	return func(e *entity) {
		e.clips = c
	}
}

package action

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-anim/engine/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// ControllerBuilderOption is a functional option for configuring a Controller during construction.
type ControllerBuilderOption func(*controller)

// WithChaining is an option builder that sets whether root motion accumulates across actions.
// When chaining is disabled, root translation is suppressed in the evaluated pose, the
// controller never moves its owner, and completed actions bake neither displacement nor yaw.
//
// Parameters:
//   - chaining: true to layer root motion onto the last known position
//
// Returns:
//   - ControllerBuilderOption: a function that applies the chaining option to a controller
func WithChaining(chaining bool) ControllerBuilderOption {
	return func(c *controller) {
		c.chaining = chaining
	}
}

// WithWeightFunc is an option builder that sets the action selection strategy.
//
// Parameters:
//   - w: the weighting strategy, nil for uniform weights
//
// Returns:
//   - ControllerBuilderOption: a function that applies the weighting option to a controller
func WithWeightFunc(w WeightFunc) ControllerBuilderOption {
	return func(c *controller) {
		if w == nil {
			w = UniformWeight{}
		}
		c.weight = w
	}
}

// WithRand is an option builder that sets the random source used to break weight ties.
//
// Parameters:
//   - r: the random source
//
// Returns:
//   - ControllerBuilderOption: a function that applies the random source to a controller
func WithRand(r *rand.Rand) ControllerBuilderOption {
	return func(c *controller) {
		c.rng = r
	}
}

// WithEvaluator is an option builder that sets the pose evaluator.
//
// Parameters:
//   - e: the evaluator
//
// Returns:
//   - ControllerBuilderOption: a function that applies the evaluator to a controller
func WithEvaluator(e pose.Evaluator) ControllerBuilderOption {
	return func(c *controller) {
		c.evaluator = e
	}
}

// WithAnchor is an option builder that sets the last known position root motion is layered on.
//
// Parameters:
//   - p: the starting anchor position
//
// Returns:
//   - ControllerBuilderOption: a function that applies the anchor to a controller
func WithAnchor(p mgl32.Vec3) ControllerBuilderOption {
	return func(c *controller) {
		c.anchor = p
		c.position = p
	}
}

// WithAngle is an option builder that sets the starting facing angle.
//
// Parameters:
//   - degrees: the yaw in degrees
//
// Returns:
//   - ControllerBuilderOption: a function that applies the angle to a controller
func WithAngle(degrees float32) ControllerBuilderOption {
	return func(c *controller) {
		c.angle = degrees
	}
}

// WithStartTime is an option builder that sets the absolute time the first action starts at.
//
// Parameters:
//   - t: the start time in seconds
//
// Returns:
//   - ControllerBuilderOption: a function that applies the start time to a controller
func WithStartTime(t float64) ControllerBuilderOption {
	return func(c *controller) {
		c.lastTransition = t
	}
}

package action

import (
	"cmp"
	"context"
	"log"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/pose"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/looplab/fsm"
)

// controller is the implementation of the Controller interface.
type controller struct {
	owner     Owner
	evaluator pose.Evaluator
	weight    WeightFunc
	rng       *rand.Rand
	phase     *fsm.FSM

	actions []clip.Clip
	current int

	lastTransition float64
	anchor         mgl32.Vec3
	position       mgl32.Vec3
	angle          float32
	chaining       bool
	completed      int
}

// Controller sequences an owner's actions. Every Update advances the current clip, and when a
// non-looping clip completes its root motion is baked into the anchor and a new action is chosen
// by weight, with ties broken uniformly at random.
//
// A Controller is not safe for concurrent use; it is driven by the entity that owns it.
type Controller interface {
	// AddAction appends a clip to the candidate list. The first clip added is the initial action.
	//
	// Parameters:
	//   - c: the clip to add
	AddAction(c clip.Clip)

	// Actions returns the candidate clips in insertion order.
	//
	// Returns:
	//   - []clip.Clip: a copy of the action list
	Actions() []clip.Clip

	// Current returns the clip currently playing.
	//
	// Returns:
	//   - clip.Clip: the current clip, nil if no action was added
	Current() clip.Clip

	// CurrentIndex returns the index of the current clip in Actions().
	CurrentIndex() int

	// Update advances the controller to absolute time t, transitioning if the current action
	// finished, then evaluates the pose and pushes it and the root-motion position to the owner.
	// Calling Update before any action has been added panics.
	//
	// Parameters:
	//   - t: the absolute time in seconds
	Update(t float64)

	// State returns the completion state of the current action at absolute time t.
	//
	// Parameters:
	//   - t: the absolute time in seconds
	//
	// Returns:
	//   - clip.State: the current action's state
	State(t float64) clip.State

	// ForceTransition ends the current action at time t, baking the root motion covered so far,
	// and selects a new one.
	//
	// Parameters:
	//   - t: the absolute time in seconds
	ForceTransition(t float64)

	// SetWeightFunc replaces the selection strategy.
	//
	// Parameters:
	//   - w: the weighting strategy, nil for uniform weights
	SetWeightFunc(w WeightFunc)

	// LastTransition returns the absolute time the current action started.
	LastTransition() float64

	// Anchor returns the last known position root motion is layered on.
	Anchor() mgl32.Vec3

	// Position returns the position computed by the latest Update.
	Position() mgl32.Vec3

	// Angle returns the accumulated facing angle in degrees.
	Angle() float32

	// Chaining reports whether root motion accumulates across actions.
	Chaining() bool

	// Phase returns the lifecycle phase of the controller.
	Phase() Phase

	// Completed returns how many actions have run to completion.
	Completed() int
}

var _ Controller = &controller{}

// NewController creates a new Controller for the given owner with the provided options.
// Chaining is enabled and weights are uniform unless overridden.
//
// Parameters:
//   - owner: the entity receiving poses and positions
//   - options: variadic list of ControllerBuilderOption functions
//
// Returns:
//   - Controller: the controller
func NewController(owner Owner, options ...ControllerBuilderOption) Controller {
	c := &controller{
		owner:    owner,
		weight:   UniformWeight{},
		chaining: true,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.evaluator == nil {
		c.evaluator = pose.NewEvaluator()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	c.phase = fsm.NewFSM(
		string(PhaseIdle),
		fsm.Events{
			{Name: eventStart, Src: []string{string(PhaseIdle), string(PhaseFinished)}, Dst: string(PhaseRunning)},
			{Name: eventFinish, Src: []string{string(PhaseRunning)}, Dst: string(PhaseFinished)},
		},
		fsm.Callbacks{
			"enter_" + string(PhaseFinished): func(_ context.Context, _ *fsm.Event) {
				c.completed++
			},
		},
	)
	return c
}

func (c *controller) AddAction(a clip.Clip) {
	c.actions = append(c.actions, a)
}

func (c *controller) Actions() []clip.Clip {
	return slices.Clone(c.actions)
}

func (c *controller) Current() clip.Clip {
	if c.current >= len(c.actions) {
		return nil
	}
	return c.actions[c.current]
}

func (c *controller) CurrentIndex() int {
	return c.current
}

func (c *controller) Update(t float64) {
	if len(c.actions) == 0 {
		panic("action: Update called on a controller with no actions")
	}
	if c.Phase() == PhaseIdle {
		c.fire(eventStart)
	}

	elapsed := t - c.lastTransition
	cur := c.actions[c.current]
	if cur.State(elapsed) == clip.StateFinished {
		c.fire(eventFinish)
		c.bake(cur, elapsed, true)
		c.lastTransition = t
		elapsed = 0
		c.current = c.selectNext()
		c.fire(eventStart)
		cur = c.actions[c.current]
	}

	p := c.evaluator.Evaluate(cur, nil, elapsed, c.chaining)
	if c.chaining {
		c.position = c.anchor.Add(c.displacement(cur, cur.RootOffset(elapsed)))
	}

	if c.owner != nil {
		c.owner.SetBoneTransforms(p)
		if c.chaining {
			c.owner.SetPosition(c.position)
		}
	}
}

func (c *controller) State(t float64) clip.State {
	cur := c.Current()
	if cur == nil {
		return clip.StateFinished
	}
	return cur.State(t - c.lastTransition)
}

func (c *controller) ForceTransition(t float64) {
	if len(c.actions) == 0 {
		panic("action: ForceTransition called on a controller with no actions")
	}
	if c.Phase() == PhaseIdle {
		c.fire(eventStart)
	}
	c.fire(eventFinish)
	c.bake(c.actions[c.current], t-c.lastTransition, false)
	c.lastTransition = t
	c.current = c.selectNext()
	c.fire(eventStart)
}

func (c *controller) SetWeightFunc(w WeightFunc) {
	if w == nil {
		w = UniformWeight{}
	}
	c.weight = w
}

func (c *controller) LastTransition() float64 {
	return c.lastTransition
}

func (c *controller) Anchor() mgl32.Vec3 {
	return c.anchor
}

func (c *controller) Position() mgl32.Vec3 {
	return c.position
}

func (c *controller) Angle() float32 {
	return c.angle
}

func (c *controller) Chaining() bool {
	return c.chaining
}

func (c *controller) Phase() Phase {
	return Phase(c.phase.Current())
}

func (c *controller) Completed() int {
	return c.completed
}

// bake folds the root motion of an ending action into the anchor and angle. A completed action
// contributes its full end offset and rotation; a forced one contributes what it covered so far.
func (c *controller) bake(a clip.Clip, elapsed float64, completed bool) {
	if !c.chaining {
		return
	}

	var offset mgl32.Vec3
	var turn float32
	if completed {
		offset = a.EndOffset()
		turn = a.EndRotation()
	} else {
		offset = a.RootOffset(elapsed)
		turn = a.EndRotation() * clip.Progress(a.Frame(elapsed), a.FrameCount())
	}

	c.anchor = c.anchor.Add(c.displacement(a, offset))
	c.position = c.anchor
	c.angle += turn
}

// displacement rotates the root motion between frame zero and offset into world space.
func (c *controller) displacement(a clip.Clip, offset mgl32.Vec3) mgl32.Vec3 {
	scale := float32(1)
	if c.owner != nil {
		scale = c.owner.Scale()
	}
	diff := offset.Sub(a.RootOffset(0))
	return common.RotateYaw(diff, c.angle).Mul(scale)
}

type candidate struct {
	index  int
	weight float64
}

// selectNext shuffles the candidates and stable-sorts them by descending weight,
// so equal weights are picked uniformly at random.
func (c *controller) selectNext() int {
	candidates := make([]candidate, len(c.actions))
	for i, a := range c.actions {
		w := c.weight.Weight(a)
		if math.IsNaN(w) || w < 0 {
			w = 0
		}
		candidates[i] = candidate{index: i, weight: w}
	}

	c.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(b.weight, a.weight)
	})
	return candidates[0].index
}

func (c *controller) fire(event string) {
	if err := c.phase.Event(context.Background(), event); err != nil {
		log.Printf("[Action] Warning: phase event %q from %q: %v", event, c.phase.Current(), err)
	}
}

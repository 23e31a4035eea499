package entity

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/action"
	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/pose"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Errors returned by Entity operations.
var (
	ErrSkeletonNotReady = errors.New("entity skeleton is not built")
	ErrAsyncAnimated    = errors.New("animated entities must load synchronously")
	ErrLoadInProgress   = errors.New("entity is already loading")
)

type entity struct {
	mu sync.RWMutex

	id          uint64
	name        string
	enabled     atomic.Bool
	loading     atomic.Bool
	willAnimate bool
	follow      bool

	position  mgl32.Vec3
	angle     float32
	scale     float32
	unitScale float32

	source string
	skel   skeleton.Skeleton
	bones  skeleton.Pose

	ctrl       action.Controller
	weightFunc action.WeightFunc
	weights    action.WeightTable
	rng        *rand.Rand
	evaluator  pose.Evaluator
	clips      assets.Cache[clip.Clip]
}

// Entity is an animated object in the world. It owns its transform, the skeleton built from
// its model and the controller that sequences its actions. The bone transforms and model
// matrix it exposes are what a renderer draws.
//
// An Entity is safe for concurrent use; a scene may update many entities in parallel.
type Entity interface {
	// ID returns the entity's unique identifier.
	//
	// Returns:
	//   - uint64: the entity ID
	ID() uint64

	// SetID sets the entity's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Name returns the entity name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Enabled returns whether the entity is updated.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled sets whether the entity is updated.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// WillAnimate reports whether the entity was created for animation.
	//
	// Returns:
	//   - bool: true if actions may be added
	WillAnimate() bool

	// Ready reports whether the skeleton has been built.
	//
	// Returns:
	//   - bool: true once a model is loaded
	Ready() bool

	// Skeleton returns the skeleton built from the model, or nil before loading.
	//
	// Returns:
	//   - skeleton.Skeleton: the skeleton
	Skeleton() skeleton.Skeleton

	// Source returns the path of the loaded model.
	//
	// Returns:
	//   - string: the model path, empty before loading
	Source() string

	// Load reads a model through the loader and builds the skeleton before returning.
	//
	// Parameters:
	//   - l: the loader
	//   - path: the model path
	//
	// Returns:
	//   - error: error naming the entity if the model cannot be loaded or its bones are invalid
	Load(l loader.Loader, path string) error

	// LoadSource builds the skeleton from an already loaded source.
	//
	// Parameters:
	//   - path: the model path, used for the unit scale
	//   - src: the loaded source
	//
	// Returns:
	//   - error: error naming the entity if the bone table is invalid
	LoadSource(path string, src loader.AnimationSource) error

	// LoadAsync loads a model on a worker pool. Only entities created without
	// WithWillAnimate(true) may load asynchronously.
	//
	// Parameters:
	//   - pool: the worker pool running the load
	//   - l: the loader
	//   - path: the model path
	//   - done: called on the worker with the load result, may be nil
	//
	// Returns:
	//   - error: ErrAsyncAnimated for animated entities, ErrLoadInProgress if a load is pending
	LoadAsync(pool worker.DynamicWorkerPool, l loader.Loader, path string, done func(error)) error

	// AddAction builds the clip for an action and appends it to the controller, creating the
	// controller on first use.
	//
	// Parameters:
	//   - cfg: the action configuration
	//   - src: the source named by cfg.Source, nil for proxy actions
	//
	// Returns:
	//   - error: ErrSkeletonNotReady before Load, or the configuration error
	AddAction(cfg loader.ActionConfig, src loader.AnimationSource) error

	// Controller returns the action controller, nil until the first action is added.
	//
	// Returns:
	//   - action.Controller: the controller
	Controller() action.Controller

	// Update advances the current action to time t. Entities without actions are left untouched.
	//
	// Parameters:
	//   - t: the scene time in seconds
	Update(t float64)

	// ForceTransition ends the current action at time t and selects the next one.
	//
	// Parameters:
	//   - t: the scene time in seconds
	ForceTransition(t float64)

	// Position returns the world position, including root motion when following.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition moves the entity. A following entity is moved by its actions instead.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p mgl32.Vec3)

	// Angle returns the facing angle in degrees.
	//
	// Returns:
	//   - float32: the yaw in degrees
	Angle() float32

	// SetAngle sets the facing angle of an entity that does not follow its actions.
	//
	// Parameters:
	//   - degrees: the yaw in degrees
	SetAngle(degrees float32)

	// Scale returns the uniform scale including the model's unit scale.
	//
	// Returns:
	//   - float32: the effective scale
	Scale() float32

	// SetScale sets the uniform scale.
	//
	// Parameters:
	//   - s: the scale factor
	SetScale(s float32)

	// BoneTransforms returns a copy of the current pose.
	//
	// Returns:
	//   - skeleton.Pose: the bone matrices, identity until the first update
	BoneTransforms() skeleton.Pose

	// SetBoneTransforms replaces the current pose.
	//
	// Parameters:
	//   - p: the pose
	SetBoneTransforms(p skeleton.Pose)

	// ModelMatrix returns T(anchor)·Yaw(angle)·S(scale). For a following entity the anchor is
	// the last baked position, since the pose carries the root motion of the current action.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	ModelMatrix() mgl32.Mat4
}

var _ Entity = &entity{}
var _ action.Owner = entityOwner{}

// NewEntity creates a new Entity configured with the given options.
// Entities are enabled, unscaled and follow their actions' root motion unless configured otherwise.
//
// Parameters:
//   - options: functional options to configure the entity
//
// Returns:
//   - Entity: the newly created entity
func NewEntity(options ...EntityBuilderOption) Entity {
	e := &entity{
		scale:     1,
		unitScale: 1,
		follow:    true,
		bones:     skeleton.IdentityPose(),
		weights:   action.WeightTable{Weights: make(map[string]float64), Default: 1},
	}
	e.enabled.Store(true)
	for _, option := range options {
		option(e)
	}
	return e
}

func (e *entity) ID() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

func (e *entity) SetID(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
}

func (e *entity) Name() string {
	return e.name
}

func (e *entity) Enabled() bool {
	return e.enabled.Load()
}

func (e *entity) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

func (e *entity) WillAnimate() bool {
	return e.willAnimate
}

func (e *entity) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.skel != nil
}

func (e *entity) Skeleton() skeleton.Skeleton {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.skel
}

func (e *entity) Source() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.source
}

func (e *entity) Load(l loader.Loader, path string) error {
	src, err := l.Load(path)
	if err != nil {
		return fmt.Errorf("entity %q: %w", e.name, err)
	}
	return e.LoadSource(path, src)
}

func (e *entity) LoadSource(path string, src loader.AnimationSource) error {
	skel, err := skeleton.Build(src.BoneTable())
	if err != nil {
		return fmt.Errorf("entity %q: model %q: %w", e.name, path, err)
	}

	e.mu.Lock()
	e.skel = skel
	e.source = path
	e.unitScale = loader.UnitScale(path, src)
	e.mu.Unlock()

	log.Printf("[Entity] %q: loaded %q (%d bones)", e.name, path, skel.Count())
	return nil
}

func (e *entity) LoadAsync(pool worker.DynamicWorkerPool, l loader.Loader, path string, done func(error)) error {
	if e.willAnimate {
		return fmt.Errorf("entity %q: %w", e.name, ErrAsyncAnimated)
	}
	if !e.loading.CompareAndSwap(false, true) {
		return fmt.Errorf("entity %q: %w", e.name, ErrLoadInProgress)
	}

	pool.SubmitTask(worker.Task{
		ID:      int(e.ID()),
		Payload: path,
		Do: func() (any, error) {
			defer e.loading.Store(false)
			err := e.Load(l, path)
			if err != nil {
				log.Printf("[Entity] Warning: background load failed: %v", err)
			}
			if done != nil {
				done(err)
			}
			return nil, err
		},
	})
	return nil
}

func (e *entity) AddAction(cfg loader.ActionConfig, src loader.AnimationSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.skel == nil {
		return fmt.Errorf("entity %q: action %q: %w", e.name, cfg.Name, ErrSkeletonNotReady)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("entity %q: action %q: %w", e.name, cfg.Name, err)
	}

	c, err := e.buildClip(cfg, src)
	if err != nil {
		return fmt.Errorf("entity %q: %w", e.name, err)
	}
	if cfg.Weight != nil {
		e.weights.Weights[cfg.Name] = *cfg.Weight
	}

	if e.ctrl == nil {
		e.ctrl = e.newController()
	}
	e.ctrl.AddAction(c)
	return nil
}

func (e *entity) buildClip(cfg loader.ActionConfig, src loader.AnimationSource) (clip.Clip, error) {
	if e.clips == nil {
		return cfg.BuildClip(e.skel, src)
	}
	c, err := e.clips.GetOrBuild(cfg.KeyFor(e.skel), func() (clip.Clip, error) {
		return cfg.BuildClip(e.skel, src)
	})
	if err != nil {
		return nil, err
	}
	if !c.Proxy() && c.Skeleton().Fingerprint() != e.skel.Fingerprint() {
		return nil, fmt.Errorf("action %q: %w", cfg.Name, loader.ErrSkeletonMismatch)
	}
	return c, nil
}

func (e *entity) newController() action.Controller {
	weight := e.weightFunc
	if weight == nil {
		weight = e.weights
	}
	options := []action.ControllerBuilderOption{
		action.WithChaining(e.follow),
		action.WithAnchor(e.position),
		action.WithAngle(e.angle),
		action.WithWeightFunc(weight),
	}
	if e.rng != nil {
		options = append(options, action.WithRand(e.rng))
	}
	if e.evaluator != nil {
		options = append(options, action.WithEvaluator(e.evaluator))
	}
	return action.NewController(entityOwner{e}, options...)
}

func (e *entity) Controller() action.Controller {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctrl
}

func (e *entity) Update(t float64) {
	if !e.enabled.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	e.ctrl.Update(t)
	if e.follow {
		e.angle = e.ctrl.Angle()
	}
}

func (e *entity) ForceTransition(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return
	}
	e.ctrl.ForceTransition(t)
	if e.follow {
		e.position = e.ctrl.Position()
		e.angle = e.ctrl.Angle()
	}
}

func (e *entity) Position() mgl32.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

func (e *entity) SetPosition(p mgl32.Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.follow && e.ctrl != nil {
		log.Printf("[Entity] Warning: %q follows its actions, position set externally is overwritten", e.name)
	}
	e.position = p
}

func (e *entity) Angle() float32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.angle
}

func (e *entity) SetAngle(degrees float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.angle = degrees
}

func (e *entity) Scale() float32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scale * e.unitScale
}

func (e *entity) SetScale(s float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scale = s
}

func (e *entity) BoneTransforms() skeleton.Pose {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bones
}

func (e *entity) SetBoneTransforms(p skeleton.Pose) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bones = p
}

func (e *entity) ModelMatrix() mgl32.Mat4 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	anchor, angle := e.position, e.angle
	if e.follow && e.ctrl != nil {
		anchor, angle = e.ctrl.Anchor(), e.ctrl.Angle()
	}
	return common.BuildModelMatrix(anchor, angle, e.scale*e.unitScale)
}

// entityOwner receives controller callbacks while the entity lock is already held.
type entityOwner struct {
	e *entity
}

func (o entityOwner) Scale() float32 {
	return o.e.scale * o.e.unitScale
}

func (o entityOwner) SetPosition(p mgl32.Vec3) {
	o.e.position = p
}

func (o entityOwner) SetBoneTransforms(p skeleton.Pose) {
	o.e.bones = p
}

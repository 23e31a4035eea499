package scene

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/entity"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/pose"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bone_buffer"
	"github.com/quasilyte/gdata/v2"
)

type scene struct {
	mu sync.RWMutex

	name     string
	registry map[uint64]entity.Entity
	nextID   uint64

	loader    loader.Loader
	clips     assets.Cache[clip.Clip]
	skeletons *loader.SkeletonSet
	storage   *gdata.Manager
	evaluator pose.Evaluator
	seed      uint64
	seeded    bool

	computeWorkers int
	loadWorkers    int
	computePool    worker.DynamicWorkerPool
	loadPool       worker.DynamicWorkerPool

	loads    sync.WaitGroup
	loadErrs []error
}

// Scene owns a set of entities, the loader and clip cache they share, and the worker pools
// that update and load them.
type Scene interface {
	// Name returns the scene name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Add registers an entity. Entities without an ID are assigned the next free one.
	//
	// Parameters:
	//   - e: the entity to add
	//
	// Returns:
	//   - uint64: the entity ID
	Add(e entity.Entity) uint64

	// Remove unregisters an entity by ID. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the entity ID
	Remove(id uint64)

	// Entity returns a registered entity by ID.
	//
	// Parameters:
	//   - id: the entity ID
	//
	// Returns:
	//   - entity.Entity: the entity, nil if unknown
	Entity(id uint64) entity.Entity

	// Entities returns the registered entities in ID order.
	//
	// Returns:
	//   - []entity.Entity: the entities
	Entities() []entity.Entity

	// Len returns the number of registered entities.
	//
	// Returns:
	//   - int: the entity count
	Len() int

	// Loader returns the model loader shared by the scene's entities.
	//
	// Returns:
	//   - loader.Loader: the loader
	Loader() loader.Loader

	// Clips returns the clip cache shared by the scene's entities.
	//
	// Returns:
	//   - assets.Cache[clip.Clip]: the clip cache
	Clips() assets.Cache[clip.Clip]

	// Spawn creates, loads and registers an entity from its configuration. Animated entities
	// load their model and actions before Spawn returns; decorative ones load on the load pool.
	//
	// Parameters:
	//   - cfg: the entity configuration
	//
	// Returns:
	//   - entity.Entity: the registered entity
	//   - error: error if the model or an action cannot be loaded
	Spawn(cfg EntityConfig) (entity.Entity, error)

	// Populate spawns every entity of a scene configuration.
	//
	// Parameters:
	//   - cfg: the scene configuration
	//
	// Returns:
	//   - error: the first spawn error
	Populate(cfg Config) error

	// Update advances every enabled entity to time t. Entities are updated in parallel on the
	// compute pool and Update returns once all of them are done.
	//
	// Parameters:
	//   - t: the scene time in seconds
	Update(t float64)

	// Stage writes the model matrix and pose of every enabled entity into consecutive slots of
	// a bone buffer, in ID order.
	//
	// Parameters:
	//   - buf: the bone buffer
	//
	// Returns:
	//   - int: the number of slots staged
	//   - error: error if there are more entities than slots
	Stage(buf bone_buffer.BoneBuffer) (int, error)

	// CacheStats sums the pose cache statistics of every distinct clip in the scene.
	//
	// Returns:
	//   - clip.CacheStats: the totals
	CacheStats() clip.CacheStats

	// Wait blocks until every background load has finished.
	//
	// Returns:
	//   - error: the joined errors of failed background loads
	Wait() error

	// Close waits for background loads and stops the worker pools.
	Close()
}

var _ Scene = &scene{}

// NewScene creates a new Scene with the given name and options.
// By default the scene builds its own loader, an in-memory clip cache and a caching evaluator,
// and updates entities on runtime.NumCPU()-1 workers.
//
// Parameters:
//   - name: the scene name
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:           name,
		registry:       make(map[uint64]entity.Entity),
		nextID:         1,
		computeWorkers: max(runtime.NumCPU()-1, 1),
		loadWorkers:    2,
		skeletons:      loader.NewSkeletonSet(),
	}
	for _, option := range options {
		option(s)
	}

	if s.loader == nil {
		s.loader = loader.NewLoader(loader.WithStorage(s.storage))
	}
	if s.clips == nil {
		s.clips = assets.NewCache(
			assets.WithStorage[clip.Clip](s.storage),
			assets.WithCodec[clip.Clip](loader.ClipCodec{Skeletons: s.skeletons}),
			assets.WithTypeName[clip.Clip]("clip"),
		)
	}
	if s.evaluator == nil {
		s.evaluator = pose.NewEvaluator()
	}

	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	s.loadPool = worker.NewDynamicWorkerPool(s.loadWorkers, 64, 5*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Add(e entity.Entity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e)
}

func (s *scene) addLocked(e entity.Entity) uint64 {
	if e.ID() == 0 {
		e.SetID(s.nextID)
	}
	if e.ID() >= s.nextID {
		s.nextID = e.ID() + 1
	}
	s.registry[e.ID()] = e
	return e.ID()
}

func (s *scene) reserveID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, id)
}

func (s *scene) Entity(id uint64) entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Entities() []entity.Entity {
	s.mu.RLock()
	out := make([]entity.Entity, 0, len(s.registry))
	for _, e := range s.registry {
		out = append(out, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b entity.Entity) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

func (s *scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Loader() loader.Loader {
	return s.loader
}

func (s *scene) Clips() assets.Cache[clip.Clip] {
	return s.clips
}

func (s *scene) Spawn(cfg EntityConfig) (entity.Entity, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("entity %q: %w", cfg.Name, ErrNoModel)
	}

	id := s.reserveID()
	e := entity.NewEntity(s.entityOptions(id, cfg)...)

	if !cfg.Animated() {
		s.loads.Add(1)
		err := e.LoadAsync(s.loadPool, s.loader, cfg.Model, func(err error) {
			defer s.loads.Done()
			if err != nil {
				s.mu.Lock()
				s.loadErrs = append(s.loadErrs, err)
				s.mu.Unlock()
			}
		})
		if err != nil {
			s.loads.Done()
			return nil, err
		}
		s.Add(e)
		return e, nil
	}

	if err := e.Load(s.loader, cfg.Model); err != nil {
		return nil, err
	}
	s.skeletons.Add(e.Skeleton())
	actions := cfg.Actions
	if len(actions) == 0 {
		actions = []string{cfg.Model}
	}
	for _, path := range actions {
		if err := s.addAction(e, path); err != nil {
			return nil, err
		}
	}

	s.Add(e)
	log.Printf("[Scene] %s: spawned %q with %d actions", s.name, cfg.Name, len(actions))
	return e, nil
}

func (s *scene) entityOptions(id uint64, cfg EntityConfig) []entity.EntityBuilderOption {
	follow := true
	if cfg.Follow != nil {
		follow = *cfg.Follow
	}

	options := []entity.EntityBuilderOption{
		entity.WithID(id),
		entity.WithName(cfg.Name),
		entity.WithPosition(cfg.Position[0], cfg.Position[1], cfg.Position[2]),
		entity.WithAngle(cfg.Angle),
		entity.WithScale(common.Coalesce(cfg.Scale, 1)),
		entity.WithWillAnimate(cfg.Animated()),
		entity.WithFollow(follow),
		entity.WithClipCache(s.clips),
		entity.WithEvaluator(s.evaluator),
	}
	if s.seeded {
		options = append(options, entity.WithRand(rand.New(rand.NewPCG(s.seed, id))))
	}
	return options
}

func (s *scene) addAction(e entity.Entity, path string) error {
	cfg, err := loader.LoadActionConfig(path)
	if err != nil {
		return fmt.Errorf("entity %q: %w", e.Name(), err)
	}

	var src loader.AnimationSource
	if !cfg.Proxy() {
		src, err = s.loader.LoadAnimation(cfg.Source, cfg.AnimationIndex)
		if err != nil {
			return fmt.Errorf("entity %q: action %q: %w", e.Name(), cfg.Name, err)
		}
	}
	return e.AddAction(cfg, src)
}

func (s *scene) Populate(cfg Config) error {
	for _, ec := range cfg.Entities {
		if _, err := s.Spawn(ec); err != nil {
			return fmt.Errorf("scene %q: %w", s.name, err)
		}
	}
	return nil
}

func (s *scene) Update(t float64) {
	entities := s.Entities()
	if len(entities) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, e := range entities {
		if !e.Enabled() || e.Controller() == nil {
			continue
		}
		wg.Add(1)
		s.computePool.SubmitTask(worker.Task{
			ID:      int(e.ID()),
			Payload: e,
			Do: func() (any, error) {
				defer wg.Done()
				e.Update(t)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Stage(buf bone_buffer.BoneBuffer) (int, error) {
	slot := 0
	for _, e := range s.Entities() {
		if !e.Enabled() {
			continue
		}
		if err := buf.StageSource(slot, e); err != nil {
			return slot, fmt.Errorf("scene %q: entity %q: %w", s.name, e.Name(), err)
		}
		slot++
	}
	return slot, nil
}

func (s *scene) CacheStats() clip.CacheStats {
	var total clip.CacheStats
	seen := make(map[clip.Clip]struct{})
	for _, e := range s.Entities() {
		ctrl := e.Controller()
		if ctrl == nil {
			continue
		}
		for _, c := range ctrl.Actions() {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			st := c.CacheStats()
			total.Hits += st.Hits
			total.Misses += st.Misses
			total.Evictions += st.Evictions
			total.Entries += st.Entries
		}
	}
	return total
}

func (s *scene) Wait() error {
	s.loads.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	err := errors.Join(s.loadErrs...)
	s.loadErrs = nil
	return err
}

func (s *scene) Close() {
	if err := s.Wait(); err != nil {
		log.Printf("[Scene] Warning: %s: background loads failed: %v", s.name, err)
	}
	s.computePool.Stop()
	s.loadPool.Stop()
}

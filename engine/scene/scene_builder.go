package scene

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/entity"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/pose"
	"github.com/quasilyte/gdata/v2"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithEntities adds initial entities to the scene.
// Entities without IDs will be assigned new IDs.
//
// Parameters:
//   - entities: the entities to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEntities(entities ...entity.Entity) SceneBuilderOption {
	return func(s *scene) {
		for _, e := range entities {
			s.addLocked(e)
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines that update entities in parallel.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithLoadWorkers sets the number of worker goroutines that load decorative entities.
// Defaults to 2.
//
// Parameters:
//   - n: the number of load workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLoadWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.loadWorkers = n
	}
}

// WithLoader sets the model loader shared by the scene's entities.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLoader(l loader.Loader) SceneBuilderOption {
	return func(s *scene) {
		s.loader = l
	}
}

// WithClipCache sets the clip cache shared by the scene's entities.
//
// Parameters:
//   - c: the clip cache
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithClipCache(c assets.Cache[clip.Clip]) SceneBuilderOption {
	return func(s *scene) {
		s.clips = c
	}
}

// WithStorage persists parsed models and built clips through a gdata manager.
// It only applies to the loader and clip cache the scene builds itself.
//
// Parameters:
//   - m: the opened gdata manager
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithStorage(m *gdata.Manager) SceneBuilderOption {
	return func(s *scene) {
		s.storage = m
	}
}

// WithEvaluator sets the pose evaluator shared by the scene's entities.
//
// Parameters:
//   - ev: the evaluator
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEvaluator(ev pose.Evaluator) SceneBuilderOption {
	return func(s *scene) {
		s.evaluator = ev
	}
}

// WithSeed makes action selection reproducible. Each spawned entity draws from its own
// generator seeded with the scene seed and the entity ID.
//
// Parameters:
//   - seed: the scene seed
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSeed(seed uint64) SceneBuilderOption {
	return func(s *scene) {
		s.seed = seed
		s.seeded = true
	}
}

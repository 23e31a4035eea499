package entity

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

const heroDescriptor = `
name: hero
ticks_per_second: 1
bones:
  Hips:  {id: 0}
  Spine: {id: 1, parent: Hips}
tracks:
  Hips:
    positions: [[0,0,0], [0,0,1], [0,0,2], [0,0,3]]
    rotations: [[1,0,0,0], [1,0,0,0], [1,0,0,0], [1,0,0,0]]
`

func heroLoader(t *testing.T, paths ...string) loader.Loader {
	t.Helper()
	d, err := loader.ParseDescriptor([]byte(heroDescriptor), "hero")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	var options []loader.LoaderBuilderOption
	for _, p := range paths {
		options = append(options, loader.WithSource(p, d))
	}
	return loader.NewLoader(options...)
}

func stepAction(t *testing.T) loader.ActionConfig {
	t.Helper()
	cfg, err := loader.ParseActionConfig([]byte("looping: false\nfps: 1\nframe_count: 4\nend_position: [0, 0, 10]\nend_rotation: 90\n"), "step.action.yaml")
	if err != nil {
		t.Fatalf("ParseActionConfig: %v", err)
	}
	return cfg
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewEntityDefaults(t *testing.T) {
	e := NewEntity(WithName("crate"), WithPosition(1, 2, 3), WithAngle(90), WithScale(2))
	if !e.Enabled() || e.Ready() || e.Controller() != nil {
		t.Fatalf("unexpected initial state")
	}
	if e.BoneTransforms() != skeleton.IdentityPose() {
		t.Errorf("bone transforms are not identity before the first update")
	}
	want := common.BuildModelMatrix(mgl32.Vec3{1, 2, 3}, 90, 2)
	if got := e.ModelMatrix(); !got.ApproxEqual(want) {
		t.Errorf("ModelMatrix = %v, want %v", got, want)
	}

	// without actions Update leaves the entity alone
	e.Update(5)
	if e.Position() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("Position = %v after Update without actions", e.Position())
	}
}

func TestAddActionBeforeLoad(t *testing.T) {
	e := NewEntity(WithName("hero"), WithWillAnimate(true))
	err := e.AddAction(loader.BasicAction("hero.yaml"), nil)
	if !errors.Is(err, ErrSkeletonNotReady) {
		t.Fatalf("err = %v, want ErrSkeletonNotReady", err)
	}
}

func TestLoadAsyncRefusedForAnimated(t *testing.T) {
	e := NewEntity(WithWillAnimate(true))
	err := e.LoadAsync(nil, heroLoader(t, "hero.yaml"), "hero.yaml", nil)
	if !errors.Is(err, ErrAsyncAnimated) {
		t.Fatalf("err = %v, want ErrAsyncAnimated", err)
	}
}

func TestLoadAsync(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(1, 4, time.Second)
	defer pool.Stop()

	e := NewEntity(WithName("tree"))
	done := make(chan error, 1)
	if err := e.LoadAsync(pool, heroLoader(t, "tree.yaml"), "tree.yaml", func(err error) { done <- err }); err != nil {
		t.Fatalf("LoadAsync: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("background load: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("background load did not finish")
	}
	if !e.Ready() || e.Skeleton().Count() != 2 || e.Source() != "tree.yaml" {
		t.Errorf("entity not loaded: ready=%v source=%q", e.Ready(), e.Source())
	}
}

func TestSkeletalAction(t *testing.T) {
	l := heroLoader(t, "hero.yaml")
	e := NewEntity(WithName("hero"), WithWillAnimate(true), WithFollow(false), WithRand(seeded()))
	if err := e.Load(l, "hero.yaml"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	src, err := l.Load("hero.yaml")
	if err != nil {
		t.Fatalf("loader.Load: %v", err)
	}
	if err := e.AddAction(loader.BasicAction("hero.yaml"), src); err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	e.Update(2)
	bones := e.BoneTransforms()
	// root translation is removed when the entity does not follow its actions
	if got := bones[0].Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{}) {
		t.Errorf("root translation = %v, want zero", got)
	}
	if bones[59] != mgl32.Ident4() {
		t.Errorf("unused slot is not identity")
	}
	if e.Position() != (mgl32.Vec3{}) {
		t.Errorf("Position = %v, want the externally driven origin", e.Position())
	}
	e.SetPosition(mgl32.Vec3{4, 0, 0})
	e.Update(3)
	if e.Position() != (mgl32.Vec3{4, 0, 0}) {
		t.Errorf("Position = %v, want (4,0,0)", e.Position())
	}
}

func TestFollowingProxyAction(t *testing.T) {
	e := NewEntity(WithName("walker"), WithWillAnimate(true), WithRand(seeded()))
	if err := e.Load(heroLoader(t, "hero.yaml"), "hero.yaml"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.AddAction(stepAction(t), nil); err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	e.Update(2)
	if got := e.Position(); !got.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Errorf("Position(2) = %v, want (0,0,5)", got)
	}
	if got := e.ModelMatrix().Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{}) {
		t.Errorf("model matrix anchor = %v, want origin before the first bake", got)
	}

	e.Update(4)
	if got := e.Position(); !got.ApproxEqual(mgl32.Vec3{0, 0, 10}) {
		t.Errorf("Position(4) = %v, want (0,0,10)", got)
	}
	if e.Angle() != 90 {
		t.Errorf("Angle = %v, want 90", e.Angle())
	}

	e.Update(6)
	if got := e.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{-5, 0, 10}, 1e-4) {
		t.Errorf("Position(6) = %v, want (-5,0,10)", got)
	}
	want := common.BuildModelMatrix(mgl32.Vec3{0, 0, 10}, 90, 1)
	if got := e.ModelMatrix(); !got.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("ModelMatrix = %v, want %v", got, want)
	}
}

func TestUnitScale(t *testing.T) {
	d, err := loader.ParseDescriptor([]byte(heroDescriptor), "hero")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	e := NewEntity(WithScale(100), WithWillAnimate(true), WithRand(seeded()))
	if err := e.LoadSource("hero.fbx", d); err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if got := e.Scale(); !mgl32.FloatEqual(got, 1) {
		t.Fatalf("Scale = %v, want 1", got)
	}
	if err := e.AddAction(stepAction(t), nil); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	e.Update(2)
	if got := e.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 0, 5}, 1e-4) {
		t.Errorf("Position = %v, want (0,0,5)", got)
	}
}

func TestSharedClipCache(t *testing.T) {
	cache := assets.NewCache[clip.Clip]()
	l := heroLoader(t, "hero.yaml")

	var built []clip.Clip
	for range 2 {
		e := NewEntity(WithWillAnimate(true), WithClipCache(cache), WithRand(seeded()))
		if err := e.Load(l, "hero.yaml"); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if err := e.AddAction(stepAction(t), nil); err != nil {
			t.Fatalf("AddAction: %v", err)
		}
		built = append(built, e.Controller().Current())
	}
	if built[0] != built[1] {
		t.Errorf("entities did not share the cached clip")
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d clips, want 1", cache.Len())
	}
}

const shiftedDescriptor = `
name: hero
ticks_per_second: 1
bones:
  Hips:  {id: 0, offset: [1,0,0,0, 0,1,0,0, 0,0,1,0, 5,5,5,1]}
  Spine: {id: 1, parent: Hips}
tracks:
  Hips:
    positions: [[0,0,0], [0,0,1], [0,0,2], [0,0,3]]
    rotations: [[1,0,0,0], [1,0,0,0], [1,0,0,0], [1,0,0,0]]
`

func TestClipCacheKeyedBySkeleton(t *testing.T) {
	cache := assets.NewCache[clip.Clip]()
	shifted, err := loader.ParseDescriptor([]byte(shiftedDescriptor), "hero")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	loaders := []loader.Loader{
		heroLoader(t, "walk.yaml"),
		loader.NewLoader(loader.WithSource("walk.yaml", shifted)),
	}

	var entities []Entity
	for _, l := range loaders {
		e := NewEntity(WithWillAnimate(true), WithFollow(false), WithClipCache(cache), WithRand(seeded()))
		if err := e.Load(l, "walk.yaml"); err != nil {
			t.Fatalf("Load: %v", err)
		}
		src, err := l.Load("walk.yaml")
		if err != nil {
			t.Fatalf("loader.Load: %v", err)
		}
		if err := e.AddAction(loader.BasicAction("walk.yaml"), src); err != nil {
			t.Fatalf("AddAction: %v", err)
		}
		e.Update(0)
		entities = append(entities, e)
	}

	a, b := entities[0], entities[1]
	if a.Controller().Current() == b.Controller().Current() {
		t.Fatalf("entities with different skeletons share one clip")
	}
	if b.Controller().Current().Skeleton() != b.Skeleton() {
		t.Errorf("entity b plays a clip bound to another skeleton")
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d clips, want 2", cache.Len())
	}
	if got := a.BoneTransforms()[0]; !got.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("entity a root slot = %v, want identity", got)
	}
	if got := b.BoneTransforms()[0].Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{5, 5, 5}) {
		t.Errorf("entity b root slot translation = %v, want (5,5,5)", got)
	}
}

func TestWeightsFromConfig(t *testing.T) {
	e := NewEntity(WithWillAnimate(true), WithRand(seeded()))
	if err := e.Load(heroLoader(t, "hero.yaml"), "hero.yaml"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	never := stepAction(t)
	never.Name = "never"
	zero := 0.0
	never.Weight = &zero
	favored := stepAction(t)
	favored.Name = "favored"
	ten := 10.0
	favored.Weight = &ten
	for _, cfg := range []loader.ActionConfig{never, favored} {
		if err := e.AddAction(cfg, nil); err != nil {
			t.Fatalf("AddAction(%s): %v", cfg.Name, err)
		}
	}

	for i := 1; i <= 20; i++ {
		e.ForceTransition(float64(i))
		if got := e.Controller().Current().Name(); got != "favored" {
			t.Fatalf("transition %d selected %q", i, got)
		}
	}
}

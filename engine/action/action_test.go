package action

import (
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeOwner struct {
	scale     float32
	position  mgl32.Vec3
	pose      skeleton.Pose
	positions int
	poses     int
}

func (o *fakeOwner) Scale() float32 { return o.scale }

func (o *fakeOwner) SetPosition(p mgl32.Vec3) {
	o.position = p
	o.positions++
}

func (o *fakeOwner) SetBoneTransforms(p skeleton.Pose) {
	o.pose = p
	o.poses++
}

func newProxy(t *testing.T, opts ...clip.ClipBuilderOption) clip.Clip {
	t.Helper()
	c, err := clip.NewProxy(opts...)
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}
	return c
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestUpdateWithoutActionsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Update to panic with no actions")
		}
	}()
	NewController(&fakeOwner{scale: 1}).Update(0)
}

func TestBakeExactlyOnce(t *testing.T) {
	owner := &fakeOwner{scale: 1}
	ctrl := NewController(owner, WithRand(seeded()))
	ctrl.AddAction(newProxy(t,
		clip.WithName("step"),
		clip.WithFPS(4),
		clip.WithFrameCount(4),
		clip.WithEndPosition(mgl32.Vec3{0, 0, 10}),
	))

	ctrl.Update(0.5)
	if !owner.position.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Fatalf("position at 0.5 = %v, want (0,0,5)", owner.position)
	}
	if ctrl.Completed() != 0 {
		t.Fatalf("no action should have completed yet")
	}

	ctrl.Update(1.0)
	if ctrl.LastTransition() != 1.0 {
		t.Errorf("LastTransition = %v, want 1.0", ctrl.LastTransition())
	}
	if !ctrl.Anchor().ApproxEqual(mgl32.Vec3{0, 0, 10}) {
		t.Errorf("anchor after completion = %v, want (0,0,10)", ctrl.Anchor())
	}
	if !owner.position.ApproxEqual(mgl32.Vec3{0, 0, 10}) {
		t.Errorf("position at 1.0 = %v, want (0,0,10)", owner.position)
	}

	ctrl.Update(1.01)
	if !ctrl.Anchor().ApproxEqual(mgl32.Vec3{0, 0, 10}) {
		t.Errorf("anchor re-baked at 1.01: %v", ctrl.Anchor())
	}
	if !owner.position.ApproxEqual(mgl32.Vec3{0, 0, 10}) {
		t.Errorf("position at 1.01 = %v, want (0,0,10)", owner.position)
	}
	if ctrl.Completed() != 1 {
		t.Errorf("Completed = %d, want 1", ctrl.Completed())
	}

	ctrl.Update(1.3)
	if !owner.position.ApproxEqual(mgl32.Vec3{0, 0, 12.5}) {
		t.Errorf("position at 1.3 = %v, want (0,0,12.5)", owner.position)
	}
}

func TestBakeRotatesIntoFacing(t *testing.T) {
	owner := &fakeOwner{scale: 2}
	ctrl := NewController(owner, WithAngle(90), WithRand(seeded()))
	ctrl.AddAction(newProxy(t,
		clip.WithFPS(1),
		clip.WithFrameCount(1),
		clip.WithEndPosition(mgl32.Vec3{0, 0, 10}),
		clip.WithEndRotation(45),
	))

	ctrl.Update(1)
	if got := ctrl.Anchor(); !got.ApproxEqualThreshold(mgl32.Vec3{-20, 0, 0}, 1e-4) {
		t.Errorf("anchor = %v, want (-20,0,0)", got)
	}
	if got := ctrl.Angle(); got != 135 {
		t.Errorf("angle = %v, want 135", got)
	}
}

func TestWeightedSelection(t *testing.T) {
	ctrl := NewController(&fakeOwner{scale: 1},
		WithRand(seeded()),
		WithWeightFunc(WeightTable{Weights: map[string]float64{"favored": 10, "never": 0}}),
	)
	ctrl.AddAction(newProxy(t, clip.WithName("never"), clip.WithFrameCount(1)))
	ctrl.AddAction(newProxy(t, clip.WithName("favored"), clip.WithFrameCount(1)))

	for i := 0; i < 1000; i++ {
		ctrl.ForceTransition(float64(i))
		if ctrl.Current().Name() != "favored" {
			t.Fatalf("trial %d selected %q", i, ctrl.Current().Name())
		}
	}
}

func TestEqualWeightsAreShuffled(t *testing.T) {
	ctrl := NewController(&fakeOwner{scale: 1}, WithRand(seeded()))
	ctrl.AddAction(newProxy(t, clip.WithName("a"), clip.WithFrameCount(1)))
	ctrl.AddAction(newProxy(t, clip.WithName("b"), clip.WithFrameCount(1)))

	counts := make([]int, 2)
	for i := 0; i < 2000; i++ {
		ctrl.ForceTransition(float64(i))
		counts[ctrl.CurrentIndex()]++
	}
	for i, n := range counts {
		if n < 800 {
			t.Errorf("action %d chosen %d/2000 times, expected roughly half", i, n)
		}
	}
}

func TestAllZeroWeightsStillSelect(t *testing.T) {
	ctrl := NewController(&fakeOwner{scale: 1},
		WithRand(seeded()),
		WithWeightFunc(WeightFuncOf(func(clip.Clip) float64 { return 0 })),
	)
	ctrl.AddAction(newProxy(t, clip.WithFrameCount(1)))
	ctrl.AddAction(newProxy(t, clip.WithFrameCount(1)))
	ctrl.ForceTransition(1)
	if i := ctrl.CurrentIndex(); i < 0 || i > 1 {
		t.Fatalf("CurrentIndex = %d", i)
	}
}

func TestLoopingNeverTransitions(t *testing.T) {
	owner := &fakeOwner{scale: 1}
	ctrl := NewController(owner, WithRand(seeded()))
	ctrl.AddAction(newProxy(t, clip.WithFPS(10), clip.WithFrameCount(5), clip.WithLooping(true)))
	ctrl.AddAction(newProxy(t, clip.WithFPS(10), clip.WithFrameCount(5)))

	for _, tm := range []float64{0, 0.4, 0.5, 3, 100} {
		ctrl.Update(tm)
		if ctrl.State(tm) != clip.StateRunning {
			t.Fatalf("looping action finished at %v", tm)
		}
	}
	if ctrl.CurrentIndex() != 0 || ctrl.Completed() != 0 || ctrl.LastTransition() != 0 {
		t.Errorf("looping action transitioned: index %d completed %d", ctrl.CurrentIndex(), ctrl.Completed())
	}
	if owner.poses != 5 {
		t.Errorf("owner received %d poses, want 5", owner.poses)
	}
}

func TestSuppressedRootTranslation(t *testing.T) {
	owner := &fakeOwner{scale: 1}
	ctrl := NewController(owner, WithChaining(false), WithAnchor(mgl32.Vec3{1, 2, 3}), WithRand(seeded()))
	ctrl.AddAction(newProxy(t,
		clip.WithFPS(1),
		clip.WithFrameCount(2),
		clip.WithEndPosition(mgl32.Vec3{10, 0, 0}),
		clip.WithEndRotation(90),
	))

	for _, tm := range []float64{0, 1, 2, 3} {
		ctrl.Update(tm)
	}
	if owner.positions != 0 {
		t.Errorf("owner moved %d times while chaining was disabled", owner.positions)
	}
	if !ctrl.Anchor().ApproxEqual(mgl32.Vec3{1, 2, 3}) || ctrl.Angle() != 0 {
		t.Errorf("anchor %v angle %v changed while chaining was disabled", ctrl.Anchor(), ctrl.Angle())
	}
	if got := owner.pose[0].Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{}) {
		t.Errorf("pose carries root translation %v", got)
	}
}

func TestPhases(t *testing.T) {
	ctrl := NewController(&fakeOwner{scale: 1}, WithRand(seeded()))
	ctrl.AddAction(newProxy(t, clip.WithFrameCount(1)))
	if ctrl.Phase() != PhaseIdle {
		t.Fatalf("Phase = %v, want idle", ctrl.Phase())
	}
	ctrl.Update(0)
	if ctrl.Phase() != PhaseRunning {
		t.Fatalf("Phase = %v, want running", ctrl.Phase())
	}
	ctrl.Update(1)
	ctrl.Update(2)
	if ctrl.Phase() != PhaseRunning || ctrl.Completed() != 2 {
		t.Errorf("Phase = %v Completed = %d, want running and 2", ctrl.Phase(), ctrl.Completed())
	}
}

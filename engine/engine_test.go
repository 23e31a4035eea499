package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bone_buffer"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
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

func walkerScene(t *testing.T) scene.Scene {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"hero.yaml":        heroDescriptor,
		"step.action.yaml": "looping: false\nfps: 1\nframe_count: 4\nend_position: [0, 0, 10]\nend_rotation: 90\n",
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	s := scene.NewScene("test", scene.WithComputeWorkers(2), scene.WithSeed(5))
	t.Cleanup(s.Close)
	_, err := s.Spawn(scene.EntityConfig{
		Name:    "walker",
		Model:   filepath.Join(dir, "hero.yaml"),
		Actions: []string{filepath.Join(dir, "step.action.yaml")},
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	return s
}

func TestRunFrames(t *testing.T) {
	s := walkerScene(t)
	var ticks []float64
	e := NewEngine(s, WithPositionLogging(2))
	defer e.Release()
	e.SetTickCallback(func(t float64) { ticks = append(ticks, t) })

	e.RunFrames(5, 0.5)
	if len(ticks) != 5 || ticks[4] != 2 {
		t.Fatalf("ticks = %v, want 5 ticks ending at 2", ticks)
	}
	walker := s.Entity(1)
	if got := walker.Position(); !got.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Errorf("Position = %v, want (0,0,5)", got)
	}

	if e.BoneBuffer().Capacity() != 1 {
		t.Errorf("bone buffer capacity = %d, want one slot per entity", e.BoneBuffer().Capacity())
	}
	want := bone_buffer.NewBoneBuffer(bone_buffer.WithCapacity(1))
	if err := want.StageSource(0, walker); err != nil {
		t.Fatalf("StageSource: %v", err)
	}
	if string(e.BoneBuffer().Record(0)) != string(want.Record(0)) {
		t.Errorf("rendered record does not match the walker")
	}
}

func TestPauseClock(t *testing.T) {
	now := 0.0
	e := NewEngine(walkerScene(t), WithClock(func() float64 { return now }))

	now = 1
	if e.Time() != 1 {
		t.Fatalf("Time = %v, want 1", e.Time())
	}
	if !e.TogglePause() || !e.Paused() {
		t.Fatalf("TogglePause did not pause")
	}
	now = 3
	if e.Time() != 1 {
		t.Errorf("paused Time = %v, want 1", e.Time())
	}
	if e.TogglePause() {
		t.Fatalf("TogglePause did not resume")
	}
	now = 4
	if e.Time() != 2 {
		t.Errorf("resumed Time = %v, want 2", e.Time())
	}
}

func TestForceTransition(t *testing.T) {
	now := 0.0
	s := walkerScene(t)
	e := NewEngine(s, WithClock(func() float64 { return now }))

	e.Tick(0)
	now = 2
	e.ForceTransition()
	ctrl := s.Entity(1).Controller()
	if ctrl.LastTransition() != 2 {
		t.Errorf("LastTransition = %v, want 2", ctrl.LastTransition())
	}
	if got := ctrl.Anchor(); !got.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Errorf("Anchor = %v, want the distance covered before the transition", got)
	}
}

func TestRunWithoutWindow(t *testing.T) {
	e := NewEngine(walkerScene(t))
	if err := e.Run(); !errors.Is(err, ErrNoWindow) {
		t.Errorf("Run = %v, want ErrNoWindow", err)
	}
	e.Quit()
	e.Quit()
}

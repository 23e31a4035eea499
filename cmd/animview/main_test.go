package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
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

const courtyard = `
name: courtyard
seed: 9
entities:
  - name: walker
    model: hero.yaml
    actions: [step.action.yaml]
  - name: statue
    model: hero.yaml
`

func TestRunHeadless(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"hero.yaml":        heroDescriptor,
		"step.action.yaml": "looping: false\nfps: 1\nframe_count: 4\nend_position: [0, 0, 10]\n",
		"courtyard.yaml":   courtyard,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	err := run(options{
		scenePath: filepath.Join(dir, "courtyard.yaml"),
		frames:    10,
		dt:        0.5,
		seed:      -1,
		logEvery:  5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunMissingScene(t *testing.T) {
	err := run(options{scenePath: filepath.Join(t.TempDir(), "missing.yaml"), frames: 1})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("run = %v, want a missing file error", err)
	}
}

package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quasilyte/gdata/v2"
)

type testArtifact struct {
	Name   string    `yaml:"name"`
	Frames []float32 `yaml:"frames"`
}

func openTestStorage(t *testing.T, testName string) *gdata.Manager {
	t.Helper()
	appName := fmt.Sprintf("oxy_anim_assets_test_%s_%d", testName, time.Now().UnixNano())
	manager, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil
	}

	t.Cleanup(func() {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			os.RemoveAll(filepath.Join(homeDir, ".local", "share", appName))
		}
	})
	return manager
}

func TestKey(t *testing.T) {
	k := Key("models/hero.yaml")
	if len(k) != 16 {
		t.Fatalf("Key length = %d, want 16", len(k))
	}
	if k != Key("models/hero.yaml") {
		t.Fatalf("Key is not deterministic")
	}
	if k == Key("models/hero2.yaml") {
		t.Fatalf("distinct names share a key")
	}
}

func TestGetOrBuildCachesInMemory(t *testing.T) {
	c := NewCache[testArtifact]()
	calls := 0
	build := func() (testArtifact, error) {
		calls++
		return testArtifact{Name: "walk"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrBuild("walk", build)
		if err != nil {
			t.Fatalf("GetOrBuild: %v", err)
		}
		if v.Name != "walk" {
			t.Fatalf("got %+v", v)
		}
	}
	if calls != 1 {
		t.Errorf("builder called %d times, want 1", calls)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestFailingBuilderStoresNothing(t *testing.T) {
	c := NewCache[testArtifact]()
	boom := errors.New("boom")
	_, err := c.GetOrBuild("broken", func() (testArtifact, error) {
		return testArtifact{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("failed build left %d entries", c.Len())
	}
	if _, err := c.GetOrBuild("broken", nil); !errors.Is(err, ErrNoBuilder) {
		t.Errorf("err = %v, want ErrNoBuilder", err)
	}
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(WithCapacity[testArtifact](2))
	for _, name := range []string{"a", "b"} {
		if err := c.Save(name, testArtifact{Name: name}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should be cached")
	}
	if err := c.Save("c", testArtifact{Name: "c"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, ok := c.Get("b"); ok {
		t.Errorf("b should have been evicted")
	}
	keys := c.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("Keys = %v, want [a c]", keys)
	}
}

func TestForceReloadAndRemove(t *testing.T) {
	c := NewCache[testArtifact]()
	if err := c.Save("idle", testArtifact{Name: "old"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := c.ForceReload("idle", nil); !errors.Is(err, ErrNoBuilder) {
		t.Fatalf("err = %v, want ErrNoBuilder", err)
	}
	v, err := c.ForceReload("idle", func() (testArtifact, error) {
		return testArtifact{Name: "new"}, nil
	})
	if err != nil {
		t.Fatalf("ForceReload: %v", err)
	}
	if got, _ := c.Get("idle"); got.Name != "new" || v.Name != "new" {
		t.Errorf("ForceReload kept the stale artifact: %+v", got)
	}

	if err := c.Remove("idle"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if c.Len() != 0 || len(c.Keys()) != 0 {
		t.Errorf("Remove left entries behind: %v", c.Keys())
	}
}

func TestPersistedArtifactsSurviveRestart(t *testing.T) {
	storage := openTestStorage(t, "persist")
	if storage == nil {
		t.Skip("Cannot create gdata manager for testing")
	}
	newCache := func() Cache[testArtifact] {
		return NewCache(
			WithStorage[testArtifact](storage),
			WithCodec[testArtifact](YAMLCodec[testArtifact]{}),
			WithTypeName[testArtifact]("test"),
		)
	}

	first := newCache()
	want := testArtifact{Name: "run", Frames: []float32{0, 0.5, 1}}
	if _, err := first.GetOrBuild("run", func() (testArtifact, error) { return want, nil }); err != nil {
		t.Fatalf("GetOrBuild: %v", err)
	}

	second := newCache()
	got, err := second.GetOrBuild("run", func() (testArtifact, error) {
		return testArtifact{}, errors.New("builder should not run")
	})
	if err != nil {
		t.Fatalf("GetOrBuild from disk: %v", err)
	}
	if got.Name != want.Name || len(got.Frames) != len(want.Frames) || got.Frames[1] != 0.5 {
		t.Errorf("reloaded %+v, want %+v", got, want)
	}

	if err := second.Remove("run"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	third := newCache()
	calls := 0
	if _, err := third.GetOrBuild("run", func() (testArtifact, error) {
		calls++
		return want, nil
	}); err != nil {
		t.Fatalf("GetOrBuild after Remove: %v", err)
	}
	if calls != 1 {
		t.Errorf("removed artifact was still loaded from disk")
	}
}

func TestFailingBuilderPersistsNothing(t *testing.T) {
	storage := openTestStorage(t, "failing")
	if storage == nil {
		t.Skip("Cannot create gdata manager for testing")
	}
	c := NewCache(
		WithStorage[testArtifact](storage),
		WithCodec[testArtifact](YAMLCodec[testArtifact]{}),
	)
	if _, err := c.GetOrBuild("bad", func() (testArtifact, error) {
		return testArtifact{}, errors.New("bad source")
	}); err == nil {
		t.Fatalf("expected an error")
	}
	if storage.ObjectPropExists(Key("bad"), payloadProp) {
		t.Errorf("failed build was persisted")
	}
}

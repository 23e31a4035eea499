// Command animview plays a scene of animated entities.
//
// Usage:
//
//	animview -scene courtyard.yaml             open a preview window
//	animview -scene courtyard.yaml -frames 300 run 300 frames without a window
//
// In the window, Space ends every entity's current action and P pauses the clock.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/profile"
	"github.com/quasilyte/gdata/v2"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bone_buffer"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
)

func init() {
	// GLFW and the WebGPU device must stay on the main thread.
	runtime.LockOSThread()
}

type options struct {
	scenePath  string
	frames     int
	dt         float64
	seed       int64
	gpu        bool
	storage    string
	logEvery   int
	tickRate   float64
	width      int
	height     int
	cpuProfile string
}

func main() {
	var opts options
	flag.StringVar(&opts.scenePath, "scene", "", "path to the scene YAML file")
	flag.IntVar(&opts.frames, "frames", 0, "run this many frames headless instead of opening a window")
	flag.Float64Var(&opts.dt, "dt", 1.0/30.0, "seconds per headless frame")
	flag.Int64Var(&opts.seed, "seed", -1, "action selection seed, overrides the scene file")
	flag.BoolVar(&opts.gpu, "gpu", false, "upload bone buffers to a headless GPU device")
	flag.StringVar(&opts.storage, "storage", "", "gdata app name used to persist parsed models and clips")
	flag.IntVar(&opts.logEvery, "log-every", 30, "log entity positions every N frames, 0 to disable")
	flag.Float64Var(&opts.tickRate, "tick-rate", 60, "scene updates per second in the window")
	flag.IntVar(&opts.width, "width", 1280, "window width in pixels")
	flag.IntVar(&opts.height, "height", 720, "window height in pixels")
	flag.StringVar(&opts.cpuProfile, "cpuprofile", "", "directory to write a CPU profile to")
	flag.Parse()

	if opts.scenePath == "" {
		fmt.Fprintln(os.Stderr, "--scene is required")
		os.Exit(1)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "animview: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(opts.cpuProfile), profile.NoShutdownHook).Stop()
	}

	cfg, err := scene.LoadConfig(opts.scenePath)
	if err != nil {
		return err
	}

	var sceneOptions []scene.SceneBuilderOption
	switch {
	case opts.seed >= 0:
		sceneOptions = append(sceneOptions, scene.WithSeed(uint64(opts.seed)))
	case cfg.Seed != nil:
		sceneOptions = append(sceneOptions, scene.WithSeed(*cfg.Seed))
	}
	if opts.storage != "" {
		m, err := gdata.Open(gdata.Config{AppName: opts.storage})
		if err != nil {
			return fmt.Errorf("open storage %q: %w", opts.storage, err)
		}
		sceneOptions = append(sceneOptions, scene.WithStorage(m))
	}

	s := scene.NewScene(cfg.Name, sceneOptions...)
	defer s.Close()
	if err := s.Populate(cfg); err != nil {
		return err
	}
	if err := s.Wait(); err != nil {
		log.Printf("[AnimView] Warning: %v", err)
	}
	log.Printf("[AnimView] scene %q: %d entities", s.Name(), s.Len())

	engineOptions := []engine.EngineBuilderOption{
		engine.WithProfiling(true),
		engine.WithTickRate(opts.tickRate),
		engine.WithPositionLogging(opts.logEvery),
	}

	if opts.frames > 0 {
		e := engine.NewEngine(s, engineOptions...)
		defer e.Release()
		if opts.gpu {
			if err := attachGPU(e, nil); err != nil {
				return err
			}
		}
		e.RunFrames(opts.frames, opts.dt)
		return nil
	}
	w, err := window.NewWindow(window.WithTitle(cfg.Name), window.WithSize(opts.width, opts.height))
	if err != nil {
		return err
	}
	defer w.Close()
	return windowed(w, s, cfg.Name, engineOptions)
}

func attachGPU(e engine.Engine, surface *wgpu.SurfaceDescriptor) error {
	g, err := bone_buffer.NewGPU(surface, false)
	if err != nil {
		return err
	}
	if err := e.AttachGPU(g); err != nil {
		g.Release()
		return err
	}
	return nil
}

func windowed(w window.Window, s scene.Scene, title string, engineOptions []engine.EngineBuilderOption) error {
	e := engine.NewEngine(s, append(engineOptions, engine.WithWindow(w), engine.WithClock(w.Time))...)
	defer e.Release()
	if err := attachGPU(e, w.SurfaceDescriptor()); err != nil {
		return err
	}

	w.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeySpace:
			e.ForceTransition()
		case common.KeyP:
			if e.TogglePause() {
				w.SetTitle(title + " (paused)")
			} else {
				w.SetTitle(title)
			}
		}
	})
	return e.Run()
}

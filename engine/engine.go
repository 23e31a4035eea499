package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bone_buffer"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
)

// ErrNoWindow is returned by Run when the engine was built without a window.
var ErrNoWindow = errors.New("engine has no window")

// engine implements the Engine interface.
// Coordinates the scene tick loop with staging and uploading on the window thread.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window
	scene  scene.Scene
	bones  bone_buffer.BoneBuffer
	gpu    *bone_buffer.GPU

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(t float64)

	clockMu  sync.Mutex
	clock    func() float64
	paused   bool
	pausedAt float64
	offset   float64

	logEvery int
	frame    int
}

// Engine drives a scene: it advances entities on a clock, stages their poses into a bone
// buffer and uploads the buffer when a GPU is attached.
type Engine interface {
	// Scene returns the driven scene.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Window returns the underlying window, nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// BoneBuffer returns the buffer entity poses are staged into.
	//
	// Returns:
	//   - bone_buffer.BoneBuffer: the bone buffer
	BoneBuffer() bone_buffer.BoneBuffer

	// AttachGPU allocates the bone buffer on a device. Render uploads to it from then on and
	// Release releases it.
	//
	// Parameters:
	//   - g: the acquired GPU objects
	//
	// Returns:
	//   - error: error if the buffer cannot be allocated
	AttachGPU(g *bone_buffer.GPU) error

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets how often Run advances the scene.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called after each scene update.
	//
	// Parameters:
	//   - callback: function receiving the scene time in seconds
	SetTickCallback(callback func(t float64))

	// Time returns the scene time: the clock minus the time spent paused.
	//
	// Returns:
	//   - float64: the scene time in seconds
	Time() float64

	// TogglePause stops or restarts the scene clock.
	//
	// Returns:
	//   - bool: true if the engine is now paused
	TogglePause() bool

	// Paused reports whether the scene clock is stopped.
	//
	// Returns:
	//   - bool: true while paused
	Paused() bool

	// ForceTransition ends the current action of every animated entity at the current scene time.
	ForceTransition()

	// Tick advances the scene to time t.
	//
	// Parameters:
	//   - t: the scene time in seconds
	Tick(t float64)

	// Render stages every enabled entity into the bone buffer and uploads it if a GPU is attached.
	Render()

	// RunFrames advances and renders n frames spaced dt seconds apart, starting at time zero.
	//
	// Parameters:
	//   - n: the number of frames
	//   - dt: the seconds between frames
	RunFrames(n int, dt float64)

	// Run starts the tick loop and renders from the window message loop (blocks until the window closes).
	//
	// Returns:
	//   - error: ErrNoWindow if the engine has no window
	Run() error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Release releases the bone buffer and the attached GPU.
	Release()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine driving the given scene.
// The bone buffer defaults to one slot per entity currently in the scene, and the profiler
// reports the scene's pose cache statistics.
//
// Parameters:
//   - s: the scene to drive
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(s scene.Scene, options ...EngineBuilderOption) Engine {
	start := time.Now()
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scene:           s,
		engineTickRate:  time.Second / 60,
		clock:           func() float64 { return time.Since(start).Seconds() },
	}

	for _, opt := range options {
		opt(e)
	}

	if e.bones == nil {
		e.bones = bone_buffer.NewBoneBuffer(
			bone_buffer.WithCapacity(max(s.Len(), 1)),
			bone_buffer.WithLabel(s.Name()+" Bones"),
		)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithCacheStats(s.CacheStats))
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			log.Printf("[Engine] %s: surface resized to %dx%d", s.Name(), width, height)
		})
	}
	return e
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) BoneBuffer() bone_buffer.BoneBuffer {
	return e.bones
}

func (e *engine) AttachGPU(g *bone_buffer.GPU) error {
	if _, err := e.bones.Allocate(g.Device); err != nil {
		return err
	}
	e.gpu = g
	return nil
}

func (e *engine) Time() float64 {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	if e.paused {
		return e.pausedAt
	}
	return e.clock() - e.offset
}

func (e *engine) TogglePause() bool {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	if e.paused {
		e.offset = e.clock() - e.pausedAt
	} else {
		e.pausedAt = e.clock() - e.offset
	}
	e.paused = !e.paused
	return e.paused
}

func (e *engine) Paused() bool {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	return e.paused
}

func (e *engine) ForceTransition() {
	t := e.Time()
	for _, ent := range e.scene.Entities() {
		if ent.Controller() != nil {
			ent.ForceTransition(t)
		}
	}
}

func (e *engine) Tick(t float64) {
	e.scene.Update(t)
	if e.tickCallback != nil {
		e.tickCallback(t)
	}
}

func (e *engine) Render() {
	if _, err := e.scene.Stage(e.bones); err != nil {
		log.Printf("[Engine] Warning: %v", err)
	}
	if e.gpu != nil {
		e.bones.Upload(e.gpu.Queue)
	}

	if e.profilingEnabled {
		e.profiler.Tick()
	}
	if e.logEvery > 0 && e.frame%e.logEvery == 0 {
		e.logPositions()
	}
	e.frame++
}

func (e *engine) logPositions() {
	for _, ent := range e.scene.Entities() {
		ctrl := ent.Controller()
		if ctrl == nil {
			continue
		}
		pos := ent.Position()
		log.Printf("[Engine] %s: action %q at (%.2f, %.2f, %.2f) facing %.1f",
			ent.Name(), ctrl.Current().Name(), pos.X(), pos.Y(), pos.Z(), ent.Angle())
	}
}

func (e *engine) RunFrames(n int, dt float64) {
	for i := range n {
		e.Tick(float64(i) * dt)
		e.Render()
	}
}

func (e *engine) Run() error {
	if e.window == nil {
		return ErrNoWindow
	}
	e.running = true
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()

	e.window.SetUpdateCallback(e.Render)
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	return nil
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Advances the scene at the configured tick rate unless paused and listens for dynamic rate
// changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			if !e.Paused() {
				e.Tick(e.Time())
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called after each scene update.
func (e *engine) SetTickCallback(callback func(t float64)) {
	e.tickCallback = callback
}

func (e *engine) Release() {
	e.bones.Release()
	if e.gpu != nil {
		e.gpu.Release()
		e.gpu = nil
	}
}

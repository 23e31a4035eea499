package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bone_buffer"
	"github.com/Carmen-Shannon/oxy-anim/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets how often Run advances the scene, in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window whose message loop Run renders from.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithBoneBuffer sets the buffer entity poses are staged into.
//
// Parameters:
//   - b: the bone buffer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBoneBuffer(b bone_buffer.BoneBuffer) EngineBuilderOption {
	return func(e *engine) {
		e.bones = b
	}
}

// WithClock sets the clock the scene time is derived from, in seconds.
// Defaults to the wall time since NewEngine.
//
// Parameters:
//   - clock: returns the current time in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(clock func() float64) EngineBuilderOption {
	return func(e *engine) {
		e.clock = clock
	}
}

// WithPositionLogging logs the position and action of every animated entity every n frames.
//
// Parameters:
//   - n: the frame interval, 0 to disable
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPositionLogging(n int) EngineBuilderOption {
	return func(e *engine) {
		e.logEvery = n
	}
}

package profiler

import (
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are logged.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithCacheStats adds a pose cache line to every report. Usually a scene's CacheStats method.
//
// Parameters:
//   - source: returns the cumulative pose cache statistics
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the cache source option
func WithCacheStats(source func() clip.CacheStats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.cacheStats = source
	}
}

// WithClock replaces the wall clock used to measure intervals.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock option
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

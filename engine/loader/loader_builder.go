package loader

import (
	"github.com/quasilyte/gdata/v2"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithSampleRate is an option builder that sets the rate glTF animations are resampled at.
//
// Parameters:
//   - ticksPerSecond: the sampling rate, must be positive
//
// Returns:
//   - LoaderBuilderOption: a function that applies the sample rate option to a loader
func WithSampleRate(ticksPerSecond float32) LoaderBuilderOption {
	return func(l *loader) {
		l.sampleRate = ticksPerSecond
	}
}

// WithCapacity is an option builder that sets how many sources stay in memory.
//
// Parameters:
//   - n: the number of cached sources
//
// Returns:
//   - LoaderBuilderOption: a function that applies the capacity option to a loader
func WithCapacity(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.capacity = n
	}
}

// WithStorage is an option builder that persists parsed sources through a gdata manager.
//
// Parameters:
//   - m: the opened gdata manager
//
// Returns:
//   - LoaderBuilderOption: a function that applies the storage option to a loader
func WithStorage(m *gdata.Manager) LoaderBuilderOption {
	return func(l *loader) {
		l.storage = m
	}
}

// WithSource is an option builder that pre-populates the cache with a source.
//
// Parameters:
//   - key: the cache key, usually the model path
//   - src: the source to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the source option to a loader
func WithSource(key string, src AnimationSource) LoaderBuilderOption {
	return func(l *loader) {
		l.preloaded[key] = src
	}
}

package assets

import (
	"github.com/quasilyte/gdata/v2"
)

// CacheBuilderOption is a functional option for configuring a Cache during construction.
type CacheBuilderOption[T any] func(*cache[T])

// WithCapacity is an option builder that sets how many artifacts stay in memory.
//
// Parameters:
//   - n: the number of in-memory slots, must be positive
//
// Returns:
//   - CacheBuilderOption[T]: a function that applies the capacity option to a cache
func WithCapacity[T any](n int) CacheBuilderOption[T] {
	return func(c *cache[T]) {
		c.capacity = n
	}
}

// WithStorage is an option builder that enables disk persistence through a gdata manager.
// Persistence also requires a codec.
//
// Parameters:
//   - m: the opened gdata manager, nil to keep the cache in memory only
//
// Returns:
//   - CacheBuilderOption[T]: a function that applies the storage option to a cache
func WithStorage[T any](m *gdata.Manager) CacheBuilderOption[T] {
	return func(c *cache[T]) {
		c.storage = m
	}
}

// WithCodec is an option builder that sets how artifacts are encoded on disk.
//
// Parameters:
//   - codec: the artifact codec
//
// Returns:
//   - CacheBuilderOption[T]: a function that applies the codec option to a cache
func WithCodec[T any](codec Codec[T]) CacheBuilderOption[T] {
	return func(c *cache[T]) {
		c.codec = codec
	}
}

// WithTypeName is an option builder that sets the artifact type recorded in the meta record.
//
// Parameters:
//   - name: the artifact type name
//
// Returns:
//   - CacheBuilderOption[T]: a function that applies the type name option to a cache
func WithTypeName[T any](name string) CacheBuilderOption[T] {
	return func(c *cache[T]) {
		c.typeName = name
	}
}

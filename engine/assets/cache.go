package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// ErrNoBuilder is returned when an artifact must be rebuilt but no builder was supplied.
var ErrNoBuilder = errors.New("asset cannot be rebuilt without a builder")

// DefaultCapacity is the number of in-memory slots used when no capacity is configured.
const DefaultCapacity = 64

const (
	payloadProp = "payload"
	metaProp    = "meta"
)

// BuildFunc produces an artifact on a cache miss.
type BuildFunc[T any] func() (T, error)

type cacheSlot[T any] struct {
	name  string
	value T
}

// cache is the implementation of the Cache interface.
type cache[T any] struct {
	mu sync.Mutex

	capacity int
	pager    *Pager[string]
	slots    []cacheSlot[T]

	storage  *gdata.Manager
	codec    Codec[T]
	typeName string
}

// Cache keeps expensive artifacts (skeletons, clips, sources) keyed by name. A fixed number
// of artifacts live in memory; the least recently used one is dropped when a new one arrives.
// With a gdata manager and a codec, artifacts are also written to disk and reloaded from there
// before falling back to the builder.
//
// A Cache is safe for concurrent use. Builders run without the cache lock held.
type Cache[T any] interface {
	// GetOrBuild returns the artifact for name, loading it from memory, then disk, then build.
	// A failing builder returns its error and nothing is stored.
	//
	// Parameters:
	//   - name: the artifact name
	//   - build: produces the artifact on a miss
	//
	// Returns:
	//   - T: the artifact
	//   - error: the builder's error, or ErrNoBuilder if build is nil on a full miss
	GetOrBuild(name string, build BuildFunc[T]) (T, error)

	// Get returns the in-memory artifact for name without touching disk.
	//
	// Parameters:
	//   - name: the artifact name
	//
	// Returns:
	//   - T: the artifact
	//   - bool: false on a miss
	Get(name string) (T, bool)

	// Save stores an artifact in memory and, when persistence is configured, on disk.
	//
	// Parameters:
	//   - name: the artifact name
	//   - artifact: the artifact to store
	//
	// Returns:
	//   - error: error if the artifact could not be persisted
	Save(name string, artifact T) error

	// ForceReload rebuilds the artifact even if it is cached and replaces every stored copy.
	//
	// Parameters:
	//   - name: the artifact name
	//   - build: produces the artifact, required
	//
	// Returns:
	//   - T: the rebuilt artifact
	//   - error: ErrNoBuilder if build is nil, or the builder's error
	ForceReload(name string, build BuildFunc[T]) (T, error)

	// Remove drops the artifact from memory and disk.
	//
	// Parameters:
	//   - name: the artifact name
	//
	// Returns:
	//   - error: error if the disk copy could not be cleared
	Remove(name string) error

	// Len returns the number of artifacts held in memory.
	Len() int

	// Keys returns the names of the artifacts held in memory, sorted.
	Keys() []string
}

var _ Cache[int] = &cache[int]{}

// NewCache creates a new Cache with the provided options.
//
// Parameters:
//   - options: variadic list of CacheBuilderOption functions
//
// Returns:
//   - Cache[T]: the cache
func NewCache[T any](options ...CacheBuilderOption[T]) Cache[T] {
	c := &cache[T]{
		capacity: DefaultCapacity,
		typeName: "artifact",
	}
	for _, opt := range options {
		opt(c)
	}
	if c.capacity <= 0 {
		c.capacity = DefaultCapacity
	}
	c.pager = NewPager[string](c.capacity)
	c.slots = make([]cacheSlot[T], c.capacity)
	return c
}

// Key derives the storage key of an artifact name: the first 16 hex characters of its SHA-256.
//
// Parameters:
//   - name: the artifact name
//
// Returns:
//   - string: the storage key
func Key(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *cache[T]) GetOrBuild(name string, build BuildFunc[T]) (T, error) {
	if v, ok := c.Get(name); ok {
		return v, nil
	}

	if v, ok := c.loadPersisted(name); ok {
		c.put(name, v)
		return v, nil
	}

	if build == nil {
		var zero T
		return zero, fmt.Errorf("asset %q: %w", name, ErrNoBuilder)
	}
	v, err := build()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("asset %q: %w", name, err)
	}

	c.mu.Lock()
	if idx, ok := c.pager.Get(name); ok {
		// another caller built it while we were building
		existing := c.slots[idx].value
		c.mu.Unlock()
		return existing, nil
	}
	c.putLocked(name, v)
	c.mu.Unlock()

	if err := c.persist(name, v); err != nil {
		log.Printf("[Assets] Warning: %v", err)
	}
	return v, nil
}

func (c *cache[T]) Get(name string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.pager.Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	return c.slots[idx].value, true
}

func (c *cache[T]) Save(name string, artifact T) error {
	c.put(name, artifact)
	return c.persist(name, artifact)
}

func (c *cache[T]) ForceReload(name string, build BuildFunc[T]) (T, error) {
	var zero T
	if build == nil {
		return zero, fmt.Errorf("asset %q: %w", name, ErrNoBuilder)
	}
	v, err := build()
	if err != nil {
		return zero, fmt.Errorf("asset %q: %w", name, err)
	}
	if err := c.Save(name, v); err != nil {
		return v, err
	}
	return v, nil
}

func (c *cache[T]) Remove(name string) error {
	c.mu.Lock()
	if idx, ok := c.pager.Get(name); ok {
		c.slots[idx] = cacheSlot[T]{}
		c.pager.Remove(name)
	}
	c.mu.Unlock()

	if !c.persistent() {
		return nil
	}
	key := Key(name)
	if !c.storage.ObjectPropExists(key, payloadProp) {
		return nil
	}
	// an empty payload marks the artifact as removed
	if err := c.storage.SaveObjectProp(key, payloadProp, nil); err != nil {
		return fmt.Errorf("asset %q: clear persisted copy: %w", name, err)
	}
	return nil
}

func (c *cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.Len()
}

func (c *cache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.pager.Len())
	for _, s := range c.slots {
		if s.name != "" && c.pager.Contains(s.name) {
			keys = append(keys, s.name)
		}
	}
	slices.Sort(keys)
	return keys
}

func (c *cache[T]) put(name string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(name, v)
}

func (c *cache[T]) putLocked(name string, v T) {
	idx, evicted, ok := c.pager.Add(name)
	if ok {
		log.Printf("[Assets] evicted %q from memory", evicted)
	}
	c.slots[idx] = cacheSlot[T]{name: name, value: v}
}

func (c *cache[T]) persistent() bool {
	return c.storage != nil && c.codec != nil
}

func (c *cache[T]) persist(name string, v T) error {
	if !c.persistent() {
		return nil
	}
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("asset %q: encode: %w", name, err)
	}
	meta, err := yaml.Marshal(assetMeta{Name: name, Type: c.typeName})
	if err != nil {
		return fmt.Errorf("asset %q: encode meta: %w", name, err)
	}

	key := Key(name)
	if err := c.storage.SaveObjectProp(key, payloadProp, data); err != nil {
		return fmt.Errorf("asset %q: save payload: %w", name, err)
	}
	if err := c.storage.SaveObjectProp(key, metaProp, meta); err != nil {
		return fmt.Errorf("asset %q: save meta: %w", name, err)
	}
	return nil
}

func (c *cache[T]) loadPersisted(name string) (T, bool) {
	var zero T
	if !c.persistent() {
		return zero, false
	}
	key := Key(name)
	if !c.storage.ObjectPropExists(key, payloadProp) {
		return zero, false
	}

	data, err := c.storage.LoadObjectProp(key, payloadProp)
	if err != nil {
		log.Printf("[Assets] Warning: failed to read %q: %v", name, err)
		return zero, false
	}
	if len(data) == 0 {
		return zero, false
	}

	if metaData, err := c.storage.LoadObjectProp(key, metaProp); err == nil {
		var meta assetMeta
		if err := yaml.Unmarshal(metaData, &meta); err == nil && (meta.Name != name || meta.Type != c.typeName) {
			log.Printf("[Assets] Warning: key %s holds %s %q, not %s %q", key, meta.Type, meta.Name, c.typeName, name)
			return zero, false
		}
	}

	v, err := c.codec.Decode(data)
	if err != nil {
		log.Printf("[Assets] Warning: failed to decode %q, rebuilding: %v", name, err)
		return zero, false
	}
	log.Printf("[Assets] loaded %q from disk", name)
	return v, true
}

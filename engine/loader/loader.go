package loader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/assets"
	"github.com/quasilyte/gdata/v2"
)

// ErrUnsupportedFormat is returned for a model path whose extension no backend reads.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// DefaultSampleRate is the rate glTF animations are resampled at when none is configured.
const DefaultSampleRate = 30

// Format identifies the encoding of a model stream.
type Format int

const (
	// FormatDescriptor is a YAML model descriptor.
	FormatDescriptor Format = iota

	// FormatGLTF is glTF 2.0 JSON.
	FormatGLTF

	// FormatGLB is binary glTF.
	FormatGLB
)

// loader is the implementation of the Loader interface.
type loader struct {
	sampleRate float32
	capacity   int
	storage    *gdata.Manager
	preloaded  map[string]AnimationSource

	cache assets.Cache[AnimationSource]

	descriptor loaderBackend
	gltf       loaderBackend
}

// Loader reads model files into AnimationSources and caches them by path and animation index.
// YAML descriptors (.yaml, .yml) and glTF (.gltf, .glb) are supported. With gdata storage,
// parsed sources are persisted as descriptors so later runs skip parsing.
//
// A Loader is safe for concurrent use.
type Loader interface {
	// Load reads the first animation of a model file, or returns the cached source.
	//
	// Parameters:
	//   - path: the model file path
	//
	// Returns:
	//   - AnimationSource: the source
	//   - error: error naming the model if it cannot be read
	Load(path string) (AnimationSource, error)

	// LoadAnimation reads the animation at index from a model file, or returns the cached source.
	//
	// Parameters:
	//   - path: the model file path
	//   - index: the animation index within the file
	//
	// Returns:
	//   - AnimationSource: the source
	//   - error: error naming the model if it cannot be read
	LoadAnimation(path string, index int) (AnimationSource, error)

	// LoadReader reads a model from a stream and caches it under name.
	//
	// Parameters:
	//   - name: the cache key and asset name used in errors
	//   - r: the reader providing the model
	//   - format: the stream's encoding
	//
	// Returns:
	//   - AnimationSource: the source
	//   - error: error if the stream cannot be decoded
	LoadReader(name string, r io.Reader, format Format) (AnimationSource, error)

	// Get returns a cached source without loading.
	//
	// Parameters:
	//   - path: the model file path
	//
	// Returns:
	//   - AnimationSource: the cached source
	//   - bool: false if the source is not cached
	Get(path string) (AnimationSource, bool)

	// Sources returns the cache keys of every source held in memory.
	//
	// Returns:
	//   - []string: the cache keys, sorted
	Sources() []string
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the provided options.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		sampleRate: DefaultSampleRate,
		capacity:   assets.DefaultCapacity,
		preloaded:  make(map[string]AnimationSource),
	}
	for _, option := range options {
		option(l)
	}
	if l.sampleRate <= 0 {
		l.sampleRate = DefaultSampleRate
	}

	l.descriptor = descriptorLoaderBackend{}
	l.gltf = newGLTFLoaderBackend(l.sampleRate)
	l.cache = assets.NewCache(
		assets.WithCapacity[AnimationSource](l.capacity),
		assets.WithStorage[AnimationSource](l.storage),
		assets.WithCodec[AnimationSource](sourceCodec{}),
		assets.WithTypeName[AnimationSource]("model"),
	)
	for key, src := range l.preloaded {
		if err := l.cache.Save(key, src); err != nil {
			log.Printf("[Loader] Warning: %v", err)
		}
	}
	return l
}

func (l *loader) Load(path string) (AnimationSource, error) {
	return l.LoadAnimation(path, 0)
}

func (l *loader) LoadAnimation(path string, index int) (AnimationSource, error) {
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}
	return l.cache.GetOrBuild(cacheKey(path, index), func() (AnimationSource, error) {
		return backend.Load(path, index)
	})
}

func (l *loader) LoadReader(name string, r io.Reader, format Format) (AnimationSource, error) {
	var backend loaderBackend
	switch format {
	case FormatDescriptor:
		backend = l.descriptor
	case FormatGLTF, FormatGLB:
		backend = l.gltf
	default:
		return nil, fmt.Errorf("model %q: %w", name, ErrUnsupportedFormat)
	}
	return l.cache.GetOrBuild(cacheKey(name, 0), func() (AnimationSource, error) {
		return backend.LoadReader(name, r, format == FormatGLB, 0)
	})
}

func (l *loader) Get(path string) (AnimationSource, bool) {
	return l.cache.Get(cacheKey(path, 0))
}

func (l *loader) Sources() []string {
	return l.cache.Keys()
}

func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return l.descriptor, nil
	case ".gltf", ".glb":
		return l.gltf, nil
	case ".fbx":
		return nil, fmt.Errorf("model %q: %w: convert FBX files to glTF or a YAML descriptor (set origin to keep the unit scale)", path, ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("model %q: %w", path, ErrUnsupportedFormat)
	}
}

func cacheKey(path string, index int) string {
	if index == 0 {
		return path
	}
	return fmt.Sprintf("%s#%d", path, index)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", path, err)
	}
	return data, nil
}

// sourceCodec persists any source as a YAML descriptor.
type sourceCodec struct{}

func (sourceCodec) Encode(src AnimationSource) ([]byte, error) {
	return assets.YAMLCodec[*Descriptor]{}.Encode(DescriptorOf("", src))
}

func (sourceCodec) Decode(data []byte) (AnimationSource, error) {
	return parseSource(data, "cached model")
}

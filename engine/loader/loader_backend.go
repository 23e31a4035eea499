package loader

import (
	"fmt"
	"io"
)

// loaderBackend reads one file format into an AnimationSource.
type loaderBackend interface {
	// Load reads the file at path, selecting the animation at animIndex.
	//
	// Parameters:
	//   - path: the file path to load
	//   - animIndex: the animation to extract when the file holds several
	//
	// Returns:
	//   - AnimationSource: the loaded source
	//   - error: error if loading fails
	Load(path string, animIndex int) (AnimationSource, error)

	// LoadReader reads a source from a stream.
	//
	// Parameters:
	//   - name: the asset name used in errors
	//   - r: the reader providing the data
	//   - binary: true for binary containers such as GLB
	//   - animIndex: the animation to extract when the stream holds several
	//
	// Returns:
	//   - AnimationSource: the loaded source
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, binary bool, animIndex int) (AnimationSource, error)
}

// descriptorLoaderBackend reads YAML model descriptors.
type descriptorLoaderBackend struct{}

var _ loaderBackend = descriptorLoaderBackend{}

func (descriptorLoaderBackend) Load(path string, animIndex int) (AnimationSource, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return parseSource(data, path)
}

func (descriptorLoaderBackend) LoadReader(name string, r io.Reader, _ bool, _ int) (AnimationSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return parseSource(data, name)
}

func parseSource(data []byte, name string) (AnimationSource, error) {
	d, err := ParseDescriptor(data, name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

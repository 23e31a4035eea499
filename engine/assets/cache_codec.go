package assets

import (
	"gopkg.in/yaml.v3"
)

// Codec converts cached artifacts to and from their persisted form.
type Codec[T any] interface {
	// Encode serializes an artifact.
	//
	// Parameters:
	//   - v: the artifact
	//
	// Returns:
	//   - []byte: the encoded payload
	//   - error: error if the artifact cannot be encoded
	Encode(v T) ([]byte, error)

	// Decode rebuilds an artifact from a payload produced by Encode.
	//
	// Parameters:
	//   - data: the encoded payload
	//
	// Returns:
	//   - T: the artifact
	//   - error: error if the payload is malformed
	Decode(data []byte) (T, error)
}

// YAMLCodec persists plain data artifacts as YAML documents.
type YAMLCodec[T any] struct{}

// Encode marshals v as YAML.
func (YAMLCodec[T]) Encode(v T) ([]byte, error) {
	return yaml.Marshal(v)
}

// Decode unmarshals a YAML document into a new T.
func (YAMLCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := yaml.Unmarshal(data, &v)
	return v, err
}

// assetMeta is stored next to every persisted payload.
type assetMeta struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

package scene

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoModel is returned for a scene entity without a model path.
var ErrNoModel = errors.New("scene entity has no model")

// Config is a scene file: the entities to spawn and how they animate.
//
//	name: courtyard
//	seed: 7
//	entities:
//	  - name: hero
//	    model: hero.glb
//	    position: [0, 0, 0]
//	    actions: [walk.action.yaml, turn.action.yaml]
//	  - name: fountain
//	    model: fountain.yaml
type Config struct {
	Name     string         `yaml:"name,omitempty"`
	Seed     *uint64        `yaml:"seed,omitempty"`
	Entities []EntityConfig `yaml:"entities"`
}

// EntityConfig describes one entity of a scene. Entities with actions, or with animate set,
// load their model synchronously and play their actions; the others are decorative and load
// in the background.
type EntityConfig struct {
	Name     string     `yaml:"name,omitempty"`
	Model    string     `yaml:"model"`
	Position [3]float32 `yaml:"position,omitempty,flow"`
	Angle    float32    `yaml:"angle,omitempty"`
	Scale    float32    `yaml:"scale,omitempty"`
	Follow   *bool      `yaml:"follow,omitempty"`
	Animate  bool       `yaml:"animate,omitempty"`
	Actions  []string   `yaml:"actions,omitempty"`
}

// Animated reports whether the entity plays actions.
func (c EntityConfig) Animated() bool {
	return c.Animate || len(c.Actions) > 0
}

// LoadConfig reads a scene file. Model and action paths are resolved against the file's directory.
//
// Parameters:
//   - path: the scene file path
//
// Returns:
//   - Config: the scene configuration
//   - error: error naming the file if it cannot be read or is invalid
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scene %q: %w", path, err)
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return Config{}, err
	}

	dir := filepath.Dir(path)
	for i := range cfg.Entities {
		e := &cfg.Entities[i]
		e.Model = resolve(dir, e.Model)
		for j := range e.Actions {
			e.Actions[j] = resolve(dir, e.Actions[j])
		}
	}
	return cfg, nil
}

// ParseConfig decodes and validates a scene document. Unknown fields are rejected.
//
// Parameters:
//   - data: the YAML document
//   - name: the file name used in errors
//
// Returns:
//   - Config: the scene configuration
//   - error: error if the document is malformed or an entity has no model
func ParseConfig(data []byte, name string) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("scene %q: %w", name, err)
	}
	for i := range cfg.Entities {
		e := &cfg.Entities[i]
		if e.Model == "" {
			return Config{}, fmt.Errorf("scene %q: entity %d: %w", name, i, ErrNoModel)
		}
		if e.Name == "" {
			e.Name = fmt.Sprintf("entity_%d", i)
		}
		if e.Scale < 0 {
			return Config{}, fmt.Errorf("scene %q: entity %q: scale must not be negative", name, e.Name)
		}
	}
	return cfg, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/mohitkumar/promptflow/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]Schema),
	}
}

// NewBuiltinRegistry returns a registry holding the schemas shipped with the binary.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, s := range builtinSchemas() {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds or replaces a schema.
func (r *Registry) Register(s Schema) error {
	if err := s.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = s
	return nil
}

func (r *Registry) Get(name string) (Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return Schema{}, &UnknownSchemaError{Name: name}
	}
	return s, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// members returns the fields of an object field, resolving a schema reference.
func (r *Registry) members(f Field) ([]Field, error) {
	if len(f.Fields) > 0 {
		return f.Fields, nil
	}
	nested, err := r.Get(f.Schema)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return nested.Fields, nil
}

type schemaFile struct {
	Schemas []Schema `yaml:"schemas"`
}

// LoadFile registers every schema listed in a YAML (or JSON) file under a top level
// "schemas" key. References between schemas are checked after all are registered.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema file %s: %w", path, err)
	}
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	for _, s := range file.Schemas {
		if err := r.Register(s); err != nil {
			return fmt.Errorf("schema file %s: %w", path, err)
		}
	}
	for _, s := range file.Schemas {
		if _, err := r.describe(s); err != nil {
			return fmt.Errorf("schema file %s: schema %s: %w", path, s.Name, err)
		}
	}
	logger.Info("loaded schemas", zap.String("file", path), zap.Int("count", len(file.Schemas)))
	return nil
}

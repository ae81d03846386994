package schema

import (
	"embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// ErrUnknownSchema is returned when a schema name is not registered.
// It is a configuration error and is never retried.
var ErrUnknownSchema = errors.New("unknown schema")

// builtin lists the schema descriptors shipped with the binary.
// Each name maps to an embedded schemas/<name>.yaml file.
var builtin = []string{
	"entity_profile",
	"indemnification_clause",
	"obligation",
}

// Registry holds loaded schema descriptors by name.
type Registry struct {
	descriptors map[string]*SchemaDescriptor
}

// Load parses all embedded descriptors and verifies that each one renders to
// a compilable JSON Schema, so malformed descriptors fail at startup rather
// than mid-extraction.
func Load() (*Registry, error) {
	r := &Registry{descriptors: make(map[string]*SchemaDescriptor, len(builtin))}

	for _, name := range builtin {
		content, err := schemaFS.ReadFile(fmt.Sprintf("schemas/%s.yaml", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}

		var desc SchemaDescriptor
		if err := yaml.Unmarshal(content, &desc); err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", name, err)
		}
		if desc.Name != name {
			return nil, fmt.Errorf("schema %s declares mismatched name %q", name, desc.Name)
		}
		if len(desc.Fields) == 0 {
			return nil, fmt.Errorf("schema %s declares no fields", name)
		}

		if err := compileCheck(&desc); err != nil {
			return nil, fmt.Errorf("schema %s does not compile: %w", name, err)
		}

		r.descriptors[name] = &desc
	}

	return r, nil
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*SchemaDescriptor, error) {
	desc, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return desc, nil
}

// Names returns all registered schema names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

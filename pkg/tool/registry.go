package tool

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

var validParamTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"object": true, "array": true, "integer": true,
}

// Registry holds all tool specs for the lifetime of the process. Registration
// happens once at startup; after that the registry is read-only and safe for
// concurrent lookup without locking.
type Registry struct {
	tools   map[string]*Spec
	schemas map[string]*gojsonschema.Schema
	order   []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Spec),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register validates and inserts a spec. It fails with DuplicateToolError if
// the name is taken, leaving the registry unchanged.
func (r *Registry) Register(spec Spec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}

	if _, exists := r.tools[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}

	schema, err := compileSchema(spec)
	if err != nil {
		return &InvalidSpecError{Name: spec.Name, Reason: fmt.Sprintf("schema compilation failed: %v", err)}
	}

	r.tools[spec.Name] = &spec
	r.schemas[spec.Name] = schema
	r.order = append(r.order, spec.Name)

	log.Debug().Str("tool", spec.Name).Str("category", string(spec.Category)).Msg("Tool registered")

	return nil
}

// Get returns the spec for name or fails with UnknownToolError.
func (r *Registry) Get(name string) (*Spec, error) {
	spec, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return spec, nil
}

// List returns specs in registration order, optionally filtered by category.
// An empty category matches everything.
func (r *Registry) List(category Category) []*Spec {
	specs := make([]*Spec, 0, len(r.order))
	for _, name := range r.order {
		spec := r.tools[name]
		if category != "" && spec.Category != category {
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// Summaries returns the provider-facing view of every tool, in registration
// order.
func (r *Registry) Summaries() []Summary {
	summaries := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		summaries = append(summaries, r.tools[name].Summary())
	}
	return summaries
}

// ByCategory groups specs by category, preserving registration order within
// each group.
func (r *Registry) ByCategory() map[Category][]*Spec {
	groups := make(map[Category][]*Spec)
	for _, name := range r.order {
		spec := r.tools[name]
		groups[spec.Category] = append(groups[spec.Category], spec)
	}
	return groups
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) schema(name string) *gojsonschema.Schema {
	return r.schemas[name]
}

func validateSpec(spec Spec) error {
	if spec.Name == "" {
		return &InvalidSpecError{Reason: "name cannot be empty"}
	}
	if spec.Description == "" {
		return &InvalidSpecError{Name: spec.Name, Reason: "description cannot be empty"}
	}
	if spec.Handler == nil {
		return &InvalidSpecError{Name: spec.Name, Reason: "handler cannot be nil"}
	}
	if spec.Category != "" && !IsValidCategory(string(spec.Category)) {
		return &InvalidSpecError{Name: spec.Name, Reason: fmt.Sprintf("invalid category %q", spec.Category)}
	}

	seen := make(map[string]bool, len(spec.Params))
	for _, param := range spec.Params {
		if param.Name == "" {
			return &InvalidSpecError{Name: spec.Name, Reason: "parameter name cannot be empty"}
		}
		if seen[param.Name] {
			return &InvalidSpecError{Name: spec.Name, Reason: fmt.Sprintf("duplicate parameter %q", param.Name)}
		}
		seen[param.Name] = true
		if !validParamTypes[param.Type] {
			return &InvalidSpecError{Name: spec.Name, Reason: fmt.Sprintf("invalid type %q for parameter %q", param.Type, param.Name)}
		}
	}
	return nil
}

func compileSchema(spec Spec) (*gojsonschema.Schema, error) {
	loader := gojsonschema.NewGoLoader(spec.inputSchema())
	return gojsonschema.NewSchema(loader)
}

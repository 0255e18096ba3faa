package tool

import (
	"fmt"
	"regexp"
	"sync"
)

// nameFormat is the Registry's name-format rule (spec.md §4.4
// "Registration validates name format (lowercase kebab-case
// segments)"): one or more lowercase-alphanumeric segments joined by
// single hyphens, e.g. "read", "web-fetch", "todo-create".
var nameFormat = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ErrInvalidName is returned by Register when a tool's name fails the
// kebab-case format rule.
type ErrInvalidName struct{ Name string }

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("tool: invalid name %q: must be lowercase kebab-case", e.Name)
}

// Registry holds tool descriptors keyed by name, mapping a requested
// name to its callable (spec.md §4.4).
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	schema map[string]*compiledSchema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		schema: make(map[string]*compiledSchema),
	}
}

// Register adds t to the registry, compiling its declared schema once.
// It panics on a malformed name or an uncompilable schema: both are
// programmer errors caught at startup wiring, not at dispatch time.
func (r *Registry) Register(t Tool) {
	name := t.Name()
	if !nameFormat.MatchString(name) {
		panic(ErrInvalidName{Name: name})
	}

	cs, err := compileSchema(name, t.Schema())
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	r.schema[name] = cs
}

// Get retrieves a tool descriptor by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Validate validates args against name's compiled schema. Returns an
// error describing the mismatch; the Orchestrator turns that into a
// structured validation_error result rather than executing the tool
// (spec.md §4.5 "Validation").
func (r *Registry) Validate(name string, args map[string]any) error {
	r.mu.RLock()
	cs, ok := r.schema[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	return cs.Validate(args)
}

// List returns every registered tool name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Descriptors returns every registered tool's schema/confirmation/
// visibility descriptor, for building the tool_schemas payload handed
// to the LLM transport (spec.md §6).
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for name, t := range r.tools {
		var description string
		if d, ok := t.(Describable); ok {
			description = d.Description()
		}
		out = append(out, Descriptor{
			Name:                 name,
			Description:          description,
			Schema:               t.Schema(),
			RequiresConfirmation: t.RequiresConfirmation(),
			IsTransparentWrapper: t.IsTransparentWrapper(),
			VisibleInChat:        t.VisibleInChat(),
			Sensitivity:          t.Sensitivity(),
		})
	}
	return out
}

// Descriptor is the read-only view of a registered tool an LLM
// transport or UI needs, without the executable itself.
type Descriptor struct {
	Name                 string
	Description          string
	Schema               map[string]any
	RequiresConfirmation bool
	IsTransparentWrapper bool
	VisibleInChat        bool
	Sensitivity          Sensitivity
}

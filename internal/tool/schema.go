package tool

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchema caches the compiled form of a Tool's declared Schema so
// repeated dispatches do not recompile it per call.
type compiledSchema struct {
	schema *jsonschema.Schema
}

func compileSchema(name string, raw map[string]any) (*compiledSchema, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	// jsonschema/v6 compiles from a resource it owns; round-trip through
	// JSON so callers can build Schema() with plain map literals.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema for %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	resourceID := "tool://" + name
	if err := c.AddResource(resourceID, doc); err != nil {
		return nil, fmt.Errorf("add schema resource for %s: %w", name, err)
	}
	s, err := c.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", name, err)
	}
	return &compiledSchema{schema: s}, nil
}

// Validate reports a descriptive error if args does not conform to the
// compiled schema. A nil compiledSchema (tool declared no schema) always
// passes.
func (cs *compiledSchema) Validate(args map[string]any) error {
	if cs == nil || cs.schema == nil {
		return nil
	}
	// jsonschema/v6 validates native Go values produced by
	// encoding/json-style unmarshaling; args may hold other Go types
	// (e.g. int), so it is round-tripped into that shape first.
	if err := cs.schema.Validate(toJSONValue(args)); err != nil {
		return err
	}
	return nil
}

// toJSONValue round-trips args through JSON so numeric types match what
// encoding/json would have produced (jsonschema/v6 expects json.Number
// or float64, not e.g. int).
func toJSONValue(args map[string]any) any {
	buf, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(buf, &v); err != nil {
		return args
	}
	return v
}

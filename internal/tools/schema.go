package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// props maps property names to their schemas.
type props = map[string]*jsonschema.Schema

func object(required []string, properties props) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: properties, Required: required}
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func enumProp(desc, def string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	s := &jsonschema.Schema{Type: "string", Description: desc, Enum: enum}
	if def != "" {
		s.Default = mustRaw(def)
	}
	return s
}

func intProp(desc string, def int, lo, hi float64) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: desc,
		Default:     mustRaw(def),
		Minimum:     &lo,
		Maximum:     &hi,
	}
}

func boolProp(desc string, def bool) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc, Default: mustRaw(def)}
}

func objectProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: desc}
}

func stringListProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
}

// stringOrListProp accepts a single address or a list of them.
func stringOrListProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: desc,
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
	}
}

func mustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

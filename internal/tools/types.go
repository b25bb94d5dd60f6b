// Package tools defines the business tools, the registry that names them and
// the dispatcher every transport calls through.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is one named operation a client can invoke. Execute returns the
// success payload, or an error; a *result.Error keeps its kind, anything else
// is reported as a handler error.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Execute     func(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Descriptor is the advertised shape of a tool.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

func (t Tool) Descriptor() Descriptor {
	return Descriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
}

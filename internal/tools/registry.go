package tools

import "fmt"

// Registry holds the tool set in registration order. It is built once at
// startup and read-only afterwards.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry panics on an unnamed tool, a tool without a handler, or a
// duplicate name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if t.Name == "" || t.Execute == nil {
			panic(fmt.Sprintf("tools: invalid tool %q", t.Name))
		}
		if _, dup := r.index[t.Name]; dup {
			panic("tools: duplicate tool " + t.Name)
		}
		r.index[t.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r
}

// List returns the descriptors in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Descriptor()
	}
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Name
	}
	return out
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

package models

// ToolCallRequest for POST /tools/call
type ToolCallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// AgentRequest for POST /agent
type AgentRequest struct {
	Prompt        string   `json:"prompt"`
	Tools         []string `json:"tools,omitempty"`
	MaxIterations int      `json:"max_iterations"`
	Timeout       int      `json:"timeout"` // seconds
}

// SetDefaults clamps the request against the server limits.
func (r *AgentRequest) SetDefaults(maxIterations, timeout int) {
	if r.MaxIterations <= 0 || r.MaxIterations > maxIterations {
		r.MaxIterations = maxIterations
	}
	if r.Timeout <= 0 || r.Timeout > timeout {
		r.Timeout = timeout
	}
	if r.Timeout < 10 {
		r.Timeout = 10
	}
}

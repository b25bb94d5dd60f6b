package models

import "github.com/toolrelay/toolrelay/internal/tools"

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string `json:"status"`
}

// ToolsResponse is returned by GET /tools
type ToolsResponse struct {
	Tools []tools.Descriptor `json:"tools"`
	Count int                `json:"count"`
}

// AgentStep records one tool invocation made by the agent.
type AgentStep struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Success   bool           `json:"success"`
	ErrorKind string         `json:"error_kind,omitempty"`
}

// AgentResponse is returned by POST /agent
type AgentResponse struct {
	Success    bool        `json:"success"`
	RunID      string      `json:"run_id"`
	Prompt     string      `json:"prompt"`
	Answer     string      `json:"answer"`
	Steps      []AgentStep `json:"steps"`
	Iterations int         `json:"iterations"`
	StopReason string      `json:"stop_reason"`
	Model      string      `json:"model"`
	DurationMs int64       `json:"duration_ms"`
}

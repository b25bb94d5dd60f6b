// Package mcpserver exposes the tool registry as an MCP server built on the
// official MCP Go SDK. Every registered tool becomes one MCP tool whose
// handler goes through the shared dispatcher, so stdio callers get the same
// validation, redaction and audit trail as HTTP callers.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// DefaultName is the implementation name reported during initialize.
const DefaultName = "toolrelay"

// Server wraps an SDK server bound to one dispatcher.
type Server struct {
	dispatcher *tools.Dispatcher
	caller     string
	server     *mcp.Server
}

// New registers every tool of d. caller is recorded as the audit identity of
// every tool call.
func New(d *tools.Dispatcher, name, version, caller string) *Server {
	if name == "" {
		name = DefaultName
	}
	s := &Server{
		dispatcher: d,
		caller:     caller,
		server:     mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
	for _, desc := range d.List() {
		schema := desc.InputSchema
		if schema == nil {
			schema = &jsonschema.Schema{Type: "object"}
		}
		s.server.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: schema,
		}, s.handle(desc.Name))
	}
	return s
}

// Run serves one session over t until the peer disconnects or ctx is done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	log.Info().Int("tools", len(s.dispatcher.List())).Str("caller", s.caller).Msg("MCP server ready")
	err := s.server.Run(ctx, t)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("mcp session: %w", err)
}

// Connect starts a session over t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) handle(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return toolResult(result.Failure(name, result.InvalidArgument("arguments must be a JSON object")))
			}
		}
		return toolResult(s.dispatcher.Call(tools.WithCaller(ctx, s.caller), name, args))
	}
}

// toolResult carries the envelope as a single text block. Tool failures are
// results with IsError set, not protocol errors.
func toolResult(res result.Result) (*mcp.CallToolResult, error) {
	text, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		IsError: !res.OK(),
	}, nil
}

package mcpserver_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toolrelay/toolrelay/internal/mcpserver"
	"github.com/toolrelay/toolrelay/internal/tools"
)

func echoDispatcher(seen *string) *tools.Dispatcher {
	reg := tools.NewRegistry(tools.Tool{
		Name:        "echo",
		Description: "Returns a fixed payload",
		InputSchema: &jsonschema.Schema{Type: "object"},
		Execute: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			if seen != nil {
				*seen = tools.Caller(ctx)
			}
			return map[string]any{"x": 1}, nil
		},
	})
	return tools.NewDispatcher(reg)
}

// connect runs a server and a client over in-memory transports.
func connect(t *testing.T, d *tools.Dispatcher) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()

	ss, err := mcpserver.New(d, "", "test", "stdio").Connect(ctx, st)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	cs, err := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil).Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestInitializeHandshake(t *testing.T) {
	cs := connect(t, echoDispatcher(nil))

	init := cs.InitializeResult()
	if init == nil || init.ServerInfo == nil {
		t.Fatal("no initialize result")
	}
	if init.ServerInfo.Name != mcpserver.DefaultName || init.ServerInfo.Version != "test" {
		t.Errorf("server info = %+v", init.ServerInfo)
	}
	if init.Capabilities == nil || init.Capabilities.Tools == nil {
		t.Error("tools capability missing")
	}
	if err := cs.Ping(context.Background(), nil); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestToolsList(t *testing.T) {
	cs := connect(t, echoDispatcher(nil))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "echo" || res.Tools[0].InputSchema == nil {
		t.Errorf("tools = %+v", res.Tools)
	}
	if res.Tools[0].Description != "Returns a fixed payload" {
		t.Errorf("description = %q", res.Tools[0].Description)
	}
}

func envelope(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] = %T, want text", res.Content[0])
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
		t.Fatal(err)
	}
	return got
}

func TestToolsCall(t *testing.T) {
	tests := []struct {
		name     string
		args     any
		wantErr  bool
		wantText map[string]any
	}{
		{
			name:     "envelope",
			args:     map[string]any{},
			wantText: map[string]any{"success": true, "x": float64(1)},
		},
		{
			name:     "no arguments",
			wantText: map[string]any{"success": true, "x": float64(1)},
		},
		{
			name:    "arguments not an object",
			args:    []int{1},
			wantErr: true,
			wantText: map[string]any{
				"success": false, "tool": "echo", "error_kind": "invalid_argument",
				"error": "arguments must be a JSON object",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := connect(t, echoDispatcher(nil))
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "echo", Arguments: tt.args})
			if err != nil {
				t.Fatalf("CallTool: %v", err)
			}
			if res.IsError != tt.wantErr {
				t.Errorf("IsError = %v, want %v", res.IsError, tt.wantErr)
			}
			got := envelope(t, res)
			for k, v := range tt.wantText {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestToolsCallRecordsCaller(t *testing.T) {
	var seen string
	cs := connect(t, echoDispatcher(&seen))

	if _, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{}}); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if seen != "stdio" {
		t.Errorf("caller = %q, want stdio", seen)
	}
}

func TestUnknownToolIsProtocolError(t *testing.T) {
	cs := connect(t, echoDispatcher(nil))

	if _, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "nope", Arguments: map[string]any{}}); err == nil {
		t.Error("expected an error for an unregistered tool")
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/models"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// maxBodyBytes caps a tool call request body.
const maxBodyBytes = 1 << 20

const invalidBody = "Invalid or missing JSON body"

// ToolsHandler exposes the dispatcher over HTTP.
type ToolsHandler struct {
	dispatcher *tools.Dispatcher
}

func NewToolsHandler(d *tools.Dispatcher) *ToolsHandler {
	return &ToolsHandler{dispatcher: d}
}

// List handles GET /tools
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	descs := h.dispatcher.List()
	models.WriteJSON(w, http.StatusOK, models.ToolsResponse{Tools: descs, Count: len(descs)})
}

// Tool returns the handler for POST /{name}; the body is the argument object.
func (h *ToolsHandler) Tool(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input map[string]any
		if err := decodeObject(w, r, &input); err != nil {
			models.WriteEndpointError(w, http.StatusBadRequest, invalidBody, r.URL.Path)
			return
		}
		h.write(w, r, name, input)
	}
}

// Call handles POST /tools/call with {"name", "arguments"}.
func (h *ToolsHandler) Call(w http.ResponseWriter, r *http.Request) {
	var req models.ToolCallRequest
	if err := decodeObject(w, r, &req); err != nil {
		models.WriteEndpointError(w, http.StatusBadRequest, invalidBody, r.URL.Path)
		return
	}
	if req.Name == "" {
		models.WriteEndpointError(w, http.StatusBadRequest, "name is required", r.URL.Path)
		return
	}
	h.write(w, r, req.Name, req.Arguments)
}

func (h *ToolsHandler) write(w http.ResponseWriter, r *http.Request, name string, input map[string]any) {
	ctx := tools.WithCaller(r.Context(), middleware.APIKey(r.Context()))
	res := h.dispatcher.Call(ctx, name, input)
	models.WriteJSON(w, StatusFor(res), res)
}

// StatusFor maps a tool result to its HTTP status. Failures the caller or a
// provider caused are 400; handler bugs are 500.
func StatusFor(res result.Result) int {
	switch {
	case res.OK():
		return http.StatusOK
	case res.Err().Kind.ClientCaused():
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errNotObject = errors.New("body is not a JSON object")

// decodeObject reads a single JSON object from the request body.
func decodeObject(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(body, v)
}

// Names lists the tools that get a POST /{name} route.
func (h *ToolsHandler) Names() []string {
	return h.dispatcher.Registry().Names()
}

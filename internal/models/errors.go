package models

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the failure envelope for errors raised by the HTTP layer
// itself rather than by a tool.
type ErrorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Endpoint string `json:"endpoint,omitempty"`
}

func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, ErrorResponse{Error: message})
}

// WriteEndpointError is WriteError naming the route that failed.
func WriteEndpointError(w http.ResponseWriter, code int, message, endpoint string) {
	WriteJSON(w, code, ErrorResponse{Error: message, Endpoint: endpoint})
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(data, '\n'))
}

package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/agent"
	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/models"
)

// AgentHandler handles POST /agent
type AgentHandler struct {
	agent         *agent.Agent
	maxIterations int
	timeout       int
}

func NewAgentHandler(a *agent.Agent, maxIterations, timeout int) *AgentHandler {
	return &AgentHandler{agent: a, maxIterations: maxIterations, timeout: timeout}
}

func (h *AgentHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req models.AgentRequest
	if err := decodeObject(w, r, &req); err != nil {
		models.WriteEndpointError(w, http.StatusBadRequest, invalidBody, r.URL.Path)
		return
	}
	if req.Prompt == "" {
		models.WriteEndpointError(w, http.StatusBadRequest, "prompt is required", r.URL.Path)
		return
	}
	req.SetDefaults(h.maxIterations, h.timeout)

	resp, err := h.agent.Run(r.Context(), &req, middleware.APIKey(r.Context()))
	if err != nil {
		var rejected *agent.RejectedError
		var llmErr *agent.LLMError
		switch {
		case errors.As(err, &rejected):
			log.Warn().Str("reason", rejected.Reason).Msg("Agent request rejected")
			models.WriteEndpointError(w, http.StatusBadRequest, rejected.Reason, r.URL.Path)
		case errors.As(err, &llmErr):
			log.Error().Err(err).Str("run_id", resp.RunID).Msg("Agent model call failed")
			models.WriteEndpointError(w, http.StatusBadGateway, err.Error(), r.URL.Path)
		default:
			log.Error().Err(err).Str("run_id", resp.RunID).Msg("Agent run failed")
			models.WriteEndpointError(w, http.StatusInternalServerError, err.Error(), r.URL.Path)
		}
		return
	}
	models.WriteJSON(w, http.StatusOK, resp)
}

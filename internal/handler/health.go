package handler

import (
	"net/http"

	"github.com/toolrelay/toolrelay/internal/health"
	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/models"
	"github.com/toolrelay/toolrelay/internal/provider"
)

// HealthHandler serves liveness and provider status.
type HealthHandler struct {
	bindings        []provider.Binding
	prober          *health.Prober
	refreshNeedsKey bool
}

// NewHealthHandler serves provider status. With refreshNeedsKey set, only
// callers holding a valid API key may trigger live checks; everyone else
// gets the last scheduled results.
func NewHealthHandler(bindings []provider.Binding, prober *health.Prober, refreshNeedsKey bool) *HealthHandler {
	return &HealthHandler{bindings: bindings, prober: prober, refreshNeedsKey: refreshNeedsKey}
}

// Health handles GET and POST /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}

type providersResponse struct {
	Status    string             `json:"status"`
	Providers []provider.Binding `json:"providers"`
	Probes    []health.Probe     `json:"probes"`
}

// Providers handles GET /health/providers. ?refresh=1 checks now instead of
// returning the last scheduled results.
func (h *HealthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	var probes []health.Probe
	if h.prober != nil {
		refresh := r.URL.Query().Get("refresh") != ""
		if refresh && h.refreshNeedsKey && middleware.APIKey(r.Context()) == "" {
			refresh = false
		}
		if refresh {
			probes = h.prober.Run(r.Context())
		} else {
			probes = h.prober.Last()
		}
	}
	if probes == nil {
		probes = []health.Probe{}
	}

	status := "ok"
	for _, p := range probes {
		if p.Status != "ok" {
			status = "degraded"
		}
	}
	for _, b := range h.bindings {
		if b.Error != "" {
			status = "degraded"
		}
	}

	models.WriteJSON(w, http.StatusOK, providersResponse{Status: status, Providers: h.bindings, Probes: probes})
}

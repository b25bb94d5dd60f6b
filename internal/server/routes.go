package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/handler"
	"github.com/toolrelay/toolrelay/internal/middleware"
	"github.com/toolrelay/toolrelay/internal/models"
)

// Handlers groups the endpoint handlers. Agent is nil when no model is
// configured.
type Handlers struct {
	Tools  *handler.ToolsHandler
	Health *handler.HealthHandler
	Agent  *handler.AgentHandler
}

// NewRouter mounts h behind the middleware chain cfg asks for.
func NewRouter(cfg *config.Config, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Both skip the public health paths.
	if cfg.EnableAuth {
		r.Use(middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}
	if cfg.RateLimitEnabled && cfg.RateLimitRequests > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, time.Duration(cfg.RateLimitPeriod)*time.Second))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		models.WriteEndpointError(w, http.StatusNotFound, "Not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		models.WriteEndpointError(w, http.StatusMethodNotAllowed, "Method not allowed", r.URL.Path)
	})

	r.Get("/health", h.Health.Health)
	r.Post("/health", h.Health.Health)
	r.Get("/health/providers", h.Health.Providers)

	r.Get("/tools", h.Tools.List)
	r.Post("/tools/call", h.Tools.Call)
	if h.Agent != nil {
		r.Post("/agent", h.Agent.Run)
	}

	for _, name := range h.Tools.Names() {
		r.Post("/"+name, h.Tools.Tool(name))
	}
	return r
}

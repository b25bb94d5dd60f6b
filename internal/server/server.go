// Package server hosts the HTTP facade: one POST route per tool plus the
// generic call, listing, health and agent endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/agent"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/handler"
	"github.com/toolrelay/toolrelay/internal/health"
	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/telemetry"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// NewDispatcher registers the business tools over the bound providers, with
// secret redaction, audit records and tracing on every call.
func NewDispatcher(cfg *config.Config, providers *provider.Registry) *tools.Dispatcher {
	deps := providers.Deps()
	opts := []tools.Option{
		tools.WithRedactor(result.NewRedactor(cfg.Secrets()...)),
		tools.WithAuditLogger(deps.Audit),
	}
	if obs, err := telemetry.NewGlobalToolObserver(); err != nil {
		log.Warn().Err(err).Msg("tool call instruments unavailable")
	} else {
		opts = append(opts, tools.WithObserver(obs))
	}
	return tools.NewDispatcher(tools.NewRegistry(tools.All(deps)...), opts...)
}

type Server struct {
	cfg       *config.Config
	http      *http.Server
	providers *provider.Registry
	prober    *health.Prober
}

// New builds the facade over providers. The server owns providers from here
// on and closes them on shutdown.
func New(cfg *config.Config, providers *provider.Registry) (*Server, error) {
	s := &Server{cfg: cfg, providers: providers}

	d := NewDispatcher(cfg, providers)

	s.prober = health.NewProber(providers.Checkers(), cfg.ProviderTimeout())
	if err := s.prober.Start(cfg.HealthProbeSchedule); err != nil {
		return nil, fmt.Errorf("start health prober: %w", err)
	}

	h := Handlers{
		Tools:  handler.NewToolsHandler(d),
		Health: handler.NewHealthHandler(providers.Bindings(), s.prober, cfg.EnableAuth),
	}
	if cfg.AnthropicAPIKey != "" {
		a := agent.New(d, agent.Options{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
			Model:   cfg.AnthropicModel,
			PII:     security.NewPIIDetector(cfg.PIIKeywords),
			Prompts: security.NewPromptValidator(),
			Audit:   providers.Deps().Audit,
		})
		h.Agent = handler.NewAgentHandler(a, cfg.AgentMaxIterations, cfg.AgentTimeout)
	} else {
		log.Warn().Msg("ANTHROPIC_API_KEY not set - /agent disabled")
	}

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("auth enabled but no API keys configured - every non-health request will be rejected")
	}

	// The agent route waits on several model round trips.
	writeTimeout := 60 * time.Second
	if agentWrite := time.Duration(cfg.AgentTimeout+10) * time.Second; h.Agent != nil && agentWrite > writeTimeout {
		writeTimeout = agentWrite
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      NewRouter(cfg, h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Addr() string { return s.http.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().Str("addr", s.http.Addr).Msg("HTTP facade listening")

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.http.Shutdown(shutdownCtx)
		s.Close()
		return err
	case err := <-errCh:
		s.Close()
		return err
	}
}

// Close stops scheduled probes and releases provider clients.
func (s *Server) Close() {
	s.prober.Stop()
	if err := s.providers.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing providers")
	} else {
		log.Info().Msg("providers closed")
	}
}

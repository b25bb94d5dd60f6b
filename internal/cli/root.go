// Package cli implements the toolrelay command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/telemetry"
)

// NewRootCmd builds the toolrelay command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "toolrelay",
		Short:         "Business tools for language-model clients over MCP and HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().String("config", "", "Path to a JSON or YAML config file (overrides "+config.EnvConfigFile+")")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.SetVersionTemplate(fmt.Sprintf("toolrelay version %s\n", version))

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewStdioCmd(version))
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewCallCmd())
	root.AddCommand(NewCheckCmd())
	return root
}

// loadConfig reads configuration and configures logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv(config.EnvConfigFile, path); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	setupLogging(cfg)
	return cfg, nil
}

// setupLogging always writes to stderr; stdout belongs to the MCP stream and
// to command output.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// startTelemetry installs tracing when an OTLP endpoint is configured.
func startTelemetry(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{Endpoint: cfg.OTLPEndpoint, ServiceName: cfg.ServiceName})
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}
}

// logSummary reports which tools can serve requests with the current
// credentials.
func logSummary(cfg *config.Config, providers *provider.Registry) {
	configured := cfg.ConfiguredTools()
	var enabled, disabled []string
	for name, ok := range configured {
		if ok {
			enabled = append(enabled, name)
		} else {
			disabled = append(disabled, name)
		}
	}
	sort.Strings(enabled)
	sort.Strings(disabled)

	log.Info().
		Strs("enabled_tools", enabled).
		Strs("disabled_tools", disabled).
		Strs("providers", providers.ConfiguredNames()).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("data_masking", cfg.EnableDataMasking).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("agent_enabled", cfg.AnthropicAPIKey != "").
		Msg("service configuration")

	for _, b := range providers.Bindings() {
		if b.Error != "" {
			log.Warn().Str("provider", b.Name).Str("error", b.Error).Msg("provider failed to start")
		}
	}
	if len(enabled) == 0 {
		log.Warn().Msg("no tools configured - every call will return not_configured")
	}
}

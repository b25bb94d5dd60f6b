package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/server"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Listen host (overrides config)")
	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush := startTelemetry(ctx, cfg)
	defer flush()

	providers := provider.Build(ctx, cfg)
	logSummary(cfg, providers)

	srv, err := server.New(cfg, providers)
	if err != nil {
		providers.Close()
		return err
	}
	return srv.Run(ctx)
}

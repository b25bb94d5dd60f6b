package cli

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/mcpserver"
	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/server"
)

// NewStdioCmd creates the "stdio" subcommand, the MCP transport.
func NewStdioCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the tools as an MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flush := startTelemetry(ctx, cfg)
			defer flush()

			providers := provider.Build(ctx, cfg)
			defer providers.Close()
			logSummary(cfg, providers)

			d := server.NewDispatcher(cfg, providers)
			srv := mcpserver.New(d, mcpserver.DefaultName, version, "stdio")
			return srv.Run(ctx, stdioTransport(cmd))
		},
	}
}

// stdioTransport speaks on the process's stdin/stdout unless the command's
// streams were redirected.
func stdioTransport(cmd *cobra.Command) mcp.Transport {
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	if in == io.Reader(os.Stdin) && out == io.Writer(os.Stdout) {
		return &mcp.StdioTransport{}
	}
	return &mcp.IOTransport{Reader: io.NopCloser(in), Writer: nopWriteCloser{out}}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

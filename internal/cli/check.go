package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/health"
	"github.com/toolrelay/toolrelay/internal/provider"
)

// NewCheckCmd creates the "check" subcommand.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which providers are configured and probe the reachable ones",
		RunE:  runCheck,
	}
	cmd.Flags().Bool("probe", true, "Test connections to providers that support it")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	providers := provider.Build(cmd.Context(), cfg)
	defer providers.Close()

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tTOOLS\tCONFIGURED\tKEYS\tERROR")
	failed := 0
	for _, b := range providers.Bindings() {
		if b.Error != "" {
			failed++
		}
		fmt.Fprintf(w, "%s\t%v\t%v\t%v\t%s\n", b.Name, b.Tools, b.Configured, b.ConfigKeys, b.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if probe, _ := cmd.Flags().GetBool("probe"); probe && len(providers.Checkers()) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROBE\tSTATUS\tLATENCY_MS\tERROR")
		for _, p := range health.NewProber(providers.Checkers(), cfg.ProviderTimeout()).Run(cmd.Context()) {
			if p.Status != "ok" {
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.Provider, p.Status, p.LatencyMs, p.Error)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	configured := 0
	for _, ok := range cfg.ConfiguredTools() {
		if ok {
			configured++
		}
	}
	fmt.Fprintf(out, "\n%d of %d tools configured\n", configured, len(cfg.ConfiguredTools()))

	if failed > 0 {
		return exitError(1, "%d provider(s) failed", failed)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/server"
)

// NewToolsCmd creates the "tools" subcommand.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE:  runTools,
	}
	cmd.Flags().Bool("json", false, "Print full descriptors as JSON")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	providers := provider.Build(cmd.Context(), cfg)
	defer providers.Close()
	descs := server.NewDispatcher(cfg, providers).List()

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(descs)
	}

	configured := cfg.ConfiguredTools()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCONFIGURED\tREQUIRED")
	for _, d := range descs {
		var required []string
		if d.InputSchema != nil {
			required = d.InputSchema.Required
		}
		fmt.Fprintf(w, "%s\t%v\t%v\n", d.Name, configured[d.Name], required)
	}
	return w.Flush()
}

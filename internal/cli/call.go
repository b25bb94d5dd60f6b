package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/server"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// NewCallCmd creates the "call" subcommand.
func NewCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [arguments-json]",
		Short: "Invoke one tool and print its result envelope",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCall,
	}
}

func runCall(cmd *cobra.Command, args []string) error {
	input := map[string]any{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
			return exitError(2, "arguments must be a JSON object: %v", err)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	providers := provider.Build(cmd.Context(), cfg)
	defer providers.Close()

	ctx := tools.WithCaller(cmd.Context(), "cli")
	res := server.NewDispatcher(cfg, providers).Call(ctx, args[0], input)

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if !res.OK() {
		return exitError(1, "%s failed: %s", args[0], res.Err().Kind)
	}
	return nil
}

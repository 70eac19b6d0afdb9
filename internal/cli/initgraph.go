package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcdev12/graphrelay/internal/graph"
)

// NewInitGraphCommand creates the init-graph command.
func NewInitGraphCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-graph",
		Short: "Create uniqueness constraints in the graph store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			client, err := graph.NewClient(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.EnsureConstraints(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ensured %d constraint(s)\n", len(graph.Labels()))
			return nil
		},
	}
}

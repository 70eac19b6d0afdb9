package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcdev12/graphrelay/internal/outbox"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outbox backlog by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, cleanup, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			counts, err := store.StatusCounts(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, status := range []outbox.Status{
				outbox.StatusPending,
				outbox.StatusProcessing,
				outbox.StatusDone,
				outbox.StatusFailed,
			} {
				fmt.Fprintf(w, "%-12s %d\n", status, counts[status])
			}

			oldest, err := store.OldestPending(ctx)
			if err != nil {
				return err
			}
			if oldest != nil {
				fmt.Fprintf(w, "oldest pending: %s (%s ago)\n",
					oldest.Format(time.RFC3339), time.Since(*oldest).Round(time.Second))
			}
			return nil
		},
	}
}

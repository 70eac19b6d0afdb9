package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRequeueCommand creates the requeue command.
func NewRequeueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id  int64
		all bool
	)

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Return dead-lettered records to pending",
		Long: `Moves failed records back to pending for another round of attempts.
Attempts are preserved, so a record one failure short of the cap
dead-letters again on its next failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && id != 0 {
				return fmt.Errorf("--id and --all are mutually exclusive")
			}
			if !all && id == 0 {
				return fmt.Errorf("one of --id or --all is required")
			}

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

			w := cmd.OutOrStdout()
			if all {
				n, err := store.RequeueAllFailed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "requeued %d record(s)\n", n)
				return nil
			}

			ok, err := store.RequeueFailed(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("record %d is not failed", id)
			}
			fmt.Fprintf(w, "requeued record %d\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "record id to requeue")
	cmd.Flags().BoolVar(&all, "all", false, "requeue every failed record")
	return cmd
}

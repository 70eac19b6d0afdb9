package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcdev12/graphrelay/internal/outbox"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the outbox table DDL",
		Long: `Prints the SQL for the outbox table, its claim index, and the wakeup
trigger. Pipe into psql to install.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), outbox.Schema())
		},
	}
}

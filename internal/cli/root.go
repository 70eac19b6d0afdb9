// Package cli implements the outboxctl operator commands.
package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mcdev12/graphrelay/internal/config"
	"github.com/mcdev12/graphrelay/internal/outbox"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for outboxctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "outboxctl",
		Short:        "Operator tooling for the graph relay outbox",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewRequeueCommand(opts))
	cmd.AddCommand(NewInitGraphCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	return config.Load(opts.ConfigPath)
}

// openStore connects to the outbox database. The returned cleanup closes the
// underlying pool.
func openStore(ctx context.Context, cfg config.Config) (*outbox.Store, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open outbox database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to reach outbox database: %w", err)
	}
	return outbox.NewStore(pool), pool.Close, nil
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/graphrelay/internal/config"
	"github.com/mcdev12/graphrelay/internal/graph"
	"github.com/mcdev12/graphrelay/internal/outbox"
	"github.com/mcdev12/graphrelay/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// configure zerolog console output and level
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	level, _ := zerolog.ParseLevel(cfg.Logging.Level)
	zerolog.SetGlobalLevel(level)

	// signal-aware context
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// outbox database
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open outbox database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping outbox database")
	}
	log.Info().
		Str("host", cfg.Postgres.Host).
		Int("port", cfg.Postgres.Port).
		Str("database", cfg.Postgres.Database).
		Msg("connected to outbox database")

	// graph store
	client, err := graph.NewClient(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to graph store")
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("close graph driver")
		}
	}()
	log.Info().Str("uri", cfg.Graph.URI).Msg("connected to graph store")

	store := outbox.NewStore(pool)
	if pending, err := store.PendingCount(ctx); err != nil {
		log.Warn().Err(err).Msg("could not read outbox backlog")
	} else {
		log.Info().Int64("pending", pending).Msg("outbox backlog at startup")
	}

	w := worker.New(store, client, worker.Config{
		BatchSize:    cfg.Worker.BatchSize,
		PollInterval: cfg.Worker.PollInterval,
		MaxAttempts:  cfg.Worker.MaxAttempts,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })

	if cfg.Worker.Listen {
		ltCfg := worker.DefaultListenerConfig()
		ltCfg.DatabaseURL = cfg.Postgres.DSN()
		listener := worker.NewListener(w, ltCfg)
		g.Go(func() error { return listener.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("relay exited with error")
	}

	stats := w.Stats()
	log.Info().
		Int64("cycles", stats.Cycles).
		Int64("claimed", stats.Claimed).
		Int64("done", stats.Done).
		Int64("requeued", stats.Requeued).
		Int64("dead_lettered", stats.DeadLettered).
		Msg("relay stopped")
}

// Package config builds the relay's runtime configuration from defaults, an
// optional YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/graphrelay/internal/worker"
)

// Config holds everything the relay needs to run.
type Config struct {
	Worker   WorkerConfig
	Postgres PostgresConfig
	Graph    GraphConfig
	Logging  LoggingConfig
}

// WorkerConfig holds drain loop settings.
type WorkerConfig struct {
	// BatchSize is the maximum number of records claimed per cycle.
	BatchSize int
	// PollInterval is how long the worker sleeps when the outbox is empty.
	PollInterval time.Duration
	// MaxAttempts is the attempt cap after which a record dead-letters.
	MaxAttempts int
	// Listen enables the LISTEN/NOTIFY wakeup alongside polling.
	Listen bool
}

// PostgresConfig holds outbox database connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the Postgres connection URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// GraphConfig holds graph store connection settings.
type GraphConfig struct {
	URI      string
	Username string
	Password string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (trace, debug, info, warn, error)
	Level string
}

// Defaults returns the built-in configuration, suitable for a local
// single-node setup. The drain loop tuning values are worker.DefaultConfig's.
func Defaults() Config {
	w := worker.DefaultConfig()
	return Config{
		Worker: WorkerConfig{
			BatchSize:    w.BatchSize,
			PollInterval: w.PollInterval,
			MaxAttempts:  w.MaxAttempts,
			Listen:       false,
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "graphrelay",
			SSLMode:  "disable",
		},
		Graph: GraphConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "neo4j",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults first, then the YAML file
// at path (skipped when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the relay cannot run with.
func (c Config) Validate() error {
	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("worker batch size must be positive, got %d", c.Worker.BatchSize)
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker poll interval must be positive, got %s", c.Worker.PollInterval)
	}
	if c.Worker.MaxAttempts < 1 {
		return fmt.Errorf("worker max attempts must be at least 1, got %d", c.Worker.MaxAttempts)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres host must not be empty")
	}
	if c.Postgres.Port <= 0 {
		return fmt.Errorf("invalid postgres port: %d", c.Postgres.Port)
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("postgres database must not be empty")
	}
	if c.Graph.URI == "" {
		return fmt.Errorf("graph uri must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return nil
}

// fileConfig mirrors the YAML file. Durations are strings in Go duration
// syntax ("2s", "500ms").
type fileConfig struct {
	Worker struct {
		BatchSize    int    `yaml:"batch_size"`
		PollInterval string `yaml:"poll_interval"`
		MaxAttempts  int    `yaml:"max_attempts"`
		Listen       bool   `yaml:"listen"`
	} `yaml:"worker"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"postgres"`
	Graph struct {
		URI      string `yaml:"uri"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"graph"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if f.Worker.BatchSize != 0 {
		cfg.Worker.BatchSize = f.Worker.BatchSize
	}
	if f.Worker.PollInterval != "" {
		d, err := time.ParseDuration(f.Worker.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid worker.poll_interval %q: %w", f.Worker.PollInterval, err)
		}
		cfg.Worker.PollInterval = d
	}
	if f.Worker.MaxAttempts != 0 {
		cfg.Worker.MaxAttempts = f.Worker.MaxAttempts
	}
	if f.Worker.Listen {
		cfg.Worker.Listen = true
	}

	if f.Postgres.Host != "" {
		cfg.Postgres.Host = f.Postgres.Host
	}
	if f.Postgres.Port != 0 {
		cfg.Postgres.Port = f.Postgres.Port
	}
	if f.Postgres.User != "" {
		cfg.Postgres.User = f.Postgres.User
	}
	if f.Postgres.Password != "" {
		cfg.Postgres.Password = f.Postgres.Password
	}
	if f.Postgres.Database != "" {
		cfg.Postgres.Database = f.Postgres.Database
	}
	if f.Postgres.SSLMode != "" {
		cfg.Postgres.SSLMode = f.Postgres.SSLMode
	}

	if f.Graph.URI != "" {
		cfg.Graph.URI = f.Graph.URI
	}
	if f.Graph.Username != "" {
		cfg.Graph.Username = f.Graph.Username
	}
	if f.Graph.Password != "" {
		cfg.Graph.Password = f.Graph.Password
	}

	if f.Logging.Level != "" {
		cfg.Logging.Level = f.Logging.Level
	}
	return nil
}

// applyEnv overrides from environment variables. Malformed numeric or
// duration values are ignored and the current value kept.
func applyEnv(cfg *Config) {
	envInt("WORKER_BATCH_SIZE", &cfg.Worker.BatchSize)
	envDuration("WORKER_POLL_INTERVAL", &cfg.Worker.PollInterval)
	envInt("WORKER_MAX_ATTEMPTS", &cfg.Worker.MaxAttempts)
	envBool("WORKER_LISTEN", &cfg.Worker.Listen)

	envString("DB_HOST", &cfg.Postgres.Host)
	envInt("DB_PORT", &cfg.Postgres.Port)
	envString("DB_USER", &cfg.Postgres.User)
	envString("DB_PASSWORD", &cfg.Postgres.Password)
	envString("DB_NAME", &cfg.Postgres.Database)
	envString("DB_SSLMODE", &cfg.Postgres.SSLMode)

	envString("GRAPH_URI", &cfg.Graph.URI)
	envString("GRAPH_USER", &cfg.Graph.Username)
	envString("GRAPH_PASSWORD", &cfg.Graph.Password)

	envString("LOG_LEVEL", &cfg.Logging.Level)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/graphrelay/internal/outbox"
)

// ListenerConfig holds the LISTEN/NOTIFY wake-up settings.
type ListenerConfig struct {
	DatabaseURL  string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	PingInterval time.Duration
}

// DefaultListenerConfig returns the built-in listener settings.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Channel:      outbox.NotifyChannel,
		MinReconnect: 10 * time.Second,
		MaxReconnect: time.Minute,
		PingInterval: 90 * time.Second,
	}
}

// Waker defines what the listener needs from the worker.
type Waker interface {
	Wake()
}

// notifyConn defines what the listener needs from a LISTEN/NOTIFY connection.
// *pq.Listener satisfies it.
type notifyConn interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Listener turns outbox insert notifications into worker wake-ups. It never
// reads notification payloads or fetches rows; the claim protocol stays the
// only acquisition path, notifications just cut idle latency. A broken
// listener degrades the worker to plain polling rather than taking the relay
// down.
type Listener struct {
	waker  Waker
	cfg    ListenerConfig
	conn   notifyConn // built from cfg in Run when nil; tests inject a fake
	logger zerolog.Logger
}

// NewListener creates a wake-up listener for the outbox notification channel.
// Nothing connects until Run.
func NewListener(waker Waker, cfg ListenerConfig) *Listener {
	return &Listener{
		waker:  waker,
		cfg:    cfg,
		logger: log.With().Str("listener_id", uuid.New().String()[:8]).Logger(),
	}
}

// Run subscribes to the notification channel and pumps wake-ups until ctx is
// cancelled. A failed subscription is logged and Run returns nil: the worker
// still drains the outbox by polling, so losing the wake-up channel must
// never stop the relay.
func (l *Listener) Run(ctx context.Context) error {
	conn := l.conn
	if conn == nil {
		conn = pq.NewListener(l.cfg.DatabaseURL, l.cfg.MinReconnect, l.cfg.MaxReconnect,
			func(ev pq.ListenerEventType, err error) {
				if err != nil {
					l.logger.Error().Err(err).Msg("listener event")
				}
			})
	}
	defer func() {
		if err := conn.Close(); err != nil {
			l.logger.Error().Err(err).Msg("failed to close listener")
		}
	}()

	// Listen blocks while the connection is being established, so guard it
	// with ctx to keep shutdown prompt; the deferred Close unblocks it.
	listenErr := make(chan error, 1)
	go func() { listenErr <- conn.Listen(l.cfg.Channel) }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-listenErr:
		if err != nil {
			l.logger.Error().Err(err).
				Str("channel", l.cfg.Channel).
				Msg("could not subscribe to outbox notifications, continuing on polling alone")
			return nil
		}
	}
	l.logger.Info().Str("channel", l.cfg.Channel).Msg("listening for outbox notifications")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	notifications := conn.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("listener shutting down")
			return nil
		case <-notifications:
			// A nil notification signals a re-established connection; wake
			// either way in case notifications were missed while down.
			l.waker.Wake()
		case <-pingTicker.C:
			if err := conn.Ping(); err != nil {
				l.logger.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Package worker drives the outbox consumption cycle: claim a batch, project
// each record into the graph, write the outcome back.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/graphrelay/internal/events"
	"github.com/mcdev12/graphrelay/internal/graph"
	"github.com/mcdev12/graphrelay/internal/outbox"
	"github.com/mcdev12/graphrelay/internal/transform"
)

// Config holds the worker tuning knobs.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultConfig returns the built-in tuning values.
func DefaultConfig() Config {
	return Config{
		BatchSize:    500,
		PollInterval: 2 * time.Second,
		MaxAttempts:  5,
	}
}

// OutboxStore defines what the worker needs from the outbox table.
type OutboxStore interface {
	ClaimBatch(ctx context.Context, maxItems int) ([]outbox.Record, error)
	MarkDone(ctx context.Context, id int64) (bool, error)
	MarkFailure(ctx context.Context, id int64, maxAttempts int, cause error) (outbox.Status, error)
}

// GraphWriter defines what the worker needs from the graph store.
type GraphWriter interface {
	Apply(ctx context.Context, stmts []graph.Statement) error
}

// Clock is the time source for the loop. Production uses
// clockwork.NewRealClock; tests inject a fake.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Stats are the running totals for one worker instance.
type Stats struct {
	Cycles          int64
	Claimed         int64
	Done            int64
	Requeued        int64
	DeadLettered    int64
	UnknownKinds    int64
	LostClaims      int64
	WriteBackErrors int64
}

// Worker owns one consumption loop. It is single-threaded: records within a
// batch are processed sequentially, and each record's outcome write-back
// completes before the next record begins. Multiple worker processes
// coordinate only through the claim protocol.
type Worker struct {
	store   OutboxStore
	writer  GraphWriter
	cfg     Config
	clock   Clock
	metrics MetricsCollector
	logger  zerolog.Logger

	instanceID string
	wakeCh     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// Option tweaks a Worker at construction.
type Option func(*Worker)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(w *Worker) { w.clock = c }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m MetricsCollector) Option {
	return func(w *Worker) { w.metrics = m }
}

// New creates a worker around the two stores.
func New(store OutboxStore, writer GraphWriter, cfg Config, opts ...Option) *Worker {
	w := &Worker{
		store:      store,
		writer:     writer,
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		metrics:    &NoOpMetricsCollector{},
		instanceID: uuid.New().String()[:8],
		wakeCh:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = log.With().Str("worker_id", w.instanceID).Logger()
	return w
}

// Wake nudges the loop out of its empty-batch sleep. It never blocks and is
// purely an optimization: claiming stays the only way work is acquired.
func (w *Worker) Wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of the running totals.
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run drives the loop until ctx is cancelled. Cancellation lets the in-flight
// record finish its graph write and outcome write-back, then returns nil;
// claimed records not yet started stay in processing for the external reset
// sweep.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().
		Int("batch_size", w.cfg.BatchSize).
		Dur("poll_interval", w.cfg.PollInterval).
		Int("max_attempts", w.cfg.MaxAttempts).
		Msg("worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("worker stopped")
			return nil
		}

		claimed, err := w.cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info().Msg("worker stopped")
				return nil
			}
			// A failed claim mutates nothing; back off and try again.
			w.logger.Error().Err(err).Msg("failed to claim batch")
			w.sleep(ctx)
			continue
		}

		if claimed == 0 {
			w.sleep(ctx)
		}
	}
}

// cycle claims one batch and processes it sequentially in occurred_at order,
// returning the number of records claimed. Per-record failures become state
// transitions, never errors; only the claim call itself can fail.
func (w *Worker) cycle(ctx context.Context) (int, error) {
	batch, err := w.store.ClaimBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	w.stats.Cycles++
	w.stats.Claimed += int64(len(batch))
	w.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	w.metrics.RecordBatchClaimed(len(batch))
	w.logger.Debug().Int("count", len(batch)).Msg("claimed outbox batch")

	for i, rec := range batch {
		if ctx.Err() != nil {
			w.logger.Warn().
				Int("left_processing", len(batch)-i).
				Msg("shutdown mid-batch, remaining records stay processing for the reset sweep")
			return len(batch), nil
		}
		w.processRecord(ctx, rec)
	}

	return len(batch), nil
}

// processRecord runs one record to completion. The graph write and the
// outcome write-back are never cancelled mid-record: shutdown waits for the
// pair, so a row is either fully processed or left in processing, never half
// done.
func (w *Worker) processRecord(ctx context.Context, rec outbox.Record) {
	recCtx := context.WithoutCancel(ctx)
	now := w.clock.Now()

	payload, err := events.Parse(rec.EventKind, rec.Payload)
	if err != nil {
		if errors.Is(err, events.ErrUnknownKind) {
			// A kind this build does not know is acknowledged, not failed, so
			// a newer producer cannot poison-pill this worker.
			w.logger.Info().
				Int64("record_id", rec.ID).
				Str("event_kind", rec.EventKind).
				Msg("unknown event kind, marking done without graph write")
			w.finishDone(recCtx, rec, now, true)
			return
		}
		w.finishFailure(recCtx, rec, now, err)
		return
	}

	stmts, err := transform.Plan(payload, now)
	if err != nil {
		w.finishFailure(recCtx, rec, now, err)
		return
	}

	if err := w.writer.Apply(recCtx, stmts); err != nil {
		w.finishFailure(recCtx, rec, now, err)
		return
	}

	w.finishDone(recCtx, rec, now, false)
}

func (w *Worker) finishDone(ctx context.Context, rec outbox.Record, start time.Time, unknownKind bool) {
	ok, err := w.store.MarkDone(ctx, rec.ID)
	if err != nil {
		w.noteWriteBackError(rec, err)
		return
	}
	if !ok {
		w.noteLostClaim(rec)
		return
	}

	w.mu.Lock()
	w.stats.Done++
	if unknownKind {
		w.stats.UnknownKinds++
	}
	w.mu.Unlock()

	w.metrics.RecordEventProcessed(rec.EventKind, true, w.clock.Now().Sub(start))
	w.logger.Debug().
		Int64("record_id", rec.ID).
		Str("event_kind", rec.EventKind).
		Msg("record done")
}

func (w *Worker) finishFailure(ctx context.Context, rec outbox.Record, start time.Time, cause error) {
	status, err := w.store.MarkFailure(ctx, rec.ID, w.cfg.MaxAttempts, cause)
	if err != nil {
		w.noteWriteBackError(rec, err)
		return
	}

	w.metrics.RecordEventProcessed(rec.EventKind, false, w.clock.Now().Sub(start))

	switch status {
	case outbox.StatusPending:
		w.mu.Lock()
		w.stats.Requeued++
		w.mu.Unlock()
		w.metrics.RecordRequeue(rec.EventKind)
		w.logger.Warn().
			Err(cause).
			Int64("record_id", rec.ID).
			Str("event_kind", rec.EventKind).
			Int32("attempts", rec.Attempts+1).
			Msg("record failed, requeued")
	case outbox.StatusFailed:
		w.mu.Lock()
		w.stats.DeadLettered++
		w.mu.Unlock()
		w.metrics.RecordDeadLetter(rec.EventKind)
		w.logger.Error().
			Err(cause).
			Int64("record_id", rec.ID).
			Str("event_kind", rec.EventKind).
			Int32("attempts", rec.Attempts+1).
			Msg("record dead-lettered")
	default:
		w.noteLostClaim(rec)
	}
}

func (w *Worker) noteWriteBackError(rec outbox.Record, err error) {
	w.mu.Lock()
	w.stats.WriteBackErrors++
	w.mu.Unlock()
	w.logger.Error().
		Err(err).
		Int64("record_id", rec.ID).
		Msg("failed to write back outcome, record stays processing")
}

func (w *Worker) noteLostClaim(rec outbox.Record) {
	w.mu.Lock()
	w.stats.LostClaims++
	w.mu.Unlock()
	w.logger.Warn().
		Int64("record_id", rec.ID).
		Msg("record was reset while in flight, outcome discarded")
}

// sleep waits one poll interval, returning early on a wake notification or
// cancellation.
func (w *Worker) sleep(ctx context.Context) {
	timer := w.clock.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.Chan():
	case <-w.wakeCh:
		w.logger.Debug().Msg("woken early by outbox notification")
	}
}

package outbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// maxErrorLen bounds the stored failure description.
const maxErrorLen = 1000

const claimBatchQuery = `UPDATE graph_outbox
SET status = 'processing'
WHERE id IN (
    SELECT id FROM graph_outbox
    WHERE status = 'pending'
    ORDER BY occurred_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
RETURNING id, event_kind, payload, occurred_at, attempts`

const markDoneQuery = `UPDATE graph_outbox
SET status = 'done', attempts = attempts + 1, error = NULL
WHERE id = $1 AND status = 'processing'`

const markFailureQuery = `UPDATE graph_outbox
SET status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'pending' END,
    attempts = attempts + 1,
    error = $3
WHERE id = $1 AND status = 'processing'
RETURNING status`

// Querier defines what the store needs from the database pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and mutates the outbox table. It is the only component that
// writes outbox state on behalf of the engine; producers insert rows and an
// external sweep may reset processing rows, but nothing else touches them.
type Store struct {
	db Querier
}

// NewStore creates a store on top of a pgx pool or compatible querier.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// ClaimBatch atomically flips up to maxItems of the oldest pending records to
// processing and returns them. FOR UPDATE SKIP LOCKED makes concurrent claims
// disjoint without blocking: a row locked by another worker's in-flight claim
// is skipped, never waited on. An empty result is not an error.
func (s *Store) ClaimBatch(ctx context.Context, maxItems int) ([]Record, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}

	rows, err := s.db.Query(ctx, claimBatchQuery, maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox batch: %w", err)
	}
	defer rows.Close()

	var batch []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventKind, &rec.Payload, &rec.OccurredAt, &rec.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox batch: %w", err)
	}

	// RETURNING does not guarantee row order; the processing order contract
	// is occurred_at ascending.
	sortBatch(batch)
	return batch, nil
}

// MarkDone records a successful outcome: done, attempts+1, error cleared.
// ok is false when the row was no longer in processing, meaning an external
// reset reclaimed it mid-flight; the outcome is discarded and the replacement
// claim will redo the idempotent write.
func (s *Store) MarkDone(ctx context.Context, id int64) (ok bool, err error) {
	tag, err := s.db.Exec(ctx, markDoneQuery, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox record done: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailure records a failed outcome: attempts+1, error set, and status
// computed in the same statement so the cap decision is atomic with the
// increment. It returns the resulting status (pending for another attempt, or
// failed once the cap is reached), or "" when the row was no longer in
// processing.
func (s *Store) MarkFailure(ctx context.Context, id int64, maxAttempts int, cause error) (Status, error) {
	var status Status
	err := s.db.QueryRow(ctx, markFailureQuery, id, maxAttempts, truncateError(cause)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to mark outbox record failure: %w", err)
	}
	return status, nil
}

// StatusCounts returns the number of records per status.
func (s *Store) StatusCounts(ctx context.Context) (map[Status]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM graph_outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}
	return counts, nil
}

// PendingCount returns the current claimable backlog.
func (s *Store) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM graph_outbox WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}
	return n, nil
}

// OldestPending returns the occurred_at of the oldest pending record, or nil
// when nothing is pending. The gap to now is the staleness bound of the
// projection.
func (s *Store) OldestPending(ctx context.Context) (*time.Time, error) {
	var ts *time.Time
	err := s.db.QueryRow(ctx, `SELECT MIN(occurred_at) FROM graph_outbox WHERE status = 'pending'`).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("failed to find oldest pending record: %w", err)
	}
	return ts, nil
}

// ResetProcessing is the stale-claim sweep: it flips processing records back
// to pending, status only, attempts and error untouched. With olderThan > 0
// only records whose occurred_at is at least that old are reset. The engine
// tolerates this happening to its own in-flight rows at any time.
func (s *Store) ResetProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if olderThan > 0 {
		tag, err = s.db.Exec(ctx,
			`UPDATE graph_outbox SET status = 'pending' WHERE status = 'processing' AND occurred_at < now() - make_interval(secs => $1)`,
			olderThan.Seconds(),
		)
	} else {
		tag, err = s.db.Exec(ctx, `UPDATE graph_outbox SET status = 'pending' WHERE status = 'processing'`)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset processing records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RequeueFailed returns one dead-lettered record to the claimable pool.
// Attempts are preserved, so another failure dead-letters it again
// immediately; only a success moves it on.
func (s *Store) RequeueFailed(ctx context.Context, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE graph_outbox SET status = 'pending' WHERE id = $1 AND status = 'failed'`, id)
	if err != nil {
		return false, fmt.Errorf("failed to requeue record %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RequeueAllFailed returns every dead-lettered record to the claimable pool.
func (s *Store) RequeueAllFailed(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `UPDATE graph_outbox SET status = 'pending' WHERE status = 'failed'`)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func sortBatch(batch []Record) {
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].OccurredAt.Equal(batch[j].OccurredAt) {
			return batch[i].ID < batch[j].ID
		}
		return batch[i].OccurredAt.Before(batch[j].OccurredAt)
	})
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if utf8.RuneCountInString(msg) <= maxErrorLen {
		return msg
	}
	return string([]rune(msg)[:maxErrorLen])
}

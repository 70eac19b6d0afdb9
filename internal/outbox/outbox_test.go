package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortBatch(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []Record{
		{ID: 9, OccurredAt: base.Add(2 * time.Second)},
		{ID: 4, OccurredAt: base},
		{ID: 2, OccurredAt: base.Add(time.Second)},
		{ID: 1, OccurredAt: base.Add(2 * time.Second)},
	}

	sortBatch(batch)

	ids := make([]int64, len(batch))
	for i, rec := range batch {
		ids[i] = rec.ID
	}
	// occurred_at ascending, id breaks the tie between 1 and 9
	assert.Equal(t, []int64{4, 2, 1, 9}, ids)

	for i := 1; i < len(batch); i++ {
		assert.False(t, batch[i].OccurredAt.Before(batch[i-1].OccurredAt))
	}
}

func TestTruncateError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "", truncateError(nil))
	})

	t.Run("short message unchanged", func(t *testing.T) {
		err := errors.New("graph store: apply: connection refused")
		assert.Equal(t, err.Error(), truncateError(err))
	})

	t.Run("long message truncated to limit", func(t *testing.T) {
		err := errors.New(strings.Repeat("x", maxErrorLen*2))
		got := truncateError(err)
		assert.Len(t, got, maxErrorLen)
	})

	t.Run("truncation does not split runes", func(t *testing.T) {
		err := errors.New(strings.Repeat("✓", maxErrorLen+10))
		got := truncateError(err)
		assert.Equal(t, maxErrorLen, len([]rune(got)))
		assert.True(t, strings.HasPrefix(strings.Repeat("✓", maxErrorLen+10), got))
	})
}

func TestSchema(t *testing.T) {
	ddl := Schema()

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS graph_outbox")
	for _, col := range []string{"event_kind", "payload", "occurred_at", "attempts", "status", "error"} {
		assert.Contains(t, ddl, col)
	}
	assert.Contains(t, ddl, "ON graph_outbox (status, occurred_at)", "claim scan needs the composite index")
	assert.Contains(t, ddl, "pg_notify('"+NotifyChannel+"'")
	assert.Contains(t, ddl, "DEFAULT 'pending'")
}

// The claim must lock, skip contended rows and flip status in one statement;
// splitting the select from the update would open a window where two workers
// read the same pending row.
func TestClaimQueryClaimsAtomically(t *testing.T) {
	q := claimBatchQuery

	assert.True(t, strings.HasPrefix(strings.TrimSpace(q), "UPDATE"))
	assert.NotContains(t, q, ";", "claiming is a single statement")

	assert.Contains(t, q, "FOR UPDATE SKIP LOCKED",
		"concurrent claims must skip locked rows, never block on them")
	assert.Contains(t, q, "WHERE status = 'pending'")
	assert.Contains(t, q, "SET status = 'processing'")
	assert.Contains(t, q, "ORDER BY occurred_at")
	assert.Contains(t, q, "LIMIT $1")
	assert.Contains(t, q, "RETURNING")
}

func TestOutcomeQueriesGuardOnProcessing(t *testing.T) {
	// Zero rows affected is how the store detects an external reset of an
	// in-flight row, so both write-backs must carry the status guard.
	assert.Contains(t, markDoneQuery, "AND status = 'processing'")
	assert.Contains(t, markFailureQuery, "AND status = 'processing'")

	assert.Contains(t, markDoneQuery, "attempts = attempts + 1")
	assert.Contains(t, markFailureQuery, "attempts = attempts + 1")
	assert.Contains(t, markFailureQuery,
		"CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'pending' END",
		"the cap decision and the increment are one atomic statement")
}

func TestClaimBatchRejectsNonPositiveSize(t *testing.T) {
	store := NewStore(nil)
	_, err := store.ClaimBatch(context.Background(), 0)
	require.Error(t, err)
	_, err = store.ClaimBatch(context.Background(), -5)
	require.Error(t, err)
}

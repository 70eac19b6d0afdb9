package transform

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/graphrelay/internal/events"
	"github.com/mcdev12/graphrelay/internal/fingerprint"
)

func TestPlan_RelationshipInsert(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := events.RelationshipInsert{Subject: "A", Predicate: "knows", Object: "B"}

	stmts, err := Plan(payload, now)
	require.NoError(t, err)
	require.Len(t, stmts, 3, "one subject upsert, one object upsert, one edge upsert")

	subject, object, edge := stmts[0], stmts[1], stmts[2]

	assert.Contains(t, subject.Cypher, "MERGE (e:Entity {id: $id})")
	assert.Equal(t, fingerprint.Hash("A"), subject.Params["id"])
	assert.Equal(t, "A", subject.Params["name"])

	assert.Contains(t, object.Cypher, "MERGE (e:Entity {id: $id})")
	assert.Equal(t, fingerprint.Hash("B"), object.Params["id"])
	assert.Equal(t, "B", object.Params["name"])

	assert.Contains(t, edge.Cypher, "MERGE (s)-[r:RELATES_TO {predicate: $predicate}]->(o)")
	assert.Equal(t, "knows", edge.Params["predicate"])
	assert.Equal(t, fingerprint.Hash("A"), edge.Params["subject_id"])
	assert.Equal(t, fingerprint.Hash("B"), edge.Params["object_id"])
	assert.Equal(t, now, edge.Params["now"])
}

// A replayed event must produce the same statements; only the observation
// timestamp parameter may differ between the runs.
func TestPlan_RelationshipReplayOnlyMovesLastConfirmed(t *testing.T) {
	payload := events.RelationshipInsert{Subject: "A", Predicate: "knows", Object: "B"}
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	run1, err := Plan(payload, first)
	require.NoError(t, err)
	run2, err := Plan(payload, second)
	require.NoError(t, err)

	require.Len(t, run2, len(run1))
	for i := range run1 {
		assert.Equal(t, run1[i].Cypher, run2[i].Cypher)
		for key, val := range run1[i].Params {
			if key == "now" {
				continue
			}
			assert.Equal(t, val, run2[i].Params[key], "statement %d param %s", i, key)
		}
		assert.Equal(t, second, run2[i].Params["now"])
	}

	// Entity properties are written only on creation; the edge's
	// last_confirmed is the single field that moves on re-observation.
	assert.NotContains(t, run1[0].Cypher[strings.Index(run1[0].Cypher, "ON CREATE"):], "\nSET ")
	assert.Contains(t, run1[2].Cypher, "ON CREATE SET r.first_seen = $now")
	assert.Contains(t, run1[2].Cypher, "SET r.last_confirmed = $now")
}

func TestPlan_NoteInsert(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := events.NoteInsert{NoteID: "n-1", SourceURL: "https://example.com/a", Content: "observed"}

	stmts, err := Plan(payload, now)
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	note, source, edge := stmts[0], stmts[1], stmts[2]

	assert.Contains(t, note.Cypher, "MERGE (n:Note {id: $id})")
	assert.Equal(t, fingerprint.Hash("n-1"), note.Params["id"])
	assert.Equal(t, "observed", note.Params["content"])

	assert.Contains(t, source.Cypher, "MERGE (s:Source {id: $id})")
	assert.Equal(t, fingerprint.Hash("https://example.com/a"), source.Params["id"])
	assert.Equal(t, "https://example.com/a", source.Params["url"])

	assert.Contains(t, edge.Cypher, "MERGE (n)-[r:SOURCED_FROM]->(s)")
	assert.Equal(t, fingerprint.Hash("n-1"), edge.Params["note_id"])
	assert.Equal(t, fingerprint.Hash("https://example.com/a"), edge.Params["source_id"])
}

func TestPlan_ParticipationInsert(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	discovered := time.Date(2026, 2, 27, 8, 30, 0, 0, time.UTC)
	payload := events.ParticipationInsert{
		SubjectID:       "item-42",
		SourceDomain:    "example.com",
		SourceURL:       "https://example.com/list",
		Verified:        true,
		DiscoveryMethod: "crawl",
		DiscoveredAt:    &discovered,
	}

	stmts, err := Plan(payload, now)
	require.NoError(t, err)
	require.Len(t, stmts, 5)

	domain, item, participation, hasPart, forItem := stmts[0], stmts[1], stmts[2], stmts[3], stmts[4]

	assert.Contains(t, domain.Cypher, "MERGE (d:Domain {id: $id})")
	assert.Equal(t, fingerprint.Hash("example.com"), domain.Params["id"])

	assert.Contains(t, item.Cypher, "MERGE (t:TrackedItem {id: $id})")
	assert.Equal(t, fingerprint.Hash("item-42"), item.Params["id"])

	assert.Contains(t, participation.Cypher, "MERGE (p:Participation {id: $id})")
	assert.Equal(t, fingerprint.Composite("example.com", "item-42"), participation.Params["id"])
	assert.Equal(t, true, participation.Params["verified"])
	assert.Equal(t, "crawl", participation.Params["discovery_method"])
	assert.Equal(t, discovered, participation.Params["discovered_at"])
	assert.Contains(t, participation.Cypher, "p.last_verified = $now")
	assert.Contains(t, participation.Cypher, "p.updated_at = $now")

	assert.Contains(t, hasPart.Cypher, "MERGE (d)-[r:HAS_PARTICIPATION]->(p)")
	assert.Equal(t, participation.Params["id"], hasPart.Params["participation_id"])

	assert.Contains(t, forItem.Cypher, "MERGE (p)-[r:FOR_ITEM]->(t)")
	assert.Equal(t, item.Params["id"], forItem.Params["item_id"])
}

func TestPlan_ParticipationWithoutDiscoveredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := events.ParticipationInsert{
		SubjectID:    "item-42",
		SourceDomain: "example.com",
		SourceURL:    "https://example.com/list",
	}

	stmts, err := Plan(payload, now)
	require.NoError(t, err)
	assert.Nil(t, stmts[2].Params["discovered_at"])
}

// Two plans from the same payload and clock reading must be identical; the
// statements themselves carry the idempotence, the planner must not add any.
func TestPlan_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payloads := []events.Payload{
		events.RelationshipInsert{Subject: "A", Predicate: "knows", Object: "B"},
		events.NoteInsert{NoteID: "n-1", SourceURL: "https://example.com/a"},
		events.ParticipationInsert{SubjectID: "item-42", SourceDomain: "example.com", SourceURL: "https://example.com/x"},
	}

	for _, p := range payloads {
		first, err := Plan(p, now)
		require.NoError(t, err)
		second, err := Plan(p, now)
		require.NoError(t, err)
		assert.Equal(t, first, second, "kind %s", p.Kind())
	}
}

package transform

import (
	"time"

	"github.com/mcdev12/graphrelay/internal/events"
	"github.com/mcdev12/graphrelay/internal/fingerprint"
	"github.com/mcdev12/graphrelay/internal/graph"
)

const mergeNote = `MERGE (n:Note {id: $id})
ON CREATE SET n.note_id = $note_id, n.first_seen = $now
SET n.content = $content`

const mergeSource = `MERGE (s:Source {id: $id})
ON CREATE SET s.url = $url, s.first_seen = $now`

const mergeSourcedFrom = `MATCH (n:Note {id: $note_id})
MATCH (s:Source {id: $source_id})
MERGE (n)-[r:SOURCED_FROM]->(s)
ON CREATE SET r.first_seen = $now
SET r.last_confirmed = $now`

// planNote upserts the note with its content, the source document it came
// from, and the provenance edge between them.
func planNote(p events.NoteInsert, now time.Time) []graph.Statement {
	noteID := fingerprint.Hash(p.NoteID)
	sourceID := fingerprint.Hash(p.SourceURL)

	return []graph.Statement{
		{
			Cypher: mergeNote,
			Params: map[string]any{"id": noteID, "note_id": p.NoteID, "content": p.Content, "now": now},
		},
		{
			Cypher: mergeSource,
			Params: map[string]any{"id": sourceID, "url": p.SourceURL, "now": now},
		},
		{
			Cypher: mergeSourcedFrom,
			Params: map[string]any{"note_id": noteID, "source_id": sourceID, "now": now},
		},
	}
}

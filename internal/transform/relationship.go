package transform

import (
	"time"

	"github.com/mcdev12/graphrelay/internal/events"
	"github.com/mcdev12/graphrelay/internal/fingerprint"
	"github.com/mcdev12/graphrelay/internal/graph"
)

const mergeEntity = `MERGE (e:Entity {id: $id})
ON CREATE SET e.name = $name, e.first_seen = $now`

// Cypher cannot parameterize a relationship type, so edges carry the
// predicate as an identity-bearing property on a fixed RELATES_TO type.
const mergeRelationship = `MATCH (s:Entity {id: $subject_id})
MATCH (o:Entity {id: $object_id})
MERGE (s)-[r:RELATES_TO {predicate: $predicate}]->(o)
ON CREATE SET r.first_seen = $now
SET r.last_confirmed = $now`

// planRelationship upserts both endpoint entities and the predicate-labeled
// edge between them. A repeat observation only advances last_confirmed.
func planRelationship(p events.RelationshipInsert, now time.Time) []graph.Statement {
	subjectID := fingerprint.Hash(p.Subject)
	objectID := fingerprint.Hash(p.Object)

	return []graph.Statement{
		{
			Cypher: mergeEntity,
			Params: map[string]any{"id": subjectID, "name": p.Subject, "now": now},
		},
		{
			Cypher: mergeEntity,
			Params: map[string]any{"id": objectID, "name": p.Object, "now": now},
		},
		{
			Cypher: mergeRelationship,
			Params: map[string]any{
				"subject_id": subjectID,
				"object_id":  objectID,
				"predicate":  p.Predicate,
				"now":        now,
			},
		},
	}
}

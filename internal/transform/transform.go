// Package transform maps validated outbox payloads to idempotent graph
// statement sequences.
//
// Plans are pure: no I/O, no clock reads (the caller supplies now). Every
// statement is a MERGE keyed on a fingerprint-derived id, so applying the same
// plan any number of times converges on the same graph, except for the
// designated re-observation timestamps.
package transform

import (
	"fmt"
	"time"

	"github.com/mcdev12/graphrelay/internal/events"
	"github.com/mcdev12/graphrelay/internal/graph"
)

// Plan returns the ordered statement sequence that projects one event into
// the graph. now is recorded as the observation time on created and
// re-observed elements.
func Plan(p events.Payload, now time.Time) ([]graph.Statement, error) {
	switch payload := p.(type) {
	case events.RelationshipInsert:
		return planRelationship(payload, now), nil
	case events.NoteInsert:
		return planNote(payload, now), nil
	case events.ParticipationInsert:
		return planParticipation(payload, now), nil
	default:
		return nil, fmt.Errorf("no transformer for event kind %s", p.Kind())
	}
}

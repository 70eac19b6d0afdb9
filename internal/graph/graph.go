// Package graph executes idempotent statement sequences against the property
// graph store.
package graph

import (
	"fmt"
	"strings"
)

// Statement is one parameterized Cypher statement.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Labels used by the projection. Downstream query consumers depend on these
// names staying stable.
const (
	LabelEntity        = "Entity"
	LabelNote          = "Note"
	LabelSource        = "Source"
	LabelDomain        = "Domain"
	LabelTrackedItem   = "TrackedItem"
	LabelParticipation = "Participation"
)

// Labels returns every node label the projection writes.
func Labels() []string {
	return []string{
		LabelEntity,
		LabelNote,
		LabelSource,
		LabelDomain,
		LabelTrackedItem,
		LabelParticipation,
	}
}

// ConstraintStatements returns the uniqueness constraints the projection
// relies on: one unique id per label. MERGE keyed on id is only race-free
// across workers when these exist.
func ConstraintStatements() []Statement {
	labels := Labels()
	stmts := make([]Statement, 0, len(labels))
	for _, label := range labels {
		stmts = append(stmts, Statement{
			Cypher: fmt.Sprintf(
				"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
				strings.ToLower(label), label,
			),
		})
	}
	return stmts
}

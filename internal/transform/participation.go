package transform

import (
	"time"

	"github.com/mcdev12/graphrelay/internal/events"
	"github.com/mcdev12/graphrelay/internal/fingerprint"
	"github.com/mcdev12/graphrelay/internal/graph"
)

const mergeDomain = `MERGE (d:Domain {id: $id})
ON CREATE SET d.domain = $domain, d.first_seen = $now`

const mergeTrackedItem = `MERGE (t:TrackedItem {id: $id})
ON CREATE SET t.subject_id = $subject_id, t.first_seen = $now`

const mergeParticipation = `MERGE (p:Participation {id: $id})
ON CREATE SET p.first_seen = $now
SET p.source_url = $source_url,
    p.verified = $verified,
    p.discovery_method = $discovery_method,
    p.discovered_at = $discovered_at,
    p.last_verified = $now,
    p.updated_at = $now`

const mergeHasParticipation = `MATCH (d:Domain {id: $domain_id})
MATCH (p:Participation {id: $participation_id})
MERGE (d)-[r:HAS_PARTICIPATION]->(p)
ON CREATE SET r.first_seen = $now`

const mergeForItem = `MATCH (p:Participation {id: $participation_id})
MATCH (t:TrackedItem {id: $item_id})
MERGE (p)-[r:FOR_ITEM]->(t)
ON CREATE SET r.first_seen = $now`

// planParticipation upserts the domain, the tracked item, and the
// participation record that links them, carrying the discovery metadata. A
// repeat observation only advances last_verified and updated_at.
//
// The participation id is a composite of domain and subject: the same item
// discovered on two domains is two participation records.
func planParticipation(p events.ParticipationInsert, now time.Time) []graph.Statement {
	domainID := fingerprint.Hash(p.SourceDomain)
	itemID := fingerprint.Hash(p.SubjectID)
	participationID := fingerprint.Composite(p.SourceDomain, p.SubjectID)

	var discoveredAt any
	if p.DiscoveredAt != nil {
		discoveredAt = *p.DiscoveredAt
	}

	return []graph.Statement{
		{
			Cypher: mergeDomain,
			Params: map[string]any{"id": domainID, "domain": p.SourceDomain, "now": now},
		},
		{
			Cypher: mergeTrackedItem,
			Params: map[string]any{"id": itemID, "subject_id": p.SubjectID, "now": now},
		},
		{
			Cypher: mergeParticipation,
			Params: map[string]any{
				"id":               participationID,
				"source_url":       p.SourceURL,
				"verified":         p.Verified,
				"discovery_method": p.DiscoveryMethod,
				"discovered_at":    discoveredAt,
				"now":              now,
			},
		},
		{
			Cypher: mergeHasParticipation,
			Params: map[string]any{"domain_id": domainID, "participation_id": participationID, "now": now},
		},
		{
			Cypher: mergeForItem,
			Params: map[string]any{"participation_id": participationID, "item_id": itemID, "now": now},
		},
	}
}

// Package events defines the outbox payload schema for each event kind.
//
// Payloads are decoded and validated here, before any graph write is planned,
// so a malformed document can never cause a partial write.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event kinds recognized by this build. Producers may emit kinds that are not
// listed here; the worker skips those instead of failing them so that a newer
// producer never poison-pills an older relay.
const (
	KindRelationshipInsert  = "relationship.insert"
	KindNoteInsert          = "note.insert"
	KindParticipationInsert = "participation.insert"
)

// ErrUnknownKind marks an event_kind this build has no schema for.
var ErrUnknownKind = errors.New("unknown event kind")

// ValidationError reports a payload that can never be applied as written.
// It is permanent for the payload in question, but the worker still routes it
// through the uniform attempt cap rather than dead-lettering immediately.
type ValidationError struct {
	Kind   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: field %q %s", e.Kind, e.Field, e.Reason)
}

// Payload is one decoded outbox payload. The concrete type is determined by
// the record's event_kind.
type Payload interface {
	Kind() string
	validate() error
}

// RelationshipInsert is the payload for a relationship.insert event.
type RelationshipInsert struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

func (p RelationshipInsert) Kind() string { return KindRelationshipInsert }

func (p RelationshipInsert) validate() error {
	switch {
	case p.Subject == "":
		return &ValidationError{Kind: p.Kind(), Field: "subject", Reason: "must not be empty"}
	case p.Predicate == "":
		return &ValidationError{Kind: p.Kind(), Field: "predicate", Reason: "must not be empty"}
	case p.Object == "":
		return &ValidationError{Kind: p.Kind(), Field: "object", Reason: "must not be empty"}
	}
	return nil
}

// NoteInsert is the payload for a note.insert event.
type NoteInsert struct {
	NoteID    string `json:"note_id"`
	SourceURL string `json:"source_url"`
	Content   string `json:"content,omitempty"`
}

func (p NoteInsert) Kind() string { return KindNoteInsert }

func (p NoteInsert) validate() error {
	switch {
	case p.NoteID == "":
		return &ValidationError{Kind: p.Kind(), Field: "note_id", Reason: "must not be empty"}
	case p.SourceURL == "":
		return &ValidationError{Kind: p.Kind(), Field: "source_url", Reason: "must not be empty"}
	}
	return nil
}

// ParticipationInsert is the payload for a participation.insert event.
type ParticipationInsert struct {
	SubjectID       string     `json:"subject_id"`
	SourceDomain    string     `json:"source_domain"`
	SourceURL       string     `json:"source_url"`
	Verified        bool       `json:"verified"`
	DiscoveryMethod string     `json:"discovery_method,omitempty"`
	DiscoveredAt    *time.Time `json:"discovered_at,omitempty"`
}

func (p ParticipationInsert) Kind() string { return KindParticipationInsert }

func (p ParticipationInsert) validate() error {
	switch {
	case p.SubjectID == "":
		return &ValidationError{Kind: p.Kind(), Field: "subject_id", Reason: "must not be empty"}
	case p.SourceDomain == "":
		return &ValidationError{Kind: p.Kind(), Field: "source_domain", Reason: "must not be empty"}
	case p.SourceURL == "":
		return &ValidationError{Kind: p.Kind(), Field: "source_url", Reason: "must not be empty"}
	}
	return nil
}

// Parse decodes and validates the payload document for the given event kind.
// It returns ErrUnknownKind for kinds this build does not recognize, and a
// *ValidationError when the document is malformed or a required field is
// missing or empty.
func Parse(kind string, payload []byte) (Payload, error) {
	switch kind {
	case KindRelationshipInsert:
		var p RelationshipInsert
		if err := decode(kind, payload, &p); err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil

	case KindNoteInsert:
		var p NoteInsert
		if err := decode(kind, payload, &p); err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil

	case KindParticipationInsert:
		var p ParticipationInsert
		if err := decode(kind, payload, &p); err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func decode(kind string, payload []byte, into any) error {
	if err := json.Unmarshal(payload, into); err != nil {
		return &ValidationError{Kind: kind, Field: "payload", Reason: fmt.Sprintf("not a valid document: %v", err)}
	}
	return nil
}

package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RelationshipInsert(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		payload := []byte(`{"subject":"Ada","predicate":"knows","object":"Grace"}`)

		p, err := Parse(KindRelationshipInsert, payload)
		require.NoError(t, err)

		rel, ok := p.(RelationshipInsert)
		require.True(t, ok)
		assert.Equal(t, "Ada", rel.Subject)
		assert.Equal(t, "knows", rel.Predicate)
		assert.Equal(t, "Grace", rel.Object)
	})

	t.Run("missing required fields", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
			field   string
		}{
			{"empty subject", `{"subject":"","predicate":"knows","object":"B"}`, "subject"},
			{"absent subject", `{"predicate":"knows","object":"B"}`, "subject"},
			{"empty predicate", `{"subject":"A","predicate":"","object":"B"}`, "predicate"},
			{"empty object", `{"subject":"A","predicate":"knows","object":""}`, "object"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Parse(KindRelationshipInsert, []byte(tt.payload))
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.field, vErr.Field)
				assert.Equal(t, KindRelationshipInsert, vErr.Kind)
			})
		}
	})
}

func TestParse_NoteInsert(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		payload := []byte(`{"note_id":"n-1","source_url":"https://example.com/a","content":"observed"}`)

		p, err := Parse(KindNoteInsert, payload)
		require.NoError(t, err)

		note, ok := p.(NoteInsert)
		require.True(t, ok)
		assert.Equal(t, "n-1", note.NoteID)
		assert.Equal(t, "https://example.com/a", note.SourceURL)
		assert.Equal(t, "observed", note.Content)
	})

	t.Run("content is optional", func(t *testing.T) {
		p, err := Parse(KindNoteInsert, []byte(`{"note_id":"n-1","source_url":"https://example.com/a"}`))
		require.NoError(t, err)
		assert.Empty(t, p.(NoteInsert).Content)
	})

	t.Run("missing source_url", func(t *testing.T) {
		_, err := Parse(KindNoteInsert, []byte(`{"note_id":"n-1"}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "source_url", vErr.Field)
	})
}

func TestParse_ParticipationInsert(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		payload := []byte(`{
			"subject_id": "item-42",
			"source_domain": "example.com",
			"source_url": "https://example.com/list",
			"verified": true,
			"discovery_method": "crawl",
			"discovered_at": "2026-03-01T12:00:00Z"
		}`)

		p, err := Parse(KindParticipationInsert, payload)
		require.NoError(t, err)

		part, ok := p.(ParticipationInsert)
		require.True(t, ok)
		assert.Equal(t, "item-42", part.SubjectID)
		assert.Equal(t, "example.com", part.SourceDomain)
		assert.Equal(t, "https://example.com/list", part.SourceURL)
		assert.True(t, part.Verified)
		assert.Equal(t, "crawl", part.DiscoveryMethod)
		require.NotNil(t, part.DiscoveredAt)
		assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), part.DiscoveredAt.UTC())
	})

	t.Run("discovery metadata is optional", func(t *testing.T) {
		payload := []byte(`{"subject_id":"item-42","source_domain":"example.com","source_url":"https://example.com/x"}`)

		p, err := Parse(KindParticipationInsert, payload)
		require.NoError(t, err)

		part := p.(ParticipationInsert)
		assert.False(t, part.Verified)
		assert.Empty(t, part.DiscoveryMethod)
		assert.Nil(t, part.DiscoveredAt)
	})

	t.Run("missing source_domain", func(t *testing.T) {
		_, err := Parse(KindParticipationInsert, []byte(`{"subject_id":"item-42","source_url":"https://example.com/x"}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "source_domain", vErr.Field)
	})
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse("unknown.future_kind", []byte(`{"anything":"goes"}`))
	require.ErrorIs(t, err, ErrUnknownKind)

	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr), "unknown kinds are not validation failures")
}

func TestParse_MalformedDocument(t *testing.T) {
	_, err := Parse(KindRelationshipInsert, []byte(`{"subject": `))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "payload", vErr.Field)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Kind: KindNoteInsert, Field: "note_id", Reason: "must not be empty"}
	assert.Equal(t, `invalid note.insert payload: field "note_id" must not be empty`, err.Error())
}

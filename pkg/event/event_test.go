package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicflow/notifier/pkg/event"
)

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid event", func(t *testing.T) {
		t.Parallel()

		ev := event.Event{
			Type:     event.TypeComplaintCreated,
			EntityID: "complaint-1",
		}
		require.NoError(t, ev.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		ev := event.Event{Type: "complaint_deleted", EntityID: "complaint-1"}
		assert.ErrorIs(t, ev.Validate(), event.ErrUnknownEventType)
	})

	t.Run("missing entity id", func(t *testing.T) {
		t.Parallel()

		ev := event.Event{Type: event.TypeResolved}
		assert.ErrorIs(t, ev.Validate(), event.ErrMissingEntityID)
	})
}

func TestEvent_Field(t *testing.T) {
	t.Parallel()

	ev := event.Event{
		Type:     event.TypeStatusChanged,
		EntityID: "complaint-42",
		ActorID:  "officer-7",
		Context: map[string]string{
			"old_status": "open",
			"new_status": "in_progress",
		},
	}

	t.Run("context field", func(t *testing.T) {
		t.Parallel()

		v, ok := ev.Field("new_status")
		require.True(t, ok)
		assert.Equal(t, "in_progress", v)
	})

	t.Run("reserved fields", func(t *testing.T) {
		t.Parallel()

		v, ok := ev.Field("entity_id")
		require.True(t, ok)
		assert.Equal(t, "complaint-42", v)

		v, ok = ev.Field("actor_id")
		require.True(t, ok)
		assert.Equal(t, "officer-7", v)
	})

	t.Run("absent field", func(t *testing.T) {
		t.Parallel()

		_, ok := ev.Field("priority")
		assert.False(t, ok)
	})

	t.Run("nil context", func(t *testing.T) {
		t.Parallel()

		bare := event.Event{Type: event.TypeAssigned, EntityID: "c-1"}
		_, ok := bare.Field("department")
		assert.False(t, ok)
	})
}

func TestType_Valid(t *testing.T) {
	t.Parallel()

	for _, typ := range []event.Type{
		event.TypeComplaintCreated,
		event.TypeStatusChanged,
		event.TypeCommentAdded,
		event.TypeAssigned,
		event.TypeResolved,
		event.TypeRejected,
	} {
		assert.True(t, typ.Valid(), "expected %q to be valid", typ)
	}

	assert.False(t, event.Type("").Valid())
	assert.False(t, event.Type("escalated").Valid())
}

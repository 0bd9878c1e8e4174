package event

import (
	"time"
)

// Type identifies a domain occurrence that may trigger notifications.
type Type string

const (
	TypeComplaintCreated Type = "complaint_created"
	TypeStatusChanged    Type = "status_changed"
	TypeCommentAdded     Type = "comment_added"
	TypeAssigned         Type = "assigned"
	TypeResolved         Type = "resolved"
	TypeRejected         Type = "rejected"
)

// Valid reports whether t is one of the known event types.
func (t Type) Valid() bool {
	switch t {
	case TypeComplaintCreated, TypeStatusChanged, TypeCommentAdded,
		TypeAssigned, TypeResolved, TypeRejected:
		return true
	}
	return false
}

// Event is a domain occurrence published by the complaint/chat subsystems.
// Context carries event-specific fields as a flat string map; it is both the
// input to rule condition evaluation and the variable source for template
// rendering, and is snapshotted onto every queued notification for replay.
type Event struct {
	Type       Type              `json:"type"`
	EntityID   string            `json:"entity_id"`
	ActorID    string            `json:"actor_id"`
	Context    map[string]string `json:"context,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Field returns the named context field and whether it is present.
// EntityID and ActorID are addressable as the reserved fields
// "entity_id" and "actor_id".
func (e Event) Field(name string) (string, bool) {
	switch name {
	case "entity_id":
		return e.EntityID, true
	case "actor_id":
		return e.ActorID, true
	}
	v, ok := e.Context[name]
	return v, ok
}

// Validate checks that the event is well-formed for ingestion.
func (e Event) Validate() error {
	if !e.Type.Valid() {
		return ErrUnknownEventType
	}
	if e.EntityID == "" {
		return ErrMissingEntityID
	}
	return nil
}

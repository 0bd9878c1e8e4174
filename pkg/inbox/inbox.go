// Package inbox is the in-app message center: notifications delivered on the
// in-app channel land here and are read back by the HTTP API. Read state
// lives with the message, not with the dispatch queue.
package inbox

import (
	"time"
)

// Message is a stored in-app notification.
type Message struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// MarkAsRead marks the message as read with the current timestamp.
func (m *Message) MarkAsRead() {
	m.Read = true
	now := time.Now()
	m.ReadAt = &now
}

// ListOptions filters inbox listings.
type ListOptions struct {
	Limit      int  // Maximum number of messages to return (0 = no limit)
	Offset     int  // Number of messages to skip for pagination
	OnlyUnread bool // When true, only return unread messages
}

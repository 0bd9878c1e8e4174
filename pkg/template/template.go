package template

import (
	"slices"
	"time"
)

// Channel identifies a delivery transport.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelInApp   Channel = "in-app"
	ChannelWebhook Channel = "webhook"
)

// Channels lists all known channels.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp, ChannelWebhook}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return slices.Contains(Channels, c)
}

// SupportsHTML reports whether the channel may carry an HTML body.
func (c Channel) SupportsHTML() bool {
	return c == ChannelEmail || c == ChannelWebhook
}

// Subjectless reports whether the channel renders to a body-only message.
func (c Channel) Subjectless() bool {
	return c == ChannelSMS || c == ChannelPush
}

// NotificationType categorizes a notification for per-user category opt-in.
type NotificationType string

const (
	TypeStatusChange NotificationType = "status-change"
	TypeComment      NotificationType = "comment"
	TypeSystemAlert  NotificationType = "system-alert"
	TypeMarketing    NotificationType = "marketing"
	TypeReminder     NotificationType = "reminder"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeStatusChange, TypeComment, TypeSystemAlert, TypeMarketing, TypeReminder:
		return true
	}
	return false
}

// Template is the authored source for a rendered message. Once a queued
// notification references a template the rendered text is stored on the row,
// so later edits never change already-queued items.
type Template struct {
	ID                 string           `json:"id"`
	Type               NotificationType `json:"type"`
	Channel            Channel          `json:"channel"`
	SubjectTemplate    string           `json:"subject_template"`
	BodyTemplate       string           `json:"body_template"`
	HTMLTemplate       string           `json:"html_template,omitempty"`
	AvailableVariables []string         `json:"available_variables,omitempty"`
	Language           string           `json:"language"`
	IsActive           bool             `json:"is_active"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Declares reports whether the template declares the named variable.
func (t Template) Declares(name string) bool {
	return slices.Contains(t.AvailableVariables, name)
}

// Validate checks authoring invariants: known channel and type, and every
// placeholder referenced by the subject, body, or HTML template must be
// declared in AvailableVariables.
func (t Template) Validate() error {
	if !t.Channel.Valid() {
		return ErrInvalidChannel
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.BodyTemplate == "" {
		return ErrBodyRequired
	}
	if t.HTMLTemplate != "" && !t.Channel.SupportsHTML() {
		return ErrHTMLNotSupported
	}

	for _, src := range []string{t.SubjectTemplate, t.BodyTemplate, t.HTMLTemplate} {
		for _, name := range placeholders(src) {
			if !t.Declares(name) {
				return &UndeclaredVariableError{Variable: name}
			}
		}
	}
	return nil
}

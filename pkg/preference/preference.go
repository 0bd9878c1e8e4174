package preference

import (
	"time"

	"github.com/civicflow/notifier/pkg/template"
)

// Preference is the per-user notification configuration. The zero value is
// not meaningful; use Default for the permissive fallback applied to users
// without a stored record.
type Preference struct {
	UserID string `json:"user_id"`

	// Channel opt-ins.
	EmailEnabled   bool `json:"email_enabled"`
	SMSEnabled     bool `json:"sms_enabled"`
	PushEnabled    bool `json:"push_enabled"`
	InAppEnabled   bool `json:"in_app_enabled"`
	WebhookEnabled bool `json:"webhook_enabled"`

	// Category opt-ins.
	StatusChangeEnabled bool `json:"status_change_enabled"`
	CommentEnabled      bool `json:"comment_enabled"`
	SystemAlertEnabled  bool `json:"system_alert_enabled"`
	MarketingEnabled    bool `json:"marketing_enabled"`
	ReminderEnabled     bool `json:"reminder_enabled"`

	// Quiet hours as local "HH:MM" times; both must be set for the window
	// to apply. A window with start > end wraps across midnight.
	QuietHoursStart string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`

	// Timezone is the IANA zone name quiet hours are evaluated in.
	// Unset or unknown zones fall back to UTC.
	Timezone string `json:"timezone,omitempty"`

	// DailyCaps bounds sends per channel per day; a missing or zero entry
	// means uncapped.
	DailyCaps map[template.Channel]int `json:"daily_caps,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Default returns the permissive preference applied when no record exists.
func Default(userID string) Preference {
	return Preference{
		UserID:              userID,
		EmailEnabled:        true,
		SMSEnabled:          true,
		PushEnabled:         true,
		InAppEnabled:        true,
		WebhookEnabled:      true,
		StatusChangeEnabled: true,
		CommentEnabled:      true,
		SystemAlertEnabled:  true,
		MarketingEnabled:    true,
		ReminderEnabled:     true,
	}
}

// ChannelEnabled reports whether the user accepts the channel.
func (p Preference) ChannelEnabled(ch template.Channel) bool {
	switch ch {
	case template.ChannelEmail:
		return p.EmailEnabled
	case template.ChannelSMS:
		return p.SMSEnabled
	case template.ChannelPush:
		return p.PushEnabled
	case template.ChannelInApp:
		return p.InAppEnabled
	case template.ChannelWebhook:
		return p.WebhookEnabled
	}
	return false
}

// CategoryEnabled reports whether the user accepts the notification type.
func (p Preference) CategoryEnabled(t template.NotificationType) bool {
	switch t {
	case template.TypeStatusChange:
		return p.StatusChangeEnabled
	case template.TypeComment:
		return p.CommentEnabled
	case template.TypeSystemAlert:
		return p.SystemAlertEnabled
	case template.TypeMarketing:
		return p.MarketingEnabled
	case template.TypeReminder:
		return p.ReminderEnabled
	}
	return false
}

// DailyCap returns the per-day cap for the channel; zero means uncapped.
func (p Preference) DailyCap(ch template.Channel) int {
	return p.DailyCaps[ch]
}

// Location returns the user's timezone, falling back to UTC for unset or
// unparseable zone names.
func (p Preference) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Package recipient expands a rule's abstract recipient policy into concrete
// user identities at dispatch time. An unresolvable policy (for example
// department-officer on an entity with no department) yields an empty set,
// never an error: the pipeline continues with zero recipients.
package recipient

import (
	"github.com/civicflow/notifier/pkg/template"
)

// User is a directory entry: who a notification can be addressed to and how.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DeviceToken string `json:"device_token,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
	IsOfficer   bool   `json:"is_officer"`
	IsAdmin     bool   `json:"is_admin"`
}

// Address returns the delivery address for the channel and whether the user
// has one. In-app delivery is addressed by user id.
func (u User) Address(ch template.Channel) (string, bool) {
	switch ch {
	case template.ChannelEmail:
		return u.Email, u.Email != ""
	case template.ChannelSMS:
		return u.Phone, u.Phone != ""
	case template.ChannelPush:
		return u.DeviceToken, u.DeviceToken != ""
	case template.ChannelWebhook:
		return u.WebhookURL, u.WebhookURL != ""
	case template.ChannelInApp:
		return u.ID, u.ID != ""
	}
	return "", false
}

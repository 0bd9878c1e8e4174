package rule

import (
	"time"

	"github.com/civicflow/notifier/pkg/event"
)

// RecipientPolicy describes who should receive a notification. The policy is
// abstract at authoring time and resolved against the directory at dispatch
// time.
type RecipientPolicy string

const (
	PolicyEventSubject      RecipientPolicy = "event-subject"
	PolicyDepartmentOfficer RecipientPolicy = "department-officer"
	PolicyAllOfficers       RecipientPolicy = "all-officers"
	PolicyAdmins            RecipientPolicy = "admins"
	PolicyCustomList        RecipientPolicy = "custom-list"
)

// Valid reports whether p is a known recipient policy.
func (p RecipientPolicy) Valid() bool {
	switch p {
	case PolicyEventSubject, PolicyDepartmentOfficer, PolicyAllOfficers,
		PolicyAdmins, PolicyCustomList:
		return true
	}
	return false
}

// Rule maps a trigger event to a template and recipient policy, guarded by
// conditions. A rule whose template cannot be resolved is inert, not an error.
type Rule struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	TriggerEvent      event.Type      `json:"trigger_event"`
	TemplateID        string          `json:"template_id"`
	Conditions        []Condition     `json:"conditions,omitempty"`
	RecipientPolicy   RecipientPolicy `json:"recipient_policy"`
	CustomRecipients  []string        `json:"custom_recipients,omitempty"`
	DelayMinutes      int             `json:"delay_minutes"`
	MaxFrequencyHours int             `json:"max_frequency_hours"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Delay returns the configured enqueue delay as a duration.
func (r Rule) Delay() time.Duration {
	return time.Duration(r.DelayMinutes) * time.Minute
}

// FrequencyWindow returns the dedup window as a duration; zero means no cap.
func (r Rule) FrequencyWindow() time.Duration {
	return time.Duration(r.MaxFrequencyHours) * time.Hour
}

// Matches reports whether every condition of the rule holds against the
// event. A rule with no conditions matches unconditionally. Matches does not
// check TriggerEvent or IsActive; Select does.
func (r Rule) Matches(ev event.Event) bool {
	for _, c := range r.Conditions {
		if !c.Holds(ev) {
			return false
		}
	}
	return true
}

// Validate checks authoring invariants.
func (r Rule) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if !r.TriggerEvent.Valid() {
		return ErrInvalidTrigger
	}
	if r.TemplateID == "" {
		return ErrTemplateRequired
	}
	if !r.RecipientPolicy.Valid() {
		return ErrInvalidPolicy
	}
	if r.RecipientPolicy == PolicyCustomList && len(r.CustomRecipients) == 0 {
		return ErrEmptyCustomList
	}
	if r.DelayMinutes < 0 {
		return ErrNegativeDelay
	}
	if r.MaxFrequencyHours < 0 {
		return ErrNegativeFrequency
	}
	for _, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Select returns the subset of rules that are active, triggered by the
// event's type, and whose conditions all hold against the event payload.
func Select(rules []Rule, ev event.Event) []Rule {
	var matched []Rule
	for _, r := range rules {
		if !r.IsActive || r.TriggerEvent != ev.Type {
			continue
		}
		if r.Matches(ev) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Package attendee holds the registrations of every event: the store they
// live in, the filter engine the dashboard queries them through, and the
// CSV import/export.
package attendee

import (
	"strings"
	"time"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// DefaultTicketType is used when an imported row leaves the ticket type
// blank.
const DefaultTicketType = "regular"

// One person's registration for one event. Optional text fields are
// treated as absent when empty.
type Attendee struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`

	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	JobTitle string `json:"jobTitle,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedIn,omitempty"`
	Photo    string `json:"photo,omitempty"`

	TicketType   string    `json:"ticketType"`
	PurchaseDate time.Time `json:"purchaseDate"`
	Status       Status    `json:"status"`
	CheckedIn    bool      `json:"checkedIn"`

	Tags         []string          `json:"tags"`
	Group        string            `json:"group,omitempty"`
	CustomFields map[string]string `json:"customFields"`
}

// Clone returns a copy that shares no slices or maps with a.
func (a Attendee) Clone() Attendee {
	if a.Tags != nil {
		tags := make([]string, len(a.Tags))
		copy(tags, a.Tags)
		a.Tags = tags
	}
	if a.CustomFields != nil {
		fields := make(map[string]string, len(a.CustomFields))
		for k, v := range a.CustomFields {
			fields[k] = v
		}
		a.CustomFields = fields
	}
	return a
}

// HasTag reports whether the tag is present, ignoring case.
func (a Attendee) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// newRegistration applies the values every freshly created attendee starts
// with, whatever the caller sent for them.
func newRegistration(a Attendee, eventID string, now time.Time) Attendee {
	a = a.Clone()
	a.ID = ""
	a.EventID = eventID
	a.Status = StatusPending
	a.CheckedIn = false
	a.PurchaseDate = now.UTC()
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.CustomFields == nil {
		a.CustomFields = map[string]string{}
	}
	return a
}

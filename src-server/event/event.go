// Package event holds the events attendees register for.
package event

import (
	"strings"
	"time"

	"evhub/src-server/apperr"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Event struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	OrganizerID  string    `json:"organizerId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	Status       Status    `json:"status"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	RRule        string    `json:"rrule,omitempty"`
	Capacity     int       `json:"capacity,omitempty"`
	ReminderSent bool      `json:"reminderSent"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (e Event) validate() error {
	switch {
	case strings.TrimSpace(e.Title) == "":
		return apperr.Validation("Event title is required")
	case e.Start.IsZero():
		return apperr.Validation("Event start date is required")
	case !e.End.IsZero() && e.End.Before(e.Start):
		return apperr.Validation("Event must end after it starts")
	case !e.Status.Valid():
		return apperr.Validation("Invalid event status %q", e.Status)
	case e.Capacity < 0:
		return apperr.Validation("Capacity can't be negative")
	}
	return nil
}

// Patch lists the fields an update may change; nil fields are kept.
type Patch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	RRule       *string    `json:"rrule,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
}

func (p Patch) apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Start != nil {
		// moving the start alone keeps the event's length
		if p.End == nil && !e.End.IsZero() {
			e.End = e.End.Add(p.Start.Sub(e.Start))
		}
		e.Start = *p.Start
		e.ReminderSent = false
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.RRule != nil {
		e.RRule = *p.RRule
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
}

// ListOptions narrows List. Zero values match everything; From and To
// bound the start date inclusively.
type ListOptions struct {
	TenantID    string
	OrganizerID string
	Status      Status
	From        time.Time
	To          time.Time
}

func (o ListOptions) match(e Event) bool {
	switch {
	case o.TenantID != "" && e.TenantID != o.TenantID:
		return false
	case o.OrganizerID != "" && e.OrganizerID != o.OrganizerID:
		return false
	case o.Status != "" && e.Status != o.Status:
		return false
	case !o.From.IsZero() && e.Start.Before(o.From):
		return false
	case !o.To.IsZero() && e.Start.After(o.To):
		return false
	}
	return true
}

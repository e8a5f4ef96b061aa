package event

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"evhub/src-server/attendee"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultUpcomingLimit = 5

type Service struct {
	store     Store
	attendees attendee.Store
	now       func() time.Time
	newID     func() string
}

func NewService(store Store, attendees attendee.Store) *Service {
	return &Service{
		store:     store,
		attendees: attendees,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create stores a new event. The id and timestamps are assigned here and
// a blank status means draft.
func (s *Service) Create(ctx context.Context, e Event) (Event, error) {
	e.ID = s.newID()
	if e.Status == "" {
		e.Status = StatusDraft
	}
	now := s.now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.ReminderSent = false
	if err := e.validate(); err != nil {
		return Event{}, fmt.Errorf("(*Service).Create: %w", err)
	}
	if err := ValidateRRule(e.Start, e.RRule); err != nil {
		return Event{}, fmt.Errorf("(*Service).Create: %w", err)
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return Event{}, fmt.Errorf("(*Service).Create: %w", err)
	}
	slog.Info("event created", "event_id", e.ID, "title", e.Title)
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	return s.store.List(ctx, opts)
}

func (s *Service) Update(ctx context.Context, id string, patch Patch) (Event, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("(*Service).Update: %w", err)
	}
	patch.apply(&e)
	e.UpdatedAt = s.now().UTC()
	if err := e.validate(); err != nil {
		return Event{}, fmt.Errorf("(*Service).Update: %w", err)
	}
	if err := ValidateRRule(e.Start, e.RRule); err != nil {
		return Event{}, fmt.Errorf("(*Service).Update: %w", err)
	}
	if err := s.store.Save(ctx, e); err != nil {
		return Event{}, fmt.Errorf("(*Service).Update: %w", err)
	}
	return e, nil
}

// Delete removes an event; deleting an unknown id is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("(*Service).Delete: %w", err)
	}
	return nil
}

// Upcoming lists events that still have an occurrence after now, soonest
// first. Recurring events are returned with Start and End moved to their
// next occurrence. A limit of zero or less means DefaultUpcomingLimit.
func (s *Service) Upcoming(ctx context.Context, now time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	all, err := s.store.List(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("(*Service).Upcoming: %w", err)
	}

	result := make([]Event, 0)
	for _, e := range all {
		if e.Status == StatusCancelled {
			continue
		}
		occurrence, ok, err := at(e, now)
		if err != nil {
			slog.Warn("skipping event with a broken rrule", "event_id", e.ID, "error", err)
			continue
		}
		if ok {
			result = append(result, occurrence)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// at shifts e to its next occurrence after now.
func at(e Event, now time.Time) (Event, bool, error) {
	next, ok, err := NextOccurrence(e, now)
	if err != nil || !ok {
		return Event{}, false, err
	}
	if !e.End.IsZero() {
		e.End = next.Add(e.End.Sub(e.Start))
	}
	e.Start = next
	return e, true, nil
}

// Search matches q against titles and descriptions, ignoring case. An
// empty query matches every event.
func (s *Service) Search(ctx context.Context, q string) ([]Event, error) {
	all, err := s.store.List(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("(*Service).Search: %w", err)
	}
	lower := cases.Lower(language.Und)
	needle := lower.String(q)

	result := make([]Event, 0)
	for _, e := range all {
		if strings.Contains(lower.String(e.Title), needle) ||
			strings.Contains(lower.String(e.Description), needle) {
			result = append(result, e)
		}
	}
	return result, nil
}

type Stats struct {
	TotalAttendees int            `json:"totalAttendees"`
	Confirmed      int            `json:"confirmed"`
	Pending        int            `json:"pending"`
	Cancelled      int            `json:"cancelled"`
	CheckedIn      int            `json:"checkedIn"`
	ByTicketType   map[string]int `json:"byTicketType"`
	// only set when the event has a capacity
	SeatsLeft *int `json:"seatsLeft,omitempty"`
}

// Stats counts the event's registrations. Cancelled registrations don't
// take a seat.
func (s *Service) Stats(ctx context.Context, id string) (Stats, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Stats{}, fmt.Errorf("(*Service).Stats: %w", err)
	}
	attendees, err := s.attendees.List(ctx, id)
	if err != nil {
		return Stats{}, fmt.Errorf("(*Service).Stats: %w", err)
	}

	stats := Stats{TotalAttendees: len(attendees), ByTicketType: make(map[string]int)}
	for _, a := range attendees {
		switch a.Status {
		case attendee.StatusConfirmed:
			stats.Confirmed++
		case attendee.StatusPending:
			stats.Pending++
		case attendee.StatusCancelled:
			stats.Cancelled++
		}
		if a.CheckedIn {
			stats.CheckedIn++
		}
		stats.ByTicketType[a.TicketType]++
	}
	if e.Capacity > 0 {
		left := e.Capacity - stats.Confirmed - stats.Pending
		if left < 0 {
			left = 0
		}
		stats.SeatsLeft = &left
	}
	return stats, nil
}

// DueReminders returns published events whose next occurrence starts within
// lead of now and whose reminder hasn't gone out yet.
func (s *Service) DueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]Event, error) {
	published, err := s.store.List(ctx, ListOptions{Status: StatusPublished})
	if err != nil {
		return nil, fmt.Errorf("(*Service).DueReminders: %w", err)
	}
	result := make([]Event, 0)
	for _, e := range published {
		if e.ReminderSent {
			continue
		}
		occurrence, ok, err := at(e, now)
		if err != nil {
			slog.Warn("skipping event with a broken rrule", "event_id", e.ID, "error", err)
			continue
		}
		if ok && !occurrence.Start.After(now.Add(lead)) {
			result = append(result, occurrence)
		}
	}
	return result, nil
}

func (s *Service) MarkReminded(ctx context.Context, id string) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("(*Service).MarkReminded: %w", err)
	}
	e.ReminderSent = true
	if err := s.store.Save(ctx, e); err != nil {
		return fmt.Errorf("(*Service).MarkReminded: %w", err)
	}
	return nil
}

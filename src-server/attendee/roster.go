package attendee

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"evhub/src-server/apperr"
	"evhub/src-server/messenger"
	"evhub/src-server/notify"
)

// Roster is one dashboard's view of one event's attendees: the loaded
// list, the filter controls, the selection and the actions. Every action
// reports its outcome on the notifier and returns the error, whose message
// is fit for display through apperr.Message.
type Roster struct {
	eventID  string
	store    Store
	notifier notify.Notifier
	sender   messenger.Sender
	now      func() time.Time

	mu        sync.Mutex
	loading   bool
	attendees []Attendee
	selected  []string
	filter    Filter
}

type RosterOption func(*Roster)

func WithClock(now func() time.Time) RosterOption {
	return func(r *Roster) { r.now = now }
}

func WithSender(sender messenger.Sender) RosterOption {
	return func(r *Roster) { r.sender = sender }
}

func NewRoster(eventID string, store Store, notifier notify.Notifier, opts ...RosterOption) *Roster {
	r := &Roster{
		eventID:   eventID,
		store:     store,
		notifier:  notifier,
		sender:    messenger.NewLogSender(),
		now:       time.Now,
		attendees: []Attendee{},
		selected:  []string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Roster) EventID() string {
	return r.eventID
}

// Load refreshes the attendee list from the store. A failure is reported on
// the notifier only; the previous list is kept.
func (r *Roster) Load(ctx context.Context) {
	if r.eventID == "" {
		return
	}
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	data, err := r.store.List(ctx, r.eventID)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if err != nil {
		slog.Error("can't load attendees", "event_id", r.eventID, "error", err)
		r.notifier.Notify(notify.LevelError, "Failed to load attendees")
		return
	}
	r.attendees = data
}

func (r *Roster) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Attendees is the loaded list narrowed by the current filter.
func (r *Roster) Attendees() []Attendee {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter.Apply(r.attendees)
}

func (r *Roster) Filter() Filter {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.filter
	f.Conditions = append([]Condition(nil), r.filter.Conditions...)
	return f
}

func (r *Roster) SetFilter(f Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Conditions = append([]Condition(nil), f.Conditions...)
	r.filter = f
}

func (r *Roster) SetSearchTerm(term string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter.Search = term
}

func (r *Roster) SetStatusFilter(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter.Status = status
}

func (r *Roster) SetTicketFilter(ticketType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter.TicketType = ticketType
}

func (r *Roster) SetGroupFilter(group string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter.Group = group
}

func (r *Roster) SetAdvancedFilters(conditions []Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter.Conditions = append([]Condition(nil), conditions...)
}

func (r *Roster) Selected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.selected...)
}

func (r *Roster) ToggleSelection(attendeeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range r.selected {
		if id == attendeeID {
			r.selected = append(r.selected[:i:i], r.selected[i+1:]...)
			return
		}
	}
	r.selected = append(r.selected, attendeeID)
}

// SelectAll selects every loaded attendee, filtered out or not.
func (r *Roster) SelectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = make([]string, 0, len(r.attendees))
	for _, a := range r.attendees {
		r.selected = append(r.selected, a.ID)
	}
}

func (r *Roster) DeselectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = []string{}
}

// AddAttendee registers a new attendee for the roster's event. Status,
// check-in and purchase date are always reset to their starting values.
func (r *Roster) AddAttendee(ctx context.Context, data Attendee) (Attendee, error) {
	added, err := r.store.Add(ctx, newRegistration(data, r.eventID, r.now()))
	if err != nil {
		r.notifier.Notify(notify.LevelError, "Failed to add attendee")
		return Attendee{}, fmt.Errorf("(*Roster).AddAttendee: %w", err)
	}

	r.mu.Lock()
	r.attendees = append(r.attendees, added)
	r.mu.Unlock()
	r.notifier.Notify(notify.LevelSuccess, "Attendee added successfully")
	return added, nil
}

// ImportAttendees reads a CSV file and adds every usable row, then reloads.
func (r *Roster) ImportAttendees(ctx context.Context, file io.Reader) (int, error) {
	count, err := func() (int, error) {
		toImport, err := ParseCSV(file, r.eventID, r.now())
		if err != nil {
			return 0, err
		}
		return r.store.BulkImport(ctx, toImport)
	}()
	if err != nil {
		r.notifier.Notify(notify.LevelError, apperr.Message(err, "Failed to import attendees"))
		return count, fmt.Errorf("(*Roster).ImportAttendees: %w", err)
	}

	r.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Imported %d attendees", count))
	r.Load(ctx)
	return count, nil
}

// ExportAttendees writes attendees as CSV and returns the download name.
func (r *Roster) ExportAttendees(w io.Writer, attendees []Attendee) (string, error) {
	if err := WriteCSV(w, attendees); err != nil {
		r.notifier.Notify(notify.LevelError, "Failed to export attendees")
		return "", fmt.Errorf("(*Roster).ExportAttendees: %w", err)
	}
	r.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Exported %d attendees", len(attendees)))
	return ExportFilename(r.eventID, r.now()), nil
}

// SendBulkMessage delivers one message to the given loaded attendees.
// Unknown ids are skipped.
func (r *Roster) SendBulkMessage(ctx context.Context, attendeeIDs []string, subject, body string) error {
	r.mu.Lock()
	byID := make(map[string]Attendee, len(r.attendees))
	for _, a := range r.attendees {
		byID[a.ID] = a
	}
	r.mu.Unlock()

	recipients := make([]messenger.Recipient, 0, len(attendeeIDs))
	for _, id := range attendeeIDs {
		if a, ok := byID[id]; ok {
			recipients = append(recipients, messenger.Recipient{Name: a.Name, Email: a.Email})
		}
	}

	if err := r.sender.Send(ctx, messenger.Message{
		EventID:    r.eventID,
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
	}); err != nil {
		r.notifier.Notify(notify.LevelError, "Failed to send messages")
		return fmt.Errorf("(*Roster).SendBulkMessage: %w", err)
	}
	r.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Message sent to %d attendees", len(attendeeIDs)))
	return nil
}

func (r *Roster) SetStatus(ctx context.Context, attendeeID string, status Status) (Attendee, error) {
	return r.update(ctx, attendeeID, func(a *Attendee) { a.Status = status }, "Failed to update attendee status")
}

func (r *Roster) SetCheckedIn(ctx context.Context, attendeeID string, checkedIn bool) (Attendee, error) {
	return r.update(ctx, attendeeID, func(a *Attendee) { a.CheckedIn = checkedIn }, "Failed to update check-in")
}

// Replace swaps a whole attendee record.
func (r *Roster) Replace(ctx context.Context, a Attendee) (Attendee, error) {
	return r.update(ctx, a.ID, func(stored *Attendee) {
		id := stored.ID
		*stored = a.Clone()
		stored.ID = id
	}, "Failed to update attendee")
}

func (r *Roster) update(ctx context.Context, attendeeID string, change func(*Attendee), failure string) (Attendee, error) {
	updated, err := func() (Attendee, error) {
		a, err := r.store.Get(ctx, attendeeID)
		if err != nil {
			return Attendee{}, err
		}
		if a.EventID != r.eventID {
			return Attendee{}, apperr.NotFound("Attendee not found")
		}
		change(&a)
		return r.store.Update(ctx, a)
	}()
	if err != nil {
		r.notifier.Notify(notify.LevelError, apperr.Message(err, failure))
		return Attendee{}, fmt.Errorf("(*Roster).update: %w", err)
	}

	r.mu.Lock()
	for i := range r.attendees {
		if r.attendees[i].ID == updated.ID {
			r.attendees[i] = updated
		}
	}
	r.mu.Unlock()
	r.notifier.Notify(notify.LevelSuccess, "Attendee updated")
	return updated, nil
}

package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"evhub/src-server/attendee"
	"evhub/src-server/event"
	"evhub/src-server/messenger"
)

type brokenSender struct{}

func (brokenSender) Send(ctx context.Context, msg messenger.Message) error {
	return errors.New("discord is down")
}

type setup struct {
	reminder reminder
	log      *messenger.LogSender
	now      time.Time
}

func newSetup(t *testing.T) setup {
	t.Helper()
	attendees := attendee.NewMemoryStore()
	log := messenger.NewLogSender()
	return setup{
		reminder: reminder{
			events:    event.NewService(event.NewMemoryStore(), attendees),
			attendees: attendees,
			sender:    log,
			lead:      15 * time.Minute,
			loc:       time.UTC,
		},
		log: log,
		now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func (s setup) event(t *testing.T, title string, start time.Time, status event.Status) event.Event {
	t.Helper()
	e, err := s.reminder.events.Create(context.Background(), event.Event{
		Title:    title,
		Start:    start,
		End:      start.Add(time.Hour),
		Status:   status,
		Location: "Hall A",
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func (s setup) attendee(t *testing.T, eventID, name string, status attendee.Status) {
	t.Helper()
	if _, err := s.reminder.attendees.Add(context.Background(), attendee.Attendee{
		EventID:    eventID,
		Name:       name,
		Email:      strings.ToLower(name) + "@x.com",
		TicketType: "regular",
		Status:     status,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestReminderSendsToConfirmedAttendees(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	soon := s.event(t, "Keynote", s.now.Add(10*time.Minute), event.StatusPublished)
	s.attendee(t, soon.ID, "Ada", attendee.StatusConfirmed)
	s.attendee(t, soon.ID, "Bob", attendee.StatusPending)
	s.event(t, "Later", s.now.Add(2*time.Hour), event.StatusPublished)
	s.event(t, "Draft", s.now.Add(5*time.Minute), event.StatusDraft)

	if got := s.reminder.run(ctx, s.now); got != 1 {
		t.Fatalf("reminded %d events, want 1", got)
	}
	sent := s.log.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages", len(sent))
	}
	msg := sent[0]
	if msg.Subject != "Reminder: Keynote" || msg.EventID != soon.ID {
		t.Errorf("message = %+v", msg)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0].Email != "ada@x.com" {
		t.Errorf("recipients = %+v", msg.Recipients)
	}
	want := "Keynote starts at Mon, 19 Oct 2026 09:10:00 UTC.\nLocation: Hall A"
	if msg.Body != want {
		t.Errorf("body = %q", msg.Body)
	}

	// already reminded
	if got := s.reminder.run(ctx, s.now); got != 0 {
		t.Errorf("second run reminded %d", got)
	}
	if len(s.log.Sent()) != 1 {
		t.Error("reminder sent twice")
	}
}

func TestReminderWithoutConfirmedAttendees(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	e := s.event(t, "Quiet", s.now.Add(time.Minute), event.StatusPublished)

	if got := s.reminder.run(ctx, s.now); got != 1 {
		t.Fatalf("reminded %d", got)
	}
	if len(s.log.Sent()) != 0 {
		t.Error("nothing should be sent without confirmed attendees")
	}
	stored, _ := s.reminder.events.Get(ctx, e.ID)
	if !stored.ReminderSent {
		t.Error("event not marked reminded")
	}
}

func TestReminderRetriesFailedSends(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	e := s.event(t, "Keynote", s.now.Add(10*time.Minute), event.StatusPublished)
	s.attendee(t, e.ID, "Ada", attendee.StatusConfirmed)

	broken := s.reminder
	broken.sender = brokenSender{}
	if got := broken.run(ctx, s.now); got != 0 {
		t.Fatalf("reminded %d with a broken sender", got)
	}
	stored, _ := s.reminder.events.Get(ctx, e.ID)
	if stored.ReminderSent {
		t.Fatal("failed reminder must not be marked")
	}

	if got := s.reminder.run(ctx, s.now.Add(time.Minute)); got != 1 {
		t.Errorf("retry reminded %d", got)
	}
}

func TestReminderManyEvents(t *testing.T) {
	s := newSetup(t)
	for i := 0; i < 3*WORKER_COUNT; i++ {
		e := s.event(t, "Session", s.now.Add(time.Duration(i+1)*time.Minute), event.StatusPublished)
		s.attendee(t, e.ID, "Ada", attendee.StatusConfirmed)
	}
	if got := s.reminder.run(context.Background(), s.now); got != 3*WORKER_COUNT {
		t.Errorf("reminded %d", got)
	}
	if got := len(s.log.Sent()); got != 3*WORKER_COUNT {
		t.Errorf("sent %d", got)
	}
}

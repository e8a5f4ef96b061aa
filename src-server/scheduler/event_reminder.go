package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"evhub/src-server/attendee"
	"evhub/src-server/event"
	"evhub/src-server/messenger"
	"evhub/src-server/utils"
)

const (
	WORKER_COUNT     = 4
	REMINDER_TICK    = 30 * time.Second
	reminderDeadline = 20 * time.Second
)

type reminder struct {
	events    *event.Service
	attendees attendee.Store
	sender    messenger.Sender
	lead      time.Duration
	loc       *time.Location
}

// EventReminder sends a reminder to the confirmed attendees of every
// published event starting within REMINDER_LEAD_TIME, until shutdown.
func EventReminder(as *utils.AppState) {
	r := reminder{
		events:    as.Events,
		attendees: as.Attendees,
		sender:    as.Sender,
		lead:      as.Config.GetReminderLeadTime(),
		loc:       as.Config.GetLocation(),
	}
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(REMINDER_TICK)
	defer ticker.Stop()
	for {
		select {
		case <-gracefulShutdownCh:
			slog.Debug("event reminder stopped")
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), reminderDeadline)
			if sent := r.run(ctx, time.Now()); sent > 0 {
				slog.Info("event reminders sent", "events", sent)
			}
			cancel()
		}
	}
}

// run reminds every due event and returns how many were marked reminded.
func (r reminder) run(ctx context.Context, now time.Time) int {
	due, err := r.events.DueReminders(ctx, now, r.lead)
	if err != nil {
		slog.Error("can't get due reminders", "error", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	jobs := make(chan event.Event, len(due))
	for _, e := range due {
		jobs <- e
	}
	close(jobs)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for range WORKER_COUNT {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				if err := r.remind(ctx, e); err != nil {
					slog.Error("can't send event reminder", "event_id", e.ID, "error", err)
					continue
				}
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return sent
}

// remind messages the event's confirmed attendees and marks the event. A
// failed send leaves it unmarked for the next tick.
func (r reminder) remind(ctx context.Context, e event.Event) error {
	attendees, err := r.attendees.List(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("remind: %w", err)
	}
	recipients := make([]messenger.Recipient, 0, len(attendees))
	for _, a := range attendees {
		if a.Status == attendee.StatusConfirmed {
			recipients = append(recipients, messenger.Recipient{Name: a.Name, Email: a.Email})
		}
	}

	if len(recipients) > 0 {
		if err := r.sender.Send(ctx, reminderMessage(e, recipients, r.loc)); err != nil {
			return fmt.Errorf("remind: %w", err)
		}
	}
	if err := r.events.MarkReminded(ctx, e.ID); err != nil {
		return fmt.Errorf("remind: %w", err)
	}
	return nil
}

func reminderMessage(e event.Event, recipients []messenger.Recipient, loc *time.Location) messenger.Message {
	if loc == nil {
		loc = time.UTC
	}
	body := fmt.Sprintf("%s starts at %s.", e.Title, e.Start.In(loc).Format(time.RFC1123))
	if e.Location != "" {
		body += "\nLocation: " + e.Location
	}
	return messenger.Message{
		EventID:    e.ID,
		Subject:    "Reminder: " + e.Title,
		Body:       body,
		Recipients: recipients,
	}
}

package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	Seq         int64  `bun:"seq,pk,autoincrement"`
	ID          string `bun:"id,notnull,unique"` // required
	TenantID    string `bun:"tenant_id"`
	OrganizerID string `bun:"organizer_id"`
	Title       string `bun:"title,notnull"` // required
	Description string `bun:"description"`
	Location    string `bun:"location"`
	Status      string `bun:"status,notnull"`

	StartDateUnixUTC int64  `bun:"start_date,notnull"` // required
	EndDateUnixUTC   int64  `bun:"end_date,notnull"`   // required
	RRule            string `bun:"rrule"`
	Capacity         int    `bun:"capacity"`
	ReminderSent     bool   `bun:"reminder_sent"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`

	Attendees []*Attendee `bun:"rel:has-many,join:id=event_id"`
}

func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("(*Event).Upsert: event id is blank")
	case e.Title == "":
		return fmt.Errorf("(*Event).Upsert: title is blank")
	case e.StartDateUnixUTC == 0:
		return fmt.Errorf("(*Event).Upsert: start date is blank")
	case e.EndDateUnixUTC != 0 && e.StartDateUnixUTC > e.EndDateUnixUTC:
		return fmt.Errorf("(*Event).Upsert: start date must be before end date")
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UTC().Unix()
	}

	exists, err := db.NewSelect().
		Model((*Event)(nil)).
		Where("id = ?", e.ID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}

	switch exists {
	case true:
		e.UpdatedAt = time.Now().UTC().Unix()
		if _, err := db.NewUpdate().
			Model(e).
			ExcludeColumn("seq", "created_at").
			Where("id = ?", e.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
	case false:
		if _, err := db.NewInsert().
			Model(e).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
	}

	return nil
}

package model

import (
	"github.com/uptrace/bun"
)

// Seq keeps the insertion order; ID is what the rest of the app sees.
type Attendee struct {
	bun.BaseModel `bun:"table:attendees"`

	Seq     int64  `bun:"seq,pk,autoincrement"`
	ID      string `bun:"id,notnull,unique"` // required
	EventID string `bun:"event_id,notnull"`  // required

	Name     string `bun:"name,notnull"`
	Email    string `bun:"email,notnull"`
	Company  string `bun:"company"`
	JobTitle string `bun:"job_title"`
	Phone    string `bun:"phone"`
	LinkedIn string `bun:"linked_in"`
	Photo    string `bun:"photo"`

	TicketType            string `bun:"ticket_type,notnull"`
	PurchaseDateUnixMilli int64  `bun:"purchase_date,notnull"`
	Status                string `bun:"status,notnull"`
	CheckedIn             bool   `bun:"checked_in"`

	Tags         []string          `bun:"tags"`
	Group        string            `bun:"group_name"`
	CustomFields map[string]string `bun:"custom_fields"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}

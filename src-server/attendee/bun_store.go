package attendee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evhub/src-server/apperr"
	"evhub/src-server/model"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore keeps attendees in the sqlite database behind bun.
type BunStore struct {
	db bun.IDB
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db bun.IDB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) List(ctx context.Context, eventID string) ([]Attendee, error) {
	attendeeModels := make([]model.Attendee, 0)
	if err := s.db.NewSelect().
		Model(&attendeeModels).
		Where("event_id = ?", eventID).
		Order("seq ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*BunStore).List: %w", err)
	}

	result := make([]Attendee, 0, len(attendeeModels))
	for i := range attendeeModels {
		result = append(result, fromModel(&attendeeModels[i]))
	}
	return result, nil
}

func (s *BunStore) Get(ctx context.Context, id string) (Attendee, error) {
	attendeeModel := new(model.Attendee)
	if err := s.db.NewSelect().
		Model(attendeeModel).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attendee{}, apperr.NotFound("Attendee not found")
		}
		return Attendee{}, fmt.Errorf("(*BunStore).Get: %w", err)
	}
	return fromModel(attendeeModel), nil
}

func (s *BunStore) Add(ctx context.Context, a Attendee) (Attendee, error) {
	return add(ctx, s.db, a)
}

func add(ctx context.Context, db bun.IDB, a Attendee) (Attendee, error) {
	if a.EventID == "" {
		return Attendee{}, fmt.Errorf("(*BunStore).Add: %w", apperr.Validation("Attendee must belong to an event"))
	}
	a = a.Clone()
	a.ID = uuid.NewString()
	// the row keeps milliseconds
	a.PurchaseDate = a.PurchaseDate.UTC().Truncate(time.Millisecond)
	attendeeModel := toModel(a)
	if _, err := db.NewInsert().
		Model(attendeeModel).
		Exec(ctx); err != nil {
		return Attendee{}, fmt.Errorf("(*BunStore).Add: %w", err)
	}
	return a, nil
}

// BulkImport runs every insert in one transaction: a failing record rolls
// back the records before it.
func (s *BunStore) BulkImport(ctx context.Context, as []Attendee) (int, error) {
	count := 0
	if err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, a := range as {
			if _, err := add(ctx, tx, a); err != nil {
				return fmt.Errorf("record %d: %w", count+1, err)
			}
			count++
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("(*BunStore).BulkImport: %w", err)
	}
	return count, nil
}

func (s *BunStore) Update(ctx context.Context, a Attendee) (Attendee, error) {
	if !a.Status.Valid() {
		return Attendee{}, fmt.Errorf("(*BunStore).Update: %w", apperr.Validation("Invalid status %q", a.Status))
	}
	stored, err := s.Get(ctx, a.ID)
	if err != nil {
		return Attendee{}, fmt.Errorf("(*BunStore).Update: %w", err)
	}
	a = a.Clone()
	a.EventID = stored.EventID
	a.PurchaseDate = stored.PurchaseDate

	if _, err := s.db.NewUpdate().
		Model(toModel(a)).
		ExcludeColumn("seq", "id", "event_id", "purchase_date").
		Where("id = ?", a.ID).
		Exec(ctx); err != nil {
		return Attendee{}, fmt.Errorf("(*BunStore).Update: %w", err)
	}
	return a, nil
}

func toModel(a Attendee) *model.Attendee {
	return &model.Attendee{
		ID:                    a.ID,
		EventID:               a.EventID,
		Name:                  a.Name,
		Email:                 a.Email,
		Company:               a.Company,
		JobTitle:              a.JobTitle,
		Phone:                 a.Phone,
		LinkedIn:              a.LinkedIn,
		Photo:                 a.Photo,
		TicketType:            a.TicketType,
		PurchaseDateUnixMilli: a.PurchaseDate.UnixMilli(),
		Status:                string(a.Status),
		CheckedIn:             a.CheckedIn,
		Tags:                  a.Tags,
		Group:                 a.Group,
		CustomFields:          a.CustomFields,
	}
}

func fromModel(m *model.Attendee) Attendee {
	a := Attendee{
		ID:           m.ID,
		EventID:      m.EventID,
		Name:         m.Name,
		Email:        m.Email,
		Company:      m.Company,
		JobTitle:     m.JobTitle,
		Phone:        m.Phone,
		LinkedIn:     m.LinkedIn,
		Photo:        m.Photo,
		TicketType:   m.TicketType,
		PurchaseDate: time.UnixMilli(m.PurchaseDateUnixMilli).UTC(),
		Status:       Status(m.Status),
		CheckedIn:    m.CheckedIn,
		Tags:         m.Tags,
		Group:        m.Group,
		CustomFields: m.CustomFields,
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.CustomFields == nil {
		a.CustomFields = map[string]string{}
	}
	return a
}

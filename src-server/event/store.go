package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"evhub/src-server/apperr"
	"evhub/src-server/model"

	"github.com/uptrace/bun"
)

// Store persists events. List results are ordered by start date.
type Store interface {
	Insert(ctx context.Context, e Event) error
	Get(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, opts ListOptions) ([]Event, error)
	Save(ctx context.Context, e Event) error
	Delete(ctx context.Context, id string) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]Event
	order  []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]Event)}
}

func (s *MemoryStore) Insert(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("(*MemoryStore).Insert: duplicate id %s", e.ID)
	}
	s.events[e.ID] = e
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return Event{}, fmt.Errorf("(*MemoryStore).Get: %w", apperr.NotFound("Event not found"))
	}
	return e, nil
}

func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Event, 0)
	for _, id := range s.order {
		if e := s.events[id]; opts.match(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

func (s *MemoryStore) Save(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return fmt.Errorf("(*MemoryStore).Save: %w", apperr.NotFound("Event not found"))
	}
	s.events[e.ID] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return nil
	}
	delete(s.events, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// BunStore keeps events in the events table.
type BunStore struct {
	db bun.IDB
}

var _ Store = (*BunStore)(nil)

func NewBunStore(db bun.IDB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) Insert(ctx context.Context, e Event) error {
	m := toModel(e)
	if err := m.Upsert(ctx, s.db); err != nil {
		return fmt.Errorf("(*BunStore).Insert: %w", err)
	}
	return nil
}

func (s *BunStore) Get(ctx context.Context, id string) (Event, error) {
	m := new(model.Event)
	if err := s.db.NewSelect().
		Model(m).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, fmt.Errorf("(*BunStore).Get: %w", apperr.NotFound("Event not found"))
		}
		return Event{}, fmt.Errorf("(*BunStore).Get: %w", err)
	}
	return fromModel(m), nil
}

func (s *BunStore) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	eventModels := make([]model.Event, 0)
	q := s.db.NewSelect().Model(&eventModels)
	if opts.TenantID != "" {
		q = q.Where("tenant_id = ?", opts.TenantID)
	}
	if opts.OrganizerID != "" {
		q = q.Where("organizer_id = ?", opts.OrganizerID)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.From.IsZero() {
		q = q.Where("start_date >= ?", opts.From.UTC().Unix())
	}
	if !opts.To.IsZero() {
		q = q.Where("start_date <= ?", opts.To.UTC().Unix())
	}
	if err := q.Order("start_date ASC", "seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*BunStore).List: %w", err)
	}

	result := make([]Event, 0, len(eventModels))
	for i := range eventModels {
		result = append(result, fromModel(&eventModels[i]))
	}
	return result, nil
}

func (s *BunStore) Save(ctx context.Context, e Event) error {
	exists, err := s.db.NewSelect().
		Model((*model.Event)(nil)).
		Where("id = ?", e.ID).
		Exists(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("(*BunStore).Save: %w", err)
	case !exists:
		return fmt.Errorf("(*BunStore).Save: %w", apperr.NotFound("Event not found"))
	}
	m := toModel(e)
	if err := m.Upsert(ctx, s.db); err != nil {
		return fmt.Errorf("(*BunStore).Save: %w", err)
	}
	return nil
}

func (s *BunStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().
		Model((*model.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("(*BunStore).Delete: %w", err)
	}
	return nil
}

func toModel(e Event) *model.Event {
	m := &model.Event{
		ID:               e.ID,
		TenantID:         e.TenantID,
		OrganizerID:      e.OrganizerID,
		Title:            e.Title,
		Description:      e.Description,
		Location:         e.Location,
		Status:           string(e.Status),
		StartDateUnixUTC: e.Start.UTC().Unix(),
		RRule:            e.RRule,
		Capacity:         e.Capacity,
		ReminderSent:     e.ReminderSent,
		CreatedAt:        e.CreatedAt.UTC().Unix(),
		UpdatedAt:        e.UpdatedAt.UTC().Unix(),
	}
	if !e.End.IsZero() {
		m.EndDateUnixUTC = e.End.UTC().Unix()
	}
	return m
}

func fromModel(m *model.Event) Event {
	e := Event{
		ID:           m.ID,
		TenantID:     m.TenantID,
		OrganizerID:  m.OrganizerID,
		Title:        m.Title,
		Description:  m.Description,
		Location:     m.Location,
		Status:       Status(m.Status),
		Start:        time.Unix(m.StartDateUnixUTC, 0).UTC(),
		RRule:        m.RRule,
		Capacity:     m.Capacity,
		ReminderSent: m.ReminderSent,
		CreatedAt:    time.Unix(m.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(m.UpdatedAt, 0).UTC(),
	}
	if m.EndDateUnixUTC != 0 {
		e.End = time.Unix(m.EndDateUnixUTC, 0).UTC()
	}
	return e
}

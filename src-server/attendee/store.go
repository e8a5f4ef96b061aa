package attendee

import (
	"context"
	"fmt"
	"sync"

	"evhub/src-server/apperr"

	"github.com/google/uuid"
)

// Store keeps attendees partitioned by event. List returns attendees in
// the order they were added.
type Store interface {
	List(ctx context.Context, eventID string) ([]Attendee, error)
	Get(ctx context.Context, id string) (Attendee, error)
	Add(ctx context.Context, a Attendee) (Attendee, error)
	BulkImport(ctx context.Context, as []Attendee) (int, error)
	// Update replaces the whole record. EventID and PurchaseDate always keep
	// their stored values.
	Update(ctx context.Context, a Attendee) (Attendee, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Attendee
	order []string
	newID func() string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Attendee),
		newID: uuid.NewString,
	}
}

func (s *MemoryStore) List(ctx context.Context, eventID string) ([]Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Attendee, 0)
	for _, id := range s.order {
		a := s.byID[id]
		if a.EventID == eventID {
			result = append(result, a.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return Attendee{}, apperr.NotFound("Attendee not found")
	}
	return a.Clone(), nil
}

func (s *MemoryStore) Add(ctx context.Context, a Attendee) (Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(a)
}

func (s *MemoryStore) add(a Attendee) (Attendee, error) {
	if a.EventID == "" {
		return Attendee{}, fmt.Errorf("(*MemoryStore).Add: %w", apperr.Validation("Attendee must belong to an event"))
	}
	id := s.newID()
	if _, exists := s.byID[id]; exists {
		return Attendee{}, fmt.Errorf("(*MemoryStore).Add: duplicate id %s", id)
	}
	a = a.Clone()
	a.ID = id
	s.byID[id] = a
	s.order = append(s.order, id)
	return a.Clone(), nil
}

// BulkImport adds records in input order and stops at the first failure.
// Records added before the failure stay in the store.
func (s *MemoryStore) BulkImport(ctx context.Context, as []Attendee) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, a := range as {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := s.add(a); err != nil {
			return count, fmt.Errorf("(*MemoryStore).BulkImport: record %d: %w", count+1, err)
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) Update(ctx context.Context, a Attendee) (Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[a.ID]
	if !ok {
		return Attendee{}, fmt.Errorf("(*MemoryStore).Update: %w", apperr.NotFound("Attendee not found"))
	}
	if !a.Status.Valid() {
		return Attendee{}, fmt.Errorf("(*MemoryStore).Update: %w", apperr.Validation("Invalid status %q", a.Status))
	}
	a = a.Clone()
	a.EventID = stored.EventID
	a.PurchaseDate = stored.PurchaseDate
	s.byID[a.ID] = a
	return a.Clone(), nil
}

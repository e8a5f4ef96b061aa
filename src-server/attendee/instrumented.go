package attendee

import (
	"context"
	"time"
)

// InstrumentedStore reports read and write latency, in microseconds, to
// the metric channels. A full channel drops the sample.
type InstrumentedStore struct {
	next  Store
	read  chan<- float64
	write chan<- float64
}

var _ Store = (*InstrumentedStore)(nil)

func NewInstrumentedStore(next Store, read, write chan<- float64) *InstrumentedStore {
	return &InstrumentedStore{next: next, read: read, write: write}
}

func report(ch chan<- float64, startTimer time.Time) {
	if ch == nil {
		return
	}
	select {
	case ch <- float64(time.Since(startTimer).Microseconds()):
	default:
	}
}

func (s *InstrumentedStore) List(ctx context.Context, eventID string) ([]Attendee, error) {
	defer report(s.read, time.Now())
	return s.next.List(ctx, eventID)
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (Attendee, error) {
	defer report(s.read, time.Now())
	return s.next.Get(ctx, id)
}

func (s *InstrumentedStore) Add(ctx context.Context, a Attendee) (Attendee, error) {
	defer report(s.write, time.Now())
	return s.next.Add(ctx, a)
}

func (s *InstrumentedStore) BulkImport(ctx context.Context, as []Attendee) (int, error) {
	defer report(s.write, time.Now())
	return s.next.BulkImport(ctx, as)
}

func (s *InstrumentedStore) Update(ctx context.Context, a Attendee) (Attendee, error) {
	defer report(s.write, time.Now())
	return s.next.Update(ctx, a)
}

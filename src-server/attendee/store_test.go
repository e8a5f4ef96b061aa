package attendee

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"evhub/src-server/apperr"
	"evhub/src-server/model"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestBunDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() { bundb.Close() })
	if err := model.CreateSchema(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}
	return bundb
}

func storesUnderTest(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"bun":    NewBunStore(newTestBunDB(t)),
	}
}

var purchased = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func sample(eventID, name string) Attendee {
	return Attendee{
		EventID:      eventID,
		Name:         name,
		Email:        name + "@example.com",
		TicketType:   "regular",
		Status:       StatusPending,
		PurchaseDate: purchased,
		Tags:         []string{},
		CustomFields: map[string]string{},
	}
}

func TestStoreListByEvent(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, a := range []Attendee{
				sample("evt-1", "ada"),
				sample("evt-2", "bob"),
				sample("evt-1", "cyd"),
			} {
				if _, err := store.Add(ctx, a); err != nil {
					t.Fatal(err)
				}
			}

			got, err := store.List(ctx, "evt-1")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].Name != "ada" || got[1].Name != "cyd" {
				t.Errorf("List(evt-1) = %+v, want ada then cyd", got)
			}

			empty, err := store.List(ctx, "unknown")
			if err != nil {
				t.Fatal(err)
			}
			if empty == nil || len(empty) != 0 {
				t.Errorf("unknown event should list an empty slice, got %#v", empty)
			}
		})
	}
}

func TestStoreAddAssignsUniqueIDs(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seen := make(map[string]bool)
			for i := 0; i < 50; i++ {
				a, err := store.Add(ctx, sample("evt-1", "x"))
				if err != nil {
					t.Fatal(err)
				}
				if a.ID == "" || seen[a.ID] {
					t.Fatalf("id %q is empty or reused", a.ID)
				}
				seen[a.ID] = true
			}

			if _, err := store.Add(ctx, sample("", "orphan")); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("add without event: got %v, want validation error", err)
			}
		})
	}
}

func TestStoreAddMatchesLaterReads(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := sample("evt-1", "ada")
			a.PurchaseDate = time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.UTC)
			added, err := store.Add(ctx, a)
			if err != nil {
				t.Fatal(err)
			}
			got, err := store.Get(ctx, added.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !got.PurchaseDate.Equal(added.PurchaseDate) {
				t.Errorf("purchase date changed after add: %v then %v", added.PurchaseDate, got.PurchaseDate)
			}
			if got.Tags == nil || added.Tags == nil {
				t.Errorf("empty tags should stay empty, not nil: %v %v", added.Tags, got.Tags)
			}
		})
	}
}

func TestStoreBulkImport(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			n, err := store.BulkImport(ctx, []Attendee{sample("evt-1", "a"), sample("evt-1", "b")})
			if err != nil {
				t.Fatal(err)
			}
			if n != 2 {
				t.Errorf("imported %d, want 2", n)
			}

			_, err = store.BulkImport(ctx, []Attendee{sample("evt-1", "c"), sample("", "broken"), sample("evt-1", "d")})
			if err == nil {
				t.Fatal("a failing record should abort the import")
			}
			all, _ := store.List(ctx, "evt-1")
			for _, a := range all {
				if a.Name == "d" {
					t.Error("records after the failing one must not be added")
				}
			}
		})
	}
}

func TestBunStoreBulkImportRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewBunStore(newTestBunDB(t))
	n, err := store.BulkImport(ctx, []Attendee{sample("evt-1", "c"), sample("", "broken")})
	if err == nil || n != 0 {
		t.Fatalf("got n=%d err=%v, want 0 and an error", n, err)
	}
	all, err := store.List(ctx, "evt-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("transaction should have been rolled back, found %d", len(all))
	}
}

func TestStoreUpdateKeepsImmutableFields(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			added, err := store.Add(ctx, sample("evt-1", "ada"))
			if err != nil {
				t.Fatal(err)
			}

			change := added
			change.EventID = "evt-other"
			change.PurchaseDate = purchased.Add(48 * time.Hour)
			change.Status = StatusConfirmed
			change.CheckedIn = true
			change.Tags = []string{"vip"}
			change.CustomFields = map[string]string{"diet": "vegan"}

			updated, err := store.Update(ctx, change)
			if err != nil {
				t.Fatal(err)
			}
			if updated.EventID != "evt-1" {
				t.Errorf("EventID changed to %q", updated.EventID)
			}
			if !updated.PurchaseDate.Equal(purchased) {
				t.Errorf("PurchaseDate changed to %v", updated.PurchaseDate)
			}

			got, err := store.Get(ctx, added.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Status != StatusConfirmed || !got.CheckedIn || !got.HasTag("VIP") || got.CustomFields["diet"] != "vegan" {
				t.Errorf("update not stored: %+v", got)
			}
			if got.EventID != "evt-1" || !got.PurchaseDate.Equal(purchased) {
				t.Errorf("immutable fields changed in store: %+v", got)
			}

			if _, err := store.Update(ctx, Attendee{ID: "missing", Status: StatusPending}); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("update of missing id: got %v, want not found", err)
			}
			change.Status = "maybe"
			if _, err := store.Update(ctx, change); !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("invalid status: got %v, want validation error", err)
			}
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := sample("evt-1", "ada")
	a.Tags = []string{"speaker"}
	added, err := store.Add(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	added.Tags[0] = "mutated"
	a.Tags[0] = "mutated"

	got, _ := store.Get(ctx, added.ID)
	if got.Tags[0] != "speaker" {
		t.Errorf("store shares memory with callers: %v", got.Tags)
	}
}

func TestInstrumentedStoreReports(t *testing.T) {
	read := make(chan float64, 1)
	write := make(chan float64, 1)
	store := NewInstrumentedStore(NewMemoryStore(), read, write)

	if _, err := store.Add(context.Background(), sample("evt-1", "ada")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.List(context.Background(), "evt-1"); err != nil {
		t.Fatal(err)
	}
	if len(write) != 1 || len(read) != 1 {
		t.Errorf("expected one read and one write sample, got %d/%d", len(read), len(write))
	}
	// full channels must not block
	if _, err := store.List(context.Background(), "evt-1"); err != nil {
		t.Fatal(err)
	}
}

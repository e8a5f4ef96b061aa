package model_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"evhub/src-server/model"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestAttendee(t *testing.T) {
	// init db
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	defer bundb.Close()

	if err := model.CreateSchema(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}

	// create models
	eventModel := model.Event{
		ID:               uuid.NewString(),
		Title:            "GopherCon",
		Status:           "published",
		StartDateUnixUTC: time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC).Unix(),
		EndDateUnixUTC:   time.Date(2026, 11, 2, 18, 0, 0, 0, time.UTC).Unix(),
	}
	attendeeModel := model.Attendee{
		ID:                    uuid.NewString(),
		EventID:               eventModel.ID,
		Name:                  "Ada Lovelace",
		Email:                 "ada@example.com",
		TicketType:            "VIP",
		Status:                "pending",
		PurchaseDateUnixMilli: time.Now().UnixMilli(),
		Tags:                  []string{"speaker"},
		CustomFields:          map[string]string{"diet": "vegan"},
	}

	// insert models
	if err := eventModel.Upsert(context.Background(), bundb); err != nil {
		t.Fatal(err)
	}
	if _, err := bundb.NewInsert().
		Model(&attendeeModel).
		Exec(context.Background()); err != nil {
		t.Fatal(err)
	}

	// case: attendee data comes back through the relation
	func() {
		eventModelTest := new(model.Event)
		if err := bundb.NewSelect().
			Model(eventModelTest).
			Where("id = ?", eventModel.ID).
			Relation("Attendees").
			Scan(context.Background()); err != nil {
			t.Fatal(err)
		}
		if len(eventModelTest.Attendees) != 1 {
			t.Fatalf("got %d attendees, want 1", len(eventModelTest.Attendees))
		}
		got := eventModelTest.Attendees[0]
		if got.Email != attendeeModel.Email {
			t.Error("attendee email not found")
		}
		if len(got.Tags) != 1 || got.Tags[0] != "speaker" {
			t.Errorf("tags not round-tripped: %v", got.Tags)
		}
		if got.CustomFields["diet"] != "vegan" {
			t.Errorf("custom fields not round-tripped: %v", got.CustomFields)
		}
	}()

	// case: upsert an existing event updates it
	func() {
		eventModel.Title = "GopherCon EU"
		if err := eventModel.Upsert(context.Background(), bundb); err != nil {
			t.Fatal(err)
		}
		title := ""
		if err := bundb.NewSelect().
			Model((*model.Event)(nil)).
			Column("title").
			Where("id = ?", eventModel.ID).
			Scan(context.Background(), &title); err != nil {
			t.Fatal(err)
		}
		if title != "GopherCon EU" {
			t.Errorf("title = %q", title)
		}
	}()

	// case: upsert validates
	func() {
		bad := model.Event{ID: uuid.NewString(), Title: "x", StartDateUnixUTC: 10, EndDateUnixUTC: 5}
		if err := bad.Upsert(context.Background(), bundb); err == nil {
			t.Error("start after end should fail")
		}
	}()
}

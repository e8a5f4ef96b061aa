package attendee

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"evhub/src-server/apperr"
)

var importTime = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func TestParseCSVSingleRow(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("name,email,tickettype\nAda,ada@x.com,VIP"), "evt-1", importTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d attendees, want 1", len(got))
	}
	a := got[0]
	if a.Name != "Ada" || a.Email != "ada@x.com" || a.TicketType != "VIP" {
		t.Errorf("unexpected fields: %+v", a)
	}
	if a.Status != StatusPending || a.CheckedIn {
		t.Errorf("status/check-in not forced: %+v", a)
	}
	if a.EventID != "evt-1" || !a.PurchaseDate.Equal(importTime) {
		t.Errorf("event or purchase date wrong: %+v", a)
	}
	if a.Tags == nil || len(a.Tags) != 0 || a.CustomFields == nil || len(a.CustomFields) != 0 {
		t.Errorf("tags/custom fields should be empty: %+v", a)
	}
}

func TestParseCSVMissingColumns(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"name,tickettype\nAda,VIP", "Missing required columns: email"},
		{"Name , EMAIL\n", "Missing required columns: tickettype"},
		{"phone\n", "Missing required columns: name, email, tickettype"},
		{"", "Missing required columns: name, email, tickettype"},
	}
	for _, tt := range tests {
		_, err := ParseCSV(strings.NewReader(tt.input), "evt-1", importTime)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%q: got %v, want validation error", tt.input, err)
			continue
		}
		if err.Error() != tt.want {
			t.Errorf("%q: got %q, want %q", tt.input, err.Error(), tt.want)
		}
	}
}

func TestParseCSVSkipsBadRows(t *testing.T) {
	input := strings.Join([]string{
		" TicketType ,Email, NAME ,Company,JobTitle,Phone,Shirt",
		"VIP,ada@x.com,Ada,Analytical,Mathematician,555-0100,M",
		"regular,bob@x.com,Bob",         // too few cells
		",,,,,,",                        // blank cells
		",cyd@x.com,Cyd,,,,XL",          // blank ticket type
		"vip,dee@x.com,Dee,A,B,C,D,E",   // too many cells
		"  student , eve@x.com , Eve ,,,,",
	}, "\n")

	got, err := ParseCSV(strings.NewReader(input), "evt-1", importTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d attendees (%v), want 3", len(got), names(got))
	}

	ada := got[0]
	if ada.Name != "Ada" || ada.Company != "Analytical" || ada.JobTitle != "Mathematician" || ada.Phone != "555-0100" {
		t.Errorf("ada: %+v", ada)
	}
	if len(ada.CustomFields) != 0 {
		t.Errorf("unrecognized columns should not be kept: %v", ada.CustomFields)
	}
	if got[1].TicketType != DefaultTicketType {
		t.Errorf("blank ticket type = %q, want %q", got[1].TicketType, DefaultTicketType)
	}
	if got[2].Name != "Eve" || got[2].Email != "eve@x.com" || got[2].TicketType != "student" {
		t.Errorf("cells should be trimmed: %+v", got[2])
	}
}

func TestParseCSVQuotedCommaStaysOneCell(t *testing.T) {
	input := "name,email,tickettype\n" +
		"\"Smith, Jr\",smith@x.com,VIP\n" + // quoted: kept
		"Smith, Jr,smith@x.com,VIP\n" // bare comma: one cell too many
	got, err := ParseCSV(strings.NewReader(input), "evt-1", importTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Smith, Jr" || got[0].Email != "smith@x.com" {
		t.Errorf("got %+v", got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Attendee{
		{Name: "Ada", Email: "ada@x.com", TicketType: "VIP", Status: StatusConfirmed, Company: "Analytical", JobTitle: "Mathematician", Phone: "555"},
		{Name: "Bob", Email: "bob@x.com", TicketType: "regular", Status: StatusPending},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "Name,Email,Ticket Type,Status,Company,Job Title,Phone\n" +
		"Ada,ada@x.com,VIP,confirmed,Analytical,Mathematician,555\n" +
		"Bob,bob@x.com,regular,pending,,,\n"
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteCSVQuotesEmbeddedCommas(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []Attendee{{Name: "Lovelace, Ada", Email: "ada@x.com", TicketType: "VIP", Status: StatusPending}}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[1] != `"Lovelace, Ada",ada@x.com,VIP,pending,,,` {
		t.Errorf("got %q", lines[1])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	original := []Attendee{
		{Name: "Ada", Email: "ada@x.com", TicketType: "VIP", Status: StatusConfirmed, Company: "Analytical", JobTitle: "Mathematician", Phone: "555-0100"},
		{Name: "Bob", Email: "bob@x.com", TicketType: "regular", Status: StatusPending},
		{Name: "Grace", Email: "grace@x.com", TicketType: "student", Status: StatusCancelled, Company: "Navy"},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, original); err != nil {
		t.Fatal(err)
	}

	// map the export header back to import column names
	exported := buf.String()
	body := exported[strings.Index(exported, "\n")+1:]
	reimport := "name,email,tickettype,status,company,jobtitle,phone\n" + body

	got, err := ParseCSV(strings.NewReader(reimport), "evt-1", importTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(original) {
		t.Fatalf("got %d attendees, want %d", len(got), len(original))
	}
	for i := range original {
		o, g := original[i], got[i]
		if o.Name != g.Name || o.Email != g.Email || o.TicketType != g.TicketType ||
			o.Company != g.Company || o.JobTitle != g.JobTitle || o.Phone != g.Phone {
			t.Errorf("row %d: got %+v, want %+v", i, g, o)
		}
	}
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 15, 250_000_000, time.FixedZone("CEST", 2*60*60))
	got := ExportFilename("evt-1", at)
	want := "attendees_evt-1_2026-10-19T06:30:15.250Z.csv"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

package attendee

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"evhub/src-server/apperr"
)

// Headers an import must carry, compared after trimming and lowercasing.
var RequiredImportHeaders = []string{"name", "email", "tickettype"}

var ExportHeaders = []string{"Name", "Email", "Ticket Type", "Status", "Company", "Job Title", "Phone"}

const ExportContentType = "text/csv;charset=utf-8"

// ParseCSV turns an uploaded file into fresh registrations for eventID.
//
// The first line is the header row. Rows with a different cell count than
// the header, and rows with only blank cells, are skipped without error.
// Cells follow RFC 4180 quoting, so a quoted "Smith, Jr" is one cell.
// Columns other than name, email, tickettype, phone, company and jobtitle
// are read but not kept.
func ParseCSV(r io.Reader, eventID string, now time.Time) ([]Attendee, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headerRow, err := reader.Read()
	switch {
	case errors.Is(err, io.EOF):
		headerRow = nil
	case err != nil:
		return nil, fmt.Errorf("ParseCSV: can't read header row: %w", err)
	}
	headers := make([]string, len(headerRow))
	for i, h := range headerRow {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if missing := missingHeaders(headers); len(missing) > 0 {
		return nil, apperr.Validation("Missing required columns: %s", strings.Join(missing, ", "))
	}

	result := make([]Attendee, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ParseCSV: %w", err)
		}
		if len(row) != len(headers) || blankRow(row) {
			continue
		}

		data := make(map[string]string, len(headers))
		for i, h := range headers {
			data[h] = strings.TrimSpace(row[i])
		}
		result = append(result, rowToAttendee(data, eventID, now))
	}
	return result, nil
}

func missingHeaders(headers []string) []string {
	var missing []string
	for _, req := range RequiredImportHeaders {
		found := false
		for _, h := range headers {
			if h == req {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, req)
		}
	}
	return missing
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func rowToAttendee(data map[string]string, eventID string, now time.Time) Attendee {
	ticketType := data["tickettype"]
	if ticketType == "" {
		ticketType = DefaultTicketType
	}
	return newRegistration(Attendee{
		Name:       data["name"],
		Email:      data["email"],
		TicketType: ticketType,
		Phone:      data["phone"],
		Company:    data["company"],
		JobTitle:   data["jobtitle"],
	}, eventID, now)
}

// WriteCSV writes the export header and one line per attendee. Values are
// quoted only when they contain a delimiter, a quote or a line break.
func WriteCSV(w io.Writer, attendees []Attendee) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeaders); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	for _, a := range attendees {
		if err := writer.Write([]string{
			a.Name,
			a.Email,
			a.TicketType,
			string(a.Status),
			a.Company,
			a.JobTitle,
			a.Phone,
		}); err != nil {
			return fmt.Errorf("WriteCSV: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}

// ExportFilename is the download name of an export taken at t.
func ExportFilename(eventID string, t time.Time) string {
	return fmt.Sprintf("attendees_%s_%s.csv", eventID, t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

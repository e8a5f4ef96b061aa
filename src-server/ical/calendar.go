// Package ical serializes evhub events as iCalendar (RFC 5545) files so
// attendees can add them to their own calendars.
package ical

import (
	"fmt"
	"io"
	"time"

	"evhub/src-server/attendee"
	"evhub/src-server/event"
)

const prodID = "-//evhub//evhub//EN"

var partStats = map[attendee.Status]string{
	attendee.StatusConfirmed: "ACCEPTED",
	attendee.StatusPending:   "NEEDS-ACTION",
	attendee.StatusCancelled: "DECLINED",
}

var eventStatuses = map[event.Status]string{
	event.StatusDraft:     "TENTATIVE",
	event.StatusPublished: "CONFIRMED",
	event.StatusCompleted: "CONFIRMED",
	event.StatusCancelled: "CANCELLED",
}

// WriteEvent writes a VCALENDAR holding e and one ATTENDEE line per
// attendee. now is the DTSTAMP.
func WriteEvent(w io.Writer, e event.Event, attendees []attendee.Attendee, now time.Time) error {
	if e.ID == "" {
		return fmt.Errorf("WriteEvent: event id is blank")
	}

	var lines []string
	add := func(line string) { lines = append(lines, line) }

	add("BEGIN:VCALENDAR")
	add("VERSION:2.0")
	add("PRODID:" + prodID)
	add("CALSCALE:GREGORIAN")
	add("METHOD:PUBLISH")
	add("BEGIN:VEVENT")
	add("UID:" + e.ID + "@evhub")

	stamp, err := TimeToIcalDatetime(now)
	if err != nil {
		return fmt.Errorf("WriteEvent: DTSTAMP: %w", err)
	}
	add("DTSTAMP:" + stamp)

	start, err := dateProperty("DTSTART", e.Start)
	if err != nil {
		return fmt.Errorf("WriteEvent: %w", err)
	}
	add(start)
	if !e.End.IsZero() {
		end, err := dateProperty("DTEND", e.End)
		if err != nil {
			return fmt.Errorf("WriteEvent: %w", err)
		}
		add(end)
	}
	if e.RRule != "" {
		add("RRULE:" + e.RRule)
	}

	add("SUMMARY:" + escapeText(e.Title))
	if e.Description != "" {
		add("DESCRIPTION:" + escapeText(e.Description))
	}
	if e.Location != "" {
		add("LOCATION:" + escapeText(e.Location))
	}
	if status, ok := eventStatuses[e.Status]; ok {
		add("STATUS:" + status)
	}
	if !e.UpdatedAt.IsZero() {
		modified, _ := TimeToIcalDatetime(e.UpdatedAt)
		add("LAST-MODIFIED:" + modified)
	}

	for _, a := range attendees {
		cn, err := NewCommonName(a.Name, a.Email)
		if err != nil {
			return fmt.Errorf("WriteEvent: attendee %s: %w", a.ID, err)
		}
		partStat, ok := partStats[a.Status]
		if !ok {
			partStat = "NEEDS-ACTION"
		}
		add("ATTENDEE;ROLE=REQ-PARTICIPANT;PARTSTAT=" + partStat + ";" + cn)
	}

	add("END:VEVENT")
	add("END:VCALENDAR")

	writer := Split75wrapper(func(s string) (int, error) { return io.WriteString(w, s) })
	for _, line := range lines {
		if _, err := writer(line); err != nil {
			return fmt.Errorf("WriteEvent: %w", err)
		}
	}
	return nil
}

// Filename is the download name of an event's calendar file.
func Filename(e event.Event) string {
	return "event_" + e.ID + ".ics"
}

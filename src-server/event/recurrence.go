package event

import (
	"fmt"
	"strings"
	"time"

	"evhub/src-server/apperr"

	"github.com/xyedo/rrule"
)

func ruleSet(start time.Time, rule string) (*rrule.Set, error) {
	var sb strings.Builder
	sb.WriteString("DTSTART:" + start.UTC().Format("20060102T150405Z"))
	sb.WriteString("\nRRULE:" + strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	return rrule.StrToRRuleSet(sb.String())
}

// ValidateRRule reports whether rule parses as a recurrence rule for an
// event starting at start.
func ValidateRRule(start time.Time, rule string) error {
	if rule == "" {
		return nil
	}
	if _, err := ruleSet(start, rule); err != nil {
		return apperr.Validation("Invalid recurrence rule: %s", err.Error())
	}
	return nil
}

// NextOccurrence returns the first start of e strictly after now. A one-off
// event has a single occurrence at e.Start; ok is false once it has passed.
func NextOccurrence(e Event, now time.Time) (next time.Time, ok bool, err error) {
	if e.RRule == "" {
		if e.Start.After(now) {
			return e.Start, true, nil
		}
		return time.Time{}, false, nil
	}
	if !e.Start.Before(now) {
		return e.Start, true, nil
	}
	set, err := ruleSet(e.Start, e.RRule)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("NextOccurrence: %w", err)
	}
	next = set.After(now, false)
	if next.IsZero() {
		return time.Time{}, false, nil
	}
	return next.UTC(), true, nil
}

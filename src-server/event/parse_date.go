package event

import (
	"strings"
	"time"

	"evhub/src-server/apperr"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// NewDateParser returns a natural language date parser for English.
func NewDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

var defaultDateParser = NewDateParser()

// ParseDate reads an RFC 3339 timestamp, a plain 2006-01-02 date in loc, or
// an English phrase such as "next friday at 6pm" relative to now.
func ParseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("Date is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}

	result, err := defaultDateParser.Parse(s, now.In(loc))
	if err != nil {
		return time.Time{}, apperr.Validation("Can't parse date %q", s)
	}
	if result == nil {
		return time.Time{}, apperr.Validation("Can't parse date %q", s)
	}
	return result.Time, nil
}

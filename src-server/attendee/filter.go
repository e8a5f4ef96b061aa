package attendee

import (
	"strconv"
	"strings"
	"time"

	"evhub/src-server/apperr"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FilterAll disables a categorical filter. The empty string does too.
const FilterAll = "all"

type Operator string

const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// One clause of an advanced query. Logic is kept for the dashboard to
// round-trip, but every condition of a Filter is ANDed.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
	Logic    string   `json:"logic,omitempty"`
}

// Filter is a full dashboard query over one event's attendees.
type Filter struct {
	Search     string      `json:"search"`
	Status     string      `json:"status"`
	TicketType string      `json:"ticketType"`
	Group      string      `json:"group"`
	Conditions []Condition `json:"conditions"`
}

// fieldAccessor renders an attendee field as text. ok is false when the
// attendee has no value for it.
type fieldAccessor func(a *Attendee) (value string, ok bool)

func optional(get func(a *Attendee) string) fieldAccessor {
	return func(a *Attendee) (string, bool) {
		v := get(a)
		return v, v != ""
	}
}

func required(get func(a *Attendee) string) fieldAccessor {
	return func(a *Attendee) (string, bool) {
		return get(a), true
	}
}

var fieldAccessors = map[string]fieldAccessor{
	"id":         required(func(a *Attendee) string { return a.ID }),
	"eventId":    required(func(a *Attendee) string { return a.EventID }),
	"name":       required(func(a *Attendee) string { return a.Name }),
	"email":      required(func(a *Attendee) string { return a.Email }),
	"ticketType": required(func(a *Attendee) string { return a.TicketType }),
	"status":     required(func(a *Attendee) string { return string(a.Status) }),
	"checkedIn":  required(func(a *Attendee) string { return strconv.FormatBool(a.CheckedIn) }),
	"tags":       required(func(a *Attendee) string { return strings.Join(a.Tags, ",") }),
	"purchaseDate": required(func(a *Attendee) string {
		return a.PurchaseDate.UTC().Format(time.RFC3339)
	}),
	"company":  optional(func(a *Attendee) string { return a.Company }),
	"jobTitle": optional(func(a *Attendee) string { return a.JobTitle }),
	"phone":    optional(func(a *Attendee) string { return a.Phone }),
	"linkedIn": optional(func(a *Attendee) string { return a.LinkedIn }),
	"photo":    optional(func(a *Attendee) string { return a.Photo }),
	"group":    optional(func(a *Attendee) string { return a.Group }),
}

const customFieldPrefix = "customFields."

func lookupField(field string) (fieldAccessor, bool) {
	if key, ok := strings.CutPrefix(field, customFieldPrefix); ok && key != "" {
		return func(a *Attendee) (string, bool) {
			v, ok := a.CustomFields[key]
			return v, ok
		}, true
	}
	get, ok := fieldAccessors[field]
	return get, ok
}

// Fields lists the names a Condition may target, without custom fields.
func Fields() []string {
	fields := make([]string, 0, len(fieldAccessors))
	for name := range fieldAccessors {
		fields = append(fields, name)
	}
	return fields
}

func (c Condition) Validate() error {
	if _, ok := lookupField(c.Field); !ok {
		return apperr.Validation("Unknown filter field %q", c.Field)
	}
	if !c.Operator.Valid() {
		return apperr.Validation("Unknown filter operator %q", c.Operator)
	}
	switch strings.ToUpper(c.Logic) {
	case "", "AND", "OR":
	default:
		return apperr.Validation("Unknown filter logic %q", c.Logic)
	}
	return nil
}

func (f Filter) Validate() error {
	if f.Status != "" && f.Status != FilterAll && !Status(f.Status).Valid() {
		return apperr.Validation("Unknown status %q", f.Status)
	}
	for _, c := range f.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func active(v string) bool {
	return v != "" && v != FilterAll
}

// Apply narrows attendees down to the ones matching f. The input is left
// untouched and the result keeps the input order.
func (f Filter) Apply(attendees []Attendee) []Attendee {
	// a Caser is stateful, one per call
	lower := cases.Lower(language.Und)

	result := make([]Attendee, 0, len(attendees))
	for i := range attendees {
		if f.match(lower, &attendees[i]) {
			result = append(result, attendees[i])
		}
	}
	return result
}

func (f Filter) match(lower cases.Caser, a *Attendee) bool {
	if f.Search != "" {
		term := lower.String(f.Search)
		if !strings.Contains(lower.String(a.Name), term) &&
			!strings.Contains(lower.String(a.Email), term) &&
			!strings.Contains(lower.String(a.Company), term) &&
			!strings.Contains(lower.String(a.JobTitle), term) {
			return false
		}
	}

	if active(f.Status) && string(a.Status) != f.Status {
		return false
	}

	if active(f.TicketType) && lower.String(a.TicketType) != lower.String(f.TicketType) {
		return false
	}

	if active(f.Group) && a.Group != f.Group {
		return false
	}

	for _, c := range f.Conditions {
		if !c.match(lower, a) {
			return false
		}
	}
	return true
}

func (c Condition) match(lower cases.Caser, a *Attendee) bool {
	get, ok := lookupField(c.Field)
	if !ok {
		return false
	}
	value, ok := get(a)
	if !ok {
		return false
	}
	value = lower.String(value)
	want := lower.String(c.Value)

	switch c.Operator {
	case OpEquals:
		return value == want
	case OpContains:
		return strings.Contains(value, want)
	case OpStartsWith:
		return strings.HasPrefix(value, want)
	case OpEndsWith:
		return strings.HasSuffix(value, want)
	default:
		return false
	}
}

package attendee

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"evhub/src-server/apperr"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func names(as []Attendee) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}

func roster() []Attendee {
	return []Attendee{
		{ID: "1", Name: "Ada Lovelace", Email: "ada@analytical.org", Company: "Analytical Engines", JobTitle: "Mathematician", TicketType: "VIP", Status: StatusConfirmed, Group: "Speakers", Tags: []string{"keynote"}, CustomFields: map[string]string{"diet": "Vegan"}},
		{ID: "2", Name: "Bob", Email: "bob@test.io", TicketType: "regular", Status: StatusPending, Tags: []string{}, CustomFields: map[string]string{}},
		{ID: "3", Name: "Grace Hopper", Email: "grace@navy.mil", Company: "US Navy", JobTitle: "Rear Admiral", TicketType: "vip", Status: StatusCancelled, Group: "speakers", Tags: []string{}, CustomFields: map[string]string{}},
		{ID: "4", Name: "Linus", Email: "linus@kernel.org", JobTitle: "Maintainer", TicketType: "Regular", Status: StatusConfirmed, CheckedIn: true, Group: "Speakers", Tags: []string{"panel", "keynote"}, CustomFields: map[string]string{}},
	}
}

func TestFilterSearch(t *testing.T) {
	attendees := []Attendee{{Name: "Ada Lovelace"}, {Name: "Bob"}}
	got := Filter{Search: "ada"}.Apply(attendees)
	if !reflect.DeepEqual(names(got), []string{"Ada Lovelace"}) {
		t.Errorf("search ada = %v", names(got))
	}

	tests := []struct {
		term string
		want []string
	}{
		{"NAVY", []string{"Grace Hopper"}},           // company
		{"maintainer", []string{"Linus"}},            // job title
		{"@test.io", []string{"Bob"}},                // email
		{"a", []string{"Ada Lovelace", "Grace Hopper", "Linus"}},
		{"nobody", []string{}},
	}
	for _, tt := range tests {
		got := Filter{Search: tt.term}.Apply(roster())
		if !reflect.DeepEqual(names(got), tt.want) {
			t.Errorf("search %q = %v, want %v", tt.term, names(got), tt.want)
		}
	}
}

func TestFilterCategorical(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"everything", Filter{Status: FilterAll, TicketType: FilterAll, Group: FilterAll}, []string{"Ada Lovelace", "Bob", "Grace Hopper", "Linus"}},
		{"zero value", Filter{}, []string{"Ada Lovelace", "Bob", "Grace Hopper", "Linus"}},
		{"status", Filter{Status: "confirmed"}, []string{"Ada Lovelace", "Linus"}},
		{"ticket ignores case", Filter{TicketType: "VIP"}, []string{"Ada Lovelace", "Grace Hopper"}},
		{"group is exact", Filter{Group: "Speakers"}, []string{"Ada Lovelace", "Linus"}},
		{"combined", Filter{Status: "confirmed", TicketType: "regular", Group: "Speakers"}, []string{"Linus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(roster())
			if !reflect.DeepEqual(names(got), tt.want) {
				t.Errorf("got %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestFilterConditions(t *testing.T) {
	tests := []struct {
		name       string
		conditions []Condition
		want       []string
	}{
		{
			"equals ignores case",
			[]Condition{{Field: "ticketType", Operator: OpEquals, Value: "vip"}},
			[]string{"Ada Lovelace", "Grace Hopper"},
		},
		{
			"contains",
			[]Condition{{Field: "email", Operator: OpContains, Value: ".ORG"}},
			[]string{"Ada Lovelace", "Linus"},
		},
		{
			"startsWith",
			[]Condition{{Field: "name", Operator: OpStartsWith, Value: "gr"}},
			[]string{"Grace Hopper"},
		},
		{
			"endsWith",
			[]Condition{{Field: "email", Operator: OpEndsWith, Value: ".mil"}},
			[]string{"Grace Hopper"},
		},
		{
			"absent optional field fails",
			[]Condition{{Field: "company", Operator: OpContains, Value: ""}},
			[]string{"Ada Lovelace", "Grace Hopper"},
		},
		{
			"boolean field as text",
			[]Condition{{Field: "checkedIn", Operator: OpEquals, Value: "TRUE"}},
			[]string{"Linus"},
		},
		{
			"tags joined with commas",
			[]Condition{{Field: "tags", Operator: OpEquals, Value: "panel,keynote"}},
			[]string{"Linus"},
		},
		{
			"custom field",
			[]Condition{{Field: "customFields.diet", Operator: OpEquals, Value: "vegan"}},
			[]string{"Ada Lovelace"},
		},
		{
			"unknown field excludes everyone",
			[]Condition{{Field: "shoeSize", Operator: OpEquals, Value: "42"}},
			[]string{},
		},
		{
			"unknown operator excludes everyone",
			[]Condition{{Field: "name", Operator: "matches", Value: "Bob"}},
			[]string{},
		},
		{
			"OR logic is still ANDed",
			[]Condition{
				{Field: "status", Operator: OpEquals, Value: "confirmed"},
				{Field: "name", Operator: OpEquals, Value: "Bob", Logic: "OR"},
			},
			[]string{},
		},
		{
			"two conditions",
			[]Condition{
				{Field: "group", Operator: OpEquals, Value: "speakers"},
				{Field: "status", Operator: OpEquals, Value: "confirmed"},
			},
			[]string{"Ada Lovelace", "Linus"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter{Conditions: tt.conditions}.Apply(roster())
			if !reflect.DeepEqual(names(got), tt.want) {
				t.Errorf("got %v, want %v", names(got), tt.want)
			}
		})
	}
}

// Go strings can't tell "never set" from "set to empty", so an empty
// optional field fails every condition on it, even contains "".
func TestFilterEmptyOptionalFieldCountsAsAbsent(t *testing.T) {
	imported, err := ParseCSV(strings.NewReader("name,email,tickettype\nAda,ada@x.com,VIP\n"), "evt-1", time.Now())
	if err != nil || len(imported) != 1 || imported[0].Company != "" {
		t.Fatalf("imported = %+v %v", imported, err)
	}
	for _, op := range []Operator{OpEquals, OpContains, OpStartsWith, OpEndsWith} {
		f := Filter{Conditions: []Condition{{Field: "company", Operator: op, Value: ""}}}
		if got := f.Apply(imported); len(got) != 0 {
			t.Errorf("%s \"\": kept %v", op, names(got))
		}
	}
	required := Filter{Conditions: []Condition{{Field: "email", Operator: OpContains, Value: ""}}}
	if got := required.Apply(imported); len(got) != 1 {
		t.Errorf("required fields are always present, got %v", names(got))
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := roster()
	before := roster()
	_ = Filter{Search: "a", Status: "confirmed"}.Apply(in)
	if !reflect.DeepEqual(in, before) {
		t.Error("Apply changed its input")
	}
}

func TestFilterValidate(t *testing.T) {
	valid := Filter{Status: "pending", Conditions: []Condition{
		{Field: "customFields.shirt", Operator: OpEquals, Value: "L", Logic: "and"},
		{Field: "jobTitle", Operator: OpEndsWith, Value: "er"},
	}}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid filter: %v", err)
	}

	for _, f := range []Filter{
		{Status: "archived"},
		{Conditions: []Condition{{Field: "shoeSize", Operator: OpEquals}}},
		{Conditions: []Condition{{Field: "name", Operator: "like"}}},
		{Conditions: []Condition{{Field: "name", Operator: OpEquals, Logic: "XOR"}}},
		{Conditions: []Condition{{Field: "customFields.", Operator: OpEquals}}},
	} {
		if err := f.Validate(); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%+v: got %v, want validation error", f, err)
		}
	}
}

func genAttendee() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("Ada", "Bob", "Grace", "ada lovelace", "Linus"),
		gen.OneConstOf("", "Acme", "Navy"),
		gen.OneConstOf("VIP", "vip", "regular", "Student"),
		gen.OneConstOf(StatusConfirmed, StatusPending, StatusCancelled),
		gen.OneConstOf("", "Speakers", "speakers", "Staff"),
		gen.Bool(),
	).Map(func(v []interface{}) Attendee {
		name := v[0].(string)
		return Attendee{
			ID:           name,
			Name:         name,
			Email:        name + "@example.com",
			Company:      v[1].(string),
			TicketType:   v[2].(string),
			Status:       v[3].(Status),
			Group:        v[4].(string),
			CheckedIn:    v[5].(bool),
			Tags:         []string{},
			CustomFields: map[string]string{},
		}
	})
}

func genFilter() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("", "a", "ADA", "navy", "zzz"),
		gen.OneConstOf("", FilterAll, "confirmed", "pending"),
		gen.OneConstOf("", FilterAll, "vip", "Regular"),
		gen.OneConstOf("", FilterAll, "Speakers"),
		gen.OneConstOf(
			[]Condition(nil),
			[]Condition{{Field: "ticketType", Operator: OpEquals, Value: "vip"}},
			[]Condition{{Field: "company", Operator: OpContains, Value: "a"}},
			[]Condition{{Field: "name", Operator: OpStartsWith, Value: "a"}, {Field: "checkedIn", Operator: OpEquals, Value: "true", Logic: "OR"}},
		),
	).Map(func(v []interface{}) Filter {
		return Filter{
			Search:     v[0].(string),
			Status:     v[1].(string),
			TicketType: v[2].(string),
			Group:      v[3].(string),
			Conditions: v[4].([]Condition),
		}
	})
}

func TestProperty_Filter(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("applying a filter twice gives the same result", prop.ForAll(
		func(as []Attendee, f Filter) bool {
			return reflect.DeepEqual(f.Apply(as), f.Apply(as))
		},
		gen.SliceOf(genAttendee()),
		genFilter(),
	))

	properties.Property("a filter is idempotent on its own output", prop.ForAll(
		func(as []Attendee, f Filter) bool {
			once := f.Apply(as)
			return reflect.DeepEqual(once, f.Apply(once))
		},
		gen.SliceOf(genAttendee()),
		genFilter(),
	))

	properties.Property("the result is an ordered subsequence of the input", prop.ForAll(
		func(as []Attendee, f Filter) bool {
			got := f.Apply(as)
			j := 0
			for i := 0; i < len(as) && j < len(got); i++ {
				if reflect.DeepEqual(as[i], got[j]) {
					j++
				}
			}
			return j == len(got)
		},
		gen.SliceOf(genAttendee()),
		genFilter(),
	))

	properties.TestingRun(t)
}

package route

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"evhub/src-server/apperr"
	"evhub/src-server/attendee"
	"evhub/src-server/insight"
	"evhub/src-server/utils"
)

const maxImportBytes = 10 << 20

// applyFilterQuery updates the roster's filter controls from the query
// string. Parameters that are absent keep their current value.
func applyFilterQuery(roster *attendee.Roster, r *http.Request) error {
	query := r.URL.Query()
	if query.Has("status") {
		if err := (attendee.Filter{Status: query.Get("status")}).Validate(); err != nil {
			return err
		}
	}
	var conditions []attendee.Condition
	if query.Has("filters") {
		if raw := query.Get("filters"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
				return apperr.Validation("Invalid advanced filters")
			}
		}
		for _, c := range conditions {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	}

	if query.Has("search") {
		roster.SetSearchTerm(query.Get("search"))
	}
	if query.Has("status") {
		roster.SetStatusFilter(query.Get("status"))
	}
	if query.Has("ticket") {
		roster.SetTicketFilter(query.Get("ticket"))
	}
	if query.Has("group") {
		roster.SetGroupFilter(query.Get("group"))
	}
	if query.Has("filters") {
		roster.SetAdvancedFilters(conditions)
	}
	return nil
}

type rosterView struct {
	EventID   string              `json:"eventId"`
	Loading   bool                `json:"loading"`
	Attendees []attendee.Attendee `json:"attendees"`
	Selected  []string            `json:"selected"`
	Filter    attendee.Filter     `json:"filter"`
}

func viewOf(roster *attendee.Roster) rosterView {
	return rosterView{
		EventID:   roster.EventID(),
		Loading:   roster.Loading(),
		Attendees: roster.Attendees(),
		Selected:  roster.Selected(),
		Filter:    roster.Filter(),
	}
}

// importFile returns the uploaded CSV: the multipart "file" field, or the
// raw body for any other content type.
func importFile(w http.ResponseWriter, r *http.Request) (io.Reader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, apperr.Validation("Invalid upload")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, apperr.Validation("Missing file")
	}
	return file, nil
}

func Attendees(muxer *http.ServeMux, as *utils.AppState) {
	type MessageReqBody struct {
		AttendeeIDs []string `json:"attendeeIds"`
		Subject     string   `json:"subject"`
		Body        string   `json:"body"`
	}

	type SelectionReqBody struct {
		Action     string `json:"action"`
		AttendeeID string `json:"attendeeId"`
	}

	type PatchReqBody struct {
		Status    *attendee.Status `json:"status"`
		CheckedIn *bool            `json:"checkedIn"`
	}

	// rosterFor resolves eventID and checks the session may manage its
	// attendees before handing out the roster.
	rosterFor := func(w http.ResponseWriter, r *http.Request, eventID string) (*attendee.Roster, bool) {
		e, err := as.Events.Get(r.Context(), eventID)
		if err != nil {
			writeError(w, err, "Can't get event")
			return nil, false
		}
		if !canEdit(sessionFrom(r), e) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Insufficient permissions"))
			return nil, false
		}
		return as.Roster(r.Context(), sessionKey(sessionFrom(r)), e.ID), true
	}

	rosterOf := func(w http.ResponseWriter, r *http.Request) (*attendee.Roster, bool) {
		return rosterFor(w, r, r.PathValue("eventID"))
	}

	// list, with filters
	muxer.HandleFunc("GET /events/{eventID}/attendees", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			roster, ok := rosterOf(w, r)
			if !ok {
				return
			}
			if err := applyFilterQuery(roster, r); err != nil {
				writeError(w, err, "Invalid filter")
				return
			}
			roster.Load(r.Context())
			writeJSON(w, http.StatusOK, viewOf(roster))
		}))

	// add one
	muxer.HandleFunc("POST /events/{eventID}/attendees", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			roster, ok := rosterOf(w, r)
			if !ok {
				return
			}
			var reqBody attendee.Attendee
			if !decodeBody(w, r, &reqBody) {
				return
			}
			reqBody.Name = utils.CleanupString(reqBody.Name)
			reqBody.Email = strings.TrimSpace(reqBody.Email)
			if reqBody.Name == "" || reqBody.Email == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Name and email are required"))
				return
			}
			if reqBody.TicketType == "" {
				reqBody.TicketType = "regular"
			}
			added, err := roster.AddAttendee(r.Context(), reqBody)
			if err != nil {
				writeError(w, err, "Failed to add attendee")
				return
			}
			as.Admin.RecordMetric(insight.ActivityPurchase, 1)
			writeJSON(w, http.StatusCreated, added)
		}))

	// csv import
	muxer.HandleFunc("POST /events/{eventID}/attendees/import", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			roster, ok := rosterOf(w, r)
			if !ok {
				return
			}
			file, err := importFile(w, r)
			if err != nil {
				writeError(w, err, "Failed to import attendees")
				return
			}
			count, err := roster.ImportAttendees(r.Context(), file)
			if err != nil {
				writeError(w, err, "Failed to import attendees")
				return
			}
			if count > 0 {
				as.Admin.RecordMetric(insight.ActivityPurchase, float64(count))
			}
			writeJSON(w, http.StatusOK, map[string]int{"imported": count})
		}))

	// csv export of the filtered view
	muxer.HandleFunc("GET /events/{eventID}/attendees/export", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			roster, ok := rosterOf(w, r)
			if !ok {
				return
			}
			var buf bytes.Buffer
			filename, err := roster.ExportAttendees(&buf, roster.Attendees())
			if err != nil {
				writeError(w, err, "Failed to export attendees")
				return
			}
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			w.WriteHeader(http.StatusOK)
			w.Write(buf.Bytes())
		}))

	// bulk message, to the given ids or the current selection
	muxer.HandleFunc("POST /events/{eventID}/attendees/message", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody MessageReqBody
			if !decodeBody(w, r, &reqBody) {
				return
			}
			roster, ok := rosterOf(w, r)
			if !ok {
				return
			}
			ids := reqBody.AttendeeIDs
			if len(ids) == 0 {
				ids = roster.Selected()
			}
			if len(ids) == 0 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("No attendees selected"))
				return
			}
			if strings.TrimSpace(reqBody.Subject) == "" && strings.TrimSpace(reqBody.Body) == "" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Message is empty"))
				return
			}
			if err := roster.SendBulkMessage(r.Context(), ids, reqBody.Subject, reqBody.Body); err != nil {
				writeError(w, err, "Failed to send messages")
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"sent": len(ids)})
		}))

	// selection
	muxer.HandleFunc("POST /events/{eventID}/attendees/selection", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody SelectionReqBody
			if !decodeBody(w, r, &reqBody) {
				return
			}
			roster, ok := rosterOf(w, r)
			if !ok {
				return
			}
			switch reqBody.Action {
			case "toggle":
				if reqBody.AttendeeID == "" {
					w.WriteHeader(http.StatusBadRequest)
					w.Write([]byte("Missing attendee id"))
					return
				}
				roster.ToggleSelection(reqBody.AttendeeID)
			case "selectAll":
				roster.SelectAll()
			case "deselectAll":
				roster.DeselectAll()
			default:
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Unknown selection action"))
				return
			}
			writeJSON(w, http.StatusOK, map[string][]string{"selected": roster.Selected()})
		}))

	// status and check-in toggles
	muxer.HandleFunc("PATCH /attendees/{id}", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody PatchReqBody
			if !decodeBody(w, r, &reqBody) {
				return
			}
			if reqBody.Status == nil && reqBody.CheckedIn == nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Nothing to update"))
				return
			}
			stored, err := as.Attendees.Get(r.Context(), r.PathValue("id"))
			if err != nil {
				writeError(w, err, "Failed to update attendee")
				return
			}
			roster, ok := rosterFor(w, r, stored.EventID)
			if !ok {
				return
			}

			updated := stored
			if reqBody.Status != nil {
				if updated, err = roster.SetStatus(r.Context(), stored.ID, *reqBody.Status); err != nil {
					writeError(w, err, "Failed to update attendee status")
					return
				}
			}
			if reqBody.CheckedIn != nil {
				if updated, err = roster.SetCheckedIn(r.Context(), stored.ID, *reqBody.CheckedIn); err != nil {
					writeError(w, err, "Failed to update check-in")
					return
				}
				if *reqBody.CheckedIn {
					as.Admin.RecordMetric(insight.ActivityAttendance, 1)
				}
			}
			writeJSON(w, http.StatusOK, updated)
		}))

	// full replace
	muxer.HandleFunc("PUT /attendees/{id}", RoleMiddleware(as, managers,
		func(w http.ResponseWriter, r *http.Request) {
			var reqBody attendee.Attendee
			if !decodeBody(w, r, &reqBody) {
				return
			}
			stored, err := as.Attendees.Get(r.Context(), r.PathValue("id"))
			if err != nil {
				writeError(w, err, "Failed to update attendee")
				return
			}
			reqBody.ID = stored.ID
			roster, ok := rosterFor(w, r, stored.EventID)
			if !ok {
				return
			}
			updated, err := roster.Replace(r.Context(), reqBody)
			if err != nil {
				writeError(w, err, "Failed to update attendee")
				return
			}
			writeJSON(w, http.StatusOK, updated)
		}))
}

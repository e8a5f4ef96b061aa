package route

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"evhub/src-server/admin"
	"evhub/src-server/auth"
	"evhub/src-server/event"
	"evhub/src-server/ical"
	"evhub/src-server/utils"
)

// canEdit reports whether session may change e and its attendees: super
// admins always, admins within their tenant (all tenants for platform
// staff), organizers only their own events.
func canEdit(session *auth.Session, e event.Event) bool {
	u := session.User
	switch {
	case u.IsSuperAdmin:
		return true
	case u.Role == admin.RoleAdmin:
		return u.TenantID == "" || u.TenantID == e.TenantID
	}
	return e.OrganizerID == u.ID
}

func Events(muxer *http.ServeMux, as *utils.AppState) {
	type EventReqBody struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Location    string       `json:"location"`
		Status      event.Status `json:"status"`
		Start       string       `json:"start"`
		End         string       `json:"end"`
		RRule       string       `json:"rrule"`
		Capacity    int          `json:"capacity"`
	}

	type EventPatchReqBody struct {
		Title       *string       `json:"title"`
		Description *string       `json:"description"`
		Location    *string       `json:"location"`
		Status      *event.Status `json:"status"`
		Start       *string       `json:"start"`
		End         *string       `json:"end"`
		RRule       *string       `json:"rrule"`
		Capacity    *int          `json:"capacity"`
	}

	parseDate := func(s string) (time.Time, error) {
		return event.ParseDate(s, time.Now(), as.Config.GetLocation())
	}

	// editable loads the path's event and checks the session may change it.
	editable := func(w http.ResponseWriter, r *http.Request) (event.Event, bool) {
		e, err := as.Events.Get(r.Context(), r.PathValue("eventID"))
		if err != nil {
			writeError(w, err, "Can't get event")
			return event.Event{}, false
		}
		if !canEdit(sessionFrom(r), e) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Insufficient permissions"))
			return event.Event{}, false
		}
		return e, true
	}

	// list, or search with ?q=
	muxer.HandleFunc("GET /events", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if q := query.Get("q"); q != "" {
			events, err := as.Events.Search(r.Context(), q)
			if err != nil {
				writeError(w, err, "Can't search events")
				return
			}
			writeJSON(w, http.StatusOK, events)
			return
		}

		opts := event.ListOptions{
			TenantID: sessionFrom(r).User.TenantID,
			Status:   event.Status(query.Get("status")),
		}
		if query.Get("mine") == "true" {
			opts.OrganizerID = sessionFrom(r).User.ID
		}
		for key, dst := range map[string]*time.Time{"from": &opts.From, "to": &opts.To} {
			if raw := query.Get(key); raw != "" {
				t, err := parseDate(raw)
				if err != nil {
					writeError(w, err, "Invalid date")
					return
				}
				*dst = t
			}
		}
		events, err := as.Events.List(r.Context(), opts)
		if err != nil {
			writeError(w, err, "Can't list events")
			return
		}
		writeJSON(w, http.StatusOK, events)
	}))

	// create
	muxer.HandleFunc("POST /events", RoleMiddleware(as, managers, func(w http.ResponseWriter, r *http.Request) {
		var reqBody EventReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		start, err := parseDate(reqBody.Start)
		if err != nil {
			writeError(w, err, "Invalid start date")
			return
		}
		var end time.Time
		if reqBody.End != "" {
			if end, err = parseDate(reqBody.End); err != nil {
				writeError(w, err, "Invalid end date")
				return
			}
		}

		session := sessionFrom(r)
		created, err := as.Events.Create(r.Context(), event.Event{
			TenantID:    session.User.TenantID,
			OrganizerID: session.User.ID,
			Title:       utils.CleanupString(reqBody.Title),
			Description: reqBody.Description,
			Location:    reqBody.Location,
			Status:      reqBody.Status,
			Start:       start,
			End:         end,
			RRule:       reqBody.RRule,
			Capacity:    reqBody.Capacity,
		})
		if err != nil {
			writeError(w, err, "Can't create event")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}))

	muxer.HandleFunc("GET /events/upcoming", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			var err error
			if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Invalid limit"))
				return
			}
		}
		events, err := as.Events.Upcoming(r.Context(), time.Now(), limit)
		if err != nil {
			writeError(w, err, "Can't get upcoming events")
			return
		}
		writeJSON(w, http.StatusOK, events)
	}))

	muxer.HandleFunc("GET /events/{eventID}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		e, err := as.Events.Get(r.Context(), r.PathValue("eventID"))
		if err != nil {
			writeError(w, err, "Can't get event")
			return
		}
		writeJSON(w, http.StatusOK, e)
	}))

	muxer.HandleFunc("PATCH /events/{eventID}", RoleMiddleware(as, managers, func(w http.ResponseWriter, r *http.Request) {
		var reqBody EventPatchReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		e, ok := editable(w, r)
		if !ok {
			return
		}

		patch := event.Patch{
			Title:       reqBody.Title,
			Description: reqBody.Description,
			Location:    reqBody.Location,
			Status:      reqBody.Status,
			RRule:       reqBody.RRule,
			Capacity:    reqBody.Capacity,
		}
		if patch.Title != nil {
			title := utils.CleanupString(*patch.Title)
			patch.Title = &title
		}
		if reqBody.Start != nil {
			start, err := parseDate(*reqBody.Start)
			if err != nil {
				writeError(w, err, "Invalid start date")
				return
			}
			patch.Start = &start
		}
		if reqBody.End != nil {
			end, err := parseDate(*reqBody.End)
			if err != nil {
				writeError(w, err, "Invalid end date")
				return
			}
			patch.End = &end
		}

		updated, err := as.Events.Update(r.Context(), e.ID, patch)
		if err != nil {
			writeError(w, err, "Can't update event")
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}))

	muxer.HandleFunc("DELETE /events/{eventID}", RoleMiddleware(as, managers, func(w http.ResponseWriter, r *http.Request) {
		e, ok := editable(w, r)
		if !ok {
			return
		}
		if err := as.Events.Delete(r.Context(), e.ID); err != nil {
			writeError(w, err, "Can't delete event")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	muxer.HandleFunc("GET /events/{eventID}/stats", RoleMiddleware(as, managers, func(w http.ResponseWriter, r *http.Request) {
		stats, err := as.Events.Stats(r.Context(), r.PathValue("eventID"))
		if err != nil {
			writeError(w, err, "Can't get event stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}))

	// iCalendar download
	muxer.HandleFunc("GET /events/{eventID}/calendar.ics", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		e, err := as.Events.Get(r.Context(), r.PathValue("eventID"))
		if err != nil {
			writeError(w, err, "Can't get event")
			return
		}
		attendees, err := as.Attendees.List(r.Context(), e.ID)
		if err != nil {
			writeError(w, err, "Can't get attendees")
			return
		}
		var buf bytes.Buffer
		if err := ical.WriteEvent(&buf, e, attendees, time.Now()); err != nil {
			writeError(w, err, "Can't write calendar")
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ical.Filename(e)))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}))
}

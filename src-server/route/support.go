package route

import (
	"net/http"

	"evhub/src-server/admin"
	"evhub/src-server/notify"
	"evhub/src-server/support"
	"evhub/src-server/utils"
)

func Support(muxer *http.ServeMux, as *utils.AppState) {
	// tenantOf is the tenant a request acts on: the one asked for, or the
	// caller's own. Only admins may look at another tenant.
	tenantOf := func(r *http.Request, requested string) (string, bool) {
		session := sessionFrom(r)
		if requested == "" || requested == session.User.TenantID {
			return session.User.TenantID, true
		}
		return requested, session.User.IsSuperAdmin || session.User.Role == admin.RoleAdmin
	}

	muxer.HandleFunc("GET /support/tickets", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantOf(r, r.URL.Query().Get("tenantId"))
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Insufficient permissions"))
			return
		}
		writeJSON(w, http.StatusOK, as.Support.TicketsByTenant(tenantID))
	}))

	muxer.HandleFunc("POST /support/tickets", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody support.Ticket
		if !decodeBody(w, r, &reqBody) {
			return
		}
		tenantID, ok := tenantOf(r, reqBody.TenantID)
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Insufficient permissions"))
			return
		}
		reqBody.TenantID = tenantID
		reqBody.Title = utils.CleanupString(reqBody.Title)
		ticket, err := as.Support.CreateTicket(reqBody)
		if err != nil {
			writeError(w, err, "Can't create ticket")
			return
		}
		notifier(as, sessionFrom(r)).Notify(notify.LevelSuccess, "Support ticket created")
		writeJSON(w, http.StatusCreated, ticket)
	}))

	muxer.HandleFunc("GET /support/tickets/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		ticket, err := as.Support.Ticket(r.PathValue("id"))
		if err != nil {
			writeError(w, err, "Can't get ticket")
			return
		}
		if _, ok := tenantOf(r, ticket.TenantID); !ok {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Insufficient permissions"))
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	}))

	muxer.HandleFunc("PATCH /support/tickets/{id}", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody support.TicketPatch
		if !decodeBody(w, r, &reqBody) {
			return
		}
		if reqBody.Title != nil {
			title := utils.CleanupString(*reqBody.Title)
			reqBody.Title = &title
		}
		ticket, err := as.Support.UpdateTicket(r.PathValue("id"), reqBody)
		if err != nil {
			writeError(w, err, "Can't update ticket")
			return
		}
		writeJSON(w, http.StatusOK, ticket)
	}))

	muxer.HandleFunc("POST /support/chats", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		chat, err := as.Support.StartChat(sessionFrom(r).User.ID)
		if err != nil {
			writeError(w, err, "Can't start chat")
			return
		}
		writeJSON(w, http.StatusCreated, chat)
	}))
}

package route

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"evhub/src-server/admin"
	"evhub/src-server/apperr"
	"evhub/src-server/auth"
	"evhub/src-server/notify"
	"evhub/src-server/utils"
)

type SessionCtxKeyType string

const (
	SessionCtxKey     SessionCtxKeyType = "session"
	SessionCookieName string            = "session-token"
	APIKeyHeader      string            = "X-API-Key"
)

// AuthMiddleware lets a request through when it carries a valid session
// token (cookie or bearer header) or API key. The session is stored in the
// request context under SessionCtxKey.
func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := func() (auth.Session, error) {
			if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
				apiKey, err := as.Admin.VerifyAPIKey(key)
				if err != nil {
					return auth.Session{}, err
				}
				return apiKeySession(apiKey), nil
			}
			token := func() string {
				if cookie, err := r.Cookie(SessionCookieName); err == nil {
					return strings.TrimSpace(cookie.Value)
				}
				return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			}()
			if token == "" {
				return auth.Session{}, apperr.Permission("No user logged in")
			}
			return as.Auth.Parse(token)
		}()
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(apperr.Message(err, "Unauthorized")))
			return
		}

		ctx := context.WithValue(r.Context(), SessionCtxKey, &session)
		next(w, r.WithContext(ctx))
	}
}

// apiKeySession is the identity of a request made with an API key. Keys
// with the "admin" permission act as admins, the rest as organizers.
func apiKeySession(key admin.APIKey) auth.Session {
	role := admin.RoleOrganizer
	if slices.Contains(key.Permissions, "admin") {
		role = admin.RoleAdmin
	}
	return auth.Session{User: admin.User{
		ID:   "apikey:" + key.ID,
		Name: key.Name,
		Role: role,
	}}
}

// RoleMiddleware is AuthMiddleware plus a role check. Super admins always
// pass.
func RoleMiddleware(as *utils.AppState, roles []admin.Role, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r)
		if !session.User.IsSuperAdmin && !slices.Contains(roles, session.User.Role) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Insufficient permissions"))
			return
		}
		next(w, r)
	})
}

var (
	managers = []admin.Role{admin.RoleAdmin, admin.RoleOrganizer}
	admins   = []admin.Role{admin.RoleAdmin}
)

// sessionFrom must only be called behind AuthMiddleware.
func sessionFrom(r *http.Request) *auth.Session {
	session, ok := r.Context().Value(SessionCtxKey).(*auth.Session)
	if !ok {
		panic("route: no session in request context")
	}
	return session
}

// sessionKey identifies whoever is at the keyboard: the super admin while
// impersonating. Notification queues and rosters are kept per key.
func sessionKey(session *auth.Session) string {
	if session.Original != nil {
		return session.Original.ID
	}
	return session.User.ID
}

func notifier(as *utils.AppState, session *auth.Session) *notify.Queue {
	return as.Notifications.Queue(sessionKey(session))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("can't write response body", "error", err)
	}
}

// writeError answers with the status matching err's kind and its display
// message, or fallback for internal errors.
func writeError(w http.ResponseWriter, err error, fallback string) {
	code := apperr.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		slog.Error(fallback, "error", err)
	}
	w.WriteHeader(code)
	w.Write([]byte(apperr.Message(err, fallback)))
}

// decodeBody reads a JSON request body into v and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Invalid request body"))
		return false
	}
	return true
}

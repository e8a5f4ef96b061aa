package route

import (
	"fmt"
	"net/http"

	"evhub/src-server/admin"
	"evhub/src-server/auth"
	"evhub/src-server/insight"
	"evhub/src-server/notify"
	"evhub/src-server/utils"
)

func setSessionCookie(w http.ResponseWriter, as *utils.AppState, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(as.Config.GetJWTExpire().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// issue signs session, sets the cookie and answers with the session.
func issue(w http.ResponseWriter, as *utils.AppState, session auth.Session, code int) bool {
	token, err := as.Auth.Issue(session)
	if err != nil {
		writeError(w, err, "Can't sign session")
		return false
	}
	setSessionCookie(w, as, token)
	writeJSON(w, code, struct {
		auth.Session
		Token string `json:"token"`
	}{session, token})
	return true
}

func Auth(muxer *http.ServeMux, as *utils.AppState) {
	type LoginReqBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	type RegisterReqBody struct {
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Role     admin.Role `json:"role"`
	}

	type ImpersonateReqBody struct {
		UserID string `json:"userId"`
	}

	type VerifyTwoFactorReqBody struct {
		Code string `json:"code"`
	}

	// login
	muxer.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var reqBody LoginReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		session, err := as.Auth.Login(reqBody.Email, reqBody.Password)
		if err != nil {
			writeError(w, err, "Login failed")
			return
		}
		if issue(w, as, session, http.StatusOK) {
			as.Admin.RecordMetric(insight.ActivityLogin, 1)
			notifier(as, &session).Notify(notify.LevelSuccess, fmt.Sprintf("Welcome back, %s!", session.User.Name))
		}
	})

	// register
	muxer.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var reqBody RegisterReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		session, err := as.Auth.Register(utils.CleanupString(reqBody.Name), reqBody.Email, reqBody.Password, reqBody.Role)
		if err != nil {
			writeError(w, err, "Registration failed")
			return
		}
		if issue(w, as, session, http.StatusCreated) {
			notifier(as, &session).Notify(notify.LevelSuccess, "Account created successfully!")
		}
	})

	// logout
	muxer.HandleFunc("DELETE /auth", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r)
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		notifier(as, session).Notify(notify.LevelSuccess, "Logged out successfully")
		w.WriteHeader(http.StatusOK)
	}))

	muxer.HandleFunc("GET /auth/me", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionFrom(r))
	}))

	// 2fa
	muxer.HandleFunc("POST /auth/2fa", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r)
		setup, err := as.Auth.SetupTwoFactor(session.User)
		if err != nil {
			writeError(w, err, "Can't set up two-factor authentication")
			return
		}
		writeJSON(w, http.StatusCreated, setup)
	}))

	muxer.HandleFunc("POST /auth/2fa/verify", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r)
		var reqBody VerifyTwoFactorReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		valid, err := as.Auth.VerifyTwoFactor(session.User.ID, reqBody.Code)
		if err != nil {
			writeError(w, err, "Can't verify code")
			return
		}
		if valid {
			notifier(as, session).Notify(notify.LevelSuccess, "Two-factor authentication enabled")
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
	}))

	// impersonate
	muxer.HandleFunc("POST /auth/impersonate", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		current := sessionFrom(r)
		var reqBody ImpersonateReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		session, err := as.Auth.Impersonate(current, reqBody.UserID)
		if err != nil {
			notifier(as, current).Notify(notify.LevelError, "Failed to impersonate user")
			writeError(w, err, "Failed to impersonate user")
			return
		}
		if issue(w, as, session, http.StatusOK) {
			notifier(as, &session).Notify(notify.LevelSuccess, fmt.Sprintf("Now impersonating %s", session.User.Name))
		}
	}))

	// stop impersonating
	muxer.HandleFunc("DELETE /auth/impersonate", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		session, ok := as.Auth.StopImpersonation(*sessionFrom(r))
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Not impersonating anyone"))
			return
		}
		if issue(w, as, session, http.StatusOK) {
			notifier(as, &session).Notify(notify.LevelSuccess, "Returned to original user")
		}
	}))
}

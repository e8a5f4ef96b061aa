package route

import (
	"net/http"

	"evhub/src-server/notify"
	"evhub/src-server/utils"
)

func Notifications(muxer *http.ServeMux, as *utils.AppState) {
	// pending toasts, oldest first; reading them clears the queue
	muxer.HandleFunc("GET /notifications", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		pending := notifier(as, sessionFrom(r)).Drain()
		if pending == nil {
			pending = []notify.Notification{}
		}
		writeJSON(w, http.StatusOK, pending)
	}))
}

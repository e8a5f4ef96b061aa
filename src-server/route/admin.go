package route

import (
	"net/http"

	"evhub/src-server/admin"
	"evhub/src-server/insight"
	"evhub/src-server/utils"
)

func Admin(muxer *http.ServeMux, as *utils.AppState) {
	type CreateUserReqBody struct {
		admin.User
		TenantID string `json:"tenantId"`
	}

	type CreateAPIKeyReqBody struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
	}

	type RecordMetricReqBody struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	// #region - tenants
	muxer.HandleFunc("GET /admin/tenants", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Admin.Tenants())
	}))

	muxer.HandleFunc("POST /admin/tenants", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody admin.Tenant
		if !decodeBody(w, r, &reqBody) {
			return
		}
		reqBody.Name = utils.CleanupString(reqBody.Name)
		tenant, err := as.Admin.CreateTenant(reqBody)
		if err != nil {
			writeError(w, err, "Can't create tenant")
			return
		}
		writeJSON(w, http.StatusCreated, tenant)
	}))

	muxer.HandleFunc("PATCH /admin/tenants/{id}", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody admin.TenantPatch
		if !decodeBody(w, r, &reqBody) {
			return
		}
		tenant, err := as.Admin.UpdateTenant(r.PathValue("id"), reqBody)
		if err != nil {
			writeError(w, err, "Can't update tenant")
			return
		}
		writeJSON(w, http.StatusOK, tenant)
	}))

	muxer.HandleFunc("DELETE /admin/tenants/{id}", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		as.Admin.DeleteTenant(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	// #endregion

	// #region - users
	muxer.HandleFunc("GET /admin/users", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Admin.Users(r.URL.Query().Get("tenantId")))
	}))

	muxer.HandleFunc("POST /admin/users", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody CreateUserReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		user := reqBody.User
		user.Name = utils.CleanupString(user.Name)
		// only super admins hand out super admin
		if !sessionFrom(r).User.IsSuperAdmin {
			user.IsSuperAdmin = false
		}
		created, err := as.Admin.CreateUser(user, reqBody.TenantID)
		if err != nil {
			writeError(w, err, "Can't create user")
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}))

	muxer.HandleFunc("PATCH /admin/users/{id}", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody admin.UserPatch
		if !decodeBody(w, r, &reqBody) {
			return
		}
		if !sessionFrom(r).User.IsSuperAdmin {
			reqBody.IsSuperAdmin = nil
		}
		user, err := as.Admin.UpdateUser(r.PathValue("id"), reqBody)
		if err != nil {
			writeError(w, err, "Can't update user")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}))

	muxer.HandleFunc("DELETE /admin/users/{id}", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		as.Admin.DeleteUser(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	// #endregion

	// #region - api keys
	muxer.HandleFunc("GET /admin/api-keys", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Admin.APIKeys())
	}))

	muxer.HandleFunc("POST /admin/api-keys", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody CreateAPIKeyReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		key, plaintext, err := as.Admin.CreateAPIKey(reqBody.Name, reqBody.Permissions)
		if err != nil {
			writeError(w, err, "Can't create API key")
			return
		}
		// the only time the plaintext leaves the server
		writeJSON(w, http.StatusCreated, struct {
			admin.APIKey
			Key string `json:"key"`
		}{key, plaintext})
	}))

	muxer.HandleFunc("DELETE /admin/api-keys/{id}", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		as.Admin.RevokeAPIKey(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	// #endregion

	// #region - platform
	muxer.HandleFunc("GET /admin/health", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, as.Admin.Health(r.Context()))
	}))

	muxer.HandleFunc("GET /admin/metrics", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		timeRange := r.URL.Query().Get("range")
		if timeRange == "" {
			timeRange = "7d"
		}
		samples, err := as.Admin.Metrics(timeRange)
		if err != nil {
			writeError(w, err, "Can't get metrics")
			return
		}
		writeJSON(w, http.StatusOK, samples)
	}))

	muxer.HandleFunc("POST /admin/metrics", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody RecordMetricReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		if reqBody.Name == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Metric name is required"))
			return
		}
		writeJSON(w, http.StatusCreated, as.Admin.RecordMetric(reqBody.Name, reqBody.Value))
	}))

	muxer.HandleFunc("GET /admin/insights", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		insights, err := as.Admin.Insights()
		if err != nil {
			writeError(w, err, "Can't get insights")
			return
		}
		writeJSON(w, http.StatusOK, insights)
	}))

	muxer.HandleFunc("POST /admin/insights/churn", RoleMiddleware(as, admins, func(w http.ResponseWriter, r *http.Request) {
		var reqBody insight.ChurnInput
		if !decodeBody(w, r, &reqBody) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"risk": insight.ChurnRisk(reqBody)})
	}))
	// #endregion
}

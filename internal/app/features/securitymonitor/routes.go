package securitymonitor

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the monitor endpoints.
//
// Authentication, CORS, rate limiting, and access logging are applied by
// the caller's API group.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/login-attempts", h.LoginAttempts)
	r.Get("/security-events", h.SecurityEvents)
	r.Get("/access-logs", h.AccessLogs)
	r.Get("/active-threats", h.ActiveThreatsHandler)
	return r
}

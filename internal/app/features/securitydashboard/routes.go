package securitydashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the dashboard endpoints.
//
// Authentication, CORS, rate limiting, and access logging are applied by
// the caller's API group.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/summary", h.Summary)
	r.Get("/user-activity/{email}", h.UserActivity)
	r.Get("/threats-analysis", h.ThreatsAnalysis)
	return r
}

package ingest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the ingestion endpoints.
//
// When mounted at /api/telemetry:
//   - POST /api/telemetry/login-attempts
//   - POST /api/telemetry/security-events
//   - POST /api/telemetry/domain-restrictions
//
// Authentication and CORS are applied by the caller's API group.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/login-attempts", h.LoginAttempt)
	r.Post("/security-events", h.SecurityEvent)
	r.Post("/domain-restrictions", h.DomainRestriction)
	return r
}

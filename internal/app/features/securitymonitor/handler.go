// Package securitymonitor provides the filtered record listings and the
// live threat snapshot.
//
// Endpoints (mounted at /security-monitor, API key protected):
//   - GET /login-attempts?status&email&from_date&to_date&limit
//   - GET /security-events?severity&event_type&from_date&to_date&limit
//   - GET /access-logs?endpoint&method&user_id&from_date&to_date&limit
//   - GET /active-threats
package securitymonitor

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/dalemusser/stratashield/internal/app/features/errors"
	"github.com/dalemusser/stratashield/internal/app/system/eventquery"
	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/app/system/threats"
	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.uber.org/zap"
)

// Queries runs filtered listings. *eventquery.Engine satisfies it.
type Queries interface {
	LoginAttempts(ctx context.Context, q eventquery.LoginQuery) (eventquery.Page[models.LoginAttempt], error)
	SecurityEvents(ctx context.Context, q eventquery.EventQuery) (eventquery.Page[models.SecurityEvent], error)
	AccessLogs(ctx context.Context, q eventquery.AccessQuery) (eventquery.Page[models.AccessLog], error)
}

// ActiveThreats builds the live snapshot. *threats.Detector satisfies it.
type ActiveThreats interface {
	Active(ctx context.Context, now time.Time) (threats.ActiveThreats, error)
}

// Handler serves the monitor endpoints.
type Handler struct {
	queries Queries
	active  ActiveThreats
	log     *zap.Logger
	errLog  *apperrors.ErrorLogger
	now     func() time.Time
}

// NewHandler creates a monitor Handler.
func NewHandler(queries Queries, active ActiveThreats, logger *zap.Logger) *Handler {
	return &Handler{
		queries: queries,
		active:  active,
		log:     logger,
		errLog:  apperrors.NewErrorLogger(logger),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for the active-threats window.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// LoginAttemptsResponse is the body of GET /login-attempts.
type LoginAttemptsResponse struct {
	Total         int64                 `json:"total"`
	Returned      int                   `json:"returned"`
	LoginAttempts []models.LoginAttempt `json:"login_attempts"`
}

// SecurityEventsResponse is the body of GET /security-events.
type SecurityEventsResponse struct {
	Total          int64                  `json:"total"`
	Returned       int                    `json:"returned"`
	SecurityEvents []models.SecurityEvent `json:"security_events"`
}

// AccessLogsResponse is the body of GET /access-logs.
type AccessLogsResponse struct {
	Total      int64              `json:"total"`
	Returned   int                `json:"returned"`
	AccessLogs []models.AccessLog `json:"access_logs"`
}

// LoginAttempts handles GET /login-attempts.
func (h *Handler) LoginAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		h.errLog.Respond(w, r, "invalid login-attempts query", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "login-attempts query")
	defer cancel()

	page, err := h.queries.LoginAttempts(ctx, eventquery.LoginQuery{
		Status:   q.Get("status"),
		Email:    q.Get("email"),
		FromDate: q.Get("from_date"),
		ToDate:   q.Get("to_date"),
		Limit:    limit,
	})
	if err != nil {
		h.errLog.Respond(w, r, "login-attempts query failed", err)
		return
	}

	jsonutil.OK(w, LoginAttemptsResponse{
		Total:         page.Total,
		Returned:      len(page.Items),
		LoginAttempts: orEmpty(page.Items),
	})
}

// SecurityEvents handles GET /security-events.
func (h *Handler) SecurityEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		h.errLog.Respond(w, r, "invalid security-events query", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "security-events query")
	defer cancel()

	page, err := h.queries.SecurityEvents(ctx, eventquery.EventQuery{
		Severity:  q.Get("severity"),
		EventType: q.Get("event_type"),
		FromDate:  q.Get("from_date"),
		ToDate:    q.Get("to_date"),
		Limit:     limit,
	})
	if err != nil {
		h.errLog.Respond(w, r, "security-events query failed", err)
		return
	}

	jsonutil.OK(w, SecurityEventsResponse{
		Total:          page.Total,
		Returned:       len(page.Items),
		SecurityEvents: orEmpty(page.Items),
	})
}

// AccessLogs handles GET /access-logs.
func (h *Handler) AccessLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		h.errLog.Respond(w, r, "invalid access-logs query", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "access-logs query")
	defer cancel()

	page, err := h.queries.AccessLogs(ctx, eventquery.AccessQuery{
		Endpoint: q.Get("endpoint"),
		Method:   q.Get("method"),
		UserID:   q.Get("user_id"),
		FromDate: q.Get("from_date"),
		ToDate:   q.Get("to_date"),
		Limit:    limit,
	})
	if err != nil {
		h.errLog.Respond(w, r, "access-logs query failed", err)
		return
	}

	jsonutil.OK(w, AccessLogsResponse{
		Total:      page.Total,
		Returned:   len(page.Items),
		AccessLogs: orEmpty(page.Items),
	})
}

// ActiveThreatsHandler handles GET /active-threats.
func (h *Handler) ActiveThreatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "active threats")
	defer cancel()

	snap, err := h.active.Active(ctx, h.now())
	if err != nil {
		h.errLog.Respond(w, r, "active-threats snapshot failed", err)
		return
	}
	snap.HighSeverityEvents = orEmpty(snap.HighSeverityEvents)
	jsonutil.OK(w, snap)
}

// parseLimit returns nil for an absent limit so the engine default applies.
func parseLimit(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, secerr.Invalid("limit", "limit must be an integer.")
	}
	return &n, nil
}

// orEmpty keeps empty listings as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

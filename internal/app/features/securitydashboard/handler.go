// Package securitydashboard provides the aggregated dashboard views.
//
// Endpoints (mounted at /security-dashboard, API key protected):
//   - GET /summary
//   - GET /user-activity/{email}
//   - GET /threats-analysis
package securitydashboard

import (
	"context"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/dalemusser/stratashield/internal/app/features/errors"
	"github.com/dalemusser/stratashield/internal/app/system/accesslog"
	"github.com/dalemusser/stratashield/internal/app/system/aggregate"
	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/app/system/threats"
	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Aggregates builds the summary and per-user views. *aggregate.Engine
// satisfies it.
type Aggregates interface {
	Summary(ctx context.Context, now time.Time) (aggregate.SummaryReport, error)
	UserActivity(ctx context.Context, email string) (aggregate.UserActivity, error)
}

// ThreatDetector runs the weekly heuristics. *threats.Detector satisfies it.
type ThreatDetector interface {
	Detect(ctx context.Context, now time.Time) (threats.Report, error)
}

// Handler serves the dashboard endpoints.
type Handler struct {
	agg     Aggregates
	threats ThreatDetector
	log     *zap.Logger
	errLog  *apperrors.ErrorLogger
	now     func() time.Time
}

// NewHandler creates a dashboard Handler.
func NewHandler(agg Aggregates, detector ThreatDetector, logger *zap.Logger) *Handler {
	return &Handler{
		agg:     agg,
		threats: detector,
		log:     logger,
		errLog:  apperrors.NewErrorLogger(logger),
		now:     time.Now,
	}
}

// WithClock replaces the clock the reporting windows are computed from.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Summary handles GET /summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "dashboard summary")
	defer cancel()

	report, err := h.agg.Summary(ctx, h.now())
	if err != nil {
		h.errLog.Respond(w, r, "dashboard summary failed", err)
		return
	}
	jsonutil.OK(w, report)
}

// UserActivity handles GET /user-activity/{email}. The resolved user id is
// attached to the request's access record.
func (h *Handler) UserActivity(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		h.errLog.Respond(w, r, "invalid user-activity email", secerr.Invalid("email", "email is not a valid path segment"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "user activity")
	defer cancel()

	activity, err := h.agg.UserActivity(ctx, email)
	if err != nil {
		h.errLog.Respond(w, r, "user activity lookup failed", err, zap.String("email", email))
		return
	}
	accesslog.SetUserID(r.Context(), activity.User.UserID)
	jsonutil.OK(w, activity)
}

// ThreatsAnalysis handles GET /threats-analysis.
func (h *Handler) ThreatsAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Query(), h.log, "threat analysis")
	defer cancel()

	report, err := h.threats.Detect(ctx, h.now())
	if err != nil {
		h.errLog.Respond(w, r, "threat analysis failed", err)
		return
	}
	jsonutil.OK(w, report)
}

// internal/app/system/securitylog/escalation.go
package securitylog

import (
	"context"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/metrics"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// escalate runs the same-day checks after a failed attempt was stored.
// Counting and writing are separate calls, so concurrent failures for one
// email may fire one threshold crossing more or fewer times than a strict
// counter would.
func (r *Recorder) escalate(ctx context.Context, rec models.LoginAttempt) {
	dayStart := startOfDay(rec.Timestamp)
	day := models.TimeRange{From: &dayStart}

	failed, ok := r.countFailures(ctx, models.LoginFilter{
		Email:  rec.Email,
		Status: models.LoginStatusFailed,
		Range:  day,
	})
	if ok && failed >= r.cfg.FailedLoginThreshold {
		r.raise(ctx, models.EventMultipleFailedLogins, models.SeverityMedium, rec, failed)
	}

	guesses, ok := r.countFailures(ctx, models.LoginFilter{
		Email:  rec.Email,
		Status: models.LoginStatusFailed,
		Reason: models.ReasonIncorrectPassword,
		Range:  day,
	})
	if ok && guesses >= r.cfg.GuessingThreshold {
		r.raise(ctx, models.EventPasswordGuessing, models.SeverityHigh, rec, guesses)
	}
}

func (r *Recorder) countFailures(ctx context.Context, f models.LoginFilter) (int64, bool) {
	cctx, cancel := r.writeCtx(ctx)
	defer cancel()
	n, err := r.logins.Count(cctx, f)
	if err != nil {
		r.log.Error("escalation count failed; skipping check",
			zap.Error(err),
			zap.String("email", f.Email),
			zap.String("reason", f.Reason))
		return 0, false
	}
	return n, true
}

func (r *Recorder) raise(ctx context.Context, eventType, severity string, rec models.LoginAttempt, count int64) {
	details := models.Details{
		{Key: "email", Value: rec.Email},
		{Key: "count", Value: count},
	}
	if rec.IPAddress != "" {
		details = append(details, primitive.E{Key: "ip_address", Value: rec.IPAddress})
	}

	r.log.Warn("login escalation",
		zap.String("event_type", eventType),
		zap.String("email", rec.Email),
		zap.Int64("count", count))
	if id := r.RecordSecurityEvent(ctx, eventType, severity, details); id != "" {
		metrics.Escalations.WithLabelValues(eventType).Inc()
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

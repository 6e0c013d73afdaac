// internal/app/system/securitylog/recorder.go
package securitylog

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/metrics"
	"github.com/dalemusser/stratashield/internal/app/system/normalize"
	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Record kinds used in metrics labels and log lines.
const (
	kindLogin  = "login_attempt"
	kindEvent  = "security_event"
	kindAccess = "access"
)

// LoginStore is the part of the login log store the recorder writes to and
// counts from.
type LoginStore interface {
	Insert(ctx context.Context, rec models.LoginAttempt) (primitive.ObjectID, error)
	Count(ctx context.Context, f models.LoginFilter) (int64, error)
}

// EventStore persists security events.
type EventStore interface {
	Insert(ctx context.Context, ev models.SecurityEvent) (primitive.ObjectID, error)
}

// AccessStore persists access records.
type AccessStore interface {
	Insert(ctx context.Context, rec models.AccessLog) (primitive.ObjectID, error)
}

// Config holds escalation thresholds and write behaviour.
type Config struct {
	// FailedLoginThreshold is the same-day failure count that raises
	// multiple_failed_logins. Default 3.
	FailedLoginThreshold int64
	// GuessingThreshold is the same-day incorrect_password count that raises
	// password_guessing. Default 5.
	GuessingThreshold int64
	// WriteTimeout bounds each store call. Default timeouts.Write().
	WriteTimeout time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Recorder appends telemetry records. Its methods never return errors: a
// failed write is logged, counted, and reported as an empty id.
type Recorder struct {
	logins LoginStore
	events EventStore
	access AccessStore
	log    *zap.Logger
	cfg    Config
}

// New creates a Recorder.
func New(logins LoginStore, events EventStore, access AccessStore, logger *zap.Logger, cfg Config) *Recorder {
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 3
	}
	if cfg.GuessingThreshold <= 0 {
		cfg.GuessingThreshold = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logins: logins, events: events, access: access, log: logger, cfg: cfg}
}

// LoginAttemptInput is one authentication outcome reported by a producer.
type LoginAttemptInput struct {
	Email     string
	Status    string
	Reason    string
	Source    string
	IPAddress string
	UserAgent string
}

// AccessInput is one served API request.
type AccessInput struct {
	Endpoint   string
	Method     string
	UserID     string
	IPAddress  string
	StatusCode int
	DurationMs float64
	RequestID  string
}

// writeCtx detaches from the caller's cancellation so a client hanging up
// does not drop the record, and bounds the write.
func (r *Recorder) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := r.cfg.WriteTimeout
	if d <= 0 {
		d = timeouts.Write()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func (r *Recorder) now() time.Time {
	return r.cfg.Now().UTC()
}

// RecordLoginAttempt stores a login attempt and, for failures, runs the
// real-time escalation checks. Returns the record id or "".
func (r *Recorder) RecordLoginAttempt(ctx context.Context, in LoginAttemptInput) string {
	rec := models.LoginAttempt{
		Email:     normalize.Email(in.Email),
		Timestamp: r.now(),
		Status:    normalize.Status(in.Status),
		Reason:    normalize.Reason(in.Reason),
		Source:    normalize.Source(in.Source),
		IPAddress: capString(in.IPAddress, 64),
		UserAgent: capString(in.UserAgent, maxStringBytes),
	}

	wctx, cancel := r.writeCtx(ctx)
	id, err := r.logins.Insert(wctx, rec)
	cancel()
	if err != nil {
		metrics.RecordTelemetry(kindLogin, false)
		r.log.Error("failed to record login attempt",
			zap.Error(err),
			zap.String("email", rec.Email),
			zap.String("status", rec.Status))
		return ""
	}
	metrics.RecordTelemetry(kindLogin, true)

	if rec.Status == models.LoginStatusFailed {
		r.escalate(ctx, rec)
	}
	return id.Hex()
}

// RecordSecurityEvent stores a security event. Empty or unknown severities
// are stored as low. Details are capped and stripped of markup.
func (r *Recorder) RecordSecurityEvent(ctx context.Context, eventType, severity string, details models.Details) string {
	return r.RecordUserSecurityEvent(ctx, "", eventType, severity, details)
}

// RecordUserSecurityEvent is RecordSecurityEvent with an associated user id.
func (r *Recorder) RecordUserSecurityEvent(ctx context.Context, userID, eventType, severity string, details models.Details) string {
	sev := normalize.Severity(severity)
	if !models.IsSeverity(sev) {
		r.log.Warn("unknown severity recorded as low",
			zap.String("severity", sev),
			zap.String("event_type", eventType))
		sev = models.SeverityLow
	}

	ev := models.SecurityEvent{
		Timestamp: r.now(),
		EventType: normalize.EventType(eventType),
		Severity:  sev,
		Details:   CapDetails(details),
		UserID:    strings.TrimSpace(userID),
	}

	wctx, cancel := r.writeCtx(ctx)
	defer cancel()
	id, err := r.events.Insert(wctx, ev)
	if err != nil {
		metrics.RecordTelemetry(kindEvent, false)
		r.log.Error("failed to record security event",
			zap.Error(err),
			zap.String("event_type", ev.EventType),
			zap.String("severity", ev.Severity))
		return ""
	}
	metrics.RecordTelemetry(kindEvent, true)
	return id.Hex()
}

// RecordAccess stores one access record.
func (r *Recorder) RecordAccess(ctx context.Context, in AccessInput) string {
	rec := models.AccessLog{
		Timestamp:  r.now(),
		Endpoint:   capString(in.Endpoint, maxStringBytes),
		Method:     normalize.Method(in.Method),
		UserID:     in.UserID,
		IPAddress:  capString(in.IPAddress, 64),
		StatusCode: in.StatusCode,
		DurationMs: in.DurationMs,
		RequestID:  in.RequestID,
	}

	wctx, cancel := r.writeCtx(ctx)
	defer cancel()
	id, err := r.access.Insert(wctx, rec)
	if err != nil {
		metrics.RecordTelemetry(kindAccess, false)
		r.log.Error("failed to record access",
			zap.Error(err),
			zap.String("endpoint", rec.Endpoint),
			zap.Int("status_code", rec.StatusCode))
		return ""
	}
	metrics.RecordTelemetry(kindAccess, true)
	return id.Hex()
}

// RecordDomainRestriction notes a registration refused because of its email
// domain.
func (r *Recorder) RecordDomainRestriction(ctx context.Context, email, domain string) string {
	return r.RecordSecurityEvent(ctx, models.EventDomainRestriction, models.SeverityMedium, models.Details{
		{Key: "email", Value: normalize.Email(email)},
		{Key: "domain", Value: normalize.Email(domain)},
	})
}

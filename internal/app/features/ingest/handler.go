// Package ingest provides the producer-facing telemetry endpoints used by
// the authentication and registration services.
//
// Endpoints (mounted at /api/telemetry, API key protected):
//   - POST /login-attempts
//   - POST /security-events
//   - POST /domain-restrictions
//
// Storage failures never fail a request: the record is dropped, logged by
// the recorder, and the response carries "id": null.
package ingest

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratashield/internal/app/system/inputval"
	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/securitylog"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.uber.org/zap"
)

// Recorder appends telemetry. *securitylog.Recorder satisfies it.
type Recorder interface {
	RecordLoginAttempt(ctx context.Context, in securitylog.LoginAttemptInput) string
	RecordUserSecurityEvent(ctx context.Context, userID, eventType, severity string, details models.Details) string
	RecordDomainRestriction(ctx context.Context, email, domain string) string
}

// Handler serves the ingestion endpoints.
type Handler struct {
	rec    Recorder
	policy inputval.DomainPolicy
	logger *zap.Logger
}

// NewHandler creates an ingestion Handler. policy decides which registration
// domains are refused.
func NewHandler(rec Recorder, policy inputval.DomainPolicy, logger *zap.Logger) *Handler {
	return &Handler{rec: rec, policy: policy, logger: logger}
}

// IDResponse carries the stored record id, or null when nothing was stored.
type IDResponse struct {
	ID *string `json:"id"`
}

func idResponse(id string) IDResponse {
	if id == "" {
		return IDResponse{}
	}
	return IDResponse{ID: &id}
}

type loginAttemptRequest struct {
	Email     string `json:"email" validate:"required,max=254" label:"email"`
	Status    string `json:"status" validate:"required,loginstatus" label:"status"`
	Reason    string `json:"reason" validate:"max=128" label:"reason"`
	Source    string `json:"source" validate:"max=64" label:"source"`
	IPAddress string `json:"ip_address" validate:"omitempty,ip" label:"ip_address"`
	UserAgent string `json:"user_agent" validate:"max=1024" label:"user_agent"`
}

type securityEventRequest struct {
	EventType string         `json:"event_type" validate:"required,max=128" label:"event_type"`
	Severity  string         `json:"severity" validate:"omitempty,severity" label:"severity"`
	UserID    string         `json:"user_id" validate:"omitempty,objectid" label:"user_id"`
	Details   models.Details `json:"details"`
}

type domainRestrictionRequest struct {
	Email  string `json:"email" validate:"required,emailaddr" label:"email"`
	Domain string `json:"domain" validate:"max=253" label:"domain"`
}

// DomainCheckResponse reports the policy decision for a registration email.
type DomainCheckResponse struct {
	ID      *string `json:"id"`
	Allowed bool    `json:"allowed"`
	Message string  `json:"message,omitempty"`
}

// decode reads and validates a request body, writing 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := jsonutil.Decode(w, r, v); err != nil {
		h.logger.Debug("ingest request rejected", zap.String("path", r.URL.Path), zap.Error(err))
		jsonutil.BadRequest(w, err.Error())
		return false
	}
	if res := inputval.Validate(v); res.HasErrors() {
		h.logger.Debug("ingest request invalid", zap.String("path", r.URL.Path), zap.String("errors", res.All()))
		jsonutil.BadRequest(w, res.All())
		return false
	}
	return true
}

// LoginAttempt handles POST /login-attempts.
//
// Request body:
//
//	{
//	    "email": "user@example.com",
//	    "status": "failed",
//	    "reason": "incorrect_password",
//	    "source": "email",
//	    "ip_address": "203.0.113.7",
//	    "user_agent": "Mozilla/5.0 ..."
//	}
func (h *Handler) LoginAttempt(w http.ResponseWriter, r *http.Request) {
	var in loginAttemptRequest
	if !h.decode(w, r, &in) {
		return
	}
	id := h.rec.RecordLoginAttempt(r.Context(), securitylog.LoginAttemptInput{
		Email:     in.Email,
		Status:    in.Status,
		Reason:    in.Reason,
		Source:    in.Source,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
	})
	jsonutil.Accepted(w, idResponse(id))
}

// SecurityEvent handles POST /security-events. An omitted severity is
// stored as low.
//
// Request body:
//
//	{
//	    "event_type": "account_locked",
//	    "severity": "high",
//	    "user_id": "65f0c0...",
//	    "details": { ... any JSON object ... }
//	}
func (h *Handler) SecurityEvent(w http.ResponseWriter, r *http.Request) {
	var in securityEventRequest
	if !h.decode(w, r, &in) {
		return
	}
	id := h.rec.RecordUserSecurityEvent(r.Context(), in.UserID, in.EventType, in.Severity, in.Details)
	jsonutil.Accepted(w, idResponse(id))
}

// DomainRestriction handles POST /domain-restrictions. The email is checked
// against the allowed registration domains; a refused email is recorded as
// a domain_restriction event.
//
// Request body:
//
//	{
//	    "email": "someone@example.org",
//	    "domain": "example.org"   // optional, derived from email
//	}
func (h *Handler) DomainRestriction(w http.ResponseWriter, r *http.Request) {
	var in domainRestrictionRequest
	if !h.decode(w, r, &in) {
		return
	}
	if h.policy.Allows(in.Email) {
		jsonutil.Accepted(w, DomainCheckResponse{Allowed: true})
		return
	}

	domain := in.Domain
	if domain == "" {
		domain = inputval.EmailDomain(in.Email)
	}
	id := h.rec.RecordDomainRestriction(r.Context(), in.Email, domain)
	jsonutil.Accepted(w, DomainCheckResponse{
		ID:      idResponse(id).ID,
		Allowed: false,
		Message: h.policy.Message(),
	})
}

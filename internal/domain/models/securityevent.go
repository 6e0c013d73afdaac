// internal/domain/models/securityevent.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SecurityEvent is a noteworthy security occurrence, either reported by a
// producer or derived by the recorder's escalation checks.
type SecurityEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	EventType string             `bson:"event_type" json:"event_type"`
	Severity  string             `bson:"severity" json:"severity"`
	Details   Details            `bson:"details" json:"details"`
	UserID    string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

// Severities, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Event types the service emits itself. Producers may send any other type.
const (
	EventMultipleFailedLogins = "multiple_failed_logins"
	EventPasswordGuessing     = "password_guessing"
	EventDomainRestriction    = "domain_restriction"
)

// AllSeverities returns every severity in ascending order.
func AllSeverities() []string {
	return []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// IsSeverity reports whether s is a known severity.
func IsSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

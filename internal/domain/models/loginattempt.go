// internal/domain/models/loginattempt.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoginAttempt is one authentication outcome reported by an auth producer.
// Records are append-only; Email is stored normalized (trimmed, lowercase).
type LoginAttempt struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Status    string             `bson:"status" json:"status"`                             // success, failed, error, register_success
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`         // user_not_found, incorrect_password, ...
	Source    string             `bson:"source,omitempty" json:"source,omitempty"`         // producing endpoint
	IPAddress string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"` // client address when known
	UserAgent string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// Login attempt statuses
const (
	LoginStatusSuccess         = "success"
	LoginStatusFailed          = "failed"
	LoginStatusError           = "error"
	LoginStatusRegisterSuccess = "register_success"
)

// Failure reasons reported by the auth producers. Reason is free-form;
// these are the values the heuristics key on.
const (
	ReasonUserNotFound      = "user_not_found"
	ReasonIncorrectPassword = "incorrect_password"
	ReasonUserAlreadyExists = "user_already_exists"
)

// DefaultLoginSource is recorded when a producer does not name itself.
const DefaultLoginSource = "security_logger"

// AllLoginStatuses returns every known login status.
func AllLoginStatuses() []string {
	return []string{
		LoginStatusSuccess,
		LoginStatusFailed,
		LoginStatusError,
		LoginStatusRegisterSuccess,
	}
}

// internal/domain/models/accesslog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessLog records one call against the dashboard or monitor surface.
type AccessLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Endpoint   string             `bson:"endpoint" json:"endpoint"`
	Method     string             `bson:"method" json:"method"`
	UserID     string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	IPAddress  string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	StatusCode int                `bson:"status_code" json:"status_code"`
	DurationMs float64            `bson:"duration_ms" json:"duration_ms"`
	RequestID  string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
}

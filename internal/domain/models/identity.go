// internal/domain/models/identity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the slice of an account record this service reads. The
// accounts collection is owned by the account service; it is never written here.
type Identity struct {
	ID        primitive.ObjectID `bson:"_id" json:"user_id"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"created_at,omitempty" json:"created_at"`
}

// internal/app/store/identities/identities.go
package identities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/stratashield/internal/app/store/storeutil"
	"github.com/dalemusser/stratashield/internal/app/system/normalize"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection is the account collection maintained by the account service.
const DefaultCollection = "users"

// Store reads account identities. It never writes.
type Store struct {
	c     *mongo.Collection
	guard *storeutil.Guard
}

// New creates an identity Store over collection (DefaultCollection when empty).
func New(db *mongo.Database, collection string, guard *storeutil.Guard) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{c: db.Collection(collection), guard: guard}
}

// GetByEmail looks up an identity by normalized email.
// Returns an error wrapping secerr.ErrNotFound when there is none.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Identity, error) {
	email = normalize.Email(email)
	return storeutil.Do(s.guard, func() (models.Identity, error) {
		var id models.Identity
		opts := options.FindOne().SetProjection(bson.M{"_id": 1, "email": 1, "created_at": 1})
		err := s.c.FindOne(ctx, bson.M{"email": email}, opts).Decode(&id)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Identity{}, fmt.Errorf("identity %q: %w", email, secerr.ErrNotFound)
		}
		if err != nil {
			return models.Identity{}, err
		}
		return id, nil
	})
}

// Count returns the number of identities, or only those created at or after
// since when since is non-nil.
func (s *Store) Count(ctx context.Context, since *time.Time) (int64, error) {
	filter := bson.M{}
	if since != nil {
		filter["created_at"] = bson.M{"$gte": *since}
	}
	return storeutil.Do(s.guard, func() (int64, error) {
		return s.c.CountDocuments(ctx, filter)
	})
}

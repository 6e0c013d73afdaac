// internal/app/store/securityevents/securityevents.go
package securityevents

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratashield/internal/app/store/storeutil"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the name of the security events collection.
const Collection = "security_events"

// Store persists security events.
type Store struct {
	c     *mongo.Collection
	guard *storeutil.Guard
}

// New creates a security events Store. guard may be nil.
func New(db *mongo.Database, guard *storeutil.Guard) *Store {
	return &Store{c: db.Collection(Collection), guard: guard}
}

// Insert appends an event and returns its id. A zero Timestamp is set to now (UTC).
func (s *Store) Insert(ctx context.Context, ev models.SecurityEvent) (primitive.ObjectID, error) {
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	err := storeutil.Exec(s.guard, func() error {
		_, err := s.c.InsertOne(ctx, ev)
		return err
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return ev.ID, nil
}

// Find returns events matching f, newest first. limit <= 0 means unlimited.
func (s *Store) Find(ctx context.Context, f models.EventFilter, limit int64) ([]models.SecurityEvent, error) {
	return storeutil.Do(s.guard, func() ([]models.SecurityEvent, error) {
		cur, err := s.c.Find(ctx, filterDoc(f), storeutil.FindNewest(limit))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		out := []models.SecurityEvent{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Count returns the number of events matching f.
func (s *Store) Count(ctx context.Context, f models.EventFilter) (int64, error) {
	return storeutil.Do(s.guard, func() (int64, error) {
		return s.c.CountDocuments(ctx, filterDoc(f))
	})
}

// GroupBy counts events matching f per value of field, ordered by count
// descending, then key ascending.
func (s *Store) GroupBy(ctx context.Context, f models.EventFilter, field string) ([]models.Group, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filterDoc(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	return storeutil.Do(s.guard, func() ([]models.Group, error) {
		cur, err := s.c.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fmt.Errorf("group security_events by %s: %w", field, err)
		}
		defer cur.Close(ctx)

		var groups []models.Group
		if err := cur.All(ctx, &groups); err != nil {
			return nil, err
		}
		return groups, nil
	})
}

func filterDoc(f models.EventFilter) bson.M {
	query := bson.M{}
	switch len(f.Severities) {
	case 0:
	case 1:
		query["severity"] = f.Severities[0]
	default:
		query["severity"] = bson.M{"$in": f.Severities}
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.DetailEmail != "" {
		query["details.email"] = f.DetailEmail
	}
	if tr := storeutil.TimeRangeDoc(f.Range); tr != nil {
		query["timestamp"] = tr
	}
	return query
}

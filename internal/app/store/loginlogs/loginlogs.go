// internal/app/store/loginlogs/loginlogs.go
package loginlogs

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

// Collection is the name of the login attempts collection.
const Collection = "login_logs"

// Store persists login attempts.
type Store struct {
	c     *mongo.Collection
	guard *storeutil.Guard
}

// New creates a login attempts Store. guard may be nil.
func New(db *mongo.Database, guard *storeutil.Guard) *Store {
	return &Store{c: db.Collection(Collection), guard: guard}
}

// Insert appends a login attempt and returns its id. A zero Timestamp is set
// to now (UTC).
func (s *Store) Insert(ctx context.Context, rec models.LoginAttempt) (primitive.ObjectID, error) {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	err := storeutil.Exec(s.guard, func() error {
		_, err := s.c.InsertOne(ctx, rec)
		return err
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return rec.ID, nil
}

// Find returns attempts matching f, newest first. limit <= 0 means unlimited.
func (s *Store) Find(ctx context.Context, f models.LoginFilter, limit int64) ([]models.LoginAttempt, error) {
	return storeutil.Do(s.guard, func() ([]models.LoginAttempt, error) {
		cur, err := s.c.Find(ctx, filterDoc(f), storeutil.FindNewest(limit))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		out := []models.LoginAttempt{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Count returns the number of attempts matching f.
func (s *Store) Count(ctx context.Context, f models.LoginFilter) (int64, error) {
	return storeutil.Do(s.guard, func() (int64, error) {
		return s.c.CountDocuments(ctx, filterDoc(f))
	})
}

// GroupBy counts attempts matching f per distinct value of field, collecting
// the distinct non-empty values of distinctField in each group. Groups with
// fewer than minCount records are dropped. Results are ordered by count
// descending, then key ascending.
func (s *Store) GroupBy(ctx context.Context, f models.LoginFilter, field, distinctField string, minCount int64) ([]models.Group, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filterDoc(f)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "distinct", Value: bson.D{{Key: "$addToSet", Value: "$" + distinctField}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gte", Value: minCount}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	return storeutil.Do(s.guard, func() ([]models.Group, error) {
		cur, err := s.c.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fmt.Errorf("group login_logs by %s: %w", field, err)
		}
		defer cur.Close(ctx)

		var groups []models.Group
		for cur.Next(ctx) {
			var g models.Group
			if err := cur.Decode(&g); err != nil {
				return nil, err
			}
			g.Distinct = storeutil.CompactSorted(g.Distinct)
			groups = append(groups, g)
		}
		return groups, cur.Err()
	})
}

// CountByDayStatus counts attempts since the given time per (UTC calendar
// day, status). Days without attempts are absent; callers zero-fill.
func (s *Store) CountByDayStatus(ctx context.Context, since time.Time) ([]models.DayStatusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "day", Value: bson.D{{Key: "$dateToString", Value: bson.D{
					{Key: "format", Value: "%Y-%m-%d"},
					{Key: "date", Value: "$timestamp"},
				}}}},
				{Key: "status", Value: "$status"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.day", Value: 1}}}},
	}

	return storeutil.Do(s.guard, func() ([]models.DayStatusCount, error) {
		cur, err := s.c.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fmt.Errorf("login trend aggregation: %w", err)
		}
		defer cur.Close(ctx)

		var out []models.DayStatusCount
		for cur.Next(ctx) {
			var row struct {
				ID struct {
					Day    string `bson:"day"`
					Status string `bson:"status"`
				} `bson:"_id"`
				Count int64 `bson:"count"`
			}
			if err := cur.Decode(&row); err != nil {
				return nil, err
			}
			out = append(out, models.DayStatusCount{Day: row.ID.Day, Status: row.ID.Status, Count: row.Count})
		}
		return out, cur.Err()
	})
}

func filterDoc(f models.LoginFilter) bson.M {
	query := bson.M{}
	if f.Email != "" {
		query["email"] = f.Email
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Reason != "" {
		query["reason"] = f.Reason
	}
	if f.RequireIP {
		query["ip_address"] = bson.M{"$exists": true, "$nin": bson.A{nil, ""}}
	}
	if tr := storeutil.TimeRangeDoc(f.Range); tr != nil {
		query["timestamp"] = tr
	}
	return query
}

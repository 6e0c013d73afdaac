// internal/app/store/accesslogs/accesslogs.go
package accesslogs

import (
	"context"
	"time"

	"github.com/dalemusser/stratashield/internal/app/store/storeutil"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the name of the access log collection.
const Collection = "access_logs"

type Store struct {
	c     *mongo.Collection
	guard *storeutil.Guard
}

func New(db *mongo.Database, guard *storeutil.Guard) *Store {
	return &Store{c: db.Collection(Collection), guard: guard}
}

// Insert appends an access record and returns its id.
func (s *Store) Insert(ctx context.Context, rec models.AccessLog) (primitive.ObjectID, error) {
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

// Find returns access records matching f, newest first.
func (s *Store) Find(ctx context.Context, f models.AccessFilter, limit int64) ([]models.AccessLog, error) {
	return storeutil.Do(s.guard, func() ([]models.AccessLog, error) {
		cur, err := s.c.Find(ctx, filterDoc(f), storeutil.FindNewest(limit))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		out := []models.AccessLog{}
		if err := cur.All(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Count returns the number of access records matching f.
func (s *Store) Count(ctx context.Context, f models.AccessFilter) (int64, error) {
	return storeutil.Do(s.guard, func() (int64, error) {
		return s.c.CountDocuments(ctx, filterDoc(f))
	})
}

func filterDoc(f models.AccessFilter) bson.M {
	query := bson.M{}
	if f.UserID != "" {
		query["user_id"] = f.UserID
	}
	if f.Endpoint != "" {
		query["endpoint"] = f.Endpoint
	}
	if f.Method != "" {
		query["method"] = f.Method
	}
	if tr := storeutil.TimeRangeDoc(f.Range); tr != nil {
		query["timestamp"] = tr
	}
	return query
}

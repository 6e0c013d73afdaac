// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's index set is reconciled
idempotently; errors are aggregated so every problem is visible and startup
can fail fast. The account collection is owned elsewhere and left alone.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := reconciler{logger: logger}

	var problems []string
	for _, set := range indexSets() {
		if err := r.ensure(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func indexSets() []indexSet {
	return []indexSet{
		{
			collection: "login_logs",
			models: []mongo.IndexModel{
				// Recent attempts and time-window counts
				{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_login_logs_ts")},
				// Per-email history and same-day failure counts
				{Keys: bson.D{{Key: "email", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_login_logs_email_ts")},
				// Status windows (failed this week, success today)
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_login_logs_status_ts")},
			},
		},
		{
			collection: "security_events",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_security_events_ts")},
				{Keys: bson.D{{Key: "severity", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_security_events_severity_ts")},
				{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_security_events_type_ts")},
				// Per-identity activity view
				{Keys: bson.D{{Key: "details.email", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_security_events_detail_email")},
			},
		},
		{
			collection: "access_logs",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_access_logs_ts")},
				{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_access_logs_user_ts")},
				{Keys: bson.D{{Key: "endpoint", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_access_logs_endpoint_ts")},
			},
		},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name string `bson:"name"`
	Key  bson.D `bson:"key"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

type reconciler struct {
	logger *zap.Logger
}

func (r reconciler) existing(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// Collection may not exist yet; nothing to reuse.
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			r.logger.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func (r reconciler) ensure(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	have := r.existing(ctx, coll)

	var errs []string
	for _, m := range models {
		var name string
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := have[sig]; ok {
			// Same key pattern already indexed (possibly under another name).
			r.logger.Debug("reusing existing index",
				zap.String("collection", coll.Name()),
				zap.String("name", ex.Name),
				zap.String("keys", sig))
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			msg := "index ensure failed"
			if isOptionsConflictErr(err) {
				msg = "index ensure failed (options conflict)"
			}
			r.logger.Warn(msg,
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		r.logger.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", created),
			zap.String("keys", sig),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Package validators attaches $jsonSchema validators to the telemetry
// collections so that malformed records are refused by the server even when
// they arrive from outside the recorder.
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/stratashield/internal/app/store/accesslogs"
	"github.com/dalemusser/stratashield/internal/app/store/loginlogs"
	"github.com/dalemusser/stratashield/internal/app/store/securityevents"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collectionSchema pairs a telemetry collection with its $jsonSchema.
type collectionSchema struct {
	name   string
	schema bson.M
}

func telemetrySchemas() []collectionSchema {
	return []collectionSchema{
		{loginlogs.Collection, loginLogsSchema()},
		{securityevents.Collection, securityEventsSchema()},
		{accesslogs.Collection, accessLogsSchema()},
	}
}

// EnsureAll creates the telemetry collections when missing and attaches a
// validator to each. Servers without collMod validator support (some
// DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var errs []error
	for _, cs := range telemetrySchemas() {
		if _, err := ensureCollection(ctx, db, logger, cs.name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cs.name, err))
			continue
		}
		err := setValidator(ctx, db, logger, cs.name, cs.schema)
		switch {
		case err == nil:
		case isUnsupported(err):
			logger.Info("validator skipped (unsupported)", zap.String("collection", cs.name))
		default:
			errs = append(errs, fmt.Errorf("%s: %w", cs.name, err))
		}
	}
	return errors.Join(errs...)
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection reports created=true only when this call made it.
func ensureCollection(ctx context.Context, db *mongo.Database, logger *zap.Logger, name string) (created bool, err error) {
	if exists, err := collectionExists(ctx, db, name); err == nil && exists {
		return false, nil
	}
	// Listing can fail on restricted users; create and tolerate the race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExists(err) {
			return false, nil
		}
		logger.Warn("create collection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	logger.Info("created telemetry collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, logger *zap.Logger, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	logger.Debug("validator ensured", zap.String("collection", name))
	return nil
}

// commandError matches a server error by code or by message fragment.
func commandError(err error, codes []int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// NamespaceExists (48).
func isNamespaceExists(err error) bool {
	return commandError(err, []int32{48}, "already exists", "namespace exists")
}

// CommandNotFound (59) or CommandNotSupported (115).
func isUnsupported(err error) bool {
	return commandError(err, []int32{59, 115}, "no such command", "not implemented", "not supported")
}

// Status and reason stay free-form strings: the recorder stores whatever the
// producer reported.
func loginLogsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "timestamp", "status"},
			"properties": bson.M{
				"email":      bson.M{"bsonType": "string"},
				"timestamp":  bson.M{"bsonType": "date"},
				"status":     bson.M{"bsonType": "string", "minLength": 1},
				"reason":     bson.M{"bsonType": "string"},
				"source":     bson.M{"bsonType": "string"},
				"ip_address": bson.M{"bsonType": "string"},
				"user_agent": bson.M{"bsonType": "string"},
			},
		},
	}
}

func securityEventsSchema() bson.M {
	severities := bson.A{}
	for _, s := range models.AllSeverities() {
		severities = append(severities, s)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"timestamp", "event_type", "severity"},
			"properties": bson.M{
				"timestamp":  bson.M{"bsonType": "date"},
				"event_type": bson.M{"bsonType": "string"},
				"severity":   bson.M{"enum": severities},
				"details":    bson.M{"bsonType": bson.A{"object", "null"}},
				"user_id":    bson.M{"bsonType": "string"},
			},
		},
	}
}

func accessLogsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"timestamp", "endpoint", "method", "status_code"},
			"properties": bson.M{
				"timestamp":   bson.M{"bsonType": "date"},
				"endpoint":    bson.M{"bsonType": "string"},
				"method":      bson.M{"bsonType": "string"},
				"status_code": bson.M{"bsonType": bson.A{"int", "long"}},
				"duration_ms": bson.M{"bsonType": bson.A{"double", "int", "long"}},
				"user_id":     bson.M{"bsonType": "string"},
				"ip_address":  bson.M{"bsonType": "string"},
				"request_id":  bson.M{"bsonType": "string"},
			},
		},
	}
}

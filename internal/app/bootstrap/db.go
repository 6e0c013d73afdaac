// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratashield/internal/app/store/accesslogs"
	"github.com/dalemusser/stratashield/internal/app/store/identities"
	"github.com/dalemusser/stratashield/internal/app/store/loginlogs"
	"github.com/dalemusser/stratashield/internal/app/store/securityevents"
	"github.com/dalemusser/stratashield/internal/app/store/storeutil"
	"github.com/dalemusser/stratashield/internal/app/system/indexes"
	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/dalemusser/stratashield/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and builds the event stores.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. The connect is bounded by mongo_connect_timeout; per-operation
// bounds come from mongo_op_timeout via the timeouts package.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeouts.Config{Query: appCfg.MongoOpTimeout})

	// Configure MongoDB connection pool
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	connectCtx := ctx
	if appCfg.MongoConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, appCfg.MongoConnectTimeout)
		defer cancel()
	}

	client, err := wafflemongo.ConnectWithPool(connectCtx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	guard := storeutil.NewGuard(storeutil.BreakerConfig{
		Name:     "event-store",
		Failures: appCfg.BreakerFailures,
		Cooldown: appCfg.BreakerCooldown,
	}, logger)

	return DBDeps{
		MongoClient:    client,
		MongoDatabase:  db,
		Guard:          guard,
		LoginLogs:      loginlogs.New(db, guard),
		SecurityEvents: securityevents.New(db, guard),
		AccessLogs:     accesslogs.New(db, guard),
		Identities:     identities.New(db, appCfg.IdentityCollection, guard),
	}, nil
}

// EnsureSchema creates the event collections with their validators, then
// their indexes.
//
// The context has a timeout based on coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Collections first so indexes are built on validated collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}

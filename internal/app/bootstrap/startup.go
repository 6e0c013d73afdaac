// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// The identity collection belongs to the authentication service, so it is
// only checked for presence: a missing collection is logged, not created,
// and user metrics read as zero until it appears.
//
// Returning a non-nil error will abort startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	listCtx, cancel := context.WithTimeout(ctx, timeouts.Write())
	defer cancel()

	names, err := deps.MongoDatabase.ListCollectionNames(listCtx, bson.M{"name": appCfg.IdentityCollection})
	if err != nil {
		return fmt.Errorf("check identity collection: %w", err)
	}
	if len(names) == 0 {
		logger.Warn("identity collection not found; user metrics will be empty",
			zap.String("collection", appCfg.IdentityCollection))
	}

	logger.Info("security telemetry settings",
		zap.Int64("escalation_failed_threshold", appCfg.EscalationFailedThreshold),
		zap.Int64("escalation_guessing_threshold", appCfg.EscalationGuessingThreshold),
		zap.Int64("suspicious_ip_threshold", appCfg.SuspiciousIPThreshold),
		zap.Int64("password_guessing_threshold", appCfg.PasswordGuessingThreshold),
		zap.Strings("allowed_email_domains", appCfg.AllowedEmailDomains),
		zap.Bool("trust_proxy", appCfg.TrustProxy),
		zap.Duration("mongo_op_timeout", timeouts.Query()),
	)
	return nil
}

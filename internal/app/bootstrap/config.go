// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/stratashield/internal/app/store/identities"
	"github.com/dalemusser/stratashield/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATASHIELD"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, api_key, etc.
//   - Environment variables: STRATASHIELD_MONGO_URI, STRATASHIELD_API_KEY, etc.
//   - Command-line flags: --mongo_uri, --api_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratashield", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "mongo_connect_timeout", Default: "5s", Desc: "MongoDB connect and server selection timeout"},
	{Name: "mongo_op_timeout", Default: "30s", Desc: "Upper bound for a single event store operation"},
	{Name: "identity_collection", Default: identities.DefaultCollection, Desc: "Accounts collection read for user metrics and activity"},

	// API access
	{Name: "api_key", Default: "", Desc: "Bearer key for /security-dashboard, /security-monitor and /api/telemetry (empty rejects all)"},
	{Name: "api_cors_origins", Default: "", Desc: "Comma-separated browser origins allowed on API routes (empty allows any)"},
	{Name: "trust_proxy", Default: false, Desc: "Take client IPs from X-Forwarded-For / X-Real-IP"},

	// Escalation and heuristics
	{Name: "escalation_failed_threshold", Default: 3, Desc: "Same-day failures per email that raise multiple_failed_logins"},
	{Name: "escalation_guessing_threshold", Default: 5, Desc: "Same-day incorrect_password failures per email that raise password_guessing"},
	{Name: "suspicious_ip_threshold", Default: 5, Desc: "Weekly failed attempts per IP reported as suspicious"},
	{Name: "password_guessing_threshold", Default: 3, Desc: "Weekly incorrect_password failures per email flagged as guessing"},
	{Name: "allowed_email_domains", Default: strings.Join(inputval.DefaultAllowedDomains, ","), Desc: "Comma-separated registration domains (empty allows any)"},

	// Rate limiting
	{Name: "rate_limit_requests", Default: 120, Desc: "API requests allowed per client IP per window"},
	{Name: "rate_limit_window", Default: "1m", Desc: "API rate limit window"},

	// Circuit breaker
	{Name: "breaker_failures", Default: 5, Desc: "Consecutive event store failures that open the breaker"},
	{Name: "breaker_cooldown", Default: "15s", Desc: "How long the open breaker fails fast"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATASHIELD_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:            appValues.String("mongo_uri"),
		MongoDatabase:       appValues.String("mongo_database"),
		MongoMaxPoolSize:    uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize:    uint64(appValues.Int("mongo_min_pool_size")),
		MongoConnectTimeout: appValues.Duration("mongo_connect_timeout", 5*time.Second),
		MongoOpTimeout:      appValues.Duration("mongo_op_timeout", 30*time.Second),
		IdentityCollection:  appValues.String("identity_collection"),

		APIKey:         appValues.String("api_key"),
		APICORSOrigins: splitList(appValues.String("api_cors_origins")),
		TrustProxy:     appValues.Bool("trust_proxy"),

		EscalationFailedThreshold:   int64(appValues.Int("escalation_failed_threshold")),
		EscalationGuessingThreshold: int64(appValues.Int("escalation_guessing_threshold")),
		SuspiciousIPThreshold:       int64(appValues.Int("suspicious_ip_threshold")),
		PasswordGuessingThreshold:   int64(appValues.Int("password_guessing_threshold")),
		AllowedEmailDomains:         splitList(appValues.String("allowed_email_domains")),

		RateLimitRequests: appValues.Int("rate_limit_requests"),
		RateLimitWindow:   appValues.Duration("rate_limit_window", time.Minute),

		BreakerFailures: uint32(appValues.Int("breaker_failures")),
		BreakerCooldown: appValues.Duration("breaker_cooldown", 15*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	var errs []error
	positive := map[string]int64{
		"escalation_failed_threshold":   appCfg.EscalationFailedThreshold,
		"escalation_guessing_threshold": appCfg.EscalationGuessingThreshold,
		"suspicious_ip_threshold":       appCfg.SuspiciousIPThreshold,
		"password_guessing_threshold":   appCfg.PasswordGuessingThreshold,
		"rate_limit_requests":           int64(appCfg.RateLimitRequests),
		"breaker_failures":              int64(appCfg.BreakerFailures),
	}
	for _, name := range sortedKeys(positive) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, positive[name]))
		}
	}
	if appCfg.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate_limit_window must be positive"))
	}
	if strings.TrimSpace(appCfg.IdentityCollection) == "" {
		errs = append(errs, errors.New("identity_collection is required"))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}

	if appCfg.APIKey == "" {
		logger.Warn("api_key is empty; every API request will be rejected")
	}
	return nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

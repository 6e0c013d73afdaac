// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings and security headers
//   - Database connection timeouts
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI            string        // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase       string        // Database name within MongoDB
	MongoMaxPoolSize    uint64        // Maximum connections in pool (default: 100)
	MongoMinPoolSize    uint64        // Minimum connections to keep warm (default: 10)
	MongoConnectTimeout time.Duration // Connect and server selection bound (default: 5s)
	MongoOpTimeout      time.Duration // Per-operation bound for store calls (default: 30s)

	// IdentityCollection is the read-only accounts collection owned by the
	// authentication service (default: users).
	IdentityCollection string

	// API key authentication for the dashboard, monitor, and ingestion routes.
	// Empty rejects every API request.
	APIKey string

	// APICORSOrigins limits browser origins for the API routes. Empty allows any.
	APICORSOrigins []string

	// TrustProxy honours X-Forwarded-For / X-Real-IP when resolving client IPs.
	TrustProxy bool

	// Real-time escalation thresholds (same UTC day, per email)
	EscalationFailedThreshold   int64 // failures before multiple_failed_logins (default: 3)
	EscalationGuessingThreshold int64 // incorrect_password failures before password_guessing (default: 5)

	// Weekly threat heuristics
	SuspiciousIPThreshold     int64 // failed attempts per IP (default: 5)
	PasswordGuessingThreshold int64 // incorrect_password failures per email (default: 3)

	// AllowedEmailDomains are the registration domains; others are recorded
	// as domain_restriction events.
	AllowedEmailDomains []string

	// Per-IP rate limiting for the API routes
	RateLimitRequests int           // requests per window (default: 120)
	RateLimitWindow   time.Duration // window length (default: 1m)

	// Event store circuit breaker
	BreakerFailures uint32        // consecutive infrastructure failures before opening (default: 5)
	BreakerCooldown time.Duration // how long the breaker stays open (default: 15s)
}

// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratashield/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratashield/internal/app/features/health"
	ingestfeature "github.com/dalemusser/stratashield/internal/app/features/ingest"
	dashboardfeature "github.com/dalemusser/stratashield/internal/app/features/securitydashboard"
	monitorfeature "github.com/dalemusser/stratashield/internal/app/features/securitymonitor"
	"github.com/dalemusser/stratashield/internal/app/system/accesslog"
	"github.com/dalemusser/stratashield/internal/app/system/aggregate"
	"github.com/dalemusser/stratashield/internal/app/system/apicors"
	"github.com/dalemusser/stratashield/internal/app/system/auth"
	"github.com/dalemusser/stratashield/internal/app/system/eventquery"
	"github.com/dalemusser/stratashield/internal/app/system/inputval"
	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/network"
	"github.com/dalemusser/stratashield/internal/app/system/securitylog"
	"github.com/dalemusser/stratashield/internal/app/system/threats"
	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// eventStores is everything the engines read from and write to. DBDeps
// provides the MongoDB implementations; tests provide in-memory ones.
type eventStores struct {
	Logins interface {
		securitylog.LoginStore
		eventquery.LoginReader
		aggregate.LoginStore
		threats.LoginStore
	}
	Events interface {
		securitylog.EventStore
		eventquery.EventReader
		aggregate.EventStore
		threats.EventStore
	}
	Access interface {
		securitylog.AccessStore
		eventquery.AccessReader
		aggregate.AccessStore
	}
	Users  aggregate.IdentityStore
	DB     healthfeature.Pinger
	Health healthfeature.BreakerState
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// Route layout:
//   - /health, /ready, /readyz, /livez: probes (no auth)
//   - /metrics: Prometheus exposition (no auth)
//   - /security-dashboard/*, /security-monitor/*: API key, CORS, per-IP
//     rate limit, every request recorded as an access log
//   - /api/telemetry/*: producer ingestion, API key and CORS
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	return newRouter(coreCfg, appCfg, eventStores{
		Logins: deps.LoginLogs,
		Events: deps.SecurityEvents,
		Access: deps.AccessLogs,
		Users:  deps.Identities,
		DB:     deps.MongoClient,
		Health: deps.Guard,
	}, logger), nil
}

func newRouter(coreCfg *config.CoreConfig, appCfg AppConfig, st eventStores, logger *zap.Logger) http.Handler {
	recorder := securitylog.New(st.Logins, st.Events, st.Access, logger.Named("securitylog"), securitylog.Config{
		FailedLoginThreshold: appCfg.EscalationFailedThreshold,
		GuessingThreshold:    appCfg.EscalationGuessingThreshold,
	})
	queries := eventquery.New(st.Logins, st.Events, st.Access)
	agg := aggregate.New(st.Logins, st.Events, st.Access, st.Users)
	detector := threats.New(st.Logins, st.Events, logger.Named("threats"), threats.Config{
		SuspiciousIPThreshold: appCfg.SuspiciousIPThreshold,
		GuessingThreshold:     appCfg.PasswordGuessingThreshold,
	})

	errHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	// Request ID first so access records and logs share it.
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(network.Middleware(appCfg.TrustProxy))

	// Bound every request; aggregation reads run under the op timeout.
	r.Use(chimw.Timeout(timeouts.Query() + 5*time.Second))

	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	// Probes and metrics stay outside the API key.
	healthHandler := healthfeature.NewHandler(st.DB, st.Health, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	limiter := httprate.Limit(
		appCfg.RateLimitRequests,
		appCfg.RateLimitWindow,
		httprate.WithKeyFuncs(network.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("API rate limit exceeded",
				zap.String("ip", network.IP(req)),
				zap.String("path", req.URL.Path))
			jsonutil.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)

	// Dashboard and monitor: access logging wraps auth so rejected
	// requests are recorded too.
	dashboardHandler := dashboardfeature.NewHandler(agg, detector, logger)
	monitorHandler := monitorfeature.NewHandler(queries, detector, logger)
	r.Group(func(api chi.Router) {
		api.Use(apicors.Middleware(appCfg.APICORSOrigins...))
		api.Use(accesslog.Middleware(recorder))
		api.Use(limiter)
		api.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
		api.Mount("/security-dashboard", dashboardfeature.Routes(dashboardHandler))
		api.Mount("/security-monitor", monitorfeature.Routes(monitorHandler))
	})

	// Producer ingestion is not access-logged: it is the telemetry itself.
	ingestHandler := ingestfeature.NewHandler(recorder, inputval.NewDomainPolicy(appCfg.AllowedEmailDomains), logger)
	r.Group(func(api chi.Router) {
		api.Use(apicors.Middleware(appCfg.APICORSOrigins...))
		api.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
		api.Mount("/api/telemetry", ingestfeature.Routes(ingestHandler))
	})

	return r
}

// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger checks database reachability. *mongo.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// BreakerState reports the event store circuit breaker state
// ("closed", "half-open", "open"). *storeutil.Guard satisfies it.
type BreakerState interface {
	State() string
}

const breakerOpen = "open"

// Handler serves the health and probe endpoints.
type Handler struct {
	db      Pinger
	breaker BreakerState
	logger  *zap.Logger
}

// NewHandler creates a Handler. breaker may be nil.
func NewHandler(db Pinger, breaker BreakerState, logger *zap.Logger) *Handler {
	return &Handler{db: db, breaker: breaker, logger: logger}
}

// Response is the /health body.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes mounts /health, /health/ready and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes-style /ready, /readyz and /livez
// probes on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// probe pings MongoDB and reads the breaker. breaker is "" when no breaker
// is wired.
func (h *Handler) probe(ctx context.Context) (pingErr error, breaker string) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	pingErr = h.db.Ping(ctx, readpref.Primary())
	if h.breaker != nil {
		breaker = h.breaker.State()
	}
	return pingErr, breaker
}

// Check reports MongoDB reachability and the event store breaker. An open
// breaker degrades the service even when the ping succeeds.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	pingErr, breaker := h.probe(r.Context())

	resp := Response{Status: "ok", Services: map[string]string{"mongodb": "ok"}}
	if pingErr != nil {
		h.logger.Warn("health check: mongodb ping failed", zap.Error(pingErr))
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
	}
	if breaker != "" {
		resp.Services["event_store_breaker"] = breaker
		if breaker == breakerOpen {
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready is the readiness probe. Not ready while MongoDB is unreachable or
// the breaker is open.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	pingErr, breaker := h.probe(r.Context())
	if pingErr != nil || breaker == breakerOpen {
		h.logger.Warn("readiness check failed", zap.Error(pingErr), zap.String("breaker", breaker))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live is the liveness probe. It never touches the database.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}

// internal/app/store/storeutil/storeutil.go
package storeutil

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// FindNewest returns find options sorting by timestamp (newest first) with
// an optional limit. limit <= 0 means unlimited.
func FindNewest(limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

// IsInfrastructure reports whether err comes from the database being slow or
// unreachable rather than from the request itself.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}

// BreakerConfig controls when a Guard stops sending calls to the database.
type BreakerConfig struct {
	Name     string
	Failures uint32        // consecutive infrastructure failures before opening
	Cooldown time.Duration // how long the breaker stays open
}

// Guard runs store calls through a circuit breaker so a dead database fails
// requests fast instead of stacking them up behind driver timeouts.
type Guard struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewGuard builds a Guard. A zero Failures or Cooldown takes the defaults (5, 15s).
func NewGuard(cfg BreakerConfig, logger *zap.Logger) *Guard {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := cfg.Failures
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("event store breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return !IsInfrastructure(err)
		},
	}
	return &Guard{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state name (closed, half-open, open).
func (g *Guard) State() string {
	if g == nil {
		return gobreaker.StateClosed.String()
	}
	return g.cb.State().String()
}

// Do runs fn under g. A nil Guard runs fn directly. When the breaker refuses
// the call the error is marked secerr.ErrStorageUnavailable.
func Do[T any](g *Guard, fn func() (T, error)) (T, error) {
	if g == nil {
		return fn()
	}
	var zero T
	res, err := g.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, secerr.Storage(err)
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// Exec is Do for calls that return only an error.
func Exec(g *Guard, fn func() error) error {
	_, err := Do(g, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Package timeouts holds the process-wide time budgets for probes, telemetry
// writes and facade queries.
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing  = 2 * time.Second
	DefaultWrite = 5 * time.Second
	DefaultQuery = 30 * time.Second
)

var (
	mu    sync.RWMutex
	ping  = DefaultPing
	write = DefaultWrite
	query = DefaultQuery
)

// Ping bounds health probes.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Write bounds a single telemetry insert.
func Write() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return write
}

// Query bounds a facade read, including every aggregation it fans out to.
func Query() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return query
}

// Config overrides the defaults. Zero fields keep the current value.
type Config struct {
	Ping  time.Duration
	Write time.Duration
	Query time.Duration
}

// Configure applies cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Write > 0 {
		write = cfg.Write
	}
	if cfg.Query > 0 {
		query = cfg.Query
	}
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, write, query = DefaultPing, DefaultWrite, DefaultQuery
}

// WithTimeout derives a context bounded by timeout. The returned cancel logs a
// warning when the budget was exhausted.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}

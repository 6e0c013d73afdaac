// Package accesslog records every facade request as an access record.
package accesslog

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/metrics"
	"github.com/dalemusser/stratashield/internal/app/system/network"
	"github.com/dalemusser/stratashield/internal/app/system/securitylog"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Recorder stores access records. *securitylog.Recorder satisfies it.
type Recorder interface {
	RecordAccess(ctx context.Context, in securitylog.AccessInput) string
}

type userKey struct{}

// userHolder lets a handler attach the resolved user to the request's
// access record after routing.
type userHolder struct {
	id string
}

// SetUserID attaches a user id to the access record of the request carried
// by ctx. It is a no-op outside the middleware.
func SetUserID(ctx context.Context, id string) {
	if h, ok := ctx.Value(userKey{}).(*userHolder); ok {
		h.id = id
	}
}

// Middleware returns HTTP middleware that records each request once the
// handler has returned or panicked, whatever status it wrote. A nil recorder
// only observes latency.
func Middleware(rec Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			holder := &userHolder{}
			r = r.WithContext(context.WithValue(r.Context(), userKey{}, holder))

			// Wrap response writer to capture status code
			wrapped := &responseWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			defer func() {
				// A panicking handler is still recorded, as a 500 unless it
				// already wrote a status. The panic continues to Recoverer.
				p := recover()
				status := wrapped.statusCode
				if p != nil && !wrapped.wroteHeader {
					status = http.StatusInternalServerError
				}

				elapsed := time.Since(start)
				metrics.ObserveRequest(routePattern(r), status, elapsed)

				if rec != nil {
					rec.RecordAccess(r.Context(), securitylog.AccessInput{
						Endpoint:   r.URL.Path,
						Method:     r.Method,
						UserID:     holder.id,
						IPAddress:  network.IP(r),
						StatusCode: status,
						DurationMs: float64(elapsed.Microseconds()) / 1000,
						RequestID:  requestID(r),
					})
				}
				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}

// routePattern keeps the metrics label set bounded: path parameters such as
// an email address are replaced by their pattern.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func requestID(r *http.Request) string {
	if id := chimw.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

// responseWrapper wraps http.ResponseWriter to capture status code.
type responseWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

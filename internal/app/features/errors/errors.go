// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures and writes their JSON error body.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates an ErrorLogger. A nil logger discards.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

// Respond writes err as {"error": message} with the status secerr maps it
// to. Client errors are logged at Warn, the rest at Error. The cause is only
// ever logged; the body carries secerr.PublicMessage.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	status := secerr.HTTPStatus(err)

	all := make([]zap.Field, 0, len(fields)+5)
	all = append(all,
		zap.Error(err),
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	if id := chimw.GetReqID(r.Context()); id != "" {
		all = append(all, zap.String("request_id", id))
	}
	all = append(all, fields...)

	if status < http.StatusInternalServerError {
		e.logger.Warn(msg, all...)
	} else {
		e.logger.Error(msg, all...)
	}
	jsonutil.Error(w, status, secerr.PublicMessage(err))
}

// Handler answers requests no route matched.
type Handler struct{}

// NewHandler creates a Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers 404 for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.NotFound(w, "not found")
}

// MethodNotAllowed answers 405 for known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
}

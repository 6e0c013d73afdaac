// Package auth guards the dashboard, monitor, and ingestion routes with a
// shared API key.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/stratashield/internal/app/system/jsonutil"
	"github.com/dalemusser/stratashield/internal/app/system/network"
	"go.uber.org/zap"
)

// HeaderAPIKey is the alternative header for clients that cannot set
// Authorization.
const HeaderAPIKey = "X-API-Key"

// APIKeyAuth returns middleware that validates API key authentication.
//
// The key is read from "Authorization: Bearer <api-key>" or, failing that,
// from the X-API-Key header.
//
// Usage in routes.go:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(apicors.Middleware(origins...))
//	    r.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
//	    r.Mount("/security-monitor", securitymonitor.Routes(h))
//	})
//
// Missing or wrong keys get 401 with a JSON error body. An empty configured
// key rejects every request.
func APIKeyAuth(validKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	if validKey == "" {
		logger.Warn("API key not configured - all API requests will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validKey == "" {
				logger.Warn("API request rejected: API key not configured",
					zap.String("path", r.URL.Path),
					zap.String("ip", network.IP(r)),
				)
				jsonutil.Unauthorized(w, "API authentication not configured")
				return
			}

			provided, msg := extractKey(r)
			if provided == "" {
				logger.Debug("API request rejected",
					zap.String("path", r.URL.Path),
					zap.String("reason", msg),
				)
				jsonutil.Unauthorized(w, msg)
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(validKey)) != 1 {
				logger.Warn("API request rejected: invalid API key",
					zap.String("path", r.URL.Path),
					zap.String("ip", network.IP(r)),
				)
				jsonutil.Unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractKey returns the presented key, or "" and the reason it is missing.
func extractKey(r *http.Request) (string, string) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", "Invalid Authorization format (expected: Bearer <api-key>)"
		}
		return strings.TrimSpace(parts[1]), ""
	}
	if k := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); k != "" {
		return k, ""
	}
	return "", "Missing Authorization header"
}

// Package network resolves the client address of a request.
package network

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ctxKey struct{}

// ClientIP extracts the client IP address from the request. Forwarding
// headers (X-Forwarded-For, then X-Real-IP) are honoured only when
// trustProxy is set; otherwise a client could claim any address.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// First hop is the original client.
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	return remoteHost(r.RemoteAddr)
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Middleware resolves the client IP once per request and stores it on the
// request context for IP, httprate key functions, and the access log.
func Middleware(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trustProxy)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ip)))
		})
	}
}

// IP returns the address resolved by Middleware, falling back to the
// connection's remote host.
func IP(r *http.Request) string {
	if ip, ok := r.Context().Value(ctxKey{}).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r.RemoteAddr)
}

// KeyByIP is an httprate key function using the resolved client IP.
func KeyByIP(r *http.Request) (string, error) {
	return IP(r), nil
}

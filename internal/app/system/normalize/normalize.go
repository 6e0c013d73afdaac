// Package normalize provides helper functions for consistent string normalization
// of telemetry fields. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls so stored values and query values always agree.
package normalize

import (
	"strings"

	"github.com/dalemusser/stratashield/internal/domain/models"
)

// Email trims whitespace and lowercases. Every stored or queried email goes
// through here.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status normalizes a login status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Reason normalizes a login failure reason.
func Reason(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Severity lowercases a severity and falls back to low when it is empty.
// Unknown values are kept as given; validation is the caller's concern.
func Severity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return models.SeverityLow
	}
	return s
}

// EventType trims an event type.
func EventType(s string) string {
	return strings.TrimSpace(s)
}

// Source trims a producer name, defaulting to models.DefaultLoginSource.
func Source(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.DefaultLoginSource
	}
	return s
}

// Method uppercases an HTTP method.
func Method(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

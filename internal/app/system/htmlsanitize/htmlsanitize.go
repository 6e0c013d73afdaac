// Package htmlsanitize strips markup from producer-supplied telemetry text
// before it is stored and later rendered by the dashboard.
package htmlsanitize

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes every tag (and script/style content) from s and returns plain
// text. Entities produced by sanitizing are decoded again so ordinary values
// such as user agents keep their '&' and quotes.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(getPolicy().Sanitize(s))
}

// Truncate shortens s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

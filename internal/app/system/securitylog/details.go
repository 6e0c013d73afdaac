// internal/app/system/securitylog/details.go
package securitylog

import (
	"github.com/dalemusser/stratashield/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Limits applied to producer-supplied event details.
const (
	maxDetailKeys  = 32
	maxDetailDepth = 3
	maxStringBytes = 1024
)

// Truncated replaces values nested deeper than the depth limit.
const Truncated = "[truncated]"

// CapDetails bounds details to maxDetailKeys per level and maxDetailDepth
// levels, strips markup from strings, and shortens long strings. Keys past
// the limit are dropped in order.
func CapDetails(d models.Details) models.Details {
	return capLevel(d, 1)
}

func capLevel(d models.Details, depth int) models.Details {
	if d == nil {
		return nil
	}
	n := len(d)
	if n > maxDetailKeys {
		n = maxDetailKeys
	}
	out := make(models.Details, 0, n)
	for _, e := range d[:n] {
		out = append(out, primitive.E{
			Key:   capString(e.Key, 128),
			Value: capValue(e.Value, depth),
		})
	}
	return out
}

func capValue(v any, depth int) any {
	switch t := v.(type) {
	case string:
		return capString(t, maxStringBytes)
	case models.Details:
		if depth >= maxDetailDepth {
			return Truncated
		}
		return capLevel(t, depth+1)
	case primitive.D:
		if depth >= maxDetailDepth {
			return Truncated
		}
		return capLevel(models.Details(t), depth+1)
	case map[string]any:
		if depth >= maxDetailDepth {
			return Truncated
		}
		return capLevel(models.DetailsFromMap(t), depth+1)
	case []any:
		if depth >= maxDetailDepth {
			return Truncated
		}
		if len(t) > maxDetailKeys {
			t = t[:maxDetailKeys]
		}
		out := make([]any, len(t))
		for i := range t {
			out[i] = capValue(t[i], depth+1)
		}
		return out
	}
	return v
}

// capString strips markup and shortens s to max bytes.
func capString(s string, max int) string {
	return htmlsanitize.Truncate(htmlsanitize.Text(s), max)
}

package storeutil

import (
	"sort"

	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// TimeRangeDoc renders tr as a timestamp condition ($gte From, $lt To), or
// nil when the range is unbounded.
func TimeRangeDoc(tr models.TimeRange) bson.M {
	if tr.From == nil && tr.To == nil {
		return nil
	}
	cond := bson.M{}
	if tr.From != nil {
		cond["$gte"] = *tr.From
	}
	if tr.To != nil {
		cond["$lt"] = *tr.To
	}
	return cond
}

// CompactSorted drops empty strings and duplicates from values and sorts the rest.
func CompactSorted(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

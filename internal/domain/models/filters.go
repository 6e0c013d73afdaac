// internal/domain/models/filters.go
package models

import "time"

// TimeRange bounds a query on timestamp. From is inclusive, To is exclusive.
// A nil bound imposes no constraint.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	if tr.From != nil && t.Before(*tr.From) {
		return false
	}
	if tr.To != nil && !t.Before(*tr.To) {
		return false
	}
	return true
}

// LoginFilter selects login attempts. Empty fields impose no constraint.
type LoginFilter struct {
	Email     string
	Status    string
	Reason    string
	Range     TimeRange
	RequireIP bool // only attempts that carry an ip_address
}

// EventFilter selects security events. Empty fields impose no constraint.
type EventFilter struct {
	Severities  []string // any of
	EventType   string
	DetailEmail string // details.email
	Range       TimeRange
}

// AccessFilter selects access log records.
type AccessFilter struct {
	UserID   string
	Endpoint string
	Method   string
	Range    TimeRange
}

// Group is one bucket of a group-by-count query: Count records share Key,
// and Distinct holds the distinct non-empty values of a secondary field.
type Group struct {
	Key      string   `bson:"_id"`
	Count    int64    `bson:"count"`
	Distinct []string `bson:"distinct"`
}

// DayStatusCount is the number of attempts with Status on Day (YYYY-MM-DD, UTC).
type DayStatusCount struct {
	Day    string
	Status string
	Count  int64
}

// Package eventquery answers filtered, bounded, newest-first queries over the
// login, security event, and access log collections.
package eventquery

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/inputval"
	"github.com/dalemusser/stratashield/internal/app/system/normalize"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
)

// Limit bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// DateLayout is the accepted from_date/to_date format.
const DateLayout = "2006-01-02"

// LoginReader reads login attempts.
type LoginReader interface {
	Find(ctx context.Context, f models.LoginFilter, limit int64) ([]models.LoginAttempt, error)
	Count(ctx context.Context, f models.LoginFilter) (int64, error)
}

// EventReader reads security events.
type EventReader interface {
	Find(ctx context.Context, f models.EventFilter, limit int64) ([]models.SecurityEvent, error)
	Count(ctx context.Context, f models.EventFilter) (int64, error)
}

// AccessReader reads access log records.
type AccessReader interface {
	Find(ctx context.Context, f models.AccessFilter, limit int64) ([]models.AccessLog, error)
	Count(ctx context.Context, f models.AccessFilter) (int64, error)
}

// Page is one bounded result. Total counts every match, Items holds at most
// the requested limit, newest first.
type Page[T any] struct {
	Total int64
	Items []T
}

// LoginQuery filters login attempts. Limit nil means DefaultLimit.
type LoginQuery struct {
	Status   string `json:"status" validate:"omitempty,loginstatus" label:"status"`
	Email    string `json:"email" validate:"max=254" label:"email"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Limit    *int   `json:"limit" validate:"omitempty,min=1,max=1000" label:"limit"`
}

// EventQuery filters security events.
type EventQuery struct {
	Severity  string `json:"severity" validate:"omitempty,severity" label:"severity"`
	EventType string `json:"event_type" validate:"max=128" label:"event_type"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Limit     *int   `json:"limit" validate:"omitempty,min=1,max=1000" label:"limit"`
}

// AccessQuery filters access log records.
type AccessQuery struct {
	Endpoint string `json:"endpoint" validate:"max=1024" label:"endpoint"`
	Method   string `json:"method" validate:"max=16" label:"method"`
	UserID   string `json:"user_id" validate:"omitempty,objectid" label:"user_id"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Limit    *int   `json:"limit" validate:"omitempty,min=1,max=1000" label:"limit"`
}

// Engine runs queries against the event stores.
type Engine struct {
	logins LoginReader
	events EventReader
	access AccessReader
}

// New creates an Engine.
func New(logins LoginReader, events EventReader, access AccessReader) *Engine {
	return &Engine{logins: logins, events: events, access: access}
}

// LoginAttempts returns login attempts matching q.
func (e *Engine) LoginAttempts(ctx context.Context, q LoginQuery) (Page[models.LoginAttempt], error) {
	var page Page[models.LoginAttempt]
	if err := validate(&q); err != nil {
		return page, err
	}
	tr, err := ParseDateRange(q.FromDate, q.ToDate)
	if err != nil {
		return page, err
	}
	f := models.LoginFilter{
		Email:  normalize.Email(q.Email),
		Status: normalize.Status(q.Status),
		Range:  tr,
	}

	items, err := e.logins.Find(ctx, f, limitOf(q.Limit))
	if err != nil {
		return page, secerr.Storage(fmt.Errorf("find login attempts: %w", err))
	}
	total, err := e.logins.Count(ctx, f)
	if err != nil {
		return page, secerr.Storage(fmt.Errorf("count login attempts: %w", err))
	}
	page.Total, page.Items = total, items
	return page, nil
}

// SecurityEvents returns security events matching q.
func (e *Engine) SecurityEvents(ctx context.Context, q EventQuery) (Page[models.SecurityEvent], error) {
	var page Page[models.SecurityEvent]
	if err := validate(&q); err != nil {
		return page, err
	}
	tr, err := ParseDateRange(q.FromDate, q.ToDate)
	if err != nil {
		return page, err
	}
	f := models.EventFilter{
		EventType: normalize.EventType(q.EventType),
		Range:     tr,
	}
	if q.Severity != "" {
		f.Severities = []string{normalize.Severity(q.Severity)}
	}

	items, err := e.events.Find(ctx, f, limitOf(q.Limit))
	if err != nil {
		return page, secerr.Storage(fmt.Errorf("find security events: %w", err))
	}
	total, err := e.events.Count(ctx, f)
	if err != nil {
		return page, secerr.Storage(fmt.Errorf("count security events: %w", err))
	}
	page.Total, page.Items = total, items
	return page, nil
}

// AccessLogs returns access records matching q.
func (e *Engine) AccessLogs(ctx context.Context, q AccessQuery) (Page[models.AccessLog], error) {
	var page Page[models.AccessLog]
	if err := validate(&q); err != nil {
		return page, err
	}
	tr, err := ParseDateRange(q.FromDate, q.ToDate)
	if err != nil {
		return page, err
	}
	f := models.AccessFilter{
		Endpoint: normalize.QueryParam(q.Endpoint),
		Method:   normalize.Method(q.Method),
		UserID:   normalize.QueryParam(q.UserID),
		Range:    tr,
	}

	items, err := e.access.Find(ctx, f, limitOf(q.Limit))
	if err != nil {
		return page, secerr.Storage(fmt.Errorf("find access logs: %w", err))
	}
	total, err := e.access.Count(ctx, f)
	if err != nil {
		return page, secerr.Storage(fmt.Errorf("count access logs: %w", err))
	}
	page.Total, page.Items = total, items
	return page, nil
}

// ParseDateRange turns optional YYYY-MM-DD bounds into a TimeRange:
// from is inclusive at 00:00:00Z and to covers its whole day.
func ParseDateRange(from, to string) (models.TimeRange, error) {
	var tr models.TimeRange
	if from = normalize.QueryParam(from); from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return tr, &secerr.InvalidDateFormat{Field: "from_date", Value: from}
		}
		tr.From = &t
	}
	if to = normalize.QueryParam(to); to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return tr, &secerr.InvalidDateFormat{Field: "to_date", Value: to}
		}
		end := t.AddDate(0, 0, 1)
		tr.To = &end
	}
	return tr, nil
}

func validate(q any) error {
	if res := inputval.Validate(q); res.HasErrors() {
		return secerr.Invalid(res.Errors[0].Field, "%s", res.First())
	}
	return nil
}

func limitOf(l *int) int64 {
	if l == nil {
		return DefaultLimit
	}
	return int64(*l)
}

// Limit returns a pointer to n, for building queries.
func Limit(n int) *int { return &n }

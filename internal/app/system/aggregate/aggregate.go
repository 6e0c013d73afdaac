// Package aggregate computes the dashboard summary and per-identity activity
// views from the event stores.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/normalize"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"golang.org/x/sync/errgroup"
)

// RecentEventsLimit is the size of the summary's recent events excerpt.
const RecentEventsLimit = 10

// Per-identity activity limits.
const (
	UserLoginHistoryLimit = 100
	UserEventsLimit       = 50
	UserAccessLimit       = 100
)

// LoginStore is what the engine reads from login_logs.
type LoginStore interface {
	Find(ctx context.Context, f models.LoginFilter, limit int64) ([]models.LoginAttempt, error)
	Count(ctx context.Context, f models.LoginFilter) (int64, error)
	CountByDayStatus(ctx context.Context, since time.Time) ([]models.DayStatusCount, error)
}

// EventStore is what the engine reads from security_events.
type EventStore interface {
	Find(ctx context.Context, f models.EventFilter, limit int64) ([]models.SecurityEvent, error)
	Count(ctx context.Context, f models.EventFilter) (int64, error)
}

// AccessStore is what the engine reads from access_logs.
type AccessStore interface {
	Find(ctx context.Context, f models.AccessFilter, limit int64) ([]models.AccessLog, error)
}

// IdentityStore reads the account service's identities.
type IdentityStore interface {
	GetByEmail(ctx context.Context, email string) (models.Identity, error)
	Count(ctx context.Context, since *time.Time) (int64, error)
}

// Windows are the report boundaries derived from "now".
type Windows struct {
	TodayStart time.Time
	WeekStart  time.Time
	MonthStart time.Time
}

// WindowsAt computes the windows for now: midnight UTC, minus 7 and 30 days.
func WindowsAt(now time.Time) Windows {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Windows{
		TodayStart: today,
		WeekStart:  today.AddDate(0, 0, -7),
		MonthStart: today.AddDate(0, 0, -30),
	}
}

// LoginMetrics are the login counters of a summary.
type LoginMetrics struct {
	TotalLogins int64   `json:"total_logins"`
	TodayLogins int64   `json:"today_logins"`
	TotalFailed int64   `json:"total_failed"`
	TodayFailed int64   `json:"today_failed"`
	FailureRate float64 `json:"failure_rate"`
}

// SeverityCounts is the security event histogram.
type SeverityCounts struct {
	High   int64 `json:"high"`
	Medium int64 `json:"medium"`
	Low    int64 `json:"low"`
	Total  int64 `json:"total"`
}

// UserMetrics counts identities.
type UserMetrics struct {
	TotalUsers    int64 `json:"total_users"`
	NewUsersToday int64 `json:"new_users_today"`
}

// LoginTrends holds one entry per day, ascending, in three aligned series.
type LoginTrends struct {
	Dates   []string `json:"dates"`
	Success []int64  `json:"success"`
	Failed  []int64  `json:"failed"`
}

// SummaryReport is the dashboard overview.
type SummaryReport struct {
	LoginMetrics   LoginMetrics           `json:"login_metrics"`
	SecurityEvents SeverityCounts         `json:"security_events"`
	UserMetrics    UserMetrics            `json:"user_metrics"`
	LoginTrends    LoginTrends            `json:"login_trends"`
	RecentEvents   []models.SecurityEvent `json:"recent_events"`
}

// Engine computes aggregate reports.
type Engine struct {
	logins LoginStore
	events EventStore
	access AccessStore
	users  IdentityStore
}

// New creates an Engine.
func New(logins LoginStore, events EventStore, access AccessStore, users IdentityStore) *Engine {
	return &Engine{logins: logins, events: events, access: access, users: users}
}

// Summary builds the dashboard overview as of now. Sub-queries run
// concurrently; the first failure fails the whole report.
func (e *Engine) Summary(ctx context.Context, now time.Time) (SummaryReport, error) {
	w := WindowsAt(now)
	today := models.TimeRange{From: &w.TodayStart}

	var (
		r      SummaryReport
		trend  []models.DayStatusCount
		recent []models.SecurityEvent
	)

	g, gctx := errgroup.WithContext(ctx)

	countLogins := func(dst *int64, status string, tr models.TimeRange) {
		g.Go(func() error {
			n, err := e.logins.Count(gctx, models.LoginFilter{Status: status, Range: tr})
			if err != nil {
				return fmt.Errorf("count %s logins: %w", status, err)
			}
			*dst = n
			return nil
		})
	}
	countLogins(&r.LoginMetrics.TotalLogins, models.LoginStatusSuccess, models.TimeRange{})
	countLogins(&r.LoginMetrics.TodayLogins, models.LoginStatusSuccess, today)
	countLogins(&r.LoginMetrics.TotalFailed, models.LoginStatusFailed, models.TimeRange{})
	countLogins(&r.LoginMetrics.TodayFailed, models.LoginStatusFailed, today)

	countSeverity := func(dst *int64, sev string) {
		g.Go(func() error {
			n, err := e.events.Count(gctx, models.EventFilter{Severities: []string{sev}})
			if err != nil {
				return fmt.Errorf("count %s events: %w", sev, err)
			}
			*dst = n
			return nil
		})
	}
	countSeverity(&r.SecurityEvents.High, models.SeverityHigh)
	countSeverity(&r.SecurityEvents.Medium, models.SeverityMedium)
	countSeverity(&r.SecurityEvents.Low, models.SeverityLow)

	g.Go(func() error {
		n, err := e.users.Count(gctx, nil)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		r.UserMetrics.TotalUsers = n
		return nil
	})
	g.Go(func() error {
		n, err := e.users.Count(gctx, &w.TodayStart)
		if err != nil {
			return fmt.Errorf("count new users: %w", err)
		}
		r.UserMetrics.NewUsersToday = n
		return nil
	})

	g.Go(func() error {
		var err error
		trend, err = e.logins.CountByDayStatus(gctx, w.WeekStart)
		if err != nil {
			return fmt.Errorf("login trends: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recent, err = e.events.Find(gctx, models.EventFilter{}, RecentEventsLimit)
		if err != nil {
			return fmt.Errorf("recent events: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return SummaryReport{}, secerr.Storage(err)
	}

	r.LoginMetrics.FailureRate = FailureRate(r.LoginMetrics.TotalLogins, r.LoginMetrics.TotalFailed)
	r.SecurityEvents.Total = r.SecurityEvents.High + r.SecurityEvents.Medium + r.SecurityEvents.Low
	r.LoginTrends = BuildTrends(w.WeekStart, w.TodayStart, trend)
	if recent == nil {
		recent = []models.SecurityEvent{}
	}
	r.RecentEvents = recent
	return r, nil
}

// FailureRate is failed/(success+failed) as a percentage rounded to two
// decimals, or 0 when there were no attempts.
func FailureRate(success, failed int64) float64 {
	total := success + failed
	if total <= 0 {
		return 0
	}
	return math.Round(float64(failed)/float64(total)*100*100) / 100
}

// BuildTrends lays counts onto every day from first to last inclusive,
// zero-filling missing days. Only success and failed statuses are charted.
func BuildTrends(first, last time.Time, counts []models.DayStatusCount) LoginTrends {
	byDay := make(map[string]*[2]int64)
	for _, c := range counts {
		slot := byDay[c.Day]
		if slot == nil {
			slot = new([2]int64)
			byDay[c.Day] = slot
		}
		switch c.Status {
		case models.LoginStatusSuccess:
			slot[0] += c.Count
		case models.LoginStatusFailed:
			slot[1] += c.Count
		}
	}

	t := LoginTrends{Dates: []string{}, Success: []int64{}, Failed: []int64{}}
	for d := first.UTC(); !d.After(last); d = d.AddDate(0, 0, 1) {
		day := d.Format("2006-01-02")
		var s, f int64
		if slot := byDay[day]; slot != nil {
			s, f = slot[0], slot[1]
		}
		t.Dates = append(t.Dates, day)
		t.Success = append(t.Success, s)
		t.Failed = append(t.Failed, f)
	}
	return t
}

// UserInfo identifies the account an activity view belongs to.
type UserInfo struct {
	Email     string    `json:"email"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityMetrics summarises an activity view.
type ActivityMetrics struct {
	TotalLogins         int `json:"total_logins"`
	FailedLogins        int `json:"failed_logins"`
	SecurityEventsCount int `json:"security_events_count"`
	AccessLogsCount     int `json:"access_logs_count"`
}

// UserActivity is everything recorded about one identity.
type UserActivity struct {
	User           UserInfo               `json:"user"`
	LoginHistory   []models.LoginAttempt  `json:"login_history"`
	SecurityEvents []models.SecurityEvent `json:"security_events"`
	AccessLogs     []models.AccessLog     `json:"access_logs"`
	Metrics        ActivityMetrics        `json:"metrics"`
}

// UserActivity gathers recent logins, security events naming the email, and
// access records for the identity behind email. Unknown identities fail with
// secerr.ErrNotFound.
func (e *Engine) UserActivity(ctx context.Context, email string) (UserActivity, error) {
	email = normalize.Email(email)
	if email == "" {
		return UserActivity{}, secerr.Invalid("email", "email is required")
	}

	ident, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, secerr.ErrNotFound) {
			return UserActivity{}, err
		}
		return UserActivity{}, secerr.Storage(fmt.Errorf("get identity: %w", err))
	}

	a := UserActivity{User: UserInfo{Email: email, UserID: ident.ID.Hex(), CreatedAt: ident.CreatedAt}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := e.logins.Find(gctx, models.LoginFilter{Email: email}, UserLoginHistoryLimit)
		if err != nil {
			return fmt.Errorf("login history: %w", err)
		}
		a.LoginHistory = items
		return nil
	})
	g.Go(func() error {
		items, err := e.events.Find(gctx, models.EventFilter{DetailEmail: email}, UserEventsLimit)
		if err != nil {
			return fmt.Errorf("user security events: %w", err)
		}
		a.SecurityEvents = items
		return nil
	})
	g.Go(func() error {
		items, err := e.access.Find(gctx, models.AccessFilter{UserID: a.User.UserID}, UserAccessLimit)
		if err != nil {
			return fmt.Errorf("user access logs: %w", err)
		}
		a.AccessLogs = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return UserActivity{}, secerr.Storage(err)
	}

	for _, l := range a.LoginHistory {
		switch l.Status {
		case models.LoginStatusSuccess:
			a.Metrics.TotalLogins++
		case models.LoginStatusFailed:
			a.Metrics.FailedLogins++
		}
	}
	a.Metrics.SecurityEventsCount = len(a.SecurityEvents)
	a.Metrics.AccessLogsCount = len(a.AccessLogs)
	if a.LoginHistory == nil {
		a.LoginHistory = []models.LoginAttempt{}
	}
	if a.SecurityEvents == nil {
		a.SecurityEvents = []models.SecurityEvent{}
	}
	if a.AccessLogs == nil {
		a.AccessLogs = []models.AccessLog{}
	}
	return a, nil
}

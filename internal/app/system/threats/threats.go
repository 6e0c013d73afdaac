// Package threats derives threat signals from recent login failures and
// security events: suspicious source IPs, password guessing against single
// accounts, and an overall threat level.
package threats

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/aggregate"
	"github.com/dalemusser/stratashield/internal/app/system/metrics"
	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Threat levels.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

const (
	// maxSampleEmails bounds the emails reported per suspicious IP.
	maxSampleEmails = 5
	// topN is the length of the most-targeted and most-suspicious lists.
	topN = 3
	// flaggedEmailsForHigh is the flagged-email count above which the level
	// is high even without a suspicious IP.
	flaggedEmailsForHigh = 3

	activeEventsLimit = 20
)

// LoginStore groups and counts failed attempts.
type LoginStore interface {
	Count(ctx context.Context, f models.LoginFilter) (int64, error)
	GroupBy(ctx context.Context, f models.LoginFilter, field, distinctField string, minCount int64) ([]models.Group, error)
}

// EventStore groups and lists security events.
type EventStore interface {
	Find(ctx context.Context, f models.EventFilter, limit int64) ([]models.SecurityEvent, error)
	GroupBy(ctx context.Context, f models.EventFilter, field string) ([]models.Group, error)
}

// Config holds detector thresholds.
type Config struct {
	// SuspiciousIPThreshold is the weekly failed-attempt count at which an
	// IP is reported. Default 5.
	SuspiciousIPThreshold int64
	// GuessingThreshold is the weekly incorrect_password count at which an
	// email is flagged. Default 3.
	GuessingThreshold int64
}

// TypeCount is one event type in the high-severity tally.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// HighSeverityThreats tallies serious events of the last 30 days.
type HighSeverityThreats struct {
	Total  int         `json:"total"`
	ByType []TypeCount `json:"by_type"`
}

// SuspiciousIP is a source with many failed logins this week.
type SuspiciousIP struct {
	IPAddress            string   `json:"ip_address"`
	FailedAttempts       int64    `json:"failed_attempts"`
	UniqueEmailsTargeted int      `json:"unique_emails_targeted"`
	Emails               []string `json:"emails"`
}

// SuspiciousIPs lists suspicious sources, most active first.
type SuspiciousIPs struct {
	Total int            `json:"total"`
	Data  []SuspiciousIP `json:"data"`
}

// GuessedAccount is an email with repeated incorrect passwords this week.
type GuessedAccount struct {
	Email          string `json:"email"`
	FailedAttempts int64  `json:"failed_attempts"`
	UniqueIPs      int    `json:"unique_ips"`
}

// PasswordGuessing lists flagged emails, most attempted first.
type PasswordGuessing struct {
	Total int              `json:"total"`
	Data  []GuessedAccount `json:"data"`
}

// Summary is the classified outcome.
type Summary struct {
	ThreatLevel        string   `json:"threat_level"`
	MostTargetedEmails []string `json:"most_targeted_emails"`
	MostSuspiciousIPs  []string `json:"most_suspicious_ips"`
}

// Report is the full threat analysis.
type Report struct {
	HighSeverityThreats HighSeverityThreats `json:"high_severity_threats"`
	SuspiciousIPs       SuspiciousIPs       `json:"suspicious_ips"`
	PasswordGuessing    PasswordGuessing    `json:"password_guessing"`
	Summary             Summary             `json:"summary"`
}

// Detector runs the heuristics.
type Detector struct {
	logins LoginStore
	events EventStore
	log    *zap.Logger
	cfg    Config
}

// New creates a Detector.
func New(logins LoginStore, events EventStore, logger *zap.Logger, cfg Config) *Detector {
	if cfg.SuspiciousIPThreshold <= 0 {
		cfg.SuspiciousIPThreshold = 5
	}
	if cfg.GuessingThreshold <= 0 {
		cfg.GuessingThreshold = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logins: logins, events: events, log: logger, cfg: cfg}
}

// Detect analyses activity as of now. The three groupings run concurrently;
// any failure fails the report.
func (d *Detector) Detect(ctx context.Context, now time.Time) (Report, error) {
	w := aggregate.WindowsAt(now)

	var byType, ips, guessed []models.Group
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byType, err = d.events.GroupBy(gctx, models.EventFilter{
			Severities: []string{models.SeverityHigh, models.SeverityCritical},
			Range:      models.TimeRange{From: &w.MonthStart},
		}, "event_type")
		if err != nil {
			return fmt.Errorf("high severity tally: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ips, err = d.logins.GroupBy(gctx, models.LoginFilter{
			Status:    models.LoginStatusFailed,
			Range:     models.TimeRange{From: &w.WeekStart},
			RequireIP: true,
		}, "ip_address", "email", d.cfg.SuspiciousIPThreshold)
		if err != nil {
			return fmt.Errorf("suspicious ips: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		guessed, err = d.logins.GroupBy(gctx, models.LoginFilter{
			Status: models.LoginStatusFailed,
			Reason: models.ReasonIncorrectPassword,
			Range:  models.TimeRange{From: &w.WeekStart},
		}, "email", "ip_address", d.cfg.GuessingThreshold)
		if err != nil {
			return fmt.Errorf("password guessing: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, secerr.Storage(err)
	}

	r := Report{
		HighSeverityThreats: HighSeverityThreats{ByType: make([]TypeCount, 0, len(byType))},
		SuspiciousIPs:       SuspiciousIPs{Data: make([]SuspiciousIP, 0, len(ips))},
		PasswordGuessing:    PasswordGuessing{Data: make([]GuessedAccount, 0, len(guessed))},
	}
	for _, gr := range byType {
		r.HighSeverityThreats.ByType = append(r.HighSeverityThreats.ByType, TypeCount{Type: gr.Key, Count: gr.Count})
	}
	for _, gr := range ips {
		sample := gr.Distinct
		if len(sample) > maxSampleEmails {
			sample = sample[:maxSampleEmails]
		}
		r.SuspiciousIPs.Data = append(r.SuspiciousIPs.Data, SuspiciousIP{
			IPAddress:            gr.Key,
			FailedAttempts:       gr.Count,
			UniqueEmailsTargeted: len(gr.Distinct),
			Emails:               append([]string{}, sample...),
		})
	}
	for _, gr := range guessed {
		r.PasswordGuessing.Data = append(r.PasswordGuessing.Data, GuessedAccount{
			Email:          gr.Key,
			FailedAttempts: gr.Count,
			UniqueIPs:      len(gr.Distinct),
		})
	}
	r.HighSeverityThreats.Total = len(r.HighSeverityThreats.ByType)
	r.SuspiciousIPs.Total = len(r.SuspiciousIPs.Data)
	r.PasswordGuessing.Total = len(r.PasswordGuessing.Data)

	r.Summary = Summary{
		ThreatLevel:        Classify(r.SuspiciousIPs.Total, r.PasswordGuessing.Total),
		MostTargetedEmails: []string{},
		MostSuspiciousIPs:  []string{},
	}
	for i := 0; i < len(r.PasswordGuessing.Data) && i < topN; i++ {
		r.Summary.MostTargetedEmails = append(r.Summary.MostTargetedEmails, r.PasswordGuessing.Data[i].Email)
	}
	for i := 0; i < len(r.SuspiciousIPs.Data) && i < topN; i++ {
		r.Summary.MostSuspiciousIPs = append(r.Summary.MostSuspiciousIPs, r.SuspiciousIPs.Data[i].IPAddress)
	}

	metrics.SetThreatLevel(r.Summary.ThreatLevel)
	if r.Summary.ThreatLevel != LevelLow {
		d.log.Warn("threat level elevated",
			zap.String("threat_level", r.Summary.ThreatLevel),
			zap.Int("suspicious_ips", r.SuspiciousIPs.Total),
			zap.Int("flagged_emails", r.PasswordGuessing.Total))
	}
	return r, nil
}

// Classify applies the level rule in order: high when any IP is suspicious
// or more than three emails are flagged, medium when any email is flagged,
// low otherwise.
func Classify(suspiciousIPs, flaggedEmails int) string {
	switch {
	case suspiciousIPs > 0 || flaggedEmails > flaggedEmailsForHigh:
		return LevelHigh
	case flaggedEmails > 0:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ActiveThreats is the short-horizon view for monitoring.
type ActiveThreats struct {
	Timestamp          time.Time              `json:"timestamp"`
	FailedLoginsHour   int64                  `json:"failed_logins_last_hour"`
	DistinctIPsHour    int                    `json:"distinct_ips_last_hour"`
	HighSeverityEvents []models.SecurityEvent `json:"high_severity_events"`
}

// Active reports failed logins in the last hour and the newest high or
// critical events of the last 24 hours.
func (d *Detector) Active(ctx context.Context, now time.Time) (ActiveThreats, error) {
	now = now.UTC()
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)
	lastHour := models.LoginFilter{
		Status: models.LoginStatusFailed,
		Range:  models.TimeRange{From: &hourAgo},
	}

	a := ActiveThreats{Timestamp: now}
	var ipGroups []models.Group
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := d.logins.Count(gctx, lastHour)
		if err != nil {
			return fmt.Errorf("failed logins last hour: %w", err)
		}
		a.FailedLoginsHour = n
		return nil
	})
	g.Go(func() error {
		f := lastHour
		f.RequireIP = true
		var err error
		ipGroups, err = d.logins.GroupBy(gctx, f, "ip_address", "email", 1)
		if err != nil {
			return fmt.Errorf("ips last hour: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		evs, err := d.events.Find(gctx, models.EventFilter{
			Severities: []string{models.SeverityHigh, models.SeverityCritical},
			Range:      models.TimeRange{From: &dayAgo},
		}, activeEventsLimit)
		if err != nil {
			return fmt.Errorf("recent high severity events: %w", err)
		}
		a.HighSeverityEvents = evs
		return nil
	})
	if err := g.Wait(); err != nil {
		return ActiveThreats{}, secerr.Storage(err)
	}

	a.DistinctIPsHour = len(ipGroups)
	if a.HighSeverityEvents == nil {
		a.HighSeverityEvents = []models.SecurityEvent{}
	}
	return a, nil
}

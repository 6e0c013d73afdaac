package securitydashboard

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/accesslog"
	"github.com/dalemusser/stratashield/internal/app/system/aggregate"
	"github.com/dalemusser/stratashield/internal/app/system/securitylog"
	"github.com/dalemusser/stratashield/internal/app/system/threats"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"github.com/dalemusser/stratashield/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var now = time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)

type fixture struct {
	router   http.Handler
	mem      *testutil.MemStore
	recorder *securitylog.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := testutil.NewMemStore()
	rec := securitylog.New(mem.Logins, mem.Events, mem.Access, zap.NewNop(), securitylog.Config{Now: testutil.Clock(now)})
	agg := aggregate.New(mem.Logins, mem.Events, mem.Access, mem.Users)
	det := threats.New(mem.Logins, mem.Events, zap.NewNop(), threats.Config{})
	h := NewHandler(agg, det, zap.NewNop()).WithClock(testutil.Clock(now))

	r := chi.NewRouter()
	r.Use(accesslog.Middleware(rec))
	r.Mount("/security-dashboard", Routes(h))
	return fixture{router: r, mem: mem, recorder: rec}
}

func (f fixture) get(target string) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, target))
	return rec
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.recorder.RecordLoginAttempt(ctx, securitylog.LoginAttemptInput{Email: "a@x.com", Status: "success"})
	f.recorder.RecordLoginAttempt(ctx, securitylog.LoginAttemptInput{Email: "a@x.com", Status: "failed"})
	f.mem.Users.Add("a@x.com", now.Add(-time.Hour))

	rec := f.get("/security-dashboard/summary")
	rec.AssertStatus(t, http.StatusOK)

	var resp aggregate.SummaryReport
	rec.DecodeJSON(t, &resp)
	if resp.LoginMetrics.TotalLogins != 1 || resp.LoginMetrics.TotalFailed != 1 || resp.LoginMetrics.FailureRate != 50 {
		t.Errorf("login metrics = %+v", resp.LoginMetrics)
	}
	if resp.UserMetrics.TotalUsers != 1 || resp.UserMetrics.NewUsersToday != 1 {
		t.Errorf("user metrics = %+v", resp.UserMetrics)
	}
	if len(resp.LoginTrends.Dates) != 8 {
		t.Errorf("trend days = %d, want 8", len(resp.LoginTrends.Dates))
	}
	rec.AssertContains(t, `"recent_events":[]`)
}

func TestSummary_StorageUnavailable(t *testing.T) {
	f := newFixture(t)
	f.mem.Fail("logins.count", errors.New("connection reset"))

	rec := f.get("/security-dashboard/summary")
	rec.AssertStatus(t, http.StatusServiceUnavailable)

	logs := f.mem.Access.All()
	if len(logs) != 1 || logs[0].StatusCode != http.StatusServiceUnavailable {
		t.Errorf("access log = %+v, want one 503 record", logs)
	}
}

func TestUserActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ident := f.mem.Users.Add("victim@x.com", now.Add(-72*time.Hour))
	f.recorder.RecordLoginAttempt(ctx, securitylog.LoginAttemptInput{Email: "victim@x.com", Status: "failed", Reason: "incorrect_password"})
	f.recorder.RecordLoginAttempt(ctx, securitylog.LoginAttemptInput{Email: "victim@x.com", Status: "success"})

	rec := f.get("/security-dashboard/user-activity/victim%40x.com")
	rec.AssertStatus(t, http.StatusOK)

	var resp aggregate.UserActivity
	rec.DecodeJSON(t, &resp)
	if resp.User.Email != "victim@x.com" || resp.User.UserID != ident.ID.Hex() {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.Metrics.TotalLogins != 1 || resp.Metrics.FailedLogins != 1 {
		t.Errorf("metrics = %+v", resp.Metrics)
	}

	logs := f.mem.Access.All()
	if len(logs) != 1 {
		t.Fatalf("access logs = %d, want 1", len(logs))
	}
	if logs[0].UserID != ident.ID.Hex() {
		t.Errorf("access log user_id = %q, want %q", logs[0].UserID, ident.ID.Hex())
	}
}

func TestUserActivity_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/security-dashboard/user-activity/ghost@x.com")
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, `"error":"not found"`)

	logs := f.mem.Access.All()
	if len(logs) != 1 || logs[0].StatusCode != http.StatusNotFound || logs[0].UserID != "" {
		t.Errorf("access log = %+v, want one 404 record without user", logs)
	}
}

func TestThreatsAnalysis_Attacker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.recorder.RecordLoginAttempt(ctx, securitylog.LoginAttemptInput{
			Email: "attacker@x.com", Status: "failed", Reason: models.ReasonIncorrectPassword, IPAddress: "1.2.3.4",
		})
	}

	rec := f.get("/security-dashboard/threats-analysis")
	rec.AssertStatus(t, http.StatusOK)

	var resp threats.Report
	rec.DecodeJSON(t, &resp)
	if resp.SuspiciousIPs.Total != 1 || resp.SuspiciousIPs.Data[0].IPAddress != "1.2.3.4" {
		t.Errorf("suspicious ips = %+v", resp.SuspiciousIPs)
	}
	if resp.PasswordGuessing.Total != 1 || resp.PasswordGuessing.Data[0].Email != "attacker@x.com" {
		t.Errorf("password guessing = %+v", resp.PasswordGuessing)
	}
	if resp.Summary.ThreatLevel != threats.LevelHigh {
		t.Errorf("threat level = %q, want high", resp.Summary.ThreatLevel)
	}
	// password_guessing (high) was escalated in real time.
	if resp.HighSeverityThreats.Total != 1 {
		t.Errorf("high severity total = %d, want 1", resp.HighSeverityThreats.Total)
	}
}

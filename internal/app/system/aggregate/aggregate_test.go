package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"github.com/dalemusser/stratashield/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)

func newEngine() (*Engine, *testutil.MemStore) {
	mem := testutil.NewMemStore()
	return New(mem.Logins, mem.Events, mem.Access, mem.Users), mem
}

func login(t *testing.T, mem *testutil.MemStore, email, status string, ts time.Time) {
	t.Helper()
	if _, err := mem.Logins.Insert(context.Background(), models.LoginAttempt{Email: email, Status: status, Timestamp: ts}); err != nil {
		t.Fatalf("insert login: %v", err)
	}
}

func event(t *testing.T, mem *testutil.MemStore, ev models.SecurityEvent) {
	t.Helper()
	if _, err := mem.Events.Insert(context.Background(), ev); err != nil {
		t.Fatalf("insert event: %v", err)
	}
}

func TestWindowsAt(t *testing.T) {
	w := WindowsAt(time.Date(2024, 3, 20, 23, 59, 59, 0, time.FixedZone("X", 3600)))
	if !w.TodayStart.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("TodayStart = %v", w.TodayStart)
	}
	if !w.WeekStart.Equal(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WeekStart = %v", w.WeekStart)
	}
	if !w.MonthStart.Equal(time.Date(2024, 2, 19, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthStart = %v", w.MonthStart)
	}
}

func TestFailureRate(t *testing.T) {
	tests := []struct {
		success, failed int64
		want            float64
	}{
		{0, 0, 0},
		{3, 1, 25.00},
		{0, 4, 100},
		{2, 1, 33.33},
		{1, 2, 66.67},
	}
	for _, tt := range tests {
		if got := FailureRate(tt.success, tt.failed); got != tt.want {
			t.Errorf("FailureRate(%d, %d) = %v, want %v", tt.success, tt.failed, got, tt.want)
		}
	}
}

func TestBuildTrends_ZeroFills(t *testing.T) {
	w := WindowsAt(now)
	tr := BuildTrends(w.WeekStart, w.TodayStart, []models.DayStatusCount{
		{Day: "2024-03-13", Status: "success", Count: 2},
		{Day: "2024-03-16", Status: "failed", Count: 4},
		{Day: "2024-03-16", Status: "error", Count: 9},
		{Day: "2024-03-20", Status: "success", Count: 1},
	})

	if len(tr.Dates) != 8 || len(tr.Success) != 8 || len(tr.Failed) != 8 {
		t.Fatalf("lengths = %d/%d/%d, want 8", len(tr.Dates), len(tr.Success), len(tr.Failed))
	}
	if tr.Dates[0] != "2024-03-13" || tr.Dates[7] != "2024-03-20" {
		t.Errorf("dates = %v", tr.Dates)
	}
	wantSuccess := []int64{2, 0, 0, 0, 0, 0, 0, 1}
	wantFailed := []int64{0, 0, 0, 4, 0, 0, 0, 0}
	for i := range wantSuccess {
		if tr.Success[i] != wantSuccess[i] || tr.Failed[i] != wantFailed[i] {
			t.Errorf("day %s = %d/%d, want %d/%d", tr.Dates[i], tr.Success[i], tr.Failed[i], wantSuccess[i], wantFailed[i])
		}
	}
}

func TestSummary(t *testing.T) {
	e, mem := newEngine()
	w := WindowsAt(now)

	// Three successes (one today), one failure today, one old failure.
	login(t, mem, "a@x.com", "success", w.TodayStart.Add(time.Hour))
	login(t, mem, "a@x.com", "success", w.TodayStart.Add(-2*24*time.Hour))
	login(t, mem, "b@x.com", "success", w.TodayStart.Add(-40*24*time.Hour))
	login(t, mem, "b@x.com", "failed", w.TodayStart.Add(2*time.Hour))
	login(t, mem, "b@x.com", "failed", w.TodayStart.Add(-20*24*time.Hour))
	login(t, mem, "b@x.com", "error", w.TodayStart.Add(3*time.Hour))

	for i := 0; i < 12; i++ {
		sev := models.SeverityLow
		switch i % 4 {
		case 0:
			sev = models.SeverityHigh
		case 1:
			sev = models.SeverityMedium
		case 2:
			sev = models.SeverityCritical
		}
		event(t, mem, models.SecurityEvent{EventType: "e", Severity: sev, Timestamp: w.TodayStart.Add(time.Duration(i) * time.Minute)})
	}

	mem.Users.Add("a@x.com", w.TodayStart.Add(-10*24*time.Hour))
	mem.Users.Add("b@x.com", w.TodayStart)
	mem.Users.Add("c@x.com", w.TodayStart.Add(-time.Second))

	r, err := e.Summary(context.Background(), now)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	lm := r.LoginMetrics
	if lm.TotalLogins != 3 || lm.TodayLogins != 1 || lm.TotalFailed != 2 || lm.TodayFailed != 1 {
		t.Errorf("login metrics = %+v", lm)
	}
	if lm.FailureRate != 40 {
		t.Errorf("FailureRate = %v, want 40", lm.FailureRate)
	}

	se := r.SecurityEvents
	if se.High != 3 || se.Medium != 3 || se.Low != 3 || se.Total != 9 {
		t.Errorf("severity counts = %+v (critical must not be counted)", se)
	}

	if r.UserMetrics.TotalUsers != 3 || r.UserMetrics.NewUsersToday != 1 {
		t.Errorf("user metrics = %+v", r.UserMetrics)
	}

	if len(r.LoginTrends.Dates) != 8 {
		t.Fatalf("trend days = %d, want 8", len(r.LoginTrends.Dates))
	}
	last := len(r.LoginTrends.Dates) - 1
	if r.LoginTrends.Success[last] != 1 || r.LoginTrends.Failed[last] != 1 {
		t.Errorf("today trend = %d/%d, want 1/1", r.LoginTrends.Success[last], r.LoginTrends.Failed[last])
	}
	if r.LoginTrends.Success[5] != 1 {
		t.Errorf("two days ago success = %d, want 1", r.LoginTrends.Success[5])
	}

	if len(r.RecentEvents) != RecentEventsLimit {
		t.Fatalf("recent events = %d, want %d", len(r.RecentEvents), RecentEventsLimit)
	}
	if !r.RecentEvents[0].Timestamp.Equal(w.TodayStart.Add(11 * time.Minute)) {
		t.Errorf("recent events not newest first: %v", r.RecentEvents[0].Timestamp)
	}
}

func TestSummary_Empty(t *testing.T) {
	e, _ := newEngine()
	r, err := e.Summary(context.Background(), now)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if r.LoginMetrics.FailureRate != 0 {
		t.Errorf("FailureRate = %v, want 0", r.LoginMetrics.FailureRate)
	}
	if r.RecentEvents == nil || len(r.RecentEvents) != 0 {
		t.Errorf("RecentEvents = %v, want empty slice", r.RecentEvents)
	}
	for i := range r.LoginTrends.Dates {
		if r.LoginTrends.Success[i] != 0 || r.LoginTrends.Failed[i] != 0 {
			t.Errorf("day %s not zero", r.LoginTrends.Dates[i])
		}
	}
}

func TestSummary_StorageFailure(t *testing.T) {
	for _, op := range []string{"logins.count", "events.count", "users.count", "logins.trend", "events.find"} {
		t.Run(op, func(t *testing.T) {
			e, mem := newEngine()
			mem.Fail(op, errors.New("socket timeout"))
			_, err := e.Summary(context.Background(), now)
			if !errors.Is(err, secerr.ErrStorageUnavailable) {
				t.Errorf("error = %v, want ErrStorageUnavailable", err)
			}
		})
	}
}

func TestUserActivity(t *testing.T) {
	e, mem := newEngine()
	ctx := context.Background()
	ident := mem.Users.Add("victim@x.com", now.Add(-48*time.Hour))

	login(t, mem, "victim@x.com", "success", now.Add(-3*time.Hour))
	login(t, mem, "victim@x.com", "failed", now.Add(-2*time.Hour))
	login(t, mem, "victim@x.com", "failed", now.Add(-1*time.Hour))
	login(t, mem, "other@x.com", "failed", now.Add(-1*time.Hour))

	event(t, mem, models.SecurityEvent{EventType: "multiple_failed_logins", Severity: "medium", Timestamp: now,
		Details: models.Details{primitive.E{Key: "email", Value: "victim@x.com"}}})
	event(t, mem, models.SecurityEvent{EventType: "multiple_failed_logins", Severity: "medium", Timestamp: now,
		Details: models.Details{primitive.E{Key: "email", Value: "other@x.com"}}})

	_, _ = mem.Access.Insert(ctx, models.AccessLog{Endpoint: "/x", Method: "GET", UserID: ident.ID.Hex(), StatusCode: 200})
	_, _ = mem.Access.Insert(ctx, models.AccessLog{Endpoint: "/x", Method: "GET", UserID: "someone-else", StatusCode: 200})

	a, err := e.UserActivity(ctx, "  Victim@X.com ")
	if err != nil {
		t.Fatalf("UserActivity() error = %v", err)
	}
	if a.User.Email != "victim@x.com" || a.User.UserID != ident.ID.Hex() {
		t.Errorf("user = %+v", a.User)
	}
	if len(a.LoginHistory) != 3 {
		t.Errorf("login history = %d, want 3", len(a.LoginHistory))
	}
	want := ActivityMetrics{TotalLogins: 1, FailedLogins: 2, SecurityEventsCount: 1, AccessLogsCount: 1}
	if a.Metrics != want {
		t.Errorf("metrics = %+v, want %+v", a.Metrics, want)
	}
}

func TestUserActivity_NotFound(t *testing.T) {
	e, _ := newEngine()
	_, err := e.UserActivity(context.Background(), "ghost@x.com")
	if !errors.Is(err, secerr.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if secerr.HTTPStatus(err) != 404 {
		t.Errorf("status = %d, want 404", secerr.HTTPStatus(err))
	}
}

func TestUserActivity_StorageFailure(t *testing.T) {
	e, mem := newEngine()
	mem.Users.Add("v@x.com", now)
	mem.Fail("access.find", errors.New("timeout"))

	_, err := e.UserActivity(context.Background(), "v@x.com")
	if !errors.Is(err, secerr.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable", err)
	}

	mem.Fail("access.find", nil)
	mem.Fail("users.get", errors.New("timeout"))
	_, err = e.UserActivity(context.Background(), "v@x.com")
	if !errors.Is(err, secerr.ErrStorageUnavailable) {
		t.Fatalf("identity lookup error = %v, want ErrStorageUnavailable", err)
	}
}

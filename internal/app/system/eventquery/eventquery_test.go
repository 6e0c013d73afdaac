package eventquery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratashield/internal/app/system/secerr"
	"github.com/dalemusser/stratashield/internal/domain/models"
	"github.com/dalemusser/stratashield/internal/testutil"
)

func newEngine() (*Engine, *testutil.MemStore) {
	mem := testutil.NewMemStore()
	return New(mem.Logins, mem.Events, mem.Access), mem
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func addLogin(t *testing.T, mem *testutil.MemStore, email, status, ts string) {
	t.Helper()
	_, err := mem.Logins.Insert(context.Background(), models.LoginAttempt{
		Email: email, Status: status, Timestamp: at(ts),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestLoginAttempts_DateRangeInclusive(t *testing.T) {
	e, mem := newEngine()
	addLogin(t, mem, "a@x.com", "failed", "2024-01-14T23:59:59Z")
	addLogin(t, mem, "a@x.com", "failed", "2024-01-15T00:00:00Z")
	addLogin(t, mem, "a@x.com", "failed", "2024-01-15T23:59:59Z")
	addLogin(t, mem, "a@x.com", "failed", "2024-01-16T00:00:00Z")

	page, err := e.LoginAttempts(context.Background(), LoginQuery{FromDate: "2024-01-15", ToDate: "2024-01-15"})
	if err != nil {
		t.Fatalf("LoginAttempts() error = %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("got total=%d items=%d, want 2/2", page.Total, len(page.Items))
	}
	if !page.Items[0].Timestamp.Equal(at("2024-01-15T23:59:59Z")) {
		t.Errorf("first item = %v, want the 23:59:59 record (newest first)", page.Items[0].Timestamp)
	}
	if !page.Items[1].Timestamp.Equal(at("2024-01-15T00:00:00Z")) {
		t.Errorf("second item = %v, want the 00:00:00 record", page.Items[1].Timestamp)
	}
}

func TestLoginAttempts_Filters(t *testing.T) {
	e, mem := newEngine()
	addLogin(t, mem, "a@x.com", "failed", "2024-01-15T10:00:00Z")
	addLogin(t, mem, "a@x.com", "success", "2024-01-15T11:00:00Z")
	addLogin(t, mem, "b@x.com", "failed", "2024-01-15T12:00:00Z")

	page, err := e.LoginAttempts(context.Background(), LoginQuery{Email: "  A@X.com ", Status: "FAILED"})
	if err != nil {
		t.Fatalf("LoginAttempts() error = %v", err)
	}
	if page.Total != 1 || page.Items[0].Email != "a@x.com" || page.Items[0].Status != "failed" {
		t.Errorf("got %+v", page)
	}
}

func TestLoginAttempts_LimitAndTotal(t *testing.T) {
	e, mem := newEngine()
	base := at("2024-01-15T00:00:00Z")
	for i := 0; i < 60; i++ {
		_, _ = mem.Logins.Insert(context.Background(), models.LoginAttempt{
			Email: "a@x.com", Status: "failed", Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	page, err := e.LoginAttempts(context.Background(), LoginQuery{})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if page.Total != 60 || len(page.Items) != DefaultLimit {
		t.Errorf("default limit: total=%d items=%d", page.Total, len(page.Items))
	}

	page, err = e.LoginAttempts(context.Background(), LoginQuery{Limit: Limit(5)})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(page.Items) != 5 {
		t.Errorf("items = %d, want 5", len(page.Items))
	}
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].Timestamp.After(page.Items[i-1].Timestamp) {
			t.Fatalf("items not newest first at %d", i)
		}
	}
}

func TestLoginAttempts_Validation(t *testing.T) {
	e, _ := newEngine()
	ctx := context.Background()

	tests := []struct {
		name    string
		q       LoginQuery
		wantMsg string
	}{
		{"limit zero", LoginQuery{Limit: Limit(0)}, "limit must be at least 1."},
		{"limit too big", LoginQuery{Limit: Limit(1001)}, "limit must be at most 1000."},
		{"bad status", LoginQuery{Status: "maybe"}, "status must be one of"},
		{"bad from", LoginQuery{FromDate: "2024/01/15"}, "Invalid from_date format. Use YYYY-MM-DD"},
		{"bad to", LoginQuery{ToDate: "15-01-2024"}, "Invalid to_date format. Use YYYY-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.LoginAttempts(ctx, tt.q)
			if !errors.Is(err, secerr.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("message = %q, want to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}

	if _, err := e.LoginAttempts(ctx, LoginQuery{Limit: Limit(1000)}); err != nil {
		t.Errorf("limit 1000 should be accepted: %v", err)
	}
}

func TestLoginAttempts_InvalidDateFormatType(t *testing.T) {
	e, _ := newEngine()
	_, err := e.LoginAttempts(context.Background(), LoginQuery{FromDate: "yesterday"})
	var idf *secerr.InvalidDateFormat
	if !errors.As(err, &idf) {
		t.Fatalf("error = %T, want *secerr.InvalidDateFormat", err)
	}
	if idf.Field != "from_date" {
		t.Errorf("Field = %q, want from_date", idf.Field)
	}
}

func TestLoginAttempts_StorageUnavailable(t *testing.T) {
	e, mem := newEngine()
	mem.Fail("logins.find", errors.New("server selection timeout"))

	_, err := e.LoginAttempts(context.Background(), LoginQuery{})
	if !errors.Is(err, secerr.ErrStorageUnavailable) {
		t.Fatalf("error = %v, want ErrStorageUnavailable", err)
	}

	mem.Fail("logins.find", nil)
	mem.Fail("logins.count", errors.New("timeout"))
	if _, err := e.LoginAttempts(context.Background(), LoginQuery{}); !errors.Is(err, secerr.ErrStorageUnavailable) {
		t.Fatalf("count failure error = %v, want ErrStorageUnavailable", err)
	}
}

func TestSecurityEvents_Filters(t *testing.T) {
	e, mem := newEngine()
	ctx := context.Background()
	for _, ev := range []models.SecurityEvent{
		{EventType: "password_guessing", Severity: "high", Timestamp: at("2024-02-01T10:00:00Z")},
		{EventType: "multiple_failed_logins", Severity: "medium", Timestamp: at("2024-02-01T11:00:00Z")},
		{EventType: "password_guessing", Severity: "high", Timestamp: at("2024-02-03T10:00:00Z")},
	} {
		if _, err := mem.Events.Insert(ctx, ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	page, err := e.SecurityEvents(ctx, EventQuery{Severity: "HIGH"})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if page.Total != 2 {
		t.Errorf("high total = %d, want 2", page.Total)
	}

	page, err = e.SecurityEvents(ctx, EventQuery{EventType: "password_guessing", ToDate: "2024-02-01"})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if page.Total != 1 || !page.Items[0].Timestamp.Equal(at("2024-02-01T10:00:00Z")) {
		t.Errorf("got %+v", page)
	}

	_, err = e.SecurityEvents(ctx, EventQuery{Severity: "urgent"})
	if !errors.Is(err, secerr.ErrValidation) {
		t.Errorf("unknown severity error = %v, want ErrValidation", err)
	}
}

func TestAccessLogs_Filters(t *testing.T) {
	e, mem := newEngine()
	ctx := context.Background()
	for _, rec := range []models.AccessLog{
		{Endpoint: "/security-dashboard/summary", Method: "GET", StatusCode: 200, Timestamp: at("2024-02-01T10:00:00Z")},
		{Endpoint: "/security-dashboard/summary", Method: "GET", StatusCode: 503, Timestamp: at("2024-02-01T10:01:00Z")},
		{Endpoint: "/security-monitor/login-attempts", Method: "GET", UserID: "65f1c0ffee00000000000abc", StatusCode: 400, Timestamp: at("2024-02-01T10:02:00Z")},
	} {
		if _, err := mem.Access.Insert(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	page, err := e.AccessLogs(ctx, AccessQuery{Endpoint: "/security-dashboard/summary", Method: "get"})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if page.Total != 2 || page.Items[0].StatusCode != 503 {
		t.Errorf("got %+v", page)
	}

	page, err = e.AccessLogs(ctx, AccessQuery{UserID: "65f1c0ffee00000000000abc"})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if page.Total != 1 {
		t.Errorf("user filter total = %d, want 1", page.Total)
	}

	_, err = e.AccessLogs(ctx, AccessQuery{UserID: "u1"})
	if !errors.Is(err, secerr.ErrValidation) || !strings.Contains(err.Error(), "user_id is not a valid ID.") {
		t.Errorf("malformed user_id error = %v, want validation error", err)
	}
}

func TestParseDateRange(t *testing.T) {
	tr, err := ParseDateRange("", "")
	if err != nil || tr.From != nil || tr.To != nil {
		t.Fatalf("empty range = %+v, %v", tr, err)
	}

	tr, err = ParseDateRange("2024-01-15", "2024-01-20")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if !tr.From.Equal(at("2024-01-15T00:00:00Z")) {
		t.Errorf("From = %v", tr.From)
	}
	if !tr.To.Equal(at("2024-01-21T00:00:00Z")) {
		t.Errorf("To = %v, want next midnight", tr.To)
	}
	if !tr.Contains(at("2024-01-20T23:59:59Z")) || tr.Contains(at("2024-01-21T00:00:00Z")) {
		t.Error("to_date should cover its whole day and nothing after")
	}
}

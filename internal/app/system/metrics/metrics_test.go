package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTelemetry(t *testing.T) {
	before := testutil.ToFloat64(TelemetryRecords.WithLabelValues("login_attempt", "failed"))
	RecordTelemetry("login_attempt", false)
	after := testutil.ToFloat64(TelemetryRecords.WithLabelValues("login_attempt", "failed"))
	if after-before != 1 {
		t.Errorf("failed counter moved by %v, want 1", after-before)
	}
}

func TestSetThreatLevel(t *testing.T) {
	tests := []struct {
		level string
		want  float64
	}{
		{"high", 2},
		{"medium", 1},
		{"low", 0},
		{"", 0},
	}
	for _, tt := range tests {
		SetThreatLevel(tt.level)
		if got := testutil.ToFloat64(ThreatLevel); got != tt.want {
			t.Errorf("SetThreatLevel(%q) gauge = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestObserveRequest(t *testing.T) {
	ObserveRequest("/security-dashboard/summary", 200, 15*time.Millisecond)
	if n := testutil.CollectAndCount(RequestDuration); n == 0 {
		t.Error("expected at least one observed series")
	}
}

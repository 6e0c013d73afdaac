// Package metrics exposes Prometheus instruments for telemetry recording,
// escalation, threat level, and the query surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TelemetryRecords counts recorder writes.
	// Labels:
	//   - kind: "login_attempt", "security_event", "access"
	//   - outcome: "stored", "failed"
	TelemetryRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratashield_telemetry_records_total",
			Help: "Telemetry records written by the event recorder",
		},
		[]string{"kind", "outcome"},
	)

	// Escalations counts security events raised by the real-time checks.
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stratashield_escalations_total",
			Help: "Security events raised by real-time escalation checks",
		},
		[]string{"event_type"},
	)

	// ThreatLevel is the level from the most recent threat analysis
	// (0 low, 1 medium, 2 high).
	ThreatLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stratashield_threat_level",
			Help: "Threat level from the last analysis (0 low, 1 medium, 2 high)",
		},
	)

	// RequestDuration measures dashboard and monitor request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stratashield_request_duration_seconds",
			Help:    "Duration of dashboard and monitor requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "code"},
	)
)

// RecordTelemetry counts one recorder write of kind.
func RecordTelemetry(kind string, stored bool) {
	outcome := "stored"
	if !stored {
		outcome = "failed"
	}
	TelemetryRecords.WithLabelValues(kind, outcome).Inc()
}

// SetThreatLevel publishes a threat level name.
func SetThreatLevel(level string) {
	switch level {
	case "high":
		ThreatLevel.Set(2)
	case "medium":
		ThreatLevel.Set(1)
	default:
		ThreatLevel.Set(0)
	}
}

// ObserveRequest records one request's latency.
func ObserveRequest(route string, status int, d time.Duration) {
	RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

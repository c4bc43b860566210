package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for bridge calls and executor work.
type Metrics struct {
	BridgeCalls      *prometheus.CounterVec
	ExecutorActions  *prometheus.CounterVec
	ExecutorDuration *prometheus.HistogramVec
	StoredBytes      prometheus.Counter
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BridgeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imageresizer_bridge_calls_total",
				Help: "Bridge calls by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		ExecutorActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imageresizer_executor_actions_total",
				Help: "Executor actions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		ExecutorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imageresizer_executor_duration_seconds",
				Help:    "Time spent executing an action",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		StoredBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "imageresizer_stored_bytes_total",
				Help: "Bytes written to image stores",
			},
		),
	}

	reg.MustRegister(m.BridgeCalls, m.ExecutorActions, m.ExecutorDuration, m.StoredBytes)

	return m
}

// RecordBridgeCall is safe on a nil receiver.
func (m *Metrics) RecordBridgeCall(action string, err error) {
	if m == nil {
		return
	}
	m.BridgeCalls.WithLabelValues(action, outcome(err)).Inc()
}

// RecordAction is safe on a nil receiver.
func (m *Metrics) RecordAction(action string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.ExecutorActions.WithLabelValues(action, outcome(err)).Inc()
	m.ExecutorDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

// RecordStored is safe on a nil receiver.
func (m *Metrics) RecordStored(n int) {
	if m == nil {
		return
	}
	m.StoredBytes.Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/melih/redeploy/internal/core/domain"
)

// Metrics tracks cycle outcomes and phase durations.
type Metrics struct {
	cycles        *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	buildFailures prometheus.Counter
	lastSuccess   prometheus.Gauge
}

// NewMetrics creates the cycle metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redeploy_cycles_total",
				Help: "Lifecycle cycles by result",
			},
			[]string{"result"}, // success, preflight, build, run, locked, error
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redeploy_phase_duration_seconds",
				Help:    "Time spent in each lifecycle phase",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
			},
			[]string{"phase"},
		),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redeploy_build_failures_total",
			Help: "Image builds that failed and aborted a cycle",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redeploy_last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.cycles, m.phaseDuration, m.buildFailures, m.lastSuccess)
	}
	return m
}

func (m *Metrics) observePhase(p domain.Phase, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(string(p)).Observe(d.Seconds())
}

func (m *Metrics) cycleDone(result string, at time.Time) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	switch result {
	case "success":
		m.lastSuccess.Set(float64(at.Unix()))
	case "build":
		m.buildFailures.Inc()
	}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful policy reloads.
	OutcomeSuccess = "success"
	// OutcomeError labels failed policy reloads (parse or read issues).
	OutcomeError = "error"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_gate",
			Name:      "decisions_total",
			Help:      "Total number of gate decisions, partitioned by chosen action and chain verdict.",
		},
		[]string{"action", "verdict"},
	)

	unitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_gate",
			Name:      "unit_decisions_total",
			Help:      "Per-unit allow/deny outcomes, partitioned by unit kind.",
		},
		[]string{"kind", "allowed"},
	)

	decisionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_gate",
			Name:      "decision_seconds",
			Help:      "Gate decision latency in seconds, including registry lookups.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	policyReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_gate",
			Name:      "policy_reloads_total",
			Help:      "Policy document reloads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	unitDenyRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_gate",
			Name:      "unit_deny_rate",
			Help:      "Share of recent evaluations that denied a unit, from the last hotspot scan.",
		},
		[]string{"tenant", "unit"},
	)
)

// Register attaches mirador-gate collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		decisionsTotal,
		unitDecisionsTotal,
		decisionDurationSeconds,
		policyReloadsTotal,
		unitDenyRate,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDecision records a decision duration with its action and verdict labels.
func ObserveDecision(duration time.Duration, action, verdict string) {
	if action == "" {
		action = "none"
	}
	decisionsTotal.WithLabelValues(action, verdict).Inc()
	if duration < 0 {
		duration = 0
	}
	decisionDurationSeconds.Observe(duration.Seconds())
}

// ObserveUnit records one unit outcome.
func ObserveUnit(kind string, allowed bool) {
	unitDecisionsTotal.WithLabelValues(kind, strconv.FormatBool(allowed)).Inc()
}

// ObservePolicyReload records a reload attempt.
func ObservePolicyReload(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	policyReloadsTotal.WithLabelValues(label).Inc()
}

// ObserveUnitDenyRate publishes a unit's deny rate from a hotspot scan.
func ObserveUnitDenyRate(tenant, unit string, rate float64) {
	unitDenyRate.WithLabelValues(tenant, unit).Set(rate)
}

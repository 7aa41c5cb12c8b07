package goap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the p50/p95 plan-latency, cache-hit-rate, and
// repair/replan-ratio observability surface spec.md §4.H requires,
// grounded on the pack's promauto-registered HistogramVec/CounterVec
// pattern (Generativebots-ocx-backend-go-svc/internal/escrow/metrics.go).
type Metrics struct {
	planLatency   prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	replans       prometheus.Counter
	repairs       prometheus.Counter
}

// NewMetrics constructs the GOAP planner's Prometheus collectors against a
// fresh, private registry rather than the global default one: a process may
// run more than one Planner (one per bot instance, or repeatedly across
// tests), and the default registry panics on the second registration of the
// same collector name. Reg, if non-nil, registers into the caller's own
// registry instead; NewPlanner always passes nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		planLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentcore_goap_plan_latency_seconds",
			Help:    "Latency of Planner.PlanTo calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_goap_plan_cache_hits_total",
			Help: "Plan cache hits keyed on (goalId, stateDigest)",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_goap_plan_cache_misses_total",
			Help: "Plan cache misses keyed on (goalId, stateDigest)",
		}),
		replans: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_goap_replans_total",
			Help: "Full replans (no applicable cached or repaired plan)",
		}),
		repairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_goap_repairs_total",
			Help: "Plan repairs (cached plan still partially applicable)",
		}),
	}
}

// RecordLatency observes one PlanTo call's wall-clock duration.
func (m *Metrics) RecordLatency(d time.Duration) {
	m.planLatency.Observe(d.Seconds())
}

// RecordCacheHit and RecordCacheMiss track the plan-cache hit rate.
func (m *Metrics) RecordCacheHit()  { m.cacheHits.Inc() }
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Inc() }

// RecordReplan and RecordRepair track the repair/replan ratio: a repair
// reuses a cached plan's unexpired tail, a replan searches from scratch.
func (m *Metrics) RecordReplan() { m.replans.Inc() }
func (m *Metrics) RecordRepair() { m.repairs.Inc() }

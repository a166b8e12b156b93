package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the coach's Prometheus collectors
type Metrics struct {
	Decisions       *prometheus.CounterVec
	GateFailures    *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	Ingested        *prometheus.CounterVec
	RecomputeTime   prometheus.Histogram
	RecomputeFailed prometheus.Counter
	AISRIScores     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when non-nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aisri",
			Name:      "workout_decisions_total",
			Help:      "Workout requests by decision status",
		}, []string{"status"}),
		GateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aisri",
			Name:      "safety_gate_failures_total",
			Help:      "Safety gate failures by gate",
		}, []string{"gate"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aisri",
			Name:      "workout_completions_total",
			Help:      "Recorded completions by performance label",
		}, []string{"label"}),
		Ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aisri",
			Name:      "activities_ingested_total",
			Help:      "Ingested activities by provider and result",
		}, []string{"provider", "result"}),
		RecomputeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aisri",
			Name:      "daily_update_duration_seconds",
			Help:      "Duration of one athlete's readiness recompute",
			Buckets:   prometheus.DefBuckets,
		}),
		RecomputeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aisri",
			Name:      "daily_update_failures_total",
			Help:      "Readiness recomputes that returned an error",
		}),
		AISRIScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aisri",
			Name:      "score",
			Help:      "Distribution of computed AISRI scores",
			Buckets:   prometheus.LinearBuckets(10, 10, 9),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Decisions, m.GateFailures, m.Completions, m.Ingested,
			m.RecomputeTime, m.RecomputeFailed, m.AISRIScores)
	}
	return m
}

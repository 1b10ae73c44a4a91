// Package metrics exposes the process's prometheus instrumentation: tool
// invocation counts/latency for the tool registry (spec §4.2) and heavy-task
// counts/latency for the dual-model orchestrator (spec §4.8). Registration
// happens against a caller-supplied *prometheus.Registry rather than the
// global default so tests can assert against an isolated instance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors this process reports. The zero value is
// not usable; build one with New.
type Registry struct {
	ToolInvocations *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	HeavyTasks      *prometheus.CounterVec
	HeavyDuration   prometheus.Histogram
}

// New creates and registers the collector set against reg. Passing a fresh
// prometheus.NewRegistry() isolates a test; passing prometheus.DefaultRegisterer
// wires process-wide scraping.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neuro",
			Subsystem: "tool",
			Name:      "invocations_total",
			Help:      "Tool invocations by name and outcome.",
		}, []string{"tool", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neuro",
			Subsystem: "tool",
			Name:      "invocation_duration_seconds",
			Help:      "Tool invocation latency by name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		HeavyTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neuro",
			Subsystem: "orchestrator",
			Name:      "heavy_tasks_total",
			Help:      "Heavy-model background tasks by outcome.",
		}, []string{"outcome"}),
		HeavyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neuro",
			Subsystem: "orchestrator",
			Name:      "heavy_task_duration_seconds",
			Help:      "Heavy-model background task latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ToolInvocations, m.ToolDuration, m.HeavyTasks, m.HeavyDuration)
	return m
}

package toolregistry

import (
	"context"
	"time"

	"neuro/internal/metrics"
)

type metricsRegistry struct {
	parent PolicyInvoker
	m      *metrics.Registry
}

// WithMetrics returns a view of parent that records invocation counts and
// latency to m for every Invoke call, keyed by tool name and outcome
// (success/failure, matching IsFailureText's notion of failure).
func WithMetrics(parent PolicyInvoker, m *metrics.Registry) PolicyInvoker {
	return &metricsRegistry{parent: parent, m: m}
}

func (w *metricsRegistry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	start := time.Now()
	result, err := w.parent.Invoke(ctx, name, args)
	w.m.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil || IsFailureText(result) {
		outcome = "failure"
	}
	w.m.ToolInvocations.WithLabelValues(name, outcome).Inc()

	return result, err
}

func (w *metricsRegistry) Names() []string {
	return w.parent.Names()
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ToolInvocations.WithLabelValues("read_file", "success").Inc()
	m.ToolDuration.WithLabelValues("read_file").Observe(0.1)
	m.HeavyTasks.WithLabelValues("success").Inc()
	m.HeavyDuration.Observe(1.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolInvocations.WithLabelValues("read_file", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HeavyTasks.WithLabelValues("success")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 4)
}

package toolregistry

import (
	"context"
	"errors"
	"testing"

	neuroerrors "neuro/internal/errors"
	"neuro/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInvokeUnknownTool(t *testing.T) {
	registry := New()
	_, err := registry.Invoke(context.Background(), "read_file", nil)
	require.Error(t, err)
}

func TestRegistryInvokeDispatchesToExecutor(t *testing.T) {
	registry := New()
	registry.Register("read_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return "file contents", nil
	}))

	result, err := registry.Invoke(context.Background(), "read_file", nil)
	require.NoError(t, err)
	assert.Equal(t, "file contents", result)
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := New()
	registry.Register("write_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "", nil }))
	registry.Register("read_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "", nil }))

	assert.Equal(t, []string{"read_file", "write_file"}, registry.Names())
}

func TestPolicyAskModeDeniesWriteTools(t *testing.T) {
	registry := New()
	registry.Register("execute_shell", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "ran", nil }))
	registry.Register("read_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "contents", nil }))

	ask := WithMode(registry, ModeAsk)
	_, err := ask.Invoke(context.Background(), "execute_shell", nil)
	assert.Error(t, err)

	result, err := ask.Invoke(context.Background(), "read_file", nil)
	require.NoError(t, err)
	assert.Equal(t, "contents", result)
}

func TestPolicyBuildModeAllowsEverything(t *testing.T) {
	registry := New()
	registry.Register("execute_shell", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "ran", nil }))

	build := WithMode(registry, ModeBuild)
	result, err := build.Invoke(context.Background(), "execute_shell", nil)
	require.NoError(t, err)
	assert.Equal(t, "ran", result)
}

func TestPolicyNamesFilteredByMode(t *testing.T) {
	registry := New()
	registry.Register("execute_shell", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "", nil }))
	registry.Register("read_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) { return "", nil }))

	ask := WithMode(registry, ModeAsk)
	assert.Equal(t, []string{"read_file"}, ask.Names())
}

func TestIsFailureTextRecognizesKnownPrefixes(t *testing.T) {
	assert.True(t, IsFailureText("Error: could not open file"))
	assert.True(t, IsFailureText("  No such file or directory"))
	assert.False(t, IsFailureText("contents of the file"))
}

func TestTruncateCapsOverlongResult(t *testing.T) {
	long := make([]byte, maxResultChars+500)
	for i := range long {
		long[i] = 'a'
	}
	truncated := Truncate(string(long))
	assert.Contains(t, truncated, "[truncated]")
	assert.Less(t, len(truncated), len(long))
}

func TestWithRetryRetriesOnFailureTextThenSucceeds(t *testing.T) {
	registry := New()
	attempts := 0
	registry.Register("read_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		attempts++
		if attempts < 2 {
			return "Error: transient glitch", nil
		}
		return "contents", nil
	}))

	retried := WithRetry(registry, neuroerrors.RetryConfig{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0, JitterFactor: 0})
	result, err := retried.Invoke(context.Background(), "read_file", nil)
	require.NoError(t, err)
	assert.Equal(t, "contents", result)
	assert.Equal(t, 2, attempts)
}

func TestWithDegradationFallsBackToAlternateTool(t *testing.T) {
	registry := New()
	registry.Register("run_linter", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return "", errors.New("linter binary not found")
	}))
	registry.Register("analyze_code", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return "analysis complete", nil
	}))

	config := DefaultDegradationConfig()
	config.FallbackMap["run_linter"] = []string{"analyze_code"}

	degraded := WithDegradation(registry, config)
	result, err := degraded.Invoke(context.Background(), "run_linter", nil)
	require.NoError(t, err)
	assert.Equal(t, "analysis complete", result)
}

func TestWithDegradationReturnsErrorWhenAllFallbacksFail(t *testing.T) {
	registry := New()
	registry.Register("run_linter", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return "", errors.New("linter binary not found")
	}))

	degraded := WithDegradation(registry, DefaultDegradationConfig())
	_, err := degraded.Invoke(context.Background(), "run_linter", nil)
	assert.Error(t, err)
}

func TestWithMetricsRecordsSuccessAndFailureCounts(t *testing.T) {
	registry := New()
	registry.Register("read_file", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return "contents", nil
	}))
	registry.Register("execute_shell", ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return "Error: command not found", nil
	}))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	measured := WithMetrics(registry, m)

	_, err := measured.Invoke(context.Background(), "read_file", nil)
	require.NoError(t, err)
	_, err = measured.Invoke(context.Background(), "execute_shell", nil)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolInvocations.WithLabelValues("read_file", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolInvocations.WithLabelValues("execute_shell", "failure")))
	assert.Equal(t, []string{"execute_shell", "read_file"}, measured.Names())
}

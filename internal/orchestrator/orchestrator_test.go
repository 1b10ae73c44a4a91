package orchestrator

import (
	"context"
	"testing"
	"time"

	"neuro/internal/agentstate"
	"neuro/internal/llmprovider"
	"neuro/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	model string
	reply string
	err   error
	delay time.Duration
}

func (f *fakeClient) Complete(ctx context.Context, req llmprovider.Request) (*llmprovider.Response, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llmprovider.Response{Content: f.reply}, nil
}

func (f *fakeClient) Model() string { return f.model }

type fakeTools struct {
	results map[string]string
}

func (f *fakeTools) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	if result, ok := f.results[name]; ok {
		return result, nil
	}
	return "", nil
}

func (f *fakeTools) Names() []string { return nil }

func newTestOrchestrator(fast, heavy *fakeClient, tools *fakeTools) *Orchestrator {
	cfg := Config{HeavyTimeout: 200 * time.Millisecond, MaxConcurrentHeavy: 2}
	return New(cfg, fast, heavy, tools, agentstate.New(50))
}

func TestProcessSimpleCommandHelp(t *testing.T) {
	o := newTestOrchestrator(&fakeClient{model: "fast"}, &fakeClient{model: "heavy"}, &fakeTools{})
	resp := o.Process(context.Background(), "help")
	assert.Equal(t, RespText, resp.Kind)
	assert.Contains(t, resp.Content, "Available commands")
}

func TestProcessSimpleCommandClearClearsHistory(t *testing.T) {
	o := newTestOrchestrator(&fakeClient{model: "fast"}, &fakeClient{model: "heavy"}, &fakeTools{})
	o.state.AddMessage(context.Background(), agentstate.Message{Role: "user", Content: "hi"})

	resp := o.Process(context.Background(), "clear")
	assert.Equal(t, RespText, resp.Kind)
	assert.Empty(t, o.state.GetContextMessages(0))
}

func TestProcessCodeGenerationDelegatesToHeavyModel(t *testing.T) {
	heavy := &fakeClient{model: "heavy", reply: "func Foo() {}"}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, heavy, &fakeTools{})

	resp := o.Process(context.Background(), "generate a function that adds two numbers")
	require.Equal(t, RespDelegated, resp.Kind)
	require.NotEmpty(t, resp.TaskID)

	result := waitForResult(t, o)
	assert.True(t, result.Success)
	assert.Equal(t, "func Foo() {}", result.Content)
}

func TestDelegateHeavyTaskTimesOut(t *testing.T) {
	heavy := &fakeClient{model: "heavy", delay: time.Second}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, heavy, &fakeTools{})

	resp := o.DelegateHeavyTask(context.Background(), "slow task", "do something slow", 5)
	require.Equal(t, RespDelegated, resp.Kind)

	result := waitForResult(t, o)
	assert.False(t, result.Success)
	assert.Contains(t, result.Content, "timed out")
}

func TestCancelTaskYieldsCancelledResult(t *testing.T) {
	heavy := &fakeClient{model: "heavy", delay: time.Second}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, heavy, &fakeTools{})

	resp := o.DelegateHeavyTask(context.Background(), "cancel me", "prompt", 5)
	o.CancelTask(resp.TaskID)

	result := waitForResult(t, o)
	assert.False(t, result.Success)
	assert.Equal(t, "Task cancelled by user", result.Content)
}

func TestCallHeavyModelDirectReturnsContent(t *testing.T) {
	heavy := &fakeClient{model: "heavy", reply: "synthesis text"}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, heavy, &fakeTools{})

	content, err := o.CallHeavyModelDirect(context.Background(), "synthesize")
	require.NoError(t, err)
	assert.Equal(t, "synthesis text", content)
}

func TestExecuteToolResolvesRelativePath(t *testing.T) {
	tools := &fakeTools{results: map[string]string{"read_file": "contents"}}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, &fakeClient{model: "heavy"}, tools)

	result, success := o.ExecuteTool(context.Background(), "/work/session", "read_file", map[string]any{"path": "main.go"})
	assert.True(t, success)
	assert.Equal(t, "contents", result)
}

func TestExecuteToolReportsFailureMarker(t *testing.T) {
	tools := &fakeTools{results: map[string]string{"read_file": "Error: no such file or directory"}}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, &fakeClient{model: "heavy"}, tools)

	_, success := o.ExecuteTool(context.Background(), "/work/session", "read_file", map[string]any{"path": "missing.go"})
	assert.False(t, success)
}

func TestWithMetricsRecordsHeavyTaskOutcome(t *testing.T) {
	heavy := &fakeClient{model: "heavy", reply: "done"}
	o := newTestOrchestrator(&fakeClient{model: "fast"}, heavy, &fakeTools{})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	o.WithMetrics(m)

	o.DelegateHeavyTask(context.Background(), "task", "prompt", 5)
	waitForResult(t, o)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HeavyTasks.WithLabelValues("success")))
}

func waitForResult(t *testing.T, o *Orchestrator) HeavyTaskResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := o.TryRecvResult(); ok {
			return r
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for heavy task result")
	return HeavyTaskResult{}
}

package planner

import (
	"context"
	"errors"
	"testing"

	"neuro/internal/agentstate"
	"neuro/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTools struct {
	results map[string]string
	fail    map[string]bool
}

func (f *fakeTools) ExecuteTool(ctx context.Context, workingDir, name string, args map[string]any) (string, bool) {
	if f.fail[name] {
		return "Error: tool failed", false
	}
	if result, ok := f.results[name]; ok {
		return result, true
	}
	return "ok", true
}

type fakeHeavy struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeHeavy) CallHeavyModelDirect(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.calls >= len(f.replies) {
		return f.replies[len(f.replies)-1], nil
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

func TestDefaultPlanBuildsOrientActionSummarize(t *testing.T) {
	plan := DefaultPlan("read main.go and explain it")
	require.Len(t, plan.Tasks, 3)
	assert.Equal(t, "list_directory", plan.Tasks[0].ToolToUse)
	assert.Equal(t, "read_file", plan.Tasks[1].ToolToUse)
	assert.NotEmpty(t, plan.Tasks[1].Dependencies[0])
	assert.Equal(t, []string{plan.Tasks[0].ID}, plan.Tasks[1].Dependencies)
	assert.Equal(t, []string{plan.Tasks[1].ID}, plan.Tasks[2].Dependencies)
}

func TestDefaultPlanFallsBackToInvestigateForUnknownVerbs(t *testing.T) {
	plan := DefaultPlan("zzzzz qqqqq")
	require.Len(t, plan.Tasks, 3)
	assert.Contains(t, plan.Tasks[1].Description, "Investigate")
}

func TestParseHeavyPlanParsesValidXML(t *testing.T) {
	raw := `Here is the plan:
<plan>
  <task id="t1" tool="list_directory" depends="">Survey the project layout</task>
  <task id="t2" tool="read_file" depends="t1">Read the relevant source file</task>
</plan>
Done.`
	plan, ok := ParseHeavyPlan("investigate the repo", raw)
	require.True(t, ok)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "list_directory", plan.Tasks[0].ToolToUse)
	assert.Equal(t, []string{plan.Tasks[0].ID}, plan.Tasks[1].Dependencies)
}

func TestParseHeavyPlanRejectsTooFewTasks(t *testing.T) {
	raw := `<plan><task id="t1" tool="list_directory" depends="">Only one</task></plan>`
	_, ok := ParseHeavyPlan("goal", raw)
	assert.False(t, ok)
}

func TestParseHeavyPlanRejectsMissingFragment(t *testing.T) {
	_, ok := ParseHeavyPlan("goal", "no xml here at all")
	assert.False(t, ok)
}

func TestParseHeavyPlanRejectsOversizedDescription(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	raw := `<plan><task id="t1" tool="read_file" depends="">` + string(long) + `</task><task id="t2" tool="read_file" depends="t1">fine</task></plan>`
	_, ok := ParseHeavyPlan("goal", raw)
	assert.False(t, ok)
}

func TestCascadeSkipPropagatesTransitively(t *testing.T) {
	plan := &agentstate.Plan{
		Tasks: []*agentstate.Task{
			{ID: "a", Status: agentstate.TaskFailed},
			{ID: "b", Status: agentstate.TaskPending, Dependencies: []string{"a"}},
			{ID: "c", Status: agentstate.TaskPending, Dependencies: []string{"b"}},
			{ID: "d", Status: agentstate.TaskPending},
		},
	}
	cascadeSkip(plan, "a")
	assert.Equal(t, agentstate.TaskSkipped, plan.Tasks[1].Status)
	assert.Equal(t, agentstate.TaskSkipped, plan.Tasks[2].Status)
	assert.Equal(t, agentstate.TaskPending, plan.Tasks[3].Status)
}

func TestDependentCountCountsTransitiveDependents(t *testing.T) {
	plan := &agentstate.Plan{
		Tasks: []*agentstate.Task{
			{ID: "a"},
			{ID: "b", Dependencies: []string{"a"}},
			{ID: "c", Dependencies: []string{"b"}},
			{ID: "d"},
		},
	}
	assert.Equal(t, 2, dependentCount(plan, "a"))
	assert.Equal(t, 0, dependentCount(plan, "d"))
}

func TestNextRunnablePicksHighestPriorityWithCompletedDeps(t *testing.T) {
	plan := &agentstate.Plan{
		Tasks: []*agentstate.Task{
			{ID: "a", Status: agentstate.TaskCompleted},
			{ID: "b", Status: agentstate.TaskPending, Dependencies: []string{"a"}, Priority: 1},
			{ID: "c", Status: agentstate.TaskPending, Dependencies: []string{"a"}, Priority: 5},
			{ID: "d", Status: agentstate.TaskPending, Dependencies: []string{"missing"}},
		},
	}
	next := nextRunnable(plan)
	require.NotNil(t, next)
	assert.Equal(t, "c", next.ID)
}

func TestEngineRunCompletesAllTasksSuccessfully(t *testing.T) {
	plan := DefaultPlan("search for TODO comments")
	tools := &fakeTools{results: map[string]string{"list_directory": "main.go\n", "search_files": "found 3 matches"}}
	heavy := &fakeHeavy{replies: []string{"final answer summarizing the search"}}
	engine := New(tools, heavy, nil, ".", config.PlannerConfig{})

	result := engine.Run(context.Background(), plan)

	assert.Equal(t, agentstate.PlanCompleted, plan.Status)
	for _, task := range plan.Tasks {
		assert.Equal(t, agentstate.TaskCompleted, task.Status)
	}
	assert.Equal(t, "final answer summarizing the search", result)
}

func TestEngineRunCascadesSkipOnFailureWhenReplanExhausted(t *testing.T) {
	plan := DefaultPlan("compila el proyecto")
	tools := &fakeTools{fail: map[string]bool{"execute_shell": true}}
	heavy := &fakeHeavy{err: errors.New("heavy model unavailable")}
	engine := New(tools, heavy, nil, ".", config.PlannerConfig{MaxReplans: 3})

	result := engine.Run(context.Background(), plan)

	assert.Equal(t, agentstate.TaskFailed, plan.Tasks[1].Status)
	assert.Equal(t, agentstate.TaskSkipped, plan.Tasks[2].Status)
	assert.Equal(t, agentstate.PlanFailed, plan.Status)
	assert.NotEmpty(t, result)
}

func TestEngineRunReplansAroundIsolatedFailure(t *testing.T) {
	plan := DefaultPlan("compila el proyecto")
	tools := &fakeTools{fail: map[string]bool{"execute_shell": true}}
	replanXML := `<plan>
  <task id="r1" tool="list_directory" depends="">Retry listing the project</task>
  <task id="r2" tool="" depends="r1">Explain what went wrong</task>
</plan>`
	heavy := &fakeHeavy{replies: []string{replanXML, "final synthesized answer"}}
	engine := New(tools, heavy, nil, ".", config.PlannerConfig{MaxReplans: 3})

	result := engine.Run(context.Background(), plan)

	assert.Equal(t, agentstate.TaskSkipped, plan.Tasks[1].Status)
	assert.Equal(t, "superseded by replan", plan.Tasks[1].Err)
	assert.Equal(t, 1, plan.ReplanCount)
	assert.Len(t, plan.Tasks, 5)
	assert.Equal(t, "final synthesized answer", result)
}

func TestEngineSynthesizeFallsBackToChecklistOnHeavyFailure(t *testing.T) {
	plan := DefaultPlan("lee el archivo principal")
	tools := &fakeTools{}
	heavy := &fakeHeavy{err: errors.New("unavailable")}
	engine := New(tools, heavy, nil, ".", config.PlannerConfig{})

	result := engine.Run(context.Background(), plan)

	assert.Contains(t, result, plan.Goal)
}

package router

import (
	"context"
	"errors"
	"testing"

	"neuro/internal/llmprovider"
	"neuro/internal/orchestrator"
	"neuro/internal/toolregistry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	replies []string
	calls   int
}

func (s *scriptedLLM) Complete(ctx context.Context, req llmprovider.Request) (*llmprovider.Response, error) {
	if s.calls >= len(s.replies) {
		return &llmprovider.Response{Content: s.replies[len(s.replies)-1]}, nil
	}
	reply := s.replies[s.calls]
	s.calls++
	return &llmprovider.Response{Content: reply}, nil
}

func (s *scriptedLLM) Model() string { return "fast" }

type fakeOrchestrator struct {
	processResp orchestrator.Response
	toolResult  string
	toolOK      bool
	heavyReply  string
	heavyErr    error
	lastTools   toolregistry.PolicyInvoker
	lastInput   string
}

func (f *fakeOrchestrator) ProcessWithTools(ctx context.Context, input string, tools toolregistry.PolicyInvoker) orchestrator.Response {
	f.lastInput = input
	f.lastTools = tools
	return f.processResp
}

func (f *fakeOrchestrator) ExecuteTool(ctx context.Context, workingDir, name string, args map[string]any) (string, bool) {
	return f.toolResult, f.toolOK
}

func (f *fakeOrchestrator) CallHeavyModelDirect(ctx context.Context, prompt string) (string, error) {
	if f.heavyErr != nil {
		return "", f.heavyErr
	}
	return f.heavyReply, nil
}

type fakeTools struct{}

func (fakeTools) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	return "ok", nil
}
func (fakeTools) Names() []string { return []string{"read_file", "execute_shell"} }

func TestParseSlashCommandSplitsNameAndArgs(t *testing.T) {
	name, args, ok := ParseSlashCommand("/mode build")
	require.True(t, ok)
	assert.Equal(t, "mode", name)
	assert.Equal(t, "build", args)
}

func TestParseSlashCommandRejectsNonSlashInput(t *testing.T) {
	_, _, ok := ParseSlashCommand("list the files")
	assert.False(t, ok)
}

func TestBuiltinSlashDispatcherHandlesReindex(t *testing.T) {
	result, ok := BuiltinSlashDispatcher{}.Dispatch("reindex", "")
	require.True(t, ok)
	assert.Equal(t, SlashActionReindex, result.Action)
}

func TestBuiltinSlashDispatcherHandlesMode(t *testing.T) {
	result, ok := BuiltinSlashDispatcher{}.Dispatch("mode", "build")
	require.True(t, ok)
	assert.Equal(t, SlashActionSetMode, result.Action)
	assert.Equal(t, toolregistry.ModeBuild, result.Mode)
}

func TestBuiltinSlashDispatcherRejectsUnknownCommand(t *testing.T) {
	_, ok := BuiltinSlashDispatcher{}.Dispatch("frobnicate", "")
	assert.False(t, ok)
}

func TestClassifierCachesExactHits(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"direct_response","confidence":0.9}`}}
	c := NewClassifier(llm, ClassifierConfig{})

	first := c.Classify(context.Background(), "what is a monad")
	second := c.Classify(context.Background(), "what is a monad")

	assert.Equal(t, DecisionDirectResponse, first.Kind)
	assert.Equal(t, DecisionDirectResponse, second.Kind)
	assert.Equal(t, 1, llm.calls)
}

func TestClassifierDowngradesLowConfidence(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"full_pipeline","confidence":0.4}`}}
	c := NewClassifier(llm, ClassifierConfig{MinConfidence: 0.8})

	decision := c.Classify(context.Background(), "refactor the whole codebase")

	assert.Equal(t, DecisionToolExecution, decision.Kind)
	assert.Equal(t, toolregistry.ModeAsk, decision.Mode)
	assert.True(t, decision.NeedsRAPTOR)
}

func TestClassifierDowngradesOnParseFailure(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"not json at all"}}
	c := NewClassifier(llm, ClassifierConfig{})

	decision := c.Classify(context.Background(), "do something")

	assert.Equal(t, DecisionToolExecution, decision.Kind)
}

func TestClassifierParsesToolExecutionMode(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"tool_execution","mode":"build","needs_raptor":true,"confidence":0.95}`}}
	c := NewClassifier(llm, ClassifierConfig{})

	decision := c.Classify(context.Background(), "add a function to main.go")

	assert.Equal(t, DecisionToolExecution, decision.Kind)
	assert.Equal(t, toolregistry.ModeBuild, decision.Mode)
	assert.True(t, decision.NeedsRAPTOR)
}

func newTestRouter(llm *scriptedLLM, orch *fakeOrchestrator) *Router {
	cls := NewClassifier(llm, ClassifierConfig{})
	return New(cls, nil, orch, fakeTools{}, nil, nil, nil, ".")
}

func TestRouteDispatchesSlashCommandBeforeClassifying(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"direct_response","confidence":0.9}`}}
	orch := &fakeOrchestrator{}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "/reindex")

	assert.Contains(t, result, "rebuilding")
	assert.Equal(t, 0, llm.calls)
}

func TestRouteDirectResponse(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"direct_response","confidence":0.95}`}}
	orch := &fakeOrchestrator{processResp: orchestrator.Text("2+2 is 4")}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "what is 2+2")

	assert.Equal(t, "2+2 is 4", result)
}

func TestRouteToolExecutionScopesToolsByMode(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"tool_execution","mode":"ask","needs_raptor":false,"confidence":0.9}`}}
	orch := &fakeOrchestrator{processResp: orchestrator.ToolResultResponse("read_file", "package main", true)}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "read main.go")

	assert.Equal(t, "package main", result)
	require.NotNil(t, orch.lastTools)
	assert.ElementsMatch(t, []string{"read_file"}, orch.lastTools.Names())
}

func TestRouteToolExecutionPlanModeCallsHeavyDirectly(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"tool_execution","mode":"plan","needs_raptor":false,"confidence":0.9}`}}
	orch := &fakeOrchestrator{heavyReply: "1. Do X\n2. Do Y"}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "plan a migration to postgres")

	assert.Equal(t, "1. Do X\n2. Do Y", result)
}

func TestRouteToolExecutionPlanModePropagatesHeavyError(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"tool_execution","mode":"plan","needs_raptor":false,"confidence":0.9}`}}
	orch := &fakeOrchestrator{heavyErr: errors.New("heavy unavailable")}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "plan a migration")

	assert.Contains(t, result, "Error")
}

func TestRouteFullPipelineWithoutPlanningVerbFallsThroughToToolExecution(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"full_pipeline","confidence":0.9}`}}
	orch := &fakeOrchestrator{processResp: orchestrator.Text("direct answer")}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "what does this project do")

	assert.Equal(t, "direct answer", result)
}

func TestRouteFullPipelineWithoutPlanEngineConfiguredFallsThrough(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"route":"full_pipeline","confidence":0.9}`}}
	orch := &fakeOrchestrator{processResp: orchestrator.Text("handled directly")}
	r := newTestRouter(llm, orch)

	result := r.Route(context.Background(), "refactor the auth module")

	assert.Equal(t, "handled directly", result)
}

func TestResponseTextMapsEveryKind(t *testing.T) {
	assert.Equal(t, "hi", responseText(orchestrator.Text("hi")))
	assert.Equal(t, "result", responseText(orchestrator.ToolResultResponse("t", "result", true)))
	assert.Contains(t, responseText(orchestrator.Delegated("id1", "desc", 10)), "id1")
	assert.Contains(t, responseText(orchestrator.ErrorResponse("boom")), "boom")
}

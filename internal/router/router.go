package router

import (
	"context"
	"fmt"

	"neuro/internal/classifier"
	"neuro/internal/orchestrator"
	"neuro/internal/planner"
	"neuro/internal/progress"
	"neuro/internal/raptor"
	"neuro/internal/toolregistry"
)

// raptorContextLimit bounds how many retrieved spans are folded into a
// query's enrichment header.
const raptorContextLimit = 5

// Orchestrator is the narrow surface the router needs from the dual-model
// orchestrator, satisfied by *neuro/internal/orchestrator.Orchestrator. It
// also structurally satisfies planner.HeavyCaller.
type Orchestrator interface {
	ProcessWithTools(ctx context.Context, input string, tools toolregistry.PolicyInvoker) orchestrator.Response
	ExecuteTool(ctx context.Context, workingDir, name string, args map[string]any) (string, bool)
	CallHeavyModelDirect(ctx context.Context, prompt string) (string, error)
}

// Router is the top-level entry point (spec §4.9): slash dispatch, cached
// classification, RAPTOR enrichment, mode-scoped dispatch to the
// orchestrator or the planning engine, and RAPTOR lifecycle ownership.
type Router struct {
	classifier *Classifier
	slash      SlashDispatcher
	orch       Orchestrator
	tools      toolregistry.PolicyInvoker
	raptorEng  *raptor.Engine
	plan       *planner.Engine
	bus        *progress.Bus
	workingDir string

	mode toolregistry.Mode
}

// New builds a Router. raptorEng and plan may be nil when RAPTOR/planning
// are not configured; slash may be nil to disable slash dispatch.
func New(cls *Classifier, slash SlashDispatcher, orch Orchestrator, tools toolregistry.PolicyInvoker, raptorEng *raptor.Engine, plan *planner.Engine, bus *progress.Bus, workingDir string) *Router {
	if slash == nil {
		slash = BuiltinSlashDispatcher{}
	}
	return &Router{
		classifier: cls,
		slash:      slash,
		orch:       orch,
		tools:      tools,
		raptorEng:  raptorEng,
		plan:       plan,
		bus:        bus,
		workingDir: workingDir,
		mode:       toolregistry.ModeAsk,
	}
}

// InitializeRaptor runs the quick index synchronously and starts the full
// build in the background (spec §4.9 lifecycle). A no-op if RAPTOR isn't
// configured.
func (r *Router) InitializeRaptor(ctx context.Context) error {
	if r.raptorEng == nil {
		return nil
	}
	return r.raptorEng.InitializeRaptor(ctx)
}

// RebuildRaptor clears the index and rebuilds synchronously.
func (r *Router) RebuildRaptor(ctx context.Context) error {
	if r.raptorEng == nil {
		return nil
	}
	return r.raptorEng.RebuildRaptor(ctx)
}

// Route implements the router's top-level dispatch (spec §4.9 steps 1-4):
// slash dispatch first, then classification, then mode-scoped execution.
func (r *Router) Route(ctx context.Context, input string) string {
	if name, args, ok := ParseSlashCommand(input); ok {
		if result, handled := r.slash.Dispatch(name, args); handled {
			return r.applySlashResult(ctx, result)
		}
	}

	r.emitStatus(ctx, "classifying")
	decision := r.classifier.Classify(ctx, input)

	switch decision.Kind {
	case DecisionDirectResponse:
		return r.directResponse(ctx, input)

	case DecisionFullPipeline:
		return r.fullPipeline(ctx, input)

	case DecisionToolExecution:
		return r.toolExecution(ctx, input, decision)

	default:
		return r.toolExecution(ctx, input, safeDowngrade(input))
	}
}

func (r *Router) applySlashResult(ctx context.Context, result SlashResult) string {
	switch result.Action {
	case SlashActionReindex:
		go func() {
			_ = r.RebuildRaptor(context.WithoutCancel(ctx))
		}()
	case SlashActionSetMode:
		r.mode = result.Mode
	}
	return result.Text
}

// directResponse answers a query with no RAPTOR involvement, letting the
// orchestrator's own dispatch (simple command / chat / delegation) decide
// what to do, always scoped to Ask mode (read-only tools) whatever mode
// /mode has set.
func (r *Router) directResponse(ctx context.Context, input string) string {
	resp := r.orch.ProcessWithTools(ctx, input, r.scopedTools(toolregistry.ModeAsk))
	return responseText(resp)
}

// toolExecution implements spec §4.9 step 4: optional RAPTOR enrichment
// followed by a mode-scoped orchestrator dispatch. Plan mode wraps the
// query in a "generate a plan without executing" prompt instead of
// invoking tools.
func (r *Router) toolExecution(ctx context.Context, input string, decision Decision) string {
	query := input
	if decision.NeedsRAPTOR {
		query = r.enrichWithRaptor(ctx, query)
	}

	if decision.Mode == toolregistry.ModePlan {
		r.emitStatus(ctx, "generating")
		prompt := fmt.Sprintf("Generate a numbered plan for the following request. Do not execute anything, only describe the steps.\n\n%s", query)
		result, err := r.orch.CallHeavyModelDirect(ctx, prompt)
		if err != nil {
			return "Error: " + err.Error()
		}
		return result
	}

	resp := r.orch.ProcessWithTools(ctx, query, r.scopedTools(decision.Mode))
	return responseText(resp)
}

// fullPipeline implements spec §4.10's should_plan gate: a code-context
// query only enters the planning engine if it carries a planning verb;
// otherwise the orchestrator handles it directly with RAPTOR enrichment.
func (r *Router) fullPipeline(ctx context.Context, input string) string {
	if !classifier.ShouldPlan(input) || r.plan == nil {
		return r.toolExecution(ctx, input, Decision{Query: input, Mode: toolregistry.ModeAsk, NeedsRAPTOR: true})
	}

	r.emitStatus(ctx, "planning")
	plan := planner.BuildPlan(ctx, input, r.contextHints(ctx), r.orch)
	return r.plan.Run(ctx, plan)
}

// contextHints fetches cached project metadata (language, framework, file
// and dependency counts) to seed the heavy model's plan prompt, per spec
// §4.10. A tool failure yields an empty hint string rather than aborting
// plan generation.
func (r *Router) contextHints(ctx context.Context) string {
	hints, ok := r.orch.ExecuteTool(ctx, r.workingDir, "project_context", map[string]any{})
	if !ok {
		return ""
	}
	return hints
}

func (r *Router) enrichWithRaptor(ctx context.Context, query string) string {
	if r.raptorEng == nil {
		return query
	}
	if !r.raptorEng.Store().IndexingComplete() {
		return query
	}
	r.emitStatus(ctx, "searching_context")
	retrieved, err := r.raptorEng.Retrieve(ctx, query, raptorContextLimit)
	if err != nil || retrieved == "" {
		return query
	}
	return "Project context:\n" + retrieved + "\n\n" + query
}

func (r *Router) scopedTools(mode toolregistry.Mode) toolregistry.PolicyInvoker {
	return toolregistry.WithMode(r.tools, mode)
}

func (r *Router) emitStatus(ctx context.Context, text string) {
	if r.bus != nil {
		r.bus.Status(ctx, text)
	}
}

func responseText(resp orchestrator.Response) string {
	switch resp.Kind {
	case orchestrator.RespImmediate, orchestrator.RespText:
		return resp.Content
	case orchestrator.RespToolResult:
		return resp.ToolResult
	case orchestrator.RespDelegated, orchestrator.RespTaskStarted:
		return fmt.Sprintf("working on it in the background (task %s): %s", resp.TaskID, resp.Description)
	case orchestrator.RespStreaming:
		return "streaming response, task " + resp.TaskID
	case orchestrator.RespNeedsConfirmation:
		return fmt.Sprintf("this requires confirmation (%s risk): %s", resp.RiskLevel, resp.Command)
	case orchestrator.RespError:
		return "Error: " + resp.ErrorText
	default:
		return resp.Content
	}
}

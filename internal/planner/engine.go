package planner

import (
	"context"
	"fmt"
	"strings"

	"neuro/internal/agentstate"
	"neuro/internal/config"
	"neuro/internal/progress"
	"neuro/internal/toolpipeline"
)

// maxDependentsForReplan bounds adaptive replanning to failures with a
// small blast radius (spec §4.10: "the failed task has ≤ 2 dependents").
const maxDependentsForReplan = 2

const maxTaskOutputChars = 3000

// ToolExecutor is the narrow surface the engine needs to run a task's
// tool, satisfied by *neuro/internal/orchestrator.Orchestrator.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, workingDir, name string, args map[string]any) (string, bool)
}

// HeavyCaller is the narrow surface the engine needs for reasoning
// prompts, replanning, and synthesis, satisfied by
// *neuro/internal/orchestrator.Orchestrator.
type HeavyCaller interface {
	CallHeavyModelDirect(ctx context.Context, prompt string) (string, error)
}

// Engine drives a Plan's execution loop to completion (spec §4.10).
type Engine struct {
	tools      ToolExecutor
	heavy      HeavyCaller
	bus        *progress.Bus
	workingDir string
	maxFailure int
	maxTasks   int
}

// New builds an Engine bounded by cfg's replan/task limits.
func New(tools ToolExecutor, heavy HeavyCaller, bus *progress.Bus, workingDir string, cfg config.PlannerConfig) *Engine {
	maxFailure := cfg.MaxReplans
	if maxFailure <= 0 {
		maxFailure = 3
	}
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 20
	}
	return &Engine{tools: tools, heavy: heavy, bus: bus, workingDir: workingDir, maxFailure: maxFailure, maxTasks: maxTasks}
}

// Run executes plan to completion, adaptively replanning around isolated
// failures, and returns the final synthesized answer.
func (e *Engine) Run(ctx context.Context, plan *agentstate.Plan) string {
	for hasNonTerminal(plan) {
		task := nextRunnable(plan)
		if task == nil {
			if anyFailed(plan) {
				plan.Status = agentstate.PlanFailed
			} else {
				plan.Status = agentstate.PlanCompleted
			}
			break
		}

		e.runTask(ctx, plan, task)
	}

	if !hasNonTerminal(plan) && plan.Status == agentstate.PlanRunning {
		if anyFailed(plan) {
			plan.Status = agentstate.PlanFailed
		} else {
			plan.Status = agentstate.PlanCompleted
		}
	}

	return e.synthesize(ctx, plan)
}

func (e *Engine) runTask(ctx context.Context, plan *agentstate.Plan, task *agentstate.Task) {
	task.Status = agentstate.TaskInProgress
	e.emitProgress(ctx, plan, task, "started")

	result, success := e.executeOne(ctx, plan, task)

	if success {
		task.Status = agentstate.TaskCompleted
		task.Result = result
		plan.AccumulatedContext[task.ID] = result
		e.emitProgress(ctx, plan, task, "completed")
		return
	}

	task.Status = agentstate.TaskFailed
	task.Err = result
	plan.FailureCount++
	e.emitProgress(ctx, plan, task, "failed")

	if e.tryReplan(ctx, plan, task) {
		return
	}

	cascadeSkip(plan, task.ID)
}

func (e *Engine) executeOne(ctx context.Context, plan *agentstate.Plan, task *agentstate.Task) (string, bool) {
	if task.ToolToUse != "" {
		args := task.ToolArgs
		if len(args) == 0 {
			args = toolpipeline.InferArgs(task.ToolToUse, task.Description)
		}
		return e.tools.ExecuteTool(ctx, e.workingDir, task.ToolToUse, args)
	}

	prompt := reasoningPrompt(plan, task)
	content, err := e.heavy.CallHeavyModelDirect(ctx, prompt)
	if err != nil {
		return err.Error(), false
	}
	return content, true
}

func reasoningPrompt(plan *agentstate.Plan, task *agentstate.Task) string {
	var b strings.Builder
	b.WriteString("Goal: " + plan.Goal + "\n")
	b.WriteString("Task: " + task.Description + "\n")
	if len(task.Dependencies) > 0 {
		b.WriteString("Context from prior steps:\n")
		for _, depID := range task.Dependencies {
			if result, ok := plan.AccumulatedContext[depID]; ok {
				b.WriteString(fmt.Sprintf("- %s: %s\n", depID, truncate(result, maxTaskOutputChars)))
			}
		}
	}
	b.WriteString("\nCarry out this task and report the result.")
	return b.String()
}

// tryReplan attempts an adaptive replan for a failed task, per spec
// §4.10: allowed only while total failures ≤ the configured bound and the
// failed task has ≤ maxDependentsForReplan dependents. On success, new
// tasks are inserted after the failed task and its status flips from
// Failed to Skipped (superseded by the replan, not cascaded).
func (e *Engine) tryReplan(ctx context.Context, plan *agentstate.Plan, failed *agentstate.Task) bool {
	if plan.FailureCount > e.maxFailure {
		return false
	}
	if dependentCount(plan, failed.ID) > maxDependentsForReplan {
		return false
	}
	if len(plan.Tasks) >= e.maxTasks {
		return false
	}

	prompt := replanPrompt(plan, failed)
	reply, err := e.heavy.CallHeavyModelDirect(ctx, prompt)
	if err != nil {
		return false
	}

	replacement, ok := ParseHeavyPlan(plan.Goal, reply)
	if !ok || len(replacement.Tasks) == 0 {
		return false
	}

	insertAfter(plan, failed.ID, replacement.Tasks)
	failed.Status = agentstate.TaskSkipped
	failed.Err = "superseded by replan"
	plan.ReplanCount++
	return true
}

func replanPrompt(plan *agentstate.Plan, failed *agentstate.Task) string {
	var b strings.Builder
	b.WriteString("A task in an ongoing plan failed. Propose replacement tasks to work around it.\n\n")
	b.WriteString("Goal: " + plan.Goal + "\n")
	b.WriteString("Failed task: " + failed.Description + "\n")
	b.WriteString("Error: " + failed.Err + "\n")
	b.WriteString("Already completed tasks:\n")
	for _, t := range plan.Tasks {
		if t.Status == agentstate.TaskCompleted {
			b.WriteString("- " + t.Description + "\n")
		}
	}
	b.WriteString(`
Return ONLY well-formed XML in the same <plan><task id tool depends>…</task></plan> shape used for the original plan.
`)
	return b.String()
}

func insertAfter(plan *agentstate.Plan, afterID string, newTasks []*agentstate.Task) {
	idx := -1
	for i, t := range plan.Tasks {
		if t.ID == afterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		plan.Tasks = append(plan.Tasks, newTasks...)
		return
	}
	tail := make([]*agentstate.Task, len(plan.Tasks[idx+1:]))
	copy(tail, plan.Tasks[idx+1:])
	plan.Tasks = append(plan.Tasks[:idx+1], append(newTasks, tail...)...)
}

func (e *Engine) emitProgress(ctx context.Context, plan *agentstate.Plan, task *agentstate.Task, status string) {
	if e.bus == nil {
		return
	}
	total := len(plan.Tasks)
	index := 0
	for i, t := range plan.Tasks {
		if t.ID == task.ID {
			index = i
			break
		}
	}
	e.bus.TaskProgress(ctx, index+1, total, task.Description, status)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

package planner

import (
	"context"
	"fmt"
	"strings"

	"neuro/internal/agentstate"
)

// synthesize assembles a single heavy-model call that turns the plan's
// completed task outputs into a final answer for the goal (spec §4.10's
// final synthesis step). On a heavy-model failure it falls back to a
// terse per-task checklist instead of surfacing a raw error.
func (e *Engine) synthesize(ctx context.Context, plan *agentstate.Plan) string {
	prompt := synthesisPrompt(plan)
	answer, err := e.heavy.CallHeavyModelDirect(ctx, prompt)
	if err != nil {
		return fallbackChecklist(plan)
	}
	return strings.TrimSpace(answer)
}

func synthesisPrompt(plan *agentstate.Plan) string {
	var b strings.Builder
	b.WriteString("Goal: " + plan.Goal + "\n\n")
	b.WriteString("The following steps were carried out to accomplish this goal:\n\n")
	for i, t := range plan.Tasks {
		b.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, t.Status, t.Description))
		switch t.Status {
		case agentstate.TaskCompleted:
			b.WriteString("   Result: " + truncate(t.Result, maxTaskOutputChars) + "\n")
		case agentstate.TaskFailed:
			b.WriteString("   Failed: " + t.Err + "\n")
		case agentstate.TaskSkipped:
			b.WriteString("   Skipped: " + t.Err + "\n")
		}
	}
	b.WriteString(`
Using only the results above, write a clear final answer to the goal in the
user's own language. Summarize findings in your own words; do not paste raw
file contents verbatim. If some steps failed or were skipped, say so briefly
and answer with what succeeded.
`)
	return b.String()
}

func fallbackChecklist(plan *agentstate.Plan) string {
	var b strings.Builder
	b.WriteString("Goal: " + plan.Goal + "\n")
	for i, t := range plan.Tasks {
		b.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, t.Status, t.Description))
	}
	return b.String()
}

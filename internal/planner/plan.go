// Package planner implements the Planning Engine (spec §4.10): decompose
// a complex goal into a dependency graph of executable tasks, execute
// them respecting dependencies, tolerate per-task failure without
// aborting independent branches, adaptively replan around isolated
// failures, and emit a final synthesis.
package planner

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"neuro/internal/agentstate"

	"github.com/google/uuid"
)

const maxTaskDescriptionChars = 500

// verbClass is a known goal-verb bucket with a deterministic default plan
// (spec §4.10: "analyze/read/compile/test/search/explain").
type verbClass struct {
	verbs []string
	tool  string
	label string
}

var verbClasses = []verbClass{
	{verbs: []string{"analyze", "analiza", "analizar"}, tool: "analyze_code", label: "Analyze"},
	{verbs: []string{"read", "lee", "leer"}, tool: "read_file", label: "Read"},
	{verbs: []string{"compile", "compila", "build", "construye"}, tool: "execute_shell", label: "Compile"},
	{verbs: []string{"test", "prueba", "tests", "pruebas"}, tool: "execute_shell", label: "Test"},
	{verbs: []string{"search", "busca", "buscar", "find"}, tool: "search_files", label: "Search"},
	{verbs: []string{"explain", "explica", "explicar"}, tool: "", label: "Explain"},
}

// matchVerbClass returns the verbClass whose verbs appear in goal, or nil
// if none match — signaling the caller should use the heavy-model plan
// path instead of a deterministic default.
func matchVerbClass(goal string) *verbClass {
	normalized := strings.ToLower(goal)
	for i := range verbClasses {
		vc := &verbClasses[i]
		for _, v := range vc.verbs {
			if containsWord(normalized, v) {
				return vc
			}
		}
	}
	return nil
}

func containsWord(haystack, word string) bool {
	for _, token := range strings.Fields(haystack) {
		if strings.Trim(token, ".,!?;:\"'") == word {
			return true
		}
	}
	return false
}

// DefaultPlan builds the deterministic default plan for goal: an initial
// list_directory orientation task plus a small set of dependent tasks
// keyed to goal words (spec §4.10 Plan generation).
func DefaultPlan(goal string) *agentstate.Plan {
	vc := matchVerbClass(goal)
	if vc == nil {
		vc = &verbClass{label: "Investigate"}
	}

	orient := &agentstate.Task{
		ID:          newTaskID(),
		Description: "Survey the project structure to orient before acting",
		ToolToUse:   "list_directory",
		ToolArgs:    map[string]any{"path": "."},
		Status:      agentstate.TaskPending,
	}

	action := &agentstate.Task{
		ID:           newTaskID(),
		Description:  fmt.Sprintf("%s: %s", vc.label, goal),
		ToolToUse:    vc.tool,
		Dependencies: []string{orient.ID},
		Status:       agentstate.TaskPending,
	}

	summarize := &agentstate.Task{
		ID:           newTaskID(),
		Description:  "Summarize the findings into a final answer for: " + goal,
		Dependencies: []string{action.ID},
		Status:       agentstate.TaskPending,
	}

	return &agentstate.Plan{
		ID:                 newTaskID(),
		Goal:               goal,
		Tasks:              []*agentstate.Task{orient, action, summarize},
		Status:             agentstate.PlanRunning,
		AccumulatedContext: make(map[string]string),
	}
}

func newTaskID() string { return uuid.NewString() }

// BuildPlan implements spec §4.10's plan generation: known verb classes get
// the deterministic default plan; anything else is sent to heavy for an
// XML plan, falling back to the default when the reply is missing,
// malformed, or fails validation.
func BuildPlan(ctx context.Context, goal, contextHints string, heavy HeavyCaller) *agentstate.Plan {
	if matchVerbClass(goal) != nil {
		return DefaultPlan(goal)
	}
	if heavy == nil {
		return DefaultPlan(goal)
	}

	reply, err := heavy.CallHeavyModelDirect(ctx, HeavyPlanPrompt(goal, contextHints))
	if err != nil {
		return DefaultPlan(goal)
	}

	plan, ok := ParseHeavyPlan(goal, reply)
	if !ok {
		return DefaultPlan(goal)
	}
	return plan
}

// xmlPlan is the heavy model's expected `<plan><task id tool depends>…
// </task></plan>` shape (spec §4.10), parsed the same tolerant way the
// teacher's task-analysis XML fragment parser works: locate the first
// `<plan>…</plan>` span, decode with a non-strict decoder.
type xmlPlan struct {
	XMLName xml.Name  `xml:"plan"`
	Tasks   []xmlTask `xml:"task"`
}

type xmlTask struct {
	ID          string `xml:"id,attr"`
	Tool        string `xml:"tool,attr"`
	Depends     string `xml:"depends,attr"`
	Description string `xml:",chardata"`
}

// ParseHeavyPlan parses the heavy model's raw XML-like reply into a Plan.
// Returns (nil, false) when the fragment is missing, malformed, or fails
// validation (fewer than 2 tasks, fewer than half carrying a tool, or any
// description over 500 chars) — the caller should substitute
// DefaultPlan in that case.
func ParseHeavyPlan(goal, raw string) (*agentstate.Plan, bool) {
	fragment := extractPlanFragment(raw)
	if fragment == "" {
		return nil, false
	}

	decoder := xml.NewDecoder(strings.NewReader(fragment))
	decoder.Strict = false

	var parsed xmlPlan
	if err := decoder.Decode(&parsed); err != nil {
		return nil, false
	}
	if !validHeavyPlan(parsed.Tasks) {
		return nil, false
	}

	idMap := make(map[string]string, len(parsed.Tasks))
	tasks := make([]*agentstate.Task, 0, len(parsed.Tasks))
	for _, xt := range parsed.Tasks {
		id := newTaskID()
		if xt.ID != "" {
			idMap[xt.ID] = id
		}
		tasks = append(tasks, &agentstate.Task{
			ID:          id,
			Description: strings.TrimSpace(xt.Description),
			ToolToUse:   strings.TrimSpace(xt.Tool),
			Status:      agentstate.TaskPending,
		})
	}
	for i, xt := range parsed.Tasks {
		deps := splitDependsList(xt.Depends)
		resolved := make([]string, 0, len(deps))
		for _, d := range deps {
			if id, ok := idMap[strings.TrimSpace(d)]; ok {
				resolved = append(resolved, id)
			}
		}
		tasks[i].Dependencies = resolved
	}

	return &agentstate.Plan{
		ID:                 newTaskID(),
		Goal:               goal,
		Tasks:              tasks,
		Status:             agentstate.PlanRunning,
		AccumulatedContext: make(map[string]string),
	}, true
}

func validHeavyPlan(tasks []xmlTask) bool {
	if len(tasks) < 2 {
		return false
	}
	withTool := 0
	for _, t := range tasks {
		if strings.TrimSpace(t.Tool) != "" {
			withTool++
		}
		if len(t.Description) > maxTaskDescriptionChars {
			return false
		}
	}
	return withTool*2 >= len(tasks)
}

func splitDependsList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	return parts
}

func extractPlanFragment(content string) string {
	lower := strings.ToLower(content)
	start := strings.Index(lower, "<plan")
	if start < 0 {
		return ""
	}
	end := strings.Index(lower[start:], "</plan>")
	if end < 0 {
		return ""
	}
	end = start + end + len("</plan>")
	return strings.TrimSpace(content[start:end])
}

// HeavyPlanPrompt builds the prompt asking the heavy model for a plan,
// including cached project-context hints when available.
func HeavyPlanPrompt(goal, contextHints string) string {
	var b strings.Builder
	b.WriteString("Decompose the following goal into a dependency graph of executable tasks.\n\n")
	b.WriteString("Goal: " + goal + "\n")
	if contextHints != "" {
		b.WriteString("Project context: " + contextHints + "\n")
	}
	b.WriteString(`
Return ONLY well-formed XML (no prose), in exactly this shape:
<plan>
  <task id="t1" tool="list_directory" depends="">Survey the project layout</task>
  <task id="t2" tool="read_file" depends="t1">Read the relevant source file</task>
</plan>

Rules:
- Emit at least 2 tasks.
- At least half the tasks must carry a "tool" attribute naming one of: read_file, write_file, list_directory, execute_shell, run_linter, search_files, analyze_code, project_context, git_status, git_diff, semantic_search. Leave "tool" empty for a pure-reasoning task.
- "depends" lists the ids of tasks that must complete first, space or comma separated, or empty for no dependency.
- Each task description must be under 500 characters.
`)
	return b.String()
}

package planner

import "neuro/internal/agentstate"

// cascadeSkip transitions every still-Pending task that transitively
// depends on failedID to Skipped, attributing the cascade in its Err
// field (spec §4.10's task state machine).
func cascadeSkip(plan *agentstate.Plan, failedID string) {
	skipped := map[string]bool{failedID: true}
	changed := true
	for changed {
		changed = false
		for _, t := range plan.Tasks {
			if t.Status != agentstate.TaskPending || skipped[t.ID] {
				continue
			}
			if dependsOnAny(t, skipped) {
				t.Status = agentstate.TaskSkipped
				t.Err = "skipped: dependency " + failedID + " failed"
				skipped[t.ID] = true
				changed = true
			}
		}
	}
}

func dependsOnAny(t *agentstate.Task, failed map[string]bool) bool {
	for _, dep := range t.Dependencies {
		if failed[dep] {
			return true
		}
	}
	return false
}

// dependentCount returns how many tasks in plan directly or transitively
// depend on taskID.
func dependentCount(plan *agentstate.Plan, taskID string) int {
	seeds := map[string]bool{taskID: true}
	count := 0
	changed := true
	for changed {
		changed = false
		for _, t := range plan.Tasks {
			if seeds[t.ID] {
				continue
			}
			if dependsOnAny(t, seeds) {
				seeds[t.ID] = true
				count++
				changed = true
			}
		}
	}
	return count
}

// nextRunnable returns the highest-priority Pending task whose
// dependencies are all Completed, or nil if none is runnable.
func nextRunnable(plan *agentstate.Plan) *agentstate.Task {
	var best *agentstate.Task
	for _, t := range plan.Tasks {
		if t.Status != agentstate.TaskPending {
			continue
		}
		if !dependenciesCompleted(plan, t) {
			continue
		}
		if best == nil || t.Priority > best.Priority {
			best = t
		}
	}
	return best
}

func dependenciesCompleted(plan *agentstate.Plan, t *agentstate.Task) bool {
	for _, depID := range t.Dependencies {
		dep := plan.TaskByID(depID)
		if dep == nil || dep.Status != agentstate.TaskCompleted {
			return false
		}
	}
	return true
}

// hasNonTerminal reports whether any task in plan is still Pending or
// InProgress.
func hasNonTerminal(plan *agentstate.Plan) bool {
	for _, t := range plan.Tasks {
		if t.Status == agentstate.TaskPending || t.Status == agentstate.TaskInProgress {
			return true
		}
	}
	return false
}

// anyFailed reports whether any task in plan ended Failed.
func anyFailed(plan *agentstate.Plan) bool {
	for _, t := range plan.Tasks {
		if t.Status == agentstate.TaskFailed {
			return true
		}
	}
	return false
}

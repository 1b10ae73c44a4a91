// Package router implements the Router Orchestrator (spec §4.9): the
// top-level entry point that runs the slash-command dispatcher first, then
// the cached/LLM classifier, then dispatches to a direct response, the
// tool pipeline under a mode-scoped registry, or the full planning
// pipeline. It also owns the RAPTOR index lifecycle.
package router

import "neuro/internal/toolregistry"

// DecisionKind is the closed set of route outcomes a classification can
// produce.
type DecisionKind int

const (
	DecisionDirectResponse DecisionKind = iota
	DecisionToolExecution
	DecisionFullPipeline
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionDirectResponse:
		return "direct_response"
	case DecisionToolExecution:
		return "tool_execution"
	case DecisionFullPipeline:
		return "full_pipeline"
	default:
		return "unknown"
	}
}

// Decision is the tagged union {DirectResponse | ToolExecution{mode,
// needs_raptor} | FullPipeline} produced by classification (spec §4.9).
type Decision struct {
	Kind        DecisionKind
	Query       string
	Confidence  float64
	Mode        toolregistry.Mode // populated for DecisionToolExecution
	NeedsRAPTOR bool
}

// safeDowngrade is the decision substituted whenever classification
// confidence falls below the configured floor (spec §8 property 9): a
// read-only tool execution with RAPTOR enrichment requested.
func safeDowngrade(query string) Decision {
	return Decision{
		Kind:        DecisionToolExecution,
		Query:       query,
		Confidence:  0,
		Mode:        toolregistry.ModeAsk,
		NeedsRAPTOR: true,
	}
}

package toolpipeline

import (
	"context"
	"encoding/json"

	"neuro/internal/llmprovider"

	"github.com/kaptinlin/jsonrepair"
)

const structuredSystemPrompt = `You decide whether to call a tool or respond directly. Reply with a single JSON object and nothing else, in exactly this shape:
{"action": "call_tool", "tool_name": "<name>", "tool_args": {...}}
or
{"action": "respond", "response_text": "<your reply>"}

Example: {"action": "call_tool", "tool_name": "read_file", "tool_args": {"path": "main.go"}}
Example: {"action": "respond", "response_text": "Here is the explanation you asked for."}`

type structuredDecision struct {
	Action       string         `json:"action"`
	ToolName     string         `json:"tool_name"`
	ToolArgs     map[string]any `json:"tool_args"`
	ResponseText string         `json:"response_text"`
}

// StructuredResult is Layer 1's outcome: either a tool Call or a direct
// response text, never both.
type StructuredResult struct {
	Call     *Call
	Response string
}

// TryStructured implements Layer 1: prompt the model for JSON-mode output
// shaped {action, tool_name, tool_args, response_text} and parse it. A
// parse failure (even after jsonrepair) returns (nil, false) so the
// pipeline can drop through to Layer 2.
func TryStructured(ctx context.Context, client llmprovider.Client, userInput string) (*StructuredResult, bool) {
	resp, err := client.Complete(ctx, llmprovider.Request{
		Messages: []llmprovider.Message{
			{Role: "system", Content: structuredSystemPrompt},
			{Role: "user", Content: userInput},
		},
		Temperature: 0.1,
		MaxTokens:   512,
		JSONMode:    true,
	})
	if err != nil {
		return nil, false
	}

	decision, ok := parseStructuredDecision(resp.Content)
	if !ok {
		return nil, false
	}

	switch decision.Action {
	case "call_tool":
		if decision.ToolName == "" {
			return nil, false
		}
		args := decision.ToolArgs
		if args == nil {
			args = map[string]any{}
		}
		return &StructuredResult{Call: &Call{Tool: decision.ToolName, Args: args}}, true
	case "respond":
		return &StructuredResult{Response: decision.ResponseText}, true
	default:
		return nil, false
	}
}

func parseStructuredDecision(raw string) (structuredDecision, bool) {
	var decision structuredDecision
	if err := json.Unmarshal([]byte(raw), &decision); err == nil {
		return decision, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return structuredDecision{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &decision); err != nil {
		return structuredDecision{}, false
	}
	return decision, true
}

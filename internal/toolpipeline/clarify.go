package toolpipeline

import (
	"context"
	"encoding/json"
	"strings"

	"neuro/internal/llmprovider"

	"github.com/kaptinlin/jsonrepair"
)

const clarifySystemPrompt = `Reply with exactly two lines and nothing else:
TOOL: <tool name>
ARGS: <a single JSON object of arguments>

If no tool applies, reply with exactly:
TOOL: none
ARGS: {}`

// TryClarify implements Layer 3, the last resort before giving up on a
// structured tool call: a strict two-line "TOOL: name" / "ARGS: {...}"
// format the earlier, more permissive layers couldn't coax out of the
// model. Returns (nil, false) when the reply doesn't parse or names no
// tool, at which point the pipeline falls back to the model's raw text.
func TryClarify(ctx context.Context, client llmprovider.Client, userInput string) (*Call, bool) {
	resp, err := client.Complete(ctx, llmprovider.Request{
		Messages: []llmprovider.Message{
			{Role: "system", Content: clarifySystemPrompt},
			{Role: "user", Content: userInput},
		},
		Temperature: 0,
		MaxTokens:   256,
	})
	if err != nil {
		return nil, false
	}
	return parseClarifyReply(resp.Content)
}

func parseClarifyReply(content string) (*Call, bool) {
	var toolName, argsLine string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TOOL:"):
			toolName = strings.TrimSpace(strings.TrimPrefix(line, "TOOL:"))
		case strings.HasPrefix(line, "ARGS:"):
			argsLine = strings.TrimSpace(strings.TrimPrefix(line, "ARGS:"))
		}
	}

	if toolName == "" || toolName == "none" {
		return nil, false
	}

	args, ok := parseArgsLine(argsLine)
	if !ok {
		return nil, false
	}
	return &Call{Tool: toolName, Args: args}, true
}

func parseArgsLine(raw string) (map[string]any, bool) {
	if raw == "" {
		return map[string]any{}, true
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, false
	}
	return args, true
}

package toolpipeline

import (
	"context"

	"neuro/internal/llmprovider"
	"neuro/internal/toolregistry"
)

// Outcome is the pipeline's result: either a tool was invoked (ToolName
// non-empty) or the model's own reply is returned verbatim.
type Outcome struct {
	ToolName string
	ToolArgs map[string]any
	Result   string
	Reply    string
	Success  bool
	Layer    int
}

// Pipeline cascades the four layers of spec §4.7 in order, stopping at
// the first one that produces a successful tool invocation or a direct
// response.
type Pipeline struct {
	client llmprovider.Client
	tools  toolregistry.PolicyInvoker
}

// New returns a Pipeline that drives client and dispatches tool calls
// through tools.
func New(client llmprovider.Client, tools toolregistry.PolicyInvoker) *Pipeline {
	return &Pipeline{client: client, tools: tools}
}

// Run attempts Layer 0 through Layer 3 in order against userInput, given
// the prior conversation history for the layers that need it (1-3).
// Returns the model's last reply verbatim if every layer fails.
func (p *Pipeline) Run(ctx context.Context, history []llmprovider.Message, userInput string) Outcome {
	if call := MatchPattern(userInput); call != nil {
		if outcome, ok := p.invoke(ctx, call, 0); ok {
			return outcome
		}
	}

	if structured, ok := TryStructured(ctx, p.client, userInput); ok {
		if structured.Call != nil {
			if outcome, invoked := p.invoke(ctx, structured.Call, 1); invoked {
				return outcome
			}
		} else {
			return Outcome{Reply: structured.Response, Success: true, Layer: 1}
		}
	}

	reply, calledTool, err := RunTagged(ctx, p.client, p.tools, history, userInput)
	if err == nil && calledTool {
		return Outcome{Reply: reply, Success: true, Layer: 2}
	}
	lastReply := reply

	if call, ok := TryClarify(ctx, p.client, userInput); ok {
		if outcome, invoked := p.invoke(ctx, call, 3); invoked {
			return outcome
		}
	}

	return Outcome{Reply: lastReply, Success: lastReply != "", Layer: -1}
}

// invoke dispatches call through the registry and reports whether it
// succeeded (no error and no textual failure marker), tagging the
// resulting Outcome with which layer produced it.
func (p *Pipeline) invoke(ctx context.Context, call *Call, layer int) (Outcome, bool) {
	result, err := p.tools.Invoke(ctx, call.Tool, call.Args)
	if err != nil {
		return Outcome{}, false
	}
	if toolregistry.IsFailureText(result) {
		return Outcome{}, false
	}
	return Outcome{
		ToolName: call.Tool,
		ToolArgs: call.Args,
		Result:   toolregistry.Truncate(result),
		Success:  true,
		Layer:    layer,
	}, true
}

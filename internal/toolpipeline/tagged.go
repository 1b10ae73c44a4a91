package toolpipeline

import (
	"context"
	"encoding/json"
	"strings"

	"neuro/internal/llmprovider"
	"neuro/internal/toolregistry"

	"github.com/kaptinlin/jsonrepair"
)

const (
	tagOpen  = "<tool_call>"
	tagClose = "</tool_call>"

	taggedSystemPrompt = `When you need to use a tool, wrap a single JSON object in ` + tagOpen + ` and ` + tagClose + ` tags, like:
` + tagOpen + `{"name": "read_file", "arguments": {"path": "main.go"}}` + tagClose + `
Only include one tool call block per reply. When you have enough information, reply normally without any tags.`

	// MaxTaggedIterations bounds how many tool-call round trips Layer 2
	// will chain before returning the model's last reply as-is (spec
	// §4.7 Layer 2).
	MaxTaggedIterations = 10
)

type taggedBlock struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// findTaggedBlock locates the first complete tag-delimited block in
// content and returns its inner JSON text plus the ok flag.
func findTaggedBlock(content string) (string, bool) {
	start := strings.Index(content, tagOpen)
	if start == -1 {
		return "", false
	}
	rest := content[start+len(tagOpen):]
	end := strings.Index(rest, tagClose)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func parseTaggedBlock(raw string) (taggedBlock, bool) {
	var block taggedBlock
	if err := json.Unmarshal([]byte(raw), &block); err == nil && block.Name != "" {
		return block, true
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return taggedBlock{}, false
	}
	if err := json.Unmarshal([]byte(repaired), &block); err != nil || block.Name == "" {
		return taggedBlock{}, false
	}
	return block, true
}

// RunTagged implements Layer 2: prompt the model to wrap tool calls in a
// delimited block, invoke each parsed call, append its result to the
// conversation, and repeat for up to MaxTaggedIterations rounds so the
// model can chain tool calls before producing its final reply (spec §4.7
// Layer 2). Returns the final reply once a round contains no tagged
// block, or after the iteration cap is reached.
func RunTagged(ctx context.Context, client llmprovider.Client, tools toolregistry.PolicyInvoker, history []llmprovider.Message, userInput string) (reply string, calledTool bool, err error) {
	messages := make([]llmprovider.Message, 0, len(history)+2)
	messages = append(messages, llmprovider.Message{Role: "system", Content: taggedSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llmprovider.Message{Role: "user", Content: userInput})

	for i := 0; i < MaxTaggedIterations; i++ {
		resp, completeErr := client.Complete(ctx, llmprovider.Request{Messages: messages, Temperature: 0.2, MaxTokens: 1024})
		if completeErr != nil {
			return "", calledTool, completeErr
		}
		reply = resp.Content

		raw, ok := findTaggedBlock(resp.Content)
		if !ok {
			break
		}
		block, ok := parseTaggedBlock(raw)
		if !ok {
			break
		}
		calledTool = true

		messages = append(messages, llmprovider.Message{Role: "assistant", Content: resp.Content})

		result, invokeErr := tools.Invoke(ctx, block.Name, block.Arguments)
		if invokeErr != nil {
			result = "Error: " + invokeErr.Error()
		}
		result = toolregistry.Truncate(result)

		messages = append(messages, llmprovider.Message{Role: "user", Content: "Tool result: " + result})
	}

	return reply, calledTool, nil
}

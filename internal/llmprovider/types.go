// Package llmprovider abstracts over the local inference backend: a single
// Client interface with an Ollama-style HTTP implementation, wrapped in a
// retry/circuit-breaker decorator so callers (the classifier, the tool
// pipeline, the orchestrator) never deal with transport concerns directly.
package llmprovider

import "context"

// Client is the provider-agnostic surface every component talks to.
type Client interface {
	// Complete sends a non-streaming completion request.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Model returns the model identifier this client is bound to.
	Model() string
}

// Request contains all parameters for a single completion.
type Request struct {
	Messages      []Message
	Tools         []ToolDefinition
	Temperature   float64
	MaxTokens     int
	TopP          float64
	StopSequences []string
	// JSONMode requests the provider constrain output to a single JSON
	// object, for the classifier's route prompt and the tool pipeline's
	// structured-call layer.
	JSONMode bool
}

// Response is the backend's reply.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption for a single request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Message is a single conversation turn.
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall
}

// ToolDefinition describes a callable tool for the provider's function/tool
// calling surface.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a provider-issued request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

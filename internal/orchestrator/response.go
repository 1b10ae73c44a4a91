// Package orchestrator implements the dual-model orchestrator of spec
// §4.8: a fast model handling simple commands and tool-driven chat, a
// heavy model delegated to in the background for code generation, code
// review, and complex reasoning, with per-task cancellation and a
// non-blocking result channel read through TryRecvResult.
package orchestrator

// ResponseKind is the closed tag set of OrchestratorResponse.
type ResponseKind int

const (
	RespImmediate ResponseKind = iota
	RespText
	RespDelegated
	RespStreaming
	RespToolResult
	RespNeedsConfirmation
	RespTaskStarted
	RespError
)

func (k ResponseKind) String() string {
	switch k {
	case RespImmediate:
		return "immediate"
	case RespText:
		return "text"
	case RespDelegated:
		return "delegated"
	case RespStreaming:
		return "streaming"
	case RespToolResult:
		return "tool_result"
	case RespNeedsConfirmation:
		return "needs_confirmation"
	case RespTaskStarted:
		return "task_started"
	case RespError:
		return "error"
	default:
		return "unknown"
	}
}

// Response is the tagged union process() returns; only the fields
// relevant to Kind are populated.
type Response struct {
	Kind ResponseKind

	// RespImmediate
	Content string
	Model   string

	// RespText reuses Content.

	// RespDelegated / RespTaskStarted
	TaskID        string
	Description   string
	EstimatedSecs int

	// RespStreaming reuses TaskID.

	// RespToolResult
	ToolName    string
	ToolResult  string
	ToolSuccess bool

	// RespNeedsConfirmation
	Command   string
	RiskLevel string

	// RespError
	ErrorText string
}

// Immediate builds a RespImmediate response.
func Immediate(content, model string) Response {
	return Response{Kind: RespImmediate, Content: content, Model: model}
}

// Text builds a RespText response.
func Text(content string) Response {
	return Response{Kind: RespText, Content: content}
}

// Delegated builds a RespDelegated response.
func Delegated(taskID, description string, estimatedSecs int) Response {
	return Response{Kind: RespDelegated, TaskID: taskID, Description: description, EstimatedSecs: estimatedSecs}
}

// ToolResultResponse builds a RespToolResult response.
func ToolResultResponse(toolName, result string, success bool) Response {
	return Response{Kind: RespToolResult, ToolName: toolName, ToolResult: result, ToolSuccess: success}
}

// ErrorResponse builds a RespError response.
func ErrorResponse(text string) Response {
	return Response{Kind: RespError, ErrorText: text}
}

// HeavyTaskResult is what a delegated background worker sends on the
// orchestrator's result channel.
type HeavyTaskResult struct {
	TaskID  string
	Content string
	Success bool
	Model   string
}

package toolregistry

import "strings"

// failurePrefixes are the textual conventions a tool result uses to signal
// failure (spec §4.2): the planning executor and the tool pipeline both
// classify results this way rather than through a structured success flag.
var failurePrefixes = []string{"Error", "No such file or directory", "Permission denied"}

// IsFailureText reports whether result should be treated as a tool
// failure by the brittle-but-specified prefix convention.
func IsFailureText(result string) bool {
	trimmed := strings.TrimSpace(result)
	for _, prefix := range failurePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

const maxResultChars = 4000

// Truncate caps an overlong tool result, matching the orchestrator's
// execute_tool contract (spec §4.8) of truncating overlong payloads before
// they reach the conversation.
func Truncate(result string) string {
	if len(result) <= maxResultChars {
		return result
	}
	return result[:maxResultChars] + "\n...[truncated]"
}

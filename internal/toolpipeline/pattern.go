// Package toolpipeline implements the four-layer cascading tool-invocation
// strategy from spec §4.7: a direct pattern match, a structured JSON-mode
// request, a tagged-block parse, and a clarification retry, each attempted
// in order until one produces a tool call or all are exhausted.
package toolpipeline

import (
	"regexp"
	"strings"
)

// Call is a parsed tool invocation.
type Call struct {
	Tool string
	Args map[string]any
}

var readVerbs = []string{"read", "lee", "leer", "show", "muestra", "cat", "open", "abre"}
var listVerbs = []string{"list", "lista", "listar", "ls", "dir"}
var searchVerbs = []string{"search", "busca", "buscar", "find", "encuentra", "grep"}

var buildVerbs = []string{"build", "compila", "compile", "construye"}
var testVerbs = []string{"test", "prueba", "tests", "pruebas"}
var checkVerbs = []string{"check", "verifica", "lint"}
var runVerbs = []string{"run", "ejecuta", "corre"}
var installVerbs = []string{"install", "instala"}

var gitVerbs = map[string]string{
	"status": "status", "estado": "status",
	"diff": "diff", "diferencias": "diff",
	"log": "log", "historial": "log",
	"commit": "commit",
	"push":   "push",
	"pull":   "pull",
}

var sourceExtensionPattern = regexp.MustCompile(`\b[\w./-]+\.(go|py|js|jsx|ts|tsx|java|rs|c|h|cpp|hpp|rb|md|yaml|yml|json|sh)\b`)
var locativePattern = regexp.MustCompile(`(?:\bin\b|\bfrom\b|\ben\b|\bde\b)\s+([\w./-]+)`)
var directoryLikePattern = regexp.MustCompile(`\b([\w-]+/[\w./-]*|\.{1,2}/[\w./-]*)\b`)

// MatchPattern implements Layer 0: bilingual surface-cue pattern matching
// against a closed set of tool shapes (spec §4.7 Layer 0). It returns nil
// when no pattern matches.
func MatchPattern(input string) *Call {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return nil
	}

	if containsAnyWord(normalized, readVerbs) {
		if path := extractPath(normalized); path != "" {
			return &Call{Tool: "read_file", Args: map[string]any{"path": path}}
		}
	}

	if containsAnyWord(normalized, listVerbs) {
		path := extractPath(normalized)
		if path == "" {
			path = "."
		}
		return &Call{Tool: "list_directory", Args: map[string]any{"path": path}}
	}

	if cmd := matchBuildCommand(normalized); cmd != "" {
		return &Call{Tool: "execute_shell", Args: map[string]any{"command": cmd}}
	}

	if cmd := matchGitCommand(normalized); cmd != "" {
		return &Call{Tool: "execute_shell", Args: map[string]any{"command": cmd}}
	}

	if containsAnyWord(normalized, searchVerbs) {
		pattern := remainingWords(normalized, searchVerbs)
		if pattern != "" {
			return &Call{Tool: "search_files", Args: map[string]any{"pattern": pattern}}
		}
	}

	return nil
}

// InferArgs builds tool arguments for a known tool name from a free-text
// description, using the same path/pattern extraction heuristics as Layer
// 0 (spec §4.10's execution loop reuses these for tasks that carry a tool
// but no explicit args).
func InferArgs(tool, description string) map[string]any {
	normalized := strings.ToLower(strings.TrimSpace(description))
	switch tool {
	case "read_file":
		if path := extractPath(normalized); path != "" {
			return map[string]any{"path": path}
		}
	case "list_directory":
		path := extractPath(normalized)
		if path == "" {
			path = "."
		}
		return map[string]any{"path": path}
	case "search_files":
		return map[string]any{"pattern": remainingWords(normalized, searchVerbs)}
	case "execute_shell":
		if cmd := matchBuildCommand(normalized); cmd != "" {
			return map[string]any{"command": cmd}
		}
		if cmd := matchGitCommand(normalized); cmd != "" {
			return map[string]any{"command": cmd}
		}
	}
	return map[string]any{}
}

func matchBuildCommand(normalized string) string {
	switch {
	case containsAnyWord(normalized, buildVerbs) && strings.Contains(normalized, "cargo"):
		return "cargo build"
	case containsAnyWord(normalized, testVerbs) && strings.Contains(normalized, "cargo"):
		return "cargo test"
	case containsAnyWord(normalized, checkVerbs) && strings.Contains(normalized, "cargo"):
		return "cargo check"
	case containsAnyWord(normalized, runVerbs) && strings.Contains(normalized, "cargo"):
		return "cargo run"
	case containsAnyWord(normalized, installVerbs) && strings.Contains(normalized, "npm"):
		return "npm install"
	case containsAnyWord(normalized, runVerbs) && strings.Contains(normalized, "npm"):
		return "npm run " + lastWord(normalized)
	case containsAnyWord(normalized, buildVerbs):
		return "go build ./..."
	case containsAnyWord(normalized, testVerbs):
		return "go test ./..."
	}
	return ""
}

func matchGitCommand(normalized string) string {
	if !strings.Contains(normalized, "git") {
		return ""
	}
	for word, subcommand := range gitVerbs {
		if containsWord(normalized, word) {
			return "git " + subcommand
		}
	}
	return ""
}

// extractPath pulls a filesystem path out of input using, in order: a
// token ending in a known source extension, a locative-preposition
// pattern ("in"/"from"/"en"/"de"), or a plain directory-looking token.
func extractPath(input string) string {
	if m := sourceExtensionPattern.FindString(input); m != "" {
		return m
	}
	if m := locativePattern.FindStringSubmatch(input); len(m) > 1 {
		return m[1]
	}
	if m := directoryLikePattern.FindString(input); m != "" {
		return m
	}
	return ""
}

func containsAnyWord(haystack string, words []string) bool {
	for _, w := range words {
		if containsWord(haystack, w) {
			return true
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	if strings.Contains(word, " ") {
		return strings.Contains(haystack, word)
	}
	for _, token := range strings.Fields(haystack) {
		if strings.Trim(token, ".,!?;:\"'") == word {
			return true
		}
	}
	return false
}

func remainingWords(input string, exclude []string) string {
	fields := strings.Fields(input)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		skip := false
		for _, w := range exclude {
			if strings.Trim(f, ".,!?;:\"'") == w {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func lastWord(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

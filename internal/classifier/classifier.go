// Package classifier implements the pure-function rule layer that decides,
// without calling a model, whether a query is an unambiguous simple command
// or code-generation request, and whether a code-context query needs the
// heavier "CodeContext" treatment. Every function here is deterministic and
// holds no state — the two-tier design puts the cheap, safe-by-default
// rules ahead of the LLM classifier in §4.9.
package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// TaskKind is the closed set of fast-path task classifications.
type TaskKind int

const (
	// TaskKindNone signals classify_fast found no unambiguous match; the
	// caller should fall through to the LLM-based classifier.
	TaskKindNone TaskKind = iota
	TaskKindSimpleCommand
	TaskKindCodeGeneration
)

// FastResult is the outcome of classify_fast.
type FastResult struct {
	Kind        TaskKind
	Action      string // populated for TaskKindSimpleCommand
	Description string // populated for TaskKindCodeGeneration
	Language    string
}

// ComplexityKind distinguishes a general query from one needing code
// context.
type ComplexityKind int

const (
	ComplexityGeneral ComplexityKind = iota
	ComplexityCodeContext
)

// simpleCommandVerbs maps a bilingual (en/es) closed whitelist of
// unambiguous verbs to a canonical action name.
var simpleCommandVerbs = map[string]string{
	"exit": "exit", "quit": "exit", "bye": "exit", "salir": "exit", "chao": "exit",
	"help": "help", "ayuda": "help", "?": "help",
	"clear": "clear", "limpiar": "clear",
	"status": "status", "estado": "status",
	"ls": "list", "list": "list", "listar": "list", "archivos": "list",
	"history": "history", "historial": "history",
}

var generationVerbs = []string{
	"genera", "generate", "crea una función", "create a function",
	"escribe una clase", "write a class", "crea una clase", "create a class",
}

var targetEntityWords = []string{
	"función", "funcion", "function", "clase", "class", "struct", "método", "metodo", "method",
}

var arithmeticOperator = regexp.MustCompile(`[+\-*/=^%]`)
var hasDigit = regexp.MustCompile(`[0-9]`)

var codeKeywords = []string{
	"function", "función", "class", "clase", "struct", "method", "método",
	"código", "code", "file", "archivo", "bug", "error", "test", "refactor",
	"import", "package", "variable", "loop", "api", "database",
}

var planningVerbs = []string{
	"refactor", "refactoriza", "architecture", "arquitectura", "plan", "planifica",
	"optimize", "optimiza", "improve", "mejora",
}

// ClassifyFast implements spec §4.5's classify_fast: it returns a
// SimpleCommand only for a closed whitelist of unambiguous single-word
// verbs, and a CodeGeneration classification only when both an explicit
// generation verb and a target-entity word are present. Anything else
// returns TaskKindNone so the caller defers to the LLM classifier.
func ClassifyFast(input string) FastResult {
	trimmed := strings.TrimSpace(input)
	normalized := strings.ToLower(trimmed)

	if action, ok := simpleCommandVerbs[normalized]; ok {
		return FastResult{Kind: TaskKindSimpleCommand, Action: action}
	}
	// Allow a single-word command with trailing punctuation like "help!".
	if word := strings.TrimRight(normalized, "!.? "); word != normalized {
		if action, ok := simpleCommandVerbs[word]; ok {
			return FastResult{Kind: TaskKindSimpleCommand, Action: action}
		}
	}

	hasGenerationVerb := containsAny(normalized, generationVerbs)
	hasTargetEntity := containsAny(normalized, targetEntityWords)
	if hasGenerationVerb && hasTargetEntity {
		return FastResult{
			Kind:        TaskKindCodeGeneration,
			Description: trimmed,
			Language:    detectLanguageHint(normalized),
		}
	}

	return FastResult{Kind: TaskKindNone}
}

// ClassifyComplexity implements spec §4.5's classify_complexity. The bias
// is safety: anything not clearly General is CodeContext.
func ClassifyComplexity(input string) ComplexityKind {
	trimmed := strings.TrimSpace(input)
	normalized := strings.ToLower(trimmed)

	if isPureMath(normalized) {
		return ComplexityGeneral
	}
	if isShortGreeting(normalized) {
		return ComplexityGeneral
	}
	if isDefinitionalPhrase(normalized) {
		return ComplexityGeneral
	}
	return ComplexityCodeContext
}

// ShouldPlan implements the should_plan heuristic from spec §4.10: a
// code-context query only routes to the planning engine when its
// normalized text contains a planning verb.
func ShouldPlan(input string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))
	return containsAny(normalized, planningVerbs)
}

func isPureMath(normalized string) bool {
	if len(normalized) >= 50 {
		return false
	}
	if !hasDigit.MatchString(normalized) {
		return false
	}
	if !arithmeticOperator.MatchString(normalized) {
		return false
	}
	if containsAny(normalized, codeKeywords) {
		return false
	}
	return true
}

var greetings = []string{"hi", "hello", "hola", "hey", "buenas", "good morning", "good afternoon"}

func isShortGreeting(normalized string) bool {
	if len(normalized) >= 30 {
		return false
	}
	for _, g := range greetings {
		if strings.HasPrefix(normalized, g) {
			return true
		}
	}
	return false
}

var definitionalPrefixes = []string{
	"what is", "qué es", "que es", "define", "definición de", "definicion de",
	"who is", "quién es", "quien es",
}

func isDefinitionalPhrase(normalized string) bool {
	if containsAny(normalized, codeKeywords) {
		return false
	}
	for _, prefix := range definitionalPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

var languageHints = map[string]string{
	"go": "go", "golang": "go",
	"python": "python", "rust": "rust", "java": "java",
	"javascript": "javascript", "typescript": "typescript",
}

func detectLanguageHint(normalized string) string {
	for word, lang := range languageHints {
		if containsWord(normalized, word) {
			return lang
		}
	}
	return ""
}

func containsWord(s, word string) bool {
	idx := strings.Index(s, word)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !unicode.IsLetter(rune(s[idx-1]))
	afterIdx := idx + len(word)
	after := afterIdx >= len(s) || !unicode.IsLetter(rune(s[afterIdx]))
	return before && after
}

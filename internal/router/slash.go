package router

import (
	"strings"

	"neuro/internal/toolregistry"
)

// SlashAction is special metadata a slash command's result can carry to
// trigger a router-owned side effect (spec §4.9 step 1).
type SlashAction int

const (
	SlashActionNone SlashAction = iota
	SlashActionReindex
	SlashActionSetMode
)

// SlashResult is what a slash command produces: user-visible text plus an
// optional action for the router to carry out.
type SlashResult struct {
	Text   string
	Action SlashAction
	Mode   toolregistry.Mode
}

// SlashDispatcher parses and executes a slash command. The registry of
// available commands is external to the core (spec §4.9); this interface
// is the seam an embedder plugs a richer command set into.
type SlashDispatcher interface {
	// Dispatch returns (result, true) if input was a recognized slash
	// command, or (SlashResult{}, false) if input isn't one it handles.
	Dispatch(name string, args string) (SlashResult, bool)
}

// ParseSlashCommand splits a leading-"/" input into its command name and
// remaining argument text. ok is false if input doesn't start with "/".
func ParseSlashCommand(input string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	body := strings.TrimPrefix(trimmed, "/")
	fields := strings.SplitN(body, " ", 2)
	name = strings.ToLower(strings.TrimSpace(fields[0]))
	if len(fields) > 1 {
		args = strings.TrimSpace(fields[1])
	}
	return name, args, true
}

// BuiltinSlashDispatcher handles the router's own lifecycle commands
// (/reindex, /mode) and falls through to nothing else — an embedder wraps
// or replaces it to add project-specific commands.
type BuiltinSlashDispatcher struct{}

func (BuiltinSlashDispatcher) Dispatch(name, args string) (SlashResult, bool) {
	switch name {
	case "reindex":
		return SlashResult{Text: "rebuilding the semantic index", Action: SlashActionReindex}, true
	case "mode":
		mode, ok := parseModeArg(args)
		if !ok {
			return SlashResult{Text: "usage: /mode ask|build|plan"}, true
		}
		return SlashResult{Text: "mode set to " + args, Action: SlashActionSetMode, Mode: mode}, true
	default:
		return SlashResult{}, false
	}
}

func parseModeArg(args string) (toolregistry.Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "ask":
		return toolregistry.ModeAsk, true
	case "build":
		return toolregistry.ModeBuild, true
	case "plan":
		return toolregistry.ModePlan, true
	default:
		return toolregistry.ModeAsk, false
	}
}

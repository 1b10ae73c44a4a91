package toolregistry

import (
	"context"
	"fmt"
)

// Mode is the router's access mode for a given turn (spec §4.9): Ask and
// Build differ only in which tools the registry exposes.
type Mode int

const (
	ModeAsk Mode = iota
	ModeBuild
	ModePlan
)

// readOnlyTools is the tool subset exposed under ModeAsk and ModePlan —
// anything that can mutate the filesystem or run arbitrary commands is
// withheld.
var readOnlyTools = map[string]bool{
	"read_file": true, "list_directory": true, "search_files": true,
	"analyze_code": true, "project_context": true, "git_status": true,
	"git_diff": true, "semantic_search": true,
}

// PolicyInvoker is the narrow interface a mode-filtered wrapper needs.
type PolicyInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	Names() []string
}

// policyRegistry wraps a Registry, denying tools the current mode doesn't
// expose.
type policyRegistry struct {
	parent PolicyInvoker
	mode   Mode
}

// WithMode returns a registry view scoped to mode.
func WithMode(parent PolicyInvoker, mode Mode) PolicyInvoker {
	return &policyRegistry{parent: parent, mode: mode}
}

func (p *policyRegistry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	if !p.allowed(name) {
		return "", fmt.Errorf("tool denied by policy: %s is not available in %s mode", name, p.modeName())
	}
	return p.parent.Invoke(ctx, name, args)
}

func (p *policyRegistry) Names() []string {
	all := p.parent.Names()
	if p.mode == ModeBuild {
		return all
	}
	filtered := make([]string, 0, len(all))
	for _, name := range all {
		if readOnlyTools[name] {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

func (p *policyRegistry) allowed(name string) bool {
	if p.mode == ModeBuild {
		return true
	}
	return readOnlyTools[name]
}

func (p *policyRegistry) modeName() string {
	switch p.mode {
	case ModeAsk:
		return "ask"
	case ModeBuild:
		return "build"
	case ModePlan:
		return "plan"
	default:
		return "unknown"
	}
}

// Package toolregistry implements the tool contract from spec §4.2:
// invoke(name, args) -> string, against a small closed set of tool names
// the routing/pipeline pattern-matchers can target. Tools are opaque to the
// core beyond this shape; the leaf implementations of read_file,
// execute_shell, and so on are an out-of-scope collaborator concern — this
// package only registers, looks up, and dispatches to whatever executors
// the host process wires in.
package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Executor is the shape every tool must satisfy.
type Executor interface {
	// Invoke runs the tool with args and returns a human-readable result.
	// Failure is signaled textually: a result beginning with "Error",
	// "No such file or directory", or "Permission denied" is a failure.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, args map[string]any) (string, error)

func (f ExecutorFunc) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return f(ctx, args)
}

// KnownToolNames is the closed set of tool names the routing layer and the
// tool invocation pipeline's pattern matchers recognize by name (spec
// §4.2). A registry may register additional names beyond this set; they
// simply won't be targeted by the pattern-match layer.
var KnownToolNames = []string{
	"read_file", "write_file", "list_directory", "execute_shell",
	"run_linter", "search_files", "analyze_code", "project_context",
	"git_status", "git_diff", "semantic_search",
}

// Registry holds named tool executors behind a single read-write mutex.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds or replaces the executor for name.
func (r *Registry) Register(name string, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = executor
}

// Get returns the executor for name, or an error if unregistered.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return executor, nil
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke looks up name and runs it with args.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	executor, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return executor.Invoke(ctx, args)
}

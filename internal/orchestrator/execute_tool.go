package orchestrator

import (
	"context"
	"path/filepath"

	"neuro/internal/toolregistry"
)

// ExecuteTool implements execute_tool(name, args) (spec §4.8): resolves a
// relative "path" argument against workingDir, dispatches to the
// registry, and returns a human-readable result that already carries
// success/failure markers and is truncated to a safe length.
func (o *Orchestrator) ExecuteTool(ctx context.Context, workingDir, name string, args map[string]any) (string, bool) {
	resolved := resolveRelativePath(workingDir, args)
	result, err := o.tools.Invoke(ctx, name, resolved)
	if err != nil {
		return "Error: " + err.Error(), false
	}
	truncated := toolregistry.Truncate(result)
	return truncated, !toolregistry.IsFailureText(truncated)
}

// resolveRelativePath returns a copy of args with a relative "path" entry
// resolved against workingDir, leaving absolute paths and every other key
// untouched.
func resolveRelativePath(workingDir string, args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	path, ok := args["path"].(string)
	if !ok || path == "" || filepath.IsAbs(path) || workingDir == "" {
		return args
	}

	resolved := make(map[string]any, len(args))
	for k, v := range args {
		resolved[k] = v
	}
	resolved["path"] = filepath.Join(workingDir, path)
	return resolved
}

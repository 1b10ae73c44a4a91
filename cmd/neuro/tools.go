package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"neuro/internal/toolregistry"
)

// registerLeafTools wires concrete filesystem/shell/git implementations
// for the closed tool-name set the router and tool pipeline pattern-match
// against (spec §4.2); the registry itself stays agnostic of how any of
// these actually run.
func registerLeafTools(registry *toolregistry.Registry, workingDir string) {
	registry.Register("read_file", toolregistry.ExecutorFunc(readFileTool))
	registry.Register("write_file", toolregistry.ExecutorFunc(writeFileTool))
	registry.Register("list_directory", toolregistry.ExecutorFunc(listDirectoryTool))
	registry.Register("execute_shell", toolregistry.ExecutorFunc(executeShellTool))
	registry.Register("search_files", toolregistry.ExecutorFunc(searchFilesTool))
	registry.Register("git_status", toolregistry.ExecutorFunc(gitStatusTool))
	registry.Register("git_diff", toolregistry.ExecutorFunc(gitDiffTool))
	registry.Register("project_context", toolregistry.ExecutorFunc(func(ctx context.Context, args map[string]any) (string, error) {
		return projectContextTool(ctx, workingDir)
	}))
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func readFileTool(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	if path == "" {
		return "Error: missing path argument", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	return string(data), nil
}

func writeFileTool(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	content := stringArg(args, "content")
	if path == "" {
		return "Error: missing path argument", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "Error: " + err.Error(), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "Error: " + err.Error(), nil
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}

func listDirectoryTool(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	if path == "" {
		path = "."
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	var b strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&b, "%s/\n", entry.Name())
		} else {
			fmt.Fprintf(&b, "%s\n", entry.Name())
		}
	}
	return b.String(), nil
}

func executeShellTool(ctx context.Context, args map[string]any) (string, error) {
	command := stringArg(args, "command")
	if command == "" {
		return "Error: missing command argument", nil
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Sprintf("Error: %v\n%s", err, out), nil
	}
	return string(out), nil
}

func searchFilesTool(ctx context.Context, args map[string]any) (string, error) {
	pattern := stringArg(args, "pattern")
	path := stringArg(args, "path")
	if path == "" {
		path = "."
	}
	if pattern == "" {
		return "Error: missing pattern argument", nil
	}
	cmd := exec.CommandContext(ctx, "grep", "-rIln", "--", pattern, path)
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return "no matches", nil
	}
	return string(out), nil
}

func gitStatusTool(ctx context.Context, _ map[string]any) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "status", "--short").CombinedOutput()
	if err != nil {
		return "Error: " + string(out), nil
	}
	return string(out), nil
}

func gitDiffTool(ctx context.Context, args map[string]any) (string, error) {
	gitArgs := []string{"diff"}
	if path := stringArg(args, "path"); path != "" {
		gitArgs = append(gitArgs, "--", path)
	}
	out, err := exec.CommandContext(ctx, "git", gitArgs...).CombinedOutput()
	if err != nil {
		return "Error: " + string(out), nil
	}
	return string(out), nil
}

func projectContextTool(ctx context.Context, workingDir string) (string, error) {
	entries, err := os.ReadDir(workingDir)
	if err != nil {
		return "Error: " + err.Error(), nil
	}
	files, dirs := 0, 0
	hasGoMod := false
	for _, entry := range entries {
		if entry.IsDir() {
			dirs++
			continue
		}
		files++
		if entry.Name() == "go.mod" {
			hasGoMod = true
		}
	}
	language := "unknown"
	if hasGoMod {
		language = "go"
	}
	return fmt.Sprintf("language=%s files=%d dirs=%d", language, files, dirs), nil
}

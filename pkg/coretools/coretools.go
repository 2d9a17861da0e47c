// Package coretools provides the baseline filesystem, search, and shell
// tools. All file paths resolve inside a configured workspace root; attempts
// to escape it fail before any I/O happens.
package coretools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golemcli/golem/pkg/tool"
)

const defaultReadLimit = 200000

// Options configures core tool construction.
type Options struct {
	// WorkspaceRoot bounds every file path. Required.
	WorkspaceRoot string
	// ShellTimeout bounds run_shell commands. Defaults to 10 seconds.
	ShellTimeout time.Duration
}

// Tools returns the core tool specs for the given options.
func Tools(opts Options) ([]tool.Spec, error) {
	if strings.TrimSpace(opts.WorkspaceRoot) == "" {
		return nil, errors.New("workspace root is required")
	}
	root := filepath.Clean(opts.WorkspaceRoot)
	if opts.ShellTimeout <= 0 {
		opts.ShellTimeout = 10 * time.Second
	}

	return []tool.Spec{
		listFilesTool(root),
		readFileTool(root),
		writeFileTool(root),
		searchFilesTool(root),
		runShellTool(root, opts.ShellTimeout),
		currentTimeTool(),
	}, nil
}

// Register builds the core tools and registers them all.
func Register(registry *tool.Registry, opts Options) error {
	specs, err := Tools(opts)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", spec.Name, err)
		}
	}
	return nil
}

func listFilesTool(root string) tool.Spec {
	return tool.Spec{
		Name:        "list_files",
		Description: "List files in a directory",
		Category:    tool.CategoryRetrieval,
		Params: []tool.Param{
			{Name: "path", Type: "string", Description: "The directory path to list files from", Default: "."},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			path := stringArg(args, "path", ".")
			target, err := ResolvePath(root, path)
			if err != nil {
				return nil, err
			}

			entries, err := os.ReadDir(target)
			if err != nil {
				return nil, fmt.Errorf("failed to list files: %w", err)
			}

			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			return strings.Join(names, "\n"), nil
		},
	}
}

func readFileTool(root string) tool.Spec {
	return tool.Spec{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Category:    tool.CategoryRetrieval,
		Params: []tool.Param{
			{Name: "path", Type: "string", Description: "The file path to read", Required: true},
			{Name: "max_bytes", Type: "integer", Description: "Maximum bytes to read", Default: defaultReadLimit},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			target, err := ResolvePath(root, stringArg(args, "path", ""))
			if err != nil {
				return nil, err
			}

			limit := intArg(args, "max_bytes", defaultReadLimit)
			data, truncated, err := readWithLimit(target, int64(limit))
			if err != nil {
				return nil, fmt.Errorf("failed to read file: %w", err)
			}

			return map[string]interface{}{
				"content":   string(data),
				"bytes":     len(data),
				"truncated": truncated,
			}, nil
		},
	}
}

func writeFileTool(root string) tool.Spec {
	return tool.Spec{
		Name:        "write_file",
		Description: "Write content to a file",
		Category:    tool.CategoryStorage,
		Params: []tool.Param{
			{Name: "path", Type: "string", Description: "The file path to write to", Required: true},
			{Name: "content", Type: "string", Description: "The content to write to the file", Required: true},
			{Name: "append", Type: "boolean", Description: "Append instead of overwrite"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			path := stringArg(args, "path", "")
			target, err := ResolvePath(root, path)
			if err != nil {
				return nil, err
			}
			content := stringArg(args, "content", "")
			appendMode, _ := args["append"].(bool)

			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, fmt.Errorf("failed to create parent directory: %w", err)
			}

			flag := os.O_CREATE | os.O_WRONLY
			if appendMode {
				flag |= os.O_APPEND
			} else {
				flag |= os.O_TRUNC
			}
			file, err := os.OpenFile(target, flag, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open file: %w", err)
			}
			defer file.Close()
			if _, err := file.WriteString(content); err != nil {
				return nil, fmt.Errorf("failed to write file: %w", err)
			}

			return fmt.Sprintf("Wrote %d bytes to %s successfully.", len(content), path), nil
		},
	}
}

func searchFilesTool(root string) tool.Spec {
	return tool.Spec{
		Name:        "search_files",
		Description: "Search for a keyword in all files under the workspace",
		Category:    tool.CategorySearch,
		Params: []tool.Param{
			{Name: "keyword", Type: "string", Description: "The keyword to search for", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			keyword := stringArg(args, "keyword", "")
			if keyword == "" {
				return nil, errors.New("keyword is required")
			}

			matches, err := Search(ctx, root, keyword)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				return fmt.Sprintf("No matches found for %q.", keyword), nil
			}
			return strings.Join(matches, "\n"), nil
		},
	}
}

func runShellTool(root string, timeout time.Duration) tool.Spec {
	return tool.Spec{
		Name:        "run_shell",
		Description: "Run a shell command in the workspace and return its output",
		Category:    tool.CategoryShell,
		Params: []tool.Param{
			{Name: "command", Type: "string", Description: "The shell command to execute", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			command := strings.TrimSpace(stringArg(args, "command", ""))
			if command == "" {
				return nil, errors.New("command is required")
			}

			cmdCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
			cmd.Dir = root

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			if cmdCtx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("command timed out after %v", timeout)
			}

			exitCode := 0
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					exitCode = exitErr.ExitCode()
				} else {
					return nil, fmt.Errorf("failed to run command: %w", err)
				}
			}

			return map[string]interface{}{
				"stdout":    strings.TrimRight(stdout.String(), "\n"),
				"stderr":    strings.TrimRight(stderr.String(), "\n"),
				"exit_code": exitCode,
			}, nil
		},
	}
}

func currentTimeTool() tool.Spec {
	return tool.Spec{
		Name:        "get_current_time",
		Description: "Get the current date and time",
		Category:    tool.CategoryUtility,
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return time.Now().Format(time.RFC3339), nil
		},
	}
}

// ResolvePath joins path with the workspace root and rejects results that
// escape it.
func ResolvePath(root, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.Contains(path, "://") {
		return "", errors.New("path must be a local file")
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return candidate, nil
}

// Search walks the workspace and returns path:line:text matches for keyword.
// Unreadable files are skipped.
func Search(ctx context.Context, root, keyword string) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if strings.Contains(line, keyword) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, lineNum, strings.TrimSpace(line)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func readWithLimit(path string, limit int64) ([]byte, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	if limit <= 0 {
		limit = defaultReadLimit
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, file, limit); err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}

	truncated := false
	extra := make([]byte, 1)
	if _, err := file.Read(extra); err == nil {
		truncated = true
	}
	return buf.Bytes(), truncated, nil
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}

// Package workflows provides combined tools that chain retrieval, generation,
// storage, and communication into one call, so a single tool invocation can
// complete a multi-step task the model would otherwise orchestrate itself.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golemcli/golem/pkg/agent"
	"github.com/golemcli/golem/pkg/coretools"
	"github.com/golemcli/golem/pkg/gentools"
	"github.com/golemcli/golem/pkg/mailtools"
	"github.com/golemcli/golem/pkg/tool"
)

// Options wires the collaborators a workflow needs.
type Options struct {
	WorkspaceRoot string
	Client        agent.ModelClient
	Mailer        *mailtools.Mailer
}

// Tools returns the combined tool specs.
func Tools(opts Options) ([]tool.Spec, error) {
	if strings.TrimSpace(opts.WorkspaceRoot) == "" {
		return nil, errors.New("workspace root is required")
	}
	if opts.Client == nil {
		return nil, errors.New("model client is required")
	}
	if opts.Mailer == nil {
		return nil, errors.New("mailer is required")
	}
	root := filepath.Clean(opts.WorkspaceRoot)

	return []tool.Spec{
		readAndSummarizeTool(root, opts.Client),
		generateAndSaveTodoTool(root, opts.Client),
		searchAndSaveTool(root),
		generateAndEmailTool(opts.Client, opts.Mailer),
	}, nil
}

// Register builds the combined tools and registers them all.
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

func readAndSummarizeTool(root string, client agent.ModelClient) tool.Spec {
	return tool.Spec{
		Name:        "read_and_summarize",
		Description: "Read a file and generate a summary, saving it to another file",
		Category:    tool.CategoryCombined,
		Params: []tool.Param{
			{Name: "input_file", Type: "string", Description: "The file to read and summarize", Required: true},
			{Name: "output_file", Type: "string", Description: "The file to save the summary to", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			inputFile, _ := args["input_file"].(string)
			outputFile, _ := args["output_file"].(string)

			inputPath, err := coretools.ResolvePath(root, inputFile)
			if err != nil {
				return nil, err
			}
			outputPath, err := coretools.ResolvePath(root, outputFile)
			if err != nil {
				return nil, err
			}

			content, err := os.ReadFile(inputPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", inputFile, err)
			}

			prompt := fmt.Sprintf("Please provide a concise summary of the following content:\n\n%s", content)
			summary, err := gentools.Generate(ctx, client, prompt, "You are a helpful assistant that creates concise summaries.")
			if err != nil {
				return nil, err
			}

			output := fmt.Sprintf("Summary of %s:\n\n%s", inputFile, summary)
			if err := writeWorkspaceFile(outputPath, output); err != nil {
				return nil, err
			}

			return fmt.Sprintf("Read %s, generated summary, and saved to %s successfully.", inputFile, outputFile), nil
		},
	}
}

func generateAndSaveTodoTool(root string, client agent.ModelClient) tool.Spec {
	return tool.Spec{
		Name:        "generate_and_save_todo",
		Description: "Generate a TODO list and save it to a file in one operation",
		Category:    tool.CategoryCombined,
		Params: []tool.Param{
			{Name: "content", Type: "string", Description: "The description to generate a TODO list for", Required: true},
			{Name: "filename", Type: "string", Description: "The filename to save the TODO list to", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			content, _ := args["content"].(string)
			filename, _ := args["filename"].(string)

			outputPath, err := coretools.ResolvePath(root, filename)
			if err != nil {
				return nil, err
			}

			prompt := fmt.Sprintf("Generate a TODO list for: %s\nFormat as a numbered list.", content)
			todo, err := gentools.Generate(ctx, client, prompt, "You are a helpful assistant that generates TODO lists.")
			if err != nil {
				return nil, err
			}

			if err := writeWorkspaceFile(outputPath, todo); err != nil {
				return nil, err
			}

			return fmt.Sprintf("Generated TODO list and saved to %s successfully.\n\nContent preview:\n%s", filename, preview(todo, 200)), nil
		},
	}
}

func searchAndSaveTool(root string) tool.Spec {
	return tool.Spec{
		Name:        "search_and_save",
		Description: "Search for content in files and save the results to a file",
		Category:    tool.CategoryCombined,
		Params: []tool.Param{
			{Name: "keyword", Type: "string", Description: "The keyword to search for in files", Required: true},
			{Name: "output_file", Type: "string", Description: "The filename to save the search results to", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			keyword, _ := args["keyword"].(string)
			outputFile, _ := args["output_file"].(string)

			outputPath, err := coretools.ResolvePath(root, outputFile)
			if err != nil {
				return nil, err
			}

			matches, err := coretools.Search(ctx, root, keyword)
			if err != nil {
				return nil, err
			}

			var results string
			if len(matches) > 0 {
				results = fmt.Sprintf("Search results for %q:\n\n%s", keyword, strings.Join(matches, "\n"))
			} else {
				results = fmt.Sprintf("No matches found for %q.", keyword)
			}

			if err := writeWorkspaceFile(outputPath, results); err != nil {
				return nil, err
			}

			return fmt.Sprintf("Search completed and results saved to %s. Found %d matches.", outputFile, len(matches)), nil
		},
	}
}

func generateAndEmailTool(client agent.ModelClient, mailer *mailtools.Mailer) tool.Spec {
	return tool.Spec{
		Name:        "generate_and_email",
		Description: "Generate content based on a prompt and send it as an email",
		Category:    tool.CategoryCombined,
		Params: []tool.Param{
			{Name: "topic", Type: "string", Description: "The topic to generate content for", Required: true},
			{Name: "to", Type: "string", Description: "The recipient email address", Required: true},
			{Name: "subject", Type: "string", Description: "The email subject line", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			topic, _ := args["topic"].(string)
			to, _ := args["to"].(string)
			subject, _ := args["subject"].(string)

			prompt := fmt.Sprintf("Generate appropriate content for: %s", topic)
			content, err := gentools.Generate(ctx, client, prompt, "You are a helpful assistant that generates content for emails.")
			if err != nil {
				return nil, err
			}

			confirmation, err := mailer.Send(to, subject, content)
			if err != nil {
				return nil, err
			}

			return fmt.Sprintf("Generated content and sent email to %s.\n\n%s", to, confirmation), nil
		},
	}
}

func writeWorkspaceFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func preview(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

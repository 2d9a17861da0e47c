// Package gentools provides content generation tools backed by the model
// client itself: the agent calls back into the model with a focused prompt
// instead of reasoning inline.
package gentools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golemcli/golem/pkg/agent"
	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// Tools returns the generation tool specs bound to client.
func Tools(client agent.ModelClient) ([]tool.Spec, error) {
	if client == nil {
		return nil, errors.New("model client is required")
	}
	return []tool.Spec{
		generateTextTool(client),
		generateTodoTool(client),
	}, nil
}

// Register builds the generation tools and registers them all.
func Register(registry *tool.Registry, client agent.ModelClient) error {
	specs, err := Tools(client)
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

func generateTextTool(client agent.ModelClient) tool.Spec {
	return tool.Spec{
		Name:        "generate_text",
		Description: "Generate text content for a given prompt",
		Category:    tool.CategoryGeneration,
		Params: []tool.Param{
			{Name: "prompt", Type: "string", Description: "What to generate content about", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			prompt, _ := args["prompt"].(string)
			if strings.TrimSpace(prompt) == "" {
				return nil, errors.New("prompt is required")
			}
			return Generate(ctx, client, prompt, "You are a helpful assistant.")
		},
	}
}

func generateTodoTool(client agent.ModelClient) tool.Spec {
	return tool.Spec{
		Name:        "generate_todo",
		Description: "Generate a TODO list from a description",
		Category:    tool.CategoryGeneration,
		Params: []tool.Param{
			{Name: "content", Type: "string", Description: "The description to generate a TODO list for", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			content, _ := args["content"].(string)
			if strings.TrimSpace(content) == "" {
				return nil, errors.New("content is required")
			}
			prompt := fmt.Sprintf("Generate a TODO list for: %s\nFormat as a numbered list.", content)
			return Generate(ctx, client, prompt, "You are a helpful assistant that generates TODO lists.")
		},
	}
}

// Generate runs one prompt through the model with no tools attached and
// returns the trimmed text reply.
func Generate(ctx context.Context, client agent.ModelClient, prompt, systemMessage string) (string, error) {
	messages := []conversation.Message{
		{Role: conversation.RoleSystem, Content: systemMessage},
		{Role: conversation.RoleUser, Content: prompt},
	}
	reply, err := client.Complete(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}

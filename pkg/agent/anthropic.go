package agent

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// AnthropicClient implements ModelClient for Anthropic Claude.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropicClient creates a client for the given model.
func NewAnthropicClient(apiKey, model string, maxTokens int, temperature float64) *AnthropicClient {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *AnthropicClient) Provider() string {
	return "anthropic"
}

// Complete sends the transcript to the Messages API and maps the response
// back into a single assistant message.
func (c *AnthropicClient) Complete(ctx context.Context, messages []conversation.Message, tools []tool.Summary) (conversation.Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  anthropicMessages(messages),
		MaxTokens: int64(c.maxTokens),
	}

	// Anthropic takes the system prompt out of band.
	for _, msg := range messages {
		if msg.Role == conversation.RoleSystem {
			params.System = []anthropic.TextBlockParam{{Text: msg.Content}}
			break
		}
	}

	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	if len(tools) > 0 {
		toolParams := make([]anthropic.ToolUnionParam, 0, len(tools))
		for _, t := range tools {
			toolParam := anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema["properties"],
				},
			}
			if required, ok := t.InputSchema["required"].([]string); ok {
				toolParam.InputSchema.Required = required
			}
			toolParams = append(toolParams, anthropic.ToolUnionParam{OfTool: &toolParam})
		}
		params.Tools = toolParams
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return conversation.Message{}, &BackendError{Provider: c.Provider(), Err: err}
	}

	reply := conversation.Message{Role: conversation.RoleAssistant}
	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			reply.Content += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &args); err != nil {
				return conversation.Message{}, &MalformedResponseError{
					Provider: c.Provider(),
					Reason:   "tool input is not valid JSON: " + err.Error(),
				}
			}
			reply.ToolCalls = append(reply.ToolCalls, tool.CallRequest{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
			})
		}
	}
	return reply, nil
}

// anthropicMessages converts the transcript to Anthropic's block format.
// System messages are skipped here, they ride on the request separately.
func anthropicMessages(messages []conversation.Message) []anthropic.MessageParam {
	out := []anthropic.MessageParam{}
	for _, msg := range messages {
		switch {
		case msg.Role == conversation.RoleSystem:
			continue
		case msg.Role == conversation.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		case msg.Role == conversation.RoleAssistant && len(msg.ToolCalls) > 0:
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		case msg.Role == conversation.RoleAssistant:
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}

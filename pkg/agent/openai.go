package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// OpenAIClient implements ModelClient for OpenAI chat completions.
type OpenAIClient struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIClient creates a client for the given model.
func NewOpenAIClient(apiKey, model string, maxTokens int, temperature float64) *OpenAIClient {
	return &OpenAIClient{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *OpenAIClient) Provider() string {
	return "openai"
}

// Complete sends the transcript to the chat completions API and maps the
// first choice back into an assistant message.
func (c *OpenAIClient) Complete(ctx context.Context, messages []conversation.Message, tools []tool.Summary) (conversation.Message, error) {
	converted, err := openaiMessages(messages)
	if err != nil {
		return conversation.Message{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: converted,
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	if len(tools) > 0 {
		toolParams := make([]openai.ChatCompletionToolParam, 0, len(tools))
		for _, t := range tools {
			toolParams = append(toolParams, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.InputSchema),
				},
			})
		}
		params.Tools = toolParams
	}

	response, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return conversation.Message{}, &BackendError{Provider: c.Provider(), Err: err}
	}
	if len(response.Choices) == 0 {
		return conversation.Message{}, &MalformedResponseError{
			Provider: c.Provider(),
			Reason:   "no response choices returned",
		}
	}

	choice := response.Choices[0]
	reply := conversation.Message{
		Role:    conversation.RoleAssistant,
		Content: choice.Message.Content,
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return conversation.Message{}, &MalformedResponseError{
				Provider: c.Provider(),
				Reason:   "tool arguments are not valid JSON: " + err.Error(),
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, tool.CallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return reply, nil
}

func openaiMessages(messages []conversation.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := []openai.ChatCompletionMessageParamUnion{}
	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case conversation.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case conversation.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCall, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				argsJSON, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCall{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      call.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			assistantMsg := openai.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			out = append(out, assistantMsg.ToParam())
		case conversation.RoleTool:
			out = append(out, openai.ToolMessage(msg.ToolCallID, msg.Content))
		}
	}
	return out, nil
}

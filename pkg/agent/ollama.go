package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

// OllamaClient implements ModelClient against a local Ollama server's
// /api/chat endpoint. Ollama speaks plain JSON over HTTP, there is no SDK.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaClient creates a client for the Ollama server at baseURL.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		baseURL:    strings.TrimSuffix(strings.TrimSuffix(baseURL, "/api/chat"), "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Provider() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaFunctionCall `json:"function"`
}

type ollamaFunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ollamaChatResponse struct {
	Message *ollamaMessage `json:"message"`
}

// Complete posts the transcript to /api/chat with stream disabled and maps
// the reply. Ollama does not return tool call ids, the runner assigns them.
func (c *OllamaClient) Complete(ctx context.Context, messages []conversation.Message, tools []tool.Summary) (conversation.Message, error) {
	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: make([]ollamaMessage, 0, len(messages)),
		Stream:   false,
	}
	for _, msg := range messages {
		om := ollamaMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		for _, call := range msg.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, ollamaToolCall{
				Function: ollamaFunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		reqBody.Messages = append(reqBody.Messages, om)
	}
	for _, t := range tools {
		reqBody.Tools = append(reqBody.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return conversation.Message{}, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return conversation.Message{}, &BackendError{Provider: c.Provider(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return conversation.Message{}, &BackendError{
			Provider: c.Provider(),
			Err:      fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var data ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return conversation.Message{}, &MalformedResponseError{
			Provider: c.Provider(),
			Reason:   "response is not valid JSON: " + err.Error(),
		}
	}
	if data.Message == nil {
		return conversation.Message{}, &MalformedResponseError{
			Provider: c.Provider(),
			Reason:   "missing 'message' field",
		}
	}

	reply := conversation.Message{
		Role:    conversation.RoleAssistant,
		Content: data.Message.Content,
	}
	for _, call := range data.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, tool.CallRequest{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return reply, nil
}

// Ping reports whether the Ollama server answers on /api/tags.
func (c *OllamaClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &BackendError{Provider: c.Provider(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &BackendError{
			Provider: c.Provider(),
			Err:      fmt.Errorf("HTTP %d from /api/tags", resp.StatusCode),
		}
	}
	return nil
}

// ListModels returns the model names the server has pulled.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &BackendError{Provider: c.Provider(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{
			Provider: c.Provider(),
			Err:      fmt.Errorf("HTTP %d from /api/tags", resp.StatusCode),
		}
	}

	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &MalformedResponseError{
			Provider: c.Provider(),
			Reason:   "tags response is not valid JSON: " + err.Error(),
		}
	}

	names := make([]string, 0, len(data.Models))
	for _, m := range data.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

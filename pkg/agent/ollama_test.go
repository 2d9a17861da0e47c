package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/tool"
)

func TestNewOllamaClient(t *testing.T) {
	t.Run("should strip a trailing /api/chat from the base URL", func(t *testing.T) {
		c := NewOllamaClient("http://localhost:11434/api/chat", "llama3.1:8b", 0)
		assert.Equal(t, "http://localhost:11434", c.baseURL)
	})

	t.Run("should strip a trailing slash", func(t *testing.T) {
		c := NewOllamaClient("http://localhost:11434/", "llama3.1:8b", 0)
		assert.Equal(t, "http://localhost:11434", c.baseURL)
	})
}

func TestOllamaClient_Complete(t *testing.T) {
	t.Run("should send the transcript and map the reply", func(t *testing.T) {
		var got ollamaChatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/chat", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": "hello there",
				},
			})
		}))
		defer srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", 5*time.Second)
		reply, err := c.Complete(context.Background(), []conversation.Message{
			{Role: conversation.RoleSystem, Content: "be brief"},
			{Role: conversation.RoleUser, Content: "hi"},
		}, []tool.Summary{
			{Name: "read_file", Description: "Read a file", InputSchema: map[string]interface{}{"type": "object"}},
		})
		require.NoError(t, err)

		assert.Equal(t, conversation.RoleAssistant, reply.Role)
		assert.Equal(t, "hello there", reply.Content)
		assert.False(t, got.Stream)
		assert.Equal(t, "llama3.1:8b", got.Model)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "system", got.Messages[0].Role)
		require.Len(t, got.Tools, 1)
		assert.Equal(t, "read_file", got.Tools[0].Function.Name)
		assert.Equal(t, "function", got.Tools[0].Type)
	})

	t.Run("should map tool calls without ids", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": map[string]interface{}{
					"role": "assistant",
					"tool_calls": []map[string]interface{}{
						{"function": map[string]interface{}{
							"name":      "list_files",
							"arguments": map[string]interface{}{"directory": "."},
						}},
					},
				},
			})
		}))
		defer srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", 5*time.Second)
		reply, err := c.Complete(context.Background(), []conversation.Message{
			{Role: conversation.RoleUser, Content: "what is here"},
		}, nil)
		require.NoError(t, err)

		require.Len(t, reply.ToolCalls, 1)
		assert.Equal(t, "list_files", reply.ToolCalls[0].Name)
		assert.Empty(t, reply.ToolCalls[0].ID)
		assert.Equal(t, ".", reply.ToolCalls[0].Arguments["directory"])
	})

	t.Run("should wrap HTTP errors in BackendError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewOllamaClient(srv.URL, "missing:1b", 5*time.Second)
		_, err := c.Complete(context.Background(), []conversation.Message{
			{Role: conversation.RoleUser, Content: "hi"},
		}, nil)

		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Contains(t, backendErr.Error(), "HTTP 404")
	})

	t.Run("should wrap a refused connection in BackendError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", time.Second)
		_, err := c.Complete(context.Background(), []conversation.Message{
			{Role: conversation.RoleUser, Content: "hi"},
		}, nil)

		var backendErr *BackendError
		assert.ErrorAs(t, err, &backendErr)
	})

	t.Run("should report a non-JSON body as malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", 5*time.Second)
		_, err := c.Complete(context.Background(), []conversation.Message{
			{Role: conversation.RoleUser, Content: "hi"},
		}, nil)

		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("should report a missing message field as malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"done": true}`))
		}))
		defer srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", 5*time.Second)
		_, err := c.Complete(context.Background(), []conversation.Message{
			{Role: conversation.RoleUser, Content: "hi"},
		}, nil)

		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
		assert.Contains(t, malformed.Reason, "missing 'message' field")
	})
}

func TestOllamaClient_Ping(t *testing.T) {
	t.Run("should succeed against a healthy server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/tags", r.URL.Path)
			w.Write([]byte(`{"models": []}`))
		}))
		defer srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", 5*time.Second)
		assert.NoError(t, c.Ping(context.Background()))
	})

	t.Run("should fail against an unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		c := NewOllamaClient(srv.URL, "llama3.1:8b", time.Second)
		assert.Error(t, c.Ping(context.Background()))
	})
}

func TestOllamaClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models": [{"name": "llama3.1:8b"}, {"name": "qwen2.5:14b"}]}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.1:8b", 5*time.Second)
	names, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "qwen2.5:14b"}, names)
}

func TestNewClientFactory(t *testing.T) {
	t.Run("should build an ollama client", func(t *testing.T) {
		client, err := NewClient(ClientConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		})
		require.NoError(t, err)
		assert.Equal(t, "ollama", client.Provider())
	})

	t.Run("should require an API key for cloud providers", func(t *testing.T) {
		for _, provider := range []string{"anthropic", "openai"} {
			_, err := NewClient(ClientConfig{Provider: provider, Model: "some-model"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "API key")
		}
	})

	t.Run("should reject an unknown provider", func(t *testing.T) {
		_, err := NewClient(ClientConfig{Provider: "bard", Model: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider")
	})
}

package workflows

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/mailtools"
	"github.com/golemcli/golem/pkg/tool"
)

type fixedClient struct {
	reply string
	seen  []conversation.Message
}

func (c *fixedClient) Provider() string { return "fixed" }

func (c *fixedClient) Complete(_ context.Context, messages []conversation.Message, _ []tool.Summary) (conversation.Message, error) {
	c.seen = messages
	return conversation.Message{Role: conversation.RoleAssistant, Content: c.reply}, nil
}

func setupWorkflows(t *testing.T, root string, client *fixedClient) *tool.Dispatcher {
	mailer, err := mailtools.NewMailer(mailtools.Options{})
	require.NoError(t, err)

	registry := tool.NewRegistry()
	require.NoError(t, Register(registry, Options{
		WorkspaceRoot: root,
		Client:        client,
		Mailer:        mailer,
	}))
	return tool.NewDispatcher(registry, 5*time.Second)
}

func TestRegister_MissingDependencies(t *testing.T) {
	mailer, err := mailtools.NewMailer(mailtools.Options{})
	require.NoError(t, err)

	assert.Error(t, Register(tool.NewRegistry(), Options{Client: &fixedClient{}, Mailer: mailer}))
	assert.Error(t, Register(tool.NewRegistry(), Options{WorkspaceRoot: "/tmp", Mailer: mailer}))
	assert.Error(t, Register(tool.NewRegistry(), Options{WorkspaceRoot: "/tmp", Client: &fixedClient{}}))
}

func TestReadAndSummarize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "input.txt"), []byte("long document body"), 0644))

	client := &fixedClient{reply: "a short summary"}
	d := setupWorkflows(t, root, client)

	res := d.Dispatch(context.Background(), tool.CallRequest{
		ID:   "c1",
		Name: "read_and_summarize",
		Arguments: map[string]interface{}{
			"input_file":  "input.txt",
			"output_file": "summary.txt",
		},
	})
	require.Equal(t, tool.StatusOK, res.Status)

	data, err := os.ReadFile(filepath.Join(root, "summary.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Summary of input.txt")
	assert.Contains(t, string(data), "a short summary")

	// The model saw the document body in the prompt.
	assert.Contains(t, client.seen[1].Content, "long document body")
}

func TestReadAndSummarize_MissingInput(t *testing.T) {
	d := setupWorkflows(t, t.TempDir(), &fixedClient{reply: "x"})

	res := d.Dispatch(context.Background(), tool.CallRequest{
		ID:   "c1",
		Name: "read_and_summarize",
		Arguments: map[string]interface{}{
			"input_file":  "missing.txt",
			"output_file": "summary.txt",
		},
	})
	assert.Equal(t, tool.StatusExecutionError, res.Status)
}

func TestGenerateAndSaveTodo(t *testing.T) {
	root := t.TempDir()
	client := &fixedClient{reply: "1. Pack\n2. Travel"}
	d := setupWorkflows(t, root, client)

	res := d.Dispatch(context.Background(), tool.CallRequest{
		ID:   "c1",
		Name: "generate_and_save_todo",
		Arguments: map[string]interface{}{
			"content":  "trip to the coast",
			"filename": "todo.txt",
		},
	})
	require.Equal(t, tool.StatusOK, res.Status)
	assert.Contains(t, res.Content(), "todo.txt")

	data, err := os.ReadFile(filepath.Join(root, "todo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1. Pack\n2. Travel", string(data))
}

func TestSearchAndSave(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("the needle is here\n"), 0644))
	d := setupWorkflows(t, root, &fixedClient{reply: "x"})

	res := d.Dispatch(context.Background(), tool.CallRequest{
		ID:   "c1",
		Name: "search_and_save",
		Arguments: map[string]interface{}{
			"keyword":     "needle",
			"output_file": "results.txt",
		},
	})
	require.Equal(t, tool.StatusOK, res.Status)
	assert.Contains(t, res.Content(), "Found 1 matches")

	data, err := os.ReadFile(filepath.Join(root, "results.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "notes.txt:1: the needle is here")
}

func TestGenerateAndEmail(t *testing.T) {
	client := &fixedClient{reply: "email body text"}
	d := setupWorkflows(t, t.TempDir(), client)

	res := d.Dispatch(context.Background(), tool.CallRequest{
		ID:   "c1",
		Name: "generate_and_email",
		Arguments: map[string]interface{}{
			"topic":   "release notes",
			"to":      "team@example.com",
			"subject": "This week",
		},
	})
	require.Equal(t, tool.StatusOK, res.Status)
	assert.Contains(t, res.Content(), "team@example.com")
	assert.Contains(t, res.Content(), "[MOCK EMAIL]")
	assert.Contains(t, res.Content(), "email body text")
}

func TestWorkflowPathsStayInWorkspace(t *testing.T) {
	d := setupWorkflows(t, t.TempDir(), &fixedClient{reply: "x"})

	res := d.Dispatch(context.Background(), tool.CallRequest{
		ID:   "c1",
		Name: "generate_and_save_todo",
		Arguments: map[string]interface{}{
			"content":  "anything",
			"filename": "../escape.txt",
		},
	})
	assert.Equal(t, tool.StatusExecutionError, res.Status)
	assert.Contains(t, res.Err, "outside the workspace")
}

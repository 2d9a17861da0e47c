package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golemcli/golem/internal/config"
	"github.com/golemcli/golem/pkg/conversation"
	"github.com/golemcli/golem/pkg/session"
)

// writeTestConfig saves a config whose paths all live under a temp dir
// and returns the config file path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Tools.Workspace = dir
	cfg.Sessions.Dir = filepath.Join(dir, "sessions")
	cfg.Sessions.IndexPath = filepath.Join(dir, "sessions.db")
	cfg.Logging.File = ""
	cfg.Logging.Console = false
	cfg.Metrics.Enabled = false

	path := filepath.Join(dir, "golem.json")
	require.NoError(t, config.NewLoader(path).Save(cfg))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := GetRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}

func TestToolsCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "tools", "--config", cfgPath)
	require.NoError(t, err)

	for _, name := range []string{
		"list_files", "read_file", "write_file", "run_shell",
		"search_files", "generate_text", "generate_todo",
		"send_email", "read_and_summarize", "generate_and_email",
	} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "tools total")
}

func TestSessionsCommands(t *testing.T) {
	cfgPath := writeTestConfig(t)

	t.Run("should report when no sessions exist", func(t *testing.T) {
		out, err := runCommand(t, "sessions", "list", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "No sessions.")
	})

	// Seed a session through the store the commands use.
	loader := config.NewLoader(cfgPath)
	cfg, err := loader.Load()
	require.NoError(t, err)
	store, err := session.NewStoreWithIndex(cfg.Sessions.Dir, cfg.Sessions.IndexPath)
	require.NoError(t, err)
	require.NoError(t, store.Append("greeting", conversation.Message{
		Role:    conversation.RoleUser,
		Content: "hello golem",
	}))
	require.NoError(t, store.Close())

	t.Run("should list stored sessions", func(t *testing.T) {
		out, err := runCommand(t, "sessions", "list", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "greeting")
		assert.Contains(t, out, "1 messages")
	})

	t.Run("should show session messages", func(t *testing.T) {
		out, err := runCommand(t, "sessions", "show", "greeting", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "user")
		assert.Contains(t, out, "hello golem")
	})

	t.Run("should fail to show a missing session", func(t *testing.T) {
		_, err := runCommand(t, "sessions", "show", "nope", "--config", cfgPath)
		assert.Error(t, err)
	})

	t.Run("should delete a session", func(t *testing.T) {
		out, err := runCommand(t, "sessions", "delete", "greeting", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted session greeting")

		out, err = runCommand(t, "sessions", "list", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "No sessions.")
	})
}

func TestConfigCommands(t *testing.T) {
	t.Run("should print the effective configuration", func(t *testing.T) {
		cfgPath := writeTestConfig(t)

		out, err := runCommand(t, "config", "show", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, cfgPath)
		assert.Contains(t, out, `"provider": "ollama"`)
	})

	t.Run("should refuse to overwrite without force", func(t *testing.T) {
		cfgPath := writeTestConfig(t)

		_, err := runCommand(t, "config", "init", "--config", cfgPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("should write defaults to a new path", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "golem.json")

		out, err := runCommand(t, "config", "init", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration written")

		cfg, err := config.NewLoader(cfgPath).Load()
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.Model.Provider)
	})
}

func TestChatLoop_Commands(t *testing.T) {
	cfgPath := writeTestConfig(t)
	cfg, err := config.NewLoader(cfgPath).Load()
	require.NoError(t, err)

	store, err := session.NewStoreWithIndex(cfg.Sessions.Dir, cfg.Sessions.IndexPath)
	require.NoError(t, err)
	defer store.Close()

	state := conversation.NewState("loop-test", cfg.Agent.MaxHistory, cfg.Agent.MaxToolCalls)
	state.Append(conversation.Message{Role: conversation.RoleUser, Content: "hi"})
	state.Append(conversation.Message{Role: conversation.RoleAssistant, Content: "hello"})

	out := &bytes.Buffer{}
	loop := &chatLoop{store: store, state: state, cfg: cfg, out: out}

	t.Run("should print history", func(t *testing.T) {
		out.Reset()
		assert.False(t, loop.command("/history"))
		assert.Contains(t, out.String(), "hi")
		assert.Contains(t, out.String(), "hello")
	})

	t.Run("should print the session key", func(t *testing.T) {
		out.Reset()
		loop.command("/session")
		assert.Contains(t, out.String(), "loop-test")
	})

	t.Run("should reset the conversation", func(t *testing.T) {
		out.Reset()
		loop.command("/reset")
		assert.Contains(t, out.String(), "Conversation cleared.")
		assert.Equal(t, 0, loop.state.Len())
	})

	t.Run("should quit on /quit", func(t *testing.T) {
		assert.True(t, loop.command("/quit"))
	})

	t.Run("should reject unknown commands", func(t *testing.T) {
		out.Reset()
		assert.False(t, loop.command("/frobnicate"))
		assert.Contains(t, out.String(), "unknown command")
	})
}

package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golemcli/golem/pkg/conversation"
)

func newTestStore(t *testing.T) *Store {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleUser, Content: "hello"}))
	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleAssistant, Content: "hi there"}))

	messages, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, conversation.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "hi there", messages[1].Content)
	assert.False(t, messages[0].Timestamp.IsZero())
}

func TestStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestStore_Append_InvalidMessage(t *testing.T) {
	store := newTestStore(t)

	err := store.Append("s1", conversation.Message{Content: "no role"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "role")
}

func TestStore_KeyValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		key  string
	}{
		{"empty key", ""},
		{"path traversal", "../escape"},
		{"forward slash", "a/b"},
		{"backslash", `a\b`},
		{"null byte", "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.Create(tt.key))
			assert.Error(t, store.Append(tt.key, conversation.Message{Role: conversation.RoleUser, Content: "x"}))
			_, err := store.Load(tt.key)
			assert.Error(t, err)
		})
	}
}

func TestStore_Load_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	content := `{"role":"user","content":"valid"}
not json at all
{"role":"","content":"missing role"}
{"role":"assistant","content":"also valid"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1.jsonl"), []byte(content), 0600))

	messages, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "valid", messages[0].Content)
	assert.Equal(t, "also valid", messages[1].Content)
}

func TestStore_Repair(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	path := filepath.Join(dir, "s1.jsonl")
	content := `{"role":"user","content":"keep"}
garbage line
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	require.NoError(t, store.Repair("s1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "garbage")

	messages, err := store.Load("s1")
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestStore_Replace(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleUser, Content: "old"}))
	require.NoError(t, store.Replace("s1", []conversation.Message{
		{Role: conversation.RoleUser, Content: "new"},
	}))

	messages, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "new", messages[0].Content)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleUser, Content: "x"}))
	require.NoError(t, store.Delete("s1"))

	_, err := store.Load("s1")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	// Deleting a missing session is fine.
	assert.NoError(t, store.Delete("s1"))
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	keys, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, store.Create("alpha"))
	require.NoError(t, store.Create("beta"))

	keys, err = store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, keys)
}

func TestStore_GetInfo(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleUser, Content: "one"}))
	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleUser, Content: "two"}))

	info, err := store.GetInfo("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", info.Key)
	assert.Equal(t, 2, info.MessageCount)
	assert.Greater(t, info.Size, int64(0))
	assert.False(t, info.LastModified.IsZero())

	_, err = store.GetInfo("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestStore_RoundTripToolMessages(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append("s1", conversation.Message{
		Role:       conversation.RoleTool,
		Content:    "result text",
		ToolCallID: "call-1",
	}))

	messages, err := store.Load("s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, conversation.RoleTool, messages[0].Role)
	assert.Equal(t, "call-1", messages[0].ToolCallID)
}

func TestNewSessionKey(t *testing.T) {
	a := NewSessionKey()
	b := NewSessionKey()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.NoError(t, validateKey(a))
}

package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golemcli/golem/pkg/conversation"
)

func newTestIndex(t *testing.T) *Index {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndex_TouchAndGet(t *testing.T) {
	idx := newTestIndex(t)

	now := time.Now().Truncate(time.Second)
	require.NoError(t, idx.Touch(Info{Key: "s1", MessageCount: 3, Size: 120, LastModified: now}))

	info, err := idx.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", info.Key)
	assert.Equal(t, 3, info.MessageCount)
	assert.Equal(t, int64(120), info.Size)

	// Touch again updates in place.
	require.NoError(t, idx.Touch(Info{Key: "s1", MessageCount: 5, Size: 200, LastModified: now}))
	info, err = idx.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 5, info.MessageCount)
}

func TestIndex_Get_NotFound(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Get("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestIndex_MostRecent(t *testing.T) {
	idx := newTestIndex(t)

	base := time.Now()
	require.NoError(t, idx.Touch(Info{Key: "oldest", LastModified: base.Add(-2 * time.Hour)}))
	require.NoError(t, idx.Touch(Info{Key: "middle", LastModified: base.Add(-time.Hour)}))
	require.NoError(t, idx.Touch(Info{Key: "newest", LastModified: base}))

	infos, err := idx.MostRecent(2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "newest", infos[0].Key)
	assert.Equal(t, "middle", infos[1].Key)

	all, err := idx.MostRecent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIndex_Remove(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.Touch(Info{Key: "s1", LastModified: time.Now()}))
	require.NoError(t, idx.Remove("s1"))

	_, err := idx.Get("s1")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	// Removing a missing row is a no-op.
	assert.NoError(t, idx.Remove("s1"))
}

func TestIndex_StaleBefore(t *testing.T) {
	idx := newTestIndex(t)

	base := time.Now()
	require.NoError(t, idx.Touch(Info{Key: "stale", LastModified: base.Add(-48 * time.Hour)}))
	require.NoError(t, idx.Touch(Info{Key: "fresh", LastModified: base}))

	keys, err := idx.StaleBefore(base.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, keys)
}

func TestStoreWithIndex(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStoreWithIndex(dir, filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append("s1", conversation.Message{Role: conversation.RoleUser, Content: "hello"}))

	info, err := store.Index().Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, info.MessageCount)

	require.NoError(t, store.Delete("s1"))
	_, err = store.Index().Get("s1")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

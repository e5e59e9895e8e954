package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileRepo(t *testing.T, limit int) (*FileConversationRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatlog.json")
	return NewFileConversationRepository(path, limit), path
}

func TestFileRepoAddAndLoad(t *testing.T) {
	ctx := context.Background()
	r, _ := newFileRepo(t, 50)

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hello")))
	require.NoError(t, r.AddMessage(ctx, "s1", schema.AssistantMessage("hi there", nil)))

	history, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, schema.User, history.Messages[0].Role)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, schema.Assistant, history.Messages[1].Role)

	n, err := r.MessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFileRepoEnforcesPersistLimitFIFO(t *testing.T) {
	ctx := context.Background()
	r, _ := newFileRepo(t, 3)

	for _, content := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage(content)))
	}

	history, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 3)
	assert.Equal(t, "three", history.Messages[0].Content)
	assert.Equal(t, "five", history.Messages[2].Content)
}

func TestFileRepoCreatesEmptyLogOnFirstLoad(t *testing.T) {
	ctx := context.Background()
	r, path := newFileRepo(t, 50)

	history, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history.Messages)

	// The log file now exists on disk.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileRepoClearHistory(t *testing.T) {
	ctx := context.Background()
	r, _ := newFileRepo(t, 50)

	require.NoError(t, r.AddMessage(ctx, "s1", schema.UserMessage("hello")))
	require.NoError(t, r.ClearHistory(ctx, "s1"))

	n, err := r.MessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileRepoSkipsUnknownRoles(t *testing.T) {
	ctx := context.Background()
	r, path := newFileRepo(t, 50)

	data := `[
    {"role": "user", "content": "hello"},
    {"role": "narrator", "content": "meanwhile"},
    {"role": "assistant", "content": "hi"}
]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	history, err := r.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, "hi", history.Messages[1].Content)
}

func TestFileRepoCorruptLogSurfacesError(t *testing.T) {
	ctx := context.Background()
	r, path := newFileRepo(t, 50)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := r.LoadHistory(ctx, "s1")
	assert.Error(t, err)
}

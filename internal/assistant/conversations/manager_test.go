package conversations

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-assistant/server/internal/assistant/model"
)

// memoryRepo is a minimal in-memory ConversationRepository for tests.
type memoryRepo struct {
	turns map[string][]*schema.Message
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{turns: map[string][]*schema.Message{}}
}

func (m *memoryRepo) AddMessage(_ context.Context, sessionID string, msg *schema.Message) error {
	m.turns[sessionID] = append(m.turns[sessionID], msg)
	return nil
}

func (m *memoryRepo) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{SessionID: sessionID, Messages: m.turns[sessionID]}, nil
}

func (m *memoryRepo) ClearHistory(_ context.Context, sessionID string) error {
	delete(m.turns, sessionID)
	return nil
}

func (m *memoryRepo) MessageCount(_ context.Context, sessionID string) (int, error) {
	return len(m.turns[sessionID]), nil
}

var _ model.ConversationRepository = (*memoryRepo)(nil)

func newTestManager() (*Manager, *memoryRepo) {
	repo := newMemoryRepo()
	return NewManager(repo, model.ConversationConfig{
		ChatWindow:   4,
		SearchWindow: 2,
		PersistLimit: 50,
	}), repo
}

func seedTurns(t *testing.T, m *Manager, sessionID string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		require.NoError(t, m.SaveUserMessage(ctx, sessionID, fmt.Sprintf("q%d", i)))
		require.NoError(t, m.SaveAssistantMessage(ctx, sessionID, fmt.Sprintf("a%d", i)))
	}
}

func TestRecentChatTurnsWindow(t *testing.T) {
	m, _ := newTestManager()
	seedTurns(t, m, "s1", 5) // 10 turns persisted

	turns, err := m.RecentChatTurns(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, turns, 4)
	assert.Equal(t, "q4", turns[0].Content)
	assert.Equal(t, "a4", turns[1].Content)
	assert.Equal(t, "q5", turns[2].Content)
	assert.Equal(t, "a5", turns[3].Content)
}

func TestRecentSearchTurnsTighterWindow(t *testing.T) {
	m, _ := newTestManager()
	seedTurns(t, m, "s1", 5)

	turns, err := m.RecentSearchTurns(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, turns, 2)
	assert.Equal(t, "q5", turns[0].Content)
	assert.Equal(t, "a5", turns[1].Content)
}

func TestRecentTurnsShortHistoryReturnedWhole(t *testing.T) {
	m, _ := newTestManager()
	seedTurns(t, m, "s1", 1)

	turns, err := m.RecentChatTurns(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestRecentTurnsReturnsCopy(t *testing.T) {
	m, repo := newTestManager()
	seedTurns(t, m, "s1", 1)

	turns, err := m.RecentChatTurns(context.Background(), "s1")
	require.NoError(t, err)
	turns[0] = schema.UserMessage("mutated")

	assert.Equal(t, "q1", repo.turns["s1"][0].Content)
}

func TestReset(t *testing.T) {
	m, _ := newTestManager()
	seedTurns(t, m, "s1", 2)

	require.NoError(t, m.Reset(context.Background(), "s1"))

	turns, err := m.RecentChatTurns(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

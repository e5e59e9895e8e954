package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/nova-assistant/server/internal/assistant/model"
)

// Manager owns the context-window policy over the persisted turn log: a wide
// window for plain chat, a tight window when search evidence is attached.
type Manager struct {
	repo         model.ConversationRepository
	chatWindow   int
	searchWindow int
}

func NewManager(repo model.ConversationRepository, cfg model.ConversationConfig) *Manager {
	return &Manager{
		repo:         repo,
		chatWindow:   cfg.ChatWindow,
		searchWindow: cfg.SearchWindow,
	}
}

// SaveUserMessage appends the user's turn to the session history.
func (m *Manager) SaveUserMessage(ctx context.Context, sessionID, query string) error {
	return m.repo.AddMessage(ctx, sessionID, schema.UserMessage(query))
}

// SaveAssistantMessage appends the assistant's turn to the session history.
func (m *Manager) SaveAssistantMessage(ctx context.Context, sessionID, content string) error {
	return m.repo.AddMessage(ctx, sessionID, schema.AssistantMessage(content, nil))
}

// RecentChatTurns returns the newest turns within the chat window.
func (m *Manager) RecentChatTurns(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	return m.recent(ctx, sessionID, m.chatWindow)
}

// RecentSearchTurns returns the newest turns within the tighter
// search-composition window.
func (m *Manager) RecentSearchTurns(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	return m.recent(ctx, sessionID, m.searchWindow)
}

// Reset clears the session history (the fail-safe-to-empty-state policy).
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	return m.repo.ClearHistory(ctx, sessionID)
}

func (m *Manager) recent(ctx context.Context, sessionID string, window int) ([]*schema.Message, error) {
	history, err := m.repo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return trimTail(history.Messages, window), nil
}

// trimTail keeps the newest maxTurns messages, copying so callers can't
// mutate repository-owned slices.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}

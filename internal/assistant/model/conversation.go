package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository persists per-session conversation turns. Each
// session id owns its own history; implementations enforce the persistence
// cap on write (oldest turns dropped first).
type ConversationRepository interface {
	// AddMessage appends a message to the session's history.
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the session's persisted history.
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes all history for the session.
	ClearHistory(ctx context.Context, sessionID string) error

	// MessageCount returns the number of persisted messages for the session.
	MessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}

package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/nova-assistant/server/internal/assistant/model"
	errx "github.com/nova-assistant/server/internal/core/error"
	logx "github.com/nova-assistant/server/pkg/logger"
)

// storedTurn is the on-disk turn shape: a JSON array of {role, content}
// objects, indented for readability.
type storedTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FileConversationRepository persists the turn log as a single JSON file.
// Every write truncates to the newest `limit` entries and goes through a
// temp file + rename so a crash mid-write can't corrupt the log. The file
// backend stores one log per path and is meant for the single-session CLI;
// the session id only tags loaded histories.
type FileConversationRepository struct {
	path  string
	limit int

	mu sync.Mutex
}

func NewFileConversationRepository(path string, limit int) *FileConversationRepository {
	return &FileConversationRepository{path: path, limit: limit}
}

var _ model.ConversationRepository = (*FileConversationRepository)(nil)

func (r *FileConversationRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	if message == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	turns, err := r.load()
	if err != nil {
		return errx.WrapHistory(err)
	}

	turns = append(turns, storedTurn{Role: string(message.Role), Content: message.Content})
	if r.limit > 0 && len(turns) > r.limit {
		turns = turns[len(turns)-r.limit:]
	}

	if err := r.write(turns); err != nil {
		logx.Error().Err(err).Str("path", r.path).Msg("failed to write chat log")
		return errx.WrapHistory(err)
	}
	return nil
}

func (r *FileConversationRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns, err := r.load()
	if err != nil {
		return nil, errx.WrapHistory(err)
	}

	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch schema.RoleType(t.Role) {
		case schema.System:
			msgs = append(msgs, schema.SystemMessage(t.Content))
		case schema.User:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case schema.Assistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		default:
			logx.Warn().Str("role", t.Role).Msg("skipping turn with unknown role")
		}
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *FileConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.write([]storedTurn{}); err != nil {
		return errx.WrapHistory(err)
	}
	return nil
}

func (r *FileConversationRepository) MessageCount(ctx context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	turns, err := r.load()
	if err != nil {
		return 0, errx.WrapHistory(err)
	}
	return len(turns), nil
}

// load reads the log, creating an empty one when the file is absent.
func (r *FileConversationRepository) load() ([]storedTurn, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		if werr := r.write([]storedTurn{}); werr != nil {
			return nil, werr
		}
		return []storedTurn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat log: %w", err)
	}
	if len(data) == 0 {
		return []storedTurn{}, nil
	}

	var turns []storedTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decode chat log: %w", err)
	}
	return turns, nil
}

// write replaces the log atomically: marshal to a temp file in the same
// directory, then rename over the target.
func (r *FileConversationRepository) write(turns []storedTurn) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chat log dir: %w", err)
	}

	data, err := json.MarshalIndent(turns, "", "    ")
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".chatlog-*.json")
	if err != nil {
		return fmt.Errorf("create temp chat log: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp chat log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp chat log: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace chat log: %w", err)
	}
	return nil
}

package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/nova-assistant/server/internal/assistant/model"
	errx "github.com/nova-assistant/server/internal/core/error"
	logx "github.com/nova-assistant/server/pkg/logger"
)

// RedisConversationRepository stores each session's turn log as a Redis list
// with an optional TTL refreshed on touch. The persistence cap is enforced
// with LTRIM on every append.
type RedisConversationRepository struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	limit int
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration, limit int) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl, limit: limit}
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)

func (r *RedisConversationRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:turns", sessionID)
}

func (r *RedisConversationRepository) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	b, err := json.Marshal(storedTurn{Role: string(message.Role), Content: message.Content})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := r.sessionKey(sessionID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push turn to redis")
		return errx.WrapRedis(err)
	}
	if r.limit > 0 {
		if err := r.rdb.LTrim(ctx, key, int64(-r.limit), -1).Err(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to trim turn list")
			return errx.WrapRedis(err)
		}
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on session key")
		}
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	key := r.sessionKey(sessionID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return &model.ConversationHistory{SessionID: sessionID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var t storedTurn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		switch schema.RoleType(t.Role) {
		case schema.System:
			msgs = append(msgs, schema.SystemMessage(t.Content))
		case schema.User:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case schema.Assistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		default:
			logx.Warn().Str("role", t.Role).Int("index", i).Msg("skipping turn with unknown role")
		}
	}
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) MessageCount(ctx context.Context, sessionID string) (int, error) {
	key := r.sessionKey(sessionID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to count turns in redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

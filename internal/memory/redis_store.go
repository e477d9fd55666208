package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avvvet/foodbuddy-agent/internal/models"
)

// RedisStore keeps each session log as a Redis list of JSON records and a
// per-user set indexing the session ids.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // 0 keeps sessions forever
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	store := NewRedisStoreFromClient(redis.NewClient(opt), ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		store.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return store, nil
}

func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) logKey(userID, sessionID string) string {
	return fmt.Sprintf("sessions:%s:%s", userID, sessionID)
}

func (r *RedisStore) indexKey(userID string) string {
	return fmt.Sprintf("sessions:%s", userID)
}

// AppendMessage pushes one record onto the session log.
func (r *RedisStore) AppendMessage(ctx context.Context, msg models.ConversationMessage) error {
	if err := validatePair(msg.UserID, msg.SessionID); err != nil {
		return err
	}

	data, err := encodeRecord(msg)
	if err != nil {
		return err
	}

	logKey := r.logKey(msg.UserID, msg.SessionID)
	indexKey := r.indexKey(msg.UserID)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, logKey, data)
		pipe.SAdd(ctx, indexKey, msg.SessionID)
		if r.ttl > 0 {
			pipe.Expire(ctx, logKey, r.ttl)
			pipe.Expire(ctx, indexKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append message to Redis: %w", err)
	}
	return nil
}

// GetMessages returns the session log in append order.
func (r *RedisStore) GetMessages(ctx context.Context, userID, sessionID string) ([]models.ConversationMessage, error) {
	if err := validatePair(userID, sessionID); err != nil {
		return nil, err
	}

	items, err := r.client.LRange(ctx, r.logKey(userID, sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}

	messages := make([]models.ConversationMessage, 0, len(items))
	for i, item := range items {
		msg, err := decodeRecord([]byte(item), userID, sessionID)
		if err != nil {
			log.Printf("⚠️ Skipping unreadable record %d in session %s: %v", i, sessionID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ListSessions returns the user's session ids that still have a log.
func (r *RedisStore) ListSessions(ctx context.Context, userID string) ([]string, error) {
	if err := ValidateID(userID); err != nil {
		return nil, err
	}

	ids, err := r.client.SMembers(ctx, r.indexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(ids)

	pipe := r.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, r.logKey(userID, id))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to check sessions: %w", err)
		}
	}

	sessions := make([]string, 0, len(ids))
	for i, id := range ids {
		if checks[i].Val() > 0 {
			sessions = append(sessions, id)
		}
	}
	return sessions, nil
}

// DeleteSession removes one session log. Missing sessions are not an error.
func (r *RedisStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if err := validatePair(userID, sessionID); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.logKey(userID, sessionID))
		pipe.SRem(ctx, r.indexKey(userID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session log of the user and the index.
func (r *RedisStore) DeleteUserSessions(ctx context.Context, userID string) error {
	if err := ValidateID(userID); err != nil {
		return err
	}

	ids, err := r.client.SMembers(ctx, r.indexKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.logKey(userID, id))
	}
	keys = append(keys, r.indexKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear user sessions: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func validatePair(userID, sessionID string) error {
	if err := ValidateID(userID); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	if err := ValidateID(sessionID); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	return nil
}

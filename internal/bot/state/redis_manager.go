package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConversationTTL drops conversations of inactive users
const ConversationTTL = 24 * time.Hour

// RedisManager keeps conversations in Redis so they survive restarts
type RedisManager struct {
	client *redis.Client
}

var _ Store = (*RedisManager)(nil)

// NewRedisManager connects to Redis and checks the connection
func NewRedisManager(redisHost, redisPort string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisManagerWithClient(client), nil
}

// NewRedisManagerWithClient wraps an existing client
func NewRedisManagerWithClient(client *redis.Client) *RedisManager {
	return &RedisManager{client: client}
}

func conversationKey(userID int64) string {
	return fmt.Sprintf("user:%d:conversation", userID)
}

func (m *RedisManager) Load(ctx context.Context, userID int64) (*Conversation, error) {
	data, err := m.client.Get(ctx, conversationKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewConversation(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	c, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return c, nil
}

// Save refreshes the TTL on every write
func (m *RedisManager) Save(ctx context.Context, userID int64, c *Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := m.client.Set(ctx, conversationKey(userID), data, ConversationTTL).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func (m *RedisManager) Clear(ctx context.Context, userID int64) error {
	return m.client.Del(ctx, conversationKey(userID)).Err()
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docchat/internal/model"
)

const (
	historyKeyPrefix = "chat:history:"
	dirtyKeyPrefix   = "chat:history:dirty:"
)

// HistoryCache keeps a short-lived copy of a chat's message list in redis.
// Every append marks the chat dirty for a few seconds; while the marker
// lives the cache neither serves nor stores that chat's list.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	dirtyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, ttl, dirtyTTL time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if dirtyTTL <= 0 {
		dirtyTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl, dirtyTTL: dirtyTTL}
}

// Lookup returns the cached list. A dirty chat is reported as a miss.
func (c *HistoryCache) Lookup(ctx context.Context, chatID string) ([]model.Message, bool, error) {
	var (
		dirty  *redisv9.IntCmd
		cached *redisv9.StringCmd
	)
	_, err := c.client.Pipelined(ctx, func(p redisv9.Pipeliner) error {
		dirty = p.Exists(ctx, dirtyKeyPrefix+chatID)
		cached = p.Get(ctx, historyKeyPrefix+chatID)
		return nil
	})
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return nil, false, fmt.Errorf("redis lookup history %s: %w", chatID, err)
	}
	if dirty.Val() > 0 || errors.Is(cached.Err(), redisv9.Nil) {
		return nil, false, nil
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(cached.Val()), &messages); err != nil {
		return nil, false, fmt.Errorf("decode cached history %s: %w", chatID, err)
	}
	return messages, true, nil
}

// Fill stores messages unless the chat is dirty. The check and the write are
// one optimistic transaction, so an Invalidate that lands in between wins.
func (c *HistoryCache) Fill(ctx context.Context, chatID string, messages []model.Message) (bool, error) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return false, fmt.Errorf("encode history %s: %w", chatID, err)
	}

	stored := false
	dirtyKey := dirtyKeyPrefix + chatID
	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		n, err := tx.Exists(ctx, dirtyKey).Result()
		if err != nil || n > 0 {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redisv9.Pipeliner) error {
			p.Set(ctx, historyKeyPrefix+chatID, payload, c.ttl)
			return nil
		})
		stored = err == nil
		return err
	}, dirtyKey)
	if errors.Is(err, redisv9.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis fill history %s: %w", chatID, err)
	}
	return stored, nil
}

// Invalidate marks the chat dirty and drops its cached list atomically.
func (c *HistoryCache) Invalidate(ctx context.Context, chatID string) error {
	_, err := c.client.TxPipelined(ctx, func(p redisv9.Pipeliner) error {
		p.Set(ctx, dirtyKeyPrefix+chatID, "1", c.dirtyTTL)
		p.Del(ctx, historyKeyPrefix+chatID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history %s: %w", chatID, err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"supportchat/internal/model"
)

const DefaultHistoryTTL = 5 * time.Minute

// HistoryCache holds full chat transcripts in redis. Callers must check chat
// ownership before reading; keys are addressed by chat id only.
type HistoryCache struct {
	client     redisv9.Cmdable
	historyTTL time.Duration
}

// cachedMessage keeps the fields model.Message hides from API responses.
type cachedMessage struct {
	ID        uint      `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewHistoryCache(client redisv9.Cmdable, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = DefaultHistoryTTL
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error) {
	raw, err := c.client.Get(ctx, historyKey(chatID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var cached []cachedMessage
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	messages := make([]model.Message, 0, len(cached))
	for _, item := range cached {
		messages = append(messages, model.Message{
			ID:        item.ID,
			ChatID:    item.ChatID,
			Role:      item.Role,
			Content:   item.Content,
			CreatedAt: item.CreatedAt,
		})
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, chatID string, messages []model.Message) error {
	cached := make([]cachedMessage, 0, len(messages))
	for _, msg := range messages {
		cached = append(cached, cachedMessage{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(chatID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, chatID string) error {
	if err := c.client.Del(ctx, historyKey(chatID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func historyKey(chatID string) string {
	return "chat:history:" + chatID
}

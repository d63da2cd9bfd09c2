package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/model"
	"supportchat/internal/platform/rabbitmq"
	"supportchat/internal/repository/memory"
)

type recordingCache struct {
	sets    map[string][]model.Message
	deletes []string
	err     error
}

func (c *recordingCache) SetHistory(_ context.Context, chatID string, messages []model.Message) error {
	if c.err != nil {
		return c.err
	}
	if c.sets == nil {
		c.sets = make(map[string][]model.Message)
	}
	c.sets[chatID] = messages
	return nil
}

func (c *recordingCache) DeleteHistory(_ context.Context, chatID string) error {
	c.deletes = append(c.deletes, chatID)
	return c.err
}

func encode(t *testing.T, eventType, chatID string) []byte {
	t.Helper()
	body, err := rabbitmq.EncodeChatEvent(model.ChatEvent{Type: eventType, ChatID: chatID, UserID: 1, OccurredAt: time.Now()})
	require.NoError(t, err)
	return body
}

func seededStore(t *testing.T) *memory.ChatStore {
	t.Helper()
	store := memory.NewChatStore()
	now := time.Now()
	err := store.CreateWithTurn(context.Background(),
		&model.Chat{ID: "c1", UserID: 1, CreatedAt: now},
		&model.Message{Role: model.RoleUser, Content: "hi", CreatedAt: now},
		&model.Message{Role: model.RoleAssistant, Content: "hello", CreatedAt: now},
	)
	require.NoError(t, err)
	return store
}

func TestChatEventWorker_TurnAppendedWarmsCache(t *testing.T) {
	cache := &recordingCache{}
	w := NewChatEventWorker(nil, seededStore(t), cache, "chat.events", nil)

	require.NoError(t, w.handle(context.Background(), encode(t, model.ChatEventTurnAppended, "c1")))
	require.Len(t, cache.sets["c1"], 2)
	assert.Equal(t, "hello", cache.sets["c1"][1].Content)
}

func TestChatEventWorker_TurnForVanishedChatEvicts(t *testing.T) {
	cache := &recordingCache{}
	w := NewChatEventWorker(nil, memory.NewChatStore(), cache, "chat.events", nil)

	require.NoError(t, w.handle(context.Background(), encode(t, model.ChatEventTurnAppended, "gone")))
	assert.Empty(t, cache.sets)
	assert.Equal(t, []string{"gone"}, cache.deletes)
}

func TestChatEventWorker_DeletedEvicts(t *testing.T) {
	cache := &recordingCache{}
	w := NewChatEventWorker(nil, seededStore(t), cache, "chat.events", nil)

	require.NoError(t, w.handle(context.Background(), encode(t, model.ChatEventDeleted, "c1")))
	assert.Equal(t, []string{"c1"}, cache.deletes)
}

func TestChatEventWorker_Failures(t *testing.T) {
	w := NewChatEventWorker(nil, seededStore(t), &recordingCache{}, "chat.events", nil)
	assert.Error(t, w.handle(context.Background(), []byte("garbage")))

	boom := errors.New("redis down")
	w = NewChatEventWorker(nil, seededStore(t), &recordingCache{err: boom}, "chat.events", nil)
	assert.ErrorIs(t, w.handle(context.Background(), encode(t, model.ChatEventTurnAppended, "c1")), boom)

	assert.NoError(t, w.handle(context.Background(), encode(t, "something_else", "c1")))
}

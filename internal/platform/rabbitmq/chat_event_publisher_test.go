package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/model"
)

func TestChatEventCodec(t *testing.T) {
	event := model.ChatEvent{
		Type:       model.ChatEventTurnAppended,
		ChatID:     "8f14e45f-ceea-4e7a-9d3b-5c1a2b3c4d5e",
		UserID:     3,
		OccurredAt: time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
	}
	body, err := EncodeChatEvent(event)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"turn_appended"`)

	decoded, err := DecodeChatEvent(body)
	require.NoError(t, err)
	assert.Equal(t, event.ChatID, decoded.ChatID)
	assert.Equal(t, event.UserID, decoded.UserID)
	assert.True(t, event.OccurredAt.Equal(decoded.OccurredAt))
}

func TestDecodeChatEvent_Rejects(t *testing.T) {
	_, err := DecodeChatEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeChatEvent([]byte(`{"type":"chat_deleted"}`))
	assert.Error(t, err)
}

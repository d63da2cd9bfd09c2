package model

import "time"

const (
	ChatEventTurnAppended = "turn_appended"
	ChatEventDeleted      = "chat_deleted"
)

// ChatEvent is published after a chat mutation has been committed.
type ChatEvent struct {
	Type       string    `json:"type"`
	ChatID     string    `json:"chatId"`
	UserID     uint      `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
}

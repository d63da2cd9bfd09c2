package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

const TitleMaxRunes = 50

// Chat is a conversation owned by exactly one user. MessageCount is kept in
// step with the messages table inside the same transaction that appends a turn.
type Chat struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_chats_user_updated,priority:1" json:"-"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	MessageCount int       `gorm:"not null;default:0" json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `gorm:"index:idx_chats_user_updated,priority:2" json:"updatedAt"`
}

// ChatSummary is the list view of a chat.
type ChatSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  *Message  `json:"lastMessage"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TitleFrom derives a chat title from the message that opened it.
func TitleFrom(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if utf8.RuneCountInString(text) <= TitleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleMaxRunes]) + "..."
}

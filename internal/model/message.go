package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat transcript. Rows are only ever inserted;
// position within the chat is the insertion order (ID ascending).
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ChatID    string    `gorm:"type:char(36);not null;index" json:"-"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

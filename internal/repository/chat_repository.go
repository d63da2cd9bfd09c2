package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"supportchat/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) CreateWithTurn(ctx context.Context, chat *model.Chat, userMsg, assistantMsg *model.Message) error {
	chat.MessageCount = 2
	chat.UpdatedAt = assistantMsg.CreatedAt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("create chat failed: %w", err)
		}
		return insertTurn(tx, chat.ID, userMsg, assistantMsg)
	})
	if err != nil {
		chat.MessageCount = 0
		return err
	}
	return nil
}

func (r *ChatRepository) AppendTurn(ctx context.Context, chat *model.Chat, userMsg, assistantMsg *model.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertTurn(tx, chat.ID, userMsg, assistantMsg); err != nil {
			return err
		}
		res := tx.Model(&model.Chat{}).
			Where("id = ? AND user_id = ?", chat.ID, chat.UserID).
			Updates(map[string]interface{}{
				"message_count": gorm.Expr("message_count + ?", 2),
				"updated_at":    assistantMsg.CreatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("touch chat failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("touch chat failed: %w", gorm.ErrRecordNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	chat.MessageCount += 2
	chat.UpdatedAt = assistantMsg.CreatedAt
	return nil
}

func insertTurn(tx *gorm.DB, chatID string, userMsg, assistantMsg *model.Message) error {
	userMsg.ChatID = chatID
	assistantMsg.ChatID = chatID
	turn := []*model.Message{userMsg, assistantMsg}
	if err := tx.Create(&turn).Error; err != nil {
		return fmt.Errorf("insert turn failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) FindOwned(ctx context.Context, chatID string, userID uint) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// ListRecentMessages returns the newest limit messages in transcript order.
func (r *ChatRepository) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *ChatRepository) ListOwned(ctx context.Context, userID uint, limit int) ([]model.ChatSummary, error) {
	var chats []model.Chat
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Limit(limit).Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	if len(chats) == 0 {
		return []model.ChatSummary{}, nil
	}

	ids := make([]string, 0, len(chats))
	for _, chat := range chats {
		ids = append(ids, chat.ID)
	}
	var last []model.Message
	latestIDs := r.db.Model(&model.Message{}).Select("MAX(id)").Where("chat_id IN ?", ids).Group("chat_id")
	if err := r.db.WithContext(ctx).Where("id IN (?)", latestIDs).Find(&last).Error; err != nil {
		return nil, fmt.Errorf("list last messages failed: %w", err)
	}
	lastByChat := make(map[string]model.Message, len(last))
	for _, msg := range last {
		lastByChat[msg.ChatID] = msg
	}

	summaries := make([]model.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := model.ChatSummary{
			ID:           chat.ID,
			Title:        chat.Title,
			MessageCount: chat.MessageCount,
			CreatedAt:    chat.CreatedAt,
			UpdatedAt:    chat.UpdatedAt,
		}
		if msg, ok := lastByChat[chat.ID]; ok {
			summary.LastMessage = &msg
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *ChatRepository) DeleteOwned(ctx context.Context, chatID string, userID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", chatID, userID).Delete(&model.Chat{})
		if res.Error != nil {
			return fmt.Errorf("delete chat failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages failed: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

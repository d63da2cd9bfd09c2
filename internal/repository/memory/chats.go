package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"supportchat/internal/model"
	"supportchat/internal/repository"
)

var errChatMissing = errors.New("chat missing")

// ChatStore is the in-process transcript store. A single lock covers chats
// and messages so a turn is appended as one step.
type ChatStore struct {
	mu       sync.RWMutex
	nextID   uint
	chats    map[string]model.Chat
	messages map[string][]model.Message
}

func NewChatStore() *ChatStore {
	return &ChatStore{
		chats:    make(map[string]model.Chat),
		messages: make(map[string][]model.Message),
	}
}

func (s *ChatStore) CreateWithTurn(_ context.Context, chat *model.Chat, userMsg, assistantMsg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chats[chat.ID]; exists {
		return fmt.Errorf("create chat failed: %w", repository.ErrDuplicateKey)
	}
	chat.MessageCount = 2
	chat.UpdatedAt = assistantMsg.CreatedAt
	s.chats[chat.ID] = *chat
	s.insertTurn(chat.ID, userMsg, assistantMsg)
	return nil
}

func (s *ChatStore) AppendTurn(_ context.Context, chat *model.Chat, userMsg, assistantMsg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.chats[chat.ID]
	if !ok || stored.UserID != chat.UserID {
		return fmt.Errorf("touch chat failed: %w", errChatMissing)
	}
	s.insertTurn(chat.ID, userMsg, assistantMsg)
	stored.MessageCount += 2
	stored.UpdatedAt = assistantMsg.CreatedAt
	s.chats[chat.ID] = stored

	chat.MessageCount = stored.MessageCount
	chat.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *ChatStore) insertTurn(chatID string, userMsg, assistantMsg *model.Message) {
	for _, msg := range []*model.Message{userMsg, assistantMsg} {
		s.nextID++
		msg.ID = s.nextID
		msg.ChatID = chatID
		s.messages[chatID] = append(s.messages[chatID], *msg)
	}
}

func (s *ChatStore) FindOwned(_ context.Context, chatID string, userID uint) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[chatID]
	if !ok || chat.UserID != userID {
		return nil, nil
	}
	return &chat, nil
}

func (s *ChatStore) ListMessages(_ context.Context, chatID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Message(nil), s.messages[chatID]...), nil
}

func (s *ChatStore) ListRecentMessages(_ context.Context, chatID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[chatID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]model.Message(nil), all...), nil
}

func (s *ChatStore) ListOwned(_ context.Context, userID uint, limit int) ([]model.ChatSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.ChatSummary, 0)
	for _, chat := range s.chats {
		if chat.UserID != userID {
			continue
		}
		summary := model.ChatSummary{
			ID:           chat.ID,
			Title:        chat.Title,
			MessageCount: chat.MessageCount,
			CreatedAt:    chat.CreatedAt,
			UpdatedAt:    chat.UpdatedAt,
		}
		if msgs := s.messages[chat.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			summary.LastMessage = &last
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *ChatStore) DeleteOwned(_ context.Context, chatID string, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok || chat.UserID != userID {
		return false, nil
	}
	delete(s.chats, chatID)
	delete(s.messages, chatID)
	return true, nil
}

package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportchat/internal/ai"
	"supportchat/internal/model"
)

const (
	DefaultHistoryLimit = 10
	DefaultListLimit    = 50
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrMessageEmpty = errors.New("message is required")
)

type ChatStore interface {
	// CreateWithTurn inserts a new chat together with its first turn.
	CreateWithTurn(ctx context.Context, chat *model.Chat, userMsg, assistantMsg *model.Message) error
	// AppendTurn inserts both messages and bumps the chat in one transaction.
	AppendTurn(ctx context.Context, chat *model.Chat, userMsg, assistantMsg *model.Message) error
	FindOwned(ctx context.Context, chatID string, userID uint) (*model.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]model.Message, error)
	ListRecentMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error)
	ListOwned(ctx context.Context, userID uint, limit int) ([]model.ChatSummary, error)
	DeleteOwned(ctx context.Context, chatID string, userID uint) (bool, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, chatID string) error
}

type ChatEventPublisher interface {
	Publish(ctx context.Context, event model.ChatEvent) error
}

type ChatService struct {
	chats        ChatStore
	gateway      ai.Gateway
	historyCache HistoryCache
	publisher    ChatEventPublisher
	historyLimit int
	listLimit    int
	logger       *zap.Logger

	now   func() time.Time
	newID func() string
}

type ChatOptions struct {
	HistoryCache HistoryCache
	Publisher    ChatEventPublisher
	HistoryLimit int
	Logger       *zap.Logger
}

type SendMessageInput struct {
	UserID  uint
	ChatID  string
	Message string
}

type SendMessageResult struct {
	ChatID           string
	UserMessage      model.Message
	AssistantMessage model.Message
}

type Transcript struct {
	Chat     *model.Chat
	Messages []model.Message
}

func NewChatService(chats ChatStore, gateway ai.Gateway, opts ChatOptions) *ChatService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ChatService{
		chats:        chats,
		gateway:      gateway,
		historyCache: opts.HistoryCache,
		publisher:    opts.Publisher,
		historyLimit: opts.HistoryLimit,
		listLimit:    DefaultListLimit,
		logger:       opts.Logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// SendMessage runs one request turn: resolve or open the chat, ask the
// gateway for a reply and persist both messages together. It keeps running
// when the caller goes away so that a generated reply is not dropped.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	content := strings.TrimSpace(input.Message)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	ctx = context.WithoutCancel(ctx)

	var (
		chat   *model.Chat
		recent []model.Message
		isNew  bool
		err    error
	)
	if input.ChatID != "" {
		chat, err = s.findOwned(ctx, input.ChatID, input.UserID)
		if err != nil {
			return nil, err
		}
		recent, err = s.chats.ListRecentMessages(ctx, chat.ID, s.historyLimit)
		if err != nil {
			return nil, err
		}
	} else {
		chat = s.newChat(input.UserID, content)
		isNew = true
	}

	userMessage := model.Message{
		ChatID:    chat.ID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: s.timestamp(),
	}

	reply := s.gateway.Generate(ctx, content, toChatMessages(recent))

	assistantMessage := model.Message{
		ChatID:    chat.ID,
		Role:      model.RoleAssistant,
		Content:   reply,
		CreatedAt: s.timestamp(),
	}

	if isNew {
		err = s.chats.CreateWithTurn(ctx, chat, &userMessage, &assistantMessage)
	} else {
		err = s.chats.AppendTurn(ctx, chat, &userMessage, &assistantMessage)
	}
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, model.ChatEventTurnAppended, chat.ID, input.UserID)

	return &SendMessageResult{
		ChatID:           chat.ID,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, userID uint, chatID string) (*Transcript, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := s.findOwned(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, chat.ID); cacheErr == nil && hit {
			return &Transcript{Chat: chat, Messages: cached}, nil
		} else if cacheErr != nil {
			s.logger.Warn("read history cache failed", zap.String("chat_id", chat.ID), zap.Error(cacheErr))
		}
	}

	messages, err := s.chats.ListMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.SetHistory(ctx, chat.ID, messages); err != nil {
			s.logger.Warn("write history cache failed", zap.String("chat_id", chat.ID), zap.Error(err))
		}
	}
	return &Transcript{Chat: chat, Messages: messages}, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]model.ChatSummary, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.chats.ListOwned(ctx, userID, s.listLimit)
}

func (s *ChatService) DeleteChat(ctx context.Context, userID uint, chatID string) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	if !validChatID(chatID) {
		return ErrChatNotFound
	}
	deleted, err := s.chats.DeleteOwned(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrChatNotFound
	}
	s.afterCommit(ctx, model.ChatEventDeleted, chatID, userID)
	return nil
}

func (s *ChatService) findOwned(ctx context.Context, chatID string, userID uint) (*model.Chat, error) {
	if !validChatID(chatID) {
		return nil, ErrChatNotFound
	}
	chat, err := s.chats.FindOwned(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

func (s *ChatService) newChat(userID uint, firstMessage string) *model.Chat {
	now := s.timestamp()
	return &model.Chat{
		ID:        s.newID(),
		UserID:    userID,
		Title:     model.TitleFrom(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// afterCommit evicts the cached transcript and announces the change. Neither
// step can fail the request; the data is already committed.
func (s *ChatService) afterCommit(ctx context.Context, eventType, chatID string, userID uint) {
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, chatID); err != nil {
			s.logger.Warn("evict history cache failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		event := model.ChatEvent{
			Type:       eventType,
			ChatID:     chatID,
			UserID:     userID,
			OccurredAt: s.now(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish chat event failed", zap.String("type", eventType), zap.String("chat_id", chatID), zap.Error(err))
		}
	}
}

// timestamp is the current time at the precision the messages table keeps.
func (s *ChatService) timestamp() time.Time {
	return s.now().Truncate(time.Millisecond)
}

func validChatID(chatID string) bool {
	_, err := uuid.Parse(chatID)
	return err == nil
}

func toChatMessages(messages []model.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(messages))
	for _, item := range messages {
		out = append(out, ai.ChatMessage{Role: item.Role, Content: item.Content})
	}
	return out
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supportchat/internal/app"
	"supportchat/internal/model"
	"supportchat/internal/transport/http/middleware"
	"supportchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
	logger      *zap.Logger
}

type SendMessageRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
}

type chatDetail struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Messages  []model.Message `json:"messages"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewChatHandler(chatService *app.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, app.ErrMessageEmpty.Error())
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		UserID:  userID,
		ChatID:  req.ChatID,
		Message: req.Message,
	})
	if err != nil {
		h.writeError(c, err, "server error while sending message")
		return
	}

	response.OK(c, gin.H{
		"message":     "Message sent successfully",
		"chatId":      result.ChatID,
		"userMessage": result.UserMessage,
		"aiResponse":  result.AssistantMessage,
	})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token")
		return
	}

	transcript, err := h.chatService.GetHistory(c.Request.Context(), userID, c.Param("chatId"))
	if err != nil {
		h.writeError(c, err, "server error while fetching chat history")
		return
	}

	messages := transcript.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	response.OK(c, gin.H{
		"chat": chatDetail{
			ID:        transcript.Chat.ID,
			Title:     transcript.Chat.Title,
			Messages:  messages,
			CreatedAt: transcript.Chat.CreatedAt,
			UpdatedAt: transcript.Chat.UpdatedAt,
		},
	})
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token")
		return
	}

	chats, err := h.chatService.ListChats(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "server error while fetching chats")
		return
	}
	if chats == nil {
		chats = []model.ChatSummary{}
	}
	response.OK(c, gin.H{"chats": chats})
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token")
		return
	}

	if err := h.chatService.DeleteChat(c.Request.Context(), userID, c.Param("chatId")); err != nil {
		h.writeError(c, err, "server error while deleting chat")
		return
	}
	response.Message(c, http.StatusOK, "Chat deleted successfully")
}

func (h *ChatHandler) writeError(c *gin.Context, err error, internalMessage string) {
	switch {
	case errors.Is(err, app.ErrMessageEmpty), errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, "chat not found")
	default:
		h.logger.Error(internalMessage, zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, internalMessage)
	}
}

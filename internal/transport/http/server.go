package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsvc "supportchat/internal/app"
	"supportchat/internal/transport/http/handler"
	"supportchat/internal/transport/http/middleware"
)

type RouterDeps struct {
	GinMode     string
	Logger      *zap.Logger
	AuthService *appsvc.AuthService
	ChatService *appsvc.ChatService
	Tokens      middleware.TokenVerifier
	Health      *handler.HealthHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), middleware.Recovery(logger))

	authHandler := handler.NewAuthHandler(deps.AuthService, logger)
	chatHandler := handler.NewChatHandler(deps.ChatService, logger)
	requireAuth := middleware.AuthJWT(deps.Tokens)

	api := router.Group("/api")
	if deps.Health != nil {
		api.GET("/health", deps.Health.Ping)
		router.GET("/healthz", deps.Health.Check)
	}

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/profile", requireAuth, authHandler.Profile)
	authGroup.POST("/logout", authHandler.Logout)

	chatGroup := api.Group("/chat")
	chatGroup.Use(requireAuth)
	chatGroup.POST("/send", chatHandler.SendMessage)
	chatGroup.GET("/history/:chatId", chatHandler.GetHistory)
	chatGroup.GET("/chats", chatHandler.ListChats)
	chatGroup.DELETE("/chats/:chatId", chatHandler.DeleteChat)

	return router
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supportchat/internal/app"
	"supportchat/internal/transport/http/middleware"
	"supportchat/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
	logger      *zap.Logger
}

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profileUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func NewAuthHandler(authService *app.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "username, email and password are required")
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), app.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrDuplicateIdentity):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("signup failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "server error")
		}
		return
	}

	response.Created(c, gin.H{"token": result.Token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, app.ErrInvalidCredential.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusBadRequest, app.ErrInvalidCredential.Error())
		default:
			h.logger.Error("login failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "server error")
		}
		return
	}

	response.OK(c, gin.H{"token": result.Token})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token")
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusUnauthorized, "invalid token")
		default:
			h.logger.Error("load profile failed", zap.Uint("user_id", userID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "server error")
		}
		return
	}

	response.OK(c, gin.H{
		"user": profileUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		},
	})
}

// Logout only acknowledges; tokens are not revoked server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Message(c, http.StatusOK, "Logged out successfully (client must clear token)")
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return e.Message
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type User struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SendResult struct {
	ChatID      string  `json:"chatId"`
	UserMessage Message `json:"userMessage"`
	AIResponse  Message `json:"aiResponse"`
}

type ChatDetail struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ChatSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  *Message  `json:"lastMessage"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// API talks to the chat server. It holds no credentials; every
// authenticated call takes the bearer token explicitly.
type API struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (a *API) Signup(ctx context.Context, username, email, password string) (string, error) {
	var out tokenResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	return out.Token, err
}

func (a *API) Login(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out.Token, err
}

func (a *API) Profile(ctx context.Context, token string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/auth/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/auth/logout", "", nil, nil)
}

func (a *API) Send(ctx context.Context, token, chatID, message string) (*SendResult, error) {
	body := map[string]string{"message": message}
	if chatID != "" {
		body["chatId"] = chatID
	}
	var out SendResult
	if err := a.do(ctx, http.MethodPost, "/api/chat/send", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) History(ctx context.Context, token, chatID string) (*ChatDetail, error) {
	var out struct {
		Chat ChatDetail `json:"chat"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/chat/history/"+url.PathEscape(chatID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Chat, nil
}

func (a *API) Chats(ctx context.Context, token string) ([]ChatSummary, error) {
	var out struct {
		Chats []ChatSummary `json:"chats"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/chat/chats", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

func (a *API) DeleteChat(ctx context.Context, token, chatID string) error {
	return a.do(ctx, http.MethodDelete, "/api/chat/chats/"+url.PathEscape(chatID), token, nil, nil)
}

func (a *API) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request failed: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

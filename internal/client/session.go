package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrSendInFlight     = errors.New("a message is already being sent")
)

// Session holds the signed-in user and token for one client. The token is
// mirrored into the TokenStore and attached to each authenticated call; any
// 401 from the server drops both.
type Session struct {
	api   *API
	store TokenStore

	mu    sync.RWMutex
	token string
	user  *User

	sending atomic.Bool
}

func NewSession(api *API, store TokenStore) *Session {
	return &Session{api: api, store: store}
}

// Restore re-validates a persisted token against the profile endpoint. It
// reports whether a session is active afterwards.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.LoadToken()
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	user, err := s.api.Profile(ctx, token)
	if err != nil {
		clearErr := s.clear()
		if IsUnauthorized(err) {
			return false, clearErr
		}
		return false, errors.Join(err, clearErr)
	}
	s.set(token, user)
	return true, nil
}

func (s *Session) Signup(ctx context.Context, username, email, password string) error {
	token, err := s.api.Signup(ctx, strings.TrimSpace(username), strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	return s.establish(ctx, token)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return err
	}
	return s.establish(ctx, token)
}

// Logout discards local credentials. The server call is informational only.
func (s *Session) Logout(ctx context.Context) error {
	_ = s.api.Logout(ctx)
	return s.clear()
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Send posts one message. A second Send while the first is outstanding is
// rejected rather than queued.
func (s *Session) Send(ctx context.Context, chatID, message string) (*SendResult, error) {
	if !s.sending.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}
	defer s.sending.Store(false)

	token, err := s.currentToken()
	if err != nil {
		return nil, err
	}
	res, err := s.api.Send(ctx, token, chatID, message)
	return res, s.check(err)
}

func (s *Session) Chats(ctx context.Context) ([]ChatSummary, error) {
	token, err := s.currentToken()
	if err != nil {
		return nil, err
	}
	chats, err := s.api.Chats(ctx, token)
	return chats, s.check(err)
}

func (s *Session) History(ctx context.Context, chatID string) (*ChatDetail, error) {
	token, err := s.currentToken()
	if err != nil {
		return nil, err
	}
	chat, err := s.api.History(ctx, token, chatID)
	return chat, s.check(err)
}

func (s *Session) DeleteChat(ctx context.Context, chatID string) error {
	token, err := s.currentToken()
	if err != nil {
		return err
	}
	return s.check(s.api.DeleteChat(ctx, token, chatID))
}

func (s *Session) establish(ctx context.Context, token string) error {
	user, err := s.api.Profile(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.SaveToken(token); err != nil {
		return err
	}
	s.set(token, user)
	return nil
}

func (s *Session) check(err error) error {
	if err != nil && IsUnauthorized(err) {
		return errors.Join(err, s.clear())
	}
	return err
}

func (s *Session) currentToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

func (s *Session) set(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

func (s *Session) clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	return s.store.ClearToken()
}

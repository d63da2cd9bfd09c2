package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supportchat/internal/model"
	"supportchat/internal/repository"
)

const (
	// PasswordHashCost is the bcrypt work factor (2^10 rounds).
	PasswordHashCost  = 10
	usernameMinLength = 5
	usernameMaxLength = 20
	passwordMinLength = 6
	passwordMaxBytes  = 72
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateIdentity = errors.New("user already exists")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrUserNotFound      = errors.New("user not found")
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

type TokenIssuer interface {
	// CanIssue reports why no token could be issued right now, if anything.
	CanIssue() error
	Issue(userID uint) (string, error)
}

type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	cost   int
	logger *zap.Logger
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(users UserStore, tokens TokenIssuer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		cost:   PasswordHashCost,
		logger: logger,
	}
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	password := input.Password

	if err := validateSignup(username, email, password); err != nil {
		return nil, err
	}
	if err := s.tokens.CanIssue(); err != nil {
		return nil, err
	}

	existingByName, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrDuplicateIdentity
	}

	existingByEmail, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}
	s.logger.Info("user signed up", zap.Uint("user_id", user.ID))

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !VerifyPassword(user, input.Password) {
		return nil, ErrInvalidCredential
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// VerifyPassword reports whether plaintext matches the user's stored hash.
// bcrypt compares digests in constant time.
func VerifyPassword(user *model.User, plaintext string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	// bcrypt ignores input past 72 bytes; signup never stores such a password.
	if len(plaintext) > passwordMaxBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignup(username, email, password string) error {
	if n := utf8.RuneCountInString(username); n < usernameMinLength || n > usernameMaxLength {
		return fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, usernameMinLength, usernameMaxLength)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(password) < passwordMinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, passwordMinLength)
	}
	if len(password) > passwordMaxBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, passwordMaxBytes)
	}
	return nil
}

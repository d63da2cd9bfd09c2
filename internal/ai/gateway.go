package ai

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 10
	DefaultSystemPrompt = "You are a helpful customer support assistant. Be friendly and helpful."
)

// FallbackReplies are served whenever the upstream vendor cannot produce a reply.
var FallbackReplies = []string{
	"I'm here to help! How can I assist you today?",
	"Thanks for your message! I'm working on getting back to you.",
	"Hello! I'm your AI assistant. What can I help you with?",
	"I'm ready to help! What would you like to know?",
}

var errMissingCredentials = errors.New("llm api key is not configured")

// Gateway produces an assistant reply for a user message. Implementations
// never fail: upstream problems degrade into a fallback reply.
type Gateway interface {
	Generate(ctx context.Context, userText string, history []ChatMessage) string
}

type Completer interface {
	Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error)
}

type CompletionGateway struct {
	completer    Completer
	cfg          ChatConfig
	systemPrompt string
	historyLimit int
	timeout      time.Duration
	logger       *zap.Logger
	pick         func(n int) int
}

type GatewayOptions struct {
	SystemPrompt string
	HistoryLimit int
	Timeout      time.Duration
}

func NewCompletionGateway(completer Completer, cfg ChatConfig, opts GatewayOptions, logger *zap.Logger) *CompletionGateway {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionGateway{
		completer:    completer,
		cfg:          cfg,
		systemPrompt: opts.SystemPrompt,
		historyLimit: opts.HistoryLimit,
		timeout:      opts.Timeout,
		logger:       logger,
		pick:         rand.Intn,
	}
}

func (g *CompletionGateway) Generate(ctx context.Context, userText string, history []ChatMessage) string {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		g.logger.Warn("llm degraded, serving fallback reply", zap.Error(errMissingCredentials))
		return g.fallback()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.completer.Complete(callCtx, g.cfg, g.buildPrompt(userText, history))
	if err != nil {
		g.logger.Warn("llm degraded, serving fallback reply", zap.Error(err))
		return g.fallback()
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		g.logger.Warn("llm returned empty reply, serving fallback reply")
		return g.fallback()
	}
	return reply
}

func (g *CompletionGateway) buildPrompt(userText string, history []ChatMessage) []ChatMessage {
	if len(history) > g.historyLimit {
		history = history[len(history)-g.historyLimit:]
	}

	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: g.systemPrompt})
	for _, item := range history {
		if item.Role == "" || strings.TrimSpace(item.Content) == "" {
			continue
		}
		messages = append(messages, item)
	}
	messages = append(messages, ChatMessage{Role: "user", Content: strings.TrimSpace(userText)})
	return messages
}

func (g *CompletionGateway) fallback() string {
	return FallbackReplies[g.pick(len(FallbackReplies))]
}

// CannedGateway always answers with the same reply and records what it was asked.
type CannedGateway struct {
	Reply string

	mu    sync.Mutex
	calls []CannedCall
}

type CannedCall struct {
	UserText string
	History  []ChatMessage
}

func (g *CannedGateway) Generate(_ context.Context, userText string, history []ChatMessage) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, CannedCall{
		UserText: userText,
		History:  append([]ChatMessage(nil), history...),
	})
	return g.Reply
}

func (g *CannedGateway) Calls() []CannedCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]CannedCall(nil), g.calls...)
}

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVendor(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) ChatConfig {
	return ChatConfig{
		BaseURL:     baseURL,
		APIKey:      "sk-test",
		Model:       "test-model",
		MaxTokens:   300,
		Temperature: 0.7,
		Referer:     "http://localhost:3000",
		Title:       "AI Support Chat",
	}
}

func TestGenerate_ForwardsSystemHistoryAndUserMessage(t *testing.T) {
	var got chatRequest
	var headers http.Header
	srv := newVendor(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Sure, I can help.  "}}]}`))
	})

	gw := NewCompletionGateway(NewOpenAICompatibleClient(srv.Client()), testConfig(srv.URL), GatewayOptions{}, nil)
	history := []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}

	reply := gw.Generate(context.Background(), "  where is my order?  ", history)

	assert.Equal(t, "Sure, I can help.", reply)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Equal(t, history, got.Messages[1:3])
	assert.Equal(t, ChatMessage{Role: "user", Content: "where is my order?"}, got.Messages[3])
	assert.Equal(t, "Bearer sk-test", headers.Get("Authorization"))
	assert.Equal(t, "http://localhost:3000", headers.Get("HTTP-Referer"))
	assert.Equal(t, "AI Support Chat", headers.Get("X-Title"))
}

func TestGenerate_TrimsHistoryToLimit(t *testing.T) {
	var got chatRequest
	srv := newVendor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	gw := NewCompletionGateway(NewOpenAICompatibleClient(srv.Client()), testConfig(srv.URL), GatewayOptions{HistoryLimit: 2}, nil)
	history := []ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	gw.Generate(context.Background(), "four", history)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, "two", got.Messages[1].Content)
	assert.Equal(t, "three", got.Messages[2].Content)
}

func TestGenerate_FallbackOnUpstreamFailure(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"unauthorized": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"empty content": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newVendor(t, handler)
			gw := NewCompletionGateway(NewOpenAICompatibleClient(srv.Client()), testConfig(srv.URL), GatewayOptions{}, nil)

			reply := gw.Generate(context.Background(), "hello", nil)
			assert.Contains(t, FallbackReplies, reply)
		})
	}
}

func TestGenerate_FallbackOnUnreachableVendor(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw := NewCompletionGateway(NewOpenAICompatibleClient(nil), testConfig(url), GatewayOptions{}, nil)
	assert.Contains(t, FallbackReplies, gw.Generate(context.Background(), "hello", nil))
}

func TestGenerate_FallbackWithoutAPIKey(t *testing.T) {
	called := false
	srv := newVendor(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	gw := NewCompletionGateway(NewOpenAICompatibleClient(srv.Client()), cfg, GatewayOptions{}, nil)
	gw.pick = func(int) int { return 2 }

	assert.Equal(t, FallbackReplies[2], gw.Generate(context.Background(), "hello", nil))
	assert.False(t, called)
}

func TestGenerate_TimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	srv := newVendor(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	gw := NewCompletionGateway(NewOpenAICompatibleClient(srv.Client()), testConfig(srv.URL), GatewayOptions{Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	reply := gw.Generate(context.Background(), "hello", nil)
	assert.Contains(t, FallbackReplies, reply)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCannedGateway_RecordsCalls(t *testing.T) {
	gw := &CannedGateway{Reply: "canned"}
	history := []ChatMessage{{Role: "user", Content: "a"}}

	assert.Equal(t, "canned", gw.Generate(context.Background(), "b", history))
	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "b", calls[0].UserText)
	assert.Equal(t, history, calls[0].History)
}

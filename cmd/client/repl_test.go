package main

import (
	"bufio"
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportchat/internal/ai"
	"supportchat/internal/app"
	"supportchat/internal/client"
	"supportchat/internal/pkg/jwtutil"
	"supportchat/internal/repository/memory"
	httptransport "supportchat/internal/transport/http"
)

func TestREPL_SignupSendAndList(t *testing.T) {
	color.NoColor = true
	readPassword = func() (string, error) { return "secret1", nil }

	tokens := jwtutil.NewManager("secret", time.Hour)
	srv := httptest.NewServer(httptransport.NewRouter(httptransport.RouterDeps{
		GinMode:     gin.TestMode,
		AuthService: app.NewAuthService(memory.NewUserStore(), tokens, nil),
		ChatService: app.NewChatService(memory.NewChatStore(), &ai.CannedGateway{Reply: "Let me check."}, app.ChatOptions{}),
		Tokens:      tokens,
	}))
	defer srv.Close()

	store, err := client.OpenBoltTokenStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	input := strings.Join([]string{
		"/signup",
		"alice",
		"alice@example.com",
		"Where is my order?",
		"/chats",
		"/open 1",
		"/delete 1",
		"/chats",
		"/quit",
	}, "\n") + "\n"

	var out bytes.Buffer
	session := client.NewSession(client.NewAPI(srv.URL, srv.Client()), store)
	r := newREPL(session, bufio.NewReader(strings.NewReader(input)), &out)
	require.NoError(t, r.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Not signed in.")
	assert.Contains(t, text, "Signed up as alice.")
	assert.Contains(t, text, "assistant: Let me check.")
	assert.Contains(t, text, "* 1. Where is my order?")
	assert.Contains(t, text, "== Where is my order? ==")
	assert.Contains(t, text, "you: Where is my order?")
	assert.Contains(t, text, "Chat deleted.")
	assert.Contains(t, text, "No chats yet.")
}

func TestREPL_SendWithoutLogin(t *testing.T) {
	color.NoColor = true
	store, err := client.OpenBoltTokenStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	session := client.NewSession(client.NewAPI("http://127.0.0.1:1", nil), store)
	r := newREPL(session, bufio.NewReader(strings.NewReader("hello\n")), &out)
	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "send failed: not logged in")
}

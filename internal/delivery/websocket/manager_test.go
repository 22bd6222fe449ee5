package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"quest-bot/internal/models"
	sharedMiddleware "quest-bot/shared/middleware"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []models.InboundUpdate
}

func (h *recordingHandler) HandleUpdate(_ context.Context, update models.InboundUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
	return nil
}

func (h *recordingHandler) received() []models.InboundUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.InboundUpdate(nil), h.updates...)
}

func startServer(t *testing.T, manager *ChatManager, handler *recordingHandler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(manager.Handler(handler))
	t.Cleanup(func() {
		manager.Close()
		server.Close()
	})
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestChatManager_RoundTrip(t *testing.T) {
	manager := NewChatManager([]string{"*"}, zap.NewNop())
	handler := &recordingHandler{}
	server := startServer(t, manager, handler)

	conn := dial(t, server, "chat_id=42&name="+url.QueryEscape("Аня"))
	require.Eventually(t, func() bool { return manager.Connected(42) }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "/play"}))
	require.Eventually(t, func() bool { return len(handler.received()) == 1 }, time.Second, 5*time.Millisecond)
	update := handler.received()[0]
	assert.Equal(t, int64(42), update.ChatID)
	assert.Equal(t, "Аня", update.FirstName)
	assert.Equal(t, "/play", update.Text)
	assert.NotEmpty(t, update.UpdateID)

	ctx := context.Background()
	require.NoError(t, manager.SendTyping(ctx, 42))
	require.NoError(t, manager.SendWithKeyboard(ctx, 42, "Выбери", models.Keyboard{Rows: [][]string{{"1", "2"}}, Resize: true}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var typing models.OutboundMessage
	require.NoError(t, conn.ReadJSON(&typing))
	assert.Equal(t, models.OutboundTyping, typing.Type)

	var prompt models.OutboundMessage
	require.NoError(t, conn.ReadJSON(&prompt))
	assert.Equal(t, "Выбери", prompt.Text)
	require.NotNil(t, prompt.Keyboard)
	assert.Equal(t, [][]string{{"1", "2"}}, prompt.Keyboard.Rows)
}

func TestChatManager_MalformedFrameIgnored(t *testing.T) {
	manager := NewChatManager([]string{"*"}, zap.NewNop())
	handler := &recordingHandler{}
	server := startServer(t, manager, handler)

	conn := dial(t, server, "chat_id=7")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]string{"text": "1"}))

	require.Eventually(t, func() bool { return len(handler.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "1", handler.received()[0].Text)
}

func TestChatManager_RejectsMissingChatID(t *testing.T) {
	manager := NewChatManager([]string{"*"}, zap.NewNop())
	server := startServer(t, manager, &recordingHandler{})

	resp, err := http.Get(server.URL + "/?chat_id=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatManager_DropsMessagesWithoutConnection(t *testing.T) {
	manager := NewChatManager(nil, zap.NewNop())
	assert.NoError(t, manager.SendText(context.Background(), 404, "никого", models.SendOptions{}))
	assert.Equal(t, 0, manager.ConnectionCount())
}

func TestChatManager_DisconnectUnregisters(t *testing.T) {
	manager := NewChatManager([]string{"*"}, zap.NewNop())
	server := startServer(t, manager, &recordingHandler{})

	conn := dial(t, server, "chat_id=9")
	require.Eventually(t, func() bool { return manager.Connected(9) }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	assert.Eventually(t, func() bool { return !manager.Connected(9) }, time.Second, 5*time.Millisecond)
}

func TestChatManager_ChatTokens(t *testing.T) {
	const secret = "chat-secret"
	manager := NewChatManager([]string{"*"}, zap.NewNop(), WithChatTokenSecret(secret))
	handler := &recordingHandler{}
	server := startServer(t, manager, handler)

	token, err := sharedMiddleware.GenerateChatJWT(42, secret, time.Hour)
	require.NoError(t, err)
	foreign, err := sharedMiddleware.GenerateChatJWT(42, "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "Bare chat id", query: "chat_id=42", wantStatus: http.StatusUnauthorized},
		{name: "Foreign secret", query: "token=" + foreign, wantStatus: http.StatusUnauthorized},
		{name: "Other chat", query: "chat_id=43&token=" + token, wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	conn := dial(t, server, "token="+token)
	require.Eventually(t, func() bool { return manager.Connected(42) }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.WriteJSON(map[string]string{"text": "/play"}))
	require.Eventually(t, func() bool { return len(handler.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(42), handler.received()[0].ChatID)
}

func TestChatManager_StopAcceptingKeepsOutbound(t *testing.T) {
	manager := NewChatManager([]string{"*"}, zap.NewNop())
	handler := &recordingHandler{}
	server := startServer(t, manager, handler)

	conn := dial(t, server, "chat_id=5")
	require.NoError(t, conn.WriteJSON(map[string]string{"text": "1"}))
	require.Eventually(t, func() bool { return len(handler.received()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, manager.StopAccepting(ctx))

	require.NoError(t, conn.WriteJSON(map[string]string{"text": "/play"}))
	assert.Never(t, func() bool { return len(handler.received()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, manager.SendText(context.Background(), 5, "Бот остановлен", models.SendOptions{}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var notice models.OutboundMessage
	require.NoError(t, conn.ReadJSON(&notice))
	assert.Equal(t, "Бот остановлен", notice.Text)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://quest.example"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req), "requests without origin pass")

	req.Header.Set("Origin", "https://quest.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

func TestInboundFrameDecoding(t *testing.T) {
	var frame inboundFrame
	require.NoError(t, json.Unmarshal([]byte(`{"text":"2"}`), &frame))
	assert.Equal(t, "2", frame.Text)
}

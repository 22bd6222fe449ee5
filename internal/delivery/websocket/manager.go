package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"
	sharedMiddleware "quest-bot/shared/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
	handleTimeout  = 15 * time.Second
)

// ErrManagerClosed - менеджер остановлен и не принимает соединения.
var ErrManagerClosed = errors.New("websocket manager closed")

// ChatManager - веб-чат поверх WebSocket: доставляет исходящие сообщения
// подключенным клиентам и передает их реплики обработчику обновлений.
type ChatManager struct {
	mu      sync.RWMutex
	clients map[int64]map[uuid.UUID]*Client
	closed  bool
	// draining - входящие реплики больше не передаются обработчику.
	draining bool
	inflight sync.WaitGroup

	tokenSecret string
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Option настраивает ChatManager.
type Option func(*ChatManager)

// WithChatTokenSecret требует при подключении токен чата (?token=...), подписанный secret.
// chat id берется из токена. Без секрета chat id берется из запроса как есть.
func WithChatTokenSecret(secret string) Option {
	return func(m *ChatManager) {
		m.tokenSecret = secret
	}
}

var _ interfaces.MessagingChannel = (*ChatManager)(nil)

// Client - одно соединение чата. У одного чата может быть несколько вкладок.
type Client struct {
	ID        uuid.UUID
	ChatID    int64
	FirstName string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// inboundFrame - реплика пользователя из веб-чата.
type inboundFrame struct {
	Text string `json:"text"`
}

// NewChatManager создает менеджер соединений.
func NewChatManager(allowedOrigins []string, logger *zap.Logger, opts ...Option) *ChatManager {
	m := &ChatManager{
		clients: make(map[int64]map[uuid.UUID]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Named("WebSocketChat"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Handler обрабатывает новые WebSocket-соединения: GET ?token=<jwt>&name=<имя>,
// без секрета токенов GET ?chat_id=<id>&name=<имя>.
func (m *ChatManager) Handler(updates interfaces.UpdateHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatID, status, err := m.authorize(r)
		if err != nil {
			m.logger.Debug("WebSocket connection rejected", zap.Int("status", status), zap.Error(err))
			http.Error(w, err.Error(), status)
			return
		}
		firstName := r.URL.Query().Get("name")

		conn, err := m.upgrader.Upgrade(w, r, nil)
		if err != nil {
			m.logger.Warn("WebSocket upgrade failed", zap.Int64("chat_id", chatID), zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New(),
			ChatID:    chatID,
			FirstName: firstName,
			conn:      conn,
			send:      make(chan []byte, sendBufferSize),
		}
		if err := m.register(client); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}

		go m.writePump(client)
		go m.readPump(client, updates)
	})
}

// authorize определяет chat id соединения.
func (m *ChatManager) authorize(r *http.Request) (int64, int, error) {
	query := r.URL.Query()
	if m.tokenSecret == "" {
		chatID, err := strconv.ParseInt(query.Get("chat_id"), 10, 64)
		if err != nil || chatID == 0 {
			return 0, http.StatusBadRequest, errors.New("отсутствует или некорректен chat_id")
		}
		return chatID, http.StatusOK, nil
	}

	chatID, err := sharedMiddleware.ParseChatJWT(query.Get("token"), m.tokenSecret)
	if err != nil {
		return 0, http.StatusUnauthorized, errors.New("отсутствует или некорректен токен чата")
	}
	if raw := query.Get("chat_id"); raw != "" && raw != strconv.FormatInt(chatID, 10) {
		return 0, http.StatusForbidden, errors.New("chat_id не совпадает с токеном")
	}
	return chatID, http.StatusOK, nil
}

func (m *ChatManager) register(c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if m.clients[c.ChatID] == nil {
		m.clients[c.ChatID] = make(map[uuid.UUID]*Client)
	}
	m.clients[c.ChatID][c.ID] = c
	m.logger.Info("Client connected", zap.Int64("chat_id", c.ChatID), zap.Stringer("client_id", c.ID))
	return nil
}

func (m *ChatManager) unregister(c *Client) {
	m.mu.Lock()
	if chat, ok := m.clients[c.ChatID]; ok {
		if _, ok := chat[c.ID]; ok {
			delete(chat, c.ID)
			if len(chat) == 0 {
				delete(m.clients, c.ChatID)
			}
			m.logger.Info("Client disconnected", zap.Int64("chat_id", c.ChatID), zap.Stringer("client_id", c.ID))
		}
	}
	m.mu.Unlock()
	c.closeSend()
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Connected - есть ли у чата открытые соединения.
func (m *ChatManager) Connected(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[chatID]) > 0
}

// ConnectionCount - число открытых соединений.
func (m *ChatManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, chat := range m.clients {
		n += len(chat)
	}
	return n
}

func (m *ChatManager) SendText(_ context.Context, chatID int64, text string, opts models.SendOptions) error {
	return m.deliver(models.NewTextMessage(chatID, text, opts))
}

func (m *ChatManager) SendTyping(_ context.Context, chatID int64) error {
	return m.deliver(models.NewTypingMessage(chatID))
}

func (m *ChatManager) SendWithKeyboard(_ context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	return m.deliver(models.NewKeyboardMessage(chatID, text, keyboard))
}

// deliver отправляет сообщение во все соединения чата. Без соединений сообщение теряется.
func (m *ChatManager) deliver(msg models.OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга сообщения: %w", err)
	}

	m.mu.RLock()
	var (
		delivered int
		slow      []*Client
	)
	for _, c := range m.clients[msg.ChatID] {
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range slow {
		m.logger.Warn("Client send buffer full, disconnecting", zap.Int64("chat_id", c.ChatID), zap.Stringer("client_id", c.ID))
		m.unregister(c)
	}
	if delivered == 0 {
		m.logger.Debug("No connection for chat, message dropped", zap.Int64("chat_id", msg.ChatID), zap.String("type", string(msg.Type)))
	}
	return nil
}

// StopAccepting перестает передавать входящие реплики обработчику и ждет завершения уже
// начатых обработок (не дольше ctx). Исходящие сообщения продолжают доставляться.
func (m *ChatManager) StopAccepting(ctx context.Context) error {
	m.mu.Lock()
	m.draining = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("Inbound updates stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ошибка ожидания обработки входящих сообщений: %w", ctx.Err())
	}
}

// beginUpdate регистрирует начало обработки реплики; false после StopAccepting.
func (m *ChatManager) beginUpdate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draining {
		return false
	}
	m.inflight.Add(1)
	return true
}

// Close закрывает все соединения и перестает принимать новые.
func (m *ChatManager) Close() {
	m.mu.Lock()
	m.closed = true
	var all []*Client
	for _, chat := range m.clients {
		for _, c := range chat {
			all = append(all, c)
		}
	}
	m.clients = make(map[int64]map[uuid.UUID]*Client)
	m.mu.Unlock()

	for _, c := range all {
		c.closeSend()
	}
	m.logger.Info("WebSocket chat closed", zap.Int("connections", len(all)))
}

// readPump читает реплики клиента и передает их обработчику по порядку.
func (m *ChatManager) readPump(c *Client, updates interfaces.UpdateHandler) {
	defer func() {
		m.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read error", zap.Int64("chat_id", c.ChatID), zap.Error(err))
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			m.logger.Debug("Malformed client frame", zap.Int64("chat_id", c.ChatID), zap.Error(err))
			continue
		}

		if !m.beginUpdate() {
			m.logger.Debug("Update dropped, chat is shutting down", zap.Int64("chat_id", c.ChatID))
			continue
		}
		update := models.InboundUpdate{
			UpdateID:  uuid.NewString(),
			ChatID:    c.ChatID,
			FirstName: c.FirstName,
			Text:      frame.Text,
		}
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		if err := updates.HandleUpdate(ctx, update); err != nil {
			m.logger.Error("Failed to handle update", zap.Int64("chat_id", c.ChatID), zap.Error(err))
		}
		cancel()
		m.inflight.Done()
	}
}

// writePump отправляет сообщения клиенту, по одному JSON на кадр.
func (m *ChatManager) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

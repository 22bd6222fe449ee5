package service

import (
	"context"
	"sync"
	"time"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session - активное прохождение квеста пользователем.
type Session struct {
	User   models.User
	Branch *models.Branch
	// DeliveryID меняется при каждой доставке ветки; отложенные действия сверяют его перед выполнением.
	DeliveryID uuid.UUID
	StartedAt  time.Time
}

// SessionStore - потокобезопасное хранилище активных сессий, ключ - chat id.
// Наличие записи в хранилище означает, что пользователь сейчас играет.
type SessionStore struct {
	logger *zap.Logger
	saves  interfaces.SaveRepository

	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionStore создает пустое хранилище.
func NewSessionStore(saves interfaces.SaveRepository, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		logger:   logger.Named("SessionStore"),
		saves:    saves,
		sessions: make(map[int64]*Session),
	}
}

// Has проверяет, есть ли у пользователя активная сессия.
func (s *SessionStore) Has(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[chatID]
	return ok
}

// Open создает сессию или переводит существующую на новую ветку.
// Возвращает новый токен доставки; токены предыдущих доставок становятся недействительными.
func (s *SessionStore) Open(user models.User, branch *models.Branch) uuid.UUID {
	token := uuid.New()

	s.mu.Lock()
	existing, ok := s.sessions[user.ChatID]
	startedAt := time.Now().UTC()
	if ok {
		startedAt = existing.StartedAt
	}
	s.sessions[user.ChatID] = &Session{User: user, Branch: branch, DeliveryID: token, StartedAt: startedAt}
	count := len(s.sessions)
	s.mu.Unlock()

	sessionsActive.Set(float64(count))
	if !ok {
		s.logger.Info("Session opened", zap.Int64("chat_id", user.ChatID), zap.String("branch_id", branch.ID))
	}
	return token
}

// Advance переводит сессию на branch, если она все еще принадлежит доставке expected.
// Возвращает новый токен; false, если сессию закрыли или уже перевели другой доставкой.
func (s *SessionStore) Advance(chatID int64, expected uuid.UUID, branch *models.Branch) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[chatID]
	if !ok || session.DeliveryID != expected {
		return uuid.Nil, false
	}
	token := uuid.New()
	s.sessions[chatID] = &Session{User: session.User, Branch: branch, DeliveryID: token, StartedAt: session.StartedAt}
	return token, true
}

// Get возвращает копию сессии.
func (s *SessionStore) Get(chatID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// IsCurrent - сессия существует и принадлежит доставке с токеном token.
func (s *SessionStore) IsCurrent(chatID int64, token uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[chatID]
	return ok && session.DeliveryID == token
}

// Close удаляет сессию и сохраняет текущую ветку как точку продолжения.
// Возвращает false, если сессии не было. Ошибка сохранения логируется: сессия все равно закрывается.
func (s *SessionStore) Close(ctx context.Context, chatID int64) bool {
	session, ok := s.remove(chatID, nil)
	if !ok {
		return false
	}
	log := s.logger.With(zap.Int64("chat_id", chatID), zap.String("branch_id", session.Branch.ID))

	branchID := session.Branch.ID
	if err := s.saves.SetLastBranchID(ctx, chatID, &branchID); err != nil {
		log.Error("Failed to persist resume point", zap.Error(err))
	}
	log.Info("Session closed")
	return true
}

// RemoveIfCurrent удаляет сессию без сохранения, если она принадлежит доставке token.
func (s *SessionStore) RemoveIfCurrent(chatID int64, token uuid.UUID) bool {
	_, ok := s.remove(chatID, &token)
	return ok
}

func (s *SessionStore) remove(chatID int64, token *uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	session, ok := s.sessions[chatID]
	if ok && token != nil && session.DeliveryID != *token {
		ok = false
	}
	if ok {
		delete(s.sessions, chatID)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if ok {
		sessionsActive.Set(float64(count))
	}
	return session, ok
}

// CloseAll закрывает все сессии. Перебирается снимок ключей.
func (s *SessionStore) CloseAll(ctx context.Context) int {
	closed := 0
	for _, user := range s.ActiveUsers() {
		if s.Close(ctx, user.ChatID) {
			closed++
		}
	}
	return closed
}

// ActiveUsers возвращает снимок играющих пользователей.
func (s *SessionStore) ActiveUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.sessions))
	for _, session := range s.sessions {
		users = append(users, session.User)
	}
	return users
}

// Snapshot возвращает описание всех активных сессий.
func (s *SessionStore) Snapshot() []models.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, models.SessionInfo{
			ChatID:    session.User.ChatID,
			FirstName: session.User.FirstName,
			BranchID:  session.Branch.ID,
			StartedAt: session.StartedAt,
		})
	}
	return out
}

// Count - число активных сессий.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

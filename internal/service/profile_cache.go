package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"go.uber.org/zap"
)

// ProfileCache держит в памяти пользователей, чьи профили уже есть в БД.
type ProfileCache struct {
	repo   interfaces.ProfileRepository
	logger *zap.Logger

	mu    sync.RWMutex
	users map[int64]models.User
}

// NewProfileCache создает пустой кэш.
func NewProfileCache(repo interfaces.ProfileRepository, logger *zap.Logger) *ProfileCache {
	return &ProfileCache{
		repo:   repo,
		logger: logger.Named("ProfileCache"),
		users:  make(map[int64]models.User),
	}
}

// Ensure возвращает пользователя, создавая профиль и пустое сохранение при первом обращении.
func (c *ProfileCache) Ensure(ctx context.Context, user models.User) (models.User, error) {
	c.mu.RLock()
	cached, ok := c.users[user.ChatID]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	profile, err := c.repo.GetByChatID(ctx, user.ChatID)
	switch {
	case err == nil:
		user = profile.User()
	case errors.Is(err, models.ErrNotFound):
		if err := c.repo.Create(ctx, user); err != nil {
			return user, fmt.Errorf("ошибка создания профиля: %w", err)
		}
		c.logger.Info("Profile created", zap.Int64("chat_id", user.ChatID))
	default:
		return user, fmt.Errorf("ошибка получения профиля: %w", err)
	}

	c.mu.Lock()
	c.users[user.ChatID] = user
	c.mu.Unlock()
	return user, nil
}

// Len - число закэшированных пользователей.
func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

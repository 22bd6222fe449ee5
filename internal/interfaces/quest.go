package interfaces

import (
	"context"

	"quest-bot/internal/models"
)

// AchievementCatalog - справочник достижений.
type AchievementCatalog interface {
	Resolve(id string) (models.Achievement, bool)
	All() []models.Achievement
}

// BranchSource - поиск ветки по идентификатору.
type BranchSource interface {
	Get(id string) (*models.Branch, bool)
}

// MainMenu возвращает пользователя в главное меню.
type MainMenu interface {
	ReturnToMainMenu(ctx context.Context, user models.User) error
}

// Cooldown - глобальное ограничение частоты сообщений для чата.
type Cooldown interface {
	// Allow возвращает false, если чат еще на кулдауне. Разрешенный вызов запускает новый кулдаун.
	Allow(ctx context.Context, chatID int64) (bool, error)
}

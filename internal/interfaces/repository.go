package interfaces

import (
	"context"

	"quest-bot/internal/models"
)

// ProfileRepository хранит профили пользователей.
type ProfileRepository interface {
	// GetByChatID возвращает models.ErrNotFound, если профиля нет.
	GetByChatID(ctx context.Context, chatID int64) (*models.Profile, error)
	// Create создает профиль и пустое сохранение. Повторный вызов для того же чата не является ошибкой.
	Create(ctx context.Context, user models.User) error
	// CountAll - общее число профилей.
	CountAll(ctx context.Context) (int, error)
}

// SaveRepository хранит точку продолжения квеста.
type SaveRepository interface {
	// GetLastBranchID возвращает nil, если прогресса нет.
	GetLastBranchID(ctx context.Context, chatID int64) (*string, error)
	// SetLastBranchID записывает точку продолжения; nil очищает сохранение.
	SetLastBranchID(ctx context.Context, chatID int64, branchID *string) error
}

// AchievementRepository хранит выданные достижения.
type AchievementRepository interface {
	Has(ctx context.Context, chatID int64, achievementID string) (bool, error)
	// Grant выдает достижение. granted == false, если оно уже было у пользователя.
	Grant(ctx context.Context, chatID int64, achievementID string) (granted bool, err error)
	ListByChatID(ctx context.Context, chatID int64) ([]models.AchievementGrant, error)
	// CountOwners - число пользователей с этим достижением.
	CountOwners(ctx context.Context, achievementID string) (int, error)
}

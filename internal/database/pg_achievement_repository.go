package database

import (
	"context"
	"fmt"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const (
	hasAchievementQuery   = `SELECT EXISTS (SELECT 1 FROM achievement_grants WHERE chat_id = $1 AND achievement_id = $2)`
	grantAchievementQuery = `
		INSERT INTO achievement_grants (chat_id, achievement_id) VALUES ($1, $2)
		ON CONFLICT (chat_id, achievement_id) DO NOTHING`
	listAchievementsQuery = `
		SELECT chat_id, achievement_id, granted_at FROM achievement_grants
		WHERE chat_id = $1 ORDER BY granted_at, achievement_id`
	countOwnersQuery      = `SELECT COUNT(*) FROM achievement_grants WHERE achievement_id = $1`
)

type pgAchievementRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

var _ interfaces.AchievementRepository = (*pgAchievementRepository)(nil)

// NewPgAchievementRepository создает репозиторий достижений PostgreSQL.
func NewPgAchievementRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.AchievementRepository {
	return &pgAchievementRepository{
		db:     db,
		logger: logger.Named("PgAchievementRepo"),
	}
}

func (r *pgAchievementRepository) Has(ctx context.Context, chatID int64, achievementID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, hasAchievementQuery, chatID, achievementID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check achievement %s for %d: %w", achievementID, chatID, err)
	}
	return exists, nil
}

func (r *pgAchievementRepository) Grant(ctx context.Context, chatID int64, achievementID string) (bool, error) {
	tag, err := r.db.Exec(ctx, grantAchievementQuery, chatID, achievementID)
	if err != nil {
		r.logger.Error("Failed to grant achievement",
			zap.Int64("chat_id", chatID), zap.String("achievement_id", achievementID), zap.Error(err))
		return false, fmt.Errorf("failed to grant achievement %s to %d: %w", achievementID, chatID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgAchievementRepository) ListByChatID(ctx context.Context, chatID int64) ([]models.AchievementGrant, error) {
	var grants []models.AchievementGrant
	if err := pgxscan.Select(ctx, r.db, &grants, listAchievementsQuery, chatID); err != nil {
		return nil, fmt.Errorf("failed to list achievements for %d: %w", chatID, err)
	}
	return grants, nil
}

func (r *pgAchievementRepository) CountOwners(ctx context.Context, achievementID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countOwnersQuery, achievementID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count owners of %s: %w", achievementID, err)
	}
	return count, nil
}

package database

import (
	"context"
	"errors"
	"fmt"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getProfileByChatIDQuery = `SELECT chat_id, first_name, created_at FROM profiles WHERE chat_id = $1`
	insertProfileQuery      = `INSERT INTO profiles (chat_id, first_name) VALUES ($1, $2) ON CONFLICT (chat_id) DO NOTHING`
	insertEmptySaveQuery    = `INSERT INTO quest_saves (chat_id, last_branch_id) VALUES ($1, NULL) ON CONFLICT (chat_id) DO NOTHING`
	countProfilesQuery      = `SELECT COUNT(*) FROM profiles`
)

type pgProfileRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

var _ interfaces.ProfileRepository = (*pgProfileRepository)(nil)

// NewPgProfileRepository создает репозиторий профилей PostgreSQL.
func NewPgProfileRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.ProfileRepository {
	return &pgProfileRepository{
		db:     db,
		logger: logger.Named("PgProfileRepo"),
	}
}

func (r *pgProfileRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Profile, error) {
	var profile models.Profile
	err := pgxscan.Get(ctx, r.db, &profile, getProfileByChatIDQuery, chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get profile", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("failed to get profile %d: %w", chatID, err)
	}
	return &profile, nil
}

// Create добавляет профиль и пустое сохранение. Оба INSERT идемпотентны.
func (r *pgProfileRepository) Create(ctx context.Context, user models.User) error {
	log := r.logger.With(zap.Int64("chat_id", user.ChatID))
	if _, err := r.db.Exec(ctx, insertProfileQuery, user.ChatID, user.FirstName); err != nil {
		log.Error("Failed to insert profile", zap.Error(err))
		return fmt.Errorf("failed to create profile %d: %w", user.ChatID, err)
	}
	if _, err := r.db.Exec(ctx, insertEmptySaveQuery, user.ChatID); err != nil {
		log.Error("Failed to insert empty save", zap.Error(err))
		return fmt.Errorf("failed to create save for %d: %w", user.ChatID, err)
	}
	log.Debug("Profile created")
	return nil
}

func (r *pgProfileRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countProfilesQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

package database

import (
	"context"
	"errors"
	"fmt"

	"quest-bot/internal/interfaces"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	getLastBranchIDQuery = `SELECT last_branch_id FROM quest_saves WHERE chat_id = $1`
	upsertSaveQuery      = `
		INSERT INTO quest_saves (chat_id, last_branch_id, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (chat_id) DO UPDATE SET last_branch_id = EXCLUDED.last_branch_id, updated_at = NOW()`
)

type pgSaveRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

var _ interfaces.SaveRepository = (*pgSaveRepository)(nil)

// NewPgSaveRepository создает репозиторий сохранений PostgreSQL.
func NewPgSaveRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.SaveRepository {
	return &pgSaveRepository{
		db:     db,
		logger: logger.Named("PgSaveRepo"),
	}
}

// GetLastBranchID возвращает nil и для пустого сохранения, и для отсутствующей записи.
func (r *pgSaveRepository) GetLastBranchID(ctx context.Context, chatID int64) (*string, error) {
	var branchID *string
	err := r.db.QueryRow(ctx, getLastBranchIDQuery, chatID).Scan(&branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get quest save", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("failed to get quest save %d: %w", chatID, err)
	}
	return branchID, nil
}

func (r *pgSaveRepository) SetLastBranchID(ctx context.Context, chatID int64, branchID *string) error {
	if _, err := r.db.Exec(ctx, upsertSaveQuery, chatID, branchID); err != nil {
		r.logger.Error("Failed to update quest save", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("failed to update quest save %d: %w", chatID, err)
	}
	return nil
}


package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // драйвер "sqlite"
)

const (
	sqliteGetProfileQuery    = `SELECT chat_id, first_name, created_at FROM profiles WHERE chat_id = ?`
	sqliteInsertProfileQuery = `INSERT OR IGNORE INTO profiles (chat_id, first_name) VALUES (?, ?)`
	sqliteInsertSaveQuery    = `INSERT OR IGNORE INTO quest_saves (chat_id, last_branch_id) VALUES (?, NULL)`
	sqliteCountProfilesQuery = `SELECT COUNT(*) FROM profiles`
	sqliteGetSaveQuery       = `SELECT last_branch_id FROM quest_saves WHERE chat_id = ?`
	sqliteUpsertSaveQuery    = `
		INSERT INTO quest_saves (chat_id, last_branch_id, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (chat_id) DO UPDATE SET last_branch_id = excluded.last_branch_id, updated_at = CURRENT_TIMESTAMP`
	sqliteHasAchievementQuery   = `SELECT EXISTS (SELECT 1 FROM achievement_grants WHERE chat_id = ? AND achievement_id = ?)`
	sqliteGrantAchievementQuery = `INSERT OR IGNORE INTO achievement_grants (chat_id, achievement_id) VALUES (?, ?)`
	sqliteListAchievementsQuery = `
		SELECT chat_id, achievement_id, granted_at FROM achievement_grants
		WHERE chat_id = ? ORDER BY granted_at, achievement_id`
	sqliteCountOwnersQuery = `SELECT COUNT(*) FROM achievement_grants WHERE achievement_id = ?`
)

// SQLiteStore - файловое хранилище профилей, сохранений и достижений на SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ interfaces.ProfileRepository     = (*SQLiteStore)(nil)
	_ interfaces.SaveRepository        = (*SQLiteStore)(nil)
	_ interfaces.AchievementRepository = (*SQLiteStore)(nil)
)

// OpenSQLiteStore открывает (или создает) файл базы и применяет миграции.
func OpenSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite %s: %w", path, err)
	}
	// SQLite допускает одного писателя.
	db.SetMaxOpenConns(1)

	if err := ApplySQLiteMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("SQLite database opened", zap.String("file", path))
	return &SQLiteStore{db: db, logger: logger.Named("SQLiteStore")}, nil
}

// Close закрывает соединение.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetByChatID(ctx context.Context, chatID int64) (*models.Profile, error) {
	var (
		profile   models.Profile
		createdAt sqliteTime
	)
	err := s.db.QueryRowContext(ctx, sqliteGetProfileQuery, chatID).Scan(&profile.ChatID, &profile.FirstName, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile %d: %w", chatID, err)
	}
	profile.CreatedAt = createdAt.Time
	return &profile, nil
}

func (s *SQLiteStore) Create(ctx context.Context, user models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, sqliteInsertProfileQuery, user.ChatID, user.FirstName); err != nil {
		return fmt.Errorf("failed to create profile %d: %w", user.ChatID, err)
	}
	if _, err := tx.ExecContext(ctx, sqliteInsertSaveQuery, user.ChatID); err != nil {
		return fmt.Errorf("failed to create save for %d: %w", user.ChatID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile %d: %w", user.ChatID, err)
	}
	s.logger.Debug("Profile created", zap.Int64("chat_id", user.ChatID))
	return nil
}

func (s *SQLiteStore) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, sqliteCountProfilesQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) GetLastBranchID(ctx context.Context, chatID int64) (*string, error) {
	var branchID sql.NullString
	err := s.db.QueryRowContext(ctx, sqliteGetSaveQuery, chatID).Scan(&branchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quest save %d: %w", chatID, err)
	}
	if !branchID.Valid {
		return nil, nil
	}
	return &branchID.String, nil
}

func (s *SQLiteStore) SetLastBranchID(ctx context.Context, chatID int64, branchID *string) error {
	var value sql.NullString
	if branchID != nil {
		value = sql.NullString{String: *branchID, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsertSaveQuery, chatID, value); err != nil {
		s.logger.Error("Failed to update quest save", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("failed to update quest save %d: %w", chatID, err)
	}
	return nil
}

func (s *SQLiteStore) Has(ctx context.Context, chatID int64, achievementID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, sqliteHasAchievementQuery, chatID, achievementID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check achievement %s for %d: %w", achievementID, chatID, err)
	}
	return exists, nil
}

func (s *SQLiteStore) Grant(ctx context.Context, chatID int64, achievementID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, sqliteGrantAchievementQuery, chatID, achievementID)
	if err != nil {
		return false, fmt.Errorf("failed to grant achievement %s to %d: %w", achievementID, chatID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func (s *SQLiteStore) ListByChatID(ctx context.Context, chatID int64) ([]models.AchievementGrant, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListAchievementsQuery, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements for %d: %w", chatID, err)
	}
	defer rows.Close()

	var grants []models.AchievementGrant
	for rows.Next() {
		var (
			grant     models.AchievementGrant
			grantedAt sqliteTime
		)
		if err := rows.Scan(&grant.ChatID, &grant.AchievementID, &grantedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement grant: %w", err)
		}
		grant.GrantedAt = grantedAt.Time
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievement grants: %w", err)
	}
	return grants, nil
}

func (s *SQLiteStore) CountOwners(ctx context.Context, achievementID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, sqliteCountOwnersQuery, achievementID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count owners of %s: %w", achievementID, err)
	}
	return count, nil
}

// sqliteTime читает TIMESTAMP, который драйвер может вернуть как time.Time или как текст.
type sqliteTime struct {
	time.Time
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

func (t *sqliteTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqliteTime) parse(s string) error {
	for _, layout := range sqliteTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format %q", s)
}

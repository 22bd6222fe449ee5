package mocks

import (
	"context"

	"quest-bot/internal/models"

	"github.com/stretchr/testify/mock"
)

// ProfileRepository - мок interfaces.ProfileRepository
type ProfileRepository struct {
	mock.Mock
}

func (m *ProfileRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Profile, error) {
	args := m.Called(ctx, chatID)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}
func (m *ProfileRepository) Create(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *ProfileRepository) CountAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// SaveRepository - мок interfaces.SaveRepository
type SaveRepository struct {
	mock.Mock
}

func (m *SaveRepository) GetLastBranchID(ctx context.Context, chatID int64) (*string, error) {
	args := m.Called(ctx, chatID)
	id, _ := args.Get(0).(*string)
	return id, args.Error(1)
}
func (m *SaveRepository) SetLastBranchID(ctx context.Context, chatID int64, branchID *string) error {
	args := m.Called(ctx, chatID, branchID)
	return args.Error(0)
}

// AchievementRepository - мок interfaces.AchievementRepository
type AchievementRepository struct {
	mock.Mock
}

func (m *AchievementRepository) Has(ctx context.Context, chatID int64, achievementID string) (bool, error) {
	args := m.Called(ctx, chatID, achievementID)
	return args.Bool(0), args.Error(1)
}
func (m *AchievementRepository) Grant(ctx context.Context, chatID int64, achievementID string) (bool, error) {
	args := m.Called(ctx, chatID, achievementID)
	return args.Bool(0), args.Error(1)
}
func (m *AchievementRepository) ListByChatID(ctx context.Context, chatID int64) ([]models.AchievementGrant, error) {
	args := m.Called(ctx, chatID)
	grants, _ := args.Get(0).([]models.AchievementGrant)
	return grants, args.Error(1)
}
func (m *AchievementRepository) CountOwners(ctx context.Context, achievementID string) (int, error) {
	args := m.Called(ctx, achievementID)
	return args.Int(0), args.Error(1)
}

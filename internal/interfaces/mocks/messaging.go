package mocks

import (
	"context"

	"quest-bot/internal/models"

	"github.com/stretchr/testify/mock"
)

// MessagingChannel - мок interfaces.MessagingChannel
type MessagingChannel struct {
	mock.Mock
}

func (m *MessagingChannel) SendText(ctx context.Context, chatID int64, text string, opts models.SendOptions) error {
	args := m.Called(ctx, chatID, text, opts)
	return args.Error(0)
}
func (m *MessagingChannel) SendTyping(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}
func (m *MessagingChannel) SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	args := m.Called(ctx, chatID, text, keyboard)
	return args.Error(0)
}

// MainMenu - мок interfaces.MainMenu
type MainMenu struct {
	mock.Mock
}

func (m *MainMenu) ReturnToMainMenu(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Cooldown - мок interfaces.Cooldown
type Cooldown struct {
	mock.Mock
}

func (m *Cooldown) Allow(ctx context.Context, chatID int64) (bool, error) {
	args := m.Called(ctx, chatID)
	return args.Bool(0), args.Error(1)
}

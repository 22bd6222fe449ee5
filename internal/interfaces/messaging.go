package interfaces

import (
	"context"

	"quest-bot/internal/models"
)

// MessagingChannel - транспорт до чата пользователя.
type MessagingChannel interface {
	SendText(ctx context.Context, chatID int64, text string, opts models.SendOptions) error
	SendTyping(ctx context.Context, chatID int64) error
	SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard models.Keyboard) error
}

// UpdateHandler обрабатывает входящие сообщения пользователей.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update models.InboundUpdate) error
}

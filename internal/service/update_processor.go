package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"go.uber.org/zap"
)

// Команды бота
const (
	CommandStart       = "/start"
	CommandPlay        = "/play"
	CommandAchievement = "/achievement"
	CommandInfo        = "/info"
	CommandExit        = "/exit"
)

type commandHandler func(ctx context.Context, user models.User) error

// UpdateProcessor маршрутизирует входящие сообщения: кулдаун, ответы в квесте, команды меню.
type UpdateProcessor struct {
	profiles *ProfileCache
	cooldown interfaces.Cooldown
	sessions *QuestSessionService
	menu     *MenuService
	channel  interfaces.MessagingChannel
	messages *Messages
	logger   *zap.Logger

	commands map[string]commandHandler
}

var _ interfaces.UpdateHandler = (*UpdateProcessor)(nil)

// NewUpdateProcessor создает маршрутизатор и регистрирует команды вместе с подписями кнопок меню.
func NewUpdateProcessor(
	profiles *ProfileCache,
	cooldown interfaces.Cooldown,
	sessions *QuestSessionService,
	menu *MenuService,
	channel interfaces.MessagingChannel,
	messages *Messages,
	logger *zap.Logger,
) *UpdateProcessor {
	p := &UpdateProcessor{
		profiles: profiles,
		cooldown: cooldown,
		sessions: sessions,
		menu:     menu,
		channel:  channel,
		messages: messages,
		logger:   logger.Named("UpdateProcessor"),
	}
	p.commands = map[string]commandHandler{
		CommandStart:       p.handleStart,
		CommandPlay:        p.handlePlay,
		CommandAchievement: p.handleAchievements,
		CommandInfo:        p.handleInfo,
		CommandExit:        p.handleExit,
	}
	p.alias(messages.Get(MsgButtonAchievement), CommandAchievement)
	p.alias(messages.Get(MsgButtonInfo), CommandInfo)
	p.alias(messages.Get(MsgButtonPlay), CommandPlay)
	p.alias(messages.Get(MsgButtonContinue), CommandPlay)
	return p
}

func (p *UpdateProcessor) alias(label, command string) {
	if label == "" {
		return
	}
	if _, taken := p.commands[label]; taken {
		return
	}
	p.commands[label] = p.commands[command]
}

// HandleUpdate обрабатывает одно входящее сообщение.
func (p *UpdateProcessor) HandleUpdate(ctx context.Context, update models.InboundUpdate) error {
	user, err := p.profiles.Ensure(ctx, update.User())
	if err != nil {
		return fmt.Errorf("ошибка загрузки профиля чата %d: %w", update.ChatID, err)
	}
	// Имя из свежего сообщения актуальнее сохраненного.
	if update.FirstName != "" {
		user.FirstName = update.FirstName
	}
	log := p.logger.With(zap.Int64("chat_id", user.ChatID))

	allowed, err := p.cooldown.Allow(ctx, user.ChatID)
	if err != nil {
		log.Error("Cooldown check failed, message allowed", zap.Error(err))
		allowed = true
	}
	if !allowed {
		return p.sendHTML(ctx, user.ChatID, p.messages.Get(MsgWait))
	}

	text := strings.TrimSpace(update.Text)

	if p.sessions.HasSession(user.ChatID) {
		if text == CommandExit {
			return p.handleExit(ctx, user)
		}
		result := p.sessions.HandleAnswer(ctx, user, text)
		log.Debug("Answer handled", zap.String("result", string(result)))
		return nil
	}

	handler, ok := p.commands[text]
	if !ok {
		return p.sendHTML(ctx, user.ChatID, p.messages.Get(MsgUnknownCommand))
	}
	return handler(ctx, user)
}

func (p *UpdateProcessor) handleStart(ctx context.Context, user models.User) error {
	return p.menu.ReturnToMainMenu(ctx, user)
}

func (p *UpdateProcessor) handlePlay(ctx context.Context, user models.User) error {
	err := p.sessions.OpenOrResume(ctx, user)
	switch {
	case err == nil, errors.Is(err, models.ErrSessionActive), errors.Is(err, models.ErrSchedulerStopped):
		return nil
	case errors.Is(err, models.ErrBranchNotFound):
		// Уже залогировано; пользователь просто не получает сообщений.
		return nil
	default:
		return err
	}
}

func (p *UpdateProcessor) handleAchievements(ctx context.Context, user models.User) error {
	text, err := p.menu.AchievementsText(ctx, user.ChatID)
	if err != nil {
		return err
	}
	return p.sendHTML(ctx, user.ChatID, text)
}

func (p *UpdateProcessor) handleInfo(ctx context.Context, user models.User) error {
	return p.channel.SendText(ctx, user.ChatID, p.menu.InfoText(), models.SendOptions{
		ParseMode:             models.ParseModeHTML,
		DisableWebPagePreview: true,
	})
}

func (p *UpdateProcessor) handleExit(ctx context.Context, user models.User) error {
	err := p.sessions.CloseOnExit(ctx, user)
	if err == nil {
		if sendErr := p.sendHTML(ctx, user.ChatID, p.messages.Get(MsgQuestExit)); sendErr != nil {
			return sendErr
		}
	} else if !errors.Is(err, models.ErrNoSession) {
		return err
	}
	return p.menu.ReturnToMainMenu(ctx, user)
}

func (p *UpdateProcessor) sendHTML(ctx context.Context, chatID int64, text string) error {
	return p.channel.SendText(ctx, chatID, text, models.SendOptions{ParseMode: models.ParseModeHTML})
}

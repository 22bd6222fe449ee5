package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AnswerResult - итог обработки ответа пользователя.
type AnswerResult string

const (
	AnswerAccepted AnswerResult = "accepted"
	// AnswerIgnored - нечисловой ответ, номер вне диапазона или ветка без вариантов.
	AnswerIgnored AnswerResult = "ignored"
	// AnswerDangling - вариант ссылается на несуществующую ветку.
	AnswerDangling AnswerResult = "dangling"
	// AnswerNoSession - у пользователя нет активной сессии.
	AnswerNoSession AnswerResult = "no_session"
	// AnswerStale - сессию закрыли или перевели на другую ветку, пока ответ обрабатывался.
	AnswerStale AnswerResult = "stale"
)

// QuestSessionService управляет жизненным циклом сессий: открытие или продолжение,
// переходы по ответам, выход и массовое закрытие при остановке.
type QuestSessionService struct {
	branches  interfaces.BranchSource
	store     *SessionStore
	scheduler *DeliveryScheduler
	saves     interfaces.SaveRepository
	channel   interfaces.MessagingChannel
	menu      interfaces.MainMenu
	messages  *Messages
	logger    *zap.Logger
}

// NewQuestSessionService создает контроллер сессий.
func NewQuestSessionService(
	branches interfaces.BranchSource,
	store *SessionStore,
	scheduler *DeliveryScheduler,
	saves interfaces.SaveRepository,
	channel interfaces.MessagingChannel,
	menu interfaces.MainMenu,
	messages *Messages,
	logger *zap.Logger,
) *QuestSessionService {
	return &QuestSessionService{
		branches:  branches,
		store:     store,
		scheduler: scheduler,
		saves:     saves,
		channel:   channel,
		menu:      menu,
		messages:  messages,
		logger:    logger.Named("QuestSessionService"),
	}
}

// HasSession - пользователь сейчас играет.
func (s *QuestSessionService) HasSession(chatID int64) bool {
	return s.store.Has(chatID)
}

// OpenOrResume начинает квест с ветки start или продолжает с сохраненной ветки.
// Если сессия уже есть, возвращает models.ErrSessionActive и ничего не отправляет.
func (s *QuestSessionService) OpenOrResume(ctx context.Context, user models.User) error {
	log := s.logger.With(zap.Int64("chat_id", user.ChatID))
	if s.store.Has(user.ChatID) {
		return models.ErrSessionActive
	}

	lastBranchID, err := s.saves.GetLastBranchID(ctx, user.ChatID)
	if err != nil {
		log.Error("Failed to read quest save", zap.Error(err))
		return fmt.Errorf("ошибка чтения сохранения: %w", err)
	}

	branchID := models.StartBranchID
	if lastBranchID != nil {
		branchID = *lastBranchID
	}

	branch, ok := s.branches.Get(branchID)
	if !ok {
		log.Error("Cannot open session: branch not found", zap.String("branch_id", branchID))
		return fmt.Errorf("%w: '%s'", models.ErrBranchNotFound, branchID)
	}

	if err := s.scheduler.Deliver(user, branch); err != nil {
		return err
	}
	sessionsOpenedTotal.Inc()
	log.Info("Quest session opened", zap.String("branch_id", branch.ID), zap.Bool("resumed", lastBranchID != nil))
	return nil
}

// HandleAnswer обрабатывает текст пользователя как номер варианта ответа (с 1).
// Некорректный ввод молча игнорируется: сессия продолжает ждать ответ.
func (s *QuestSessionService) HandleAnswer(ctx context.Context, user models.User, rawText string) AnswerResult {
	result := s.handleAnswer(user, rawText)
	answersTotal.WithLabelValues(string(result)).Inc()
	return result
}

func (s *QuestSessionService) handleAnswer(user models.User, rawText string) AnswerResult {
	session, ok := s.store.Get(user.ChatID)
	if !ok {
		return AnswerNoSession
	}

	number, err := strconv.Atoi(strings.TrimSpace(rawText))
	if err != nil {
		return AnswerIgnored
	}
	option, ok := session.Branch.AnswerOption(number)
	if !ok {
		return AnswerIgnored
	}

	next, ok := s.branches.Get(option.NextBranchID)
	if !ok {
		s.logger.Error("Answer option links to missing branch",
			zap.Int64("chat_id", user.ChatID),
			zap.String("branch_id", session.Branch.ID),
			zap.String("next_branch_id", option.NextBranchID),
		)
		return AnswerDangling
	}

	if err := s.scheduler.Advance(session.User, session.DeliveryID, next); err != nil {
		s.logger.Debug("Answer dropped, session changed concurrently",
			zap.Int64("chat_id", user.ChatID),
			zap.String("branch_id", session.Branch.ID),
			zap.Error(err),
		)
		return AnswerStale
	}
	return AnswerAccepted
}

// CloseOnExit завершает сессию по желанию пользователя, сохраняя текущую ветку.
func (s *QuestSessionService) CloseOnExit(ctx context.Context, user models.User) error {
	if !s.store.Close(ctx, user.ChatID) {
		return models.ErrNoSession
	}
	return nil
}

// ShutdownAll возвращает всех играющих в главное меню с уведомлением об остановке,
// сохраняет их точки продолжения и закрывает все сессии.
func (s *QuestSessionService) ShutdownAll(ctx context.Context) error {
	users := s.store.ActiveUsers()
	closed := s.store.CloseAll(ctx)

	var errs error
	notice := s.messages.Get(MsgOnDisable)
	for _, user := range users {
		if err := s.menu.ReturnToMainMenu(ctx, user); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("chat %d: %w", user.ChatID, err))
		}
		if err := s.channel.SendText(ctx, user.ChatID, notice, models.SendOptions{ParseMode: models.ParseModeHTML}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("chat %d: %w", user.ChatID, err))
		}
	}
	s.logger.Info("All sessions closed", zap.Int("closed", closed))
	return errs
}

// Sessions возвращает снимок активных сессий.
func (s *QuestSessionService) Sessions() []models.SessionInfo {
	return s.store.Snapshot()
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SchedulerConfig - темп доставки веток.
type SchedulerConfig struct {
	// Cooldown - интервал между строками ветки.
	Cooldown time.Duration
	// TypingOffset - задержка повторного индикатора набора после строки.
	TypingOffset time.Duration
	// ActionTimeout ограничивает одно отложенное действие (отправка, запись в БД).
	ActionTimeout time.Duration
}

const defaultActionTimeout = 15 * time.Second

// action - одно отложенное действие доставки.
type action struct {
	name   string
	user   models.User
	branch *models.Branch
	token  uuid.UUID
	// gated - перед выполнением проверить, что доставка все еще актуальна.
	gated bool
	run   func(ctx context.Context) error
}

// DeliveryScheduler планирует отправку строк ветки, индикаторов набора, вариантов ответа,
// уведомлений о достижениях и завершение квеста. Каждое действие выполняется в своем таймере
// и перед выполнением проверяет, что сессия пользователя все еще принадлежит этой доставке.
type DeliveryScheduler struct {
	store        *SessionStore
	channel      interfaces.MessagingChannel
	saves        interfaces.SaveRepository
	achievements interfaces.AchievementRepository
	menu         interfaces.MainMenu
	messages     *Messages
	cfg          SchedulerConfig
	logger       *zap.Logger

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewDeliveryScheduler создает планировщик.
func NewDeliveryScheduler(
	store *SessionStore,
	channel interfaces.MessagingChannel,
	saves interfaces.SaveRepository,
	achievements interfaces.AchievementRepository,
	menu interfaces.MainMenu,
	messages *Messages,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *DeliveryScheduler {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	return &DeliveryScheduler{
		store:        store,
		channel:      channel,
		saves:        saves,
		achievements: achievements,
		menu:         menu,
		messages:     messages,
		cfg:          cfg,
		logger:       logger.Named("DeliveryScheduler"),
		timers:       make(map[*time.Timer]struct{}),
	}
}

// Deliver делает branch текущей веткой пользователя и планирует ее доставку.
// Не блокирует: все отправки выполняются в таймерах.
// После Stop возвращает models.ErrSchedulerStopped и сессию не открывает.
func (d *DeliveryScheduler) Deliver(user models.User, branch *models.Branch) error {
	return d.deliver(user, branch, func() (uuid.UUID, bool) {
		return d.store.Open(user, branch), true
	})
}

// Advance переводит сессию на branch, только если она все еще принадлежит доставке expected.
// Если сессию закрыли или перевели на другую ветку, возвращает models.ErrNoSession.
func (d *DeliveryScheduler) Advance(user models.User, expected uuid.UUID, branch *models.Branch) error {
	return d.deliver(user, branch, func() (uuid.UUID, bool) {
		return d.store.Advance(user.ChatID, expected, branch)
	})
}

func (d *DeliveryScheduler) deliver(user models.User, branch *models.Branch, open func() (uuid.UUID, bool)) error {
	// Открытие сессии и планирование под одной блокировкой: Stop видит либо всю доставку, либо ничего.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return models.ErrSchedulerStopped
	}
	token, ok := open()
	if !ok {
		return models.ErrNoSession
	}
	d.logger.Debug("Scheduling branch delivery",
		zap.Int64("chat_id", user.ChatID),
		zap.String("branch_id", branch.ID),
		zap.String("delivery_id", token.String()),
	)

	newAction := func(name string, run func(ctx context.Context) error) action {
		return action{name: name, user: user, branch: branch, token: token, gated: true, run: run}
	}

	typing := func(ctx context.Context) error {
		return d.channel.SendTyping(ctx, user.ChatID)
	}

	d.scheduleLocked(0, newAction("typing", typing))

	cooldown := d.cfg.Cooldown
	count := len(branch.Lines)
	for i, line := range branch.Lines {
		at := cooldown * time.Duration(i+1)
		d.scheduleLocked(at, newAction("line", func(ctx context.Context) error {
			err := d.channel.SendText(ctx, user.ChatID, line, models.SendOptions{
				ParseMode:      models.ParseModeHTML,
				RemoveKeyboard: true,
			})
			if err == nil {
				linesDeliveredTotal.Inc()
			}
			return err
		}))
		if i+1 < count {
			d.scheduleLocked(at+d.cfg.TypingOffset, newAction("typing", typing))
		}
	}

	// Слот после последней строки. Для веток с достижением слот уведомления резервируется всегда,
	// даже если достижение уже получено.
	next := cooldown * time.Duration(count+1)
	if branch.GrantsAchievement() {
		d.scheduleLocked(next, newAction("achievement", func(ctx context.Context) error {
			return d.grantAchievement(ctx, user, *branch.Achievement)
		}))
		next += cooldown
	}

	if branch.IsTerminal() {
		// Завершение проверяет актуальность само, атомарно удаляя сессию.
		end := newAction("ending", func(ctx context.Context) error {
			return d.finish(ctx, user, branch, token)
		})
		end.gated = false
		d.scheduleLocked(next, end)
		return nil
	}

	d.scheduleLocked(next, newAction("answer_options", func(ctx context.Context) error {
		text, keyboard := d.messages.AnswerOptionsPrompt(branch)
		return d.channel.SendWithKeyboard(ctx, user.ChatID, text, keyboard)
	}))
	return nil
}

func (d *DeliveryScheduler) grantAchievement(ctx context.Context, user models.User, achievement models.Achievement) error {
	log := d.logger.With(zap.Int64("chat_id", user.ChatID), zap.String("achievement_id", achievement.ID))

	owned, err := d.achievements.Has(ctx, user.ChatID, achievement.ID)
	if err != nil {
		return fmt.Errorf("ошибка проверки достижения: %w", err)
	}
	if owned {
		log.Debug("Achievement already owned, notice skipped")
		return nil
	}

	granted, err := d.achievements.Grant(ctx, user.ChatID, achievement.ID)
	if err != nil {
		return fmt.Errorf("ошибка выдачи достижения: %w", err)
	}
	if !granted {
		log.Debug("Achievement granted concurrently, notice skipped")
		return nil
	}
	achievementsGrantedTotal.WithLabelValues(achievement.ID).Inc()
	log.Info("Achievement granted")

	return d.channel.SendText(ctx, user.ChatID, d.messages.AchievementNotice(achievement), models.SendOptions{
		ParseMode: models.ParseModeHTML,
	})
}

func (d *DeliveryScheduler) finish(ctx context.Context, user models.User, branch *models.Branch, token uuid.UUID) error {
	if !d.store.RemoveIfCurrent(user.ChatID, token) {
		d.dropStale("ending", user, branch, token)
		return nil
	}
	log := d.logger.With(zap.Int64("chat_id", user.ChatID), zap.String("branch_id", branch.ID))
	endingsReachedTotal.WithLabelValues(branch.ID).Inc()
	log.Info("Ending reached, session closed")

	if err := d.saves.SetLastBranchID(ctx, user.ChatID, nil); err != nil {
		log.Error("Failed to clear quest save", zap.Error(err))
	}
	if err := d.menu.ReturnToMainMenu(ctx, user); err != nil {
		return fmt.Errorf("ошибка возврата в главное меню: %w", err)
	}
	return nil
}

// scheduleLocked вызывается под d.mu.
func (d *DeliveryScheduler) scheduleLocked(delay time.Duration, a action) {
	d.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		// Кто удалил таймер из карты, тот и вызывает wg.Done.
		d.mu.Lock()
		_, pending := d.timers[timer]
		delete(d.timers, timer)
		d.mu.Unlock()
		if !pending {
			return
		}
		defer d.wg.Done()
		d.execute(a)
	})
	d.timers[timer] = struct{}{}
}

func (d *DeliveryScheduler) execute(a action) {
	log := d.logger.With(
		zap.String("action", a.name),
		zap.Int64("chat_id", a.user.ChatID),
		zap.String("branch_id", a.branch.ID),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in scheduled delivery action", zap.Any("panic", r))
		}
	}()

	if a.gated && !d.store.IsCurrent(a.user.ChatID, a.token) {
		d.dropStale(a.name, a.user, a.branch, a.token)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ActionTimeout)
	defer cancel()
	if err := a.run(ctx); err != nil {
		log.Error("Scheduled delivery action failed", zap.Error(err))
	}
}

func (d *DeliveryScheduler) dropStale(name string, user models.User, branch *models.Branch, token uuid.UUID) {
	staleActionsDroppedTotal.WithLabelValues(name).Inc()
	d.logger.Debug("Stale delivery action dropped",
		zap.String("action", name),
		zap.Int64("chat_id", user.ChatID),
		zap.String("branch_id", branch.ID),
		zap.String("delivery_id", token.String()),
	)
}

// Wait блокируется, пока не выполнятся или не будут остановлены все запланированные действия.
func (d *DeliveryScheduler) Wait() {
	d.wg.Wait()
}

// Stop отменяет все еще не сработавшие таймеры и запрещает новые доставки.
// Вызывается при остановке процесса до ShutdownAll.
func (d *DeliveryScheduler) Stop() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	cancelled := 0
	for timer := range d.timers {
		timer.Stop()
		delete(d.timers, timer)
		d.wg.Done()
		cancelled++
	}
	return cancelled
}

// Pending - число запланированных, но еще не сработавших действий.
func (d *DeliveryScheduler) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

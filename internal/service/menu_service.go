package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"

	"go.uber.org/zap"
)

// MenuService отвечает за главное меню, список достижений и справку.
type MenuService struct {
	channel      interfaces.MessagingChannel
	saves        interfaces.SaveRepository
	profiles     interfaces.ProfileRepository
	achievements interfaces.AchievementRepository
	catalog      interfaces.AchievementCatalog
	messages     *Messages
	logger       *zap.Logger
}

var _ interfaces.MainMenu = (*MenuService)(nil)

// NewMenuService создает сервис меню.
func NewMenuService(
	channel interfaces.MessagingChannel,
	saves interfaces.SaveRepository,
	profiles interfaces.ProfileRepository,
	achievements interfaces.AchievementRepository,
	catalog interfaces.AchievementCatalog,
	messages *Messages,
	logger *zap.Logger,
) *MenuService {
	return &MenuService{
		channel:      channel,
		saves:        saves,
		profiles:     profiles,
		achievements: achievements,
		catalog:      catalog,
		messages:     messages,
		logger:       logger.Named("MenuService"),
	}
}

// MainMenuKeyboard - первая строка: начать или продолжить, вторая: достижения и справка.
func (m *MenuService) MainMenuKeyboard(hasSave bool) models.Keyboard {
	play := m.messages.Get(MsgButtonPlay)
	if hasSave {
		play = m.messages.Get(MsgButtonContinue)
	}
	return models.Keyboard{
		Rows: [][]string{
			{play},
			{m.messages.Get(MsgButtonAchievement), m.messages.Get(MsgButtonInfo)},
		},
		Resize: true,
	}
}

// ReturnToMainMenu отправляет сообщение меню с клавиатурой.
func (m *MenuService) ReturnToMainMenu(ctx context.Context, user models.User) error {
	lastBranchID, err := m.saves.GetLastBranchID(ctx, user.ChatID)
	if err != nil {
		// Без сохранения показываем кнопку нового прохождения.
		m.logger.Error("Failed to read quest save for menu", zap.Int64("chat_id", user.ChatID), zap.Error(err))
	}
	keyboard := m.MainMenuKeyboard(lastBranchID != nil)
	if err := m.channel.SendWithKeyboard(ctx, user.ChatID, m.messages.Get(MsgMenu), keyboard); err != nil {
		return fmt.Errorf("ошибка отправки главного меню: %w", err)
	}
	return nil
}

// AchievementsText собирает список достижений пользователя с долей владельцев.
func (m *MenuService) AchievementsText(ctx context.Context, chatID int64) (string, error) {
	head := m.messages.Get(MsgAchievementListHead)

	grants, err := m.achievements.ListByChatID(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("ошибка получения достижений: %w", err)
	}

	var items []string
	for _, grant := range grants {
		achievement, ok := m.catalog.Resolve(grant.AchievementID)
		if !ok {
			m.logger.Warn("Granted achievement is not in catalog", zap.String("achievement_id", grant.AchievementID))
			continue
		}
		stats, err := m.Stats(ctx, achievement.ID)
		if err != nil {
			return "", err
		}
		percentInfo := strings.ReplaceAll(m.messages.Get(MsgAchievementPercent), "%percent%", FormatPercent(stats.Percent))
		if stats.Owners == 1 {
			percentInfo = m.messages.Get(MsgAchievementOnlyOne)
		}
		items = append(items, achievement.Name+"\n"+achievement.Description+"\n"+percentInfo)
	}

	if len(items) == 0 {
		return head + "\n\n" + m.messages.Get(MsgAchievementListEmpty), nil
	}

	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString("\n")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// AchievementStats - сколько пользователей получили достижение.
type AchievementStats struct {
	Achievement models.Achievement `json:"achievement"`
	Owners      int                `json:"owners"`
	Percent     float64            `json:"percent"`
}

// Stats считает владельцев достижения и их долю от всех профилей.
func (m *MenuService) Stats(ctx context.Context, achievementID string) (AchievementStats, error) {
	achievement, _ := m.catalog.Resolve(achievementID)
	owners, err := m.achievements.CountOwners(ctx, achievementID)
	if err != nil {
		return AchievementStats{}, fmt.Errorf("ошибка подсчета владельцев достижения %s: %w", achievementID, err)
	}
	total, err := m.profiles.CountAll(ctx)
	if err != nil {
		return AchievementStats{}, fmt.Errorf("ошибка подсчета профилей: %w", err)
	}
	stats := AchievementStats{Achievement: achievement, Owners: owners}
	if total > 0 {
		stats.Percent = float64(owners) / float64(total) * 100
	}
	return stats, nil
}

// AllStats возвращает статистику по всему каталогу.
func (m *MenuService) AllStats(ctx context.Context) ([]AchievementStats, error) {
	all := m.catalog.All()
	out := make([]AchievementStats, 0, len(all))
	for _, a := range all {
		stats, err := m.Stats(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, nil
}

// InfoText собирает справку: автор, ссылка, заголовок и список команд.
func (m *MenuService) InfoText() string {
	var sb strings.Builder
	sb.WriteString(m.messages.Get(MsgInfoAuthor) + "\n")
	sb.WriteString(m.messages.Get(MsgInfoGithub) + "\n\n")
	sb.WriteString(m.messages.Get(MsgInfoHead) + "\n")
	pattern := m.messages.Get(MsgInfoPattern)
	for _, cmd := range m.messages.InfoCommands() {
		line := strings.ReplaceAll(pattern, "%command%", "/"+cmd.Command)
		line = strings.ReplaceAll(line, "%description%", cmd.Description)
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// FormatPercent форматирует долю с точностью до двух знаков без лишних нулей: 50, 33.33, 12.5.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(math.Round(p*100)/100, 'f', -1, 64)
}

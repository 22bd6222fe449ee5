package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"quest-bot/internal/content"
	"quest-bot/internal/interfaces/mocks"
	"quest-bot/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMessages = `
wait: "Подожди"
on-disable: "Бот остановлен"
error:
  unknown-command: "Не знаю такой команды"
quest:
  exit: "Ты вышел из квеста"
  answer-options:
    head: "<b>Варианты:</b>"
menu:
  message: "Главное меню"
  keyboard:
    achievement: "Достижения"
    info: "Инфо"
    play:
      start: "Играть"
      continue: "Продолжить"
achievement:
  obtained: "Получено достижение!"
  list:
    head: "Твои достижения:"
    no-achievement: "Пока пусто"
    percent-pattern: "Есть у %percent%% игроков"
    the-only-one: "Только у тебя"
info:
  author: "Автор: test"
  github: "github.com/test"
  head: "Команды:"
  pattern: "%command% - %description%"
  commands:
    play: "начать"
    exit: "выйти"
`

func newTestMessages(t *testing.T) *Messages {
	t.Helper()
	section, err := content.Parse([]byte(testMessages), "messages.yml")
	require.NoError(t, err)
	return NewMessages(section)
}

// sentMessage - запись о вызове транспорта.
type sentMessage struct {
	Kind     string
	ChatID   int64
	Text     string
	Opts     models.SendOptions
	Keyboard *models.Keyboard
	At       time.Time
}

// recordingChannel запоминает все отправки.
type recordingChannel struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (c *recordingChannel) SendText(_ context.Context, chatID int64, text string, opts models.SendOptions) error {
	c.record(sentMessage{Kind: "text", ChatID: chatID, Text: text, Opts: opts})
	return nil
}

func (c *recordingChannel) SendTyping(_ context.Context, chatID int64) error {
	c.record(sentMessage{Kind: "typing", ChatID: chatID})
	return nil
}

func (c *recordingChannel) SendWithKeyboard(_ context.Context, chatID int64, text string, keyboard models.Keyboard) error {
	c.record(sentMessage{Kind: "keyboard", ChatID: chatID, Text: text, Keyboard: &keyboard})
	return nil
}

func (c *recordingChannel) record(m sentMessage) {
	m.At = time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
}

func (c *recordingChannel) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// texts возвращает тексты без индикаторов набора, в порядке отправки.
func (c *recordingChannel) texts(chatID int64) []string {
	var out []string
	for _, m := range c.messages() {
		if m.ChatID == chatID && m.Kind != "typing" {
			out = append(out, m.Text)
		}
	}
	return out
}

func (c *recordingChannel) count(chatID int64, kind string) int {
	n := 0
	for _, m := range c.messages() {
		if m.ChatID == chatID && m.Kind == kind {
			n++
		}
	}
	return n
}

// branchMap - источник веток для тестов.
type branchMap map[string]*models.Branch

func (b branchMap) Get(id string) (*models.Branch, bool) {
	branch, ok := b[id]
	return branch, ok
}

func testGraph() branchMap {
	explorer := &models.Achievement{ID: "explorer", Name: "Исследователь", Description: "Нашел комнату"}
	return branchMap{
		"start": {
			ID:    "start",
			Lines: []string{"line one", "line two"},
			Kind:  models.BranchCommon,
			AnswerOptions: []models.AnswerOption{
				{Text: "go left", NextBranchID: "left_room"},
				{Text: "go right", NextBranchID: "right_room"},
			},
		},
		"left_room": {
			ID:          "left_room",
			Lines:       []string{"treasure"},
			Kind:        models.BranchEndingAchievement,
			Achievement: explorer,
		},
		"right_room": {
			ID:    "right_room",
			Lines: []string{"dead end"},
			Kind:  models.BranchCommon,
			AnswerOptions: []models.AnswerOption{
				{Text: "back", NextBranchID: "start"},
				{Text: "void", NextBranchID: "nowhere"},
			},
		},
		"plain_end": {
			ID:    "plain_end",
			Lines: []string{"the end"},
			Kind:  models.BranchEnding,
		},
	}
}

// fixture собирает планировщик и контроллер сессий с моками хранилищ.
type fixture struct {
	channel      *recordingChannel
	saves        *mocks.SaveRepository
	achievements *mocks.AchievementRepository
	menu         *mocks.MainMenu
	store        *SessionStore
	scheduler    *DeliveryScheduler
	sessions     *QuestSessionService
	messages     *Messages
	graph        branchMap
}

const (
	testCooldown     = 20 * time.Millisecond
	testTypingOffset = 2 * time.Millisecond
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		channel:      &recordingChannel{},
		saves:        &mocks.SaveRepository{},
		achievements: &mocks.AchievementRepository{},
		menu:         &mocks.MainMenu{},
		messages:     newTestMessages(t),
		graph:        testGraph(),
	}
	logger := zap.NewNop()
	f.store = NewSessionStore(f.saves, logger)
	f.scheduler = NewDeliveryScheduler(f.store, f.channel, f.saves, f.achievements, f.menu, f.messages, SchedulerConfig{
		Cooldown:     testCooldown,
		TypingOffset: testTypingOffset,
	}, logger)
	f.sessions = NewQuestSessionService(f.graph, f.store, f.scheduler, f.saves, f.channel, f.menu, f.messages, logger)
	t.Cleanup(func() {
		f.scheduler.Stop()
		f.scheduler.Wait()
	})
	return f
}

func strPtr(s string) *string { return &s }

func branchIDIs(id string) interface{} {
	return mock.MatchedBy(func(v *string) bool { return v != nil && *v == id })
}

func nilBranchID() interface{} {
	return mock.MatchedBy(func(v *string) bool { return v == nil })
}

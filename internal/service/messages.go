package service

import (
	"fmt"
	"strconv"
	"strings"

	"quest-bot/internal/content"
	"quest-bot/internal/models"
)

// Ключи messages.yml
const (
	MsgWait                 = "wait"
	MsgUnknownCommand       = "error.unknown-command"
	MsgOnDisable            = "on-disable"
	MsgQuestExit            = "quest.exit"
	MsgAnswerOptionsHead    = "quest.answer-options.head"
	MsgMenu                 = "menu.message"
	MsgButtonAchievement    = "menu.keyboard.achievement"
	MsgButtonInfo           = "menu.keyboard.info"
	MsgButtonPlay           = "menu.keyboard.play.start"
	MsgButtonContinue       = "menu.keyboard.play.continue"
	MsgAchievementObtained  = "achievement.obtained"
	MsgAchievementListHead  = "achievement.list.head"
	MsgAchievementListEmpty = "achievement.list.no-achievement"
	MsgAchievementPercent   = "achievement.list.percent-pattern"
	MsgAchievementOnlyOne   = "achievement.list.the-only-one"
	MsgInfoAuthor           = "info.author"
	MsgInfoGithub           = "info.github"
	MsgInfoHead             = "info.head"
	MsgInfoPattern          = "info.pattern"
	MsgInfoCommands         = "info.commands"
)

// Messages - тексты бота из messages.yml.
type Messages struct {
	section *content.Section
}

// NewMessages оборачивает секцию с текстами.
func NewMessages(section *content.Section) *Messages {
	return &Messages{section: section}
}

// Get возвращает текст по ключу. Отсутствующий ключ возвращается как есть, чтобы его было видно в чате.
func (m *Messages) Get(key string) string {
	return m.section.StringOr(key, key)
}

// InfoCommand - строка справки.
type InfoCommand struct {
	Command     string
	Description string
}

// InfoCommands возвращает команды из info.commands в порядке файла.
func (m *Messages) InfoCommands() []InfoCommand {
	section, err := m.section.Section(MsgInfoCommands)
	if err != nil {
		return nil
	}
	var out []InfoCommand
	for _, key := range section.Keys() {
		out = append(out, InfoCommand{Command: key, Description: section.StringOr(key, "")})
	}
	return out
}

// AnswerOptionsPrompt собирает список вариантов ответа с нумерацией с 1 и клавиатуру с номерами.
func (m *Messages) AnswerOptionsPrompt(branch *models.Branch) (string, models.Keyboard) {
	var sb strings.Builder
	sb.WriteString(m.Get(MsgAnswerOptionsHead))
	sb.WriteString("\n")
	buttons := make([]string, 0, len(branch.AnswerOptions))
	for i, opt := range branch.AnswerOptions {
		number := strconv.Itoa(i + 1)
		fmt.Fprintf(&sb, "%s. %s\n", number, opt.Text)
		buttons = append(buttons, number)
	}
	return sb.String(), models.Keyboard{Rows: [][]string{buttons}, Resize: true}
}

// AchievementNotice - уведомление о полученном достижении.
func (m *Messages) AchievementNotice(a models.Achievement) string {
	return m.Get(MsgAchievementObtained) + "\n\n" + a.Name + "\n" + a.Description + "\n "
}

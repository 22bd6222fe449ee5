package models

import "time"

// ParseModeHTML - текст размечен HTML.
const ParseModeHTML = "HTML"

// OutboundMessageType - тип исходящего сообщения.
type OutboundMessageType string

const (
	OutboundText   OutboundMessageType = "text"
	OutboundTyping OutboundMessageType = "typing"
)

// Keyboard - клавиатура ответа. Каждая строка - ряд кнопок.
type Keyboard struct {
	Rows   [][]string `json:"rows"`
	Resize bool       `json:"resize"`
}

// SendOptions - параметры отправки текста.
type SendOptions struct {
	ParseMode             string
	RemoveKeyboard        bool
	DisableWebPagePreview bool
}

// OutboundMessage - сообщение, которое транспорт доставляет в чат.
type OutboundMessage struct {
	Type                  OutboundMessageType `json:"type"`
	ChatID                int64               `json:"chat_id"`
	Text                  string              `json:"text,omitempty"`
	ParseMode             string              `json:"parse_mode,omitempty"`
	Keyboard              *Keyboard           `json:"keyboard,omitempty"`
	RemoveKeyboard        bool                `json:"remove_keyboard,omitempty"`
	DisableWebPagePreview bool                `json:"disable_web_page_preview,omitempty"`
	SentAt                time.Time           `json:"sent_at"`
}

// NewTextMessage собирает текстовое сообщение.
func NewTextMessage(chatID int64, text string, opts SendOptions) OutboundMessage {
	return OutboundMessage{
		Type:                  OutboundText,
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             opts.ParseMode,
		RemoveKeyboard:        opts.RemoveKeyboard,
		DisableWebPagePreview: opts.DisableWebPagePreview,
		SentAt:                time.Now().UTC(),
	}
}

// NewTypingMessage собирает индикатор набора текста.
func NewTypingMessage(chatID int64) OutboundMessage {
	return OutboundMessage{Type: OutboundTyping, ChatID: chatID, SentAt: time.Now().UTC()}
}

// NewKeyboardMessage собирает текст с клавиатурой.
func NewKeyboardMessage(chatID int64, text string, keyboard Keyboard) OutboundMessage {
	return OutboundMessage{
		Type:      OutboundText,
		ChatID:    chatID,
		Text:      text,
		ParseMode: ParseModeHTML,
		Keyboard:  &keyboard,
		SentAt:    time.Now().UTC(),
	}
}

// InboundUpdate - входящее сообщение пользователя.
type InboundUpdate struct {
	UpdateID  string `json:"update_id,omitempty"`
	ChatID    int64  `json:"chat_id"`
	FirstName string `json:"first_name"`
	Text      string `json:"text"`
}

// User возвращает отправителя.
func (u InboundUpdate) User() User {
	return User{ChatID: u.ChatID, FirstName: u.FirstName}
}

package models

import "time"

// User - участник чата: идентификатор чата и отображаемое имя.
type User struct {
	ChatID    int64  `json:"chat_id"`
	FirstName string `json:"first_name"`
}

// Achievement - достижение из каталога.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Profile - сохраненный профиль пользователя.
type Profile struct {
	ChatID    int64     `db:"chat_id" json:"chat_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User возвращает идентичность пользователя профиля.
func (p Profile) User() User {
	return User{ChatID: p.ChatID, FirstName: p.FirstName}
}

// AchievementGrant - факт получения достижения пользователем.
type AchievementGrant struct {
	ChatID        int64     `db:"chat_id" json:"chat_id"`
	AchievementID string    `db:"achievement_id" json:"achievement_id"`
	GrantedAt     time.Time `db:"granted_at" json:"granted_at"`
}

// SessionInfo - снимок активной сессии для админки.
type SessionInfo struct {
	ChatID    int64     `json:"chat_id"`
	FirstName string    `json:"first_name"`
	BranchID  string    `json:"branch_id"`
	StartedAt time.Time `json:"started_at"`
}

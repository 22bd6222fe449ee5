package models

import "errors"

// Стандартные ошибки приложения
var (
	// Общие ошибки хранилища
	ErrNotFound = errors.New("resource not found")

	// Ошибки контента квеста
	ErrBranchNotFound      = errors.New("branch not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrMalformedSection    = errors.New("malformed content section")

	// Ошибки сессий
	ErrSessionActive    = errors.New("session is already active")
	ErrNoSession        = errors.New("no active session")
	ErrSchedulerStopped = errors.New("delivery scheduler stopped")

	// Конфигурация
	ErrInvalidConfig = errors.New("invalid configuration")
)

package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrChatTokenInvalid - токен чата не прошел проверку.
var ErrChatTokenInvalid = errors.New("invalid chat token")

// ChatClaims - клеймы токена веб-чата. Токен привязывает соединение к одному chat id.
type ChatClaims struct {
	ChatID int64 `json:"chat_id"`
	jwt.RegisteredClaims
}

// GenerateChatJWT выпускает токен для подключения к веб-чату от имени chatID.
func GenerateChatJWT(chatID int64, secretKey string, validity time.Duration) (string, error) {
	now := time.Now()
	claims := &ChatClaims{
		ChatID: chatID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign chat JWT: %w", err)
	}
	return signed, nil
}

// ParseChatJWT проверяет токен веб-чата и возвращает chat id из него.
func ParseChatJWT(tokenString, secretKey string) (int64, error) {
	claims := &ChatClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrChatTokenInvalid, err)
	}
	if !token.Valid || claims.ChatID == 0 {
		return 0, ErrChatTokenInvalid
	}
	return claims.ChatID, nil
}

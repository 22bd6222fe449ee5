package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir - стандартный путь Docker Secrets.
const DefaultSecretsDir = "/run/secrets"

// ErrSecretMissing возвращается ReadOptionalSecret, если файла секрета нет.
var ErrSecretMissing = errors.New("secret file missing")

// ReadSecret читает секрет из файла в каталоге секретов.
// Пустой dir означает DefaultSecretsDir.
func ReadSecret(dir, secretName string) (string, error) {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	filePath := filepath.Join(dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretMissing, filePath)
		}
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadOptionalSecret как ReadSecret, но отсутствующий файл - не ошибка (пустая строка).
func ReadOptionalSecret(dir, secretName string) (string, error) {
	secret, err := ReadSecret(dir, secretName)
	if errors.Is(err, ErrSecretMissing) {
		return "", nil
	}
	return secret, err
}

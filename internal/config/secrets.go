package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir - каталог Docker Secrets. Переменная, чтобы тесты могли подменить путь.
var SecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла SecretsDir/<name>.
// Если файла нет, используется переменная окружения с именем в верхнем регистре
// (jwt_secret -> JWT_SECRET), это удобно при локальном запуске.
func ReadSecret(name string) (string, error) {
	path := filepath.Join(SecretsDir, name)
	data, err := os.ReadFile(path)
	if err == nil {
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", path)
		}
		return secret, nil
	}

	if v := strings.TrimSpace(os.Getenv(strings.ToUpper(name))); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
}

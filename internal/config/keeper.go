package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// KeeperConfig - конфигурация клиентского процесса, который держит токен свежим.
type KeeperConfig struct {
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	AuthBaseURL      string        `envconfig:"AUTH_BASE_URL" default:"http://localhost:8080"`
	TokenFile        string        `envconfig:"TOKEN_FILE" default:".flashai/token"`
	RefreshInterval  time.Duration `envconfig:"REFRESH_INTERVAL" default:"60s"`
	RefreshThreshold time.Duration `envconfig:"REFRESH_THRESHOLD" default:"5m"`
	RequestTimeout   time.Duration `envconfig:"AUTH_REQUEST_TIMEOUT" default:"10s"`
	LoginEmail       string        `envconfig:"LOGIN_EMAIL"`
	LoginPassword    string        `ignored:"true"`
}

// LoadKeeperConfig загружает конфигурацию token keeper.
func LoadKeeperConfig(envFilePath string) (*KeeperConfig, error) {
	loadEnvFile(envFilePath)

	var cfg KeeperConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", cfg.RefreshInterval)
	}
	if cfg.LoginEmail != "" {
		pass, err := ReadSecret("login_password")
		if err != nil {
			return nil, err
		}
		cfg.LoginPassword = pass
	}
	return &cfg, nil
}

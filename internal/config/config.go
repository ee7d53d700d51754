package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config - конфигурация HTTP-сервера.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"flashai"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	DBPassword    string        `ignored:"true"`

	// Redis нужен только для rate limit. Пустой адрес - лимиты в памяти процесса.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	// JWT
	JWTIssuer      string        `envconfig:"JWT_ISSUER" default:"flashai"`
	JWTAudience    string        `envconfig:"JWT_AUDIENCE" default:"flashai-users"`
	AccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"1h"`
	JWTSecret      string        `ignored:"true"`
	PasswordPepper string        `ignored:"true"`

	// Rate limit для /api/auth/login и /api/auth/register
	AuthRateLimit  int           `envconfig:"AUTH_RATE_LIMIT" default:"10"`
	AuthRateWindow time.Duration `envconfig:"AUTH_RATE_WINDOW" default:"1m"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	OpenRouter OpenRouterConfig `envconfig:"OPENROUTER"`
}

// OpenRouterConfig - настройки клиента LLM. Переменные окружения с префиксом OPENROUTER_.
type OpenRouterConfig struct {
	BaseURL         string        `envconfig:"BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model           string        `envconfig:"MODEL" default:"openai/gpt-4o-mini"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"60s"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay      time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
	Referer         string        `envconfig:"REFERER" default:"https://10xdevs.com"`
	Title           string        `envconfig:"TITLE" default:"10xDevs"`
	Temperature     float32       `envconfig:"TEMPERATURE" default:"0.7"`
	MaxTokens       int           `envconfig:"MAX_TOKENS" default:"2000"`
	TopP            float32       `envconfig:"TOP_P" default:"1"`
	TokenEstimation bool          `envconfig:"TOKEN_ESTIMATION" default:"false"`
	APIKey          string        `ignored:"true"`
}

// GetDSN возвращает строку подключения к PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// MaskedDSN - DSN без пароля, для логов.
func (c *Config) MaskedDSN() string {
	return fmt.Sprintf("postgres://%s:********@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins разбивает CORSAllowedOrigins по запятой.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig читает .env (если файл есть), переменные окружения и секреты.
func LoadConfig(envFilePath string) (*Config, error) {
	loadEnvFile(envFilePath)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	var err error
	if cfg.DBPassword, err = ReadSecret("db_password"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = ReadSecret("jwt_secret"); err != nil {
		return nil, err
	}
	if cfg.PasswordPepper, err = ReadSecret("password_pepper"); err != nil {
		return nil, err
	}
	if cfg.OpenRouter.APIKey, err = ReadSecret("openrouter_api_key"); err != nil {
		return nil, err
	}

	// Необязательный секрет
	if pass, err := ReadSecret("redis_password"); err == nil {
		cfg.RedisPassword = pass
	}

	log.Printf("Configuration loaded: env=%s port=%s db=%s model=%s", cfg.Env, cfg.ServerPort, cfg.MaskedDSN(), cfg.OpenRouter.Model)
	return &cfg, nil
}

func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load %s file: %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", path, err)
	}
}

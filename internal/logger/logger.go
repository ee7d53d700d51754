package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config - настройки логгера.
type Config struct {
	Level    string // debug, info, warn, error
	Encoding string // json или console
	// OutputPath - файл для логов, по умолчанию stdout.
	OutputPath string
}

// New собирает zap.Logger по конфигурации. Неизвестный уровень заменяется на info.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	lvl := strings.ToLower(cfg.Level)
	if lvl == "" {
		lvl = "info"
	}
	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", cfg.Level, err)
		level.SetLevel(zap.InfoLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoding := strings.ToLower(cfg.Encoding)
	if encoding != "console" {
		encoding = "json"
	}

	out := cfg.OutputPath
	if out == "" {
		out = "stdout"
	}

	zapCfg := zap.Config{
		Level:             level,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{out},
		ErrorOutputPaths:  []string{"stderr"},
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// Command tokenkeeper держит локально сохраненный токен доступа свежим:
// при необходимости входит по LOGIN_EMAIL и затем периодически обновляет токен
// до истечения срока.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"flashai/internal/authclient"
	"flashai/internal/config"
	"flashai/internal/logger"
	"flashai/internal/refresher"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadKeeperConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "console"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := authclient.New(cfg.AuthBaseURL, cfg.RequestTimeout, log)
	if err != nil {
		log.Fatal("Failed to create auth client", zap.Error(err))
	}
	store := refresher.NewFileStore(cfg.TokenFile)

	if err := ensureToken(ctx, cfg, client, store, log); err != nil {
		log.Fatal("No usable token", zap.Error(err))
	}

	scheduler, err := refresher.New(refresher.Config{
		Interval:  cfg.RefreshInterval,
		Threshold: cfg.RefreshThreshold,
	}, store, client, client, log)
	if err != nil {
		log.Fatal("Failed to create token refresher", zap.Error(err))
	}
	// Одна проверка сразу при старте, дальше по расписанию.
	scheduler.Tick(ctx)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start token refresher", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("Shutting down token keeper...")
	scheduler.Stop()
}

// ensureToken входит по учетным данным из конфигурации, если токена еще нет.
func ensureToken(ctx context.Context, cfg *config.KeeperConfig, client *authclient.Client, store refresher.TokenStore, log *zap.Logger) error {
	_, err := store.Load(ctx)
	if err == nil {
		log.Info("Using stored token", zap.String("path", cfg.TokenFile))
		return nil
	}
	if !errors.Is(err, refresher.ErrNoToken) {
		return fmt.Errorf("load token: %w", err)
	}
	if cfg.LoginEmail == "" {
		return errors.New("token file is empty and LOGIN_EMAIL is not set")
	}

	resp, err := client.Login(ctx, cfg.LoginEmail, cfg.LoginPassword)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := store.Store(ctx, resp.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	log.Info("Token obtained by login", zap.String("path", cfg.TokenFile), zap.Time("expires_at", resp.ExpiresAt))
	return nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"flashai/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DBTX - общий интерфейс пула и транзакции pgx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)
)

// RetryPolicy - параметры повторных попыток подключения при старте.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy ждет базу около двух с половиной минут: в docker-compose
// сервер часто стартует раньше PostgreSQL.
var DefaultRetryPolicy = RetryPolicy{Attempts: 50, Delay: 3 * time.Second}

// Connect создает пул соединений PostgreSQL и дожидается успешного ping.
func Connect(ctx context.Context, cfg *config.Config, retry RetryPolicy, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	log := logger.With(zap.String("dsn", cfg.MaskedDSN()))
	log.Info("Attempting to connect to PostgreSQL", zap.Int("max_retries", retry.Attempts), zap.Duration("retry_delay", retry.Delay))

	var lastErr error
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				log.Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}

		lastErr = err
		log.Warn("Postgres is not ready, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == retry.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.Delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", retry.Attempts, lastErr)
}

// ConnectRedis создает клиент Redis и дожидается успешного ping.
func ConnectRedis(ctx context.Context, cfg *config.Config, retry RetryPolicy, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	log := logger.With(zap.String("address", opts.Addr), zap.Int("db", opts.DB))

	var lastErr error
	for attempt := 1; attempt <= retry.Attempts; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}
		_ = client.Close()

		lastErr = err
		log.Warn("Redis ping failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == retry.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.Delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", retry.Attempts, lastErr)
}

package database

import (
	"context"
	"embed"

	"flashai/pkg/migration"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate применяет встроенные миграции схемы.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	return migration.NewMigrator(migration.Config{
		MigrationsFS:   migrationsFS,
		MigrationsPath: "migrations",
	}, pool, logger).Up(ctx)
}

package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const (
	defaultMigrationsTable = "schema_migrations"
	lockTimeout            = 30 * time.Second
)

// Config содержит настройки для миграций
type Config struct {
	MigrationsFS   fs.FS
	MigrationsPath string
	// MigrationsTable - имя служебной таблицы golang-migrate. По умолчанию schema_migrations.
	MigrationsTable string
}

// Migrator выполняет миграции базы данных
type Migrator struct {
	config Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewMigrator создает новый экземпляр Migrator
func NewMigrator(config Config, pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	if config.MigrationsTable == "" {
		config.MigrationsTable = defaultMigrationsTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{
		config: config,
		pool:   pool,
		logger: logger.Named("Migrator"),
	}
}

// Up применяет все доступные миграции
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "apply", func(mg *migrate.Migrate) error { return mg.Up() })
}

// Down откатывает все миграции
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "roll back", func(mg *migrate.Migrate) error { return mg.Down() })
}

// Version возвращает текущую версию схемы и признак dirty.
func (m *Migrator) Version(ctx context.Context) (uint, bool, error) {
	mg, err := m.createMigrator(ctx)
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (m *Migrator) run(ctx context.Context, action string, step func(*migrate.Migrate) error) error {
	mg, err := m.createMigrator(ctx)
	if err != nil {
		return err
	}
	defer mg.Close()

	// golang-migrate не принимает контекст, отмена доходит только через GracefulStop.
	stop := context.AfterFunc(ctx, func() {
		select {
		case mg.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	err = step(mg)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Database schema is up to date")
		return nil
	}
	if err != nil {
		if version, dirty, verr := mg.Version(); verr == nil {
			m.logger.Error("Migration failed", zap.Uint("version", version), zap.Bool("dirty", dirty), zap.Error(err))
		}
		return fmt.Errorf("failed to %s migrations: %w", action, err)
	}

	version, _, _ := mg.Version()
	m.logger.Info("Database migrations finished", zap.String("action", action), zap.Uint("version", version))
	return nil
}

// createMigrator создает экземпляр migrate.Migrate поверх пула pgx.
func (m *Migrator) createMigrator(ctx context.Context) (*migrate.Migrate, error) {
	if m.config.MigrationsFS == nil {
		return nil, errors.New("migrations filesystem is not set")
	}
	if err := m.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}

	db := stdlib.OpenDBFromPool(m.pool)
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable:       m.config.MigrationsTable,
		MigrationsTableQuoted: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(m.config.MigrationsFS, m.config.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	mg.LockTimeout = lockTimeout
	return mg, nil
}

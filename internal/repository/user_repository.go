package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flashai/internal/database"
	"flashai/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	uniqueViolationCode = "23505"

	userColumns = `id, email, password_hash, role, created_at, updated_at`

	createUserQuery = `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	updatePasswordQuery = `UPDATE users SET password_hash = $2 WHERE id = $1`
)

var _ UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

// NewPgUserRepository создает репозиторий пользователей поверх PostgreSQL.
func NewPgUserRepository(db database.DBTX, logger *zap.Logger) UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

func (r *pgUserRepository) Create(ctx context.Context, user *models.User) error {
	email := normalizeEmail(user.Email)
	role := user.Role
	if role == "" {
		role = models.RoleUser
	}
	log := r.logger.With(zap.String("email", email))

	err := pgxscan.Get(ctx, r.db, user, createUserQuery, email, user.PasswordHash, role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			log.Warn("Attempted to create duplicate user by email", zap.String("constraint", pgErr.ConstraintName))
			return models.ErrEmailAlreadyExists
		}
		log.Error("Failed to create user in postgres", zap.Error(err))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	log.Info("User created successfully", zap.String("user_id", user.ID.String()))
	return nil
}

func (r *pgUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, getUserByEmailQuery, email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by email", zap.String("email", email))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by email from postgres", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to get user by email from postgres: %w", err)
	}
	return &user, nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := pgxscan.Get(ctx, r.db, &user, getUserByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found by ID", zap.String("id", id.String()))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by id from postgres", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get user by id from postgres: %w", err)
	}
	return &user, nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, updatePasswordQuery, id, passwordHash)
	if err != nil {
		r.logger.Error("Failed to update password", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	r.logger.Info("Password updated", zap.String("user_id", id.String()))
	return nil
}

// Email хранится в нижнем регистре, уникальность проверяет constraint users_email_key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package repository

import (
	"context"

	"flashai/internal/models"

	"github.com/google/uuid"
)

// UserRepository определяет методы работы с хранилищем пользователей.
type UserRepository interface {
	// Create сохраняет пользователя и заполняет ID и метки времени.
	// Возвращает models.ErrEmailAlreadyExists, если email занят.
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// GenerationErrorLogRepository - журнал неудачных обращений к LLM.
type GenerationErrorLogRepository interface {
	LogGenerationError(ctx context.Context, entry models.GenerationErrorLog) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GenerationErrorLog, error)
}

package repository

import (
	"context"
	"fmt"

	"flashai/internal/database"
	"flashai/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	insertGenerationErrorLogQuery = `
		INSERT INTO generation_error_logs
			(user_id, model, source_text_hash, source_text_length, error_code, error_message, error_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	listGenerationErrorLogsByUserQuery = `
		SELECT id, user_id, model, source_text_hash, source_text_length, error_code, error_message, error_details, created_at
		FROM generation_error_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	maxErrorMessageLength = 4000
)

var _ GenerationErrorLogRepository = (*pgGenerationErrorLogRepository)(nil)

type pgGenerationErrorLogRepository struct {
	db     database.DBTX
	logger *zap.Logger
}

func NewPgGenerationErrorLogRepository(db database.DBTX, logger *zap.Logger) GenerationErrorLogRepository {
	return &pgGenerationErrorLogRepository{
		db:     db,
		logger: logger.Named("PgGenerationErrorLogRepo"),
	}
}

// LogGenerationError сохраняет запись журнала. Реализует openrouter.ErrorLogWriter.
func (r *pgGenerationErrorLogRepository) LogGenerationError(ctx context.Context, entry models.GenerationErrorLog) error {
	message := entry.ErrorMessage
	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength]
	}

	var details any
	if len(entry.ErrorDetails) > 0 {
		details = entry.ErrorDetails
	}

	_, err := r.db.Exec(ctx, insertGenerationErrorLogQuery,
		entry.UserID,
		entry.Model,
		entry.SourceTextHash,
		entry.SourceTextLength,
		entry.ErrorCode,
		message,
		details,
	)
	if err != nil {
		r.logger.Error("Failed to insert generation error log",
			zap.String("error_code", entry.ErrorCode),
			zap.String("model", entry.Model),
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert generation error log: %w", err)
	}
	return nil
}

func (r *pgGenerationErrorLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.GenerationErrorLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []models.GenerationErrorLog
	if err := pgxscan.Select(ctx, r.db, &entries, listGenerationErrorLogsByUserQuery, userID, limit); err != nil {
		r.logger.Error("Failed to list generation error logs", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list generation error logs: %w", err)
	}
	if entries == nil {
		entries = []models.GenerationErrorLog{}
	}
	return entries, nil
}

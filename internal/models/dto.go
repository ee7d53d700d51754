package models

import (
	"time"

	"github.com/google/uuid"
)

// Коды ошибок HTTP API, не относящиеся к models.ErrorKind.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeWrongCredentials = "WRONG_CREDENTIALS"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorResponse - стандартное тело ответа об ошибке.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Auth ---

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=100"`
}

// AuthResponse возвращается при регистрации, входе и обновлении токена.
type AuthResponse struct {
	User      Identity  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MeResponse struct {
	User Identity `json:"user"`
}

type ChangePasswordResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// --- Generations ---

type GenerateFlashcardsRequest struct {
	SourceText string `json:"sourceText" binding:"required"`
}

type FlashcardProposal struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Front       string    `json:"front"`
	Back        string    `json:"back"`
}

type GenerationSummary struct {
	Model            string    `json:"model"`
	SourceTextHash   string    `json:"source_text_hash"`
	SourceTextLength int       `json:"source_text_length"`
	GeneratedCount   int       `json:"generated_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type GenerateFlashcardsResponse struct {
	Generation GenerationSummary   `json:"generation"`
	Candidates []FlashcardProposal `json:"candidates"`
}

// GenerationErrorLog - запись журнала ошибок обращений к LLM.
type GenerationErrorLog struct {
	ID               int64     `db:"id"`
	Model            string    `db:"model"`
	ErrorCode        string    `db:"error_code"`
	ErrorMessage     string    `db:"error_message"`
	SourceTextHash   string    `db:"source_text_hash"`
	SourceTextLength int       `db:"source_text_length"`
	UserID           *string   `db:"user_id"`
	ErrorDetails     []byte    `db:"error_details"`
	CreatedAt        time.Time `db:"created_at"`
}

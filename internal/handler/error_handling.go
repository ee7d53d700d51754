package handler

import (
	"errors"
	"net/http"

	"flashai/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Сообщения для ошибок LLM. Детали остаются в логах и журнале генераций.
var completionMessages = map[models.ErrorKind]string{
	models.KindRateLimit:          "Generation service is busy, please try again later",
	models.KindServer:             "Generation service is temporarily unavailable",
	models.KindTimeout:            "Generation service did not respond in time",
	models.KindResponseValidation: "Generation service returned an invalid response",
	models.KindAuth:               "Generation service rejected the request",
	models.KindUpstream:           "Generation service request failed",
	models.KindConfiguration:      "Generation service is not configured",
}

var completionStatuses = map[models.ErrorKind]int{
	models.KindRateLimit:          http.StatusTooManyRequests,
	models.KindServer:             http.StatusBadGateway,
	models.KindTimeout:            http.StatusGatewayTimeout,
	models.KindResponseValidation: http.StatusBadGateway,
	models.KindAuth:               http.StatusBadGateway,
	models.KindUpstream:           http.StatusBadGateway,
	models.KindConfiguration:      http.StatusInternalServerError,
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeWrongCredentials, Message: "Invalid email or password"}
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeDuplicateEmail, Message: "Email already exists"}
	case errors.Is(err, models.ErrUserNotFound):
		// Токен подписан верно, но пользователя уже нет.
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: string(models.KindInvalidToken), Message: "Invalid token"}
	case models.IsAuthorizationError(err):
		statusCode = http.StatusUnauthorized
		kind, _ := models.KindOf(err)
		errResp = models.ErrorResponse{Code: string(kind), Message: "Invalid token"}
	default:
		kind, ok := models.KindOf(err)
		if status, known := completionStatuses[kind]; ok && known {
			statusCode = status
			errResp = models.ErrorResponse{Code: string(kind), Message: completionMessages[kind]}
			generationsTotal.WithLabelValues(string(kind)).Inc()
			h.logger.Warn("Completion request failed", zap.String("code", string(kind)), zap.Error(err))
			break
		}
		h.logger.Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

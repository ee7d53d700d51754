package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"flashai/internal/models"

	openaigo "github.com/sashabaranov/go-openai"
)

// classify переводит ошибку попытки в ошибку таксономии и решает, можно ли повторить.
// Сетевые ошибки повторяются и после исчерпания попыток выглядят как SERVER_ERROR.
func classify(err error) (*models.Error, bool) {
	var typed *models.Error
	if errors.As(err, &typed) {
		return typed, models.IsRetryable(typed)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.WrapError(models.KindTimeout, err, "request timed out"), false
	}
	if errors.Is(err, context.Canceled) {
		return models.WrapError(models.KindUpstream, err, "request cancelled"), false
	}

	if status, ok := httpStatus(err); ok {
		return classifyStatus(status, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		e := models.WrapError(models.KindResponseValidation, err, "malformed completion response")
		e.Reason = models.ReasonMalformedJSON
		return e, false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return models.WrapError(models.KindServer, err, "network error"), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.WrapError(models.KindTimeout, err, "request timed out"), false
	}

	return models.WrapError(models.KindUpstream, err, "unexpected completion error"), false
}

func classifyStatus(status int, cause error) (*models.Error, bool) {
	e := &models.Error{StatusCode: status, Err: cause}
	switch status {
	case http.StatusUnauthorized:
		e.Kind, e.Message = models.KindAuth, "invalid API key"
		return e, false
	case http.StatusTooManyRequests:
		e.Kind, e.Message = models.KindRateLimit, "rate limit exceeded"
		return e, true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Kind, e.Message = models.KindServer, fmt.Sprintf("upstream server error %d", status)
		return e, true
	default:
		e.Kind, e.Message = models.KindUpstream, fmt.Sprintf("unexpected upstream status %d", status)
		return e, false
	}
}

// httpStatus достает HTTP-статус из ошибок go-openai.
func httpStatus(err error) (int, bool) {
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

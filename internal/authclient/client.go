package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flashai/internal/models"

	"go.uber.org/zap"
)

// CodeInvalidCredentials - код ответа сервера на неверную пару email/пароль.
const CodeInvalidCredentials = models.ErrCodeWrongCredentials

const (
	loginPath   = "/api/auth/login"
	mePath      = "/api/auth/me"
	refreshPath = "/api/auth/refresh"
)

// Client - HTTP-клиент к auth API сервера. Реализует refresher.IdentityFetcher
// и refresher.TokenMinter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New создает клиент. timeout ограничивает каждый запрос целиком.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for auth API: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("AuthClient"),
	}, nil
}

// Login выполняет вход и возвращает выданный токен.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, loginPath, "", req, &resp); err != nil {
		return models.AuthResponse{}, err
	}
	if resp.Token == "" {
		return models.AuthResponse{}, models.NewError(models.KindUpstream, "login response carries no token")
	}
	c.logger.Info("Logged in", zap.String("user_id", resp.User.ID))
	return resp, nil
}

// FetchIdentity запрашивает у сервера личность владельца токена.
func (c *Client) FetchIdentity(ctx context.Context, token string) (models.Identity, error) {
	var resp models.MeResponse
	if err := c.do(ctx, http.MethodGet, mePath, token, nil, &resp); err != nil {
		return models.Identity{}, err
	}
	if resp.User.ID == "" {
		return models.Identity{}, models.NewError(models.KindUpstream, "identity response carries no user id")
	}
	return resp.User, nil
}

// MintToken просит сервер выпустить новый токен для той же личности.
func (c *Client) MintToken(ctx context.Context, token string, identity models.Identity) (string, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, refreshPath, token, nil, &resp); err != nil {
		return "", err
	}
	if resp.User.ID != identity.ID {
		return "", models.NewError(models.KindUpstream, "refreshed token belongs to %q, expected %q", resp.User.ID, identity.ID)
	}
	if resp.Token == "" {
		return "", models.NewError(models.KindUpstream, "refresh response carries no token")
	}
	return resp.Token, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	endpoint := c.baseURL + path
	log := c.logger.With(zap.String("method", method), zap.String("url", endpoint))

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("internal error marshalling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("internal error creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("Sending request to auth API")
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Error("HTTP request to auth API failed", zap.Error(err))
		var netErr interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return models.WrapError(models.KindTimeout, err, "auth API request timed out")
		}
		return models.WrapError(models.KindServer, err, "failed to communicate with auth API")
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return models.WrapError(models.KindServer, err, "failed to read auth API response")
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Warn("Received error response from auth API", zap.Int("status", httpResp.StatusCode), zap.ByteString("body", respBody))
		return responseError(httpResp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		log.Error("Failed to unmarshal auth API response", zap.ByteString("body", respBody), zap.Error(err))
		return models.WrapError(models.KindUpstream, err, "invalid response format from auth API")
	}
	return nil
}

// responseError переводит ответ об ошибке в models.Error. Коды ошибок авторизации
// сохраняются как есть, чтобы вызывающий мог отличить отозванный токен.
func responseError(status int, body []byte) error {
	var errResp models.ErrorResponse
	_ = json.Unmarshal(body, &errResp)

	if errResp.Code == CodeInvalidCredentials {
		return fmt.Errorf("%w: %s", models.ErrInvalidCredentials, errResp.Message)
	}

	switch kind := models.ErrorKind(errResp.Code); kind {
	case models.KindMissingToken, models.KindInvalidAuthHeader, models.KindInvalidToken:
		return &models.Error{Kind: kind, Message: errResp.Message, StatusCode: status}
	}

	switch {
	case status == http.StatusUnauthorized:
		return &models.Error{Kind: models.KindInvalidToken, Message: "Invalid token", StatusCode: status}
	case status == http.StatusTooManyRequests:
		return &models.Error{Kind: models.KindRateLimit, Message: errResp.Message, StatusCode: status}
	case status >= 500:
		return &models.Error{Kind: models.KindServer, Message: errResp.Message, StatusCode: status}
	}
	return &models.Error{
		Kind:       models.KindUpstream,
		Message:    fmt.Sprintf("unexpected status %d from auth API: %s", status, errResp.Message),
		StatusCode: status,
	}
}

package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"flashai/internal/models"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultModel      = "openai/gpt-4o-mini"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second

	errorLogTimeout = 5 * time.Second
)

// Config - настройки клиента. Нулевые значения заменяются значениями по умолчанию.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Referer    string
	Title      string
	Defaults   Params
	// TokenEstimation включает локальную оценку токенов промпта (tiktoken).
	TokenEstimation bool
	// Transport - базовый http.RoundTripper, по умолчанию http.DefaultTransport.
	Transport http.RoundTripper
}

// ErrorLogWriter сохраняет записи о неудачных обращениях к модели.
type ErrorLogWriter interface {
	LogGenerationError(ctx context.Context, entry models.GenerationErrorLog) error
}

// SleepFunc ждет d или отмены ctx.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Client)

// WithSleep подменяет ожидание между попытками.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithClock подменяет источник времени для записей журнала ошибок.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client - клиент chat completions OpenRouter с таймаутом на попытку,
// повторами с экспоненциальной задержкой и проверкой ответа.
type Client struct {
	api       *openaigo.Client
	cfg       Config
	errorLog  ErrorLogWriter
	logger    *zap.Logger
	sleep     SleepFunc
	now       func() time.Time
	estimator *promptEstimator
}

// New создает клиент. Без API-ключа возвращает CONFIGURATION_ERROR.
func New(cfg Config, errorLog ErrorLogWriter, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, models.NewError(models.KindConfiguration, "OpenRouter API key is not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	apiCfg := openaigo.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{
		Transport: &headerTransport{base: cfg.Transport, referer: cfg.Referer, title: cfg.Title},
	}

	c := &Client{
		api:      openaigo.NewClientWithConfig(apiCfg),
		cfg:      cfg,
		errorLog: errorLog,
		logger:   logger.Named("OpenRouterClient"),
		sleep:    sleepContext,
		now:      time.Now,
	}
	if cfg.TokenEstimation {
		c.estimator = &promptEstimator{}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Info("OpenRouter client initialized",
		zap.String("baseURL", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("maxRetries", cfg.MaxRetries),
	)
	return c, nil
}

// Model возвращает модель по умолчанию.
func (c *Client) Model() string { return c.cfg.Model }

// SendMessage отправляет запрос и декодирует проверенный ответ в out.
// Возвращает nil либо одну ошибку *models.Error; при любой окончательной ошибке
// в журнал пишется запись.
func (c *Client) SendMessage(ctx context.Context, msg Message, out any) error {
	if v := reflect.ValueOf(out); v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: out must be a non-nil pointer, got %T", models.ErrInvalidInput, out)
	}
	if msg.UserMessage == "" {
		return fmt.Errorf("%w: user message is empty", models.ErrInvalidInput)
	}

	model := msg.Model
	if model == "" {
		model = c.cfg.Model
	}
	log := c.logger.With(zap.String("model", model), zap.String("userID", msg.UserID))

	if c.estimator != nil {
		if n, err := c.estimator.estimate(model, msg.SystemMessage, msg.UserMessage); err == nil {
			log.Debug("Estimated prompt tokens", zap.Int("tokens", n))
		} else {
			log.Debug("Prompt token estimation unavailable", zap.Error(err))
		}
	}

	resp, attempts, cerr := c.complete(ctx, c.buildRequest(msg, model), log)
	if cerr != nil {
		c.fail(ctx, msg, model, cerr, attempts)
		return cerr
	}
	observeUsage(model, resp.Usage)

	if err := ValidateResponse(resp, out); err != nil {
		var verr *models.Error
		if errors.As(err, &verr) {
			log.Warn("Completion response failed validation",
				zap.String("reason", verr.Reason),
				zap.Any("violations", verr.Violations),
			)
			c.fail(ctx, msg, model, verr, attempts)
		}
		return err
	}

	requestsTotal.WithLabelValues(model, "success").Inc()
	log.Info("Completion succeeded",
		zap.Int("attempts", attempts),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
		zap.Int("completionTokens", resp.Usage.CompletionTokens),
	)
	return nil
}

// complete выполняет попытки: не более MaxRetries повторов с задержкой RetryDelay*2^n.
func (c *Client) complete(ctx context.Context, req openaigo.ChatCompletionRequest, log *zap.Logger) (Response, int, *models.Error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, attempt + 1, nil
		}

		cerr, retry := classify(err)
		if !retry || attempt >= c.cfg.MaxRetries {
			log.Error("Completion request failed",
				zap.Int("attempt", attempt+1),
				zap.String("kind", string(cerr.Kind)),
				zap.Error(err),
			)
			return Response{}, attempt + 1, cerr
		}

		delay := c.cfg.RetryDelay * time.Duration(1<<attempt)
		log.Warn("Completion attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.String("kind", string(cerr.Kind)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		retriesTotal.WithLabelValues(req.Model, string(cerr.Kind)).Inc()
		if err := c.sleep(ctx, delay); err != nil {
			serr, _ := classify(err)
			return Response{}, attempt + 1, serr
		}
	}
}

func (c *Client) attempt(ctx context.Context, req openaigo.ChatCompletionRequest) (Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(attemptCtx, req)
	requestDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return Response{}, err
	}
	return responseFromOpenAI(resp), nil
}

func (c *Client) buildRequest(msg Message, model string) openaigo.ChatCompletionRequest {
	messages := make([]openaigo.ChatCompletionMessage, 0, 2)
	if msg.SystemMessage != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleSystem, Content: msg.SystemMessage})
	}
	messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: msg.UserMessage})

	req := openaigo.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32Val(msg.Params.Temperature, c.cfg.Defaults.Temperature),
		MaxTokens:   intVal(msg.Params.MaxTokens, c.cfg.Defaults.MaxTokens),
		TopP:        float32Val(msg.Params.TopP, c.cfg.Defaults.TopP),
	}
	if s := msg.ResponseSchema; s != nil {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
				Name:        s.Name,
				Description: s.Description,
				Schema:      s.Schema,
				Strict:      s.Strict,
			},
		}
	}
	return req
}

// fail учитывает окончательную ошибку в метриках и пишет запись в журнал.
// Ошибка записи в журнал только логируется.
func (c *Client) fail(ctx context.Context, msg Message, model string, e *models.Error, attempts int) {
	requestsTotal.WithLabelValues(model, string(e.Kind)).Inc()
	if c.errorLog == nil {
		return
	}

	details := map[string]any{"attempts": attempts}
	if e.Reason != "" {
		details["reason"] = e.Reason
	}
	if e.StatusCode != 0 {
		details["status_code"] = e.StatusCode
	}
	if len(e.Violations) > 0 {
		details["violations"] = e.Violations
	}
	if e.Err != nil {
		details["cause"] = e.Err.Error()
	}
	rawDetails, err := json.Marshal(details)
	if err != nil {
		rawDetails = nil
	}

	entry := models.GenerationErrorLog{
		Model:            model,
		ErrorCode:        string(e.Kind),
		ErrorMessage:     e.Message,
		SourceTextHash:   msg.SourceTextHash,
		SourceTextLength: msg.SourceTextLength,
		ErrorDetails:     rawDetails,
		CreatedAt:        c.now().UTC(),
	}
	if msg.UserID != "" {
		uid := msg.UserID
		entry.UserID = &uid
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), errorLogTimeout)
	defer cancel()
	if err := c.errorLog.LogGenerationError(logCtx, entry); err != nil {
		c.logger.Error("Failed to write generation error log",
			zap.String("errorCode", entry.ErrorCode),
			zap.Error(err),
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func float32Val(v *float32, def *float32) float32 {
	if v != nil {
		return *v
	}
	if def != nil {
		return *def
	}
	return 0
}

func intVal(v *int, def *int) int {
	if v != nil {
		return *v
	}
	if def != nil {
		return *def
	}
	return 0
}

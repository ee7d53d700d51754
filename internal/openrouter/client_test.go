package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"flashai/internal/mocks"
	"flashai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type scriptedReply struct {
	status int
	body   string
	delay  time.Duration
}

type ClientSuite struct {
	suite.Suite

	mu       sync.Mutex
	server   *httptest.Server
	replies  []scriptedReply
	requests []*http.Request
	bodies   [][]byte

	delays []time.Duration
	errLog *mocks.MockErrorLogWriter
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.replies = nil
	s.requests = nil
	s.bodies = nil
	s.delays = nil

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		idx := len(s.requests)
		s.requests = append(s.requests, r)
		s.bodies = append(s.bodies, body)
		reply := scriptedReply{status: http.StatusInternalServerError, body: `{"error":{"message":"no scripted reply"}}`}
		if idx < len(s.replies) {
			reply = s.replies[idx]
		}
		s.mu.Unlock()

		if reply.delay > 0 {
			select {
			case <-time.After(reply.delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		_, _ = w.Write([]byte(reply.body))
	}))
	s.T().Cleanup(s.server.Close)

	s.errLog = mocks.NewMockErrorLogWriter(s.T())
	s.client = s.newClient(Config{})
}

func (s *ClientSuite) newClient(overrides Config) *Client {
	cfg := overrides
	cfg.APIKey = "sk-or-test"
	if cfg.BaseURL == "" {
		cfg.BaseURL = s.server.URL
	}
	cfg.Referer = "https://10xdevs.com"
	cfg.Title = "10xDevs"
	c, err := New(cfg, s.errLog, nil, WithSleep(func(ctx context.Context, d time.Duration) error {
		s.delays = append(s.delays, d)
		return nil
	}))
	s.Require().NoError(err)
	return c
}

func (s *ClientSuite) script(replies ...scriptedReply) {
	s.replies = replies
}

func (s *ClientSuite) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *ClientSuite) expectErrorLog(code string) {
	s.errLog.On("LogGenerationError", mock.Anything, mock.MatchedBy(func(e models.GenerationErrorLog) bool {
		return e.ErrorCode == code &&
			e.Model == DefaultModel &&
			e.SourceTextHash == "abc123" &&
			e.SourceTextLength == 1200 &&
			e.UserID != nil && *e.UserID == "user-1"
	})).Return(nil).Once()
}

func flashcardMessage() Message {
	return Message{
		SystemMessage:    FlashcardSystemPrompt,
		UserMessage:      "source text",
		ResponseSchema:   FlashcardSchema(),
		UserID:           "user-1",
		SourceTextHash:   "abc123",
		SourceTextLength: 1200,
	}
}

func completionBody(content string) string {
	body := map[string]any{
		"id":      "gen-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

const validCards = `{"flashcards":[{"front":"  What is Go?  ","back":"A programming language."},{"front":"Who made Go?","back":"Google"}]}`

var (
	ok200  = scriptedReply{status: http.StatusOK, body: completionBody(validCards)}
	err503 = scriptedReply{status: http.StatusServiceUnavailable, body: `{"error":{"message":"overloaded","code":503}}`}
	err502 = scriptedReply{status: http.StatusBadGateway, body: `bad gateway`}
	err429 = scriptedReply{status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down","code":429}}`}
	err401 = scriptedReply{status: http.StatusUnauthorized, body: `{"error":{"message":"No auth credentials found","code":401}}`}
	err400 = scriptedReply{status: http.StatusBadRequest, body: `{"error":{"message":"bad request","code":400}}`}
)

func (s *ClientSuite) TestSuccessAfterServerErrors() {
	s.script(err503, err502, err503, ok200)

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.Require().NoError(err)

	s.Equal(4, s.calls())
	s.Equal([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, s.delays)
	s.Require().Len(set.Flashcards, 2)
	s.Equal("What is Go?", set.Flashcards[0].Front, "front must be trimmed")
	s.errLog.AssertNotCalled(s.T(), "LogGenerationError", mock.Anything, mock.Anything)
}

func (s *ClientSuite) TestServerErrorAfterRetriesExhausted() {
	s.script(err503, err503, err503, err503, ok200)
	s.expectErrorLog("SERVER_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.Require().Error(err)
	s.ErrorIs(err, models.ErrServer)

	var e *models.Error
	s.Require().True(errors.As(err, &e))
	s.Equal(http.StatusServiceUnavailable, e.StatusCode)
	s.Equal(4, s.calls())
	s.Equal([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, s.delays)
	s.Empty(set.Flashcards)
}

func (s *ClientSuite) TestAuthErrorIsNotRetried() {
	s.script(err401, ok200)
	s.expectErrorLog("AUTH_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrAuth)
	s.Equal(1, s.calls())
	s.Empty(s.delays)
}

func (s *ClientSuite) TestRateLimitIsRetried() {
	s.script(err429, ok200)

	var set FlashcardSet
	s.Require().NoError(s.client.SendMessage(context.Background(), flashcardMessage(), &set))
	s.Equal(2, s.calls())
	s.Equal([]time.Duration{time.Second}, s.delays)
}

func (s *ClientSuite) TestRateLimitExhausted() {
	s.script(err429, err429, err429, err429)
	s.expectErrorLog("RATE_LIMIT")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrRateLimit)
	s.Equal(4, s.calls())
}

func (s *ClientSuite) TestOtherStatusIsTerminal() {
	s.script(err400, ok200)
	s.expectErrorLog("UPSTREAM_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrUpstream)
	s.Equal(1, s.calls())
}

func (s *ClientSuite) TestSchemaViolation() {
	longFront := strings.Repeat("x", 201)
	s.script(scriptedReply{status: http.StatusOK, body: completionBody(`{"flashcards":[{"front":"` + longFront + `","back":"ok"}]}`)})
	s.expectErrorLog("VALIDATION_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.Require().Error(err)
	s.ErrorIs(err, models.ErrResponseValidation)

	var e *models.Error
	s.Require().True(errors.As(err, &e))
	s.Equal(models.ReasonSchemaMismatch, e.Reason)
	s.Require().Len(e.Violations, 1)
	s.Equal("flashcards[0].front", e.Violations[0].Field)
	s.Equal("max", e.Violations[0].Rule)
	s.Equal(1, s.calls(), "validation failures are never retried")
	s.Nil(set.Flashcards, "no partial data on failure")
}

func (s *ClientSuite) TestMalformedContent() {
	s.script(scriptedReply{status: http.StatusOK, body: completionBody("Sure! Here are your flashcards")})
	s.expectErrorLog("VALIDATION_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, &models.Error{Kind: models.KindResponseValidation, Reason: models.ReasonMalformedJSON})
}

func (s *ClientSuite) TestMalformedEnvelopeIsNotRetried() {
	s.script(scriptedReply{status: http.StatusOK, body: `{"choices": nope}`}, ok200)
	s.expectErrorLog("VALIDATION_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrResponseValidation)
	s.Equal(1, s.calls())
}

func (s *ClientSuite) TestTimeout() {
	s.client = s.newClient(Config{Timeout: 50 * time.Millisecond})
	s.script(scriptedReply{status: http.StatusOK, body: completionBody(validCards), delay: 2 * time.Second}, ok200)
	s.expectErrorLog("TIMEOUT")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrTimeout)
	s.Equal(1, s.calls())
	s.Empty(s.delays)
}

func (s *ClientSuite) TestConnectionRefusedBecomesServerError() {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	s.client = s.newClient(Config{BaseURL: deadURL})
	s.expectErrorLog("SERVER_ERROR")

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrServer)
	s.Equal([]time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, s.delays)
}

func (s *ClientSuite) TestErrorLogFailureDoesNotMaskError() {
	s.script(err401)
	s.errLog.On("LogGenerationError", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	var set FlashcardSet
	err := s.client.SendMessage(context.Background(), flashcardMessage(), &set)
	s.ErrorIs(err, models.ErrAuth)
}

func (s *ClientSuite) TestRequestShape() {
	s.script(ok200)

	var set FlashcardSet
	s.Require().NoError(s.client.SendMessage(context.Background(), flashcardMessage(), &set))
	s.Require().Equal(1, s.calls())

	req := s.requests[0]
	s.Equal("/chat/completions", req.URL.Path)
	s.Equal("Bearer sk-or-test", req.Header.Get("Authorization"))
	s.Equal("https://10xdevs.com", req.Header.Get("HTTP-Referer"))
	s.Equal("10xDevs", req.Header.Get("X-Title"))
	s.Contains(req.Header.Get("Content-Type"), "application/json")
	s.Contains(req.Header.Get("Accept"), "application/json")

	var payload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type       string `json:"type"`
			JSONSchema struct {
				Name   string          `json:"name"`
				Strict bool            `json:"strict"`
				Schema json.RawMessage `json:"schema"`
			} `json:"json_schema"`
		} `json:"response_format"`
	}
	s.Require().NoError(json.Unmarshal(s.bodies[0], &payload))
	s.Equal(DefaultModel, payload.Model)
	s.Require().Len(payload.Messages, 2)
	s.Equal("system", payload.Messages[0].Role)
	s.Equal("user", payload.Messages[1].Role)
	s.Equal("source text", payload.Messages[1].Content)
	s.Equal("json_schema", payload.ResponseFormat.Type)
	s.Equal("flashcards", payload.ResponseFormat.JSONSchema.Name)
	s.True(payload.ResponseFormat.JSONSchema.Strict)
	s.Contains(string(payload.ResponseFormat.JSONSchema.Schema), `"flashcards"`)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, 60*time.Second, c.cfg.Timeout)
	assert.Equal(t, 3, c.cfg.MaxRetries)
	assert.Equal(t, time.Second, c.cfg.RetryDelay)
}

func TestSendMessage_RejectsNonPointer(t *testing.T) {
	c, err := New(Config{APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	var set FlashcardSet
	assert.ErrorIs(t, c.SendMessage(context.Background(), flashcardMessage(), set), models.ErrInvalidInput)
}

func TestSleepContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"

	"flashai/internal/models"

	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respWith(content string) Response {
	return Response{Choices: []Choice{{Role: "assistant", Content: content}}}
}

func cardsJSON(cards ...[2]string) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, fmt.Sprintf(`{"front":%q,"back":%q}`, c[0], c[1]))
	}
	return `{"flashcards":[` + strings.Join(parts, ",") + `]}`
}

func TestValidateResponse_Valid(t *testing.T) {
	var set FlashcardSet
	err := ValidateResponse(respWith(cardsJSON([2]string{" Q1 ", "A1\n"}, [2]string{"Q2", "A2"})), &set)
	require.NoError(t, err)
	require.Len(t, set.Flashcards, 2)
	assert.Equal(t, FlashcardCandidate{Front: "Q1", Back: "A1"}, set.Flashcards[0])
}

func TestValidateResponse_Boundaries(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
		wantRule  string
	}{
		{"front at limit", cardsJSON([2]string{strings.Repeat("a", 200), "b"}), "", ""},
		{"front over limit", cardsJSON([2]string{strings.Repeat("a", 201), "b"}), "flashcards[0].front", "max"},
		{"back at limit", cardsJSON([2]string{"a", strings.Repeat("b", 500)}), "", ""},
		{"back over limit", cardsJSON([2]string{"a", strings.Repeat("b", 501)}), "flashcards[0].back", "max"},
		{"multibyte front at limit", cardsJSON([2]string{strings.Repeat("ж", 200), "b"}), "", ""},
		{"whitespace-only back", cardsJSON([2]string{"a", "   "}), "flashcards[0].back", "required"},
		{"empty list", `{"flashcards":[]}`, "flashcards", "min"},
		{"missing list", `{}`, "flashcards", "required"},
		{"eleven cards", cardsJSON(repeatCards(11)...), "flashcards", "max"},
		{"ten cards", cardsJSON(repeatCards(10)...), "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var set FlashcardSet
			err := ValidateResponse(respWith(tt.content), &set)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var e *models.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, models.KindResponseValidation, e.Kind)
			assert.Equal(t, models.ReasonSchemaMismatch, e.Reason)
			require.NotEmpty(t, e.Violations)
			assert.Equal(t, tt.wantField, e.Violations[0].Field)
			assert.Equal(t, tt.wantRule, e.Violations[0].Rule)
			assert.Nil(t, set.Flashcards)
		})
	}
}

func TestValidateResponse_EmptyContent(t *testing.T) {
	var set FlashcardSet
	for _, resp := range []Response{{}, respWith(""), respWith("  \n ")} {
		err := ValidateResponse(resp, &set)
		assert.ErrorIs(t, err, &models.Error{Kind: models.KindResponseValidation, Reason: models.ReasonEmptyContent})
	}
}

func TestValidateResponse_MalformedJSON(t *testing.T) {
	var set FlashcardSet
	for _, content := range []string{"not json", `{"flashcards": "nope"}`, `{"flashcards":[{"front":1}]}`} {
		err := ValidateResponse(respWith(content), &set)
		assert.ErrorIs(t, err, &models.Error{Kind: models.KindResponseValidation, Reason: models.ReasonMalformedJSON}, content)
	}
}

func TestValidateResponse_NoPartialOverwrite(t *testing.T) {
	set := FlashcardSet{Flashcards: []FlashcardCandidate{{Front: "keep", Back: "me"}}}
	err := ValidateResponse(respWith(cardsJSON([2]string{strings.Repeat("a", 201), "b"})), &set)
	require.Error(t, err)
	assert.Equal(t, "keep", set.Flashcards[0].Front)
}

func TestValidateResponse_NonStructShape(t *testing.T) {
	var out []string
	require.NoError(t, ValidateResponse(respWith(`["a","b"]`), &out))
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestValidateResponse_BadTarget(t *testing.T) {
	var set FlashcardSet
	assert.ErrorIs(t, ValidateResponse(respWith("{}"), set), models.ErrInvalidInput)
	assert.ErrorIs(t, ValidateResponse(respWith("{}"), (*FlashcardSet)(nil)), models.ErrInvalidInput)
}

func repeatCards(n int) [][2]string {
	out := make([][2]string, n)
	for i := range out {
		out[i] = [2]string{fmt.Sprintf("Q%d", i), fmt.Sprintf("A%d", i)}
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  models.ErrorKind
		wantRetry bool
	}{
		{"401 api error", &openaigo.APIError{HTTPStatusCode: 401}, models.KindAuth, false},
		{"429 api error", &openaigo.APIError{HTTPStatusCode: 429}, models.KindRateLimit, true},
		{"500", &openaigo.APIError{HTTPStatusCode: 500}, models.KindServer, true},
		{"502 request error", &openaigo.RequestError{HTTPStatusCode: 502}, models.KindServer, true},
		{"503", &openaigo.APIError{HTTPStatusCode: 503}, models.KindServer, true},
		{"504", &openaigo.APIError{HTTPStatusCode: 504}, models.KindServer, true},
		{"501", &openaigo.APIError{HTTPStatusCode: 501}, models.KindUpstream, false},
		{"404", &openaigo.RequestError{HTTPStatusCode: 404}, models.KindUpstream, false},
		{"deadline", &url.Error{Op: "Post", URL: "x", Err: context.DeadlineExceeded}, models.KindTimeout, false},
		{"dns", &url.Error{Op: "Post", URL: "x", Err: &net.DNSError{Err: "no such host", Name: "openrouter.invalid"}}, models.KindServer, true},
		{"refused", &url.Error{Op: "Post", URL: "x", Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}}, models.KindServer, true},
		{"reset", &url.Error{Op: "Post", URL: "x", Err: &net.OpError{Op: "read", Err: syscall.ECONNRESET}}, models.KindServer, true},
		{"other", errors.New("boom"), models.KindUpstream, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, retry := classify(tt.err)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantRetry, retry)
		})
	}
}

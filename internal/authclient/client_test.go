package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flashai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = models.Identity{ID: "0b6c3c8e-8d0f-4c8e-9e2a-6a1d4f0c2b11", Email: "alice@example.com", Role: "user"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, loginPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "correct horse" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Code: CodeInvalidCredentials, Message: "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, models.AuthResponse{User: alice, Token: "tok-1"})
	})

	resp, err := c.Login(context.Background(), alice.Email, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.Equal(t, alice, resp.User)

	_, err = c.Login(context.Background(), alice.Email, "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestFetchIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, mePath, r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Code: string(models.KindInvalidToken), Message: "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, models.MeResponse{User: alice})
	})

	got, err := c.FetchIdentity(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = c.FetchIdentity(context.Background(), "revoked")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestMintToken(t *testing.T) {
	owner := alice
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, refreshPath, r.URL.Path)
		assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.AuthResponse{User: owner, Token: "new"})
	})

	got, err := c.MintToken(context.Background(), "old", alice)
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	owner = models.Identity{ID: "someone-else"}
	_, err = c.MintToken(context.Background(), "old", alice)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestResponseErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"missing token code", http.StatusUnauthorized, `{"code":"MISSING_TOKEN","message":"Missing token"}`, models.ErrMissingToken},
		{"bare 401", http.StatusUnauthorized, `unauthorized`, models.ErrInvalidToken},
		{"rate limited", http.StatusTooManyRequests, `{"code":"RATE_LIMIT","message":"slow down"}`, models.ErrRateLimit},
		{"server error", http.StatusBadGateway, ``, models.ErrServer},
		{"other status", http.StatusNotFound, `{"message":"nope"}`, models.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.FetchIdentity(context.Background(), "tok")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var e *models.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.status, e.StatusCode)
		})
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":`))
	})
	_, err := c.FetchIdentity(context.Background(), "tok")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, 30*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = c.FetchIdentity(context.Background(), "tok")
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url", time.Second, nil)
	assert.Error(t, err)
}

//go:build integration

package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRateLimiter_RedisSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "Failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	cfg := RateLimitConfig{Limit: 3, Window: time.Minute}
	// Два экземпляра сервера с общим Redis делят один счетчик.
	first := newLimitedRouter(NewRateLimiter(cfg, client, nil))
	second := newLimitedRouter(NewRateLimiter(cfg, client, nil))

	assert.Equal(t, http.StatusOK, postFrom(first, "10.1.0.1").Code)
	assert.Equal(t, http.StatusOK, postFrom(second, "10.1.0.1").Code)
	assert.Equal(t, http.StatusOK, postFrom(first, "10.1.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, postFrom(second, "10.1.0.1").Code)
}

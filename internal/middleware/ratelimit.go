package middleware

import (
	"fmt"
	"net/http"
	"time"

	"flashai/internal/models"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig - не больше Limit запросов с одного IP за Window.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// NewRateLimiter строит limiter по IP клиента. Если redisClient == nil,
// счетчики живут в памяти процесса.
func NewRateLimiter(cfg RateLimitConfig, redisClient *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("RateLimiter")

	var store rateli.Store
	if redisClient != nil {
		store = rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: redisClient,
			Rate:        cfg.Window,
			Limit:       uint(cfg.Limit),
		})
	} else {
		store = rateli.InMemoryStore(&rateli.InMemoryOptions{
			Rate:  cfg.Window,
			Limit: uint(cfg.Limit),
		})
	}

	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			wait := time.Until(info.ResetTime).Round(time.Second)
			log.Warn("Rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.Time("reset_time", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", fmt.Sprintf("%d", int(wait.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    string(models.KindRateLimit),
				Message: "Too many requests. Try again in " + wait.String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}

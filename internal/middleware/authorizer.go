package middleware

import (
	"context"
	"errors"
	"net/http"

	"flashai/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var authDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flashai_auth_decisions_total",
		Help: "Authorization decisions by route class and outcome.",
	},
	[]string{"route_class", "outcome"},
)

// TokenVerifier проверяет токен и возвращает личность. Реализуется token.Codec.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (models.Identity, error)
}

type identityKey struct{}

// IdentityFromContext возвращает личность, сохраненную Authorizer.
// Отдельного сеттера для обработчиков нет.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

// Authorizer - middleware авторизации запросов по RoutePolicy.
type Authorizer struct {
	verifier TokenVerifier
	policy   RoutePolicy
	logger   *zap.Logger
}

func NewAuthorizer(verifier TokenVerifier, policy RoutePolicy, logger *zap.Logger) *Authorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authorizer{verifier: verifier, policy: policy, logger: logger.Named("Authorizer")}
}

// Handler возвращает gin middleware.
func (a *Authorizer) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		class := a.policy.Classify(path)
		log := a.logger.With(zap.String("path", path), zap.String("routeClass", string(class)))

		switch class {
		case RoutePublic:
			authDecisionsTotal.WithLabelValues(string(class), "allow").Inc()
			c.Next()

		case RouteAuthEntry:
			if _, err := a.authenticate(c); err == nil {
				log.Debug("Authenticated user on auth entry page, redirecting", zap.String("to", a.policy.LandingPath))
				authDecisionsTotal.WithLabelValues(string(class), "redirect").Inc()
				c.Redirect(http.StatusFound, a.policy.LandingPath)
				c.Abort()
				return
			}
			authDecisionsTotal.WithLabelValues(string(class), "allow").Inc()
			c.Next()

		case RouteProtectedAPI:
			if _, err := a.authenticate(c); err != nil {
				log.Warn("API request rejected", zap.Error(err))
				authDecisionsTotal.WithLabelValues(string(class), "reject").Inc()
				abortUnauthorized(c, err)
				return
			}
			authDecisionsTotal.WithLabelValues(string(class), "allow").Inc()
			c.Next()

		default:
			_, err := a.authenticate(c)
			switch {
			case err == nil:
				authDecisionsTotal.WithLabelValues(string(class), "allow").Inc()
			case errors.Is(err, models.ErrMissingToken):
				// Без заголовка страница сама решает, что показать.
				authDecisionsTotal.WithLabelValues(string(class), "anonymous").Inc()
			default:
				log.Info("Page request with invalid credentials, redirecting to login", zap.Error(err))
				authDecisionsTotal.WithLabelValues(string(class), "redirect").Inc()
				c.Redirect(http.StatusFound, a.policy.LoginPath)
				c.Abort()
				return
			}
			c.Next()
		}
	}
}

// authenticate извлекает и проверяет токен; при успехе кладет личность в контекст запроса.
func (a *Authorizer) authenticate(c *gin.Context) (models.Identity, error) {
	raw, err := ExtractBearerToken(c.Request.Header)
	if err != nil {
		return models.Identity{}, err
	}
	identity, err := a.verifier.Verify(c.Request.Context(), raw)
	if err != nil {
		return models.Identity{}, err
	}
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityKey{}, identity))
	return identity, nil
}

// abortUnauthorized отвечает 401 с кодом вида ошибки. Истекший токен отдается
// как обычный INVALID_TOKEN.
func abortUnauthorized(c *gin.Context, err error) {
	resp := models.ErrorResponse{Code: string(models.KindInvalidToken), Message: "Invalid token"}
	var e *models.Error
	if errors.As(err, &e) {
		resp.Code = string(e.Kind)
		if e.Message != "" {
			resp.Message = e.Message
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
}

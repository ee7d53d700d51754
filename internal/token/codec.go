package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flashai/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	DefaultIssuer   = "flashai"
	DefaultAudience = "flashai-users"
	DefaultTTL      = time.Hour

	// invalidTokenMessage одинаков для всех отказов, причина пишется только в лог.
	invalidTokenMessage = "Invalid token"
)

var allowedMethods = []string{jwt.SigningMethodHS256.Alg()}

// Config - параметры кодека. Не меняются после создания.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Claims - полезная нагрузка токена.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Token - подписанный токен и срок его действия.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec выпускает и проверяет HS256 токены.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewCodec создает кодек. Пустой секрет - ошибка конфигурации, а не рабочий
// кодек с пустым ключом.
func NewCodec(cfg Config, logger *zap.Logger, opts ...Option) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, models.NewError(models.KindConfiguration, "JWT secret cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Codec{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
		logger:   logger.Named("TokenCodec"),
	}
	if c.issuer == "" {
		c.issuer = DefaultIssuer
	}
	if c.audience == "" {
		c.audience = DefaultAudience
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL возвращает время жизни выпускаемых токенов.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint подписывает токен для identity. iat = сейчас, exp = iat + TTL.
func (c *Codec) Mint(identity models.Identity) (Token, error) {
	if identity.ID == "" {
		return Token{}, fmt.Errorf("%w: identity without subject", models.ErrInvalidInput)
	}
	role := identity.Role
	if role == "" {
		role = models.RoleUser
	}

	now := c.now()
	claims := Claims{
		Email: identity.Email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return Token{
		Value:     signed,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify проверяет алгоритм, подпись, issuer, audience, exp и iat и возвращает Identity.
// Любой отказ - INVALID_TOKEN с одинаковым сообщением; если причина только в
// истекшем сроке, у ошибки Reason = "expired".
func (c *Codec) Verify(ctx context.Context, raw string) (models.Identity, error) {
	log := c.logger.With(zap.String("tokenSnippet", tokenSnippet(raw)))

	claims, err := c.parse(raw, c.now)
	if err != nil {
		if c.onlyExpired(raw, claims, err) {
			log.Debug("Token expired", zap.Error(err))
			return models.Identity{}, &models.Error{Kind: models.KindInvalidToken, Reason: models.ReasonExpired, Message: invalidTokenMessage}
		}
		log.Warn("Failed to parse or verify token", zap.Error(err))
		return models.Identity{}, &models.Error{Kind: models.KindInvalidToken, Message: invalidTokenMessage}
	}

	if claims.Subject == "" {
		log.Warn("Token missing subject")
		return models.Identity{}, &models.Error{Kind: models.KindInvalidToken, Message: invalidTokenMessage}
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	return models.Identity{ID: claims.Subject, Email: claims.Email, Role: role}, nil
}

func (c *Codec) parse(raw string, now func() time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods(allowedMethods),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	return claims, err
}

// onlyExpired повторяет проверку на момент за секунду до exp. Если токен тогда
// проходит, то единственная причина отказа - истекший срок.
func (c *Codec) onlyExpired(raw string, claims *Claims, err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) || claims == nil || claims.ExpiresAt == nil {
		return false
	}
	atExpiry := claims.ExpiresAt.Add(-time.Second)
	_, retryErr := c.parse(raw, func() time.Time { return atExpiry })
	return retryErr == nil
}

// DecodeExpiry читает exp без проверки подписи. Используется только для
// планирования обновления на клиенте, никогда для авторизации.
func DecodeExpiry(raw string) (time.Time, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// tokenSnippet возвращает безопасную для логов часть токена.
func tokenSnippet(raw string) string {
	const limit = 15
	if len(raw) > limit {
		return raw[:limit] + "..."
	}
	return raw
}

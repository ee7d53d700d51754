package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"flashai/internal/models"
	"flashai/internal/repository"
	"flashai/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 100
)

// TokenIssuer выпускает токены доступа. Реализуется token.Codec.
type TokenIssuer interface {
	Mint(identity models.Identity) (token.Token, error)
}

// AuthService - регистрация, вход и операции над текущим пользователем.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Me(ctx context.Context, identity models.Identity) (models.Identity, error)
	Refresh(ctx context.Context, identity models.Identity) (*models.AuthResponse, error)
	ChangePassword(ctx context.Context, identity models.Identity, currentPassword, newPassword string) (*models.ChangePasswordResponse, error)
}

var _ AuthService = (*authServiceImpl)(nil)

type AuthOption func(*authServiceImpl)

// WithBcryptCost задает стоимость bcrypt (в тестах - bcrypt.MinCost).
func WithBcryptCost(cost int) AuthOption {
	return func(s *authServiceImpl) { s.bcryptCost = cost }
}

type authServiceImpl struct {
	users      repository.UserRepository
	issuer     TokenIssuer
	pepper     string
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(users repository.UserRepository, issuer TokenIssuer, pepper string, logger *zap.Logger, opts ...AuthOption) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &authServiceImpl{
		users:      users,
		issuer:     issuer,
		pepper:     pepper,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.Named("AuthService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *authServiceImpl) Register(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := s.logger.With(zap.String("email", email))

	if _, err := mail.ParseAddress(email); err != nil {
		log.Warn("Registration attempt with invalid email format", zap.Error(err))
		return nil, fmt.Errorf("%w: invalid email format", models.ErrInvalidInput)
	}
	if err := validatePassword(password); err != nil {
		log.Warn("Registration attempt with weak password", zap.Error(err))
		return nil, err
	}

	hash, err := hashPassword(password, s.pepper, s.bcryptCost)
	if err != nil {
		log.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash, Role: models.RoleUser}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, models.ErrEmailAlreadyExists) {
			log.Error("Failed to create user via repository", zap.Error(err))
		}
		return nil, err
	}

	log.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	return s.issue(user.Identity())
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	log := s.logger.With(zap.String("email", email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			log.Warn("Login failed: user not found")
			return nil, models.ErrInvalidCredentials
		}
		log.Error("Login failed: error getting user from repository", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash, s.pepper) {
		log.Warn("Login failed: invalid password", zap.String("user_id", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}

	log.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	return s.issue(user.Identity())
}

// Me возвращает личность из хранилища, а не из токена: роль и email могли измениться.
func (s *authServiceImpl) Me(ctx context.Context, identity models.Identity) (models.Identity, error) {
	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return models.Identity{}, err
	}
	return user.Identity(), nil
}

func (s *authServiceImpl) Refresh(ctx context.Context, identity models.Identity) (*models.AuthResponse, error) {
	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Refreshing token", zap.String("user_id", user.ID.String()))
	return s.issue(user.Identity())
}

func (s *authServiceImpl) ChangePassword(ctx context.Context, identity models.Identity, currentPassword, newPassword string) (*models.ChangePasswordResponse, error) {
	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("user_id", user.ID.String()))

	if !checkPasswordHash(currentPassword, user.PasswordHash, s.pepper) {
		log.Warn("Change password failed: current password mismatch")
		return nil, models.ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}
	if newPassword == currentPassword {
		return nil, fmt.Errorf("%w: new password must differ from the current one", models.ErrInvalidInput)
	}

	hash, err := hashPassword(newPassword, s.pepper, s.bcryptCost)
	if err != nil {
		log.Error("Failed to hash new password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		log.Error("Failed to update password via repository", zap.Error(err))
		return nil, err
	}

	tok, err := s.issuer.Mint(user.Identity())
	if err != nil {
		log.Error("Failed to mint token after password change", zap.Error(err))
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}
	log.Info("Password changed")
	return &models.ChangePasswordResponse{Message: "Password changed successfully", Token: tok.Value}, nil
}

func (s *authServiceImpl) loadUser(ctx context.Context, identity models.Identity) (*models.User, error) {
	id, err := uuid.Parse(identity.ID)
	if err != nil {
		s.logger.Warn("Token subject is not a user id", zap.String("subject", identity.ID))
		return nil, models.ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			s.logger.Error("Failed to load user", zap.String("user_id", identity.ID), zap.Error(err))
		}
		return nil, err
	}
	return user, nil
}

func (s *authServiceImpl) issue(identity models.Identity) (*models.AuthResponse, error) {
	tok, err := s.issuer.Mint(identity)
	if err != nil {
		s.logger.Error("Failed to mint token", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}
	return &models.AuthResponse{User: identity, Token: tok.Value, ExpiresAt: tok.ExpiresAt}, nil
}

// validatePassword: 8..100 символов, хотя бы одна буква и одна цифра.
func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("%w: password must be between %d and %d characters long", models.ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return fmt.Errorf("%w: password must contain at least one letter and one number", models.ErrInvalidInput)
	}
	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/valutatrade/pkg/config"
	"github.com/amirasaad/valutatrade/pkg/domain"
	"github.com/amirasaad/valutatrade/pkg/domain/user"
	"github.com/amirasaad/valutatrade/pkg/domain/wallet"
	"github.com/amirasaad/valutatrade/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// dummyHash is compared against when the user does not exist, so unknown
// usernames cost as much as wrong passwords.
const dummyHash = "$2a$10$7zFqzDbD3RrlkMTczbXG9OWZ0FLOXjIxXzSZ.QZxkVXjXcx7QZQiC"

type Service struct {
	users      repository.UserRepository
	portfolios repository.PortfolioRepository
	cfg        *config.Jwt
	logger     *slog.Logger
}

func New(
	users repository.UserRepository,
	portfolios repository.PortfolioRepository,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.Jwt{}
	}
	return &Service{
		users:      users,
		portfolios: portfolios,
		cfg:        cfg,
		logger:     logger.With("service", "AuthService"),
	}
}

// Register creates the user and an empty portfolio.
func (s *Service) Register(ctx context.Context, username, password string) (*user.User, error) {
	log := s.logger.With("context", "Register", "username", username)
	log.Debug("Register called")

	u, err := user.NewUser(username, password)
	if err != nil {
		log.Error("Register failed", "error", err)
		return nil, err
	}
	existing, err := s.users.GetByUsername(ctx, u.Username)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		log.Error("Register failed", "error", domain.ErrAlreadyExists)
		return nil, fmt.Errorf("%w: username '%s' is already taken", domain.ErrAlreadyExists, u.Username)
	}
	if err := s.users.Create(ctx, u); err != nil {
		log.Error("Register failed", "error", err)
		return nil, err
	}
	if err := s.portfolios.Write(ctx, wallet.NewPortfolio(u.ID)); err != nil {
		log.Error("Register failed to create portfolio", "error", err)
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	log.Info("Register successful", "userID", u.ID)
	return u, nil
}

// Login returns the user when password matches.
func (s *Service) Login(ctx context.Context, username, password string) (*user.User, error) {
	username = strings.TrimSpace(username)
	log := s.logger.With("context", "Login", "username", username)
	log.Debug("Login called")

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		_ = user.CheckPassword(password, dummyHash)
		log.Error("Login failed", "error", "user not found")
		return nil, fmt.Errorf("%w: user '%s' not found", domain.ErrNotFound, username)
	}
	if !u.VerifyPassword(password) {
		log.Error("Login failed", "error", domain.ErrUnauthorized)
		return nil, fmt.Errorf("%w: wrong password", domain.ErrUnauthorized)
	}
	log.Info("Login successful", "userID", u.ID)
	return u, nil
}

// GenerateToken issues an HS256 token carrying the user id.
func (s *Service) GenerateToken(u *user.User) (string, error) {
	log := s.logger.With("userID", u.ID)
	token := jwt.New(jwt.SigningMethodHS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["username"] = u.Username
	claims["user_id"] = u.ID.String()
	claims["exp"] = time.Now().Add(s.cfg.Expiry).Unix()
	tokenString, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		log.Error("GenerateToken failed", "error", err)
		return "", err
	}
	log.Debug("GenerateToken successful")
	return tokenString, nil
}

// GetCurrentUserID extracts the user id from a validated token.
func (s *Service) GetCurrentUserID(token *jwt.Token) (uuid.UUID, error) {
	if token == nil {
		return uuid.Nil, domain.ErrPermissionDenied
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, domain.ErrPermissionDenied
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, domain.ErrPermissionDenied
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Error("GetCurrentUserID failed", "error", err)
		return uuid.Nil, domain.ErrPermissionDenied
	}
	return id, nil
}

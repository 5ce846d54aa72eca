package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	// Authenticate проверяет токен и существование пользователя.
	// Любая проблема с токеном дает ErrUnauthenticated.
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Identity, error)
}

type RegisterInput struct {
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	FirstName         string  `json:"firstName"`
	LastName          string  `json:"lastName"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type authService struct {
	userRepo repositories.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, ValidationError("password is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if firstName == "" || lastName == "" {
		return nil, ValidationError("first name and last name are required")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         firstName,
		LastName:          lastName,
		ProfilePictureURL: trimOptional(input.ProfilePictureURL),
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int("user_id", user.ID))
	return s.issue(user)
}

// Login возвращает одну и ту же ошибку для неизвестного email и неверного пароля.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ValidationError("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			auth.SpendCompare(input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	ok, err := auth.CheckPasswordHash(input.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, nil, identity.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.logger.DebugContext(ctx, "token refers to a deleted user", slog.Int("user_id", identity.UserID))
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, fmt.Errorf("failed to load user %d: %w", identity.UserID, err)
	}
	return user, identity, nil
}

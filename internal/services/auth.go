package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
	bcryptCost     = 12
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

type AuthService struct {
	users            userStore
	tokens           TokenStore
	jwt              *middleware.JWTAuth
	refreshTTL       time.Duration
	allowAdminSignup bool
}

func NewAuthService(users userStore, tokens TokenStore, jwt *middleware.JWTAuth, refreshTTL time.Duration, allowAdminSignup bool) *AuthService {
	return &AuthService{
		users:            users,
		tokens:           tokens,
		jwt:              jwt,
		refreshTTL:       refreshTTL,
		allowAdminSignup: allowAdminSignup,
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	username := normalizeUsername(req.Username)
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = models.RoleUser
	}

	// Validate all fields at once
	fieldErrors := make(map[string]string)
	if len(username) < minUsernameLen {
		fieldErrors["username"] = fmt.Sprintf("Username must be at least %d characters", minUsernameLen)
	}
	if len(req.Password) < minPasswordLen {
		fieldErrors["password"] = fmt.Sprintf("Password must be at least %d characters", minPasswordLen)
	}
	if !models.ValidRole(role) {
		fieldErrors["role"] = "Role must be user or admin"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	if role == models.RoleAdmin && !s.allowAdminSignup {
		total, err := s.users.Count(ctx)
		if err != nil {
			return nil, err
		}
		if total > 0 {
			return nil, &ForbiddenError{Message: "Admin accounts cannot be self-registered"}
		}
	}

	// Check uniqueness
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, &ConflictError{Message: "Username already taken"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user registered", slog.String("user_id", user.ID.String()), slog.String("role", user.Role))

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user, AuthTokens: *tokens}, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByUsername(ctx, normalizeUsername(req.Username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Invalid username or password"}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid username or password"}
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user, AuthTokens: *tokens}, nil
}

// RefreshToken exchanges a refresh token for a new pair. The presented
// token is consumed, so replaying it fails.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, &ValidationError{Fields: map[string]string{"refresh_token": "Refresh token is required"}}
	}

	userIDStr, err := s.tokens.Take(ctx, refreshKey(refreshToken))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
		}
		return nil, err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &UnauthorizedError{Message: "Account no longer exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout drops the refresh token and revokes the current access token until
// it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, refreshToken, jti string, accessExpiry time.Time) error {
	if refreshToken != "" {
		if _, err := s.tokens.Take(ctx, refreshKey(refreshToken)); err != nil && !errors.Is(err, ErrTokenNotFound) {
			return err
		}
	}

	if jti == "" {
		return nil
	}
	ttl := time.Until(accessExpiry)
	if ttl <= 0 {
		return nil
	}
	return s.tokens.Save(ctx, revokedKey(jti), "1", ttl)
}

func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.tokens.Exists(ctx, revokedKey(jti))
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, _, err := s.jwt.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Save(ctx, refreshKey(refreshToken), user.ID.String(), s.refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.jwt.AccessTTL.Seconds()),
	}, nil
}

func refreshKey(token string) string { return "refresh:" + token }

func revokedKey(jti string) string { return "revoked:" + jti }

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var _ middleware.RevocationChecker = (*AuthService)(nil)

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

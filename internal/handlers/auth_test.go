package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"recognition-backend/internal/media"
	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
	"recognition-backend/internal/services"
)

type stubAuthService struct {
	registerErr error
	loginErr    error
	user        *models.User

	loggedOutRefresh string
	loggedOutJTI     string
}

func (s *stubAuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &models.AuthResponse{
		User:       &models.User{ID: uuid.New(), Username: req.Username, Role: models.RoleUser},
		AuthTokens: models.AuthTokens{AccessToken: "access", RefreshToken: "refresh", TokenType: "bearer"},
	}, nil
}

func (s *stubAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &models.AuthResponse{User: s.user, AuthTokens: models.AuthTokens{AccessToken: "access"}}, nil
}

func (s *stubAuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	return &models.AuthTokens{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, refreshToken, jti string, accessExpiry time.Time) error {
	s.loggedOutRefresh = refreshToken
	s.loggedOutJTI = jti
	return nil
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil {
		return nil, &services.NotFoundError{Message: "User not found"}
	}
	return s.user, nil
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func TestAuthHandler_Register(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "secret1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	var resp models.AuthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.User == nil || resp.User.Username != "alice" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if resp.AccessToken != "access" {
		t.Fatalf("expected access token, got %q", resp.AccessToken)
	}
}

func TestAuthHandler_RegisterErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed body", nil, "{", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"validation", &services.ValidationError{Fields: map[string]string{"username": "too short"}}, `{"username":"a"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "Username already taken"}, `{"username":"alice"}`, http.StatusConflict, "CONFLICT"},
		{"admin forbidden", &services.ForbiddenError{Message: "Admin signup disabled"}, `{"username":"alice","role":"admin"}`, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(&stubAuthService{registerErr: tc.err})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()
			h.Register(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rr.Code)
			}
			if got := decodeError(t, rr).Code; got != tc.wantErr {
				t.Fatalf("expected error code %q, got %q", tc.wantErr, got)
			}
		})
	}
}

func TestAuthHandler_LoginUnauthorized(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{loginErr: &services.UnauthorizedError{Message: "Invalid username or password"}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{"username":"alice","password":"nope"}`)))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestAuthHandler_LogoutWithoutBody(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.TokenIDKey, "jti-1"))
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if svc.loggedOutJTI != "jti-1" {
		t.Fatalf("expected access token id to be revoked, got %q", svc.loggedOutJTI)
	}
	if svc.loggedOutRefresh != "" {
		t.Fatalf("expected no refresh token, got %q", svc.loggedOutRefresh)
	}
}

func TestAuthHandler_MeNotFound(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestHandleServiceError_MediaKinds(t *testing.T) {
	tests := []struct {
		kind     media.ErrorKind
		wantCode int
	}{
		{media.KindInvalidInput, http.StatusBadRequest},
		{media.KindPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{media.KindRedirectLoop, http.StatusBadRequest},
		{media.KindNoMediaFound, http.StatusBadRequest},
		{media.KindUnsupportedContent, http.StatusUnsupportedMediaType},
		{media.KindDownloadFailed, http.StatusUnprocessableEntity},
		{media.KindNoFramesAnalyzed, http.StatusUnprocessableEntity},
		{media.KindDependencyMissing, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := &media.Error{Kind: tc.kind, Message: "public message", Err: errors.New("internal detail")}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rr := httptest.NewRecorder()
			handleServiceError(rr, req, err)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, rr.Code)
			}
			if msg := decodeError(t, rr).Message; msg != "public message" {
				t.Fatalf("expected public message only, got %q", msg)
			}
		})
	}
}

func TestHandleServiceError_Unknown(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handleServiceError(rr, req, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if code := decodeError(t, rr).Code; code != "INTERNAL_ERROR" {
		t.Fatalf("expected INTERNAL_ERROR, got %q", code)
	}
}

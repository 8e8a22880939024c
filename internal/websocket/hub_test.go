package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"recognition-backend/internal/middleware"
)

type stubParser struct {
	claims *middleware.AccessClaims
}

func (s stubParser) ParseAccessToken(tokenStr string) (*middleware.AccessClaims, error) {
	if s.claims == nil || tokenStr != "good" {
		return nil, middleware.ErrInvalidToken
	}
	return s.claims, nil
}

type stubRevocations struct {
	revoked bool
	err     error
}

func (s stubRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked, s.err
}

func TestHub_Authenticate(t *testing.T) {
	userID := uuid.New()
	claims := &middleware.AccessClaims{UserID: userID, JTI: "jti-1", ExpiresAt: time.Now().Add(time.Minute)}

	tests := []struct {
		name        string
		query       string
		revocations middleware.RevocationChecker
		wantOK      bool
	}{
		{"missing token", "", nil, false},
		{"invalid token", "?token=bad", nil, false},
		{"valid token", "?token=good", nil, true},
		{"revoked token", "?token=good", stubRevocations{revoked: true}, false},
		{"revocation lookup fails", "?token=good", stubRevocations{err: errors.New("redis down")}, false},
		{"not revoked", "?token=good", stubRevocations{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHub(nil, stubParser{claims: claims}, tc.revocations)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws"+tc.query, nil)

			got, ok := h.authenticate(req)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if ok && got != userID {
				t.Fatalf("expected user %s, got %s", userID, got)
			}
		})
	}
}

func TestHub_RejectsUnauthenticatedUpgrade(t *testing.T) {
	h := NewHub(nil, stubParser{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=bad", nil)
	rr := httptest.NewRecorder()
	h.HandleWebSocket(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"recognition-backend/internal/middleware"
	"recognition-backend/internal/models"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (m *memUserStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.Username] = user
	return nil
}

func (m *memUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type memTokenStore struct {
	mu   sync.Mutex
	vals map[string]string
	ttls map[string]time.Duration
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{vals: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *memTokenStore) Save(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memTokenStore) Take(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(m.vals, key)
	return v, nil
}

func (m *memTokenStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vals[key]
	return ok, nil
}

func newTestAuthService(allowAdmin bool) (*AuthService, *memUserStore, *memTokenStore) {
	users := newMemUserStore()
	tokens := newMemTokenStore()
	jwt := middleware.NewJWTAuth("test-secret", 15*time.Minute)
	return NewAuthService(users, tokens, jwt, 7*24*time.Hour, allowAdmin), users, tokens
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _, _ := newTestAuthService(false)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: " ab ", Password: "123", Role: "root"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"username", "password", "role"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected field error for %s", field)
		}
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _, tokens := newTestAuthService(false)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Username: "  Alice ", Password: "secret1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if resp.User.Username != "alice" || resp.User.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.TokenType != "bearer" || resp.ExpiresIn != 900 {
		t.Fatalf("unexpected tokens: %+v", resp.AuthTokens)
	}
	if tokens.ttls[refreshKey(resp.RefreshToken)] != 7*24*time.Hour {
		t.Fatalf("refresh token stored with wrong TTL")
	}

	if _, err := svc.Register(ctx, models.RegisterRequest{Username: "ALICE", Password: "secret1"}); !isConflict(err) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}

	if _, err := svc.Login(ctx, models.LoginRequest{Username: "alice", Password: "wrong"}); !isUnauthorized(err) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, models.LoginRequest{Username: "bob", Password: "secret1"}); !isUnauthorized(err) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}

	login, err := svc.Login(ctx, models.LoginRequest{Username: "Alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatalf("expected same user on login")
	}
}

func TestAuthService_AdminSignup(t *testing.T) {
	t.Run("first user may be admin", func(t *testing.T) {
		svc, _, _ := newTestAuthService(false)
		resp, err := svc.Register(context.Background(), models.RegisterRequest{Username: "root", Password: "secret1", Role: "admin"})
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if resp.User.Role != models.RoleAdmin {
			t.Fatalf("expected admin role, got %q", resp.User.Role)
		}
	})

	t.Run("later admin signup is forbidden", func(t *testing.T) {
		svc, _, _ := newTestAuthService(false)
		ctx := context.Background()
		if _, err := svc.Register(ctx, models.RegisterRequest{Username: "first", Password: "secret1"}); err != nil {
			t.Fatal(err)
		}
		_, err := svc.Register(ctx, models.RegisterRequest{Username: "second", Password: "secret1", Role: "admin"})
		var ferr *ForbiddenError
		if !errors.As(err, &ferr) {
			t.Fatalf("expected ForbiddenError, got %v", err)
		}
	})

	t.Run("allowed by configuration", func(t *testing.T) {
		svc, _, _ := newTestAuthService(true)
		ctx := context.Background()
		if _, err := svc.Register(ctx, models.RegisterRequest{Username: "first", Password: "secret1"}); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Register(ctx, models.RegisterRequest{Username: "second", Password: "secret1", Role: "admin"}); err != nil {
			t.Fatalf("expected admin signup to be allowed, got %v", err)
		}
	})
}

func TestAuthService_RefreshRotation(t *testing.T) {
	svc, _, _ := newTestAuthService(false)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Username: "carol", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}

	rotated, err := svc.RefreshToken(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken == resp.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}

	if _, err := svc.RefreshToken(ctx, resp.RefreshToken); !isUnauthorized(err) {
		t.Fatalf("expected replayed refresh token to be rejected, got %v", err)
	}
}

func TestAuthService_LogoutRevokesAccessToken(t *testing.T) {
	svc, _, tokens := newTestAuthService(false)
	ctx := context.Background()

	resp, err := svc.Register(ctx, models.RegisterRequest{Username: "dave", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}

	jwt := middleware.NewJWTAuth("test-secret", 15*time.Minute)
	claims, err := jwt.ParseAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Logout(ctx, resp.RefreshToken, claims.JTI, claims.ExpiresAt); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	revoked, err := svc.IsRevoked(ctx, claims.JTI)
	if err != nil || !revoked {
		t.Fatalf("expected access token to be revoked, got %v %v", revoked, err)
	}
	if ttl := tokens.ttls[revokedKey(claims.JTI)]; ttl <= 0 || ttl > 15*time.Minute {
		t.Fatalf("revocation TTL should track token expiry, got %v", ttl)
	}
	if _, err := svc.RefreshToken(ctx, resp.RefreshToken); !isUnauthorized(err) {
		t.Fatalf("expected refresh token to be gone after logout, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, _, _ := newTestAuthService(false)

	_, err := svc.Me(context.Background(), uuid.New())
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func isConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func isUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	RoleKey     contextKey = "role"
	TokenIDKey  contextKey = "token_id"
	TokenExpKey contextKey = "token_exp"
)

const (
	tokenTypeAccess = "access"
	defaultTTL      = 15 * time.Minute
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// RevocationChecker reports whether an access token's JTI was revoked
// before its natural expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AccessClaims is the validated content of an access token.
type AccessClaims struct {
	UserID    uuid.UUID
	Role      string
	JTI       string
	ExpiresAt time.Time
}

type JWTAuth struct {
	Secret    []byte
	AccessTTL time.Duration
	revoked   RevocationChecker
}

func NewJWTAuth(secret string, accessTTL time.Duration) *JWTAuth {
	if accessTTL <= 0 {
		accessTTL = defaultTTL
	}
	return &JWTAuth{Secret: []byte(secret), AccessTTL: accessTTL}
}

// SetRevocationChecker installs the store consulted on every request.
func (j *JWTAuth) SetRevocationChecker(c RevocationChecker) {
	j.revoked = c
}

// GenerateAccessToken creates a signed access JWT and returns it with its JTI.
func (j *JWTAuth) GenerateAccessToken(userID uuid.UUID, role string) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"typ":  tokenTypeAccess,
		"jti":  jti,
		"iat":  now.Unix(),
		"exp":  now.Add(j.AccessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.Secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// ParseAccessToken verifies signature, expiry and token type.
func (j *JWTAuth) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if typ, _ := claims["typ"].(string); typ != tokenTypeAccess {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	return &AccessClaims{UserID: userID, Role: role, JTI: jti, ExpiresAt: exp.Time}, nil
}

// Middleware validates JWT and attaches the caller's identity to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		// Must be Bearer format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		claims, err := j.ParseAccessToken(parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		if j.revoked != nil {
			revoked, err := j.revoked.IsRevoked(r.Context(), claims.JTI)
			if err != nil {
				slog.Error("revocation check failed", slog.String("jti", claims.JTI), slog.Any("error", err))
				writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Unable to verify token", r)
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked", r)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole rejects authenticated callers whose role differs from role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetRole(r.Context()) != role {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims attaches validated token claims to ctx.
func WithClaims(ctx context.Context, c *AccessClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, RoleKey, c.Role)
	ctx = context.WithValue(ctx, TokenIDKey, c.JTI)
	return context.WithValue(ctx, TokenExpKey, c.ExpiresAt)
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}

func GetTokenID(ctx context.Context) string {
	jti, _ := ctx.Value(TokenIDKey).(string)
	return jti
}

func GetTokenExpiry(ctx context.Context) time.Time {
	exp, _ := ctx.Value(TokenExpKey).(time.Time)
	return exp
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := GetRequestID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}

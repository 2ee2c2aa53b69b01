package auth

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrUserNotFound = errors.New("user not found")

// Credentials is what the login path needs from a user row.
type Credentials struct {
	UserID        int64
	Email         string
	PasswordHash  string
	IsActive      bool
	IsSystemAdmin bool
}

type UserRepository interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	GetCredentialsByID(ctx context.Context, userID int64) (*Credentials, error)
}

// GrantSource resolves a user's override-applied grant records.
type GrantSource interface {
	UserGrants(ctx context.Context, userID int64) ([]access.GrantRecord, error)
}

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID string, email string) (token string, err error)
	GenerateRefreshToken(userID string, email string) (token string, err error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

// LoginResult is a successful login. Grants is nil when they could not be
// loaded; the caller then fetches them separately.
type LoginResult struct {
	Tokens AuthTokens
	User   UserInfo
	Grants []access.GrantRecord
}

type UserInfo struct {
	ID            int64
	Email         string
	IsSystemAdmin bool
}

// PermissionLoadRecorder counts grant loads that failed while authenticating.
type PermissionLoadRecorder interface {
	ObservePermissionLoadFailure()
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"golang.org/x/crypto/bcrypt"
)

// Service is the main auth service with dependencies
type Service struct {
	userRepo       UserRepository
	tokenGenerator TokenGenerator
	grants         GrantSource
	compiler       *access.Compiler
	logger         *slog.Logger
	bcryptCost     int
	recorder       PermissionLoadRecorder
}

type Option func(*Service)

func WithBCryptCost(cost int) Option {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

func WithPermissionLoadRecorder(r PermissionLoadRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// NewService creates a new auth service
func NewService(userRepo UserRepository, tokenGen TokenGenerator, grants GrantSource, compiler *access.Compiler, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		userRepo:       userRepo,
		tokenGenerator: tokenGen,
		grants:         grants,
		compiler:       compiler,
		logger:         logger,
		bcryptCost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticate validates credentials and returns tokens together with the
// user's grants. A grant loading failure does not fail the login; the result
// then carries no grants.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.userRepo.GetCredentialsByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("failed to load credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if !creds.IsActive {
		return nil, internal.ErrUserInactive
	}

	tokens, err := s.issueTokens(creds)
	if err != nil {
		return nil, err
	}

	res := &LoginResult{
		Tokens: tokens,
		User: UserInfo{
			ID:            creds.UserID,
			Email:         creds.Email,
			IsSystemAdmin: creds.IsSystemAdmin,
		},
	}

	grants, err := s.grants.UserGrants(ctx, creds.UserID)
	if err != nil {
		s.permissionLoadFailed(creds.UserID, err)
		return res, nil
	}
	if grants == nil {
		grants = []access.GrantRecord{}
	}
	res.Grants = grants

	s.logger.Info("user authenticated", "user_id", creds.UserID, "grants", len(grants))
	return res, nil
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.credentialsFor(ctx, claims)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issueTokens(creds)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// Principal builds the request principal for validated claims. The user row
// is re-read so deactivation takes effect before the token expires. When the
// grants cannot be loaded the principal gets an empty snapshot and is denied
// everything except what the system admin flag allows.
func (s *Service) Principal(ctx context.Context, claims *Claims) (*Principal, error) {
	creds, err := s.credentialsFor(ctx, claims)
	if err != nil {
		return nil, err
	}

	p := &Principal{
		UserID:      creds.UserID,
		Email:       creds.Email,
		SystemAdmin: creds.IsSystemAdmin,
		Snapshot:    access.EmptySnapshot(),
	}

	records, err := s.grants.UserGrants(ctx, creds.UserID)
	if err != nil {
		s.permissionLoadFailed(creds.UserID, err)
		return p, nil
	}
	p.Snapshot = s.compiler.Compile(records)
	return p, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) credentialsFor(ctx context.Context, claims *Claims) (*Credentials, error) {
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}

	creds, err := s.userRepo.GetCredentialsByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, internal.ErrInvalidToken
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !creds.IsActive {
		return nil, internal.ErrUserInactive
	}
	return creds, nil
}

func (s *Service) issueTokens(creds *Credentials) (AuthTokens, error) {
	userID := strconv.FormatInt(creds.UserID, 10)

	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID, creds.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue access token", err)
	}
	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, creds.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to issue refresh token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) permissionLoadFailed(userID int64, err error) {
	s.logger.Warn("failed to load grants, continuing with empty permissions", "user_id", userID, "error", err)
	if s.recorder != nil {
		s.recorder.ObservePermissionLoadFailure()
	}
}

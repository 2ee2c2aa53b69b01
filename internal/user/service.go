package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/backoffice-access/internal"
	userDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/user"
)

type Repository interface {
	// GetByID returns nil without error when the user does not exist.
	GetByID(ctx context.Context, userID int64) (*userDatamodel.User, error)
	// ListRoles returns the user's active roles ordered by level.
	ListRoles(ctx context.Context, userID int64) ([]*userDatamodel.Role, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}

	u := FromDataModel(row)
	roles, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list user roles", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list user roles", err)
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, RoleFromDataModel(r))
	}
	return u, nil
}

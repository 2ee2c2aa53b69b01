package override

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	accessDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/access"
	"github.com/frahmantamala/backoffice-access/internal/core/events"
	"github.com/jonboulle/clockwork"
)

// ErrDuplicate is returned by a repository when the active-override unique
// index rejects an insert.
var ErrDuplicate = errors.New("active override already exists")

type RepositoryAPI interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	// GetPermission returns nil without error when the permission does not exist.
	GetPermission(ctx context.Context, id int64) (*accessDatamodel.Permission, error)
	ListByUser(ctx context.Context, userID int64, includeInactive bool) ([]*accessDatamodel.UserPermissionOverride, error)
	// GetByID returns nil without error when the override does not exist.
	GetByID(ctx context.Context, id int64) (*accessDatamodel.UserPermissionOverride, error)
	// FindActive returns the active override for the scope, expired or not.
	FindActive(ctx context.Context, userID, permissionID int64, moduleID *string) (*accessDatamodel.UserPermissionOverride, error)
	Create(ctx context.Context, o *accessDatamodel.UserPermissionOverride) error
	Deactivate(ctx context.Context, id int64) error
	DeactivateExpired(ctx context.Context, now time.Time) ([]Expired, error)
}

// Publisher delivers override changes before the call returns, so cached
// grants are gone by the time the caller refreshes.
type Publisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type SweepRecorder interface {
	ObserveOverridesSwept(n int)
}

type Service struct {
	repo      RepositoryAPI
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	recorder  SweepRecorder
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithSweepRecorder(r SweepRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func NewService(repo RepositoryAPI, publisher Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: publisher,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, userID int64, includeInactive bool) ([]OverrideResponse, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByUser(ctx, userID, includeInactive)
	if err != nil {
		s.logger.Error("failed to list overrides", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list overrides", err)
	}

	now := s.clock.Now()
	responses := make([]OverrideResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, FromDataModel(row).ToResponse(now))
	}
	return responses, nil
}

// Create stores a new override. The module scope is normalized to the module
// the permission lands in so that one scope has at most one active override.
func (s *Service) Create(ctx context.Context, userID, grantedBy int64, dto CreateOverrideDTO) (*OverrideResponse, error) {
	now := s.clock.Now()
	if err := dto.Validate(now); err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	perm, err := s.repo.GetPermission(ctx, dto.PermissionID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permission", err)
	}
	if perm == nil {
		return nil, internal.ErrPermissionNotFound
	}

	moduleID, err := targetModule(perm, dto.ModuleID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActive(ctx, userID, perm.ID, moduleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to check existing overrides", err)
	}
	if existing != nil {
		if FromDataModel(existing).Effective(now) {
			return nil, internal.ErrOverrideExists
		}
		// expired but not swept yet
		if err := s.repo.Deactivate(ctx, existing.ID); err != nil {
			return nil, internal.NewInternalError("failed to retire expired override", err)
		}
		s.publish(ctx, userID, existing.ID, events.OverrideExpired)
	}

	o := &Override{
		UserID:       userID,
		PermissionID: perm.ID,
		ModuleID:     moduleID,
		Granted:      *dto.Granted,
		Reason:       dto.Reason,
		ExpiresAt:    dto.ExpiresAt,
		IsActive:     true,
		GrantedBy:    &grantedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	row := ToDataModel(o)
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, internal.ErrOverrideExists
		}
		s.logger.Error("failed to create override", "user_id", userID, "permission_id", perm.ID, "error", err)
		return nil, internal.NewInternalError("failed to create override", err)
	}
	o.ID = row.ID

	s.logger.Info("override created",
		"override_id", o.ID,
		"user_id", userID,
		"permission_id", perm.ID,
		"granted", o.Granted,
		"granted_by", grantedBy)
	s.publish(ctx, userID, o.ID, events.OverrideCreated)

	resp := o.ToResponse(now)
	return &resp, nil
}

// Delete deactivates the override. The row stays for the audit trail.
func (s *Service) Delete(ctx context.Context, userID, overrideID int64) error {
	row, err := s.repo.GetByID(ctx, overrideID)
	if err != nil {
		return internal.NewInternalError("failed to load override", err)
	}
	if row == nil || row.UserID != userID || !row.IsActive {
		return internal.ErrOverrideNotFound
	}

	if err := s.repo.Deactivate(ctx, overrideID); err != nil {
		s.logger.Error("failed to deactivate override", "override_id", overrideID, "error", err)
		return internal.NewInternalError("failed to deactivate override", err)
	}

	s.logger.Info("override deactivated", "override_id", overrideID, "user_id", userID)
	s.publish(ctx, userID, overrideID, events.OverrideDeactivated)
	return nil
}

// SweepExpired deactivates every active override whose expiry has passed and
// returns how many were retired.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.DeactivateExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		s.publish(ctx, e.UserID, e.ID, events.OverrideExpired)
	}
	if s.recorder != nil {
		s.recorder.ObserveOverridesSwept(len(expired))
	}
	if len(expired) > 0 {
		s.logger.Info("expired overrides swept", "count", len(expired))
	}
	return len(expired), nil
}

func (s *Service) ensureUser(ctx context.Context, userID int64) error {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return internal.NewInternalError("failed to load user", err)
	}
	if !ok {
		return internal.ErrUserNotFound
	}
	return nil
}

func (s *Service) publish(ctx context.Context, userID, overrideID int64, change string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, events.NewOverrideChangedEvent(userID, overrideID, change)); err != nil {
		s.logger.Error("failed to publish override change",
			"user_id", userID,
			"override_id", overrideID,
			"change", change,
			"error", err)
	}
}

// targetModule resolves the module an override on perm is scoped to. Form
// permissions belong to their owning module; module permissions default to
// their own resource.
func targetModule(perm *accessDatamodel.Permission, requested *string) (*string, error) {
	if requested != nil && *requested == "" {
		requested = nil
	}

	switch access.ResourceType(perm.ResourceType) {
	case access.ResourceForm:
		owner := perm.ModuleID
		if owner == nil || *owner == "" {
			owner = requested
		}
		if owner == nil {
			return nil, internal.NewValidationFieldError("moduleId", "moduleId is required for this form permission", internal.ErrCodeValidationFailed)
		}
		if requested != nil && *requested != *owner {
			return nil, internal.NewValidationFieldError("moduleId", "moduleId does not own the permission's form", internal.ErrCodeValidationFailed)
		}
		id := *owner
		return &id, nil
	case access.ResourceModule:
		id := perm.ResourceID
		if requested != nil {
			id = *requested
		}
		return &id, nil
	}
	return nil, nil
}

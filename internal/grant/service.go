package grant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/core/events"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// Service resolves a user's role grants and overrides into grant records.
type Service struct {
	repo     Repository
	compiler *access.Compiler
	logger   *slog.Logger
	clock    clockwork.Clock

	// Permission rows are immutable once referenced by a grant, so entries
	// never need invalidation.
	permissions *lru.Cache[int64, access.PermissionRef]

	cache    Cache
	cacheTTL time.Duration
	recorder CacheRecorder
}

type Option func(*Service)

// WithCache enables the per-user grant cache. Entries live for at most ttl and
// never past the earliest override expiry they contain.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithCacheRecorder(r CacheRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func NewService(repo Repository, compiler *access.Compiler, permissionCacheSize int, logger *slog.Logger, opts ...Option) (*Service, error) {
	permissions, err := lru.New[int64, access.PermissionRef](permissionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create permission cache: %w", err)
	}
	s := &Service{
		repo:        repo,
		compiler:    compiler,
		logger:      logger,
		clock:       clockwork.NewRealClock(),
		permissions: permissions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UserGrants returns the user's override-resolved grant records. A system
// admin always gets at least one record carrying the admin flag.
func (s *Service) UserGrants(ctx context.Context, userID int64) ([]access.GrantRecord, error) {
	if records, ok := s.cached(ctx, userID); ok {
		return records, nil
	}

	account, err := s.repo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if !account.IsActive {
		return nil, internal.ErrUserInactive
	}

	now := s.clock.Now()

	roleRows, err := s.repo.ListRoleGrants(ctx, userID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role grants", err)
	}
	overrideRows, err := s.repo.ListEffectiveOverrides(ctx, userID, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to load overrides", err)
	}

	ids := make([]int64, 0, len(roleRows)+len(overrideRows))
	for _, r := range roleRows {
		ids = append(ids, r.PermissionID)
	}
	for _, o := range overrideRows {
		ids = append(ids, o.PermissionID)
	}
	refs, err := s.permissionRefs(ctx, ids)
	if err != nil {
		return nil, internal.NewInternalError("failed to load permissions", err)
	}

	roleGrants := make([]access.RoleGrant, 0, len(roleRows))
	for _, r := range roleRows {
		ref, ok := refs[r.PermissionID]
		if !ok {
			s.logger.Warn("role grant references unknown permission", "role_id", r.RoleID, "permission_id", r.PermissionID)
			continue
		}
		roleGrants = append(roleGrants, access.RoleGrant{
			RoleID:     r.RoleID,
			Permission: ref,
			ModuleID:   r.ModuleID,
			Granted:    r.Granted,
		})
	}

	overrides := make([]access.Override, 0, len(overrideRows))
	for _, o := range overrideRows {
		ref, ok := refs[o.PermissionID]
		if !ok {
			s.logger.Warn("override references unknown permission", "override_id", o.ID, "permission_id", o.PermissionID)
			continue
		}
		overrides = append(overrides, access.Override{
			ID:         o.ID,
			UserID:     o.UserID,
			Permission: ref,
			ModuleID:   o.ModuleID,
			Granted:    o.Granted,
			Reason:     o.Reason,
			ExpiresAt:  o.ExpiresAt,
			IsActive:   o.IsActive,
			CreatedAt:  o.CreatedAt,
		})
	}

	records := access.ApplyOverrides(roleGrants, overrides, account.IsSystemAdmin, now)
	s.logger.Debug("grants resolved",
		"user_id", userID,
		"role_grants", len(roleGrants),
		"overrides", len(overrides),
		"records", len(records))

	s.store(ctx, userID, records, now)
	return records, nil
}

// UserPermissions compiles the user's grants into the permissions payload.
func (s *Service) UserPermissions(ctx context.Context, userID int64) (*PermissionsData, error) {
	records, err := s.UserGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap := s.compiler.Compile(records)
	return &PermissionsData{
		Permissions:       snap.Permissions(),
		PermissionMatrix:  snap.Matrix,
		SystemPermissions: snap.System,
		Grants:            records,
		NextExpiry:        snap.NextExpiry,
	}, nil
}

func (s *Service) Snapshot(ctx context.Context, userID int64) (*access.Snapshot, error) {
	records, err := s.UserGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.compiler.Compile(records), nil
}

// Invalidate drops the cached grants of a user.
func (s *Service) Invalidate(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		return fmt.Errorf("invalidate grants for user %d: %w", userID, err)
	}
	s.logger.Debug("grant cache invalidated", "user_id", userID)
	return nil
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Subscribe invalidates cached grants whenever a user's overrides change.
func (s *Service) Subscribe(bus Subscriber) {
	bus.Subscribe(events.EventTypeOverrideChanged, func(ctx context.Context, event events.Event) error {
		userID, ok := events.UserIDFromEvent(event)
		if !ok {
			return fmt.Errorf("event %s carries no user id", event.EventID())
		}
		return s.Invalidate(ctx, userID)
	})
}

func (s *Service) cached(ctx context.Context, userID int64) ([]access.GrantRecord, bool) {
	if s.cache == nil {
		return nil, false
	}
	records, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("grant cache read failed", "user_id", userID, "error", err)
		ok = false
	}
	if s.recorder != nil {
		s.recorder.ObserveGrantCache(ok)
	}
	return records, ok
}

func (s *Service) store(ctx context.Context, userID int64, records []access.GrantRecord, now time.Time) {
	if s.cache == nil {
		return
	}
	ttl := s.cacheTTL
	for _, r := range records {
		if r.ExpiresAt == nil {
			continue
		}
		if until := r.ExpiresAt.Sub(now); until < ttl {
			ttl = until
		}
	}
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, userID, records, ttl); err != nil {
		s.logger.Warn("grant cache write failed", "user_id", userID, "error", err)
	}
}

func (s *Service) permissionRefs(ctx context.Context, ids []int64) (map[int64]access.PermissionRef, error) {
	refs := make(map[int64]access.PermissionRef, len(ids))
	requested := make(map[int64]struct{}, len(ids))
	var missing []int64
	for _, id := range ids {
		if _, dup := requested[id]; dup {
			continue
		}
		requested[id] = struct{}{}
		if ref, ok := s.permissions.Get(id); ok {
			refs[id] = ref
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return refs, nil
	}

	loaded, err := s.repo.GetPermissions(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, ref := range loaded {
		s.permissions.Add(ref.ID, ref)
		refs[ref.ID] = ref
	}
	return refs, nil
}

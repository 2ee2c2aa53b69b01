package grant

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
)

var ErrAccountNotFound = errors.New("account not found")

// Account is the part of a user row that shapes their grants.
type Account struct {
	ID            int64  `db:"id"`
	Email         string `db:"email"`
	IsActive      bool   `db:"is_active"`
	IsSystemAdmin bool   `db:"is_system_admin"`
}

// RoleGrantRow is a role_permissions row reachable through the user's active
// roles.
type RoleGrantRow struct {
	RoleID       int64   `db:"role_id"`
	PermissionID int64   `db:"permission_id"`
	ModuleID     *string `db:"module_id"`
	Granted      bool    `db:"granted"`
}

type OverrideRow struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	PermissionID int64      `db:"permission_id"`
	ModuleID     *string    `db:"module_id"`
	Granted      bool       `db:"granted"`
	Reason       string     `db:"reason"`
	ExpiresAt    *time.Time `db:"expires_at"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
}

type Repository interface {
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	ListRoleGrants(ctx context.Context, userID int64) ([]RoleGrantRow, error)
	// ListEffectiveOverrides returns active overrides that have not expired at now.
	ListEffectiveOverrides(ctx context.Context, userID int64, now time.Time) ([]OverrideRow, error)
	GetPermissions(ctx context.Context, ids []int64) ([]access.PermissionRef, error)
}

// Cache stores resolved grant records per user.
type Cache interface {
	Get(ctx context.Context, userID int64) ([]access.GrantRecord, bool, error)
	Set(ctx context.Context, userID int64, records []access.GrantRecord, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

type CacheRecorder interface {
	ObserveGrantCache(hit bool)
}

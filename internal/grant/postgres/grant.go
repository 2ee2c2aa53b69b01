package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/grant"
	"github.com/jmoiron/sqlx"
)

// GrantRepository reads the grant store with hand-written joins.
type GrantRepository struct {
	db *sqlx.DB
}

func NewGrantRepository(db *sqlx.DB) grant.Repository {
	return &GrantRepository{db: db}
}

const getAccountQuery = `SELECT id, email, is_active, is_system_admin FROM users WHERE id = $1`

func (r *GrantRepository) GetAccount(ctx context.Context, userID int64) (*grant.Account, error) {
	var account grant.Account
	if err := r.db.GetContext(ctx, &account, getAccountQuery, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grant.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

const listRoleGrantsQuery = `SELECT rp.role_id, rp.permission_id, rp.module_id, rp.granted
FROM role_permissions rp
JOIN user_roles ur ON ur.role_id = rp.role_id
JOIN roles r ON r.id = rp.role_id
WHERE ur.user_id = $1 AND r.is_active = true
ORDER BY rp.role_id, rp.permission_id`

func (r *GrantRepository) ListRoleGrants(ctx context.Context, userID int64) ([]grant.RoleGrantRow, error) {
	var rows []grant.RoleGrantRow
	if err := r.db.SelectContext(ctx, &rows, listRoleGrantsQuery, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

const listOverridesQuery = `SELECT id, user_id, permission_id, module_id, granted, reason, expires_at, is_active, created_at
FROM user_permission_overrides
WHERE user_id = $1 AND is_active = true AND (expires_at IS NULL OR expires_at > $2)
ORDER BY created_at DESC, id DESC`

func (r *GrantRepository) ListEffectiveOverrides(ctx context.Context, userID int64, now time.Time) ([]grant.OverrideRow, error) {
	var rows []grant.OverrideRow
	if err := r.db.SelectContext(ctx, &rows, listOverridesQuery, userID, now); err != nil {
		return nil, err
	}
	return rows, nil
}

type permissionRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Category     string `db:"category"`
	Action       string `db:"action"`
	ResourceType string `db:"resource_type"`
	ResourceID   string `db:"resource_id"`
	ModuleID     string `db:"module_id"`
}

const getPermissionsQuery = `SELECT id, name, category, COALESCE(action, '') AS action, resource_type, resource_id, COALESCE(module_id, '') AS module_id
FROM permissions WHERE id IN (?)`

func (r *GrantRepository) GetPermissions(ctx context.Context, ids []int64) ([]access.PermissionRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(getPermissionsQuery, ids)
	if err != nil {
		return nil, err
	}

	var rows []permissionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	refs := make([]access.PermissionRef, 0, len(rows))
	for _, row := range rows {
		action, _ := access.ParseAction(row.Action)
		refs = append(refs, access.PermissionRef{
			ID:           row.ID,
			Name:         row.Name,
			Category:     access.Category(row.Category),
			Action:       action,
			ResourceType: access.ResourceType(row.ResourceType),
			ResourceID:   row.ResourceID,
			ModuleID:     row.ModuleID,
		})
	}
	return refs, nil
}

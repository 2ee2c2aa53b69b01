package override

import (
	"time"

	accessDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/access"
)

// Override is a user-specific grant or revoke of one permission, scoped to the
// module the permission lands in.
type Override struct {
	ID           int64
	UserID       int64
	PermissionID int64
	ModuleID     *string
	Granted      bool
	Reason       string
	ExpiresAt    *time.Time
	IsActive     bool
	GrantedBy    *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Effective reports whether the override takes part in access decisions at now.
func (o *Override) Effective(now time.Time) bool {
	return o.IsActive && (o.ExpiresAt == nil || o.ExpiresAt.After(now))
}

func (o *Override) ToResponse(now time.Time) OverrideResponse {
	return OverrideResponse{
		ID:           o.ID,
		UserID:       o.UserID,
		PermissionID: o.PermissionID,
		ModuleID:     o.ModuleID,
		Granted:      o.Granted,
		Reason:       o.Reason,
		ExpiresAt:    o.ExpiresAt,
		IsActive:     o.IsActive,
		Effective:    o.Effective(now),
		GrantedBy:    o.GrantedBy,
		CreatedAt:    o.CreatedAt,
	}
}

func ToDataModel(o *Override) *accessDatamodel.UserPermissionOverride {
	return &accessDatamodel.UserPermissionOverride{
		ID:           o.ID,
		UserID:       o.UserID,
		PermissionID: o.PermissionID,
		ModuleID:     o.ModuleID,
		Granted:      o.Granted,
		Reason:       o.Reason,
		ExpiresAt:    o.ExpiresAt,
		IsActive:     o.IsActive,
		GrantedBy:    o.GrantedBy,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func FromDataModel(o *accessDatamodel.UserPermissionOverride) *Override {
	return &Override{
		ID:           o.ID,
		UserID:       o.UserID,
		PermissionID: o.PermissionID,
		ModuleID:     o.ModuleID,
		Granted:      o.Granted,
		Reason:       o.Reason,
		ExpiresAt:    o.ExpiresAt,
		IsActive:     o.IsActive,
		GrantedBy:    o.GrantedBy,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// Expired identifies an override deactivated by the sweeper.
type Expired struct {
	ID     int64
	UserID int64
}

package override

import (
	"time"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/core/common/validation"
)

const maxReasonLength = 500

type CreateOverrideDTO struct {
	PermissionID int64      `json:"permissionId"`
	ModuleID     *string    `json:"moduleId,omitempty"`
	Granted      *bool      `json:"granted"`
	Reason       string     `json:"reason"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func (d CreateOverrideDTO) Validate(now time.Time) error {
	v := validation.NewValidator()
	v.Field("permissionId", d.PermissionID).MinInt(1, internal.ErrCodeInvalidID)
	v.Field("granted", d.Granted).Custom(func(value interface{}) *internal.AppError {
		if value.(*bool) == nil {
			return internal.NewValidationFieldError("granted", "granted is required", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	v.Field("reason", d.Reason).Required().MaxLength(maxReasonLength, internal.ErrCodeInvalidReason)
	v.Field("expiresAt", d.ExpiresAt).After(now, internal.ErrCodeInvalidExpiry)
	return v.Err()
}

type OverrideResponse struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	PermissionID int64      `json:"permissionId"`
	ModuleID     *string    `json:"moduleId,omitempty"`
	Granted      bool       `json:"granted"`
	Reason       string     `json:"reason"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	IsActive     bool       `json:"isActive"`
	Effective    bool       `json:"effective"`
	GrantedBy    *int64     `json:"grantedBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type OverridesResponse struct {
	Success bool               `json:"success"`
	Data    []OverrideResponse `json:"data"`
}

type OverrideCreatedResponse struct {
	Success bool             `json:"success"`
	Data    OverrideResponse `json:"data"`
}

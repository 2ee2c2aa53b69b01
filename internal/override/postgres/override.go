package postgres

import (
	"context"
	"errors"
	"time"

	accessDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/access"
	"github.com/frahmantamala/backoffice-access/internal/core/datamodel/user"
	"github.com/frahmantamala/backoffice-access/internal/override"
	"gorm.io/gorm"
)

type OverrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) override.RepositoryAPI {
	return &OverrideRepository{db: db}
}

func (r *OverrideRepository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *OverrideRepository) GetPermission(ctx context.Context, id int64) (*accessDatamodel.Permission, error) {
	var perm accessDatamodel.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &perm, nil
}

func (r *OverrideRepository) ListByUser(ctx context.Context, userID int64, includeInactive bool) ([]*accessDatamodel.UserPermissionOverride, error) {
	var rows []*accessDatamodel.UserPermissionOverride
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *OverrideRepository) GetByID(ctx context.Context, id int64) (*accessDatamodel.UserPermissionOverride, error) {
	var row accessDatamodel.UserPermissionOverride
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *OverrideRepository) FindActive(ctx context.Context, userID, permissionID int64, moduleID *string) (*accessDatamodel.UserPermissionOverride, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ? AND is_active = ?", userID, permissionID, true)
	if moduleID == nil {
		q = q.Where("module_id IS NULL")
	} else {
		q = q.Where("module_id = ?", *moduleID)
	}

	var row accessDatamodel.UserPermissionOverride
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *OverrideRepository) Create(ctx context.Context, o *accessDatamodel.UserPermissionOverride) error {
	err := r.db.WithContext(ctx).Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return override.ErrDuplicate
	}
	return err
}

func (r *OverrideRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&accessDatamodel.UserPermissionOverride{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *OverrideRepository) DeactivateExpired(ctx context.Context, now time.Time) ([]override.Expired, error) {
	var expired []override.Expired
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []accessDatamodel.UserPermissionOverride
		if err := tx.Select("id", "user_id").
			Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			expired = append(expired, override.Expired{ID: row.ID, UserID: row.UserID})
		}
		return tx.Model(&accessDatamodel.UserPermissionOverride{}).
			Where("id IN ?", ids).
			Update("is_active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

package auth

import (
	"context"
	"errors"

	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) GetCredentialsByID(ctx context.Context, userID int64) (*auth.Credentials, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *Repository) first(ctx context.Context, query string, arg interface{}) (*auth.Credentials, error) {
	var row user.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	return &auth.Credentials{
		UserID:        row.ID,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		IsActive:      row.IsActive,
		IsSystemAdmin: row.IsSystemAdmin,
	}, nil
}

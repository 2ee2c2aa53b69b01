package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/backoffice-access/internal/catalog"
	catalogDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/catalog"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) catalog.RepositoryAPI {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListModules(ctx context.Context) ([]*catalogDatamodel.Module, error) {
	var modules []*catalogDatamodel.Module
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("level ASC").Order("name ASC").
		Find(&modules).Error
	return modules, err
}

func (r *CatalogRepository) GetModule(ctx context.Context, id string) (*catalogDatamodel.Module, error) {
	var module catalogDatamodel.Module
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&module).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &module, nil
}

func (r *CatalogRepository) ListForms(ctx context.Context, moduleID string) ([]*catalogDatamodel.Form, error) {
	var forms []*catalogDatamodel.Form
	err := r.db.WithContext(ctx).
		Where("module_id = ? AND is_active = ?", moduleID, true).
		Order("name ASC").
		Find(&forms).Error
	return forms, err
}

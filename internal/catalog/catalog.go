package catalog

import (
	"github.com/frahmantamala/backoffice-access/internal/access"
	catalogDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/catalog"
)

type Module struct {
	ID         string
	Name       string
	ParentID   *string
	Level      int
	ModuleType string
	IsActive   bool
}

type Form struct {
	ID       string
	ModuleID string
	Name     string
	IsActive bool
}

// capabilities collects the allowed actions into the grant wire shape.
func capabilities(allows func(access.Action) bool) access.GrantPermissions {
	var c access.Capabilities
	for _, a := range access.Actions() {
		if allows(a) {
			c = c.With(a)
		}
	}
	return access.PermissionsFrom(c)
}

func (m *Module) ToResponse(e access.Evaluator) ModuleResponse {
	return ModuleResponse{
		ID:         m.ID,
		Name:       m.Name,
		ParentID:   m.ParentID,
		Level:      m.Level,
		ModuleType: m.ModuleType,
		Permissions: capabilities(func(a access.Action) bool {
			return e.HasModulePermission(m.ID, a)
		}),
	}
}

func (f *Form) ToResponse(e access.Evaluator) FormResponse {
	return FormResponse{
		ID:       f.ID,
		ModuleID: f.ModuleID,
		Name:     f.Name,
		Permissions: capabilities(func(a access.Action) bool {
			return e.HasFormPermission(f.ModuleID, f.ID, a)
		}),
	}
}

func ModuleFromDataModel(m *catalogDatamodel.Module) *Module {
	return &Module{
		ID:         m.ID,
		Name:       m.Name,
		ParentID:   m.ParentID,
		Level:      m.Level,
		ModuleType: m.ModuleType,
		IsActive:   m.IsActive,
	}
}

func FormFromDataModel(f *catalogDatamodel.Form) *Form {
	return &Form{
		ID:       f.ID,
		ModuleID: f.ModuleID,
		Name:     f.Name,
		IsActive: f.IsActive,
	}
}

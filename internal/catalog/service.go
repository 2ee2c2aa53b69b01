package catalog

import (
	"context"
	"log/slog"
	"sort"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	catalogDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/catalog"
)

type RepositoryAPI interface {
	// ListModules returns active modules ordered by level, then name.
	ListModules(ctx context.Context) ([]*catalogDatamodel.Module, error)
	// GetModule returns nil without error when the module does not exist.
	GetModule(ctx context.Context, id string) (*catalogDatamodel.Module, error)
	ListForms(ctx context.Context, moduleID string) ([]*catalogDatamodel.Form, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// NavigableModules returns the modules present in the caller's matrix, all of
// them for a system admin. A module whose grants are all false is still
// navigable.
func (s *Service) NavigableModules(ctx context.Context, e access.Evaluator) ([]ModuleResponse, error) {
	rows, err := s.repo.ListModules(ctx)
	if err != nil {
		s.logger.Error("failed to list modules", "error", err)
		return nil, internal.NewInternalError("failed to list modules", err)
	}

	modules := make([]*Module, 0, len(rows))
	for _, row := range rows {
		m := ModuleFromDataModel(row)
		if m.IsActive && e.Navigable(m.ID) {
			modules = append(modules, m)
		}
	}
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Level != modules[j].Level {
			return modules[i].Level < modules[j].Level
		}
		return modules[i].Name < modules[j].Name
	})

	responses := make([]ModuleResponse, 0, len(modules))
	for _, m := range modules {
		responses = append(responses, m.ToResponse(e))
	}
	s.logger.Debug("navigable modules resolved", "total", len(rows), "navigable", len(responses))
	return responses, nil
}

// ListForms returns the active forms of a module with the caller's
// capabilities on each.
func (s *Service) ListForms(ctx context.Context, moduleID string, e access.Evaluator) ([]FormResponse, error) {
	module, err := s.repo.GetModule(ctx, moduleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load module", err)
	}
	if module == nil || !module.IsActive {
		return nil, internal.ErrModuleNotFound
	}

	rows, err := s.repo.ListForms(ctx, moduleID)
	if err != nil {
		s.logger.Error("failed to list forms", "module_id", moduleID, "error", err)
		return nil, internal.NewInternalError("failed to list forms", err)
	}

	responses := make([]FormResponse, 0, len(rows))
	for _, row := range rows {
		f := FormFromDataModel(row)
		if f.IsActive {
			responses = append(responses, f.ToResponse(e))
		}
	}
	return responses, nil
}

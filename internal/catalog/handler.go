package catalog

import (
	"context"
	"net/http"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	NavigableModules(ctx context.Context, e access.Evaluator) ([]ModuleResponse, error)
	ListForms(ctx context.Context, moduleID string, e access.Evaluator) ([]FormResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetModules(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}

	modules, err := h.Service.NavigableModules(r.Context(), principal.Evaluator())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ModulesResponse{Success: true, Modules: modules})
}

// GetForms handles GET /modules/{moduleID}/forms behind a module view guard.
func (h *Handler) GetForms(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}

	forms, err := h.Service.ListForms(r.Context(), chi.URLParam(r, "moduleID"), principal.Evaluator())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, FormsResponse{Success: true, Forms: forms})
}

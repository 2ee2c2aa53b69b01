package grant

import (
	"context"
	"net/http"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/transport"
)

type ServiceAPI interface {
	UserPermissions(ctx context.Context, userID int64) (*PermissionsData, error)
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

// GetPermissions handles GET /users/permissions for the caller.
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}

	data, err := h.Service.UserPermissions(r.Context(), principal.UserID)
	if err != nil {
		h.Logger.Error("GetPermissions: failed to load permissions", "user_id", principal.UserID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Success: true, Data: data})
}

// GetUserPermissions handles GET /users/{userID}/permissions. The route is
// guarded by the manage-users capability.
func (h *Handler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := h.URLParamInt64(r, "userID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	data, err := h.Service.UserPermissions(r.Context(), userID)
	if err != nil {
		h.Logger.Error("GetUserPermissions: failed to load permissions", "user_id", userID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Success: true, Data: data})
}

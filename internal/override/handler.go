package override

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, userID int64, includeInactive bool) ([]OverrideResponse, error)
	Create(ctx context.Context, userID, grantedBy int64, dto CreateOverrideDTO) (*OverrideResponse, error)
	Delete(ctx context.Context, userID, overrideID int64) error
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

// ListOverrides handles GET /users/{userID}/overrides. Inactive overrides are
// included with ?includeInactive=true.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := h.URLParamInt64(r, "userID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))

	overrides, err := h.Service.List(r.Context(), userID, includeInactive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, OverridesResponse{Success: true, Data: overrides})
}

func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.HandleServiceError(w, internal.ErrInvalidToken)
		return
	}
	userID, err := h.URLParamInt64(r, "userID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto CreateOverrideDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	created, err := h.Service.Create(r.Context(), userID, principal.UserID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, OverrideCreatedResponse{Success: true, Data: *created})
}

func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	userID, err := h.URLParamInt64(r, "userID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	overrideID, err := h.URLParamInt64(r, "overrideID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), userID, overrideID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

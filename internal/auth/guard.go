package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/frahmantamala/backoffice-access/pkg/logger"
	"github.com/go-chi/chi"
)

const (
	ScopeModule = "module"
	ScopeForm   = "form"
	ScopeSystem = "system"
)

type GuardRecorder interface {
	ObserveGuardDecision(scope string, allowed bool)
}

// Guard turns evaluator decisions into route middleware. A denied request
// gets the same answer whether or not the resource exists.
type Guard struct {
	*transport.BaseHandler
	recorder GuardRecorder
}

func NewGuard(baseHandler *transport.BaseHandler, recorder GuardRecorder) *Guard {
	return &Guard{BaseHandler: baseHandler, recorder: recorder}
}

// Check wraps next with an arbitrary evaluator predicate.
func (g *Guard) Check(scope string, allow func(r *http.Request, e access.Evaluator) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				g.Logger.Warn("authorization check failed: no principal in context", "path", r.URL.Path)
				g.HandleServiceError(w, internal.ErrInvalidToken)
				return
			}

			allowed := allow(r, principal.Evaluator())
			if g.recorder != nil {
				g.recorder.ObserveGuardDecision(scope, allowed)
			}
			if !allowed {
				logger.From(r.Context()).LogAttrs(r.Context(), slog.LevelWarn, "access denied",
					slog.String("scope", scope),
					slog.String("path", r.URL.Path))
				g.HandleServiceError(w, internal.ErrNoPermission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) RequireModule(moduleID string, action access.Action) func(http.Handler) http.Handler {
	return g.Check(ScopeModule, func(_ *http.Request, e access.Evaluator) bool {
		return e.HasModulePermission(moduleID, action)
	})
}

func (g *Guard) RequireForm(moduleID, formID string, action access.Action) func(http.Handler) http.Handler {
	return g.Check(ScopeForm, func(_ *http.Request, e access.Evaluator) bool {
		return e.HasFormPermission(moduleID, formID, action)
	})
}

// RequireModuleParam reads the module id from a chi URL parameter.
func (g *Guard) RequireModuleParam(param string, action access.Action) func(http.Handler) http.Handler {
	return g.Check(ScopeModule, func(r *http.Request, e access.Evaluator) bool {
		moduleID := chi.URLParam(r, param)
		return moduleID != "" && e.HasModulePermission(moduleID, action)
	})
}

func (g *Guard) RequireSystem(allow func(access.SystemPermissions) bool) func(http.Handler) http.Handler {
	return g.Check(ScopeSystem, func(_ *http.Request, e access.Evaluator) bool {
		return allow(e.System())
	})
}

func (g *Guard) RequireManagePermissions() func(http.Handler) http.Handler {
	return g.RequireSystem(func(s access.SystemPermissions) bool {
		return s.CanManagePermissions
	})
}

func (g *Guard) RequireManageUsers() func(http.Handler) http.Handler {
	return g.RequireSystem(func(s access.SystemPermissions) bool {
		return s.CanManageUsers
	})
}

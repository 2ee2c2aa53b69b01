package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	catalogDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/catalog"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("CatalogHandler", func() {
	var (
		router    chi.Router
		principal *auth.Principal
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo := &memoryRepository{
			modules: []*catalogDatamodel.Module{
				{ID: "hr", Name: "Human Resources", IsActive: true},
				{ID: "finance", Name: "Finance", IsActive: true},
			},
			forms: []*catalogDatamodel.Form{
				{ID: "leave", ModuleID: "hr", Name: "Leave Requests", IsActive: true},
			},
		}
		base := transport.NewBaseHandler(logger)
		h := NewHandler(base, NewService(repo, logger))
		guard := auth.NewGuard(base, nil)

		snapshot := access.NewCompiler(logger).Compile([]access.GrantRecord{
			{ResourceType: access.ResourceModule, ResourceID: "hr", Permissions: access.GrantPermissions{CanView: true}},
		})
		principal = &auth.Principal{UserID: 1, Email: "staff@example.com", Snapshot: snapshot}

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if principal != nil {
					r = r.WithContext(auth.ContextWithPrincipal(r.Context(), principal))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/modules", h.GetModules)
		router.With(guard.RequireModuleParam("moduleID", access.ActionView)).Get("/modules/{moduleID}/forms", h.GetForms)
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	ginkgo.It("should list navigable modules", func() {
		rec := get("/modules")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var body ModulesResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body.Modules).To(gomega.HaveLen(1))
		gomega.Expect(body.Modules[0].ID).To(gomega.Equal("hr"))
	})

	ginkgo.It("should list forms of a viewable module", func() {
		rec := get("/modules/hr/forms")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var body FormsResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body.Forms).To(gomega.HaveLen(1))
		gomega.Expect(body.Forms[0].Permissions.CanView).To(gomega.BeFalse())
	})

	ginkgo.It("should deny forms of a module outside the matrix", func() {
		gomega.Expect(get("/modules/finance/forms").Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("should answer 401 without a principal", func() {
		principal = nil
		gomega.Expect(get("/modules").Code).To(gomega.Equal(http.StatusUnauthorized))
	})
})

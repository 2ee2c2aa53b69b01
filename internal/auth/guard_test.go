package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type decisionLog struct {
	decisions []string
}

func (d *decisionLog) ObserveGuardDecision(scope string, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	d.decisions = append(d.decisions, scope+":"+result)
}

var _ = ginkgo.Describe("Guard", func() {
	var (
		guard    *Guard
		recorder *decisionLog
		compiler *access.Compiler
	)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(h http.Handler, path string, p *Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if p != nil {
			req = req.WithContext(ContextWithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	principal := func(admin bool, grants ...access.GrantRecord) *Principal {
		return &Principal{UserID: 9, SystemAdmin: admin, Snapshot: compiler.Compile(grants)}
	}

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		recorder = &decisionLog{}
		guard = NewGuard(transport.NewBaseHandler(logger), recorder)
		compiler = access.NewCompiler(logger)
	})

	ginkgo.It("should let a module grant through", func() {
		p := principal(false, hrViewGrant())

		rec := serve(guard.RequireModule("hr", access.ActionView)(ok), "/", p)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(recorder.decisions).To(gomega.Equal([]string{"module:allow"}))
	})

	ginkgo.It("should answer the same 403 for missing and unknown resources", func() {
		p := principal(false, hrViewGrant())

		denied := serve(guard.RequireModule("hr", access.ActionDelete)(ok), "/", p)
		unknown := serve(guard.RequireModule("does-not-exist", access.ActionView)(ok), "/", p)

		gomega.Expect(denied.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(unknown.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(denied.Body.String()).To(gomega.Equal(unknown.Body.String()))

		var body map[string]map[string]interface{}
		gomega.Expect(json.Unmarshal(denied.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body["error"]["code"]).To(gomega.Equal("NO_PERMISSION"))
	})

	ginkgo.It("should check form capabilities inside their module", func() {
		p := principal(false, access.GrantRecord{
			ResourceType: access.ResourceForm,
			ResourceID:   "leave",
			Resource:     &access.GrantResource{ModuleID: "hr"},
			Permissions:  access.GrantPermissions{CanEdit: true},
		})

		gomega.Expect(serve(guard.RequireForm("hr", "leave", access.ActionEdit)(ok), "/", p).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(guard.RequireForm("hr", "payroll", access.ActionEdit)(ok), "/", p).Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve(guard.RequireModule("hr", access.ActionEdit)(ok), "/", p).Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("should read the module from the route", func() {
		p := principal(false, hrViewGrant())
		r := chi.NewRouter()
		r.With(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(ContextWithPrincipal(req.Context(), p)))
			})
		}, guard.RequireModuleParam("moduleID", access.ActionView)).Get("/modules/{moduleID}", ok)

		gomega.Expect(serve(r, "/modules/hr", nil).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(r, "/modules/finance", nil).Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("should let a system admin through every guard", func() {
		p := principal(true)

		gomega.Expect(serve(guard.RequireModule("finance", access.ActionDelete)(ok), "/", p).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(guard.RequireManagePermissions()(ok), "/", p).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(guard.RequireManageUsers()(ok), "/", p).Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("should check system capabilities independently", func() {
		p := principal(false, access.GrantRecord{
			ResourceType: access.ResourceSystem,
			ResourceID:   access.SystemCapabilityPermissions,
			Permissions:  access.GrantPermissions{CanManage: true},
		})

		gomega.Expect(serve(guard.RequireManagePermissions()(ok), "/", p).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(serve(guard.RequireManageUsers()(ok), "/", p).Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(recorder.decisions).To(gomega.Equal([]string{"system:allow", "system:deny"}))
	})

	ginkgo.It("should answer 401 without a principal", func() {
		rec := serve(guard.RequireModule("hr", access.ActionView)(ok), "/", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(recorder.decisions).To(gomega.BeEmpty())
	})
})

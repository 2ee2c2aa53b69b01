package grant

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/go-chi/chi"
	"github.com/jonboulle/clockwork"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("GrantHandler", func() {
	var (
		repo     *mockRepository
		compiler *access.Compiler
		router   chi.Router
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMockRepository()
		compiler = access.NewCompiler(logger)
		clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
		service, err := NewService(repo, compiler, 16, logger, WithClock(clock))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		h := NewHandler(transport.NewBaseHandler(logger), service)
		router = chi.NewRouter()
		router.Get("/users/permissions", h.GetPermissions)
		router.Get("/users/{userID}/permissions", h.GetUserPermissions)
	})

	get := func(path string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if userID != 0 {
			req = req.WithContext(auth.ContextWithPrincipal(context.Background(), &auth.Principal{UserID: userID}))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.It("should return a matrix equal to a client compile of the grants", func() {
		repo.roleGrants[1] = []RoleGrantRow{
			{RoleID: 1, PermissionID: 10, Granted: true},
			{RoleID: 1, PermissionID: 12, Granted: true},
			{RoleID: 1, PermissionID: 13, Granted: true},
		}

		rec := get("/users/permissions", 1)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var resp PermissionsResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		gomega.Expect(resp.Success).To(gomega.BeTrue())

		client := compiler.Compile(resp.Data.Grants)
		gomega.Expect(client.Permissions()).To(gomega.Equal(resp.Data.Permissions))
		gomega.Expect(client.System).To(gomega.Equal(resp.Data.SystemPermissions))

		serverMatrix, err := json.Marshal(resp.Data.PermissionMatrix)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		clientMatrix, err := json.Marshal(client.Matrix)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(clientMatrix).To(gomega.MatchJSON(serverMatrix))
		gomega.Expect(resp.Data.Permissions).To(gomega.Equal([]string{"hr:leave:view", "hr:view"}))
	})

	ginkgo.It("should answer 401 without a principal", func() {
		rec := get("/users/permissions", 0)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should answer 404 for an unknown user id", func() {
		rec := get("/users/404/permissions", 2)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("should answer 400 for a malformed user id", func() {
		rec := get("/users/abc/permissions", 2)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should return another user's permissions", func() {
		rec := get("/users/2/permissions", 1)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var resp PermissionsResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		gomega.Expect(resp.Data.SystemPermissions.IsAdmin).To(gomega.BeTrue())
	})
})

package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/catalog"
	"github.com/frahmantamala/backoffice-access/internal/grant"
	"github.com/frahmantamala/backoffice-access/internal/override"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/frahmantamala/backoffice-access/internal/user"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

const openAPIFile = "../../../api/openapi.yml"

func newTestRouter(redisClient redis.UniversalClient) (chi.Router, sqlmock.Sqlmock) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	ginkgo.DeferCleanup(func() {
		mock.ExpectClose()
		gomega.Expect(sqlDB.Close()).To(gomega.Succeed())
	})

	base := transport.NewBaseHandler(logger)
	handlers := Handlers{
		Auth:        auth.NewHandler(base, nil),
		Guard:       auth.NewGuard(base, nil),
		User:        user.NewHandler(base, nil),
		Grant:       grant.NewHandler(base, nil),
		Override:    override.NewHandler(base, nil),
		Catalog:     catalog.NewHandler(base, nil),
		Metrics:     http.NotFoundHandler(),
		OpenAPIPath: openAPIFile,
	}
	router := chi.NewRouter()
	RegisterAllRoutes(router, sqlDB, redisClient, handlers, logger)
	return router, mock
}

var _ = ginkgo.Describe("Router", func() {
	ginkgo.It("should serve exactly the operations documented in the OpenAPI file", func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile(openAPIFile)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(doc.Validate(context.Background())).To(gomega.Succeed())

		router, _ := newTestRouter(nil)

		routed := map[string]bool{}
		err = chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, "/api/") {
				return nil
			}
			if len(route) > 1 {
				route = strings.TrimSuffix(route, "/")
			}
			routed[method+" "+route] = true

			item := doc.Paths.Value(route)
			if item == nil {
				return errors.New("undocumented path " + route)
			}
			if item.GetOperation(method) == nil {
				return errors.New("undocumented operation " + method + " " + route)
			}
			return nil
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		for path, item := range doc.Paths.Map() {
			for method := range item.Operations() {
				gomega.Expect(routed).To(gomega.HaveKey(method+" "+path), "documented but not routed")
			}
		}
	})

	ginkgo.It("should reject protected routes without a token", func() {
		router, _ := newTestRouter(nil)

		for _, path := range []string{"/api/modules", "/api/users/permissions", "/api/users/1/overrides", "/api/auth/validate"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized), path)
		}
	})

	ginkgo.It("should serve the OpenAPI document and echo a request id", func() {
		router, _ := newTestRouter(nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("Backoffice Access API"))
		gomega.Expect(rec.Header().Get("X-Request-ID")).NotTo(gomega.BeEmpty())
	})
})

var _ = ginkgo.Describe("HealthHandler", func() {
	var mr *miniredis.Miniredis

	ginkgo.BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		ginkgo.DeferCleanup(mr.Close)
	})

	get := func(router chi.Router, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	ginkgo.It("should report healthy postgres and redis", func() {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		ginkgo.DeferCleanup(client.Close)
		router, mock := newTestRouter(client)
		mock.ExpectPing()

		rec := get(router, "/api/health")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"redis":{"status":"healthy"`))
		gomega.Expect(mock.ExpectationsWereMet()).To(gomega.Succeed())
	})

	ginkgo.It("should answer 503 when postgres is down", func() {
		router, mock := newTestRouter(nil)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		rec := get(router, "/api/health")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("connection refused"))
		gomega.Expect(rec.Body.String()).NotTo(gomega.ContainSubstring("redis"))
	})

	ginkgo.It("should answer 503 when redis is down", func() {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		ginkgo.DeferCleanup(client.Close)
		router, mock := newTestRouter(client)
		mock.ExpectPing()
		mr.Close()

		rec := get(router, "/api/health")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"redis":{"status":"unhealthy"`))
	})

	ginkgo.It("should answer ping without touching the stores", func() {
		router, mock := newTestRouter(nil)

		rec := get(router, "/api/ping")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(mock.ExpectationsWereMet()).To(gomega.Succeed())
	})
})

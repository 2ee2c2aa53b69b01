package override

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/transport"
	"github.com/go-chi/chi"
	"github.com/jonboulle/clockwork"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("OverrideHandler", func() {
	var (
		repo   *memoryRepository
		router chi.Router
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = newMemoryRepository()
		clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
		service := NewService(repo, &recordingPublisher{}, logger, WithClock(clock))
		h := NewHandler(transport.NewBaseHandler(logger), service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := auth.ContextWithPrincipal(r.Context(), &auth.Principal{UserID: 2, SystemAdmin: true})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		router.Route("/users/{userID}/overrides", func(r chi.Router) {
			r.Get("/", h.ListOverrides)
			r.Post("/", h.CreateOverride)
			r.Delete("/{overrideID}", h.DeleteOverride)
		})
	})

	send := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
		}
		req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.It("should create, list and delete an override", func() {
		rec := send(http.MethodPost, "/users/1/overrides", map[string]interface{}{
			"permissionId": 10,
			"granted":      true,
			"reason":       "covering for a colleague",
			"expiresAt":    "2026-03-11T09:00:00Z",
		})
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
		var created OverrideCreatedResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(gomega.Succeed())
		gomega.Expect(created.Data.UserID).To(gomega.Equal(int64(1)))
		gomega.Expect(*created.Data.GrantedBy).To(gomega.Equal(int64(2)))

		rec = send(http.MethodGet, "/users/1/overrides", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		var list OverridesResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(gomega.Succeed())
		gomega.Expect(list.Data).To(gomega.HaveLen(1))

		rec = send(http.MethodDelete, "/users/1/overrides/1", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))

		rec = send(http.MethodGet, "/users/1/overrides?includeInactive=true", nil)
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(gomega.Succeed())
		gomega.Expect(list.Data).To(gomega.HaveLen(1))
		gomega.Expect(list.Data[0].IsActive).To(gomega.BeFalse())
	})

	ginkgo.It("should answer 409 for a duplicate override", func() {
		body := map[string]interface{}{"permissionId": 10, "granted": false, "reason": "audit"}
		gomega.Expect(send(http.MethodPost, "/users/1/overrides", body).Code).To(gomega.Equal(http.StatusCreated))

		rec := send(http.MethodPost, "/users/1/overrides", body)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusConflict))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("OVERRIDE_EXISTS"))
	})

	ginkgo.It("should answer 400 without a reason", func() {
		rec := send(http.MethodPost, "/users/1/overrides", map[string]interface{}{"permissionId": 10, "granted": true})
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should answer 404 for unknown users and overrides", func() {
		gomega.Expect(send(http.MethodGet, "/users/99/overrides", nil).Code).To(gomega.Equal(http.StatusNotFound))
		gomega.Expect(send(http.MethodDelete, "/users/1/overrides/42", nil).Code).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("should answer 400 for a malformed id", func() {
		gomega.Expect(send(http.MethodDelete, "/users/1/overrides/abc", nil).Code).To(gomega.Equal(http.StatusBadRequest))
	})
})

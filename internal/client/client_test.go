package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/backoffice-access/internal"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/auth"
	"github.com/frahmantamala/backoffice-access/internal/grant"
	"github.com/frahmantamala/backoffice-access/internal/session"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Client", func() {
	var (
		server      *httptest.Server
		client      *Client
		ctx         context.Context
		embedGrants bool
		embedded    []access.GrantRecord
		failGrants  atomic.Bool
		logoutCalls atomic.Int32
		hrView      access.GrantRecord
		logger      *slog.Logger
	)

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		embedGrants = false
		embedded = nil
		failGrants.Store(false)
		logoutCalls.Store(0)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		hrView = access.GrantRecord{ResourceType: access.ResourceModule, ResourceID: "hr", Permissions: access.GrantPermissions{CanView: true}}

		authorized := func(r *http.Request) bool {
			return r.Header.Get("Authorization") == "Bearer access-1"
		}

		router := chi.NewRouter()
		router.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var dto auth.LoginDTO
			_ = json.NewDecoder(r.Body).Decode(&dto)
			if dto.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, internal.Response{Error: internal.ErrInvalidCredentials})
				return
			}
			resp := auth.LoginResponse{
				Success:      true,
				Token:        "access-1",
				RefreshToken: "refresh-1",
				User:         auth.UserResponse{ID: 1, Email: dto.Email},
			}
			if embedGrants {
				grants := embedded
				if grants == nil {
					grants = []access.GrantRecord{hrView}
				}
				resp.User.Permissions = &grants
			}
			writeJSON(w, http.StatusOK, resp)
		})
		router.Get("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r) {
				writeJSON(w, http.StatusUnauthorized, internal.Response{Error: internal.ErrInvalidToken})
				return
			}
			writeJSON(w, http.StatusOK, auth.ValidateResponse{Success: true, User: auth.UserResponse{ID: 1, Email: "staff@example.com", IsSystemAdmin: true}})
		})
		router.Get("/api/users/permissions", func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r) {
				writeJSON(w, http.StatusUnauthorized, internal.Response{Error: internal.ErrInvalidToken})
				return
			}
			if failGrants.Load() {
				writeJSON(w, http.StatusInternalServerError, internal.Response{Error: internal.NewInternalError("failed to load permissions", nil)})
				return
			}
			writeJSON(w, http.StatusOK, grant.PermissionsResponse{
				Success: true,
				Data:    &grant.PermissionsData{Grants: []access.GrantRecord{hrView}},
			})
		})
		router.Post("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			logoutCalls.Add(1)
			w.WriteHeader(http.StatusNoContent)
		})
		router.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		})

		server = httptest.NewServer(router)
		ginkgo.DeferCleanup(server.Close)
		client = New(Config{BaseURL: server.URL + "/", Timeout: time.Second}, logger)
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("should report omitted grants as not included", func() {
			res, err := client.Login(ctx, "staff@example.com", "secret")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Token).To(gomega.Equal("access-1"))
			gomega.Expect(res.User.UserID).To(gomega.Equal(int64(1)))
			gomega.Expect(res.GrantsIncluded).To(gomega.BeFalse())
		})

		ginkgo.It("should pass embedded grants through", func() {
			embedGrants = true

			res, err := client.Login(ctx, "staff@example.com", "secret")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.GrantsIncluded).To(gomega.BeTrue())
			gomega.Expect(res.Grants).To(gomega.Equal([]access.GrantRecord{hrView}))
		})

		ginkgo.It("should treat an embedded empty list as loaded", func() {
			embedGrants = true
			embedded = []access.GrantRecord{}

			res, err := client.Login(ctx, "staff@example.com", "secret")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.GrantsIncluded).To(gomega.BeTrue())
			gomega.Expect(res.Grants).To(gomega.BeEmpty())
		})

		ginkgo.It("should map 401 to the session's unauthorized error", func() {
			_, err := client.Login(ctx, "staff@example.com", "wrong")

			gomega.Expect(errors.Is(err, session.ErrUnauthorized)).To(gomega.BeTrue())
		})
	})

	ginkgo.It("should validate a token", func() {
		p, err := client.Validate(ctx, "access-1")

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(p.SystemAdmin).To(gomega.BeTrue())

		_, err = client.Validate(ctx, "forged")
		gomega.Expect(errors.Is(err, session.ErrUnauthorized)).To(gomega.BeTrue())
	})

	ginkgo.It("should fetch raw grants", func() {
		grants, err := client.FetchGrants(ctx, "access-1")

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(grants).To(gomega.Equal([]access.GrantRecord{hrView}))
	})

	ginkgo.It("should surface server errors with their code", func() {
		failGrants.Store(true)

		_, err := client.FetchGrants(ctx, "access-1")

		var statusErr *StatusError
		gomega.Expect(errors.As(err, &statusErr)).To(gomega.BeTrue())
		gomega.Expect(statusErr.StatusCode).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(statusErr.Code).To(gomega.Equal("INTERNAL_ERROR"))
		gomega.Expect(errors.Is(err, session.ErrUnauthorized)).To(gomega.BeFalse())
	})

	ginkgo.It("should time out slow calls", func() {
		client = New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond}, logger)

		err := client.do(ctx, http.MethodGet, "/slow", "", nil, nil)

		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.Describe("with a session store", func() {
		var store *session.Store

		ginkgo.BeforeEach(func() {
			store = session.NewStore(client, access.NewCompiler(logger), logger)
			ginkgo.DeferCleanup(store.Close)
		})

		ginkgo.It("should fetch and compile grants after login", func() {
			state, err := store.Login(ctx, "staff@example.com", "secret")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(state.Status).To(gomega.Equal(session.StatusAuthenticated))
			gomega.Expect(store.Evaluator().Check("hr", "", "view")).To(gomega.BeTrue())
			gomega.Expect(store.Evaluator().Check("hr", "", "edit")).To(gomega.BeFalse())
		})

		ginkgo.It("should stay authenticated with an empty matrix when the permissions endpoint fails", func() {
			failGrants.Store(true)

			state, err := store.Login(ctx, "staff@example.com", "secret")

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(state.Status).To(gomega.Equal(session.StatusAuthenticated))
			gomega.Expect(state.LoadErr).To(gomega.HaveOccurred())
			gomega.Expect(store.Evaluator().Check("hr", "", "view")).To(gomega.BeFalse())
		})

		ginkgo.It("should call the server on logout", func() {
			_, err := store.Login(ctx, "staff@example.com", "secret")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			store.Logout(ctx)

			gomega.Expect(logoutCalls.Load()).To(gomega.Equal(int32(1)))
		})
	})
})

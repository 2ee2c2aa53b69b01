package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/frahmantamala/backoffice-access/internal/session"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type stubBackend struct {
	grants   []access.GrantRecord
	fetchErr error
}

func (b *stubBackend) Login(_ context.Context, email, _ string) (*session.LoginResult, error) {
	return &session.LoginResult{
		Token:          "access-1",
		User:           session.Principal{UserID: 7, Email: email},
		Grants:         b.grants,
		GrantsIncluded: true,
	}, nil
}

func (b *stubBackend) Validate(_ context.Context, _ string) (*session.Principal, error) {
	return &session.Principal{UserID: 7, Email: "hr@mail.com"}, nil
}

func (b *stubBackend) FetchGrants(_ context.Context, _ string) ([]access.GrantRecord, error) {
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return b.grants, nil
}

func (b *stubBackend) Logout(_ context.Context, _ string) error { return nil }

var _ = ginkgo.Describe("parseCheck", func() {
	ginkgo.DescribeTable("splits a decision",
		func(in, module, form, action string, ok bool) {
			m, f, a, valid := parseCheck(in)
			gomega.Expect(valid).To(gomega.Equal(ok))
			if ok {
				gomega.Expect(m).To(gomega.Equal(module))
				gomega.Expect(f).To(gomega.Equal(form))
				gomega.Expect(a).To(gomega.Equal(action))
			}
		},
		ginkgo.Entry("module action", "hr:view", "hr", "", "view", true),
		ginkgo.Entry("form action", "hr:employees:edit", "hr", "employees", "edit", true),
		ginkgo.Entry("missing action", "hr", "", "", "", false),
		ginkgo.Entry("empty module", ":view", "", "", "", false),
		ginkgo.Entry("empty form", "hr::edit", "", "", "", false),
		ginkgo.Entry("too many parts", "a:b:c:d", "", "", "", false),
	)
})

var _ = ginkgo.Describe("seedPermissions", func() {
	ginkgo.It("should give every seeded module and form one permission per action", func() {
		names := make(map[string]bool)
		for _, p := range seedPermissions() {
			gomega.Expect(names).NotTo(gomega.HaveKey(p.name))
			names[p.name] = true
		}
		gomega.Expect(names).To(gomega.HaveKey("hr.view"))
		gomega.Expect(names).To(gomega.HaveKey("hr.employees.edit"))
		gomega.Expect(names).To(gomega.HaveKey("system.users.manage"))
	})
})

var _ = ginkgo.Describe("openAccessSession", func() {
	var (
		backend *stubBackend
		store   *session.Store
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		backend = &stubBackend{grants: []access.GrantRecord{{
			ResourceType: access.ResourceModule,
			ResourceID:   "hr",
			Permissions:  access.GrantPermissions{CanView: true},
		}}}
		store = session.NewStore(backend, access.NewCompiler(logger), logger)
		ginkgo.DeferCleanup(store.Close)
	})

	ginkgo.It("should keep the login snapshot when a forced refresh fails", func() {
		backend.fetchErr = errors.New("503 service unavailable")

		state, err := openAccessSession(context.Background(), store, "hr@mail.com", "password", "", true)

		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(state).NotTo(gomega.BeNil())
		gomega.Expect(state.LoadErr).To(gomega.HaveOccurred())
		gomega.Expect(state.Evaluator().HasModulePermission("hr", access.ActionView)).To(gomega.BeTrue())

		var out bytes.Buffer
		printAccessReport(&out, state, []string{"hr:view", "hr:edit"})
		gomega.Expect(out.String()).To(gomega.MatchRegexp(`hr:view\s+allow`))
		gomega.Expect(out.String()).To(gomega.MatchRegexp(`hr:edit\s+deny`))
	})

	ginkgo.It("should require a token or credentials", func() {
		_, err := openAccessSession(context.Background(), store, "", "", "", false)
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})

package access_test

import (
	"log/slog"
	"os"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Evaluator", func() {
	var compiler *access.Compiler

	BeforeEach(func() {
		compiler = access.NewCompiler(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	})

	evaluate := func(roleGrants []access.RoleGrant, overrides []access.Override) access.Evaluator {
		records := access.ApplyOverrides(roleGrants, overrides, false, now)
		return access.NewEvaluator(compiler.Compile(records), false)
	}

	Context("as a system admin", func() {
		It("should allow everything even with an empty matrix", func() {
			e := access.NewEvaluator(nil, true)

			for _, a := range access.Actions() {
				Expect(e.HasModulePermission("anything", a)).To(BeTrue())
				Expect(e.HasFormPermission("anything", "f9", a)).To(BeTrue())
			}
			Expect(e.HasPermission("anything:view")).To(BeTrue())
			Expect(e.Check("anything", "", "manage")).To(BeTrue())
			Expect(e.System().CanManagePermissions).To(BeTrue())
			Expect(e.Navigable("anything")).To(BeTrue())
		})

		It("should still deny an action outside the canonical set", func() {
			e := access.NewEvaluator(nil, true)
			Expect(e.Check("hr", "", "destroy")).To(BeFalse())
			Expect(e.Check("hr", "f1", "destroy")).To(BeFalse())
			Expect(e.HasModulePermission("hr", access.Action{})).To(BeFalse())
			Expect(e.HasFormPermission("hr", "f1", access.Action{})).To(BeFalse())
		})
	})

	Context("as a regular user", func() {
		It("should deny modules missing from the matrix", func() {
			e := access.NewEvaluator(access.EmptySnapshot(), false)
			Expect(e.HasModulePermission("hr", access.ActionView)).To(BeFalse())
			Expect(e.HasFormPermission("hr", "f1", access.ActionView)).To(BeFalse())
			Expect(e.Navigable("hr")).To(BeFalse())
		})

		It("should deny unknown actions", func() {
			e := evaluate([]access.RoleGrant{{RoleID: 1, Permission: viewHR, Granted: true}}, nil)
			Expect(e.Check("hr", "", "destroy")).To(BeFalse())
			Expect(e.HasModulePermission("hr", access.Action{})).To(BeFalse())
		})

		It("should accept create as an alias of add", func() {
			e := access.NewEvaluator(compiler.Compile([]access.GrantRecord{
				moduleGrant("hr", access.GrantPermissions{CanCreate: true}),
			}), false)
			Expect(e.Check("hr", "", "create")).To(BeTrue())
			Expect(e.Check("hr", "", "add")).To(BeTrue())
			Expect(e.HasPermission("hr:add")).To(BeTrue())
		})

		It("should report independent system capabilities", func() {
			e := access.NewEvaluator(compiler.Compile([]access.GrantRecord{
				{ResourceType: access.ResourceSystem, ResourceID: access.SystemCapabilityPermissions, Permissions: access.GrantPermissions{CanManage: true}},
			}), false)
			Expect(e.System()).To(Equal(access.SystemPermissions{CanManagePermissions: true}))
		})
	})

	Describe("scenarios", func() {
		It("role grant without overrides", func() {
			e := evaluate([]access.RoleGrant{
				{RoleID: 1, Permission: viewHR, Granted: true},
				{RoleID: 1, Permission: editHR, Granted: false},
			}, nil)

			Expect(e.Check("hr", "", "view")).To(BeTrue())
			Expect(e.Check("hr", "", "edit")).To(BeFalse())
		})

		It("active grant override adds access", func() {
			e := evaluate([]access.RoleGrant{
				{RoleID: 1, Permission: editHR, Granted: false},
			}, []access.Override{
				{ID: 1, UserID: 42, Permission: editHR, ModuleID: strPtr("hr"), Granted: true, IsActive: true, CreatedAt: now.Add(-time.Hour)},
			})

			Expect(e.HasModulePermission("hr", access.ActionEdit)).To(BeTrue())
		})

		It("expired grant override is ignored", func() {
			yesterday := now.Add(-24 * time.Hour)
			e := evaluate([]access.RoleGrant{
				{RoleID: 1, Permission: editHR, Granted: false},
			}, []access.Override{
				{ID: 1, UserID: 42, Permission: editHR, ModuleID: strPtr("hr"), Granted: true, IsActive: true, ExpiresAt: &yesterday, CreatedAt: now.Add(-48 * time.Hour)},
			})

			Expect(e.HasModulePermission("hr", access.ActionEdit)).To(BeFalse())
		})

		It("active revoke override removes role access", func() {
			e := evaluate([]access.RoleGrant{
				{RoleID: 1, Permission: viewHR, Granted: true},
			}, []access.Override{
				{ID: 1, UserID: 42, Permission: viewHR, ModuleID: strPtr("hr"), Granted: false, IsActive: true, CreatedAt: now.Add(-time.Hour)},
			})

			Expect(e.HasModulePermission("hr", access.ActionView)).To(BeFalse())
			Expect(e.Navigable("hr")).To(BeTrue())
		})

		It("form grant does not imply module access", func() {
			e := access.NewEvaluator(compiler.Compile([]access.GrantRecord{
				formGrant("hr", "f1", access.GrantPermissions{CanView: true}),
			}), false)

			Expect(e.HasFormPermission("hr", "f1", access.ActionView)).To(BeTrue())
			Expect(e.HasModulePermission("hr", access.ActionView)).To(BeFalse())
			Expect(e.Check("hr", "f1", "view")).To(BeTrue())
		})
	})
})

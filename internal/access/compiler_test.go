package access_test

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordedCompile struct {
	used    int
	skipped int
}

type fakeRecorder struct {
	calls []recordedCompile
}

func (r *fakeRecorder) ObserveCompile(_ time.Duration, used, skipped int) {
	r.calls = append(r.calls, recordedCompile{used: used, skipped: skipped})
}

func moduleGrant(moduleID string, perms access.GrantPermissions) access.GrantRecord {
	return access.GrantRecord{
		ResourceType: access.ResourceModule,
		ResourceID:   moduleID,
		Permissions:  perms,
	}
}

func formGrant(moduleID, formID string, perms access.GrantPermissions) access.GrantRecord {
	return access.GrantRecord{
		ResourceType: access.ResourceForm,
		ResourceID:   formID,
		Resource:     &access.GrantResource{ModuleID: moduleID},
		Permissions:  perms,
	}
}

var _ = Describe("Compiler", func() {
	var (
		compiler *access.Compiler
		recorder *fakeRecorder
	)

	BeforeEach(func() {
		recorder = &fakeRecorder{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		compiler = access.NewCompiler(logger, access.WithRecorder(recorder))
	})

	Describe("Compile", func() {
		Context("with module grants", func() {
			It("should build the module entry and flat keys", func() {
				snap := compiler.Compile([]access.GrantRecord{
					moduleGrant("hr", access.GrantPermissions{CanView: true, CanCreate: true}),
				})

				entry, ok := snap.Matrix.Module("hr")
				Expect(ok).To(BeTrue())
				Expect(entry.Permissions.Allows(access.ActionView)).To(BeTrue())
				Expect(entry.Permissions.Allows(access.ActionAdd)).To(BeTrue())
				Expect(entry.Permissions.Allows(access.ActionEdit)).To(BeFalse())
				Expect(snap.Permissions()).To(Equal([]string{"hr:add", "hr:view"}))
			})

			It("should merge repeated grants for one module by union", func() {
				snap := compiler.Compile([]access.GrantRecord{
					moduleGrant("hr", access.GrantPermissions{CanView: true}),
					moduleGrant("hr", access.GrantPermissions{CanDelete: true}),
				})

				entry, _ := snap.Matrix.Module("hr")
				Expect(entry.Permissions.Actions()).To(Equal([]access.Action{access.ActionView, access.ActionDelete}))
			})

			It("should keep an all-false module present", func() {
				snap := compiler.Compile([]access.GrantRecord{
					moduleGrant("hr", access.GrantPermissions{}),
				})

				entry, ok := snap.Matrix.Module("hr")
				Expect(ok).To(BeTrue())
				Expect(entry.Permissions.IsEmpty()).To(BeTrue())
				Expect(snap.Permissions()).To(BeEmpty())
			})
		})

		Context("with form grants", func() {
			It("should create a placeholder module for a form-only grant", func() {
				snap := compiler.Compile([]access.GrantRecord{
					formGrant("hr", "f1", access.GrantPermissions{CanView: true}),
				})

				entry, ok := snap.Matrix.Module("hr")
				Expect(ok).To(BeTrue())
				Expect(entry.Permissions.IsEmpty()).To(BeTrue())

				form, ok := snap.Matrix.Form("hr", "f1")
				Expect(ok).To(BeTrue())
				Expect(form.Permissions.Allows(access.ActionView)).To(BeTrue())
				Expect(snap.Permissions()).To(Equal([]string{"hr:f1:view"}))
			})
		})

		Context("with malformed grants", func() {
			It("should skip them and keep the rest", func() {
				snap := compiler.Compile([]access.GrantRecord{
					{ResourceType: access.ResourceModule, Permissions: access.GrantPermissions{CanView: true}},
					{ResourceType: "widget", ResourceID: "w1", Permissions: access.GrantPermissions{CanView: true}},
					{ResourceType: access.ResourceForm, ResourceID: "f1", Permissions: access.GrantPermissions{CanView: true}},
					moduleGrant("finance", access.GrantPermissions{CanEdit: true}),
				})

				Expect(snap.Matrix.ModuleIDs()).To(Equal([]string{"finance"}))
				Expect(recorder.calls).To(Equal([]recordedCompile{{used: 1, skipped: 3}}))
			})

			It("should yield an empty matrix when nothing is usable", func() {
				snap := compiler.Compile([]access.GrantRecord{{ResourceType: "bogus"}})
				Expect(snap.Matrix.Len()).To(Equal(0))
				Expect(snap.Permissions()).To(BeEmpty())
				Expect(snap.System).To(Equal(access.SystemPermissions{}))
			})

			It("should still honor the system admin flag", func() {
				snap := compiler.Compile([]access.GrantRecord{{ResourceType: "bogus", IsSystemAdmin: true}})
				Expect(snap.System.IsAdmin).To(BeTrue())
			})
		})

		Context("with system grants", func() {
			It("should set system capabilities independently", func() {
				snap := compiler.Compile([]access.GrantRecord{
					{ResourceType: access.ResourceSystem, ResourceID: access.SystemCapabilityUsers, Permissions: access.GrantPermissions{CanManage: true}},
					{ResourceType: access.ResourceSystem, ResourceID: access.SystemCapabilityRoles, Permissions: access.GrantPermissions{CanView: true}},
				})

				Expect(snap.System).To(Equal(access.SystemPermissions{CanManageUsers: true}))
				Expect(snap.Matrix.Len()).To(Equal(0))
			})

			It("should grant every system capability to an admin", func() {
				snap := compiler.Compile([]access.GrantRecord{
					{ResourceType: access.ResourceSystem, ResourceID: access.SystemMarker, IsSystemAdmin: true},
				})

				Expect(snap.System).To(Equal(access.SystemPermissions{
					IsAdmin:              true,
					CanManageUsers:       true,
					CanManageRoles:       true,
					CanManagePermissions: true,
				}))
			})
		})

		Context("with expiring grants", func() {
			It("should report the earliest expiry", func() {
				soon := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
				later := soon.Add(time.Hour)

				a := moduleGrant("hr", access.GrantPermissions{CanEdit: true})
				a.ExpiresAt = &later
				b := moduleGrant("finance", access.GrantPermissions{CanView: true})
				b.ExpiresAt = &soon

				snap := compiler.Compile([]access.GrantRecord{a, b})
				Expect(snap.NextExpiry).NotTo(BeNil())
				Expect(*snap.NextExpiry).To(Equal(soon))
			})
		})

		It("should be order independent", func() {
			grants := []access.GrantRecord{
				moduleGrant("hr", access.GrantPermissions{CanView: true}),
				formGrant("hr", "f1", access.GrantPermissions{CanEdit: true}),
				moduleGrant("finance", access.GrantPermissions{CanManage: true}),
				moduleGrant("hr", access.GrantPermissions{CanDelete: true}),
			}
			reversed := make([]access.GrantRecord, len(grants))
			for i, g := range grants {
				reversed[len(grants)-1-i] = g
			}

			Expect(compiler.Compile(reversed)).To(Equal(compiler.Compile(grants)))
		})
	})

	Describe("Matrix JSON", func() {
		It("should round trip through the wire shape", func() {
			snap := compiler.Compile([]access.GrantRecord{
				moduleGrant("hr", access.GrantPermissions{CanView: true, CanCreate: true}),
				formGrant("hr", "f1", access.GrantPermissions{CanEdit: true}),
			})

			data, err := json.Marshal(snap.Matrix)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"canAdd":true`))
			Expect(string(data)).To(ContainSubstring(`"subModules":{"f1"`))

			var decoded access.Matrix
			Expect(json.Unmarshal(data, &decoded)).To(Succeed())
			Expect(decoded).To(Equal(snap.Matrix))
		})

		It("should encode an empty matrix as an object", func() {
			data, err := json.Marshal(access.Matrix{})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("{}"))
		})
	})
})

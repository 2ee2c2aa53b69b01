package cmd

import (
	"fmt"
	"log"

	"github.com/frahmantamala/backoffice-access/internal/access"
	accessDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/access"
	catalogDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/catalog"
	userDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample modules, forms, roles, grants and users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			if err := clearSeedData(db); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Existing data cleared")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		if err := db.Transaction(func(tx *gorm.DB) error {
			return seed(tx, string(hash))
		}); err != nil {
			log.Fatalf("failed to seed: %v", err)
		}

		fmt.Println("Access data seeded successfully")
	},
}

type seedPermission struct {
	name         string
	category     access.Category
	action       access.Action
	resourceType access.ResourceType
	resourceID   string
	moduleID     *string
}

func strPtr(s string) *string { return &s }

var (
	seedModules = []catalogDatamodel.Module{
		{ID: "hr", Name: "Human Resources", Level: 0, ModuleType: "standard", IsActive: true},
		{ID: "finance", Name: "Finance", Level: 0, ModuleType: "standard", IsActive: true},
		{ID: "payroll", Name: "Payroll", ParentID: strPtr("finance"), Level: 1, ModuleType: "standard", IsActive: true},
		{ID: "settings", Name: "Settings", Level: 0, ModuleType: "system", IsActive: true},
	}

	seedForms = []catalogDatamodel.Form{
		{ID: "employees", ModuleID: "hr", Name: "Employees", IsActive: true},
		{ID: "leave", ModuleID: "hr", Name: "Leave Requests", IsActive: true},
		{ID: "invoices", ModuleID: "finance", Name: "Invoices", IsActive: true},
		{ID: "runs", ModuleID: "payroll", Name: "Payroll Runs", IsActive: true},
	}
)

func seedPermissions() []seedPermission {
	var perms []seedPermission
	for _, m := range seedModules {
		for _, a := range access.Actions() {
			perms = append(perms, seedPermission{
				name:         fmt.Sprintf("%s.%s", m.ID, a),
				category:     categoryFor(a),
				action:       a,
				resourceType: access.ResourceModule,
				resourceID:   m.ID,
			})
		}
	}
	for _, f := range seedForms {
		for _, a := range access.Actions() {
			perms = append(perms, seedPermission{
				name:         fmt.Sprintf("%s.%s.%s", f.ModuleID, f.ID, a),
				category:     categoryFor(a),
				action:       a,
				resourceType: access.ResourceForm,
				resourceID:   f.ID,
				moduleID:     strPtr(f.ModuleID),
			})
		}
	}
	for _, sys := range []string{access.SystemCapabilityUsers, access.SystemCapabilityRoles, access.SystemCapabilityPermissions} {
		perms = append(perms, seedPermission{
			name:         "system." + sys + ".manage",
			category:     access.CategoryAdmin,
			action:       access.ActionManage,
			resourceType: access.ResourceSystem,
			resourceID:   sys,
		})
	}
	return perms
}

func categoryFor(a access.Action) access.Category {
	switch a {
	case access.ActionView:
		return access.CategoryRead
	case access.ActionDelete:
		return access.CategoryDelete
	case access.ActionManage:
		return access.CategoryAdmin
	}
	return access.CategoryWrite
}

func seed(tx *gorm.DB, passwordHash string) error {
	for i := range seedModules {
		m := seedModules[i]
		if err := tx.Where(catalogDatamodel.Module{ID: m.ID}).FirstOrCreate(&m).Error; err != nil {
			return fmt.Errorf("module %s: %w", m.ID, err)
		}
	}
	for i := range seedForms {
		f := seedForms[i]
		if err := tx.Where(catalogDatamodel.Form{ID: f.ID, ModuleID: f.ModuleID}).FirstOrCreate(&f).Error; err != nil {
			return fmt.Errorf("form %s/%s: %w", f.ModuleID, f.ID, err)
		}
	}

	permIDs := make(map[string]int64)
	for _, p := range seedPermissions() {
		row := accessDatamodel.Permission{
			Name:         p.name,
			Category:     string(p.category),
			Action:       p.action.String(),
			ResourceType: string(p.resourceType),
			ResourceID:   p.resourceID,
			ModuleID:     p.moduleID,
		}
		if err := tx.Where(accessDatamodel.Permission{Name: p.name}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("permission %s: %w", p.name, err)
		}
		permIDs[p.name] = row.ID
	}
	fmt.Printf("Seeded %d permissions\n", len(permIDs))

	roles := map[string][]string{
		"HR Manager": {
			"hr.view", "hr.add", "hr.edit", "hr.delete",
			"hr.employees.view", "hr.employees.edit", "hr.leave.view", "hr.leave.manage",
		},
		"Finance Viewer": {
			"finance.view", "finance.invoices.view", "payroll.view", "payroll.runs.view",
		},
		"Access Administrator": {
			"settings.view", "settings.manage",
			"system.users.manage", "system.roles.manage", "system.permissions.manage",
		},
	}
	roleIDs := make(map[string]int64)
	for name, grants := range roles {
		role := userDatamodel.Role{Name: name, OrganizationID: 1, IsActive: true}
		if err := tx.Where(userDatamodel.Role{Name: name, OrganizationID: 1}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("role %s: %w", name, err)
		}
		roleIDs[name] = role.ID
		for _, g := range grants {
			rp := accessDatamodel.RolePermission{RoleID: role.ID, PermissionID: permIDs[g], Granted: true}
			if err := tx.Where(accessDatamodel.RolePermission{RoleID: role.ID, PermissionID: permIDs[g]}).FirstOrCreate(&rp).Error; err != nil {
				return fmt.Errorf("grant %s to %s: %w", g, name, err)
			}
		}
		fmt.Printf("Seeded role %s with %d grants\n", name, len(grants))
	}

	users := []struct {
		email string
		name  string
		dept  string
		admin bool
		roles []string
	}{
		{email: "admin@mail.com", name: "System Admin", dept: "IT", admin: true},
		{email: "hr@mail.com", name: "Hana HR", dept: "HR", roles: []string{"HR Manager"}},
		{email: "finance@mail.com", name: "Fadhil Finance", dept: "Finance", roles: []string{"Finance Viewer"}},
		{email: "access@mail.com", name: "Padil Access", dept: "IT", roles: []string{"Access Administrator", "Finance Viewer"}},
	}
	for _, u := range users {
		row := userDatamodel.User{
			Email:          u.email,
			Name:           u.name,
			PasswordHash:   passwordHash,
			Department:     u.dept,
			OrganizationID: 1,
			IsSystemAdmin:  u.admin,
			IsActive:       true,
		}
		if err := tx.Where(userDatamodel.User{Email: u.email}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("user %s: %w", u.email, err)
		}
		for _, r := range u.roles {
			ur := userDatamodel.UserRole{UserID: row.ID, RoleID: roleIDs[r]}
			if err := tx.Where(ur).FirstOrCreate(&ur).Error; err != nil {
				return fmt.Errorf("assign %s to %s: %w", r, u.email, err)
			}
		}
		fmt.Println("Seeded user:", u.email)
	}
	return nil
}

func clearSeedData(db *gorm.DB) error {
	tables := []string{
		"user_permission_overrides",
		"role_permissions",
		"user_roles",
		"permissions",
		"forms",
		"modules",
		"roles",
		"users",
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec("DELETE FROM " + t).Error; err != nil {
				return fmt.Errorf("clear %s: %w", t, err)
			}
		}
		return nil
	})
}

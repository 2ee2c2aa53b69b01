package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/backoffice-access/internal/core/datamodel/user"
)

type User struct {
	ID            int64
	Email         string
	Name          string
	Department    string
	IsSystemAdmin bool
	IsActive      bool
	Roles         []Role
	CreatedAt     time.Time
}

type Role struct {
	ID       int64
	Name     string
	ParentID *int64
	Level    int
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Department:    u.Department,
		IsSystemAdmin: u.IsSystemAdmin,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		Roles:         []Role{},
	}
}

func RoleFromDataModel(r *userDatamodel.Role) Role {
	return Role{
		ID:       r.ID,
		Name:     r.Name,
		ParentID: r.ParentID,
		Level:    r.Level,
	}
}

func (u *User) ToResponse(permissions []string) ProfileResponse {
	roles := make([]RoleResponse, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, RoleResponse{ID: r.ID, Name: r.Name, ParentID: r.ParentID, Level: r.Level})
	}
	return ProfileResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Department:    u.Department,
		IsSystemAdmin: u.IsSystemAdmin,
		Roles:         roles,
		Permissions:   permissions,
		CreatedAt:     u.CreatedAt,
	}
}

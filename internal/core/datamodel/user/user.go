package user

import "time"

type User struct {
	ID             int64     `gorm:"primaryKey"`
	Email          string    `gorm:"column:email;uniqueIndex;not null"`
	Name           string    `gorm:"column:name;not null"`
	PasswordHash   string    `gorm:"column:password_hash;not null"`
	Department     string    `gorm:"column:department"`
	OrganizationID int64     `gorm:"column:organization_id;not null;default:1"`
	IsSystemAdmin  bool      `gorm:"column:is_system_admin;default:false"`
	IsActive       bool      `gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Role rows form a tree through ParentID. Grants are stored per role; the
// tree is never walked when resolving access.
type Role struct {
	ID             int64     `gorm:"primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	OrganizationID int64     `gorm:"column:organization_id;not null;default:1"`
	ParentID       *int64    `gorm:"column:parent_id"`
	Level          int       `gorm:"column:level;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

type UserRole struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	RoleID    int64     `gorm:"column:role_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

package access

import "time"

type Permission struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"column:name;uniqueIndex;not null"`
	Category     string    `gorm:"column:category;not null"`
	Action       string    `gorm:"column:action"`
	Resource     string    `gorm:"column:resource"`
	ResourceType string    `gorm:"column:resource_type;not null"`
	ResourceID   string    `gorm:"column:resource_id;not null"`
	ModuleID     *string   `gorm:"column:module_id"`
	Description  string    `gorm:"column:description"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

type RolePermission struct {
	ID           int64     `gorm:"primaryKey"`
	RoleID       int64     `gorm:"column:role_id;not null;index"`
	PermissionID int64     `gorm:"column:permission_id;not null"`
	ModuleID     *string   `gorm:"column:module_id"`
	Granted      bool      `gorm:"column:granted;not null"`
	CanDelegate  bool      `gorm:"column:can_delegate;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

type UserPermissionOverride struct {
	ID           int64      `gorm:"primaryKey"`
	UserID       int64      `gorm:"column:user_id;not null;index"`
	PermissionID int64      `gorm:"column:permission_id;not null"`
	ModuleID     *string    `gorm:"column:module_id"`
	Granted      bool       `gorm:"column:granted;not null"`
	Reason       string     `gorm:"column:reason;not null"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	GrantedBy    *int64     `gorm:"column:granted_by"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package catalog

type Module struct {
	ID         string  `gorm:"primaryKey;column:id"`
	Name       string  `gorm:"column:name;not null"`
	ParentID   *string `gorm:"column:parent_id"`
	Level      int     `gorm:"column:level;not null;default:0"`
	ModuleType string  `gorm:"column:module_type;not null;default:'standard'"`
	IsActive   bool    `gorm:"column:is_active;default:true"`
}

type Form struct {
	ID       string `gorm:"primaryKey;column:id"`
	ModuleID string `gorm:"primaryKey;column:module_id"`
	Name     string `gorm:"column:name;not null"`
	IsActive bool   `gorm:"column:is_active;default:true"`
}

package model

import (
	"time"

	"librestock/internal/rbac"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a named, reusable bundle of (resource, permission) grants.
type Role struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string           `gorm:"type:varchar(500)" json:"description"`
	IsSystem    bool             `gorm:"default:false" json:"is_system"` // Seeded roles; protected from deletion
	Permissions []RolePermission `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"permissions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RolePermission grants one permission kind on one resource to a role.
// (role_id, resource, permission) is unique, so a role's set has no duplicates.
type RolePermission struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"-"`
	RoleID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_role_resource_perm" json:"-"`
	Resource   rbac.Resource   `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_resource_perm" json:"resource"`
	Permission rbac.Permission `gorm:"type:varchar(20);not null;uniqueIndex:idx_role_resource_perm" json:"permission"`
}

func (p *RolePermission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// UserRole binds a user to a role. Users may hold any number of roles;
// (user_id, role_id) is unique so re-assignment is a no-op.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role;index" json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (ur *UserRole) BeforeCreate(_ *gorm.DB) error {
	if ur.ID == uuid.Nil {
		ur.ID = uuid.New()
	}
	return nil
}

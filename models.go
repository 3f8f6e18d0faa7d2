package rbac

import (
	"time"

	"gorm.io/gorm"
)

// Seeded role names.
const (
	RoleSuperAdmin = "super_admin"
	RoleManager    = "manager"
	RoleEmployee   = "employee"
)

// Role is a named bundle of permissions. Roles are seeded, not created by
// request flows.
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents a named capability, dot-scoped as "<verb>.<resource>".
type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is the identity record. Manager and Employee profiles point at it;
// the user has no forward pointer to its profile.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Email        string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	RoleID       uint           `gorm:"not null;index" json:"role_id"`
	Role         Role           `json:"role,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Company is the tenant root.
type Company struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Email     string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone     string         `gorm:"size:32;uniqueIndex;not null" json:"phone"`
	Roles     []Role         `gorm:"many2many:company_roles;" json:"roles,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Manager is the profile of a company's manager account.
type Manager struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CompanyID uint           `gorm:"not null;index" json:"company_id"`
	Company   *Company       `json:"company,omitempty"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      *User          `json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Phone     string         `gorm:"size:32" json:"phone"`
	Address   string         `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Employee is a company member profile, optionally bound to a login.
type Employee struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CompanyID uint           `gorm:"not null;index" json:"company_id"`
	Company   *Company       `json:"company,omitempty"`
	UserID    *uint          `gorm:"index" json:"user_id,omitempty"`
	User      *User          `json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Phone     string         `gorm:"size:32" json:"phone"`
	Address   string         `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuditLog tracks permission checks and role/tenant mutations.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ActorUserID uint      `gorm:"index;not null" json:"actor_user_id"`
	Action      string    `gorm:"size:64;not null" json:"action"`
	TargetType  string    `gorm:"size:64;not null" json:"target_type"`
	TargetID    uint      `gorm:"index" json:"target_id"`
	Success     bool      `json:"success"`
	Details     string    `json:"details"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// Models lists every table owned by the package, in migration order.
func Models() []any {
	return []any{
		&Permission{},
		&Role{},
		&User{},
		&Company{},
		&Manager{},
		&Employee{},
		&AuditLog{},
	}
}

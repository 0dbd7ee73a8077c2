package models

import (
	"time"
)

// User roles
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleConsultant = "consultant"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name            string     `gorm:"not null;index" json:"name"`
	Email           string     `gorm:"uniqueIndex;not null" json:"email"`
	Password        string     `gorm:"not null" json:"-"`
	Role            string     `gorm:"not null;default:consultant" json:"role"` // admin, manager, consultant
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`

	// Relationships
	Projects    []Project   `gorm:"many2many:project_user;" json:"projects,omitempty"`
	TimeEntries []TimeEntry `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsValidRole checks if the role is one of the known roles
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleConsultant:
		return true
	}
	return false
}

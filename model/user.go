package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents a registered learner, teacher or administrator
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Username     string         `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	FirstName    string         `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string         `gorm:"type:varchar(150)" json:"last_name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, teacher, admin
	IsVerified   bool           `gorm:"default:false" json:"is_verified"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	ChatSessions   []ChatSession       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// FullName joins first and last name, falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// CanManageContent reports whether the user may create or edit lessons
func (u *User) CanManageContent() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}

// IsValidRole reports whether role is one of the known user roles
func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

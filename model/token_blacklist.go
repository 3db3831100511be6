package model

import (
	"time"
)

// Revocation reasons recorded on blacklist entries
const (
	RevokeReasonLogout  = "logout"
	RevokeReasonRefresh = "token_refresh"
)

// JWTTokenBlacklist stores the JTI of revoked access and refresh tokens until they expire
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"` // token JTI
	UserID    uint      `gorm:"index" json:"user_id"`
	Reason    string    `gorm:"type:varchar(50)" json:"reason"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for JWTTokenBlacklist
func (JWTTokenBlacklist) TableName() string {
	return "jwt_token_blacklist"
}

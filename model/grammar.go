package model

import (
	"time"

	"gorm.io/gorm"
)

// Grammar is a written grammar lesson with examples and exercises
type Grammar struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	CreatedByID       uint           `gorm:"not null;index" json:"created_by_id"`
	CategoryID        *uint          `gorm:"index" json:"category_id"`
	Title             string         `gorm:"type:varchar(200);not null" json:"title"`
	Content           string         `gorm:"type:text;not null" json:"content"`
	Examples          string         `gorm:"type:text" json:"examples"`
	Exercises         string         `gorm:"type:text" json:"exercises"`
	Status            ContentStatus  `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	CoverImage        string         `gorm:"type:varchar(500)" json:"cover_image"`
	SortOrder         int            `gorm:"default:0" json:"order"`
	EstimatedDuration int            `gorm:"default:30" json:"estimated_duration"` // minutes
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	CreatedBy *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Category  *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

// TableName specifies the table name for Grammar
func (Grammar) TableName() string {
	return "grammar_lessons"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Category groups grammar lessons by theme
type Category struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	GrammarLessons []Grammar `gorm:"foreignKey:CategoryID" json:"-"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

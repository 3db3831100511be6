package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// VideoLesson is an uploaded video with level and viewing statistics
type VideoLesson struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedByID  uint           `gorm:"not null;index" json:"created_by_id"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	VideoURL     string         `gorm:"type:varchar(500);not null" json:"video_url"`
	ThumbnailURL string         `gorm:"type:varchar(500)" json:"thumbnail"`
	Level        Level          `gorm:"type:varchar(20);default:'beginner';index" json:"level"`
	Duration     int            `gorm:"default:0" json:"duration"` // seconds
	Status       ContentStatus  `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	SortOrder    int            `gorm:"default:0" json:"order"`
	ViewsCount   int64          `gorm:"default:0" json:"views_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	DurationFormatted string `gorm:"-" json:"duration_formatted"`

	// Relationships
	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// TableName specifies the table name for VideoLesson
func (VideoLesson) TableName() string {
	return "video_lessons"
}

// AfterFind fills the derived duration string
func (v *VideoLesson) AfterFind(tx *gorm.DB) error {
	v.DurationFormatted = FormatDuration(v.Duration)
	return nil
}

// AfterSave keeps the derived duration string in sync after writes
func (v *VideoLesson) AfterSave(tx *gorm.DB) error {
	v.DurationFormatted = FormatDuration(v.Duration)
	return nil
}

// FormatDuration renders seconds as MM:SS, or HH:MM:SS from one hour up
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

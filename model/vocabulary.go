package model

import (
	"time"

	"gorm.io/gorm"
)

// VocabularyWord is a Turkmen to English word pair with usage notes
type VocabularyWord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedByID     *uint          `gorm:"index" json:"created_by_id"`
	TurkmenWord     string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_vocabulary_pair" json:"turkmen_word"`
	EnglishWord     string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_vocabulary_pair" json:"english_word"`
	Definition      string         `gorm:"type:text" json:"definition"`
	ExampleSentence string         `gorm:"type:text" json:"example_sentence"`
	Pronunciation   string         `gorm:"type:varchar(100)" json:"pronunciation"`
	Level           Level          `gorm:"type:varchar(20);default:'beginner';index" json:"level"`
	Category        string         `gorm:"type:varchar(100);index" json:"category"`
	AudioURL        string         `gorm:"type:varchar(500)" json:"audio_file"`
	Status          ContentStatus  `gorm:"type:varchar(20);default:'published';index" json:"status"`
	Synonyms        StringList     `json:"synonyms"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	CreatedBy *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"created_by,omitempty"`
}

// TableName specifies the table name for VocabularyWord
func (VocabularyWord) TableName() string {
	return "vocabulary_words"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// DefaultSessionTitle is the placeholder title of a session that has not been retitled yet
const DefaultSessionTitle = "New Chat"

// ProficiencyLevel is the learner level a chat session adapts to
type ProficiencyLevel string

const (
	ProficiencyBeginner     ProficiencyLevel = "beginner"
	ProficiencyIntermediate ProficiencyLevel = "intermediate"
	ProficiencyAdvanced     ProficiencyLevel = "advanced"
)

// Valid reports whether p is a known proficiency level
func (p ProficiencyLevel) Valid() bool {
	switch p {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced:
		return true
	}
	return false
}

// LearningFocus is the skill area a chat session concentrates on
type LearningFocus string

const (
	FocusGeneral       LearningFocus = "general"
	FocusGrammar       LearningFocus = "grammar"
	FocusVocabulary    LearningFocus = "vocabulary"
	FocusConversation  LearningFocus = "conversation"
	FocusReading       LearningFocus = "reading"
	FocusWriting       LearningFocus = "writing"
	FocusPronunciation LearningFocus = "pronunciation"
	FocusExam          LearningFocus = "exam"
)

// Valid reports whether f is a known learning focus
func (f LearningFocus) Valid() bool {
	switch f {
	case FocusGeneral, FocusGrammar, FocusVocabulary, FocusConversation,
		FocusReading, FocusWriting, FocusPronunciation, FocusExam:
		return true
	}
	return false
}

// ChatSession is a titled conversation between one user and the teaching assistant
type ChatSession struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UserID           uint             `gorm:"not null;index" json:"user_id"`
	Title            string           `gorm:"type:varchar(255);default:'New Chat'" json:"title"`
	ProficiencyLevel ProficiencyLevel `gorm:"type:varchar(20);default:'intermediate'" json:"proficiency_level"`
	LearningFocus    LearningFocus    `gorm:"type:varchar(20);default:'general'" json:"learning_focus"`
	MessageCount     int              `gorm:"default:0" json:"message_count"`
	LastMessageAt    *time.Time       `json:"last_message_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relationships
	User     *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Messages []ChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName specifies the table name for ChatSession
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// HasDefaultTitle reports whether the session still carries the placeholder title
func (s *ChatSession) HasDefaultTitle() bool {
	return s.Title == "" || s.Title == DefaultSessionTitle
}

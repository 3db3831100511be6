package model

import (
	"time"

	"gorm.io/datatypes"
)

// MessageRole represents the role of the message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Keys stored in ChatMessage.Metadata
const (
	MetaIntent       = "intent"
	MetaExerciseType = "exercise_type"
	MetaLevel        = "level"
	MetaLessonTopic  = "lesson_topic"
	MetaCacheHit     = "cache_hit"
	MetaErrorKind    = "error_kind"
	MetaFirstMessage = "first_message"
)

// ChatMessage is a single immutable turn of a chat session
type ChatMessage struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
	SessionID    uint              `gorm:"not null;index" json:"session_id"`
	Role         MessageRole       `gorm:"type:varchar(20);not null" json:"role"`
	Content      string            `gorm:"type:text;not null" json:"content"`
	ModelUsed    string            `gorm:"type:varchar(100)" json:"model_used,omitempty"`
	ResponseTime int               `gorm:"default:0" json:"response_time_ms"` // Response time in milliseconds
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`

	// Relationships
	Session *ChatSession `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// IsAssistant reports whether the message was written by the teaching assistant
func (m *ChatMessage) IsAssistant() bool {
	return m.Role == MessageRoleAssistant
}

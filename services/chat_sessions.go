package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/e-center-api/model"
	"gorm.io/gorm"
)

// CreateSessionInput holds the optional settings of a new session
type CreateSessionInput struct {
	Title            string
	ProficiencyLevel model.ProficiencyLevel
	LearningFocus    model.LearningFocus
}

// UpdateSessionInput holds the fields a user may change; nil means unchanged
type UpdateSessionInput struct {
	Title            *string
	ProficiencyLevel *model.ProficiencyLevel
	LearningFocus    *model.LearningFocus
}

// ListSessions returns the user's sessions, most recently active first
func (s *ChatService) ListSessions(ctx context.Context, userID uint, limit, offset int) ([]model.ChatSession, int64, error) {
	var total int64
	query := s.db.WithContext(ctx).Model(&model.ChatSession{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	var sessions []model.ChatSession
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	return sessions, total, nil
}

// GetSession loads a session of the user together with its messages
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return &session, nil
}

// CreateSession opens an empty session
func (s *ChatService) CreateSession(ctx context.Context, userID uint, in CreateSessionInput) (*model.ChatSession, error) {
	if in.ProficiencyLevel != "" && !in.ProficiencyLevel.Valid() {
		return nil, ErrInvalidProficiency
	}
	if in.LearningFocus != "" && !in.LearningFocus.Valid() {
		return nil, ErrInvalidLearningFocus
	}

	session := model.ChatSession{
		UserID:           userID,
		Title:            strings.TrimSpace(in.Title),
		ProficiencyLevel: in.ProficiencyLevel,
		LearningFocus:    in.LearningFocus,
	}
	if session.Title == "" {
		session.Title = model.DefaultSessionTitle
	}
	if session.ProficiencyLevel == "" {
		session.ProficiencyLevel = model.ProficiencyIntermediate
	}
	if session.LearningFocus == "" {
		session.LearningFocus = model.FocusGeneral
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// UpdateSession changes title or settings. It waits for a running turn of
// the same session to finish.
func (s *ChatService) UpdateSession(ctx context.Context, userID, sessionID uint, in UpdateSessionInput) (*model.ChatSession, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			title = model.DefaultSessionTitle
		}
		updates["title"] = title
	}
	if in.ProficiencyLevel != nil {
		if !in.ProficiencyLevel.Valid() {
			return nil, ErrInvalidProficiency
		}
		updates["proficiency_level"] = *in.ProficiencyLevel
	}
	if in.LearningFocus != nil {
		if !in.LearningFocus.Valid() {
			return nil, ErrInvalidLearningFocus
		}
		updates["learning_focus"] = *in.LearningFocus
	}

	var session model.ChatSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to fetch session: %w", err)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&session).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return tx.First(&session, sessionID).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session and its messages
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.ChatSession
		if err := tx.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to fetch session: %w", err)
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(&session).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// ListMessages returns the user's messages, newest first, optionally
// restricted to one session.
func (s *ChatService) ListMessages(ctx context.Context, userID uint, sessionID *uint, limit, offset int) ([]model.ChatMessage, int64, error) {
	owned := s.db.Model(&model.ChatSession{}).Select("id").Where("user_id = ?", userID)

	query := s.db.WithContext(ctx).Model(&model.ChatMessage{}).Where("session_id IN (?)", owned)
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []model.ChatMessage
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, total, nil
}

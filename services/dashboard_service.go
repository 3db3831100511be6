package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/e-center-api/model"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when a dashboard is requested for a missing user
var ErrUserNotFound = errors.New("user not found")

// DashboardService aggregates content and user statistics
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// ContentTotals counts learning content by kind
type ContentTotals struct {
	Grammar    int64 `json:"grammar"`
	Videos     int64 `json:"videos"`
	Vocabulary int64 `json:"vocabulary"`
}

// CategorySummary is a category with the number of grammar lessons in it
type CategorySummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	GrammarCount int64  `json:"grammar_count"`
}

// Progress is a student's completion of the published content
type Progress struct {
	Completed  int64   `json:"completed"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// UserDashboard is the overview shown to a signed-in user
type UserDashboard struct {
	UserID         uint                        `json:"user_id"`
	Username       string                      `json:"username"`
	Email          string                      `json:"email"`
	Role           string                      `json:"role"`
	Totals         ContentTotals               `json:"totals"`
	Categories     []CategorySummary           `json:"categories"`
	Progress       *Progress                   `json:"progress"`
	CreatedContent map[string]map[string]int64 `json:"created_content,omitempty"`
	ChatSessions   int64                       `json:"chat_sessions"`
}

// SystemDashboard is the administrator overview
type SystemDashboard struct {
	UsersByRole map[string]int64            `json:"users_by_role"`
	TotalUsers  int64                       `json:"total_users"`
	Content     map[string]map[string]int64 `json:"content_by_status"`
	ByLevel     map[string]map[string]int64 `json:"content_by_level"`
	Totals      ContentTotals               `json:"totals"`
	ChatStats   ChatStats                   `json:"chat"`
}

// ChatStats counts chatbot usage
type ChatStats struct {
	Sessions int64 `json:"sessions"`
	Messages int64 `json:"messages"`
}

type groupCount struct {
	GroupKey string
	RowCount int64
}

// UserDashboard builds the dashboard of userID
func (s *DashboardService) UserDashboard(ctx context.Context, userID uint) (*UserDashboard, error) {
	db := s.db.WithContext(ctx)

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	totals, err := s.publishedTotals(db)
	if err != nil {
		return nil, err
	}

	dash := &UserDashboard{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Totals:   totals,
	}

	if err := db.Model(&model.Category{}).
		Select("categories.id, categories.name, COUNT(grammar_lessons.id) AS grammar_count").
		Joins("LEFT JOIN grammar_lessons ON grammar_lessons.category_id = categories.id AND grammar_lessons.deleted_at IS NULL").
		Group("categories.id, categories.name").
		Order("categories.name ASC").
		Scan(&dash.Categories).Error; err != nil {
		return nil, fmt.Errorf("failed to summarise categories: %w", err)
	}

	if err := db.Model(&model.ChatSession{}).Where("user_id = ?", user.ID).Count(&dash.ChatSessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count chat sessions: %w", err)
	}

	switch user.Role {
	case model.RoleStudent:
		// Lesson completion is not tracked yet
		dash.Progress = &Progress{Total: totals.Grammar + totals.Videos}
	case model.RoleTeacher, model.RoleAdmin:
		created := map[string]map[string]int64{}
		for name, m := range map[string]interface{}{
			"grammar": &model.Grammar{},
			"videos":  &model.VideoLesson{},
		} {
			counts, err := countBy(db.Model(m).Where("created_by_id = ?", user.ID), "status")
			if err != nil {
				return nil, err
			}
			created[name] = counts
		}
		counts, err := countBy(db.Model(&model.VocabularyWord{}).Where("created_by_id = ?", user.ID), "status")
		if err != nil {
			return nil, err
		}
		created["vocabulary"] = counts
		dash.CreatedContent = created
	}

	return dash, nil
}

// SystemDashboard builds the administrator overview
func (s *DashboardService) SystemDashboard(ctx context.Context) (*SystemDashboard, error) {
	db := s.db.WithContext(ctx)
	dash := &SystemDashboard{
		Content: map[string]map[string]int64{},
		ByLevel: map[string]map[string]int64{},
	}

	var err error
	if dash.UsersByRole, err = countBy(db.Model(&model.User{}), "role"); err != nil {
		return nil, err
	}
	for _, n := range dash.UsersByRole {
		dash.TotalUsers += n
	}

	kinds := []struct {
		name  string
		model interface{}
		level bool
	}{
		{"grammar", &model.Grammar{}, false},
		{"videos", &model.VideoLesson{}, true},
		{"vocabulary", &model.VocabularyWord{}, true},
	}
	for _, k := range kinds {
		if dash.Content[k.name], err = countBy(db.Model(k.model), "status"); err != nil {
			return nil, err
		}
		if k.level {
			if dash.ByLevel[k.name], err = countBy(db.Model(k.model), "level"); err != nil {
				return nil, err
			}
		}
	}

	if dash.Totals, err = s.publishedTotals(db); err != nil {
		return nil, err
	}

	if err := db.Model(&model.ChatSession{}).Count(&dash.ChatStats.Sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to count chat sessions: %w", err)
	}
	if err := db.Model(&model.ChatMessage{}).Count(&dash.ChatStats.Messages).Error; err != nil {
		return nil, fmt.Errorf("failed to count chat messages: %w", err)
	}

	return dash, nil
}

func (s *DashboardService) publishedTotals(db *gorm.DB) (ContentTotals, error) {
	var totals ContentTotals
	if err := db.Model(&model.Grammar{}).Where("status = ?", model.StatusPublished).Count(&totals.Grammar).Error; err != nil {
		return totals, fmt.Errorf("failed to count grammar lessons: %w", err)
	}
	if err := db.Model(&model.VideoLesson{}).Where("status = ?", model.StatusPublished).Count(&totals.Videos).Error; err != nil {
		return totals, fmt.Errorf("failed to count videos: %w", err)
	}
	if err := db.Model(&model.VocabularyWord{}).Where("status = ?", model.StatusPublished).Count(&totals.Vocabulary).Error; err != nil {
		return totals, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return totals, nil
}

// countBy groups query by column and returns the row count per value.
// column is always a constant chosen by this package.
func countBy(query *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := query.Select(column + " AS group_key, COUNT(*) AS row_count").Group(column).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count by %s: %w", column, err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[strings.ToLower(r.GroupKey)] = r.RowCount
	}
	return counts, nil
}

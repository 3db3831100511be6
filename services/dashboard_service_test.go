package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/e-center-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedContent(t *testing.T, svc *DashboardService, teacher *model.User) model.Category {
	t.Helper()
	db := svc.db
	tenses := model.Category{Name: "Tenses"}
	articles := model.Category{Name: "Articles"}
	require.NoError(t, db.Create(&tenses).Error)
	require.NoError(t, db.Create(&articles).Error)

	require.NoError(t, db.Create(&model.Grammar{CreatedByID: teacher.ID, CategoryID: &tenses.ID, Title: "Present Simple", Content: "...", Status: model.StatusPublished}).Error)
	require.NoError(t, db.Create(&model.Grammar{CreatedByID: teacher.ID, CategoryID: &tenses.ID, Title: "Past Simple", Content: "...", Status: model.StatusDraft}).Error)
	require.NoError(t, db.Create(&model.VideoLesson{CreatedByID: teacher.ID, Title: "Greetings", VideoURL: "https://cdn.example.com/v.mp4", Level: model.LevelBeginner, Status: model.StatusPublished}).Error)
	require.NoError(t, db.Create(&model.VocabularyWord{CreatedByID: &teacher.ID, TurkmenWord: "kitap", EnglishWord: "book", Level: model.LevelBeginner, Status: model.StatusPublished}).Error)
	require.NoError(t, db.Create(&model.VocabularyWord{TurkmenWord: "mekdep", EnglishWord: "school", Level: model.LevelElementary, Status: model.StatusPublished}).Error)
	return tenses
}

func TestUserDashboardForStudent(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	student := createUser(t, db, "student", model.RoleStudent)
	seedContent(t, svc, teacher)

	dash, err := svc.UserDashboard(context.Background(), student.ID)
	require.NoError(t, err)

	assert.Equal(t, "student", dash.Username)
	assert.Equal(t, ContentTotals{Grammar: 1, Videos: 1, Vocabulary: 2}, dash.Totals)
	require.NotNil(t, dash.Progress)
	assert.Equal(t, int64(2), dash.Progress.Total)
	assert.Zero(t, dash.Progress.Completed)
	assert.Nil(t, dash.CreatedContent)

	require.Len(t, dash.Categories, 2)
	assert.Equal(t, "Articles", dash.Categories[0].Name)
	assert.Zero(t, dash.Categories[0].GrammarCount)
	assert.Equal(t, "Tenses", dash.Categories[1].Name)
	assert.Equal(t, int64(2), dash.Categories[1].GrammarCount)
}

func TestUserDashboardForTeacher(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	seedContent(t, svc, teacher)

	dash, err := svc.UserDashboard(context.Background(), teacher.ID)
	require.NoError(t, err)

	assert.Nil(t, dash.Progress)
	require.NotNil(t, dash.CreatedContent)
	assert.Equal(t, map[string]int64{"published": 1, "draft": 1}, dash.CreatedContent["grammar"])
	assert.Equal(t, map[string]int64{"published": 1}, dash.CreatedContent["videos"])
	assert.Equal(t, map[string]int64{"published": 1}, dash.CreatedContent["vocabulary"])
}

func TestUserDashboardUnknownUser(t *testing.T) {
	svc := NewDashboardService(newTestDB(t))
	_, err := svc.UserDashboard(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSystemDashboard(t *testing.T) {
	db := newTestDB(t)
	svc := NewDashboardService(db)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	createUser(t, db, "student1", model.RoleStudent)
	createUser(t, db, "student2", model.RoleStudent)
	seedContent(t, svc, teacher)

	dash, err := svc.SystemDashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), dash.TotalUsers)
	assert.Equal(t, map[string]int64{"teacher": 1, "student": 2}, dash.UsersByRole)
	assert.Equal(t, map[string]int64{"published": 1, "draft": 1}, dash.Content["grammar"])
	assert.Equal(t, map[string]int64{"beginner": 1, "elementary": 1}, dash.ByLevel["vocabulary"])
	assert.NotContains(t, dash.ByLevel, "grammar")
	assert.Equal(t, ContentTotals{Grammar: 1, Videos: 1, Vocabulary: 2}, dash.Totals)
	assert.Zero(t, dash.ChatStats.Sessions)
}

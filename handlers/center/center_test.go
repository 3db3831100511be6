package center

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/media"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success    bool                    `json:"success"`
	Data       json.RawMessage         `json:"data"`
	Pagination response.PaginationMeta `json:"pagination"`
}

type fakeUploader struct {
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, kind media.Kind, filename string, data []byte) (*media.Object, error) {
	f.calls++
	if _, err := media.Validate(kind, filename, int64(len(data))); err != nil {
		return nil, err
	}
	return &media.Object{
		Key:  "thumbnails/2026/10/x.png",
		URL:  "https://cdn.example.com/thumbnails/2026/10/x.png",
		Size: int64(len(data)),
	}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.NewGORMStore(db).Init())
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// newApp mounts the handler with the caller identified as user, or
// anonymous when user is nil
func newApp(h *CenterHandler, user *model.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
			c.Locals("user_id", user.ID)
			c.Locals("user_role", user.Role)
		}
		return c.Next()
	})
	center := app.Group("/center")
	center.Get("/categories", h.ListCategories)
	center.Post("/categories", h.CreateCategory)
	center.Delete("/categories/:id", h.DeleteCategory)
	center.Get("/grammar", h.ListGrammar)
	center.Get("/grammar/stats", h.GrammarStats)
	center.Get("/grammar/:id", h.GetGrammar)
	center.Post("/grammar", h.CreateGrammar)
	center.Patch("/grammar/:id", h.UpdateGrammar)
	center.Get("/videos", h.ListVideos)
	center.Get("/videos/stats", h.VideoStats)
	center.Post("/videos", h.CreateVideo)
	center.Post("/videos/:id/view", h.RecordVideoView)
	center.Get("/vocabulary", h.ListVocabulary)
	center.Get("/vocabulary/search-advanced", h.SearchVocabulary)
	center.Get("/vocabulary/random", h.RandomVocabulary)
	center.Delete("/vocabulary/:id", h.DeleteVocabulary)
	center.Post("/media", h.UploadMedia)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func seedGrammar(t *testing.T, db *gorm.DB, author *model.User) model.Category {
	t.Helper()
	tenses := model.Category{Name: "Tenses"}
	require.NoError(t, db.Create(&tenses).Error)
	lessons := []model.Grammar{
		{CreatedByID: author.ID, CategoryID: &tenses.ID, Title: "Present Simple", Content: "I work.", Status: model.StatusPublished},
		{CreatedByID: author.ID, CategoryID: &tenses.ID, Title: "Past Simple", Content: "I worked.", Status: model.StatusDraft},
		{CreatedByID: author.ID, Title: "Linking words", Content: "and, but", Status: model.StatusPublished},
	}
	require.NoError(t, db.Create(&lessons).Error)
	return tenses
}

func TestGrammarVisibility(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	seedGrammar(t, db, teacher)
	h := NewCenterHandler(db, nil)

	status, env := doJSON(t, newApp(h, nil), http.MethodGet, "/center/grammar", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), env.Pagination.Total)

	status, env = doJSON(t, newApp(h, teacher), http.MethodGet, "/center/grammar?status=draft", nil)
	require.Equal(t, http.StatusOK, status)
	var lessons []model.Grammar
	require.NoError(t, json.Unmarshal(env.Data, &lessons))
	require.Len(t, lessons, 1)
	assert.Equal(t, "Past Simple", lessons[0].Title)

	var draft model.Grammar
	require.NoError(t, db.Where("title = ?", "Past Simple").First(&draft).Error)
	status, _ = doJSON(t, newApp(h, nil), http.MethodGet, "/center/grammar/"+itoa(draft.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGrammarSearchAndOrdering(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	seedGrammar(t, db, teacher)
	app := newApp(NewCenterHandler(db, nil), teacher)

	_, env := doJSON(t, app, http.MethodGet, "/center/grammar?search=SIMPLE&ordering=title", nil)
	var lessons []model.Grammar
	require.NoError(t, json.Unmarshal(env.Data, &lessons))
	require.Len(t, lessons, 2)
	assert.Equal(t, "Past Simple", lessons[0].Title)
	assert.Equal(t, "Present Simple", lessons[1].Title)

	_, env = doJSON(t, app, http.MethodGet, "/center/grammar?category_name=tenses&limit=1", nil)
	assert.Equal(t, int64(2), env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.TotalPages)
}

func TestGrammarStats(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	seedGrammar(t, db, teacher)

	status, env := doJSON(t, newApp(NewCenterHandler(db, nil), teacher), http.MethodGet, "/center/grammar/stats", nil)
	require.Equal(t, http.StatusOK, status)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, map[string]int64{"tenses": 2}, stats.ByCategory)
	assert.Equal(t, map[string]int64{"published": 2, "draft": 1}, stats.ByStatus)
}

func TestCreateAndUpdateGrammar(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	tenses := seedGrammar(t, db, teacher)
	app := newApp(NewCenterHandler(db, nil), teacher)

	status, env := doJSON(t, app, http.MethodPost, "/center/grammar", fiber.Map{
		"title":       "Future Simple",
		"content":     "I will work.",
		"category_id": tenses.ID,
	})
	require.Equal(t, http.StatusCreated, status)
	var created model.Grammar
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, model.StatusDraft, created.Status)
	assert.Equal(t, teacher.ID, created.CreatedByID)
	assert.Equal(t, 30, created.EstimatedDuration)

	status, env = doJSON(t, app, http.MethodPatch, "/center/grammar/"+itoa(created.ID), fiber.Map{"status": "published"})
	require.Equal(t, http.StatusOK, status)
	var updated model.Grammar
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, model.StatusPublished, updated.Status)
	assert.Equal(t, "I will work.", updated.Content)

	status, _ = doJSON(t, app, http.MethodPatch, "/center/grammar/"+itoa(created.ID), fiber.Map{"status": "hidden"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doJSON(t, app, http.MethodPost, "/center/grammar", fiber.Map{"title": "No category", "content": "x", "category_id": 999})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDeleteCategoryKeepsLessons(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	tenses := seedGrammar(t, db, teacher)
	app := newApp(NewCenterHandler(db, nil), teacher)

	status, _ := doJSON(t, app, http.MethodDelete, "/center/categories/"+itoa(tenses.ID), nil)
	require.Equal(t, http.StatusOK, status)

	var uncategorized int64
	require.NoError(t, db.Model(&model.Grammar{}).Where("category_id IS NULL").Count(&uncategorized).Error)
	assert.Equal(t, int64(3), uncategorized)

	status, _ = doJSON(t, app, http.MethodDelete, "/center/categories/"+itoa(tenses.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVideoViewCounter(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	app := newApp(NewCenterHandler(db, nil), teacher)

	status, env := doJSON(t, app, http.MethodPost, "/center/videos", fiber.Map{
		"title":     "Greetings",
		"video_url": "https://cdn.example.com/videos/greetings.mp4",
		"duration":  3725,
		"status":    "published",
	})
	require.Equal(t, http.StatusCreated, status)
	var video model.VideoLesson
	require.NoError(t, json.Unmarshal(env.Data, &video))
	assert.Equal(t, "01:02:05", video.DurationFormatted)
	assert.Equal(t, model.LevelBeginner, video.Level)

	learner := newApp(NewCenterHandler(db, nil), nil)
	for i := 0; i < 2; i++ {
		status, _ = doJSON(t, learner, http.MethodPost, "/center/videos/"+itoa(video.ID)+"/view", nil)
		require.Equal(t, http.StatusOK, status)
	}

	var views int64
	require.NoError(t, db.Model(&model.VideoLesson{}).Where("id = ?", video.ID).Pluck("views_count", &views).Error)
	assert.Equal(t, int64(2), views)

	_, env = doJSON(t, learner, http.MethodGet, "/center/videos/stats", nil)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, map[string]int64{"beginner": 1}, stats.ByLevel)
}

func seedVocabulary(t *testing.T, db *gorm.DB) {
	t.Helper()
	words := []model.VocabularyWord{
		{TurkmenWord: "öý", EnglishWord: "house", Level: model.LevelBeginner, Category: "Home", Status: model.StatusPublished},
		{TurkmenWord: "uly", EnglishWord: "big", Level: model.LevelBeginner, Category: "Adjectives", Status: model.StatusPublished},
		{TurkmenWord: "kitap", EnglishWord: "book", Level: model.LevelElementary, Category: "School", Status: model.StatusPublished},
		{TurkmenWord: "bazar", EnglishWord: "market", Level: model.LevelElementary, Status: model.StatusDraft},
	}
	require.NoError(t, db.Create(&words).Error)
}

func TestVocabularySearch(t *testing.T) {
	db := newTestDB(t)
	seedVocabulary(t, db)
	app := newApp(NewCenterHandler(db, nil), nil)

	status, env := doJSON(t, app, http.MethodGet, "/center/vocabulary/search-advanced?q=big+house", nil)
	require.Equal(t, http.StatusOK, status)
	var result SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "big house", result.Query)
	assert.Len(t, result.Results, 2)

	_, env = doJSON(t, app, http.MethodGet, "/center/vocabulary?starts_with=K", nil)
	var words []model.VocabularyWord
	require.NoError(t, json.Unmarshal(env.Data, &words))
	require.Len(t, words, 1)
	assert.Equal(t, "book", words[0].EnglishWord)

	_, env = doJSON(t, app, http.MethodGet, "/center/vocabulary?level=elementary", nil)
	assert.Equal(t, int64(1), env.Pagination.Total)
}

func TestRandomVocabulary(t *testing.T) {
	db := newTestDB(t)
	seedVocabulary(t, db)
	app := newApp(NewCenterHandler(db, nil), nil)

	_, env := doJSON(t, app, http.MethodGet, "/center/vocabulary/random?count=2", nil)
	var words []model.VocabularyWord
	require.NoError(t, json.Unmarshal(env.Data, &words))
	assert.Len(t, words, 2)

	_, env = doJSON(t, app, http.MethodGet, "/center/vocabulary/random?level=beginner&count=100", nil)
	require.NoError(t, json.Unmarshal(env.Data, &words))
	assert.Len(t, words, 2)
	for _, w := range words {
		assert.Equal(t, model.LevelBeginner, w.Level)
	}
}

func uploadRequest(t *testing.T, kind, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if kind != "" {
		require.NoError(t, w.WriteField("kind", kind))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/center/media", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadMedia(t *testing.T) {
	db := newTestDB(t)
	teacher := createUser(t, db, "teacher", model.RoleTeacher)
	uploader := &fakeUploader{}
	app := newApp(NewCenterHandler(db, uploader), teacher)

	resp, err := app.Test(uploadRequest(t, "thumbnail", "cover.png", []byte("png-bytes")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, uploader.calls)

	resp, err = app.Test(uploadRequest(t, "thumbnail", "clip.mp4", []byte("mp4-bytes")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(uploadRequest(t, "", "cover.png", []byte("png-bytes")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, uploader.calls)

	unconfigured := newApp(NewCenterHandler(db, nil), teacher)
	resp, err = unconfigured.Test(uploadRequest(t, "thumbnail", "cover.png", []byte("png-bytes")), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

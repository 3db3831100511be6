package center

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/query"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
	"gorm.io/gorm"
)

var grammarOrdering = map[string]string{
	"title":              "title",
	"created_at":         "created_at",
	"updated_at":         "updated_at",
	"estimated_duration": "estimated_duration",
	"order":              "sort_order",
}

// GrammarRequest is the body of grammar lesson create and update. Update
// only touches the fields that are present.
type GrammarRequest struct {
	Title             *string `json:"title" validate:"omitempty,min=3,max=200"`
	Content           *string `json:"content" validate:"omitempty,min=1"`
	Examples          *string `json:"examples"`
	Exercises         *string `json:"exercises"`
	CategoryID        *uint   `json:"category_id"`
	Status            string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	CoverImage        *string `json:"cover_image" validate:"omitempty,url,max=500"`
	Order             *int    `json:"order" validate:"omitempty,min=0"`
	EstimatedDuration *int    `json:"estimated_duration" validate:"omitempty,min=1,max=600"`
}

func (r *GrammarRequest) apply(g *model.Grammar) {
	if r.Title != nil {
		g.Title = validation.SanitizeString(*r.Title)
	}
	if r.Content != nil {
		g.Content = *r.Content
	}
	if r.Examples != nil {
		g.Examples = *r.Examples
	}
	if r.Exercises != nil {
		g.Exercises = *r.Exercises
	}
	if r.CategoryID != nil {
		g.CategoryID = r.CategoryID
		g.Category = nil
	}
	if r.Status != "" {
		g.Status = model.ContentStatus(r.Status)
	}
	if r.CoverImage != nil {
		g.CoverImage = *r.CoverImage
	}
	if r.Order != nil {
		g.SortOrder = *r.Order
	}
	if r.EstimatedDuration != nil {
		g.EstimatedDuration = *r.EstimatedDuration
	}
}

// ListGrammar handles GET /api/v1/center/grammar
func (h *CenterHandler) ListGrammar(c *fiber.Ctx) error {
	page := query.PageFrom(c, 20)
	q := scopeStatus(c, h.db.WithContext(c.UserContext()).Model(&model.Grammar{}))
	q = query.Search(q, c.Query("search"), "title", "content", "examples", "exercises")
	if category := c.QueryInt("category"); category > 0 {
		q = q.Where("category_id = ?", category)
	}
	if name := c.Query("category_name"); name != "" {
		q = q.Where("category_id IN (?)",
			h.db.Model(&model.Category{}).Select("id").Where("LOWER(name) = LOWER(?)", name))
	}
	q = durationRange(c, q, "estimated_duration")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count grammar lessons")
	}

	var lessons []model.Grammar
	if err := q.Preload("Category").Preload("CreatedBy").
		Order(query.Ordering(c.Query("ordering"), grammarOrdering, "created_at DESC")).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&lessons).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch grammar lessons")
	}

	return response.Paginated(c, lessons, response.CalculatePagination(page.Number, page.Limit, total))
}

// GetGrammar handles GET /api/v1/center/grammar/:id
func (h *CenterHandler) GetGrammar(c *fiber.Ctx) error {
	var lesson model.Grammar
	if ok, err := h.findVisible(c, &lesson, "grammar lesson", "Category", "CreatedBy"); !ok {
		return err
	}
	return response.Success(c, lesson)
}

// GrammarStats handles GET /api/v1/center/grammar/stats
func (h *CenterHandler) GrammarStats(c *fiber.Ctx) error {
	base := func() *gorm.DB {
		return scopeStatus(c, h.db.WithContext(c.UserContext()).Model(&model.Grammar{}))
	}

	var stats StatsResponse
	if err := base().Count(&stats.Total).Error; err != nil {
		return response.InternalServerError(c, "Failed to compute grammar statistics")
	}

	var byCategory []groupCount
	err := base().
		Select("LOWER(categories.name) AS group_key, COUNT(*) AS row_count").
		Joins("JOIN categories ON categories.id = grammar_lessons.category_id AND categories.deleted_at IS NULL").
		Group("LOWER(categories.name)").
		Scan(&byCategory).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to compute grammar statistics")
	}
	stats.ByCategory = make(map[string]int64, len(byCategory))
	for _, r := range byCategory {
		stats.ByCategory[r.GroupKey] = r.RowCount
	}

	if stats.ByStatus, err = groupCounts(base(), "grammar_lessons.status"); err != nil {
		return response.InternalServerError(c, "Failed to compute grammar statistics")
	}
	return response.Success(c, stats)
}

// CreateGrammar handles POST /api/v1/center/grammar
func (h *CenterHandler) CreateGrammar(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)

	var req GrammarRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.Title == nil || req.Content == nil {
		return response.BadRequest(c, "Title and content are required")
	}

	lesson := model.Grammar{
		CreatedByID:       userID,
		Status:            model.StatusDraft,
		EstimatedDuration: 30,
	}
	req.apply(&lesson)

	db := h.db.WithContext(c.UserContext())
	if !h.categoryExists(db, lesson.CategoryID) {
		return response.BadRequest(c, "Category does not exist")
	}
	if err := db.Create(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to create grammar lesson")
	}
	return response.Created(c, lesson)
}

// UpdateGrammar handles PUT/PATCH /api/v1/center/grammar/:id
func (h *CenterHandler) UpdateGrammar(c *fiber.Ctx) error {
	var req GrammarRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var lesson model.Grammar
	if ok, err := h.findVisible(c, &lesson, "grammar lesson"); !ok {
		return err
	}
	req.apply(&lesson)

	db := h.db.WithContext(c.UserContext())
	if !h.categoryExists(db, lesson.CategoryID) {
		return response.BadRequest(c, "Category does not exist")
	}
	if err := db.Save(&lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to update grammar lesson")
	}
	return response.Success(c, lesson)
}

// DeleteGrammar handles DELETE /api/v1/center/grammar/:id
func (h *CenterHandler) DeleteGrammar(c *fiber.Ctx) error {
	return h.deleteContent(c, &model.Grammar{}, "Grammar lesson")
}

func (h *CenterHandler) categoryExists(db *gorm.DB, id *uint) bool {
	if id == nil {
		return true
	}
	var count int64
	db.Model(&model.Category{}).Where("id = ?", *id).Count(&count)
	return count > 0
}

// deleteContent soft deletes the row of model with the id of the request
func (h *CenterHandler) deleteContent(c *fiber.Ctx, row interface{}, what string) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid ID")
	}
	result := h.db.WithContext(c.UserContext()).Delete(row, id)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete "+strings.ToLower(what))
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, what+" not found")
	}
	return response.SuccessWithMessage(c, what+" deleted successfully", nil)
}

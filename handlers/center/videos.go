package center

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/query"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
	"gorm.io/gorm"
)

var videoOrdering = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"duration":   "duration",
	"level":      "level",
	"order":      "sort_order",
}

// VideoRequest is the body of video lesson create and update
type VideoRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url" validate:"omitempty,url,max=500"`
	Thumbnail   *string `json:"thumbnail" validate:"omitempty,url,max=500"`
	Level       string  `json:"level" validate:"omitempty,oneof=beginner elementary pre_intermediate intermediate upper_intermediate advanced"`
	Duration    *int    `json:"duration" validate:"omitempty,min=0"`
	Status      string  `json:"status" validate:"omitempty,oneof=draft published archived"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

func (r *VideoRequest) apply(v *model.VideoLesson) {
	if r.Title != nil {
		v.Title = validation.SanitizeString(*r.Title)
	}
	if r.Description != nil {
		v.Description = *r.Description
	}
	if r.VideoURL != nil {
		v.VideoURL = *r.VideoURL
	}
	if r.Thumbnail != nil {
		v.ThumbnailURL = *r.Thumbnail
	}
	if r.Level != "" {
		v.Level = model.Level(r.Level)
	}
	if r.Duration != nil {
		v.Duration = *r.Duration
	}
	if r.Status != "" {
		v.Status = model.ContentStatus(r.Status)
	}
	if r.Order != nil {
		v.SortOrder = *r.Order
	}
}

// ListVideos handles GET /api/v1/center/videos
func (h *CenterHandler) ListVideos(c *fiber.Ctx) error {
	page := query.PageFrom(c, 20)
	q := scopeStatus(c, h.db.WithContext(c.UserContext()).Model(&model.VideoLesson{}))
	q = query.Search(q, c.Query("search"), "title", "description")
	if level := c.Query("level"); level != "" {
		q = q.Where("level = ?", level)
	}
	q = durationRange(c, q, "duration")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count video lessons")
	}

	var videos []model.VideoLesson
	if err := q.Preload("CreatedBy").
		Order(query.Ordering(c.Query("ordering"), videoOrdering, "created_at DESC")).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&videos).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch video lessons")
	}

	return response.Paginated(c, videos, response.CalculatePagination(page.Number, page.Limit, total))
}

// GetVideo handles GET /api/v1/center/videos/:id
func (h *CenterHandler) GetVideo(c *fiber.Ctx) error {
	var video model.VideoLesson
	if ok, err := h.findVisible(c, &video, "video lesson", "CreatedBy"); !ok {
		return err
	}
	return response.Success(c, video)
}

// RecordVideoView handles POST /api/v1/center/videos/:id/view
func (h *CenterHandler) RecordVideoView(c *fiber.Ctx) error {
	var video model.VideoLesson
	if ok, err := h.findVisible(c, &video, "video lesson"); !ok {
		return err
	}

	db := h.db.WithContext(c.UserContext()).Model(&model.VideoLesson{}).Where("id = ?", video.ID)
	if err := db.UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error; err != nil {
		return response.InternalServerError(c, "Failed to record view")
	}

	var views int64
	if err := h.db.WithContext(c.UserContext()).Model(&model.VideoLesson{}).
		Where("id = ?", video.ID).
		Pluck("views_count", &views).Error; err != nil {
		return response.InternalServerError(c, "Failed to record view")
	}
	return response.Success(c, fiber.Map{"id": video.ID, "views_count": views})
}

// VideoStats handles GET /api/v1/center/videos/stats
func (h *CenterHandler) VideoStats(c *fiber.Ctx) error {
	return h.levelStats(c, &model.VideoLesson{}, "video lesson")
}

// CreateVideo handles POST /api/v1/center/videos
func (h *CenterHandler) CreateVideo(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)

	var req VideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.Title == nil || req.VideoURL == nil {
		return response.BadRequest(c, "Title and video_url are required")
	}

	video := model.VideoLesson{
		CreatedByID: userID,
		Level:       model.LevelBeginner,
		Status:      model.StatusDraft,
	}
	req.apply(&video)

	if err := h.db.WithContext(c.UserContext()).Create(&video).Error; err != nil {
		return response.InternalServerError(c, "Failed to create video lesson")
	}
	return response.Created(c, video)
}

// UpdateVideo handles PUT/PATCH /api/v1/center/videos/:id
func (h *CenterHandler) UpdateVideo(c *fiber.Ctx) error {
	var req VideoRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var video model.VideoLesson
	if ok, err := h.findVisible(c, &video, "video lesson"); !ok {
		return err
	}
	req.apply(&video)

	if err := h.db.WithContext(c.UserContext()).Save(&video).Error; err != nil {
		return response.InternalServerError(c, "Failed to update video lesson")
	}
	return response.Success(c, video)
}

// DeleteVideo handles DELETE /api/v1/center/videos/:id
func (h *CenterHandler) DeleteVideo(c *fiber.Ctx) error {
	return h.deleteContent(c, &model.VideoLesson{}, "Video lesson")
}

// levelStats counts the visible rows of table by level and by status
func (h *CenterHandler) levelStats(c *fiber.Ctx, table interface{}, what string) error {
	base := func() *gorm.DB {
		return scopeStatus(c, h.db.WithContext(c.UserContext()).Model(table))
	}

	var (
		stats StatsResponse
		err   error
	)
	if err = base().Count(&stats.Total).Error; err != nil {
		return response.InternalServerError(c, "Failed to compute "+what+" statistics")
	}
	if stats.ByLevel, err = groupCounts(base(), "level"); err != nil {
		return response.InternalServerError(c, "Failed to compute "+what+" statistics")
	}
	if stats.ByStatus, err = groupCounts(base(), "status"); err != nil {
		return response.InternalServerError(c, "Failed to compute "+what+" statistics")
	}
	return response.Success(c, stats)
}

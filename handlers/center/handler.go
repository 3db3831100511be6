package center

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/media"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
	"gorm.io/gorm"
)

// Uploader stores media files for lessons and vocabulary
type Uploader interface {
	Upload(ctx context.Context, kind media.Kind, filename string, data []byte) (*media.Object, error)
}

// CenterHandler serves the learning content: categories, grammar lessons,
// video lessons and vocabulary
type CenterHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	uploader  Uploader
}

// NewCenterHandler creates a new center handler. uploader may be nil when
// object storage is not configured.
func NewCenterHandler(db *gorm.DB, uploader Uploader) *CenterHandler {
	return &CenterHandler{
		db:        db,
		validator: validation.NewValidator(),
		uploader:  uploader,
	}
}

// StatsResponse summarizes a content table
type StatsResponse struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category,omitempty"`
	ByLevel    map[string]int64 `json:"by_level,omitempty"`
	ByStatus   map[string]int64 `json:"by_status"`
}

type groupCount struct {
	GroupKey string
	RowCount int64
}

// groupCounts counts rows of q grouped by column. Empty keys are skipped.
func groupCounts(q *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	err := q.Select(column + " AS group_key, COUNT(*) AS row_count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		if r.GroupKey == "" {
			continue
		}
		out[r.GroupKey] += r.RowCount
	}
	return out, nil
}

func parseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// isManager reports whether the caller may see drafts and edit content
func isManager(c *fiber.Ctx) bool {
	user, ok := middleware.GetUser(c)
	return ok && user.CanManageContent()
}

// scopeStatus restricts learners to published content. Managers may ask
// for a specific status.
func scopeStatus(c *fiber.Ctx, q *gorm.DB) *gorm.DB {
	if !isManager(c) {
		return q.Where("status = ?", model.StatusPublished)
	}
	if status := c.Query("status"); status != "" {
		return q.Where("status = ?", status)
	}
	return q
}

// findVisible loads the row with the id of the request into dest, hiding
// unpublished rows from learners. When it reports false the error response
// has already been written.
func (h *CenterHandler) findVisible(c *fiber.Ctx, dest interface{}, what string, preload ...string) (bool, error) {
	id, ok := parseID(c)
	if !ok {
		return false, response.BadRequest(c, "Invalid "+what+" ID")
	}
	q := scopeStatus(c, h.db.WithContext(c.UserContext()))
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, response.NotFound(c, strings.ToUpper(what[:1])+what[1:]+" not found")
		}
		return false, response.InternalServerError(c, "Failed to fetch "+what)
	}
	return true, nil
}

// durationRange applies the duration_min and duration_max filters to column
func durationRange(c *fiber.Ctx, q *gorm.DB, column string) *gorm.DB {
	if lo := c.QueryInt("duration_min"); lo > 0 {
		q = q.Where(column+" >= ?", lo)
	}
	if hi := c.QueryInt("duration_max"); hi > 0 {
		q = q.Where(column+" <= ?", hi)
	}
	return q
}

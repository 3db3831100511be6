package center

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/query"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
	"gorm.io/gorm"
)

var categoryOrdering = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// CategoryRequest is the body of category create and update
type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// ListCategories handles GET /api/v1/center/categories
func (h *CenterHandler) ListCategories(c *fiber.Ctx) error {
	page := query.PageFrom(c, 50)
	q := h.db.WithContext(c.UserContext()).Model(&model.Category{})
	q = query.Search(q, c.Query("search"), "name")
	if name := c.Query("name"); name != "" {
		q = q.Where("name = ?", name)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count categories")
	}

	var categories []model.Category
	if err := q.Order(query.Ordering(c.Query("ordering"), categoryOrdering, "name ASC")).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&categories).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch categories")
	}

	return response.Paginated(c, categories, response.CalculatePagination(page.Number, page.Limit, total))
}

// GetCategory handles GET /api/v1/center/categories/:id
func (h *CenterHandler) GetCategory(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid category ID")
	}
	var category model.Category
	if err := h.db.WithContext(c.UserContext()).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Category not found")
		}
		return response.InternalServerError(c, "Failed to fetch category")
	}
	return response.Success(c, category)
}

// CreateCategory handles POST /api/v1/center/categories
func (h *CenterHandler) CreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Name = validation.SanitizeString(req.Name)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	category := model.Category{Name: req.Name}
	if err := h.db.WithContext(c.UserContext()).Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "Category with this name already exists")
		}
		return response.InternalServerError(c, "Failed to create category")
	}
	return response.Created(c, category)
}

// UpdateCategory handles PUT/PATCH /api/v1/center/categories/:id
func (h *CenterHandler) UpdateCategory(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid category ID")
	}

	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Name = validation.SanitizeString(req.Name)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	db := h.db.WithContext(c.UserContext())
	var category model.Category
	if err := db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Category not found")
		}
		return response.InternalServerError(c, "Failed to fetch category")
	}

	category.Name = req.Name
	if err := db.Save(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "Category with this name already exists")
		}
		return response.InternalServerError(c, "Failed to update category")
	}
	return response.Success(c, category)
}

// DeleteCategory handles DELETE /api/v1/center/categories/:id. Lessons of
// the category are kept and become uncategorized.
func (h *CenterHandler) DeleteCategory(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid category ID")
	}

	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Grammar{}).Where("category_id = ?", id).Update("category_id", nil).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Category not found")
		}
		return response.InternalServerError(c, "Failed to delete category")
	}
	return response.SuccessWithMessage(c, "Category deleted successfully", nil)
}

package center

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/query"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
	"gorm.io/gorm"
)

const (
	defaultRandomWords = 10
	maxRandomWords     = 50
)

var vocabularyOrdering = map[string]string{
	"turkmen_word": "turkmen_word",
	"english_word": "english_word",
	"created_at":   "created_at",
	"level":        "level",
}

var vocabularySearchColumns = []string{"turkmen_word", "english_word", "definition", "example_sentence"}

// VocabularyRequest is the body of vocabulary create and update
type VocabularyRequest struct {
	TurkmenWord     *string  `json:"turkmen_word" validate:"omitempty,min=1,max=100"`
	EnglishWord     *string  `json:"english_word" validate:"omitempty,min=1,max=100"`
	Definition      *string  `json:"definition"`
	ExampleSentence *string  `json:"example_sentence"`
	Pronunciation   *string  `json:"pronunciation" validate:"omitempty,max=100"`
	Level           string   `json:"level" validate:"omitempty,oneof=beginner elementary pre_intermediate intermediate upper_intermediate advanced"`
	Category        *string  `json:"category" validate:"omitempty,max=100"`
	AudioFile       *string  `json:"audio_file" validate:"omitempty,url,max=500"`
	Status          string   `json:"status" validate:"omitempty,oneof=draft published archived"`
	Synonyms        []string `json:"synonyms" validate:"omitempty,dive,min=1,max=100"`
}

func (r *VocabularyRequest) apply(w *model.VocabularyWord) {
	if r.TurkmenWord != nil {
		w.TurkmenWord = validation.SanitizeString(*r.TurkmenWord)
	}
	if r.EnglishWord != nil {
		w.EnglishWord = validation.SanitizeString(*r.EnglishWord)
	}
	if r.Definition != nil {
		w.Definition = *r.Definition
	}
	if r.ExampleSentence != nil {
		w.ExampleSentence = *r.ExampleSentence
	}
	if r.Pronunciation != nil {
		w.Pronunciation = *r.Pronunciation
	}
	if r.Level != "" {
		w.Level = model.Level(r.Level)
	}
	if r.Category != nil {
		w.Category = validation.SanitizeString(*r.Category)
	}
	if r.AudioFile != nil {
		w.AudioURL = *r.AudioFile
	}
	if r.Status != "" {
		w.Status = model.ContentStatus(r.Status)
	}
	if r.Synonyms != nil {
		w.Synonyms = model.StringList(r.Synonyms)
	}
}

// vocabularyQuery applies the shared vocabulary filters. Every word of q
// matches independently, so "big house" finds entries with either word.
func (h *CenterHandler) vocabularyQuery(c *fiber.Ctx) *gorm.DB {
	q := scopeStatus(c, h.db.WithContext(c.UserContext()).Model(&model.VocabularyWord{}))
	q = query.Search(q, c.Query("search"), vocabularySearchColumns...)

	if terms := strings.Fields(c.Query("q")); len(terms) > 0 {
		matchAny := h.db.Where("1 = 0")
		for _, term := range terms {
			matchAny = matchAny.Or(query.Search(h.db, term, vocabularySearchColumns...))
		}
		q = q.Where(matchAny)
	}
	if prefix := strings.ToLower(strings.TrimSpace(c.Query("starts_with"))); prefix != "" {
		q = q.Where("LOWER(turkmen_word) LIKE ? OR LOWER(english_word) LIKE ?", prefix+"%", prefix+"%")
	}
	if level := c.Query("level"); level != "" {
		q = q.Where("level = ?", level)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(category)+"%")
	}
	return q
}

func (h *CenterHandler) listVocabulary(c *fiber.Ctx) ([]model.VocabularyWord, query.Page, int64, error) {
	page := query.PageFrom(c, 20)
	q := h.vocabularyQuery(c)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, page, 0, err
	}

	var words []model.VocabularyWord
	err := q.Order(query.Ordering(c.Query("ordering"), vocabularyOrdering, "turkmen_word ASC")).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&words).Error
	return words, page, total, err
}

// ListVocabulary handles GET /api/v1/center/vocabulary
func (h *CenterHandler) ListVocabulary(c *fiber.Ctx) error {
	words, page, total, err := h.listVocabulary(c)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch vocabulary")
	}
	return response.Paginated(c, words, response.CalculatePagination(page.Number, page.Limit, total))
}

// SearchResult echoes the search term next to the matching words
type SearchResult struct {
	Query   string                 `json:"query"`
	Results []model.VocabularyWord `json:"results"`
}

// SearchVocabulary handles GET /api/v1/center/vocabulary/search-advanced
func (h *CenterHandler) SearchVocabulary(c *fiber.Ctx) error {
	words, page, total, err := h.listVocabulary(c)
	if err != nil {
		return response.InternalServerError(c, "Failed to search vocabulary")
	}
	return response.Paginated(c, SearchResult{Query: c.Query("q"), Results: words},
		response.CalculatePagination(page.Number, page.Limit, total))
}

// RandomVocabulary handles GET /api/v1/center/vocabulary/random
func (h *CenterHandler) RandomVocabulary(c *fiber.Ctx) error {
	count := c.QueryInt("count", defaultRandomWords)
	if count < 1 {
		count = defaultRandomWords
	}
	if count > maxRandomWords {
		count = maxRandomWords
	}

	q := scopeStatus(c, h.db.WithContext(c.UserContext()).Model(&model.VocabularyWord{}))
	if level := c.Query("level"); level != "" {
		q = q.Where("level = ?", level)
	}

	words := []model.VocabularyWord{}
	if err := q.Order("RANDOM()").Limit(count).Find(&words).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch vocabulary")
	}
	return response.Success(c, words)
}

// GetVocabulary handles GET /api/v1/center/vocabulary/:id
func (h *CenterHandler) GetVocabulary(c *fiber.Ctx) error {
	var word model.VocabularyWord
	if ok, err := h.findVisible(c, &word, "vocabulary word"); !ok {
		return err
	}
	return response.Success(c, word)
}

// VocabularyStats handles GET /api/v1/center/vocabulary/stats
func (h *CenterHandler) VocabularyStats(c *fiber.Ctx) error {
	return h.levelStats(c, &model.VocabularyWord{}, "vocabulary")
}

// CreateVocabulary handles POST /api/v1/center/vocabulary
func (h *CenterHandler) CreateVocabulary(c *fiber.Ctx) error {
	var req VocabularyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if req.TurkmenWord == nil || req.EnglishWord == nil {
		return response.BadRequest(c, "turkmen_word and english_word are required")
	}

	word := model.VocabularyWord{
		Level:  model.LevelBeginner,
		Status: model.StatusPublished,
	}
	if userID, ok := middleware.GetUserID(c); ok {
		word.CreatedByID = &userID
	}
	req.apply(&word)

	if err := h.db.WithContext(c.UserContext()).Create(&word).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "This word pair already exists")
		}
		return response.InternalServerError(c, "Failed to create vocabulary word")
	}
	return response.Created(c, word)
}

// UpdateVocabulary handles PUT/PATCH /api/v1/center/vocabulary/:id
func (h *CenterHandler) UpdateVocabulary(c *fiber.Ctx) error {
	var req VocabularyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var word model.VocabularyWord
	if ok, err := h.findVisible(c, &word, "vocabulary word"); !ok {
		return err
	}
	req.apply(&word)

	if err := h.db.WithContext(c.UserContext()).Save(&word).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "This word pair already exists")
		}
		return response.InternalServerError(c, "Failed to update vocabulary word")
	}
	return response.Success(c, word)
}

// DeleteVocabulary handles DELETE /api/v1/center/vocabulary/:id
func (h *CenterHandler) DeleteVocabulary(c *fiber.Ctx) error {
	return h.deleteContent(c, &model.VocabularyWord{}, "Vocabulary word")
}

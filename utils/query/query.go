package query

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MaxLimit caps the page size of every list endpoint
const MaxLimit = 100

// Page is the requested slice of a list
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// PageFrom reads page and limit, clamped the way the pagination envelope
// reports them
func PageFrom(c *fiber.Ctx, defaultLimit int) Page {
	p := Page{
		Number: c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", defaultLimit),
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Search adds a case-insensitive substring match of term over columns.
// columns must be trusted identifiers.
func Search(db *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return db
	}
	pattern := "%" + strings.ToLower(term) + "%"
	clauses := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		clauses[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = pattern
	}
	return db.Where(strings.Join(clauses, " OR "), args...)
}

// Ordering translates an "ordering" parameter such as "-created_at,title"
// into an ORDER BY clause. Only keys of allowed are honoured; the map value
// is the column to sort by. fallback is used when nothing valid was asked for.
func Ordering(param string, allowed map[string]string, fallback string) string {
	var parts []string
	for _, field := range strings.Split(param, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if col, ok := allowed[field]; ok {
			parts = append(parts, col+" "+dir)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

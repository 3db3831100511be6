package query

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdering(t *testing.T) {
	allowed := map[string]string{"title": "title", "created_at": "created_at", "order": "sort_order"}

	assert.Equal(t, "created_at DESC, title ASC", Ordering("-created_at,title", allowed, "id ASC"))
	assert.Equal(t, "sort_order ASC", Ordering("order", allowed, "id ASC"))
	assert.Equal(t, "id ASC", Ordering("password_hash; DROP TABLE users", allowed, "id ASC"))
	assert.Equal(t, "id ASC", Ordering("", allowed, "id ASC"))
}

func TestPageFrom(t *testing.T) {
	app := fiber.New()
	var got Page
	app.Get("/", func(c *fiber.Ctx) error {
		got = PageFrom(c, 20)
		return nil
	})

	cases := []struct {
		query string
		want  Page
	}{
		{"", Page{Number: 1, Limit: 20}},
		{"?page=3&limit=5", Page{Number: 3, Limit: 5}},
		{"?page=-1&limit=500", Page{Number: 1, Limit: MaxLimit}},
		{"?limit=0", Page{Number: 1, Limit: 20}},
	}
	for _, tc := range cases {
		_, err := app.Test(httptest.NewRequest("GET", "/"+tc.query, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.query)
	}

	assert.Equal(t, 10, Page{Number: 3, Limit: 5}.Offset())
}

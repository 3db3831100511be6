package utils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/utils/response"
)

// StoreHandler is a handler that needs direct access to the storage
type StoreHandler func(c *fiber.Ctx, store database.Storage) error

// MakeHTTPHandleFunc binds handler to store. Errors the handler returns
// without writing a response are reported as 500 through the envelope.
func MakeHTTPHandleFunc(handler StoreHandler, store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
			return response.InternalServerError(c, "Internal server error")
		}
		return nil
	}
}

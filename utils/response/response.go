package response

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/utils/validation"
)

// Code is the machine readable error code of a failed request
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// Envelope wraps every JSON body the API returns except chat replies
type Envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       interface{}     `json:"data,omitempty"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Error      *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail describes why a request failed. Fields maps request fields
// to the rule they broke.
type ErrorDetail struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// PaginationMeta describes one page of a list endpoint
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

func send(c *fiber.Ctx, status int, body Envelope) error {
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, code Code, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return send(c, status, Envelope{Error: &ErrorDetail{Code: code, Message: message}})
}

// Success returns 200 with data
func Success(c *fiber.Ctx, data interface{}) error {
	return send(c, fiber.StatusOK, Envelope{Success: true, Data: data})
}

// SuccessWithMessage returns 200 with a message and optional data
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return send(c, fiber.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created returns 201 with the new resource
func Created(c *fiber.Ctx, data interface{}) error {
	return send(c, fiber.StatusCreated, Envelope{Success: true, Message: "Resource created successfully", Data: data})
}

// Paginated returns 200 with one page of results
func Paginated(c *fiber.Ctx, data interface{}, pagination PaginationMeta) error {
	return send(c, fiber.StatusOK, Envelope{Success: true, Data: data, Pagination: &pagination})
}

// Error returns an error response with an arbitrary status and code
func Error(c *fiber.Ctx, statusCode int, message string, code Code) error {
	return fail(c, statusCode, code, message, "")
}

func BadRequest(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusBadRequest, CodeBadRequest, message, "Bad request")
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, message, "Unauthorized access")
}

func Forbidden(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusForbidden, CodeForbidden, message, "Access forbidden")
}

func NotFound(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusNotFound, CodeNotFound, message, "Resource not found")
}

func Conflict(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusConflict, CodeConflict, message, "Resource already exists")
}

func TooManyRequests(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusTooManyRequests, CodeTooManyRequests, message, "Too many requests")
}

func InternalServerError(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusInternalServerError, CodeInternal, message, "Internal server error")
}

func ServiceUnavailable(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusServiceUnavailable, CodeServiceUnavailable, message, "Service temporarily unavailable")
}

// ValidationError answers 422 for a well-formed body that breaks field rules
func ValidationError(c *fiber.Ctx, err error) error {
	return invalid(c, fiber.StatusUnprocessableEntity, err)
}

// InvalidInput answers 400 for chat requests, which report bad fields as a
// plain client error
func InvalidInput(c *fiber.Ctx, err error) error {
	return invalid(c, fiber.StatusBadRequest, err)
}

func invalid(c *fiber.Ctx, status int, err error) error {
	return send(c, status, Envelope{Error: &ErrorDetail{
		Code:    CodeValidation,
		Message: "Validation failed",
		Details: validation.Describe(err),
		Fields:  validation.FormatValidationErrors(err),
	}})
}

// CalculatePagination clamps page and limit and derives the page count
func CalculatePagination(page, limit int, total int64) PaginationMeta {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = 10
	case limit > 100:
		limit = 100
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

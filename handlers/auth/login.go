package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	authutil "github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/response"
)

// LoginRequest accepts either an email or a username as login
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ip := c.IP()
	ctx := c.UserContext()
	login := strings.TrimSpace(req.Login)

	var user model.User
	err := h.db.WithContext(ctx).
		Where("LOWER(email) = ? OR username = ?", strings.ToLower(login), login).
		First(&user).Error
	if err == nil {
		err = authutil.VerifyPassword(user.PasswordHash, req.Password)
	}
	if err != nil {
		// Unknown users count as failed attempts too
		if h.bruteForceProtection != nil {
			_ = h.bruteForceProtection.RecordFailedAttempt(ctx, ip)
		}
		return response.Unauthorized(c, "Invalid login or password")
	}

	if !user.IsActive {
		return response.Forbidden(c, "Account is disabled")
	}

	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(ctx, ip)
	}

	tokens, err := h.jwtManager.IssuePair(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Success(c, SessionResponse{User: toUserResponse(&user), TokenPair: tokens})
}

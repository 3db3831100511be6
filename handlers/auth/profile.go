package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	authutil "github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, toUserResponse(user))
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = validation.SanitizeString(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = validation.SanitizeString(*req.LastName)
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(c.UserContext()).Model(user).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update profile")
		}
	}

	var fresh model.User
	if err := h.db.WithContext(c.UserContext()).First(&fresh, user.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to reload profile")
	}
	return response.Success(c, toUserResponse(&fresh))
}

// ChangePassword sets a new password and invalidates every issued token
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, strings.Join(problems, "; "))
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.OldPassword); err != nil {
		return response.BadRequest(c, "Current password is incorrect")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	if err := h.db.WithContext(c.UserContext()).Model(user).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": user.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.SuccessWithMessage(c, "Password changed successfully. Please login again with your new password", nil)
}

package auth

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	authutil "github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken rotates a refresh token into a new token pair
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ctx := c.UserContext()
	claims, err := h.jwtManager.ValidateTyped(req.RefreshToken, authutil.TokenTypeRefresh)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	isRevoked, err := h.blacklistService.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	var user model.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}
	if user.TokenVersion != claims.TokenVersion || !user.IsActive {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	tokens, err := h.jwtManager.IssuePair(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	// The old refresh token expires on its own if this fails
	if err := h.blacklistService.Revoke(ctx, claims, model.RevokeReasonRefresh); err != nil {
		log.Printf("auth: failed to revoke refresh token of user %d: %v", user.ID, err)
	}

	return response.Success(c, SessionResponse{TokenPair: tokens})
}

// Logout revokes the access token of the request
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := h.blacklistService.Revoke(c.UserContext(), claims, model.RevokeReasonLogout); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}

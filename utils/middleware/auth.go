package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// authError is a rejected credential with the status it maps to
type authError struct {
	status  int
	message string
}

func (e *authError) Error() string { return e.message }

func unauthorized(msg string) *authError {
	return &authError{status: fiber.StatusUnauthorized, message: msg}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header
func BearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", unauthorized("Missing authorization token")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", unauthorized("Invalid authorization format")
	}
	return parts[1], nil
}

// authenticate resolves the access token of the request to its user
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	tokenString, err := BearerToken(c)
	if err != nil {
		return nil, nil, err
	}

	claims, err := m.jwtManager.ValidateTyped(tokenString, auth.TokenTypeAccess)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, unauthorized("Token has expired")
		}
		return nil, nil, unauthorized("Invalid token")
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return nil, nil, &authError{status: fiber.StatusInternalServerError, message: "Failed to check token status"}
	}
	if isRevoked {
		return nil, nil, unauthorized("Token has been revoked")
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, unauthorized("User not found")
		}
		return nil, nil, &authError{status: fiber.StatusInternalServerError, message: "Failed to load user"}
	}
	if !user.IsActive {
		return nil, nil, unauthorized("Account is disabled")
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, unauthorized("Token has been invalidated")
	}
	return claims, &user, nil
}

func storeIdentity(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", user.ID)
	c.Locals("user_email", user.Email)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
	c.Locals("token_jti", claims.ID)
}

func reject(c *fiber.Ctx, err error) error {
	var ae *authError
	if errors.As(err, &ae) && ae.status == fiber.StatusInternalServerError {
		return response.InternalServerError(c, ae.message)
	}
	return response.Unauthorized(c, err.Error())
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return reject(c, err)
		}
		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// Optional is middleware that identifies the caller when a valid token is
// present and lets the request through either way
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		if claims, user, err := m.authenticate(c); err == nil {
			storeIdentity(c, claims, user)
		}
		return c.Next()
	}
}

// RequireRole is middleware that requires one of roles. It must run after
// Required.
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := GetUserRole(c)
		if !ok {
			return response.Forbidden(c, "Access denied")
		}
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Insufficient permissions")
	}
}

// RequireContentManager lets teachers and administrators through
func (m *AuthMiddleware) RequireContentManager() fiber.Handler {
	return m.RequireRole(model.RoleTeacher, model.RoleAdmin)
}

// RequireAdmin is middleware that requires admin role. It must run after
// Required.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRole(model.RoleAdmin)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

// GetUserRole extracts user role from context
func GetUserRole(c *fiber.Ctx) (string, bool) {
	role, ok := c.Locals("user_role").(string)
	return role, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok && u != nil
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok && claims != nil
}

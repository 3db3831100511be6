package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/model"
	authutil "github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=student teacher"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionResponse is returned by register, login and refresh
type SessionResponse struct {
	User *UserResponse `json:"user,omitempty"`
	*authutil.TokenPair
}

func toUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		FullName:   user.FullName(),
		Role:       user.Role,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// Register handles user registration. Administrators are created by the
// seeder only.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Email = strings.ToLower(validation.SanitizeString(req.Email))
	req.Username = validation.SanitizeString(req.Username)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, msg := validation.ValidateUsername(req.Username); !ok {
		return response.BadRequest(c, msg)
	}
	if ok, problems := validation.ValidatePassword(req.Password); !ok {
		return response.BadRequest(c, strings.Join(problems, "; "))
	}

	if req.Role == "" {
		req.Role = model.RoleStudent
	}

	var count int64
	if err := h.db.Model(&model.User{}).
		Where("email = ? OR username = ?", req.Email, req.Username).
		Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to check existing users")
	}
	if count > 0 {
		return response.Conflict(c, "User with this email or username already exists")
	}

	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	user := model.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashedPassword,
		FirstName:    validation.SanitizeString(req.FirstName),
		LastName:     validation.SanitizeString(req.LastName),
		Role:         req.Role,
		IsActive:     true,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return response.Conflict(c, "User with this email or username already exists")
		}
		return response.InternalServerError(c, "Failed to create user")
	}

	tokens, err := h.jwtManager.IssuePair(&user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Created(c, SessionResponse{User: toUserResponse(&user), TokenPair: tokens})
}

package chat

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
	"github.com/sahilchouksey/e-center-api/utils/query"
	"github.com/sahilchouksey/e-center-api/utils/response"
	"github.com/sahilchouksey/e-center-api/utils/validation"
)

// ChatHandler handles chatbot requests
type ChatHandler struct {
	validator   *validation.Validator
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		validator:   validation.NewValidator(),
		chatService: chatService,
	}
}

// ChatRequest is the body of POST /chatbot/sessions/chat
type ChatRequest struct {
	Message          string `json:"message" validate:"required,max=4000"`
	SessionID        *uint  `json:"session_id" validate:"omitempty,min=1"`
	ProficiencyLevel string `json:"proficiency_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	LearningFocus    string `json:"learning_focus" validate:"omitempty,oneof=general grammar vocabulary conversation reading writing pronunciation exam"`
}

// CreateSessionRequest represents the request to create a chat session
type CreateSessionRequest struct {
	Title            string `json:"title" validate:"omitempty,max=255"`
	ProficiencyLevel string `json:"proficiency_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	LearningFocus    string `json:"learning_focus" validate:"omitempty,oneof=general grammar vocabulary conversation reading writing pronunciation exam"`
}

// UpdateSessionRequest represents the request to change a chat session
type UpdateSessionRequest struct {
	Title            *string `json:"title" validate:"omitempty,max=255"`
	ProficiencyLevel *string `json:"proficiency_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	LearningFocus    *string `json:"learning_focus" validate:"omitempty,oneof=general grammar vocabulary conversation reading writing pronunciation exam"`
}

// Chat handles POST /api/v1/chatbot/sessions/chat. Anonymous callers talk
// as the shared guest user.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.InvalidInput(c, err)
	}

	ctx := c.UserContext()
	userID, ok := middleware.GetUserID(c)
	if !ok {
		guestID, err := h.chatService.GuestUser(ctx)
		if err != nil {
			log.Errorf("chat: failed to resolve guest user: %v", err)
			return response.InternalServerError(c, "Failed to process chat request")
		}
		userID = guestID
	}

	result, err := h.chatService.Chat(ctx, services.ChatRequest{
		UserID:           userID,
		Message:          req.Message,
		SessionID:        req.SessionID,
		ProficiencyLevel: model.ProficiencyLevel(req.ProficiencyLevel),
		LearningFocus:    model.LearningFocus(req.LearningFocus),
	})
	if err != nil {
		return chatError(c, err)
	}

	return c.JSON(result)
}

// SimpleChatRequest is the body of POST /chatbot/sessions/simple-chat
type SimpleChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// SimpleChat handles POST /api/v1/chatbot/sessions/simple-chat. The reply
// is not stored.
func (h *ChatHandler) SimpleChat(c *fiber.Ctx) error {
	var req SimpleChatRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.InvalidInput(c, err)
	}

	result, err := h.chatService.SimpleChat(c.UserContext(), req.Message)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(result)
}

// TestConnection handles GET /api/v1/chatbot/sessions/test-connection
func (h *ChatHandler) TestConnection(c *fiber.Ctx) error {
	return c.JSON(h.chatService.TestConnection(c.UserContext()))
}

// ListSessions handles GET /api/v1/chatbot/sessions
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	page := query.PageFrom(c, 20)
	sessions, total, err := h.chatService.ListSessions(c.UserContext(), userID, page.Limit, page.Offset())
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch sessions")
	}

	return response.Paginated(c, sessions, response.CalculatePagination(page.Number, page.Limit, total))
}

// GetSession handles GET /api/v1/chatbot/sessions/:id
func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return response.BadRequest(c, "Invalid session ID")
	}

	session, err := h.chatService.GetSession(c.UserContext(), userID, uint(sessionID))
	if err != nil {
		return chatError(c, err)
	}
	return response.Success(c, session)
}

// CreateSession handles POST /api/v1/chatbot/sessions
func (h *ChatHandler) CreateSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	session, err := h.chatService.CreateSession(c.UserContext(), userID, services.CreateSessionInput{
		Title:            validation.SanitizeString(req.Title),
		ProficiencyLevel: model.ProficiencyLevel(req.ProficiencyLevel),
		LearningFocus:    model.LearningFocus(req.LearningFocus),
	})
	if err != nil {
		return chatError(c, err)
	}
	return response.Created(c, session)
}

// UpdateSession handles PATCH /api/v1/chatbot/sessions/:id
func (h *ChatHandler) UpdateSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return response.BadRequest(c, "Invalid session ID")
	}

	var req UpdateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	in := services.UpdateSessionInput{Title: req.Title}
	if req.ProficiencyLevel != nil {
		level := model.ProficiencyLevel(*req.ProficiencyLevel)
		in.ProficiencyLevel = &level
	}
	if req.LearningFocus != nil {
		focus := model.LearningFocus(*req.LearningFocus)
		in.LearningFocus = &focus
	}

	session, err := h.chatService.UpdateSession(c.UserContext(), userID, uint(sessionID), in)
	if err != nil {
		return chatError(c, err)
	}
	return response.Success(c, session)
}

// DeleteSession handles DELETE /api/v1/chatbot/sessions/:id
func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID <= 0 {
		return response.BadRequest(c, "Invalid session ID")
	}

	if err := h.chatService.DeleteSession(c.UserContext(), userID, uint(sessionID)); err != nil {
		return chatError(c, err)
	}
	return response.SuccessWithMessage(c, "Session deleted successfully", nil)
}

// ListMessages handles GET /api/v1/chatbot/messages
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var sessionID *uint
	if raw := c.Query("session_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return response.BadRequest(c, "Invalid session ID")
		}
		sid := uint(id)
		sessionID = &sid
	}

	page := query.PageFrom(c, 50)
	messages, total, err := h.chatService.ListMessages(c.UserContext(), userID, sessionID, page.Limit, page.Offset())
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch messages")
	}
	return response.Paginated(c, messages, response.CalculatePagination(page.Number, page.Limit, total))
}

func chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return response.NotFound(c, "Chat session not found")
	case errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrInvalidProficiency),
		errors.Is(err, services.ErrInvalidLearningFocus):
		return response.BadRequest(c, err.Error())
	}
	log.Errorf("chat: request failed: %v", err)
	return response.InternalServerError(c, "Failed to process chat request")
}

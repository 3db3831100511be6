package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/services/chatbot"
	"github.com/sahilchouksey/e-center-api/services/gemini"
	"github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/cache"
	"github.com/sahilchouksey/e-center-api/utils/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrEmptyMessage         = errors.New("message must not be empty")
	ErrInvalidProficiency   = errors.New("invalid proficiency level")
	ErrInvalidLearningFocus = errors.New("invalid learning focus")
)

const (
	retitleMinRunes = 5
	titleMaxRunes   = 50

	guestUsername = "test_user"
	guestEmail    = "test@example.com"
	guestPassword = "testpassword123"
)

// apologies replace the reply when the completion service fails
var apologies = map[gemini.ErrorKind]string{
	gemini.KindAuthFailure:      "I'm sorry, there appears to be an issue with the API authentication. Please contact support.",
	gemini.KindQuotaExceeded:    "I'm sorry, we've reached our API usage limit. Please try again later.",
	gemini.KindModelUnavailable: "I'm sorry, the AI model is currently unavailable. Please try again later.",
	gemini.KindTimeout:          "I'm sorry, the request timed out. Please try again with a shorter message.",
	gemini.KindUnknown:          "I'm sorry, I'm having trouble responding right now. Please try again later.",
}

// Apology returns the fixed reply stored when a completion fails with kind
func Apology(kind gemini.ErrorKind) string {
	if msg, ok := apologies[kind]; ok {
		return msg
	}
	return apologies[gemini.KindUnknown]
}

// Completer is the completion service used by the chat pipeline
type Completer interface {
	Complete(ctx context.Context, history []gemini.Turn, message string) (*gemini.Result, error)
	GenerateOneShot(ctx context.Context, turns []gemini.Turn) (*gemini.Result, error)
	Ping(ctx context.Context) (string, error)
}

// ChatService runs chat turns against the teaching assistant
type ChatService struct {
	db        *gorm.DB
	completer Completer
	cache     *cache.RedisCache
	composer  *chatbot.Composer
	locks     *sessionLocks
}

// NewChatService creates a new chat service. redisCache may be nil.
func NewChatService(db *gorm.DB, completer Completer, redisCache *cache.RedisCache) *ChatService {
	return &ChatService{
		db:        db,
		completer: completer,
		cache:     redisCache,
		composer:  chatbot.NewComposer(chatbot.DefaultLibrary()),
		locks:     newSessionLocks(),
	}
}

// SetComposer replaces the prompt composer
func (s *ChatService) SetComposer(composer *chatbot.Composer) {
	s.composer = composer
}

// ChatRequest is one inbound user message
type ChatRequest struct {
	UserID           uint
	Message          string
	SessionID        *uint
	ProficiencyLevel model.ProficiencyLevel
	LearningFocus    model.LearningFocus
}

// ChatResult is the outcome of a chat turn
type ChatResult struct {
	Response         string                 `json:"response"`
	SessionID        uint                   `json:"session_id"`
	MessageID        uint                   `json:"message_id"`
	ProficiencyLevel model.ProficiencyLevel `json:"proficiency_level"`
	LearningFocus    model.LearningFocus    `json:"learning_focus"`
	ResponseTime     float64                `json:"response_time"`
	Cached           bool                   `json:"-"`
}

// ProbeResult is the memoised outcome of a connectivity probe
type ProbeResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Cached  bool   `json:"cached"`
}

// SimpleChatResult is the reply to a message sent outside any session
type SimpleChatResult struct {
	Response  string    `json:"response"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// openedTurn is what the first locked section hands to the rest of the turn
type openedTurn struct {
	session model.ChatSession
	history []gemini.Turn
	isFirst bool
}

// Chat runs one full turn: the user message and the assistant reply are
// persisted back to back, and no other turn of the same session can
// interleave with them.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	start := time.Now()

	raw := strings.TrimSpace(req.Message)
	if raw == "" {
		return nil, ErrEmptyMessage
	}
	if req.ProficiencyLevel != "" && !req.ProficiencyLevel.Valid() {
		return nil, ErrInvalidProficiency
	}
	if req.LearningFocus != "" && !req.LearningFocus.Valid() {
		return nil, ErrInvalidLearningFocus
	}

	if req.SessionID != nil {
		unlock := s.locks.Lock(*req.SessionID)
		defer unlock()
	}

	turn, err := s.openTurn(ctx, req, raw)
	if err != nil {
		return nil, err
	}
	if req.SessionID == nil {
		unlock := s.locks.Lock(turn.session.ID)
		defer unlock()
	}

	session := turn.session

	message := raw
	if turn.isFirst {
		message = chatbot.FirstMessagePrefix(string(session.ProficiencyLevel), string(session.LearningFocus)) + raw
	}
	intent := chatbot.Classify(message)

	payload := s.composer.Compose(chatbot.ComposeInput{
		Intent:  intent,
		Message: message,
		Session: &chatbot.SessionContext{
			ProficiencyLevel: string(session.ProficiencyLevel),
			LearningFocus:    string(session.LearningFocus),
			IsNew:            turn.isFirst,
		},
		History: turn.history,
		Persona: s.persona(ctx),
	})

	reply, modelUsed, cacheHit, errKind := s.complete(ctx, session.ID, raw, payload)

	// The reply is stored even when the caller has gone away, so the
	// session keeps alternating user and assistant turns.
	persistCtx := context.WithoutCancel(ctx)
	assistant, err := s.closeTurn(persistCtx, session.ID, raw, reply, modelUsed, intent, cacheHit, errKind, time.Since(start))
	if err != nil {
		metrics.ChatRequests.WithLabelValues(string(intent.Kind), "store_error").Inc()
		return nil, err
	}

	if !cacheHit && errKind == "" {
		if err := s.cache.Set(persistCtx, chatbot.ResponseKey(session.ID, raw), reply, chatbot.ResponseTTL); err != nil && !errors.Is(err, cache.ErrUnavailable) {
			log.Warnf("chat: failed to cache response for session %d: %v", session.ID, err)
		}
	}

	outcome := "ok"
	switch {
	case cacheHit:
		outcome = "cache_hit"
	case errKind != "":
		outcome = "apology"
	}
	metrics.ChatRequests.WithLabelValues(string(intent.Kind), outcome).Inc()

	return &ChatResult{
		Response:         reply,
		SessionID:        session.ID,
		MessageID:        assistant.ID,
		ProficiencyLevel: session.ProficiencyLevel,
		LearningFocus:    session.LearningFocus,
		ResponseTime:     math.Round(time.Since(start).Seconds()*100) / 100,
		Cached:           cacheHit,
	}, nil
}

// SimpleChat answers a single message without a session. The persona is
// framed as a one-shot conversation and nothing is stored.
func (s *ChatService) SimpleChat(ctx context.Context, message string) (*SimpleChatResult, error) {
	raw := strings.TrimSpace(message)
	if raw == "" {
		return nil, ErrEmptyMessage
	}

	intent := chatbot.Classify(raw)
	payload := s.composer.Compose(chatbot.ComposeInput{
		Intent:  intent,
		Message: raw,
		Persona: s.persona(ctx),
	})

	var reply string
	start := time.Now()
	res, err := s.completer.GenerateOneShot(ctx, payload.History)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		kind := gemini.KindOf(err)
		metrics.CompletionErrors.WithLabelValues(string(kind)).Inc()
		log.Errorf("chat: one-shot completion failed: %v", err)
		reply = Apology(kind)
		outcome = "apology"
	} else {
		reply = res.Text
	}
	metrics.ChatRequests.WithLabelValues(string(intent.Kind), outcome).Inc()

	return &SimpleChatResult{Response: reply, Message: raw, Timestamp: time.Now()}, nil
}

// openTurn resolves or creates the session, snapshots its history and
// stores the user message inside one row-locked transaction.
func (s *ChatService) openTurn(ctx context.Context, req ChatRequest, raw string) (*openedTurn, error) {
	turn := &openedTurn{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.SessionID != nil {
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND user_id = ?", *req.SessionID, req.UserID).
				First(&turn.session).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to fetch session: %w", err)
			}

			history, err := s.history(ctx, tx, &turn.session)
			if err != nil {
				return err
			}
			turn.history = history
			turn.isFirst = len(history) == 0

			updates := map[string]interface{}{}
			if req.ProficiencyLevel != "" && req.ProficiencyLevel != turn.session.ProficiencyLevel {
				updates["proficiency_level"] = req.ProficiencyLevel
				turn.session.ProficiencyLevel = req.ProficiencyLevel
			}
			if req.LearningFocus != "" && req.LearningFocus != turn.session.LearningFocus {
				updates["learning_focus"] = req.LearningFocus
				turn.session.LearningFocus = req.LearningFocus
			}
			if len(updates) > 0 {
				if err := tx.Model(&model.ChatSession{}).Where("id = ?", turn.session.ID).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to update session settings: %w", err)
				}
			}
		} else {
			turn.session = model.ChatSession{
				UserID:           req.UserID,
				Title:            model.DefaultSessionTitle,
				ProficiencyLevel: model.ProficiencyIntermediate,
				LearningFocus:    model.FocusGeneral,
			}
			if req.ProficiencyLevel != "" {
				turn.session.ProficiencyLevel = req.ProficiencyLevel
			}
			if req.LearningFocus != "" {
				turn.session.LearningFocus = req.LearningFocus
			}
			if err := tx.Create(&turn.session).Error; err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			turn.isFirst = true
		}

		userMessage := model.ChatMessage{
			SessionID: turn.session.ID,
			Role:      model.MessageRoleUser,
			Content:   raw,
		}
		if turn.isFirst {
			userMessage.Metadata = map[string]interface{}{model.MetaFirstMessage: true}
		}
		if err := tx.Create(&userMessage).Error; err != nil {
			return fmt.Errorf("failed to save user message: %w", err)
		}

		return touchSession(tx, turn.session.ID, userMessage.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

// closeTurn stores the assistant reply and retitles the session once
func (s *ChatService) closeTurn(ctx context.Context, sessionID uint, raw, reply, modelUsed string, intent chatbot.Intent, cacheHit bool, errKind gemini.ErrorKind, elapsed time.Duration) (*model.ChatMessage, error) {
	metadata := map[string]interface{}{
		model.MetaIntent:   string(intent.Kind),
		model.MetaCacheHit: cacheHit,
	}
	switch intent.Kind {
	case chatbot.IntentExercise:
		metadata[model.MetaExerciseType] = intent.ExerciseType
		metadata[model.MetaLevel] = intent.Level
	case chatbot.IntentLesson:
		metadata[model.MetaLessonTopic] = lessonSubject(intent)
	}
	if errKind != "" {
		metadata[model.MetaErrorKind] = string(errKind)
	}

	assistant := model.ChatMessage{
		SessionID:    sessionID,
		Role:         model.MessageRoleAssistant,
		Content:      reply,
		ModelUsed:    modelUsed,
		ResponseTime: int(elapsed.Milliseconds()),
		Metadata:     metadata,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.ChatSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to fetch session: %w", err)
		}

		if err := tx.Create(&assistant).Error; err != nil {
			return fmt.Errorf("failed to save assistant message: %w", err)
		}

		if session.HasDefaultTitle() && utf8.RuneCountInString(raw) > retitleMinRunes {
			if err := tx.Model(&model.ChatSession{}).Where("id = ?", sessionID).
				Update("title", TitleFromMessage(raw)).Error; err != nil {
				return fmt.Errorf("failed to retitle session: %w", err)
			}
		}

		return touchSession(tx, sessionID, assistant.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &assistant, nil
}

// complete returns the reply for payload, from the response cache when
// possible. A failed completion yields an apology and the error kind.
func (s *ChatService) complete(ctx context.Context, sessionID uint, raw string, payload chatbot.Payload) (reply, modelUsed string, cacheHit bool, errKind gemini.ErrorKind) {
	key := chatbot.ResponseKey(sessionID, raw)
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("response", "hit").Inc()
		return cached, "", true, ""
	case cache.IsMiss(err):
		metrics.CacheLookups.WithLabelValues("response", "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("response", "error").Inc()
		log.Warnf("chat: response cache lookup failed for session %d: %v", sessionID, err)
	}

	start := time.Now()
	var res *gemini.Result
	if payload.OneShot {
		res, err = s.completer.GenerateOneShot(ctx, payload.History)
	} else {
		res, err = s.completer.Complete(ctx, payload.History, payload.Message)
	}
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := gemini.KindOf(err)
		metrics.CompletionErrors.WithLabelValues(string(kind)).Inc()
		log.Errorf("chat: completion failed for session %d: %v", sessionID, err)
		return Apology(kind), "", false, kind
	}
	return res.Text, res.Model, false, ""
}

// history returns up to MaxHistoryTurns stored turns of session, oldest
// first. The cache key includes updated_at so a new message invalidates it.
func (s *ChatService) history(ctx context.Context, tx *gorm.DB, session *model.ChatSession) ([]gemini.Turn, error) {
	key := chatbot.HistoryKey(session.ID, session.UpdatedAt)

	var turns []gemini.Turn
	err := s.cache.GetJSON(ctx, key, &turns)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("history", "hit").Inc()
		return turns, nil
	case cache.IsMiss(err):
		metrics.CacheLookups.WithLabelValues("history", "miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("history", "error").Inc()
		log.Warnf("chat: history cache lookup failed for session %d: %v", session.ID, err)
	}

	var recent []model.ChatMessage
	if err := tx.Where("session_id = ?", session.ID).
		Order("created_at DESC, id DESC").
		Limit(chatbot.MaxHistoryTurns).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversation history: %w", err)
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	turns = chatbot.HistoryFromMessages(recent)
	if err := s.cache.SetJSON(ctx, key, turns, chatbot.HistoryTTL); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.Warnf("chat: failed to cache history for session %d: %v", session.ID, err)
	}
	return turns, nil
}

// persona returns the system prompt, memoised in the cache
func (s *ChatService) persona(ctx context.Context) string {
	prompt, err := s.cache.Get(ctx, chatbot.PersonaKey)
	if err == nil && prompt != "" {
		metrics.CacheLookups.WithLabelValues("persona", "hit").Inc()
		return prompt
	}
	if err != nil && !cache.IsMiss(err) {
		log.Warnf("chat: persona cache lookup failed: %v", err)
	}
	metrics.CacheLookups.WithLabelValues("persona", "miss").Inc()

	if err := s.cache.Set(ctx, chatbot.PersonaKey, chatbot.Persona, chatbot.PersonaTTL); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.Warnf("chat: failed to cache persona: %v", err)
	}
	return chatbot.Persona
}

// TestConnection probes the completion service, reusing a recent result
func (s *ChatService) TestConnection(ctx context.Context) ProbeResult {
	var cached ProbeResult
	if err := s.cache.GetJSON(ctx, chatbot.ConnectionStatusKey, &cached); err == nil {
		metrics.CacheLookups.WithLabelValues("connection", "hit").Inc()
		cached.Cached = true
		return cached
	} else if !cache.IsMiss(err) {
		log.Warnf("chat: connection status lookup failed: %v", err)
	}
	metrics.CacheLookups.WithLabelValues("connection", "miss").Inc()
	return s.RefreshConnectionStatus(ctx)
}

// RefreshConnectionStatus always probes and stores the fresh result
func (s *ChatService) RefreshConnectionStatus(ctx context.Context) ProbeResult {
	result := ProbeResult{Status: "success"}
	ttl := chatbot.ConnectionSuccessTTL

	text, err := s.completer.Ping(ctx)
	if err != nil {
		log.Errorf("chat: connection test failed: %v", err)
		result = ProbeResult{Status: "error", Message: "Connection failed: " + err.Error()}
		ttl = chatbot.ConnectionFailureTTL
	} else {
		result.Message = text
	}

	if err := s.cache.SetJSON(ctx, chatbot.ConnectionStatusKey, result, ttl); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.Warnf("chat: failed to cache connection status: %v", err)
	}
	return result
}

// GuestUser returns the shared account used for anonymous chats,
// creating it on first use.
func (s *ChatService) GuestUser(ctx context.Context) (uint, error) {
	if val, err := s.cache.Get(ctx, chatbot.GuestUserKey); err == nil {
		if id, perr := strconv.ParseUint(val, 10, 64); perr == nil {
			var count int64
			if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Count(&count).Error; err == nil && count > 0 {
				return uint(id), nil
			}
		}
	}

	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", guestUsername).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.createGuest(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve guest user: %w", err)
	}

	if err := s.cache.Set(ctx, chatbot.GuestUserKey, strconv.FormatUint(uint64(user.ID), 10), chatbot.GuestUserTTL); err != nil && !errors.Is(err, cache.ErrUnavailable) {
		log.Warnf("chat: failed to cache guest user id: %v", err)
	}
	return user.ID, nil
}

func (s *ChatService) createGuest(ctx context.Context) (model.User, error) {
	hash, err := auth.HashPassword(guestPassword)
	if err != nil {
		return model.User{}, err
	}
	user := model.User{
		Username:     guestUsername,
		Email:        guestEmail,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Role:         model.RoleStudent,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Another request may have created it first
		var existing model.User
		if ferr := s.db.WithContext(ctx).Where("username = ?", guestUsername).First(&existing).Error; ferr == nil {
			return existing, nil
		}
		return model.User{}, err
	}
	log.Infof("chat: created guest user %d", user.ID)
	return user, nil
}

// TitleFromMessage derives a session title from the first user message
func TitleFromMessage(raw string) string {
	if utf8.RuneCountInString(raw) <= titleMaxRunes {
		return raw
	}
	return string([]rune(raw)[:titleMaxRunes]) + "..."
}

func lessonSubject(intent chatbot.Intent) string {
	if intent.Topic != "" {
		return intent.Topic
	}
	return intent.Category
}

func touchSession(tx *gorm.DB, sessionID uint, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	if err := tx.Model(&model.ChatSession{}).Where("id = ?", sessionID).Updates(map[string]interface{}{
		"message_count":   gorm.Expr("message_count + ?", 1),
		"last_message_at": at,
		"updated_at":      at,
	}).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

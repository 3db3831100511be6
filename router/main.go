package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/e-center-api/config"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/handlers"
	auth_handlers "github.com/sahilchouksey/e-center-api/handlers/auth"
	center_handlers "github.com/sahilchouksey/e-center-api/handlers/center"
	chat_handlers "github.com/sahilchouksey/e-center-api/handlers/chat"
	dashboard_handlers "github.com/sahilchouksey/e-center-api/handlers/dashboard"
	"github.com/sahilchouksey/e-center-api/services"
	"github.com/sahilchouksey/e-center-api/utils"
	"github.com/sahilchouksey/e-center-api/utils/auth"
	"github.com/sahilchouksey/e-center-api/utils/cache"
	"github.com/sahilchouksey/e-center-api/utils/metrics"
	"github.com/sahilchouksey/e-center-api/utils/middleware"
)

// Dependencies are the long-lived services the routes are built on
type Dependencies struct {
	Env   *config.EnviornmentVariable
	Store database.Storage
	// Cache may be nil when Redis is unreachable
	Cache *cache.RedisCache
	Chat  *services.ChatService
	// Uploader is nil when object storage is not configured
	Uploader center_handlers.Uploader
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	if deps.Env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := deps.Env.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "e-center-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        deps.Env.JWT_SECRET,
		Expiry:        15 * time.Minute,   // Access token
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token
		Issuer:        jwtIssuer,
	})

	db := deps.Store.GetDB()

	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Cache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	dashboardHandler := dashboard_handlers.NewDashboardHandler(services.NewDashboardService(db))
	chatHandler := chat_handlers.NewChatHandler(deps.Chat)
	centerHandler := center_handlers.NewCenterHandler(db, deps.Uploader)
	healthHandler := handlers.NewHealthHandler(deps.Cache)

	app.Use(metrics.Middleware())

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.Env.ALLOWED_ORIGINS,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	app.Get("/ping", utils.MakeHTTPHandleFunc(healthHandler.HandleCheckHealth, deps.Store))
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api/v1")

	// ==================== Users ====================

	users := api.Group("/users")
	users.Post("/register", authHandler.Register)
	if bruteForceProtection != nil {
		users.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		users.Post("/login", authHandler.Login)
	}
	users.Post("/token/refresh", authHandler.RefreshToken)
	users.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	users.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)
	users.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)
	users.Put("/profile", authMiddleware.Required(), authHandler.UpdateProfile)
	users.Get("/dashboard", authMiddleware.Required(), dashboardHandler.GetDashboard)
	users.Get("/dashboard/system", authMiddleware.Required(), authMiddleware.RequireAdmin(), dashboardHandler.GetSystemDashboard)

	// ==================== Chatbot ====================

	chatbot := api.Group("/chatbot")
	chatbot.Post("/sessions/chat", authMiddleware.Optional(), chatHandler.Chat)       // Anonymous callers chat as the guest user
	chatbot.Get("/sessions/test-connection", chatHandler.TestConnection)              // Public: completion service status
	chatbot.Post("/sessions/simple-chat", chatHandler.SimpleChat)                     // Public: one-off reply, nothing stored
	chatbot.Get("/sessions", authMiddleware.Required(), chatHandler.ListSessions)     // Protected: List own sessions
	chatbot.Post("/sessions", authMiddleware.Required(), chatHandler.CreateSession)   // Protected: Open a session
	chatbot.Get("/sessions/:id", authMiddleware.Required(), chatHandler.GetSession)   // Protected: Session details
	chatbot.Patch("/sessions/:id", authMiddleware.Required(), chatHandler.UpdateSession)
	chatbot.Delete("/sessions/:id", authMiddleware.Required(), chatHandler.DeleteSession)
	chatbot.Get("/messages", authMiddleware.Required(), chatHandler.ListMessages) // Protected: Newest first, ?session_id filters

	// ==================== Center content ====================

	// Reads identify the caller when possible so managers also see drafts
	center := api.Group("/center", authMiddleware.Optional())
	manage := []fiber.Handler{authMiddleware.Required(), authMiddleware.RequireContentManager()}

	categories := center.Group("/categories")
	categories.Get("/", centerHandler.ListCategories)
	categories.Get("/:id", centerHandler.GetCategory)
	categories.Post("/", append(manage, centerHandler.CreateCategory)...)
	categories.Put("/:id", append(manage, centerHandler.UpdateCategory)...)
	categories.Patch("/:id", append(manage, centerHandler.UpdateCategory)...)
	categories.Delete("/:id", append(manage, centerHandler.DeleteCategory)...)

	grammar := center.Group("/grammar")
	grammar.Get("/", centerHandler.ListGrammar)
	grammar.Get("/stats", centerHandler.GrammarStats)
	grammar.Get("/:id", centerHandler.GetGrammar)
	grammar.Post("/", append(manage, centerHandler.CreateGrammar)...)
	grammar.Put("/:id", append(manage, centerHandler.UpdateGrammar)...)
	grammar.Patch("/:id", append(manage, centerHandler.UpdateGrammar)...)
	grammar.Delete("/:id", append(manage, centerHandler.DeleteGrammar)...)

	videos := center.Group("/videos")
	videos.Get("/", centerHandler.ListVideos)
	videos.Get("/stats", centerHandler.VideoStats)
	videos.Get("/:id", centerHandler.GetVideo)
	videos.Post("/:id/view", centerHandler.RecordVideoView)
	videos.Post("/", append(manage, centerHandler.CreateVideo)...)
	videos.Put("/:id", append(manage, centerHandler.UpdateVideo)...)
	videos.Patch("/:id", append(manage, centerHandler.UpdateVideo)...)
	videos.Delete("/:id", append(manage, centerHandler.DeleteVideo)...)

	vocabulary := center.Group("/vocabulary")
	vocabulary.Get("/", centerHandler.ListVocabulary)
	vocabulary.Get("/stats", centerHandler.VocabularyStats)
	vocabulary.Get("/search-advanced", centerHandler.SearchVocabulary)
	vocabulary.Get("/random", centerHandler.RandomVocabulary)
	vocabulary.Get("/:id", centerHandler.GetVocabulary)
	vocabulary.Post("/", append(manage, centerHandler.CreateVocabulary)...)
	vocabulary.Put("/:id", append(manage, centerHandler.UpdateVocabulary)...)
	vocabulary.Patch("/:id", append(manage, centerHandler.UpdateVocabulary)...)
	vocabulary.Delete("/:id", append(manage, centerHandler.DeleteVocabulary)...)

	center.Post("/media", append(manage, centerHandler.UploadMedia)...)
}

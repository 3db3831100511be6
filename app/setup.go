package app

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/e-center-api/api"
	"github.com/sahilchouksey/e-center-api/config"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/router"
	"github.com/sahilchouksey/e-center-api/services"
	"github.com/sahilchouksey/e-center-api/services/cron"
	"github.com/sahilchouksey/e-center-api/services/gemini"
	"github.com/sahilchouksey/e-center-api/services/media"
	"github.com/sahilchouksey/e-center-api/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Redis backs the response cache and brute force protection; the API
	// runs without it
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Warnf("Failed to connect to Redis: %v. Caching and brute force protection are disabled.", err)
		redisCache = nil
	}

	completer := gemini.NewClient(gemini.Config{
		APIKey:        getEnv.GEMINI_API_KEY,
		BaseURL:       getEnv.GEMINI_BASE_URL,
		Model:         getEnv.GEMINI_MODEL,
		FallbackModel: getEnv.GEMINI_FALLBACK_MODEL,
	})
	if getEnv.GEMINI_API_KEY == "" {
		log.Warn("GEMINI_API_KEY is not set, the chatbot will answer with an apology")
	}
	chatService := services.NewChatService(store.GetDB(), completer, redisCache)

	deps := router.Dependencies{
		Env:   getEnv,
		Store: store,
		Cache: redisCache,
		Chat:  chatService,
	}
	if spacesCfg := media.ConfigFromEnv(getEnv); spacesCfg.IsConfigured() {
		spaces, err := media.NewSpacesClient(spacesCfg)
		if err != nil {
			log.Warnf("Failed to initialize media storage: %v", err)
		} else {
			deps.Uploader = spaces
		}
	} else {
		log.Info("Spaces credentials not set, media uploads are disabled")
	}

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.GetDB(), chatService)
		if err := cronManager.Start(); err != nil {
			log.Warnf("Failed to start cron jobs: %v", err)
		}
	}

	// Defer closing DB and cache and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		_ = redisCache.Close()
		_ = store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Setup Routes
	router.SetupRoutes(app, deps)

	return server.Run()
}

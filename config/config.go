package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Connection pool
	DB_MAX_IDLE_CONNS int
	DB_MAX_OPEN_CONNS int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL      string
	REDIS_PASSWORD string
	REDIS_DB       string
	// Gemini Configuration
	GEMINI_API_KEY        string
	GEMINI_MODEL          string
	GEMINI_FALLBACK_MODEL string
	GEMINI_BASE_URL       string
	// DigitalOcean Spaces Configuration
	DO_SPACES_ACCESS_KEY   string
	DO_SPACES_SECRET_KEY   string
	DO_SPACES_BUCKET       string
	DO_SPACES_REGION       string
	DO_SPACES_ENDPOINT     string
	DO_SPACES_CDN_ENDPOINT string
	// Misc
	CRON_ENABLED    bool
	ALLOWED_ORIGINS string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// Pool
		DB_MAX_IDLE_CONNS: intOr("DB_MAX_IDLE_CONNS", 10),
		DB_MAX_OPEN_CONNS: intOr("DB_MAX_OPEN_CONNS", 100),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL:      os.Getenv("REDIS_URL"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:       os.Getenv("REDIS_DB"),
		// Gemini
		GEMINI_API_KEY:        os.Getenv("GEMINI_API_KEY"),
		GEMINI_MODEL:          os.Getenv("GEMINI_MODEL"),
		GEMINI_FALLBACK_MODEL: os.Getenv("GEMINI_FALLBACK_MODEL"),
		GEMINI_BASE_URL:       os.Getenv("GEMINI_BASE_URL"),
		// Spaces
		DO_SPACES_ACCESS_KEY:   os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY:   os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:       os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:       os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:     os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_ENDPOINT: os.Getenv("DO_SPACES_CDN_ENDPOINT"),
		// Misc
		CRON_ENABLED:    !strings.EqualFold(os.Getenv("CRON_ENABLED"), "false"),
		ALLOWED_ORIGINS: allowedOrigins,
	}

	return envVariables, nil
}

func intOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

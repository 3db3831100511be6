package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sahilchouksey/e-center-api/config"
	"github.com/sahilchouksey/e-center-api/database"
	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/auth"
	"gorm.io/gorm"
)

// UserCredentials holds user info for display
type UserCredentials struct {
	Username string
	Email    string
	Password string
	Role     string
}

func main() {
	if err := config.LoadENV(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	users, err := createUsers(store.GetDB())
	if err != nil {
		log.Fatalf("Failed to create users: %v", err)
	}

	printCredentials(users)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// createUsers makes one account per role for local development
func createUsers(db *gorm.DB) ([]UserCredentials, error) {
	usersToCreate := []UserCredentials{
		{Username: "admin", Email: getEnv("ADMIN_EMAIL", "admin@example.com"), Password: getEnv("ADMIN_PASSWORD", "ChangeMe123!"), Role: model.RoleAdmin},
		{Username: "teacher", Email: "teacher@example.com", Password: "Teacher123!", Role: model.RoleTeacher},
		{Username: "student", Email: "student@example.com", Password: "Student123!", Role: model.RoleStudent},
	}

	var credentials []UserCredentials
	for _, u := range usersToCreate {
		var existing model.User
		err := db.Where("email = ? OR username = ?", u.Email, u.Username).First(&existing).Error
		if err == nil {
			log.Printf("User %s already exists, skipping creation\n", u.Email)
			credentials = append(credentials, u)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up %s: %w", u.Email, err)
		}

		passwordHash, err := auth.HashPassword(u.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}

		user := &model.User{
			Email:        u.Email,
			Username:     u.Username,
			PasswordHash: passwordHash,
			Role:         u.Role,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := db.Create(user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}

		log.Printf("Created user: %s (%s)\n", u.Email, u.Role)
		credentials = append(credentials, u)
	}
	return credentials, nil
}

func printCredentials(users []UserCredentials) {
	fmt.Println()
	fmt.Println("USER CREDENTIALS")
	fmt.Println("----------------")
	for _, u := range users {
		fmt.Printf("[%s]\n", u.Role)
		fmt.Printf("  Username: %s\n", u.Username)
		fmt.Printf("  Email:    %s\n", u.Email)
		fmt.Printf("  Password: %s\n", u.Password)
	}
	fmt.Println()
	fmt.Println("Log in at POST /api/v1/users/login with the username or email.")
}

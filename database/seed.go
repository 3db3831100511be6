package database

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sahilchouksey/e-center-api/model"
	"github.com/sahilchouksey/e-center-api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	// Run seeds in order (respecting foreign key constraints)
	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := s.SeedGrammar(); err != nil {
		return fmt.Errorf("failed to seed grammar lessons: %w", err)
	}

	if err := s.SeedVocabulary(); err != nil {
		return fmt.Errorf("failed to seed vocabulary: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        adminEmail,
		Username:     "admin",
		PasswordHash: passwordHash,
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         model.RoleAdmin,
		IsVerified:   true,
		IsActive:     true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user: %s\n", admin.Email)
	return nil
}

// SeedCategories creates the default grammar categories
func (s *Seeder) SeedCategories() error {
	var count int64
	if err := s.db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Categories already exist, skipping...")
		return nil
	}

	categories := []model.Category{
		{Name: "Tenses"},
		{Name: "Articles"},
		{Name: "Prepositions"},
		{Name: "Modal Verbs"},
		{Name: "Conditionals"},
	}

	if err := s.db.Create(&categories).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d categories\n", len(categories))
	return nil
}

// SeedGrammar creates a few published grammar lessons owned by the admin
func (s *Seeder) SeedGrammar() error {
	var count int64
	if err := s.db.Model(&model.Grammar{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Grammar lessons already exist, skipping...")
		return nil
	}

	var admin model.User
	if err := s.db.Where("role = ?", model.RoleAdmin).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Println("⚠️  No admin user found, skipping grammar lessons")
			return nil
		}
		return err
	}

	var tenses, articles model.Category
	if err := s.db.Where("name = ?", "Tenses").First(&tenses).Error; err != nil {
		return err
	}
	if err := s.db.Where("name = ?", "Articles").First(&articles).Error; err != nil {
		return err
	}

	lessons := []model.Grammar{
		{
			CreatedByID:       admin.ID,
			CategoryID:        &tenses.ID,
			Title:             "Present Simple Tense",
			Content:           "We use the present simple for habits, routines and facts. Add -s or -es to the verb with he, she and it.",
			Examples:          "I work every day.\nShe drinks tea in the morning.\nWater boils at 100 degrees.",
			Exercises:         "Complete the sentences: He ___ (go) to school by bus. They ___ (live) in Ashgabat.",
			Status:            model.StatusPublished,
			SortOrder:         1,
			EstimatedDuration: 30,
		},
		{
			CreatedByID:       admin.ID,
			CategoryID:        &tenses.ID,
			Title:             "Past Simple vs. Past Continuous",
			Content:           "The past simple describes finished actions. The past continuous describes an action in progress at a moment in the past.",
			Examples:          "I was reading when the phone rang.\nWe visited Mary last summer.",
			Exercises:         "Choose the correct form: While she (cooked / was cooking), the lights went out.",
			Status:            model.StatusPublished,
			SortOrder:         2,
			EstimatedDuration: 45,
		},
		{
			CreatedByID:       admin.ID,
			CategoryID:        &articles.ID,
			Title:             "A, An and The",
			Content:           "Use a or an with singular countable nouns mentioned for the first time. Use the when both speakers know which thing is meant.",
			Examples:          "I saw a cat. The cat was black.\nShe is an engineer.",
			Exercises:         "Fill in a, an or the: ___ sun is hot. I need ___ umbrella.",
			Status:            model.StatusPublished,
			SortOrder:         3,
			EstimatedDuration: 25,
		},
	}

	if err := s.db.Create(&lessons).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d grammar lessons\n", len(lessons))
	return nil
}

// SeedVocabulary creates a starter set of Turkmen to English words
func (s *Seeder) SeedVocabulary() error {
	var count int64
	if err := s.db.Model(&model.VocabularyWord{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Vocabulary already exists, skipping...")
		return nil
	}

	words := []model.VocabularyWord{
		{TurkmenWord: "kitap", EnglishWord: "book", Definition: "A set of printed pages bound together", ExampleSentence: "I am reading a book.", Pronunciation: "/bʊk/", Level: model.LevelBeginner, Category: "education", Status: model.StatusPublished},
		{TurkmenWord: "mekdep", EnglishWord: "school", Definition: "A place where children learn", ExampleSentence: "My school is near my house.", Pronunciation: "/skuːl/", Level: model.LevelBeginner, Category: "education", Status: model.StatusPublished},
		{TurkmenWord: "syýahat", EnglishWord: "journey", Definition: "Travelling from one place to another", ExampleSentence: "The journey took three hours.", Pronunciation: "/ˈdʒɜːni/", Level: model.LevelIntermediate, Category: "travel", Status: model.StatusPublished, Synonyms: model.StringList{"trip", "voyage"}},
		{TurkmenWord: "gözel", EnglishWord: "beautiful", Definition: "Very pleasant to look at", ExampleSentence: "Ashgabat is a beautiful city.", Pronunciation: "/ˈbjuːtɪfl/", Level: model.LevelElementary, Category: "adjectives", Status: model.StatusPublished, Synonyms: model.StringList{"pretty", "lovely"}},
		{TurkmenWord: "şertnama", EnglishWord: "contract", Definition: "A written legal agreement", ExampleSentence: "They signed the contract yesterday.", Pronunciation: "/ˈkɒntrækt/", Level: model.LevelUpperIntermediate, Category: "business", Status: model.StatusPublished, Synonyms: model.StringList{"agreement"}},
	}

	if err := s.db.Create(&words).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d vocabulary words\n", len(words))
	return nil
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}

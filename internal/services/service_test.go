package services

import (
	"fmt"
	"testing"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB initializes an isolated in-memory SQLite DB for one test.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// SQLite permits a single writer; one connection avoids spurious busy
	// errors when tests run overlapping transactions.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.UserBadge{},
		&models.WeeklyActivity{},
		&models.UserProgress{},
		&models.Suggestion{},
		&models.SuggestionVote{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	database.DB = db
}

func createTestUser(t *testing.T, id string) {
	t.Helper()
	user := models.User{
		ID:       id,
		Name:     "Test User",
		Username: "user_" + id,
		Email:    id + "@example.com",
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
}

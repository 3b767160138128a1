package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes an isolated in-memory SQLite DB for testing
func SetupTestDB(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, _ := db.DB()
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

func seedUser(t *testing.T, id string) {
	t.Helper()
	user := models.User{ID: id, Name: "Tester", Username: "tester_" + id, Email: id + "@example.com"}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	stats := models.UserStats{UserID: id, Level: 1}
	if err := database.DB.Create(&stats).Error; err != nil {
		t.Fatalf("failed to seed stats: %v", err)
	}
}

func postProgress(t *testing.T, userID, moduleID string, body map[string]interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	jsonVal, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/api/progress/"+moduleID, bytes.NewBuffer(jsonVal))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "moduleId", Value: moduleID}}
	c.Set("userId", userID)

	SubmitProgress(c)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestSubmitProgressNewUserFirstModule(t *testing.T) {
	SetupTestDB(t)
	seedUser(t, "user1")

	w, resp := postProgress(t, "user1", "1", map[string]interface{}{
		"completed": true,
		"score":     85,
		"timeSpent": 120,
		"xpEarned":  200,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["isNewCompletion"])

	stats := resp["stats"].(map[string]interface{})
	assert.Equal(t, float64(200), stats["totalXP"])
	assert.Equal(t, float64(2), stats["level"])
	assert.Equal(t, float64(1), stats["modulesCompleted"])

	newBadges := stats["newBadges"].([]interface{})
	found := false
	for _, raw := range newBadges {
		badge := raw.(map[string]interface{})
		if badge["id"] == "first_step" {
			found = true
		}
	}
	assert.True(t, found, "first completion must unlock first_step")
}

func TestSubmitProgressRepeatIsNotRewardedTwice(t *testing.T) {
	SetupTestDB(t)
	seedUser(t, "user1")

	body := map[string]interface{}{
		"completed": true, "score": 85, "timeSpent": 60, "xpEarned": 200,
	}

	w, first := postProgress(t, "user1", "1", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, first["isNewCompletion"])

	w, second := postProgress(t, "user1", "1", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, second["isNewCompletion"])

	stats := second["stats"].(map[string]interface{})
	assert.Equal(t, float64(200), stats["totalXP"], "XP must be awarded exactly once")
	assert.Equal(t, float64(1), stats["modulesCompleted"])
}

func TestSubmitProgressRejectsBadModuleID(t *testing.T) {
	SetupTestDB(t)
	seedUser(t, "user1")

	for _, moduleID := range []string{"abc", "0", "-1"} {
		w, _ := postProgress(t, "user1", moduleID, map[string]interface{}{"completed": true})
		assert.Equal(t, http.StatusBadRequest, w.Code, "moduleId=%q", moduleID)
	}

	// No state leaked from the rejected calls
	var count int64
	database.DB.Model(&models.UserProgress{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestGetModuleProgressReturnsZeroValuePlaceholder(t *testing.T) {
	SetupTestDB(t)
	seedUser(t, "user1")

	req, _ := http.NewRequest("GET", "/api/progress/7", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "moduleId", Value: "7"}}
	c.Set("userId", "user1")

	GetModuleProgress(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	progress := resp["progress"].(map[string]interface{})
	assert.Equal(t, float64(7), progress["moduleId"])
	assert.Equal(t, false, progress["completed"])
	assert.Equal(t, float64(0), progress["attempts"])
}

func TestGetProgressListsAllRecords(t *testing.T) {
	SetupTestDB(t)
	seedUser(t, "user1")

	postProgress(t, "user1", "1", map[string]interface{}{"completed": true, "score": 80})
	postProgress(t, "user1", "2", map[string]interface{}{"completed": false, "score": 30})

	req, _ := http.NewRequest("GET", "/api/progress", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("userId", "user1")

	GetProgress(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(2), resp["count"])
	records := resp["progress"].([]interface{})
	assert.Len(t, records, 2)
}

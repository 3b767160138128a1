package handlers

import (
	"net/http"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/services"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// badgeEngine is the injected definition list shared by all handlers.
var badgeEngine = services.NewBadgeEngine(services.DefaultBadges)

// GetProgress handles GET /api/progress
func GetProgress(c *gin.Context) {
	userID := c.GetString("userId")

	records, err := services.ListProgress(userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list progress")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(records),
		"progress": records,
	})
}

// GetModuleProgress handles GET /api/progress/:moduleId. Missing records
// return a zero-value placeholder, never 404.
func GetModuleProgress(c *gin.Context) {
	userID := c.GetString("userId")

	moduleID, err := services.ParseModuleID(c.Param("moduleId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := services.FindProgress(userID, moduleID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Int("module_id", moduleID).Msg("Failed to fetch progress")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch progress"})
		return
	}

	if record == nil {
		record = &models.UserProgress{
			UserID:   userID,
			ModuleID: moduleID,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"progress": record,
	})
}

type SubmitProgressInput struct {
	Completed bool    `json:"completed"`
	Score     float64 `json:"score"`
	TimeSpent float64 `json:"timeSpent"`
	XPEarned  float64 `json:"xpEarned"`
}

// SubmitProgress handles POST /api/progress/:moduleId, the completion
// entry point. The reward fires exactly once per module; resubmissions
// return isNewCompletion=false with the same shape.
func SubmitProgress(c *gin.Context) {
	userID := c.GetString("userId")

	moduleID, err := services.ParseModuleID(c.Param("moduleId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var input SubmitProgressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := services.SubmitCompletion(userID, moduleID, services.SubmitInput{
		Completed: input.Completed,
		Score:     input.Score,
		TimeSpent: input.TimeSpent,
		XPEarned:  input.XPEarned,
	}, badgeEngine)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Int("module_id", moduleID).Msg("Failed to submit progress")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save progress"})
		return
	}

	if result.IsNewCompletion {
		services.InvalidateLeaderboard()
		logger.Info().
			Str("user_id", userID).
			Int("module_id", moduleID).
			Int("xp", result.Stats.TotalXP).
			Int("new_badges", len(result.Stats.NewBadges)).
			Msg("Module completed")
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"progress":        result.Progress,
		"stats":           result.Stats,
		"isNewCompletion": result.IsNewCompletion,
	})
}

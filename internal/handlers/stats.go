package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/services"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// GetStats handles GET /api/stats. Reading stats also corrects an expired
// streak and re-checks badge thresholds as a side effect.
func GetStats(c *gin.Context) {
	userID := c.GetString("userId")

	stats, newBadges, err := services.RefreshStats(userID, badgeEngine)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   services.BuildStatsPayload(stats, newBadges, badgeEngine, time.Now()),
	})
}

type GrantXPInput struct {
	Amount int    `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// GrantXP handles PUT /api/stats/xp, the direct grant path for non-module
// rewards. It bypasses completion semantics but not the stats invariants.
func GrantXP(c *gin.Context) {
	userID := c.GetString("userId")

	var input GrantXPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive integer"})
		return
	}

	stats, newBadges, err := services.GrantXP(userID, input.Amount, badgeEngine)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to grant XP")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant XP"})
		return
	}

	services.InvalidateLeaderboard()
	logger.Info().
		Str("user_id", userID).
		Int("amount", input.Amount).
		Str("reason", input.Reason).
		Msg("XP granted")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   services.BuildStatsPayload(stats, newBadges, badgeEngine, time.Now()),
	})
}

// GetLeaderboard handles GET /api/stats/leaderboard?limit=N
func GetLeaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := services.GetLeaderboard(limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build leaderboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch leaderboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"leaderboard": entries,
	})
}

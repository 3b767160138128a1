package handlers

import (
	"net/http"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListSuggestions handles GET /api/suggestions
func ListSuggestions(c *gin.Context) {
	var suggestions []models.Suggestion
	err := database.DB.Preload("Author").
		Order("votes DESC, created_at DESC").
		Find(&suggestions).Error
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list suggestions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch suggestions"})
		return
	}

	// Mark the caller's votes (batch query to avoid N+1)
	if userID, exists := c.Get("userId"); exists && len(suggestions) > 0 {
		var votedIDs []string
		database.DB.Model(&models.SuggestionVote{}).
			Where("user_id = ?", userID).
			Pluck("suggestion_id", &votedIDs)

		votedSet := make(map[string]bool, len(votedIDs))
		for _, id := range votedIDs {
			votedSet[id] = true
		}
		for i := range suggestions {
			suggestions[i].HasVoted = votedSet[suggestions[i].ID]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(suggestions),
		"suggestions": suggestions,
	})
}

type CreateSuggestionInput struct {
	Title string `json:"title" binding:"required,max=120"`
	Body  string `json:"body" binding:"max=2000"`
}

// CreateSuggestion handles POST /api/suggestions
func CreateSuggestion(c *gin.Context) {
	userID := c.GetString("userId")

	var input CreateSuggestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	suggestion := models.Suggestion{
		AuthorID: userID,
		Title:    input.Title,
		Body:     input.Body,
		Status:   models.SuggestionOpen,
	}
	if err := database.DB.Create(&suggestion).Error; err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create suggestion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create suggestion"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"suggestion": suggestion,
	})
}

// VoteSuggestion handles POST /api/suggestions/:id/vote. Voting toggles:
// a second vote from the same user removes the first. The vote row and the
// counter move together in one transaction.
func VoteSuggestion(c *gin.Context) {
	userID := c.GetString("userId")
	suggestionID := c.Param("id")

	var voted bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var suggestion models.Suggestion
		if err := tx.First(&suggestion, "id = ?", suggestionID).Error; err != nil {
			return err
		}

		var vote models.SuggestionVote
		err := tx.Where("user_id = ? AND suggestion_id = ?", userID, suggestionID).
			First(&vote).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			if err := tx.Create(&models.SuggestionVote{UserID: userID, SuggestionID: suggestionID}).Error; err != nil {
				return err
			}
			voted = true
			return tx.Model(&suggestion).
				Update("votes", gorm.Expr("votes + 1")).Error
		case err != nil:
			return err
		default:
			if err := tx.Delete(&vote).Error; err != nil {
				return err
			}
			voted = false
			return tx.Model(&suggestion).
				Update("votes", gorm.Expr("CASE WHEN votes > 0 THEN votes - 1 ELSE 0 END")).Error
		}
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Suggestion not found"})
			return
		}
		logger.Error().Err(err).Str("user_id", userID).Str("suggestion_id", suggestionID).Msg("Failed to vote")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"voted":   voted,
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/services"
	apperrors "github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/errors"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ModuleCompletionXP is the base XP reward for completing a module.
const ModuleCompletionXP = 200

type SubmitExerciseInput struct {
	Answer    string  `json:"answer" binding:"required"`
	Exercise  string  `json:"exercise"`
	Context   string  `json:"context"`
	TimeSpent float64 `json:"timeSpent"`
}

// SubmitExercise handles POST /api/exercises/:moduleId/submit. The answer
// goes to the external grader first; only a passing judgment reaches the
// completion path. Grader failures are 502s, distinct from storage 500s,
// and never mutate progress or stats.
func SubmitExercise(c *gin.Context) {
	userID := c.GetString("userId")

	moduleID, err := services.ParseModuleID(c.Param("moduleId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var input SubmitExerciseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grade, err := services.GradeAnswer(c.Request.Context(), services.GradeRequest{
		ModuleID: moduleID,
		Exercise: input.Exercise,
		Answer:   input.Answer,
		Context:  input.Context,
	})
	if err != nil {
		appErr := apperrors.BadGateway("Grading service unavailable, please try again")
		if errors.Is(err, services.ErrGraderMalformed) {
			appErr = apperrors.BadGateway("Grading service returned an invalid response")
		}
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	xpEarned := 0.0
	if grade.Passed {
		xpEarned = ModuleCompletionXP
	}

	result, err := services.SubmitCompletion(userID, moduleID, services.SubmitInput{
		Completed: grade.Passed,
		Score:     float64(grade.Score),
		TimeSpent: input.TimeSpent,
		XPEarned:  xpEarned,
	}, badgeEngine)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Int("module_id", moduleID).Msg("Failed to record graded attempt")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save progress"})
		return
	}

	if result.IsNewCompletion {
		services.InvalidateLeaderboard()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"grading": gin.H{
			"score":    grade.Score,
			"passed":   grade.Passed,
			"feedback": grade.Feedback,
			"message":  grade.Message,
		},
		"progress":        result.Progress,
		"stats":           result.Stats,
		"isNewCompletion": result.IsNewCompletion,
	})
}

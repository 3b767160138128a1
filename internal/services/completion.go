package services

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"gorm.io/gorm"
)

// SubmitInput is one module submission as sent by the client. Raw floats
// are coerced server-side so NaN/Inf can never reach storage.
type SubmitInput struct {
	Completed bool
	Score     float64
	TimeSpent float64
	XPEarned  float64
}

// CompletionResult is the combined payload for one submission.
type CompletionResult struct {
	Progress        *models.UserProgress
	Stats           StatsPayload
	IsNewCompletion bool
}

// SubmitCompletion records a submission and, exactly once per module,
// issues the completion reward (XP, streak credit, modulesCompleted,
// badge check). Progress and stats commit in one transaction: either both
// update or neither does.
//
// Duplicate or concurrent first-completion calls are classified as repeat
// submissions, not errors.
func SubmitCompletion(userID string, moduleID int, in SubmitInput, engine *BadgeEngine) (*CompletionResult, error) {
	score := CoerceScore(in.Score)
	timeSpent := CoerceSeconds(in.TimeSpent)
	xpEarned := CoerceSeconds(in.XPEarned)
	now := time.Now()

	var result CompletionResult
	var newBadges []models.UserBadge

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		record, isNewCompletion, err := upsertAttemptTx(tx, userID, moduleID, in.Completed, score, timeSpent, now)
		if err != nil {
			return err
		}

		stats, err := loadStatsTx(tx, userID)
		if err != nil {
			return err
		}

		if isNewCompletion {
			// Zero-XP completions still credit streak freshness and the
			// weekly series without fabricating XP.
			stats.ApplyActivity(xpEarned, true, now)
			newBadges = engine.Evaluate(stats, now)
			if err := persistStatsTx(tx, stats, xpEarned, 1, newBadges); err != nil {
				return err
			}
		} else {
			// No new reward, but keep the streak display honest and catch
			// badge thresholds crossed by other paths.
			changed := stats.ResetStreakIfExpired(now)
			newBadges = engine.Evaluate(stats, now)
			if changed || len(newBadges) > 0 {
				if err := persistStatsTx(tx, stats, 0, 0, newBadges); err != nil {
					return err
				}
			}
		}

		result = CompletionResult{
			Progress:        record,
			Stats:           BuildStatsPayload(stats, newBadges, engine, now),
			IsNewCompletion: isNewCompletion,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

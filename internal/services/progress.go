package services

import (
	"math"
	"strconv"
	"time"

	apperrors "github.com/Soumahoro-Aboubakar/prompt-saas-sub000/pkg/errors"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParseModuleID validates a raw module id. Anything that is not a positive
// integer is rejected, never coerced.
func ParseModuleID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest("moduleId must be a positive integer")
	}
	return id, nil
}

// CoerceScore clamps a submitted score into [0,100]; NaN/Inf become 0.
func CoerceScore(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// CoerceSeconds clamps a submitted duration to a non-negative integer;
// NaN/Inf become 0.
func CoerceSeconds(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(v)
}

// ListProgress returns all progress records for a user, newest module last.
func ListProgress(userID string) ([]models.UserProgress, error) {
	var records []models.UserProgress
	err := database.DB.Where("user_id = ?", userID).
		Order("module_id asc").
		Find(&records).Error
	return records, err
}

// FindProgress returns the record for one module, or nil when the user has
// never attempted it.
func FindProgress(userID string, moduleID int) (*models.UserProgress, error) {
	var record models.UserProgress
	err := database.DB.Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// upsertAttemptTx records a submission. isNewCompletion is decided by the
// conditional completed=false->true update alone, so two concurrent first
// completions can never both win.
func upsertAttemptTx(tx *gorm.DB, userID string, moduleID int, completing bool, score, timeSpent int, now time.Time) (*models.UserProgress, bool, error) {
	record := models.UserProgress{
		UserID:        userID,
		ModuleID:      moduleID,
		Completed:     completing,
		Score:         score,
		TimeSpent:     timeSpent,
		Attempts:      1,
		LastAttemptAt: now,
	}
	if completing {
		t := now
		record.CompletedAt = &t
	}

	// First submission attempt. On a concurrent duplicate the unique
	// (user_id, module_id) index turns this into a no-op and we fall
	// through to the update path.
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &record, completing, nil
	}

	// Repeat submission: raise-only score, cumulative time, attempt count.
	updates := map[string]interface{}{
		"attempts":        gorm.Expr("attempts + 1"),
		"time_spent":      gorm.Expr("time_spent + ?", timeSpent),
		"score":           gorm.Expr("CASE WHEN score < ? THEN ? ELSE score END", score, score),
		"last_attempt_at": now,
	}
	err := tx.Model(&models.UserProgress{}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Updates(updates).Error
	if err != nil {
		return nil, false, err
	}

	isNewCompletion := false
	if completing {
		// The affected-row count of this guarded update is the sole source
		// of truth for reward issuance.
		res := tx.Model(&models.UserProgress{}).
			Where("user_id = ? AND module_id = ? AND completed = ?", userID, moduleID, false).
			Updates(map[string]interface{}{"completed": true, "completed_at": now})
		if res.Error != nil {
			return nil, false, res.Error
		}
		isNewCompletion = res.RowsAffected == 1
	}

	var current models.UserProgress
	err = tx.Where("user_id = ? AND module_id = ?", userID, moduleID).First(&current).Error
	if err != nil {
		return nil, false, err
	}
	return &current, isNewCompletion, nil
}

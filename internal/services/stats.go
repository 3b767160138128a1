package services

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// loadStatsTx fetches the stats aggregate for a user, lazily creating a
// zero record on first access.
func loadStatsTx(tx *gorm.DB, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := tx.Preload("Badges").
		Preload("WeeklyActivity", func(db *gorm.DB) *gorm.DB { return db.Order("day asc") }).
		Where("user_id = ?", userID).
		First(&stats).Error
	if err == nil {
		return &stats, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	stats = models.UserStats{UserID: userID, Level: 1}
	// Another request may create the row concurrently; the unique index on
	// user_id makes the loser re-read instead of duplicating.
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&stats)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return loadStatsTx(tx, userID)
	}
	return &stats, nil
}

// persistStatsTx writes the aggregate as one unit: scalar fields, the
// weekly series (upsert + purge) and any newly earned badges. The additive
// counters (XP, modules, weekly entries) are written as SQL increments of
// xpDelta/modulesDelta rather than absolute values, so two transactions
// crediting the same user concurrently both land instead of the later
// write clobbering the earlier one with a stale read.
func persistStatsTx(tx *gorm.DB, stats *models.UserStats, xpDelta, modulesDelta int, newBadges []models.UserBadge) error {
	updates := map[string]interface{}{
		"total_xp":           gorm.Expr("total_xp + ?", xpDelta),
		"level":              gorm.Expr("(total_xp + ?) / ? + 1", xpDelta, models.XPPerLevel),
		"modules_completed":  gorm.Expr("modules_completed + ?", modulesDelta),
		"streak":             stats.Streak,
		"longest_streak":     gorm.Expr("CASE WHEN longest_streak < ? THEN ? ELSE longest_streak END", stats.LongestStreak, stats.LongestStreak),
		"last_activity_date": stats.LastActivityDate,
	}
	if err := tx.Model(&models.UserStats{}).Where("id = ?", stats.ID).Updates(updates).Error; err != nil {
		return err
	}

	// Only the day the activity landed on has changed; it gets the same
	// delta-increment treatment on conflict. All other rows in the window
	// are already in the table untouched.
	var activityDay time.Time
	if stats.LastActivityDate != nil {
		activityDay = models.Midnight(*stats.LastActivityDate)
	}
	for i := range stats.WeeklyActivity {
		entry := &stats.WeeklyActivity[i]
		entry.UserID = stats.UserID
		conflict := clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
			DoNothing: true,
		}
		if (xpDelta != 0 || modulesDelta != 0) && entry.Day.Equal(activityDay) {
			conflict.DoNothing = false
			conflict.DoUpdates = clause.Assignments(map[string]interface{}{
				"xp_earned":         gorm.Expr("xp_earned + ?", xpDelta),
				"modules_completed": gorm.Expr("modules_completed + ?", modulesDelta),
			})
		}
		if err := tx.Clauses(conflict).Create(entry).Error; err != nil {
			return err
		}
	}

	// Purge rows that fell out of the trailing window
	if len(stats.WeeklyActivity) > 0 {
		oldest := stats.WeeklyActivity[0].Day
		for _, entry := range stats.WeeklyActivity {
			if entry.Day.Before(oldest) {
				oldest = entry.Day
			}
		}
		err := tx.Where("user_id = ? AND day < ?", stats.UserID, oldest).
			Delete(&models.WeeklyActivity{}).Error
		if err != nil {
			return err
		}
	}

	if len(newBadges) > 0 {
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&newBadges).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// GetOrCreateStats returns the stats aggregate, creating a zero record for
// first-time users.
func GetOrCreateStats(userID string) (*models.UserStats, error) {
	var stats *models.UserStats
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = loadStatsTx(tx, userID)
		return err
	})
	return stats, err
}

// AddXP atomically credits XP plus the derived level/streak/weekly updates.
// The whole aggregate commits or none of it does.
func AddXP(userID string, amount int, moduleCompleted bool) (*models.UserStats, error) {
	if amount < 0 {
		amount = 0
	}
	modulesDelta := 0
	if moduleCompleted {
		modulesDelta = 1
	}

	var stats *models.UserStats
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = loadStatsTx(tx, userID)
		if err != nil {
			return err
		}
		stats.ApplyActivity(amount, moduleCompleted, time.Now())
		return persistStatsTx(tx, stats, amount, modulesDelta, nil)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RecordActivity credits streak/weekly freshness without fabricating XP,
// for completions that carry no bonus XP.
func RecordActivity(userID string, moduleCompleted bool) (*models.UserStats, error) {
	return AddXP(userID, 0, moduleCompleted)
}

// RefreshStats returns current stats after a streak-expiry correction and
// a badge re-check (covers thresholds crossed by paths that skipped the
// check, e.g. manual XP grants).
func RefreshStats(userID string, engine *BadgeEngine) (*models.UserStats, []models.UserBadge, error) {
	var stats *models.UserStats
	var newBadges []models.UserBadge
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = loadStatsTx(tx, userID)
		if err != nil {
			return err
		}
		now := time.Now()
		changed := stats.ResetStreakIfExpired(now)
		newBadges = engine.Evaluate(stats, now)
		if changed || len(newBadges) > 0 {
			return persistStatsTx(tx, stats, 0, 0, newBadges)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return stats, newBadges, nil
}

// GrantXP is the direct XP grant path (non-module rewards). It reuses the
// activity crediting so level/streak/weekly invariants hold, then runs the
// badge check.
func GrantXP(userID string, amount int, engine *BadgeEngine) (*models.UserStats, []models.UserBadge, error) {
	if amount < 0 {
		amount = 0
	}

	var stats *models.UserStats
	var newBadges []models.UserBadge
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = loadStatsTx(tx, userID)
		if err != nil {
			return err
		}
		now := time.Now()
		stats.ApplyActivity(amount, false, now)
		newBadges = engine.Evaluate(stats, now)
		return persistStatsTx(tx, stats, amount, 0, newBadges)
	})
	if err != nil {
		return nil, nil, err
	}
	return stats, newBadges, nil
}

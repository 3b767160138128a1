package services

import (
	"testing"
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGetOrCreateStatsLazilyCreates(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")

	stats, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.TotalXP)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 0, stats.Streak)
	assert.Nil(t, stats.LastActivityDate)

	// Second load returns the same record, not a new one
	again, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	assert.Equal(t, stats.ID, again.ID)
}

func TestAddXPPersistsWholeAggregate(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")

	_, err := AddXP("u1", 250, true)
	assert.NoError(t, err)

	stats, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	assert.Equal(t, 250, stats.TotalXP)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, 1, stats.Streak)
	assert.NotNil(t, stats.LastActivityDate)
	assert.Len(t, stats.WeeklyActivity, 1)
	assert.Equal(t, 250, stats.WeeklyActivity[0].XPEarned)
	assert.Equal(t, 1, stats.WeeklyActivity[0].ModulesCompleted)
}

func TestAddXPSameDayMergesWeeklyRow(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")

	_, err := AddXP("u1", 100, false)
	assert.NoError(t, err)
	_, err = AddXP("u1", 50, true)
	assert.NoError(t, err)

	stats, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	assert.Equal(t, 150, stats.TotalXP)
	assert.Len(t, stats.WeeklyActivity, 1, "same-day activity must merge, not append")
	assert.Equal(t, 150, stats.WeeklyActivity[0].XPEarned)

	var rows int64
	database.DB.Model(&models.WeeklyActivity{}).Where("user_id = ?", "u1").Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestStatsWritersWithStaleReadsBothLand(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")

	// Both writers load the aggregate before either has written: the
	// interleaving two concurrent completions of different modules produce
	// on a multi-connection database.
	first, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	second, err := GetOrCreateStats("u1")
	assert.NoError(t, err)

	now := time.Now()
	first.ApplyActivity(200, true, now)
	second.ApplyActivity(200, true, now)

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		return persistStatsTx(tx, first, 200, 1, nil)
	})
	assert.NoError(t, err)
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		return persistStatsTx(tx, second, 200, 1, nil)
	})
	assert.NoError(t, err)

	final, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	assert.Equal(t, 400, final.TotalXP, "the second writer must add, not overwrite")
	assert.Equal(t, 3, final.Level)
	assert.Equal(t, 2, final.ModulesCompleted)
	assert.Len(t, final.WeeklyActivity, 1)
	assert.Equal(t, 400, final.WeeklyActivity[0].XPEarned)
	assert.Equal(t, 2, final.WeeklyActivity[0].ModulesCompleted)
}

func TestRecordActivityAddsNoXP(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")

	stats, err := RecordActivity("u1", true)
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.TotalXP)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 1, stats.Streak)
	assert.NotNil(t, stats.LastActivityDate)
}

func TestRefreshStatsCorrectsExpiredStreak(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")
	engine := NewBadgeEngine(DefaultBadges)

	_, err := AddXP("u1", 100, false)
	assert.NoError(t, err)

	// Backdate the last activity beyond the grace day
	stale := time.Now().AddDate(0, 0, -3)
	err = database.DB.Model(&models.UserStats{}).
		Where("user_id = ?", "u1").
		Update("last_activity_date", stale).Error
	assert.NoError(t, err)

	stats, _, err := RefreshStats("u1", engine)
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Streak)

	// And the correction was persisted
	reloaded, err := GetOrCreateStats("u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, reloaded.Streak)
}

func TestRefreshStatsCatchesMissedBadges(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")
	engine := NewBadgeEngine(DefaultBadges)

	// XP lands without any badge check having run
	_, err := AddXP("u1", 600, false)
	assert.NoError(t, err)

	stats, newBadges, err := RefreshStats("u1", engine)
	assert.NoError(t, err)

	ids := make([]string, 0, len(newBadges))
	for _, b := range newBadges {
		ids = append(ids, b.BadgeID)
	}
	assert.Contains(t, ids, "xp_500")
	assert.True(t, stats.HasBadge("xp_500"))

	// Idempotent on the next read
	_, again, err := RefreshStats("u1", engine)
	assert.NoError(t, err)
	assert.Empty(t, again)
}

func TestGrantXPRunsBadgeCheck(t *testing.T) {
	setupTestDB(t)
	createTestUser(t, "u1")
	engine := NewBadgeEngine(DefaultBadges)

	stats, newBadges, err := GrantXP("u1", 500, engine)
	assert.NoError(t, err)
	assert.Equal(t, 500, stats.TotalXP)
	assert.Equal(t, 3, stats.Level)

	ids := make([]string, 0, len(newBadges))
	for _, b := range newBadges {
		ids = append(ids, b.BadgeID)
	}
	assert.Contains(t, ids, "xp_500")
}

func TestBuildStatsPayloadShape(t *testing.T) {
	engine := NewBadgeEngine(DefaultBadges)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	stats := &models.UserStats{
		UserID:           "u1",
		TotalXP:          450,
		Level:            3,
		Streak:           2,
		LongestStreak:    4,
		ModulesCompleted: 2,
	}
	last := now.Add(-2 * time.Hour)
	stats.LastActivityDate = &last
	stats.WeeklyActivity = []models.WeeklyActivity{
		{UserID: "u1", Day: models.Midnight(now), XPEarned: 100, ModulesCompleted: 1},
		{UserID: "u1", Day: models.Midnight(now.AddDate(0, 0, -1)), XPEarned: 50},
	}

	payload := BuildStatsPayload(stats, nil, engine, now)

	assert.Equal(t, 450, payload.TotalXP)
	assert.Equal(t, 3, payload.Level)
	assert.Len(t, payload.WeeklyActivity, 7, "display series is always dense")
	assert.LessOrEqual(t, len(payload.LockedBadges), 3)
	assert.NotNil(t, payload.Badges)
	assert.NotNil(t, payload.NewBadges)

	today := payload.WeeklyActivity[6]
	assert.True(t, today.IsToday)
	assert.Equal(t, 100, today.XPEarned)
	assert.Equal(t, 100, today.Height, "today holds the week's max XP")

	yesterday := payload.WeeklyActivity[5]
	assert.Equal(t, 50, yesterday.XPEarned)
	assert.Equal(t, 50, yesterday.Height)

	assert.True(t, payload.StreakStatus.IsActiveToday)
	assert.False(t, payload.StreakStatus.IsAtRisk)
	assert.Equal(t, 0, payload.StreakStatus.DaysSinceLastActivity)
}

func TestBuildStatsPayloadStreakAtRisk(t *testing.T) {
	engine := NewBadgeEngine(DefaultBadges)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	stats := &models.UserStats{UserID: "u1", Streak: 3}
	last := now.AddDate(0, 0, -1)
	stats.LastActivityDate = &last

	payload := BuildStatsPayload(stats, nil, engine, now)
	assert.False(t, payload.StreakStatus.IsActiveToday)
	assert.True(t, payload.StreakStatus.IsAtRisk)
	assert.Equal(t, 1, payload.StreakStatus.DaysSinceLastActivity)
}

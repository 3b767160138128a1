package services

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
)

// maxLockedBadges caps the locked-badge teaser in the payload.
const maxLockedBadges = 3

// WeeklyActivityPoint is one day of the 7-day display series.
type WeeklyActivityPoint struct {
	Day              string `json:"day"` // YYYY-MM-DD
	XPEarned         int    `json:"xpEarned"`
	ModulesCompleted int    `json:"modulesCompleted"`
	Height           int    `json:"height"` // percent of the week's max XP
	IsToday          bool   `json:"isToday"`
}

// StreakStatus summarizes streak freshness for display.
type StreakStatus struct {
	IsActiveToday         bool `json:"isActiveToday"`
	IsAtRisk              bool `json:"isAtRisk"`
	DaysSinceLastActivity int  `json:"daysSinceLastActivity"`
}

// LockedBadge is a not-yet-earned definition, safe to show thresholds for.
type LockedBadge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// StatsPayload is the combined stats view returned by every stats-touching
// endpoint.
type StatsPayload struct {
	TotalXP          int                   `json:"totalXP"`
	Level            int                   `json:"level"`
	Streak           int                   `json:"streak"`
	LongestStreak    int                   `json:"longestStreak"`
	ModulesCompleted int                   `json:"modulesCompleted"`
	Badges           []models.UserBadge    `json:"badges"`
	LockedBadges     []LockedBadge         `json:"lockedBadges"`
	NewBadges        []models.UserBadge    `json:"newBadges"`
	LastActivityDate *time.Time            `json:"lastActivityDate"`
	WeeklyActivity   []WeeklyActivityPoint `json:"weeklyActivity"`
	StreakStatus     StreakStatus          `json:"streakStatus"`
}

// BuildStatsPayload assembles the full payload from a stats aggregate plus
// the badges unlocked by the current call.
func BuildStatsPayload(stats *models.UserStats, newBadges []models.UserBadge, engine *BadgeEngine, now time.Time) StatsPayload {
	payload := StatsPayload{
		TotalXP:          stats.TotalXP,
		Level:            stats.Level,
		Streak:           stats.Streak,
		LongestStreak:    stats.LongestStreak,
		ModulesCompleted: stats.ModulesCompleted,
		Badges:           stats.Badges,
		NewBadges:        newBadges,
		LastActivityDate: stats.LastActivityDate,
		WeeklyActivity:   buildWeeklySeries(stats, now),
		StreakStatus:     buildStreakStatus(stats, now),
	}
	if payload.Badges == nil {
		payload.Badges = []models.UserBadge{}
	}
	if payload.NewBadges == nil {
		payload.NewBadges = []models.UserBadge{}
	}

	locked := engine.LockedBadges(stats)
	payload.LockedBadges = make([]LockedBadge, 0, maxLockedBadges)
	for _, def := range locked {
		if len(payload.LockedBadges) == maxLockedBadges {
			break
		}
		payload.LockedBadges = append(payload.LockedBadges, LockedBadge{
			ID: def.ID, Name: def.Name, Icon: def.Icon,
		})
	}

	return payload
}

// buildWeeklySeries produces a dense 7-day series ending today, with bar
// heights scaled to the week's max XP.
func buildWeeklySeries(stats *models.UserStats, now time.Time) []WeeklyActivityPoint {
	today := models.Midnight(now)

	byDay := make(map[string]models.WeeklyActivity, len(stats.WeeklyActivity))
	maxXP := 0
	for _, entry := range stats.WeeklyActivity {
		byDay[models.Midnight(entry.Day).Format("2006-01-02")] = entry
		if entry.XPEarned > maxXP {
			maxXP = entry.XPEarned
		}
	}

	series := make([]WeeklyActivityPoint, 0, models.WeeklyWindowDays)
	for i := models.WeeklyWindowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format("2006-01-02")
		point := WeeklyActivityPoint{
			Day:     key,
			IsToday: i == 0,
		}
		if entry, ok := byDay[key]; ok {
			point.XPEarned = entry.XPEarned
			point.ModulesCompleted = entry.ModulesCompleted
			if maxXP > 0 {
				point.Height = entry.XPEarned * 100 / maxXP
			}
		}
		series = append(series, point)
	}
	return series
}

func buildStreakStatus(stats *models.UserStats, now time.Time) StreakStatus {
	days := stats.DaysSinceActivity(now)
	if days < 0 {
		return StreakStatus{DaysSinceLastActivity: -1}
	}
	return StreakStatus{
		IsActiveToday: days == 0,
		// One day without activity: today is the last chance to keep the
		// streak alive.
		IsAtRisk:              days == 1 && stats.Streak > 0,
		DaysSinceLastActivity: days,
	}
}

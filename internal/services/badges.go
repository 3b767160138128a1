package services

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
)

// BadgeDefinition pairs a badge identity with a pure unlock predicate over
// a stats snapshot. Definitions are configuration, not user data.
type BadgeDefinition struct {
	ID        string
	Name      string
	Icon      string
	Condition func(s *models.UserStats) bool
}

// DefaultBadges is the ordered definition list. Conditions are monotonic
// thresholds, so once unlocked a badge stays unlocked.
var DefaultBadges = []BadgeDefinition{
	{
		ID: "first_step", Name: "First Step", Icon: "footprints",
		Condition: func(s *models.UserStats) bool { return s.ModulesCompleted >= 1 },
	},
	{
		ID: "getting_warm", Name: "Getting Warm", Icon: "flame",
		Condition: func(s *models.UserStats) bool { return s.ModulesCompleted >= 3 },
	},
	{
		ID: "five_modules", Name: "Halfway There", Icon: "milestone",
		Condition: func(s *models.UserStats) bool { return s.ModulesCompleted >= 5 },
	},
	{
		ID: "course_complete", Name: "Course Complete", Icon: "graduation-cap",
		Condition: func(s *models.UserStats) bool { return s.ModulesCompleted >= 10 },
	},
	{
		ID: "streak_3", Name: "On a Roll", Icon: "calendar-check",
		Condition: func(s *models.UserStats) bool { return s.LongestStreak >= 3 },
	},
	{
		ID: "streak_7", Name: "Unstoppable", Icon: "zap",
		Condition: func(s *models.UserStats) bool { return s.LongestStreak >= 7 },
	},
	{
		ID: "xp_500", Name: "XP Collector", Icon: "coins",
		Condition: func(s *models.UserStats) bool { return s.TotalXP >= 500 },
	},
	{
		ID: "xp_1000", Name: "XP Hoarder", Icon: "gem",
		Condition: func(s *models.UserStats) bool { return s.TotalXP >= 1000 },
	},
	{
		ID: "level_5", Name: "Prompt Adept", Icon: "star",
		Condition: func(s *models.UserStats) bool { return s.Level >= 5 },
	},
}

// BadgeEngine evaluates an injected, ordered definition list against stats
// snapshots. It performs no I/O; callers persist what Evaluate appends.
type BadgeEngine struct {
	defs []BadgeDefinition
}

func NewBadgeEngine(defs []BadgeDefinition) *BadgeEngine {
	return &BadgeEngine{defs: defs}
}

// Evaluate appends every newly unlocked badge to stats.Badges and returns
// the new ones. Already-earned ids are skipped, so back-to-back calls with
// unchanged stats return nothing the second time.
func (e *BadgeEngine) Evaluate(stats *models.UserStats, now time.Time) []models.UserBadge {
	var unlocked []models.UserBadge

	for _, def := range e.defs {
		if stats.HasBadge(def.ID) {
			continue
		}
		if !def.Condition(stats) {
			continue
		}
		badge := models.UserBadge{
			UserID:   stats.UserID,
			BadgeID:  def.ID,
			Name:     def.Name,
			Icon:     def.Icon,
			EarnedAt: now,
		}
		stats.Badges = append(stats.Badges, badge)
		unlocked = append(unlocked, badge)
	}

	return unlocked
}

// LockedBadges returns definitions not yet earned, in definition order.
// Display-only: no conditions are evaluated.
func (e *BadgeEngine) LockedBadges(stats *models.UserStats) []BadgeDefinition {
	var locked []BadgeDefinition
	for _, def := range e.defs {
		if !stats.HasBadge(def.ID) {
			locked = append(locked, def)
		}
	}
	return locked
}

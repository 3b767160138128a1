package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPPerLevel is the XP span of a single level. Level is always derived
// from TotalXP, never mutated independently.
const XPPerLevel = 200

// WeeklyWindowDays is the retention window for daily activity entries.
const WeeklyWindowDays = 7

// UserStats is the authoritative per-user gamification aggregate. Badges
// and WeeklyActivity are owned child rows; the whole aggregate is written
// in a single transaction so XP, streak and badge state never diverge.
type UserStats struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID string `gorm:"uniqueIndex;not null" json:"userId"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	TotalXP          int `gorm:"default:0" json:"totalXP"`
	Level            int `gorm:"default:1" json:"level"`
	Streak           int `gorm:"default:0" json:"streak"`
	LongestStreak    int `gorm:"default:0" json:"longestStreak"`
	ModulesCompleted int `gorm:"default:0" json:"modulesCompleted"`

	LastActivityDate *time.Time `json:"lastActivityDate"`

	Badges         []UserBadge      `gorm:"foreignKey:UserID;references:UserID" json:"badges"`
	WeeklyActivity []WeeklyActivity `gorm:"foreignKey:UserID;references:UserID" json:"weeklyActivity"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

func (s *UserStats) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Level < 1 {
		s.Level = 1
	}
	return
}

// UserBadge is an earned badge. Append-only: badges are never revoked.
type UserBadge struct {
	UserID   string    `gorm:"primaryKey;type:text" json:"userId"`
	BadgeID  string    `gorm:"primaryKey;type:text" json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	EarnedAt time.Time `json:"earnedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}

// WeeklyActivity is one day of credited activity. At most one row per
// user per calendar day; rows older than the trailing window are purged
// on every write.
type WeeklyActivity struct {
	ID               string    `gorm:"primaryKey;type:text" json:"-"`
	UserID           string    `gorm:"uniqueIndex:idx_weekly_user_day;not null" json:"-"`
	Day              time.Time `gorm:"uniqueIndex:idx_weekly_user_day;not null" json:"date"`
	XPEarned         int       `gorm:"default:0" json:"xpEarned"`
	ModulesCompleted int       `gorm:"default:0" json:"modulesCompleted"`
}

func (WeeklyActivity) TableName() string {
	return "weekly_activities"
}

func (w *WeeklyActivity) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return
}

// LevelForXP derives the level for a given XP total.
func LevelForXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}

// Midnight truncates a timestamp to day granularity in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysSinceActivity returns whole calendar days between the last activity
// and now (0 = active today). Returns -1 when there was never any activity.
func (s *UserStats) DaysSinceActivity(now time.Time) int {
	if s.LastActivityDate == nil {
		return -1
	}
	diff := Midnight(now).Sub(Midnight(*s.LastActivityDate))
	return int(diff.Hours() / 24)
}

// advanceStreak applies the streak transition for an activity happening at
// now. Must run before LastActivityDate is updated.
func (s *UserStats) advanceStreak(now time.Time) {
	switch days := s.DaysSinceActivity(now); {
	case days < 0:
		// First ever activity
		s.Streak = 1
	case days == 0:
		// Same-day activity never increments twice
	case days == 1:
		s.Streak++
	default:
		// Broken streak, restart
		s.Streak = 1
	}
	if s.Streak > s.LongestStreak {
		s.LongestStreak = s.Streak
	}
}

// ApplyActivity credits an activity event: XP, module count, streak
// transition, weekly series merge and LastActivityDate, in the required
// order. It mutates the aggregate only; the caller persists.
func (s *UserStats) ApplyActivity(xp int, moduleCompleted bool, now time.Time) {
	if xp < 0 {
		xp = 0
	}

	// Streak is evaluated against the previous activity date, so it has to
	// run before LastActivityDate moves forward.
	s.advanceStreak(now)

	s.TotalXP += xp
	s.Level = LevelForXP(s.TotalXP)
	if moduleCompleted {
		s.ModulesCompleted++
	}

	s.mergeWeeklyActivity(xp, moduleCompleted, now)

	t := now
	s.LastActivityDate = &t
}

// mergeWeeklyActivity accumulates into today's entry (or appends one) and
// drops entries outside the trailing 7-day window.
func (s *UserStats) mergeWeeklyActivity(xp int, moduleCompleted bool, now time.Time) {
	today := Midnight(now)
	modules := 0
	if moduleCompleted {
		modules = 1
	}

	merged := false
	for i := range s.WeeklyActivity {
		if s.WeeklyActivity[i].Day.Equal(today) {
			s.WeeklyActivity[i].XPEarned += xp
			s.WeeklyActivity[i].ModulesCompleted += modules
			merged = true
			break
		}
	}
	if !merged {
		s.WeeklyActivity = append(s.WeeklyActivity, WeeklyActivity{
			UserID:           s.UserID,
			Day:              today,
			XPEarned:         xp,
			ModulesCompleted: modules,
		})
	}

	// Keep exactly the trailing window, today included.
	cutoff := today.AddDate(0, 0, -(WeeklyWindowDays - 1))
	kept := s.WeeklyActivity[:0]
	for _, entry := range s.WeeklyActivity {
		if !entry.Day.Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	s.WeeklyActivity = kept
}

// ResetStreakIfExpired zeroes the streak when more than one full calendar
// day has passed without activity. Returns true when the caller needs to
// persist the correction.
func (s *UserStats) ResetStreakIfExpired(now time.Time) bool {
	if s.Streak == 0 {
		return false
	}
	if s.DaysSinceActivity(now) > 1 {
		s.Streak = 0
		return true
	}
	return false
}

// HasBadge reports whether a badge id was already earned.
func (s *UserStats) HasBadge(badgeID string) bool {
	for _, b := range s.Badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

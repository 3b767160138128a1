package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/database"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/models"
)

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	TotalXP          int    `json:"totalXP"`
	Level            int    `json:"level"`
	ModulesCompleted int    `json:"modulesCompleted"`
	Streak           int    `json:"streak"`
}

// In-memory fallback cache for when Redis is unavailable
type cachedLeaderboard struct {
	Entries   []LeaderboardEntry
	ExpiresAt time.Time
}

var (
	leaderboardCache = make(map[int]cachedLeaderboard)
	lbMutex          sync.RWMutex
	lbTTL            = 60 * time.Second
)

// GetLeaderboard ranks users by total XP. Read-only projection, cached in
// Redis with an in-process fallback.
func GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("leaderboard:%d", limit)
	if database.Redis != nil {
		var cached []LeaderboardEntry
		if err := database.CacheGet(cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	lbMutex.RLock()
	if cached, ok := leaderboardCache[limit]; ok && time.Now().Before(cached.ExpiresAt) {
		lbMutex.RUnlock()
		return cached.Entries, nil
	}
	lbMutex.RUnlock()

	var rows []struct {
		models.UserStats
		Username string
		Name     string
	}
	err := database.DB.Model(&models.UserStats{}).
		Select("user_stats.*, users.username, users.name").
		Joins("JOIN users ON users.id = user_stats.user_id").
		Order("user_stats.total_xp DESC, user_stats.updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{
			Rank:             i + 1,
			UserID:           row.UserID,
			Username:         row.Username,
			Name:             row.Name,
			TotalXP:          row.TotalXP,
			Level:            row.Level,
			ModulesCompleted: row.ModulesCompleted,
			Streak:           row.Streak,
		}
	}

	if database.Redis != nil {
		_ = database.CacheSet(cacheKey, entries, lbTTL)
	}
	lbMutex.Lock()
	leaderboardCache[limit] = cachedLeaderboard{Entries: entries, ExpiresAt: time.Now().Add(lbTTL)}
	lbMutex.Unlock()

	return entries, nil
}

// InvalidateLeaderboard clears cached rankings (call after XP changes).
func InvalidateLeaderboard() {
	if database.Redis != nil {
		_ = database.CacheInvalidate("leaderboard:*")
	}
	lbMutex.Lock()
	leaderboardCache = make(map[int]cachedLeaderboard)
	lbMutex.Unlock()
}

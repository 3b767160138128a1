package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentLevelFromCompletedCount(t *testing.T) {
	cache := NewCache()
	assert.Equal(t, 1, cache.CurrentLevel())
	assert.True(t, cache.IsUnlocked(1))
	assert.False(t, cache.IsUnlocked(2))

	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: true})
	assert.Equal(t, 2, cache.CurrentLevel())
	assert.True(t, cache.IsUnlocked(2))
	assert.False(t, cache.IsUnlocked(3))
}

func TestOptimisticCompleteAdvancesLevel(t *testing.T) {
	cache := NewCache()
	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: true})

	cache.OptimisticComplete(2, 90)

	assert.Equal(t, UnconfirmedComplete, cache.State(2))
	assert.Equal(t, []int{1, 2}, cache.CompletedModuleIDs())
	assert.Equal(t, 3, cache.CurrentLevel())
}

func TestRollbackRestoresPreOptimisticState(t *testing.T) {
	cache := NewCache()
	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: true})
	levelBefore := cache.CurrentLevel()

	snap := cache.OptimisticComplete(2, 90)
	assert.Equal(t, levelBefore+1, cache.CurrentLevel())

	// Simulated server failure: roll back
	cache.Restore(snap)

	assert.Equal(t, NotComplete, cache.State(2))
	assert.NotContains(t, cache.CompletedModuleIDs(), 2)
	assert.Equal(t, levelBefore, cache.CurrentLevel())
}

func TestApplyServerWinsOverOptimisticGuess(t *testing.T) {
	cache := NewCache()
	cache.OptimisticComplete(1, 90)

	// Server computed a different score than the optimistic guess
	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: true, Score: 85, Attempts: 2, TimeSpent: 200})

	assert.Equal(t, ConfirmedComplete, cache.State(1))
	rec, ok := cache.Record(1)
	assert.True(t, ok)
	assert.Equal(t, 85, rec.Score)
	assert.Equal(t, 2, rec.Attempts)
}

func TestApplyServerIncompleteDemotes(t *testing.T) {
	cache := NewCache()
	cache.OptimisticComplete(1, 90)

	// Server says the module is not complete after all
	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: false, Score: 40, Attempts: 1})

	assert.Equal(t, NotComplete, cache.State(1))
	assert.Equal(t, 1, cache.CurrentLevel())
}

func TestSnapshotIsImmutable(t *testing.T) {
	cache := NewCache()
	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: true})
	snap := cache.Snapshot()

	// Mutations after the snapshot must not leak into it
	cache.ApplyServer(ProgressRecord{ModuleID: 2, Completed: true})
	cache.Restore(snap)

	assert.Equal(t, []int{1}, cache.CompletedModuleIDs())
}

func TestOptimisticCompleteKeepsConfirmedState(t *testing.T) {
	cache := NewCache()
	cache.ApplyServer(ProgressRecord{ModuleID: 1, Completed: true, Score: 95})

	cache.OptimisticComplete(1, 60)

	// A confirmed completion never regresses to unconfirmed
	assert.Equal(t, ConfirmedComplete, cache.State(1))
	rec, _ := cache.Record(1)
	assert.Equal(t, 95, rec.Score, "optimistic lower score must not overwrite the best")
}

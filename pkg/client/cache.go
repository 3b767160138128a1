// Package client is the sync side of module completion: a local progress
// cache with optimistic completion, server reconciliation and rollback,
// plus a retrying HTTP syncer.
package client

import (
	"sort"
	"sync"
)

// ModuleState is the cache state of one module.
type ModuleState int

const (
	// NotComplete: never completed, or optimistic completion rolled back.
	NotComplete ModuleState = iota
	// UnconfirmedComplete: marked complete locally, server confirmation pending.
	UnconfirmedComplete
	// ConfirmedComplete: the server acknowledged the completion.
	ConfirmedComplete
)

// ProgressRecord mirrors the server's per-module progress record.
type ProgressRecord struct {
	ModuleID  int  `json:"moduleId"`
	Completed bool `json:"completed"`
	Score     int  `json:"score"`
	TimeSpent int  `json:"timeSpent"`
	Attempts  int  `json:"attempts"`
}

// Cache holds the local view of completion state. All methods are safe for
// concurrent use from overlapping syncs.
type Cache struct {
	mu      sync.Mutex
	states  map[int]ModuleState
	records map[int]ProgressRecord
}

func NewCache() *Cache {
	return &Cache{
		states:  make(map[int]ModuleState),
		records: make(map[int]ProgressRecord),
	}
}

// Snapshot is an immutable copy of the cache, used to undo optimistic
// updates. Restoring an old snapshot is the rollback.
type Snapshot struct {
	states  map[int]ModuleState
	records map[int]ProgressRecord
}

func (c *Cache) State(moduleID int) ModuleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[moduleID]
}

func (c *Cache) Record(moduleID int) (ProgressRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[moduleID]
	return rec, ok
}

// CompletedModuleIDs returns modules in confirmed or unconfirmed complete
// state, ascending.
func (c *Cache) CompletedModuleIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.states))
	for id, state := range c.states {
		if state != NotComplete {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// CurrentLevel is the highest unlocked module: completed count + 1, never
// below 1.
func (c *Cache) CurrentLevel() int {
	count := len(c.CompletedModuleIDs())
	if count+1 < 1 {
		return 1
	}
	return count + 1
}

// IsUnlocked reports whether a module is reachable at the current level.
func (c *Cache) IsUnlocked(moduleID int) bool {
	return moduleID <= c.CurrentLevel()
}

func (c *Cache) snapshotLocked() Snapshot {
	states := make(map[int]ModuleState, len(c.states))
	for k, v := range c.states {
		states[k] = v
	}
	records := make(map[int]ProgressRecord, len(c.records))
	for k, v := range c.records {
		records[k] = v
	}
	return Snapshot{states: states, records: records}
}

// Snapshot copies the full cache state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Restore replaces the cache content with a previously taken snapshot.
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[int]ModuleState, len(s.states))
	for k, v := range s.states {
		c.states[k] = v
	}
	c.records = make(map[int]ProgressRecord, len(s.records))
	for k, v := range s.records {
		c.records[k] = v
	}
}

// OptimisticComplete snapshots the cache, then marks the module complete
// locally before the server has confirmed. The returned snapshot undoes
// the mark on sync failure.
func (c *Cache) OptimisticComplete(moduleID, score int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshotLocked()

	if c.states[moduleID] != ConfirmedComplete {
		c.states[moduleID] = UnconfirmedComplete
	}
	rec := c.records[moduleID]
	rec.ModuleID = moduleID
	rec.Completed = true
	if score > rec.Score {
		rec.Score = score
	}
	c.records[moduleID] = rec

	return snap
}

// ApplyServer is the reducer for a server progress record: the server's
// view wins over the optimistic guess.
func (c *Cache) ApplyServer(rec ProgressRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records[rec.ModuleID] = rec
	if rec.Completed {
		c.states[rec.ModuleID] = ConfirmedComplete
	} else {
		c.states[rec.ModuleID] = NotComplete
	}
}

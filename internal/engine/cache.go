package engine

import (
	"log/slog"
	"slices"
	"sync"

	"taskboard/internal/service"
)

// Snapshot is an immutable cache state. Version increases by one per
// state-changing operation.
type Snapshot struct {
	Version uint64
	Tasks   []service.Task
}

// Cache holds the last-known-good task list.
//
// Entries are replaced copy-on-write: every mutation builds a new slice,
// so a Snapshot handed out earlier never changes underneath its holder.
//
// Fetches are ordered by ticket. Begin hands out increasing tickets when a
// fetch is issued, and ReplaceIf applies a result only when no newer
// fetch has landed. A Patch or Remove supersedes every fetch issued
// before it landed.
type Cache struct {
	mu       sync.RWMutex
	tasks    []service.Task
	version  uint64
	issued   uint64
	applied  uint64
	onChange func(Snapshot)
	logger   *slog.Logger
}

// NewCache creates an empty cache. onChange, if set, runs once per
// state-changing call, after the cache lock is released.
func NewCache(onChange func(Snapshot), logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{onChange: onChange, logger: logger}
}

// Current returns a copy of the latest task list.
func (c *Cache) Current() []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tasks)
}

// Snapshot returns the latest state without copying.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Version: c.version, Tasks: c.tasks}
}

// Begin issues a ticket for a fetch about to be sent.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

// Stale reports whether a fetch with ticket has been superseded.
func (c *Cache) Stale(ticket uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ticket <= c.applied
}

// Replace overwrites the list unconditionally.
func (c *Cache) Replace(tasks []service.Task) {
	c.ReplaceIf(c.Begin(), tasks)
}

// ReplaceIf overwrites the list with the result of the fetch holding
// ticket, unless that fetch has been superseded. Reports whether it applied.
func (c *Cache) ReplaceIf(ticket uint64, tasks []service.Task) bool {
	c.mu.Lock()
	if ticket <= c.applied {
		c.mu.Unlock()
		c.logger.Debug("cache: stale fetch discarded", "ticket", ticket)
		return false
	}
	c.applied = ticket
	c.tasks = slices.Clone(tasks)
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// Patch replaces the task with id by fn applied to it.
// An absent id is logged and leaves the cache unchanged.
// fn runs under the cache lock and must not call back into the cache.
func (c *Cache) Patch(id string, fn func(service.Task) service.Task) bool {
	c.mu.Lock()
	i := indexOf(c.tasks, id)
	if i < 0 {
		c.mu.Unlock()
		c.logger.Warn("cache: patch of unknown task", "id", id)
		return false
	}
	next := slices.Clone(c.tasks)
	next[i] = fn(next[i])
	c.tasks = next
	c.applied = c.issued
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// Remove drops the task with id. An absent id is a logged no-op.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	i := indexOf(c.tasks, id)
	if i < 0 {
		c.mu.Unlock()
		c.logger.Warn("cache: remove of unknown task", "id", id)
		return false
	}
	c.tasks = slices.Delete(slices.Clone(c.tasks), i, i+1)
	c.applied = c.issued
	snap := c.bumpLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

func (c *Cache) bumpLocked() Snapshot {
	c.version++
	return Snapshot{Version: c.version, Tasks: c.tasks}
}

func (c *Cache) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func indexOf(tasks []service.Task, id string) int {
	return slices.IndexFunc(tasks, func(t service.Task) bool { return t.ID == id })
}
